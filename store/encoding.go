// Copyright (c) 2024 The Campus Insight Project and its Contributors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies
// of the Software, and to permit persons to whom the Software is furnished to do
// so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package store

import (
	"fmt"
	"strings"
)

// Dataset ids may contain any character except an underscore, path
// separators included, so every filename the store writes goes through this
// codec. It percent-escapes all bytes outside the RFC 3986 unreserved set,
// which keeps encoded names to a single filename segment and makes the
// encoding total and bijective: decodeName(encodeName(id)) == id for every
// id, and no two ids share an encoded name.

const upperhex = "0123456789ABCDEF"

// returns true for bytes that pass through the codec unescaped
func safeByte(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9') || b == '-' || b == '.' || b == '_' || b == '~'
}

// encodes a dataset id as a single filesystem-safe filename segment
func encodeName(id string) string {
	var sb strings.Builder
	for i := 0; i < len(id); i++ {
		b := id[i]
		if safeByte(b) {
			sb.WriteByte(b)
		} else {
			sb.WriteByte('%')
			sb.WriteByte(upperhex[b>>4])
			sb.WriteByte(upperhex[b&0xf])
		}
	}
	return sb.String()
}

// decodes a filename segment produced by encodeName back into a dataset id
func decodeName(name string) (string, error) {
	var sb strings.Builder
	for i := 0; i < len(name); i++ {
		b := name[i]
		if b != '%' {
			sb.WriteByte(b)
			continue
		}
		if i+2 >= len(name) {
			return "", fmt.Errorf("truncated escape in dataset filename '%s'", name)
		}
		hi, err1 := unhex(name[i+1])
		lo, err2 := unhex(name[i+2])
		if err1 != nil || err2 != nil {
			return "", fmt.Errorf("malformed escape in dataset filename '%s'", name)
		}
		sb.WriteByte(hi<<4 | lo)
		i += 2
	}
	return sb.String(), nil
}

func unhex(b byte) (byte, error) {
	switch {
	case b >= '0' && b <= '9':
		return b - '0', nil
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10, nil
	}
	return 0, fmt.Errorf("'%c' is not an uppercase hex digit", b)
}
