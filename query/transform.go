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

// Row grouping and the APPLY aggregates. AVG and SUM accumulate in exact
// rational arithmetic so results match fixed-decimal expectations instead of
// drifting with the order of IEEE-754 additions.

package query

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/campusdata/insight/datasets"
)

// a group of row indices sharing one GROUP tuple
type group struct {
	rows []int
}

// groupRows partitions the given row indices by their GROUP tuples,
// preserving first-seen group order.
func groupRows(d datasets.Dataset, rows []int, fields []string) []group {
	index := make(map[string]int)
	groups := make([]group, 0)
	for _, row := range rows {
		key := groupKey(d, row, fields)
		at, found := index[key]
		if !found {
			at = len(groups)
			index[key] = at
			groups = append(groups, group{})
		}
		groups[at].rows = append(groups[at].rows, row)
	}
	return groups
}

// groupKey renders a row's GROUP tuple as a map key.
func groupKey(d datasets.Dataset, row int, fields []string) string {
	var b strings.Builder
	for i, field := range fields {
		if i > 0 {
			b.WriteByte(0x1f)
		}
		fmt.Fprintf(&b, "%v", d.Value(row, field))
	}
	return b.String()
}

// aggregate computes one APPLY value over a group's rows. Groups are formed
// from observed rows, so they are never empty.
func aggregate(d datasets.Dataset, rows []int, rule ApplyRule) any {
	switch rule.Operation {
	case "MAX":
		return extremum(d, rows, rule.Field, func(v, best float64) bool { return v > best })
	case "MIN":
		return extremum(d, rows, rule.Field, func(v, best float64) bool { return v < best })
	case "AVG":
		sum := ratSum(d, rows, rule.Field)
		sum.Quo(sum, new(big.Rat).SetInt64(int64(len(rows))))
		return round2(sum)
	case "SUM":
		return round2(ratSum(d, rows, rule.Field))
	case "COUNT":
		distinct := make(map[any]struct{})
		for _, row := range rows {
			distinct[d.Value(row, rule.Field)] = struct{}{}
		}
		return len(distinct)
	}
	return nil
}

// extremum returns the field value that wins the given comparison over the
// group.
func extremum(d datasets.Dataset, rows []int, field string, better func(v, best float64) bool) any {
	best := d.Value(rows[0], field)
	bestNumber := numeric(best)
	for _, row := range rows[1:] {
		value := d.Value(row, field)
		if number := numeric(value); better(number, bestNumber) {
			best, bestNumber = value, number
		}
	}
	return best
}

// ratSum adds a numeric field over the group in exact rational arithmetic.
func ratSum(d datasets.Dataset, rows []int, field string) *big.Rat {
	sum := new(big.Rat)
	value := new(big.Rat)
	for _, row := range rows {
		switch n := d.Value(row, field).(type) {
		case int:
			value.SetInt64(int64(n))
		case float64:
			value.SetFloat64(n)
		}
		sum.Add(sum, value)
	}
	return sum
}

// round2 rounds a rational to two decimal places (halves away from zero, the
// rounding big.Rat.FloatString performs) and reports it as a float.
func round2(r *big.Rat) float64 {
	f, _ := strconv.ParseFloat(r.FloatString(2), 64)
	return f
}
