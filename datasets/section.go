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

package datasets

// The year recorded for a course's overall aggregate entry, which carries no
// year of its own in the source archives.
const OverallYear = 1900

// A Section is one offering of a course, or the course's overall aggregate
// entry. Field names double as the query-language field spelling.
type Section struct {
	// unique identifier for this section instance
	Uuid string `json:"uuid"`
	// course code (e.g. "310")
	Id string `json:"id"`
	// course title
	Title string `json:"title"`
	// instructor who taught the section
	Instructor string `json:"instructor"`
	// department that offered the section (e.g. "cpsc")
	Dept string `json:"dept"`
	// year the section ran (OverallYear for aggregate entries)
	Year int `json:"year"`
	// section grade average, 0-100
	Avg float64 `json:"avg"`
	// counts of students who passed, failed, and audited
	Pass  int `json:"pass"`
	Fail  int `json:"fail"`
	Audit int `json:"audit"`
}

// returns the value of the named field (one of the section field spellings)
func (s Section) Value(field string) any {
	switch field {
	case "uuid":
		return s.Uuid
	case "id":
		return s.Id
	case "title":
		return s.Title
	case "instructor":
		return s.Instructor
	case "dept":
		return s.Dept
	case "year":
		return s.Year
	case "avg":
		return s.Avg
	case "pass":
		return s.Pass
	case "fail":
		return s.Fail
	case "audit":
		return s.Audit
	}
	return nil
}
