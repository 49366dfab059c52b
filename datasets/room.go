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

// A Room is one bookable room in a campus building.
type Room struct {
	// full building name (e.g. "Hugh Dempster Pavilion")
	Fullname string `json:"fullname"`
	// short building code (e.g. "DMP")
	Shortname string `json:"shortname"`
	// room number within the building; not always numeric
	Number string `json:"number"`
	// canonical room name: shortname + "_" + number
	Name string `json:"name"`
	// the building's civic address
	Address string `json:"address"`
	// geolocation of the building
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
	// seating capacity
	Seats int `json:"seats"`
	// room type (e.g. "Small Group")
	Type string `json:"type"`
	// furniture configuration
	Furniture string `json:"furniture"`
	// URL of the room's detail page
	Href string `json:"href"`
}

// returns the value of the named field (one of the room field spellings)
func (r Room) Value(field string) any {
	switch field {
	case "fullname":
		return r.Fullname
	case "shortname":
		return r.Shortname
	case "number":
		return r.Number
	case "name":
		return r.Name
	case "address":
		return r.Address
	case "lat":
		return r.Lat
	case "lon":
		return r.Lon
	case "seats":
		return r.Seats
	case "type":
		return r.Type
	case "furniture":
		return r.Furniture
	case "href":
		return r.Href
	}
	return nil
}
