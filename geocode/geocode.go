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

// This package talks to the external geocoding service that maps a civic
// address to a latitude/longitude pair.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/StalkR/hsts"

	"github.com/campusdata/insight/config"
)

// This type is a proxy for the geocoding service. The service exposes a
// single resource: GET <base>/<url-encoded address>, answering either
// {"lat": ..., "lon": ...} or {"error": "..."}.
type Client struct {
	// base URL of the geocoding service
	URL string
	// HTTP client used for geocoding requests
	Http http.Client
}

// constructs a geocoder client from the service configuration
func New() Client {
	return Client{
		URL:  strings.TrimSuffix(config.Geocoder.URL, "/"),
		Http: secureHttpClient(time.Duration(config.Geocoder.Timeout) * time.Second),
	}
}

// Here's an HTTP client for the geocoding service. It sets a reasonable
// timeout and enables HTTP Strict Transport Security (HSTS).
func secureHttpClient(timeout time.Duration) http.Client {
	client := http.Client{
		Timeout: timeout,
	}
	client.Transport = hsts.New(client.Transport) // enable HSTS
	return client
}

// the geocoding service's response document
type response struct {
	Lat   *float64 `json:"lat"`
	Lon   *float64 `json:"lon"`
	Error string   `json:"error"`
}

// Resolve looks up the geolocation of the given address. A failure reported
// by the service itself (an {"error": ...} document) surfaces as an
// AddressError; transport and decoding trouble surface as ordinary errors.
// The request is cancellable through the given context.
func (c Client) Resolve(ctx context.Context, address string) (float64, float64, error) {
	resource := fmt.Sprintf("%s/%s", c.URL, url.PathEscape(address))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resource, http.NoBody)
	if err != nil {
		return 0, 0, err
	}

	resp, err := c.Http.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, 0, err
	}
	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("geocoding '%s': service answered %d", address, resp.StatusCode)
	}

	var result response
	if err := json.Unmarshal(body, &result); err != nil {
		return 0, 0, fmt.Errorf("geocoding '%s': %w", address, err)
	}
	if result.Error != "" {
		return 0, 0, AddressError{Address: address, Message: result.Error}
	}
	if result.Lat == nil || result.Lon == nil {
		return 0, 0, fmt.Errorf("geocoding '%s': response carries no location", address)
	}
	return *result.Lat, *result.Lon, nil
}
