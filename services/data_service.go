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

package services

import (
	"context"

	"github.com/campusdata/insight/datasets"
	"github.com/campusdata/insight/query"
)

// this type encodes a JSON object for responding to root queries
type ServiceInfoResponse struct {
	Name          string `json:"name" example:"Campus Insight" doc:"The name of the service API"`
	Version       string `json:"version" example:"1.0.0" doc:"The version string (major.minor.patch)"`
	Uptime        int    `json:"uptime" example:"345600" doc:"The time the service has been up (seconds)"`
	Documentation string `json:"documentation" example:"/docs" doc:"The OpenAPI documentation endpoint"`
}

// a response to a dataset addition (PUT): all stored dataset ids
type DatasetIdsResponse struct {
	Result []string `json:"result" doc:"the ids of all stored datasets"`
}

// a response to a dataset removal (DELETE): the removed id
type RemovedDatasetResponse struct {
	Result string `json:"result" example:"sections" doc:"the id of the removed dataset"`
}

// a response to a dataset listing (GET)
type DatasetListResponse struct {
	Result []datasets.Info `json:"result" doc:"a summary of every stored dataset"`
}

// a response to a query (POST): the flat result records
type QueryResultResponse struct {
	Result []query.Row `json:"result" doc:"the records produced by the query"`
}

// a response to an echo request (GET)
type EchoResponse struct {
	Result string `json:"result" example:"hi...hi" doc:"the echoed message"`
}

// DataService defines the interface for the campus insight data service.
type DataService interface {
	// Starts the service on the selected port, returning an error that indicates
	// success or failure.
	Start(port int) error
	// Gracefully shuts down the service without interrupting active connections.
	Shutdown(ctx context.Context) error
	// Closes down the service, freeing all resources.
	Close()
}
