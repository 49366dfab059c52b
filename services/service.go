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

// This package exposes the campus insight data service over HTTP: dataset
// addition, removal, listing, and queries, plus a root info endpoint and an
// echo endpoint.
package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humamux"
	"github.com/dustin/go-humanize"
	"github.com/gorilla/mux"
	"golang.org/x/net/netutil"

	"github.com/campusdata/insight/catalog"
	"github.com/campusdata/insight/config"
	"github.com/campusdata/insight/datasets"
	"github.com/campusdata/insight/journal"
	"github.com/campusdata/insight/query"
)

// Version numbers
var majorVersion = 1
var minorVersion = 0
var patchVersion = 0

// Version string
var version = fmt.Sprintf("%d.%d.%d", majorVersion, minorVersion, patchVersion)

// This type implements the DataService interface, serving campus course and
// room datasets and queries over them.
type insightService struct {
	// name of the service
	Name string
	// service version identifier
	Version string
	// time which the service was started
	StartTime time.Time
	// port on which the service currently runs
	Port int
	// router for REST endpoints
	Router *mux.Router
	// API wrapper
	API huma.API
	// HTTP server.
	Server *http.Server
	// the dataset facade behind the endpoints
	Catalog *catalog.Catalog
}

// maps a facade error to the proper HTTP status: client trouble (bad ids,
// bad archives, bad queries, oversized results) is 400, a missing dataset is
// 404, and anything else is an internal failure with no detail exposed
func apiError(err error) error {
	var (
		idErr      datasets.InvalidIdError
		kindErr    datasets.InvalidKindError
		contentErr datasets.InvalidContentError
		notFound   datasets.NotFoundError
		badQuery   query.InvalidQueryError
		tooLarge   query.ResultTooLargeError
	)
	switch {
	case errors.As(err, &idErr), errors.As(err, &kindErr),
		errors.As(err, &contentErr), errors.As(err, &badQuery),
		errors.As(err, &tooLarge):
		return huma.Error400BadRequest(err.Error())
	case errors.As(err, &notFound):
		return huma.Error404NotFound(err.Error())
	default:
		slog.Error(err.Error())
		return huma.Error500InternalServerError("an internal failure occurred")
	}
}

type ServiceInfoOutput struct {
	Body ServiceInfoResponse `doc:"information about the service itself"`
}

// handler method for root
func (service *insightService) getRoot(ctx context.Context,
	input *struct{}) (*ServiceInfoOutput, error) {

	slog.Info("Querying root endpoint...")
	return &ServiceInfoOutput{
		Body: ServiceInfoResponse{
			Name:          service.Name,
			Version:       service.Version,
			Uptime:        int(service.uptime()),
			Documentation: "/docs",
		},
	}, nil
}

type EchoOutput struct {
	Body EchoResponse `doc:"the echoed message"`
}

// handler method for echo requests
func (service *insightService) getEcho(ctx context.Context,
	input *struct {
		Msg string `path:"msg" example:"hi" doc:"a message to echo"`
	}) (*EchoOutput, error) {

	return &EchoOutput{
		Body: EchoResponse{
			Result: input.Msg + "..." + input.Msg,
		},
	}, nil
}

type DatasetIdsOutput struct {
	Body DatasetIdsResponse `doc:"the ids of all stored datasets"`
}

// handler method for adding a dataset from an uploaded archive
func (service *insightService) putDataset(ctx context.Context,
	input *struct {
		Id      string `path:"id" example:"sections" doc:"the id under which to store the dataset"`
		Kind    string `path:"kind" example:"sections" doc:"the dataset kind ('sections' or 'rooms')"`
		RawBody []byte `contentType:"application/octet-stream" doc:"the zip archive holding the dataset"`
	}) (*DatasetIdsOutput, error) {

	slog.Info(fmt.Sprintf("Adding dataset '%s' from a %s archive...", input.Id,
		humanize.Bytes(uint64(len(input.RawBody)))))

	kind, err := datasets.ParseKind(input.Kind)
	if err != nil {
		return nil, apiError(err)
	}
	if int64(len(input.RawBody)) > config.Archives.MaxSize {
		return nil, apiError(datasets.InvalidContentError{Id: input.Id,
			Message: fmt.Sprintf("archive exceeds the %s size limit",
				humanize.Bytes(uint64(config.Archives.MaxSize)))})
	}

	// the ingesters consume archives in base64 form
	payload := base64.StdEncoding.EncodeToString(input.RawBody)
	ids, err := service.Catalog.AddDataset(ctx, input.Id, payload, kind)
	if err != nil {
		return nil, apiError(err)
	}
	return &DatasetIdsOutput{
		Body: DatasetIdsResponse{Result: ids},
	}, nil
}

type RemovedDatasetOutput struct {
	Body RemovedDatasetResponse `doc:"the id of the removed dataset"`
}

// handler method for removing a dataset
func (service *insightService) deleteDataset(ctx context.Context,
	input *struct {
		Id string `path:"id" example:"sections" doc:"the id of the dataset to remove"`
	}) (*RemovedDatasetOutput, error) {

	slog.Info(fmt.Sprintf("Removing dataset '%s'...", input.Id))
	id, err := service.Catalog.RemoveDataset(ctx, input.Id)
	if err != nil {
		return nil, apiError(err)
	}
	return &RemovedDatasetOutput{
		Body: RemovedDatasetResponse{Result: id},
	}, nil
}

type DatasetListOutput struct {
	Body DatasetListResponse `doc:"a summary of every stored dataset"`
}

// handler method for listing all stored datasets
func (service *insightService) getDatasets(ctx context.Context,
	input *struct{}) (*DatasetListOutput, error) {

	slog.Info("Listing stored datasets...")
	infos, err := service.Catalog.ListDatasets(ctx)
	if err != nil {
		return nil, apiError(err)
	}
	return &DatasetListOutput{
		Body: DatasetListResponse{Result: infos},
	}, nil
}

type QueryResultOutput struct {
	Body QueryResultResponse `doc:"the records produced by the query"`
}

// handler method for performing a query against a stored dataset
// NOTE: the query arrives as the raw body of the POST; it is validated by
// NOTE: the query engine, not by the request schema
func (service *insightService) postQuery(ctx context.Context,
	input *struct {
		RawBody []byte `contentType:"application/json" doc:"the query to perform, as a JSON object"`
	}) (*QueryResultOutput, error) {

	slog.Info("Performing a query...")
	result, err := service.Catalog.PerformQuery(ctx, input.RawBody)
	if err != nil {
		return nil, apiError(err)
	}
	slog.Info(fmt.Sprintf("Query produced %s rows",
		humanize.Comma(int64(len(result)))))
	return &QueryResultOutput{
		Body: QueryResultResponse{Result: result},
	}, nil
}

// returns the uptime for the service in seconds
func (service *insightService) uptime() float64 {
	return time.Since(service.StartTime).Seconds()
}

// constructs a campus insight service given our configuration
func NewInsightService() (DataService, error) {

	// validate our configuration
	if config.Store.Directory == "" {
		return nil, fmt.Errorf("No dataset store directory was specified.")
	}

	service := new(insightService)
	service.Name = "Campus Insight"
	service.Version = version
	service.Port = -1
	service.Catalog = catalog.New()

	// set up routing
	service.Router = mux.NewRouter()
	api := humamux.New(service.Router, huma.DefaultConfig(service.Name, service.Version))
	huma.Get(api, "/", service.getRoot)
	huma.Get(api, "/echo/{msg}", service.getEcho)

	huma.Put(api, "/dataset/{id}/{kind}", service.putDataset)
	huma.Delete(api, "/dataset/{id}", service.deleteDataset)
	huma.Get(api, "/datasets", service.getDatasets)
	huma.Post(api, "/query", service.postQuery)

	AddDocEndpoints(service.Router)

	return service, nil
}

// starts the campus insight data service
func (service *insightService) Start(port int) error {
	slog.Info(fmt.Sprintf("Starting %s service on port %d...", service.Name, port))
	slog.Info(fmt.Sprintf("(Accepting up to %d connections)", config.Service.MaxConnections))

	service.StartTime = time.Now()

	// create a listener that limits the number of incoming connections
	service.Port = port
	listener, err := net.Listen("tcp", ":"+strconv.Itoa(port))
	if err != nil {
		return err
	}
	defer listener.Close()
	listener = netutil.LimitListener(listener, config.Service.MaxConnections)

	// start the activity journal
	err = journal.Init()
	if err != nil {
		return err
	}

	// start the server
	service.Server = &http.Server{
		Handler: service.Router}
	err = service.Server.Serve(listener)

	// we don't report the server closing as an error
	if err != http.ErrServerClosed {
		return err
	}
	return nil
}

// gracefully shuts down the service without interrupting active connections
func (service *insightService) Shutdown(ctx context.Context) error {
	journal.Finalize()
	if service.Server != nil {
		return service.Server.Shutdown(ctx)
	}
	return nil
}

// closes down the service abruptly, freeing all resources
func (service *insightService) Close() {
	journal.Finalize()
	if service.Server != nil {
		service.Server.Close()
	}
}
