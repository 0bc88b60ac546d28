package tasktransport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"
	"time"

	kitjwt "github.com/go-kit/kit/auth/jwt"
	"github.com/go-kit/kit/circuitbreaker"
	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/transport"
	httptransport "github.com/go-kit/kit/transport/http"
	"github.com/gorilla/mux"
	"github.com/ichigozero/focusflow/authsvc/pkg/authservice"
	"github.com/ichigozero/focusflow/authsvc/pkg/authtransport"
	"github.com/ichigozero/focusflow/tasksvc"
	"github.com/ichigozero/focusflow/tasksvc/pkg/taskendpoint"
	"github.com/ichigozero/focusflow/tasksvc/pkg/taskservice"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker"
)

var errBadRouting = errors.New("inconsistent mapping between route and handler")

// NewHTTPHandler mounts the task endpoints under /todos. Every endpoint runs
// behind the identity middleware, so a bad or missing token only makes the
// caller anonymous.
func NewHTTPHandler(endpoints taskendpoint.Set, v authservice.Verifier, logger log.Logger) http.Handler {
	options := []httptransport.ServerOption{
		httptransport.ServerErrorEncoder(errorEncoder),
		httptransport.ServerErrorHandler(transport.NewLogErrorHandler(logger)),
		httptransport.ServerBefore(kitjwt.HTTPToContext()),
	}

	identify := authtransport.NewIdentifier(v, logger)

	tasksHandler := httptransport.NewServer(
		identify(endpoints.TasksEndpoint),
		decodeHTTPTasksRequest,
		encodeHTTPGenericResponse,
		options...,
	)

	taskHandler := httptransport.NewServer(
		identify(endpoints.TaskEndpoint),
		decodeHTTPTaskRequest,
		encodeHTTPGenericResponse,
		options...,
	)

	createTaskHandler := httptransport.NewServer(
		identify(endpoints.CreateTaskEndpoint),
		decodeHTTPCreateTaskRequest,
		encodeHTTPGenericResponse,
		options...,
	)

	updateTaskHandler := httptransport.NewServer(
		identify(endpoints.UpdateTaskEndpoint),
		decodeHTTPUpdateTaskRequest,
		encodeHTTPGenericResponse,
		options...,
	)

	completeTaskHandler := httptransport.NewServer(
		identify(endpoints.CompleteTaskEndpoint),
		decodeHTTPCompleteTaskRequest,
		encodeHTTPGenericResponse,
		options...,
	)

	deleteTaskHandler := httptransport.NewServer(
		identify(endpoints.DeleteTaskEndpoint),
		decodeHTTPDeleteTaskRequest,
		encodeHTTPGenericResponse,
		options...,
	)

	r := mux.NewRouter()

	r.Methods("GET").Path("/todos").Handler(tasksHandler)
	r.Methods("POST").Path("/todos").Handler(createTaskHandler)
	r.Methods("GET").Path("/todos/{id}").Handler(taskHandler)
	r.Methods("PUT").Path("/todos/{id}").Handler(updateTaskHandler)
	r.Methods("PATCH").Path("/todos/{id}").Handler(completeTaskHandler)
	r.Methods("DELETE").Path("/todos/{id}").Handler(deleteTaskHandler)
	r.Methods("GET").Path("/metrics").Handler(promhttp.Handler())

	return r
}

// NewHTTPClient returns a taskservice.Service backed by a remote instance.
// Put the caller's token in the context under kitjwt.JWTTokenContextKey to
// act as that user.
func NewHTTPClient(instance string) (taskservice.Service, error) {
	// Quickly sanitize the instance string.
	if !strings.HasPrefix(instance, "http") {
		instance = "http://" + instance
	}
	u, err := url.Parse(instance)
	if err != nil {
		return nil, err
	}

	options := []httptransport.ClientOption{
		httptransport.ClientBefore(kitjwt.ContextToHTTP()),
	}

	makeEndpoint := func(name, method, path string, enc httptransport.EncodeRequestFunc, dec httptransport.DecodeResponseFunc) endpoint.Endpoint {
		e := httptransport.NewClient(method, copyURL(u, path), enc, dec, options...).Endpoint()
		return circuitbreaker.Gobreaker(gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    name,
			Timeout: 30 * time.Second,
		}))(e)
	}

	return taskendpoint.Set{
		TasksEndpoint:        makeEndpoint("Tasks", "GET", "/todos", encodeHTTPTasksRequest, decodeHTTPTasksResponse),
		TaskEndpoint:         makeEndpoint("Task", "GET", "/todos", encodeHTTPTaskRequest, decodeHTTPTaskResponse),
		CreateTaskEndpoint:   makeEndpoint("CreateTask", "POST", "/todos", encodeHTTPCreateTaskRequest, decodeHTTPCreateTaskResponse),
		UpdateTaskEndpoint:   makeEndpoint("UpdateTask", "PUT", "/todos", encodeHTTPUpdateTaskRequest, decodeHTTPUpdateTaskResponse),
		CompleteTaskEndpoint: makeEndpoint("CompleteTask", "PATCH", "/todos", encodeHTTPCompleteTaskRequest, decodeHTTPCompleteTaskResponse),
		DeleteTaskEndpoint:   makeEndpoint("DeleteTask", "DELETE", "/todos", encodeHTTPDeleteTaskRequest, decodeHTTPDeleteTaskResponse),
	}, nil
}

func copyURL(base *url.URL, path string) *url.URL {
	next := *base
	next.Path = path
	return &next
}

func errorEncoder(_ context.Context, err error, w http.ResponseWriter) {
	code := err2code(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		msg = http.StatusText(code)
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(errorWrapper{Message: msg})
}

func err2code(err error) int {
	switch {
	case errors.Is(err, tasksvc.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, tasksvc.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, tasksvc.ErrTaskNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// code2err is the client-side inverse of err2code.
func code2err(code int, msg string) error {
	switch code {
	case http.StatusBadRequest:
		return remoteError{msg: msg, err: tasksvc.ErrInvalidArgument}
	case http.StatusUnauthorized:
		return remoteError{msg: msg, err: tasksvc.ErrUnauthorized}
	case http.StatusNotFound:
		return remoteError{msg: msg, err: tasksvc.ErrTaskNotFound}
	}
	return errors.New(msg)
}

type remoteError struct {
	msg string
	err error
}

func (e remoteError) Error() string { return e.msg }
func (e remoteError) Unwrap() error { return e.err }

type errorWrapper struct {
	Message string `json:"message"`
}

func taskID(r *http.Request) (string, error) {
	id, ok := mux.Vars(r)["id"]
	if !ok {
		return "", errBadRouting
	}
	return id, nil
}

// decodeBody decodes a JSON body, rejecting fields the target does not have.
func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, tasksvc.ErrInvalidArgument) {
			return err
		}
		return fmt.Errorf("%w: %v", tasksvc.ErrInvalidArgument, err)
	}
	return nil
}

func decodeHTTPTasksRequest(_ context.Context, _ *http.Request) (interface{}, error) {
	return taskendpoint.TasksRequest{}, nil
}

func decodeHTTPTaskRequest(_ context.Context, r *http.Request) (interface{}, error) {
	id, err := taskID(r)
	if err != nil {
		return nil, err
	}
	return taskendpoint.TaskRequest{TaskID: id}, nil
}

func decodeHTTPCreateTaskRequest(_ context.Context, r *http.Request) (interface{}, error) {
	var req taskendpoint.CreateTaskRequest
	if err := decodeBody(r, &req.Draft); err != nil {
		return nil, err
	}
	return req, nil
}

func decodeHTTPUpdateTaskRequest(_ context.Context, r *http.Request) (interface{}, error) {
	id, err := taskID(r)
	if err != nil {
		return nil, err
	}

	req := taskendpoint.UpdateTaskRequest{TaskID: id}
	if err := decodeBody(r, &req.Patch); err != nil {
		return nil, err
	}
	return req, nil
}

func decodeHTTPCompleteTaskRequest(_ context.Context, r *http.Request) (interface{}, error) {
	id, err := taskID(r)
	if err != nil {
		return nil, err
	}

	req := taskendpoint.CompleteTaskRequest{TaskID: id}
	if err := decodeBody(r, &req); err != nil {
		return nil, err
	}
	return req, nil
}

func decodeHTTPDeleteTaskRequest(_ context.Context, r *http.Request) (interface{}, error) {
	id, err := taskID(r)
	if err != nil {
		return nil, err
	}
	return taskendpoint.DeleteTaskRequest{TaskID: id}, nil
}

func encodeHTTPTasksRequest(_ context.Context, _ *http.Request, _ interface{}) error {
	return nil
}

func encodeHTTPTaskRequest(_ context.Context, r *http.Request, request interface{}) error {
	req := request.(taskendpoint.TaskRequest)
	setTaskPath(r, req.TaskID)
	return nil
}

func encodeHTTPCreateTaskRequest(ctx context.Context, r *http.Request, request interface{}) error {
	req := request.(taskendpoint.CreateTaskRequest)
	return encodeHTTPGenericRequest(ctx, r, req.Draft)
}

func encodeHTTPUpdateTaskRequest(ctx context.Context, r *http.Request, request interface{}) error {
	req := request.(taskendpoint.UpdateTaskRequest)
	setTaskPath(r, req.TaskID)
	return encodeHTTPGenericRequest(ctx, r, req.Patch)
}

func encodeHTTPCompleteTaskRequest(ctx context.Context, r *http.Request, request interface{}) error {
	req := request.(taskendpoint.CompleteTaskRequest)
	setTaskPath(r, req.TaskID)
	return encodeHTTPGenericRequest(ctx, r, req)
}

func encodeHTTPDeleteTaskRequest(_ context.Context, r *http.Request, request interface{}) error {
	req := request.(taskendpoint.DeleteTaskRequest)
	setTaskPath(r, req.TaskID)
	return nil
}

func setTaskPath(r *http.Request, taskID string) {
	r.URL.Path = "/todos/" + taskID
	r.URL.RawPath = "/todos/" + url.PathEscape(taskID)
}

func decodeHTTPTasksResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if err := clientError(r); err != nil {
		return taskendpoint.TasksResponse{Err: err}, nil
	}
	if r.StatusCode != http.StatusOK {
		return nil, decodeHTTPError(r)
	}
	var tasks []tasksvc.Task
	err := json.NewDecoder(r.Body).Decode(&tasks)
	return taskendpoint.TasksResponse{Tasks: tasks}, err
}

func decodeHTTPTaskResponse(_ context.Context, r *http.Response) (interface{}, error) {
	t, err := decodeTask(r, http.StatusOK)
	return taskendpoint.TaskResponse{Task: t, Err: err}, transportError(err)
}

func decodeHTTPCreateTaskResponse(_ context.Context, r *http.Response) (interface{}, error) {
	t, err := decodeTask(r, http.StatusCreated)
	return taskendpoint.CreateTaskResponse{Task: t, Err: err}, transportError(err)
}

func decodeHTTPUpdateTaskResponse(_ context.Context, r *http.Response) (interface{}, error) {
	t, err := decodeTask(r, http.StatusOK)
	return taskendpoint.UpdateTaskResponse{Task: t, Err: err}, transportError(err)
}

func decodeHTTPCompleteTaskResponse(_ context.Context, r *http.Response) (interface{}, error) {
	t, err := decodeTask(r, http.StatusOK)
	return taskendpoint.CompleteTaskResponse{Task: t, Err: err}, transportError(err)
}

// decodeHTTPDeleteTaskResponse only learns whether the delete succeeded; the
// server does not echo the removed task.
func decodeHTTPDeleteTaskResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if err := clientError(r); err != nil {
		return taskendpoint.DeleteTaskResponse{Err: err}, nil
	}
	if r.StatusCode != http.StatusOK {
		return nil, decodeHTTPError(r)
	}
	return taskendpoint.DeleteTaskResponse{}, nil
}

// decodeTask returns a remoteError for 4xx responses and any other error for
// failures that should count against the circuit breaker.
func decodeTask(r *http.Response, want int) (tasksvc.Task, error) {
	if err := clientError(r); err != nil {
		return tasksvc.Task{}, err
	}
	if r.StatusCode != want {
		return tasksvc.Task{}, decodeHTTPError(r)
	}
	var t tasksvc.Task
	err := json.NewDecoder(r.Body).Decode(&t)
	return t, err
}

// transportError keeps 4xx results inside the endpoint response so they do
// not trip the breaker.
func transportError(err error) error {
	var re remoteError
	if errors.As(err, &re) {
		return nil
	}
	return err
}

func clientError(r *http.Response) error {
	if r.StatusCode >= http.StatusBadRequest && r.StatusCode < http.StatusInternalServerError {
		return decodeHTTPError(r)
	}
	return nil
}

func decodeHTTPError(r *http.Response) error {
	var w errorWrapper
	if err := json.NewDecoder(r.Body).Decode(&w); err != nil || w.Message == "" {
		w.Message = r.Status
	}
	return code2err(r.StatusCode, w.Message)
}

// encodeHTTPGenericRequest is a transport/http.EncodeRequestFunc that
// JSON-encodes any request to the request body. Primarily useful in a client.
func encodeHTTPGenericRequest(_ context.Context, r *http.Request, request interface{}) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(request); err != nil {
		return err
	}
	r.Header.Set("Content-Type", "application/json; charset=utf-8")
	r.Body = ioutil.NopCloser(&buf)
	return nil
}

// encodeHTTPGenericResponse is a transport/http.EncodeResponseFunc that encodes
// the response as JSON to the response writer. Primarily useful in a server.
func encodeHTTPGenericResponse(ctx context.Context, w http.ResponseWriter, response interface{}) error {
	if f, ok := response.(endpoint.Failer); ok && f.Failed() != nil {
		errorEncoder(ctx, f.Failed(), w)
		return nil
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if sc, ok := response.(httptransport.StatusCoder); ok {
		w.WriteHeader(sc.StatusCode())
	}
	return json.NewEncoder(w).Encode(response)
}
