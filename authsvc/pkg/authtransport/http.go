package authtransport

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

	"github.com/go-kit/kit/circuitbreaker"
	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/transport"
	httptransport "github.com/go-kit/kit/transport/http"
	"github.com/gorilla/mux"
	"github.com/ichigozero/focusflow/authsvc"
	"github.com/ichigozero/focusflow/authsvc/pkg/authendpoint"
	"github.com/ichigozero/focusflow/authsvc/pkg/authservice"
	"github.com/sony/gobreaker"
)

// NewHTTPHandler mounts the register and login endpoints under /auth.
func NewHTTPHandler(endpoints authendpoint.Set, logger log.Logger) http.Handler {
	options := []httptransport.ServerOption{
		httptransport.ServerErrorEncoder(errorEncoder),
		httptransport.ServerErrorHandler(transport.NewLogErrorHandler(logger)),
	}

	registerHandler := httptransport.NewServer(
		endpoints.RegisterEndpoint,
		decodeHTTPRegisterRequest,
		encodeHTTPGenericResponse,
		options...,
	)

	loginHandler := httptransport.NewServer(
		endpoints.LoginEndpoint,
		decodeHTTPLoginRequest,
		encodeHTTPGenericResponse,
		options...,
	)

	r := mux.NewRouter()

	r.Methods("POST").Path("/auth/register").Handler(registerHandler)
	r.Methods("POST").Path("/auth/login").Handler(loginHandler)

	return r
}

// NewHTTPClient returns an authservice.Service backed by a remote instance.
func NewHTTPClient(instance string) (authservice.Service, error) {
	// Quickly sanitize the instance string.
	if !strings.HasPrefix(instance, "http") {
		instance = "http://" + instance
	}
	u, err := url.Parse(instance)
	if err != nil {
		return nil, err
	}

	var registerEndpoint endpoint.Endpoint
	{
		registerEndpoint = httptransport.NewClient(
			"POST",
			copyURL(u, "/auth/register"),
			encodeHTTPGenericRequest,
			decodeHTTPRegisterResponse,
		).Endpoint()
		registerEndpoint = circuitbreaker.Gobreaker(gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "Register",
			Timeout: 30 * time.Second,
		}))(registerEndpoint)
	}

	var loginEndpoint endpoint.Endpoint
	{
		loginEndpoint = httptransport.NewClient(
			"POST",
			copyURL(u, "/auth/login"),
			encodeHTTPGenericRequest,
			decodeHTTPLoginResponse,
		).Endpoint()
		loginEndpoint = circuitbreaker.Gobreaker(gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "Login",
			Timeout: 30 * time.Second,
		}))(loginEndpoint)
	}

	return authendpoint.Set{
		RegisterEndpoint: registerEndpoint,
		LoginEndpoint:    loginEndpoint,
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
	case errors.Is(err, authsvc.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, authsvc.ErrLoginFailed):
		return http.StatusUnauthorized
	case errors.Is(err, authsvc.ErrUserExists):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// code2err is the client-side inverse of err2code.
func code2err(code int, msg string) error {
	switch code {
	case http.StatusBadRequest:
		return remoteError{msg: msg, err: authsvc.ErrInvalidArgument}
	case http.StatusUnauthorized:
		return remoteError{msg: msg, err: authsvc.ErrLoginFailed}
	case http.StatusConflict:
		return remoteError{msg: msg, err: authsvc.ErrUserExists}
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

func decodeHTTPRegisterRequest(_ context.Context, r *http.Request) (interface{}, error) {
	var req authendpoint.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, fmt.Errorf("%w: %v", authsvc.ErrInvalidArgument, err)
	}
	return req, nil
}

func decodeHTTPRegisterResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if r.StatusCode >= http.StatusBadRequest && r.StatusCode < http.StatusInternalServerError {
		return authendpoint.RegisterResponse{Err: decodeHTTPError(r)}, nil
	}
	if r.StatusCode != http.StatusCreated {
		return nil, decodeHTTPError(r)
	}
	var resp authendpoint.RegisterResponse
	err := json.NewDecoder(r.Body).Decode(&resp)
	return resp, err
}

func decodeHTTPLoginRequest(_ context.Context, r *http.Request) (interface{}, error) {
	var req authendpoint.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, fmt.Errorf("%w: %v", authsvc.ErrInvalidArgument, err)
	}
	return req, nil
}

func decodeHTTPLoginResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if r.StatusCode >= http.StatusBadRequest && r.StatusCode < http.StatusInternalServerError {
		return authendpoint.LoginResponse{Err: decodeHTTPError(r)}, nil
	}
	if r.StatusCode != http.StatusOK {
		return nil, decodeHTTPError(r)
	}
	var resp authendpoint.LoginResponse
	err := json.NewDecoder(r.Body).Decode(&resp)
	return resp, err
}

// decodeHTTPError turns a non-2xx response into an error. Client errors are
// returned inside the endpoint response so they do not trip the breaker.
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
