package client

import (
	"io"
	"time"

	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/sd"
	"github.com/go-kit/kit/sd/lb"
	"github.com/ichigozero/focusflow/authsvc/pkg/authendpoint"
	"github.com/ichigozero/focusflow/authsvc/pkg/authservice"
	"github.com/ichigozero/focusflow/authsvc/pkg/authtransport"
)

// New balances auth calls round-robin over a fixed set of instances.
func New(instances []string, logger log.Logger, retryMax int, retryTimeout time.Duration) (authendpoint.Set, error) {
	var (
		endpoints = authendpoint.Set{}
		instancer = sd.FixedInstancer(instances)
	)
	{
		factory := factoryFor(authendpoint.MakeRegisterEndpoint)
		endpointer := sd.NewEndpointer(instancer, factory, logger)
		balancer := lb.NewRoundRobin(endpointer)
		retry := lb.Retry(retryMax, retryTimeout, balancer)
		endpoints.RegisterEndpoint = retry
	}
	{
		factory := factoryFor(authendpoint.MakeLoginEndpoint)
		endpointer := sd.NewEndpointer(instancer, factory, logger)
		balancer := lb.NewRoundRobin(endpointer)
		retry := lb.Retry(retryMax, retryTimeout, balancer)
		endpoints.LoginEndpoint = retry
	}

	return endpoints, nil
}

func factoryFor(makeEndpoint func(authservice.Service) endpoint.Endpoint) sd.Factory {
	return func(instance string) (endpoint.Endpoint, io.Closer, error) {
		service, err := authtransport.NewHTTPClient(instance)
		if err != nil {
			return nil, nil, err
		}
		return makeEndpoint(service), nil, nil
	}
}
