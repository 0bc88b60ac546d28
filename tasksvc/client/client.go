package client

import (
	"io"
	"time"

	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/sd"
	"github.com/go-kit/kit/sd/lb"
	"github.com/ichigozero/focusflow/tasksvc/pkg/taskendpoint"
	"github.com/ichigozero/focusflow/tasksvc/pkg/taskservice"
	"github.com/ichigozero/focusflow/tasksvc/pkg/tasktransport"
)

// New balances task calls round-robin over a fixed set of instances. Only
// transport failures are retried; business errors come back in the response.
func New(instances []string, logger log.Logger, retryMax int, retryTimeout time.Duration) (taskendpoint.Set, error) {
	var (
		endpoints = taskendpoint.Set{}
		instancer = sd.FixedInstancer(instances)
	)
	balance := func(makeEndpoint func(taskservice.Service) endpoint.Endpoint) endpoint.Endpoint {
		endpointer := sd.NewEndpointer(instancer, factoryFor(makeEndpoint), logger)
		balancer := lb.NewRoundRobin(endpointer)
		return lb.Retry(retryMax, retryTimeout, balancer)
	}

	endpoints.TasksEndpoint = balance(taskendpoint.MakeTasksEndpoint)
	endpoints.TaskEndpoint = balance(taskendpoint.MakeTaskEndpoint)
	endpoints.CreateTaskEndpoint = balance(taskendpoint.MakeCreateTaskEndpoint)
	endpoints.UpdateTaskEndpoint = balance(taskendpoint.MakeUpdateTaskEndpoint)
	endpoints.CompleteTaskEndpoint = balance(taskendpoint.MakeCompleteTaskEndpoint)
	endpoints.DeleteTaskEndpoint = balance(taskendpoint.MakeDeleteTaskEndpoint)

	return endpoints, nil
}

func factoryFor(makeEndpoint func(taskservice.Service) endpoint.Endpoint) sd.Factory {
	return func(instance string) (endpoint.Endpoint, io.Closer, error) {
		service, err := tasktransport.NewHTTPClient(instance)
		if err != nil {
			return nil, nil, err
		}
		return makeEndpoint(service), nil, nil
	}
}
