package taskendpoint

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/ichigozero/focusflow/authsvc"
	"github.com/ichigozero/focusflow/tasksvc"
	"github.com/ichigozero/focusflow/tasksvc/pkg/taskservice"
)

type Set struct {
	TasksEndpoint        endpoint.Endpoint
	TaskEndpoint         endpoint.Endpoint
	CreateTaskEndpoint   endpoint.Endpoint
	UpdateTaskEndpoint   endpoint.Endpoint
	CompleteTaskEndpoint endpoint.Endpoint
	DeleteTaskEndpoint   endpoint.Endpoint
}

func New(svc taskservice.Service, logger log.Logger) Set {
	var tasksEndpoint endpoint.Endpoint
	{
		tasksEndpoint = MakeTasksEndpoint(svc)
		tasksEndpoint = LoggingMiddleware(log.With(logger, "method", "Tasks"))(tasksEndpoint)
	}
	var taskEndpoint endpoint.Endpoint
	{
		taskEndpoint = MakeTaskEndpoint(svc)
		taskEndpoint = LoggingMiddleware(log.With(logger, "method", "Task"))(taskEndpoint)
	}
	var createTaskEndpoint endpoint.Endpoint
	{
		createTaskEndpoint = MakeCreateTaskEndpoint(svc)
		createTaskEndpoint = LoggingMiddleware(log.With(logger, "method", "CreateTask"))(createTaskEndpoint)
	}
	var updateTaskEndpoint endpoint.Endpoint
	{
		updateTaskEndpoint = MakeUpdateTaskEndpoint(svc)
		updateTaskEndpoint = LoggingMiddleware(log.With(logger, "method", "UpdateTask"))(updateTaskEndpoint)
	}
	var completeTaskEndpoint endpoint.Endpoint
	{
		completeTaskEndpoint = MakeCompleteTaskEndpoint(svc)
		completeTaskEndpoint = LoggingMiddleware(log.With(logger, "method", "CompleteTask"))(completeTaskEndpoint)
	}
	var deleteTaskEndpoint endpoint.Endpoint
	{
		deleteTaskEndpoint = MakeDeleteTaskEndpoint(svc)
		deleteTaskEndpoint = LoggingMiddleware(log.With(logger, "method", "DeleteTask"))(deleteTaskEndpoint)
	}

	return Set{
		TasksEndpoint:        tasksEndpoint,
		TaskEndpoint:         taskEndpoint,
		CreateTaskEndpoint:   createTaskEndpoint,
		UpdateTaskEndpoint:   updateTaskEndpoint,
		CompleteTaskEndpoint: completeTaskEndpoint,
		DeleteTaskEndpoint:   deleteTaskEndpoint,
	}
}

// The Set methods let a client Set stand in for taskservice.Service. The
// caller's identity travels in ctx as a bearer token, so the Auth argument
// is not sent.

func (s Set) Tasks(ctx context.Context, _ tasksvc.Auth) ([]tasksvc.Task, error) {
	resp, err := s.TasksEndpoint(ctx, TasksRequest{})
	if err != nil {
		return nil, err
	}
	response := resp.(TasksResponse)
	return response.Tasks, response.Err
}

func (s Set) Task(ctx context.Context, _ tasksvc.Auth, taskID string) (tasksvc.Task, error) {
	resp, err := s.TaskEndpoint(ctx, TaskRequest{TaskID: taskID})
	if err != nil {
		return tasksvc.Task{}, err
	}
	response := resp.(TaskResponse)
	return response.Task, response.Err
}

func (s Set) CreateTask(ctx context.Context, _ tasksvc.Auth, d tasksvc.Draft) (tasksvc.Task, error) {
	resp, err := s.CreateTaskEndpoint(ctx, CreateTaskRequest{Draft: d})
	if err != nil {
		return tasksvc.Task{}, err
	}
	response := resp.(CreateTaskResponse)
	return response.Task, response.Err
}

func (s Set) UpdateTask(ctx context.Context, _ tasksvc.Auth, taskID string, p tasksvc.Patch) (tasksvc.Task, error) {
	resp, err := s.UpdateTaskEndpoint(ctx, UpdateTaskRequest{TaskID: taskID, Patch: p})
	if err != nil {
		return tasksvc.Task{}, err
	}
	response := resp.(UpdateTaskResponse)
	return response.Task, response.Err
}

func (s Set) CompleteTask(ctx context.Context, _ tasksvc.Auth, taskID string, completed *bool) (tasksvc.Task, error) {
	resp, err := s.CompleteTaskEndpoint(ctx, CompleteTaskRequest{TaskID: taskID, Completed: completed})
	if err != nil {
		return tasksvc.Task{}, err
	}
	response := resp.(CompleteTaskResponse)
	return response.Task, response.Err
}

func (s Set) DeleteTask(ctx context.Context, _ tasksvc.Auth, taskID string) (tasksvc.Task, error) {
	resp, err := s.DeleteTaskEndpoint(ctx, DeleteTaskRequest{TaskID: taskID})
	if err != nil {
		return tasksvc.Task{}, err
	}
	response := resp.(DeleteTaskResponse)
	return response.Task, response.Err
}

func MakeTasksEndpoint(s taskservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		_ = request.(TasksRequest)
		t, err := s.Tasks(ctx, auth(ctx))
		return TasksResponse{Tasks: t, Err: err}, nil
	}
}

func MakeTaskEndpoint(s taskservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		req := request.(TaskRequest)
		t, err := s.Task(ctx, auth(ctx), req.TaskID)
		return TaskResponse{Task: t, Err: err}, nil
	}
}

func MakeCreateTaskEndpoint(s taskservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		req := request.(CreateTaskRequest)
		t, err := s.CreateTask(ctx, auth(ctx), req.Draft)
		return CreateTaskResponse{Task: t, Err: err}, nil
	}
}

func MakeUpdateTaskEndpoint(s taskservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		req := request.(UpdateTaskRequest)
		t, err := s.UpdateTask(ctx, auth(ctx), req.TaskID, req.Patch)
		return UpdateTaskResponse{Task: t, Err: err}, nil
	}
}

func MakeCompleteTaskEndpoint(s taskservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		req := request.(CompleteTaskRequest)
		t, err := s.CompleteTask(ctx, auth(ctx), req.TaskID, req.Completed)
		return CompleteTaskResponse{Task: t, Err: err}, nil
	}
}

func MakeDeleteTaskEndpoint(s taskservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		req := request.(DeleteTaskRequest)
		t, err := s.DeleteTask(ctx, auth(ctx), req.TaskID)
		return DeleteTaskResponse{Task: t, Err: err}, nil
	}
}

// auth reads the identity resolved by the transport. No identity means an
// anonymous caller.
func auth(ctx context.Context) tasksvc.Auth {
	return tasksvc.Auth{UserID: authsvc.UserIDFromContext(ctx)}
}

var (
	_ endpoint.Failer = TasksResponse{}
	_ endpoint.Failer = TaskResponse{}
	_ endpoint.Failer = CreateTaskResponse{}
	_ endpoint.Failer = UpdateTaskResponse{}
	_ endpoint.Failer = CompleteTaskResponse{}
	_ endpoint.Failer = DeleteTaskResponse{}
)

type TasksRequest struct{}

type TasksResponse struct {
	Tasks []tasksvc.Task
	Err   error
}

func (r TasksResponse) Failed() error { return r.Err }

// MarshalJSON writes the bare list; an empty list is [] rather than null.
func (r TasksResponse) MarshalJSON() ([]byte, error) {
	if r.Tasks == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(r.Tasks)
}

type TaskRequest struct {
	TaskID string
}

type TaskResponse struct {
	Task tasksvc.Task
	Err  error
}

func (r TaskResponse) Failed() error { return r.Err }

func (r TaskResponse) MarshalJSON() ([]byte, error) { return json.Marshal(r.Task) }

type CreateTaskRequest struct {
	Draft tasksvc.Draft
}

type CreateTaskResponse struct {
	Task tasksvc.Task
	Err  error
}

func (r CreateTaskResponse) Failed() error { return r.Err }

func (r CreateTaskResponse) MarshalJSON() ([]byte, error) { return json.Marshal(r.Task) }

// StatusCode implements go-kit's httptransport.StatusCoder.
func (r CreateTaskResponse) StatusCode() int { return http.StatusCreated }

type UpdateTaskRequest struct {
	TaskID string
	Patch  tasksvc.Patch
}

type UpdateTaskResponse struct {
	Task tasksvc.Task
	Err  error
}

func (r UpdateTaskResponse) Failed() error { return r.Err }

func (r UpdateTaskResponse) MarshalJSON() ([]byte, error) { return json.Marshal(r.Task) }

type CompleteTaskRequest struct {
	TaskID    string `json:"-"`
	Completed *bool  `json:"completed"`
}

type CompleteTaskResponse struct {
	Task tasksvc.Task
	Err  error
}

func (r CompleteTaskResponse) Failed() error { return r.Err }

func (r CompleteTaskResponse) MarshalJSON() ([]byte, error) { return json.Marshal(r.Task) }

type DeleteTaskRequest struct {
	TaskID string
}

const deletedMessage = "Todo deleted successfully"

// DeleteTaskResponse carries the removed task; over HTTP only a
// confirmation message is sent.
type DeleteTaskResponse struct {
	Task tasksvc.Task
	Err  error
}

func (r DeleteTaskResponse) Failed() error { return r.Err }

func (r DeleteTaskResponse) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Message string `json:"message"`
	}{deletedMessage})
}
