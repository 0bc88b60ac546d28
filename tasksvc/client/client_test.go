package client

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	kitjwt "github.com/go-kit/kit/auth/jwt"
	"github.com/go-kit/kit/log"
	"github.com/ichigozero/focusflow/authsvc/pkg/authservice"
	"github.com/ichigozero/focusflow/tasksvc"
	"github.com/ichigozero/focusflow/tasksvc/inmem"
	"github.com/ichigozero/focusflow/tasksvc/pkg/taskendpoint"
	"github.com/ichigozero/focusflow/tasksvc/pkg/taskservice"
	"github.com/ichigozero/focusflow/tasksvc/pkg/tasktransport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientBalancesAndRetries(t *testing.T) {
	logger := log.NewNopLogger()
	tk := authservice.NewTokenizer("secret", time.Hour)
	svc := taskservice.New(inmem.NewTaskRepository(), logger)
	handler := tasktransport.NewHTTPHandler(taskendpoint.New(svc, logger), tk, logger)

	live := httptest.NewServer(handler)
	defer live.Close()
	dead := httptest.NewServer(handler)
	dead.Close()

	set, err := New([]string{dead.URL, live.URL}, logger, 3, 5*time.Second)
	require.NoError(t, err)

	token, err := tk.Issue("ann")
	require.NoError(t, err)
	ctx := context.WithValue(context.Background(), kitjwt.JWTTokenContextKey, token)

	for i := 0; i < 3; i++ {
		_, err := set.CreateTask(ctx, tasksvc.Auth{}, tasksvc.Draft{Title: "T", Category: tasksvc.CategoryWork})
		require.NoError(t, err)
	}

	tasks, err := set.Tasks(ctx, tasksvc.Auth{})
	require.NoError(t, err)
	assert.Len(t, tasks, 3)

	_, err = set.Task(ctx, tasksvc.Auth{}, "missing")
	assert.ErrorIs(t, err, tasksvc.ErrTaskNotFound)
}
