package authtransport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/ichigozero/focusflow/authsvc"
	"github.com/ichigozero/focusflow/authsvc/inmem"
	"github.com/ichigozero/focusflow/authsvc/pkg/authendpoint"
	"github.com/ichigozero/focusflow/authsvc/pkg/authservice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	logger := log.NewNopLogger()
	tk := authservice.NewTokenizer("secret", time.Hour)
	svc := authservice.New(inmem.NewUserRepository(), tk, logger)
	srv := httptest.NewServer(NewHTTPHandler(authendpoint.New(svc, logger), logger))
	t.Cleanup(srv.Close)

	return srv
}

func post(t *testing.T, url, body string) (*http.Response, map[string]interface{}) {
	t.Helper()

	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestHTTPRegisterAndLogin(t *testing.T) {
	srv := newTestServer(t)

	resp, body := post(t, srv.URL+"/auth/register", `{"username":"ann","email":"a@x.com","password":"secret1"}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, body["token"])
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "ann", user["username"])
	assert.Equal(t, "a@x.com", user["email"])
	assert.NotContains(t, user, "password")
	id := user["_id"]

	resp, body = post(t, srv.URL+"/auth/login", `{"email":"a@x.com","password":"secret1"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["token"])
	assert.Equal(t, id, body["user"].(map[string]interface{})["_id"])
}

func TestHTTPErrors(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := post(t, srv.URL+"/auth/register", `{"username":"ann","email":"a@x.com","password":"secret1"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	cases := []struct {
		name, path, body string
		code             int
		message          string
	}{
		{"duplicate", "/auth/register", `{"username":"ann","email":"b@x.com","password":"secret1"}`, http.StatusConflict, ""},
		{"short password", "/auth/register", `{"username":"bob","email":"b@x.com","password":"123"}`, http.StatusBadRequest, ""},
		{"bad email", "/auth/register", `{"username":"bob","email":"bob","password":"secret1"}`, http.StatusBadRequest, ""},
		{"bad json", "/auth/register", `{"username":`, http.StatusBadRequest, ""},
		{"wrong password", "/auth/login", `{"email":"a@x.com","password":"nope123"}`, http.StatusUnauthorized, "Login failed"},
		{"unknown user", "/auth/login", `{"email":"z@x.com","password":"secret1"}`, http.StatusUnauthorized, "Login failed"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := post(t, srv.URL+tc.path, tc.body)
			assert.Equal(t, tc.code, resp.StatusCode)
			assert.NotEmpty(t, body["message"])
			if tc.message != "" {
				assert.Equal(t, tc.message, body["message"])
			}
		})
	}
}

func TestHTTPClient(t *testing.T) {
	srv := newTestServer(t)

	client, err := NewHTTPClient(srv.URL)
	require.NoError(t, err)

	ctx := context.Background()
	token, u, err := client.Register(ctx, "ann", "a@x.com", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, "ann", u.Username)

	_, _, err = client.Register(ctx, "ann", "a@x.com", "secret1")
	assert.ErrorIs(t, err, authsvc.ErrUserExists)

	_, logged, err := client.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, logged.ID)

	_, _, err = client.Login(ctx, "a@x.com", "wrong!")
	assert.ErrorIs(t, err, authsvc.ErrLoginFailed)
	assert.EqualError(t, err, "Login failed")
}

func TestErr2Code(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, err2code(assert.AnError))
	assert.Equal(t, http.StatusBadRequest, err2code(authsvc.ErrInvalidArgument))
}
