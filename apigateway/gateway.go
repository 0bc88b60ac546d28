package apigateway

import (
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

// NewHandler routes /auth to the auth handler and /todos and /metrics to the
// task handler. Every route is also reachable under /api.
func NewHandler(auth, tasks http.Handler) http.Handler {
	routes := mux.NewRouter()
	routes.PathPrefix("/auth/").Handler(auth)
	routes.PathPrefix("/todos").Handler(tasks)
	routes.Path("/metrics").Handler(tasks)
	routes.Methods("GET").Path("/health").HandlerFunc(health)

	r := mux.NewRouter()
	r.PathPrefix("/api/").Handler(http.StripPrefix("/api", routes))
	r.PathPrefix("/").Handler(routes)

	return handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
	)(r)
}

func health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Write([]byte(`{"ok":true}` + "\n"))
}
