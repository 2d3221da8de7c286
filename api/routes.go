// Package api wires the directory handlers into an HTTP router.
package api

import (
	"net/http"
	"path"

	"github.com/EO-DataHub/eodhp-directory-services/api/handlers"
	"github.com/EO-DataHub/eodhp-directory-services/api/middleware"
	"github.com/EO-DataHub/eodhp-directory-services/api/services"
	docs "github.com/EO-DataHub/eodhp-directory-services/docs"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

// NewRouter registers the user and group routes under the configured base
// path, plus /metrics, /healthz and the API docs.
func NewRouter(svc *services.Service) *mux.Router {
	var basePath, docsPath, host string
	if svc.Config != nil {
		basePath = svc.Config.BasePath
		docsPath = svc.Config.DocsPath
		host = svc.Config.Host
	}
	if docsPath == "" {
		docsPath = "/docs"
	}

	r := mux.NewRouter()
	r.NotFoundHandler = handlers.NotFound()
	r.MethodNotAllowedHandler = handlers.MethodNotAllowed()

	// Register the routes
	api := r
	if basePath != "" && basePath != "/" {
		api = r.PathPrefix(basePath).Subrouter()
	}

	// Apply the middleware to the API routes
	api.Use(middleware.WithLogger)
	if svc.Metrics != nil {
		api.Use(middleware.WithMetrics(svc.Metrics))
	}

	// User routes
	api.HandleFunc("/users/{userid}", handlers.GetUser(svc)).Methods(http.MethodGet)
	api.HandleFunc("/users/{userid}", handlers.CreateUser(svc)).Methods(http.MethodPost)
	api.HandleFunc("/users/{userid}", handlers.UpdateUser(svc)).Methods(http.MethodPut)
	api.HandleFunc("/users/{userid}", handlers.DeleteUser(svc)).Methods(http.MethodDelete)

	// Group routes
	api.HandleFunc("/groups/{groupid}", handlers.GetGroupUsers(svc)).Methods(http.MethodGet)
	api.HandleFunc("/groups/{groupid}", handlers.CreateGroup(svc)).Methods(http.MethodPost)
	api.HandleFunc("/groups/{groupid}", handlers.UpdateGroup(svc)).Methods(http.MethodPut)
	api.HandleFunc("/groups/{groupid}", handlers.DeleteGroup(svc)).Methods(http.MethodDelete)

	// Operational routes
	r.HandleFunc("/healthz", handlers.Healthz()).Methods(http.MethodGet)
	if svc.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(svc.Metrics.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	// Docs
	docs.SwaggerInfo.Host = host
	docs.SwaggerInfo.BasePath = basePath
	r.PathPrefix(docsPath).Handler(httpSwagger.Handler(
		httpSwagger.URL(path.Join(docsPath, "/doc.json")),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("none"),
		httpSwagger.DomID("swagger-ui"),
	)).Methods(http.MethodGet)

	return r
}
