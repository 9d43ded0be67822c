/*
ropebwt REST API

HTTP front-end for the BWT rope index: create ropes, insert sequences,
run rank queries, read back the transform.

Version: 1.0.0
BasePath: /api/v1

SecurityDefinitions:
  - ApiKeyAuth:
    type: apiKey
    in: header
    name: X-API-Key

swagger:meta
*/
package api

import (
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

// NewRouter wires all routes, middleware and instrumentation for a server.
func NewRouter(s *Server) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Prometheus metrics endpoint (unprotected for scraping)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.metrics.InstrumentAuthMiddleware(apiKeyMiddleware(s.config.APIKey)))

		r.Get("/health", s.metrics.InstrumentHandler("GET", "/api/v1/health", s.handleHealth))

		r.Post("/ropes", s.metrics.InstrumentHandler("POST", "/api/v1/ropes", s.handleCreateRope))
		r.Get("/ropes", s.metrics.InstrumentHandler("GET", "/api/v1/ropes", s.handleListRopes))
		r.Get("/ropes/{id}", s.metrics.InstrumentHandler("GET", "/api/v1/ropes/{id}", s.handleGetRope))
		r.Delete("/ropes/{id}", s.metrics.InstrumentHandler("DELETE", "/api/v1/ropes/{id}", s.handleDeleteRope))

		r.Post("/ropes/{id}/sequences", s.metrics.InstrumentHandler("POST", "/api/v1/ropes/{id}/sequences", s.handleInsert))
		r.Get("/ropes/{id}/rank", s.metrics.InstrumentHandler("GET", "/api/v1/ropes/{id}/rank", s.handleRank))
		r.Get("/ropes/{id}/bwt", s.metrics.InstrumentHandler("GET", "/api/v1/ropes/{id}/bwt", s.handleBWT))
	})

	// Swagger documentation (unprotected)
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(fmt.Sprintf("http://localhost:%d/swagger/doc.json", s.config.Port)),
	))

	return r
}

// StartServer runs the HTTP server until it fails.
func StartServer(config ServerConfig) error {
	metrics := NewMetrics()
	server := NewServer(NewRegistry(), config, metrics)
	router := NewRouter(server)

	addr := fmt.Sprintf("%s:%d", config.Bind, config.Port)
	fmt.Printf("Starting ropebwt REST API server on %s\n", addr)
	fmt.Printf("Metrics available at: http://%s/metrics\n", addr)
	log.Fatal(http.ListenAndServe(addr, router))

	return nil
}
