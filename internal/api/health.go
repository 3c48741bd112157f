// Copyright (c) 2026 Identra. All rights reserved.

package api

import (
	"log/slog"
	"net/http"

	"github.com/identra/identra/internal/platform/respond"
)

// HealthDependencies holds the injectable dependency checkers for the /ready endpoint.
type HealthDependencies struct {
	// CheckDatabase pings the PostgreSQL pool.
	CheckDatabase func() error

	// CheckCache pings the Redis client.
	CheckCache func() error
}

type healthHandler struct {
	dependencies HealthDependencies
	logger       *slog.Logger
}

// NewHealthHandlers creates the /health and /ready http.HandlerFuncs.
func NewHealthHandlers(deps HealthDependencies, logger *slog.Logger) (liveness, readiness http.HandlerFunc) {
	handler := &healthHandler{dependencies: deps, logger: logger}
	return handler.liveness, handler.readiness
}

// liveness handles GET /health. Process-alive only; no dependency calls.
func (handler *healthHandler) liveness(writer http.ResponseWriter, request *http.Request) {
	respond.OK(writer, map[string]string{"status": "ok"})
}

// readiness handles GET /ready. Each dependency is probed independently
// so the response names exactly which one is down.
func (handler *healthHandler) readiness(writer http.ResponseWriter, request *http.Request) {
	type checkResult struct {
		Name  string `json:"name"`
		IsOK  bool   `json:"ok"`
		Error string `json:"error,omitempty"`
	}

	check := func(name string, probe func() error) checkResult {
		result := checkResult{Name: name, IsOK: true}
		if err := probe(); err != nil {
			result.IsOK = false
			result.Error = err.Error()
			handler.logger.Error("readiness_check_failed",
				slog.String("dependency", name), slog.Any("error", err))
		}
		return result
	}

	results := make([]checkResult, 0, 2)
	ready := true

	if handler.dependencies.CheckDatabase != nil {
		result := check("postgres", handler.dependencies.CheckDatabase)
		ready = ready && result.IsOK
		results = append(results, result)
	}
	if handler.dependencies.CheckCache != nil {
		result := check("redis", handler.dependencies.CheckCache)
		ready = ready && result.IsOK
		results = append(results, result)
	}

	status := "ready"
	if !ready {
		status = "degraded"
		// respond.OK always writes 200, so the 503 header goes out first.
		writer.Header().Set("Content-Type", "application/json; charset=utf-8")
		writer.WriteHeader(http.StatusServiceUnavailable)
	}

	respond.OK(writer, map[string]any{
		"status": status,
		"checks": results,
	})
}
