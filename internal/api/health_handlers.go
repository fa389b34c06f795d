package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

// Component states, ordered from best to worst.
const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Reports whether the sync store answers and which categories can be enriched",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

// ComponentHealth describes one dependency of the server.
type ComponentHealth struct {
	Status  string `json:"status" enum:"healthy,degraded,unhealthy" doc:"Component status"`
	Latency string `json:"latency,omitempty" doc:"Time the check took"`
	Message string `json:"message,omitempty" doc:"Detail for operators"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status     string                     `json:"status" enum:"healthy,degraded,unhealthy" doc:"Worst status of any component"`
	Version    string                     `json:"version" doc:"Server version"`
	Components map[string]ComponentHealth `json:"components" doc:"Status per component"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

func (s *Server) handleHealthCheck(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	checks := map[string]func(context.Context) ComponentHealth{
		"database":   s.checkDatabase,
		"enrichment": s.checkEnrichment,
	}

	body := HealthResponse{
		Status:     statusHealthy,
		Version:    s.version,
		Components: make(map[string]ComponentHealth, len(checks)),
	}
	for name, check := range checks {
		h := check(ctx)
		body.Components[name] = h
		body.Status = worse(body.Status, h.Status)
	}
	return &HealthOutput{Body: body}, nil
}

// worse returns the more severe of two statuses.
func worse(a, b string) string {
	rank := map[string]int{statusHealthy: 0, statusDegraded: 1, statusUnhealthy: 2}
	if rank[b] > rank[a] {
		return b
	}
	return a
}

func (s *Server) checkDatabase(ctx context.Context) ComponentHealth {
	if s.store == nil {
		return ComponentHealth{Status: statusUnhealthy, Message: "database not configured"}
	}

	start := time.Now()
	err := s.store.Ping(ctx)
	h := ComponentHealth{Status: statusHealthy, Latency: time.Since(start).String()}
	if err != nil {
		h.Status = statusUnhealthy
		h.Message = "database unreachable"
	}
	return h
}

func (s *Server) checkEnrichment(context.Context) ComponentHealth {
	if s.services.Enrichment == nil {
		return ComponentHealth{Status: statusDegraded, Message: "enrichment disabled"}
	}
	n := len(s.services.Enrichment.Categories())
	if n == 0 {
		return ComponentHealth{Status: statusDegraded, Message: "no enrichment plugins configured"}
	}
	return ComponentHealth{
		Status:  statusHealthy,
		Message: pluralize(n, "category", "categories") + " enrichable",
	}
}
