package api

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

// HealthCheck probes one component. A nil error means healthy.
type HealthCheck func(ctx context.Context) error

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns server health status with component checks",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

// ComponentHealth describes the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status" doc:"Component status: healthy or unhealthy"`
	Latency string `json:"latency,omitempty" doc:"Response time for this component"`
	Message string `json:"message,omitempty" doc:"Additional status information"`
}

// HealthResponse contains health check data in API responses.
type HealthResponse struct {
	Status     string                     `json:"status" doc:"Overall status: healthy or unhealthy"`
	Components map[string]ComponentHealth `json:"components" doc:"Individual component statuses"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

func (s *Server) handleHealthCheck(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	resp := HealthResponse{
		Status:     "healthy",
		Components: make(map[string]ComponentHealth, len(s.opts.Health)),
	}

	names := make([]string, 0, len(s.opts.Health))
	for name := range s.opts.Health {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		start := time.Now()
		err := s.opts.Health[name](ctx)
		c := ComponentHealth{Status: "healthy", Latency: time.Since(start).String()}
		if err != nil {
			s.logger.Warn("health check failed", "component", name, "error", err)
			c.Status = "unhealthy"
			c.Message = name + " unreachable"
			resp.Status = "unhealthy"
		}
		resp.Components[name] = c
	}

	return &HealthOutput{Body: resp}, nil
}
