package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/tryout-backend/internal/response"
	"golang.org/x/sync/errgroup"
)

const healthTimeout = 2 * time.Second

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// QueueDepth reports the backlog of a worker queue.
type QueueDepth func(ctx context.Context) (int64, error)

// SystemHandler reports process and dependency health.
type SystemHandler struct {
	checks    map[string]HealthCheck
	queues    map[string]QueueDepth
	startTime time.Time
	log       zerolog.Logger
}

// NewSystemHandler creates a new SystemHandler.
func NewSystemHandler(checks map[string]HealthCheck, queues map[string]QueueDepth, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		checks:    checks,
		queues:    queues,
		startTime: time.Now(),
		log:       log.With().Str("component", "system_handler").Logger(),
	}
}

type healthReport struct {
	Status       string            `json:"status"`
	Uptime       string            `json:"uptime"`
	Dependencies map[string]string `json:"dependencies"`
	Queues       map[string]int64  `json:"queues,omitempty"`
}

// Health godoc
// GET /health
// Runs every dependency probe in parallel; any failure turns the report degraded.
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	report := healthReport{
		Status:       "ok",
		Uptime:       time.Since(h.startTime).Truncate(time.Second).String(),
		Dependencies: make(map[string]string, len(h.checks)),
	}
	if len(h.queues) > 0 {
		report.Queues = make(map[string]int64, len(h.queues))
	}

	var mu sync.Mutex
	var g errgroup.Group
	for name, check := range h.checks {
		g.Go(func() error {
			err := check(ctx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Dependencies[name] = "down"
				report.Status = "degraded"
				h.log.Warn().Err(err).Str("dependency", name).Msg("Health check failed")
				return nil
			}
			report.Dependencies[name] = "up"
			return nil
		})
	}
	for name, depth := range h.queues {
		g.Go(func() error {
			n, err := depth(ctx)
			if err != nil {
				return nil
			}
			mu.Lock()
			report.Queues[name] = n
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	status := http.StatusOK
	if report.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	response.Success(c, status, report)
}
