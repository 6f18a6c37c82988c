package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/tryout-backend/internal/config"
	"github.com/stemsi/tryout-backend/internal/response"
	"github.com/stemsi/tryout-backend/internal/service"
)

const (
	refreshInterval   = 15 * time.Second
	keepAliveInterval = 30 * time.Second
	refreshTimeout    = 5 * time.Second // prevent slow queries from blocking the SSE loop
)

// MonitorService builds package progress snapshots. Implemented by service.MonitorService.
type MonitorService interface {
	Snapshot(ctx context.Context, packageID int64) (*service.PackageSnapshot, error)
}

// MonitorHandler streams live package progress to teachers and administrators.
type MonitorHandler struct {
	rdb     *redis.Client
	monitor MonitorService
	log     zerolog.Logger
}

// NewMonitorHandler creates a new MonitorHandler.
func NewMonitorHandler(rdb *redis.Client, monitor MonitorService, log zerolog.Logger) *MonitorHandler {
	return &MonitorHandler{
		rdb:     rdb,
		monitor: monitor,
		log:     log.With().Str("component", "monitor_handler").Logger(),
	}
}

// MonitorPackageSSE godoc
// GET /api/v1/admin/packages/:package_id/monitor
// Sends a snapshot, then forwards session events as they are published and
// re-sends the snapshot periodically while there is activity.
func (h *MonitorHandler) MonitorPackageSSE(c *gin.Context) {
	packageID, ok := paramID(c, "package_id")
	if !ok {
		return
	}

	reqCtx := c.Request.Context()

	snap, err := h.snapshot(reqCtx, packageID)
	if err != nil {
		failService(c, h.log, "monitor_snapshot", err)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.SSEvent("message", gin.H{"type": "snapshot", "data": snap})
	c.Writer.Flush()

	pubsub := h.rdb.Subscribe(reqCtx, config.CacheKey.PackageMonitorChannel(packageID))
	defer pubsub.Close()
	ch := pubsub.Channel()

	keepAliveTicker := time.NewTicker(keepAliveInterval)
	defer keepAliveTicker.Stop()
	refreshTicker := time.NewTicker(refreshInterval)
	defer refreshTicker.Stop()

	// Skip refresh queries while nothing happens.
	dirty := false

	pkgLog := h.log.With().Int64("package_id", packageID).Logger()
	pkgLog.Info().Msg("Monitor attached")

	pingPayload, _ := json.Marshal(map[string]string{"type": "ping"})

	for {
		select {
		case <-reqCtx.Done():
			pkgLog.Info().Msg("Monitor detached")
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}
			// Events are already JSON; forward them untouched.
			c.Writer.Write([]byte("data: "))
			c.Writer.Write([]byte(msg.Payload))
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()
			dirty = true

		case <-refreshTicker.C:
			if !dirty {
				continue
			}
			snap, err := h.snapshot(reqCtx, packageID)
			if err != nil {
				pkgLog.Warn().Err(err).Msg("Monitor refresh failed")
				continue
			}
			c.SSEvent("message", gin.H{"type": "refresh", "data": snap})
			c.Writer.Flush()
			dirty = false

		case <-keepAliveTicker.C:
			c.Writer.Write([]byte("data: "))
			c.Writer.Write(pingPayload)
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()
		}
	}
}

func (h *MonitorHandler) snapshot(parent context.Context, packageID int64) (*service.PackageSnapshot, error) {
	ctx, cancel := context.WithTimeout(parent, refreshTimeout)
	defer cancel()
	return h.monitor.Snapshot(ctx, packageID)
}

// Snapshot godoc
// GET /api/v1/admin/packages/:package_id/progress
// One-shot variant of the monitor stream.
func (h *MonitorHandler) Snapshot(c *gin.Context) {
	packageID, ok := paramID(c, "package_id")
	if !ok {
		return
	}

	snap, err := h.snapshot(c.Request.Context(), packageID)
	if err != nil {
		failService(c, h.log, "monitor_snapshot", err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"snapshot": snap})
}
