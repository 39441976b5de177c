// Package ops exposes the operational HTTP surface: Prometheus metrics and
// health probes. It runs beside the chat listener on its own address and is
// entirely optional; the chat protocol does not depend on it.
package ops

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// LivenessResponse represents the liveness probe response
type LivenessResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// ReadinessResponse represents the readiness probe response
type ReadinessResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	Timestamp string            `json:"timestamp"`
}

// Handler serves the health endpoints.
type Handler struct {
	ready func() bool
}

// NewHandler creates a health handler. ready reports whether the chat
// listener is accepting connections.
func NewHandler(ready func() bool) *Handler {
	return &Handler{ready: ready}
}

// Liveness handles GET /health/live.
// Returns 200 if the process is alive (no dependency checks)
func (h *Handler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, LivenessResponse{
		Status:    "alive",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Readiness handles GET /health/ready.
// Returns 200 only when the chat listener is bound and accepting.
func (h *Handler) Readiness(c *gin.Context) {
	checks := map[string]string{"listener": "healthy"}
	status := "ready"
	statusCode := http.StatusOK

	if h.ready != nil && !h.ready() {
		checks["listener"] = "unhealthy"
		status = "unavailable"
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, ReadinessResponse{
		Status:    status,
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// NewRouter builds the ops router: /metrics plus the health endpoints.
func NewRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health/live", h.Liveness)
	router.GET("/health/ready", h.Readiness)

	return router
}

// Serve runs the ops listener until ctx is cancelled, then shuts it down
// with a short grace period. Returns the ListenAndServe error if the
// listener fails to start.
func Serve(ctx context.Context, addr string, h *Handler) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: NewRouter(h),
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
