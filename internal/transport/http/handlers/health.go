package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kiwitweaks/commerce-api/internal/infra/redis"
)

// HealthHandler exposes liveness and dependency information.
type HealthHandler struct {
	startedAt time.Time
	pool      *pgxpool.Pool
	redis     *redis.Client
}

// NewHealthHandler builds a new health handler instance.
func NewHealthHandler(pool *pgxpool.Pool, redisClient *redis.Client) *HealthHandler {
	return &HealthHandler{
		startedAt: time.Now().UTC(),
		pool:      pool,
		redis:     redisClient,
	}
}

// Status reports process liveness.
func (h *HealthHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data: HealthData{
			Status:    "ok",
			StartedAt: h.startedAt,
		},
	})
}

// Readiness reports backend reachability. Postgres is required; redis is
// optional and only shows up in the check map.
func (h *HealthHandler) Readiness(c *gin.Context) {
	checks := map[string]string{}
	healthy := true

	if h.pool != nil {
		if err := h.pool.Ping(c.Request.Context()); err != nil {
			checks["postgres"] = "unreachable"
			healthy = false
		} else {
			checks["postgres"] = "ok"
		}
	}

	if h.redis != nil {
		if err := h.redis.HealthCheck(c.Request.Context()); err != nil {
			checks["redis"] = "unreachable"
		} else {
			checks["redis"] = "ok"
		}
	}

	status := "ok"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, APIResponse{
		Success: healthy,
		Data: HealthData{
			Status:    status,
			StartedAt: h.startedAt,
			Checks:    checks,
		},
	})
}
