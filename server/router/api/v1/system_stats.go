package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/vidsage/plugin/ai/cache"
	"github.com/hrygo/vidsage/server/internal/observability"
)

// StatsResponse represents the service-wide counters.
type StatsResponse struct {
	Cache          cache.Stats                    `json:"cache"`
	ActiveSessions int                            `json:"active_sessions"`
	SuccessRate    float64                        `json:"success_rate"`
	Requests       *observability.MetricsSnapshot `json:"requests"`
}

// GetStats returns cache, session and request statistics.
// GET /api/v1/stats
func (s *APIV1Service) GetStats(c echo.Context) error {
	stats := s.Video.Stats()
	requests := s.Metrics.Snapshot()
	return c.JSON(http.StatusOK, &StatsResponse{
		Cache:          stats.Cache,
		ActiveSessions: stats.ActiveSessions,
		SuccessRate:    requests.SuccessRate(),
		Requests:       requests,
	})
}
