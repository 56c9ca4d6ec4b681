// Package v1 serves the JSON HTTP API.
package v1

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	apierrors "github.com/hrygo/vidsage/server/internal/errors"
	"github.com/hrygo/vidsage/server/internal/observability"
	"github.com/hrygo/vidsage/server/middleware"
	"github.com/hrygo/vidsage/server/service/video"
)

type APIV1Service struct {
	Video       *video.Service
	RateLimiter *middleware.RateLimiter
	Metrics     *observability.Metrics
	Logger      *slog.Logger
	Version     string
}

func NewAPIV1Service(videoService *video.Service, limiter *middleware.RateLimiter, version string) *APIV1Service {
	return &APIV1Service{
		Video:       videoService,
		RateLimiter: limiter,
		Metrics:     observability.NewMetrics(),
		Logger:      slog.Default(),
		Version:     version,
	}
}

// RegisterRoutes registers the API routes on the given Echo instance.
func (s *APIV1Service) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", s.Healthz)

	api := e.Group("/api/v1")
	api.GET("/stats", s.GetStats, s.observe("stats"))

	users := api.Group("/users/:userID")
	if s.RateLimiter != nil {
		users.Use(middleware.RateLimit(s.RateLimiter, middleware.ParamKey("userID")))
	}
	users.POST("/video", s.LoadVideo, s.observe("load_video"))
	users.POST("/questions", s.AskQuestion, s.observe("ask"))
	users.POST("/analysis/:kind", s.Analyze, s.observe("analyze"))
	users.PUT("/language", s.SetLanguage, s.observe("set_language"))
	users.POST("/language/detect", s.DetectLanguage, s.observe("detect_language"))
	users.GET("/session", s.GetSession, s.observe("get_session"))
	users.DELETE("/session", s.DeleteSession, s.observe("delete_session"))
}

// observe attaches a request-scoped logger and records per-operation metrics.
func (s *APIV1Service) observe(operation string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, _ := strconv.ParseInt(c.Param("userID"), 10, 64)
			reqCtx := observability.NewRequestContext(s.Logger, operation, userID)
			if id := c.Request().Header.Get(echo.HeaderXRequestID); id != "" {
				reqCtx.RequestID = id
			}
			c.Response().Header().Set(echo.HeaderXRequestID, reqCtx.RequestID)
			c.SetRequest(c.Request().WithContext(observability.WithRequestContext(c.Request().Context(), reqCtx)))

			err := next(c)

			status := c.Response().Status
			failed := err != nil || status >= http.StatusInternalServerError || status == http.StatusTooManyRequests
			s.Metrics.Record(operation, reqCtx.Duration(), failed)
			reqCtx.Debug("request handled",
				slog.Int("status", status),
				slog.Int64(observability.LogFieldDuration, reqCtx.Duration().Milliseconds()))
			return err
		}
	}
}

// ErrorResponse is the JSON body of a failed request.
type ErrorResponse struct {
	Code    apierrors.ErrorCode `json:"code"`
	Message string              `json:"message"`
	Details map[string]any      `json:"details,omitempty"`
}

func newErrorResponse(aiErr *apierrors.AIError) *ErrorResponse {
	return &ErrorResponse{
		Code:    aiErr.Code,
		Message: aiErr.Message,
		Details: aiErr.Context,
	}
}

// writeError maps err onto a status code and JSON body.
func writeError(c echo.Context, err error) error {
	aiErr := apierrors.FromCore(err)
	logger := observability.LoggerFrom(c.Request().Context())

	status := aiErr.HTTPStatus()
	switch {
	case status == http.StatusTooManyRequests:
		c.Response().Header().Set("Retry-After", strconv.Itoa(int(rateLimitRetryAfter.Seconds())))
		logger.Warn("request rate-limited", observability.LogFieldErrorCode, aiErr.Code)
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", observability.LogFieldErrorCode, aiErr.Code, "error", err)
	default:
		logger.Debug("request rejected", observability.LogFieldErrorCode, aiErr.Code, "error", err)
	}
	return c.JSON(status, newErrorResponse(aiErr))
}

// errorBody renders a non-fatal error embedded in a successful response.
func errorBody(err error) *ErrorResponse {
	if err == nil {
		return nil
	}
	return newErrorResponse(apierrors.FromCore(err))
}

const rateLimitRetryAfter = 30 * time.Second

func parseUserID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("userID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apierrors.InvalidArgument("user id must be a positive integer")
	}
	return id, nil
}

// Healthz reports liveness.
func (s *APIV1Service) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.Version,
	})
}
