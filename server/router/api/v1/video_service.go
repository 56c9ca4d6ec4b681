package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/vidsage/plugin/ai/session"
	apierrors "github.com/hrygo/vidsage/server/internal/errors"
	"github.com/hrygo/vidsage/store/cache"
)

type LoadVideoRequest struct {
	VideoID string `json:"video_id"`
}

type LoadVideoResponse struct {
	Session      session.Snapshot `json:"session"`
	Source       cache.Source     `json:"source"`
	Truncated    bool             `json:"truncated"`
	CharCount    int              `json:"char_count"`
	Language     string           `json:"language"`
	Summary      string           `json:"summary,omitempty"`
	SummaryError *ErrorResponse   `json:"summary_error,omitempty"`
}

type QuestionRequest struct {
	Question string `json:"question"`
}

type QuestionResponse struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type AnalysisResponse struct {
	Kind   string `json:"kind"`
	Result string `json:"result"`
}

type LanguageRequest struct {
	Language string `json:"language"`
}

type LanguageResponse struct {
	Language     string         `json:"language"`
	Summary      string         `json:"summary,omitempty"`
	SummaryError *ErrorResponse `json:"summary_error,omitempty"`
}

type DetectLanguageRequest struct {
	Text string `json:"text"`
}

type DetectLanguageResponse struct {
	Detected bool   `json:"detected"`
	Language string `json:"language,omitempty"`
}

// LoadVideo loads a video into the user's session and summarizes it.
// POST /api/v1/users/:userID/video
func (s *APIV1Service) LoadVideo(c echo.Context) error {
	userID, err := parseUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	var req LoadVideoRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, apierrors.InvalidArgument("invalid request body"))
	}

	res, err := s.Video.LoadVideo(c.Request().Context(), userID, req.VideoID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, &LoadVideoResponse{
		Session:      res.Session,
		Source:       res.Source,
		Truncated:    res.Truncated,
		CharCount:    res.CharCount,
		Language:     res.Language,
		Summary:      res.Summary,
		SummaryError: errorBody(res.SummaryErr),
	})
}

// AskQuestion answers a question about the loaded video.
// POST /api/v1/users/:userID/questions
func (s *APIV1Service) AskQuestion(c echo.Context) error {
	userID, err := parseUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	var req QuestionRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, apierrors.InvalidArgument("invalid request body"))
	}

	answer, err := s.Video.Ask(c.Request().Context(), userID, req.Question)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, &QuestionResponse{Question: req.Question, Answer: answer})
}

// Analyze runs a summary, deep dive or action-point extraction.
// POST /api/v1/users/:userID/analysis/:kind
func (s *APIV1Service) Analyze(c echo.Context) error {
	userID, err := parseUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	kind := c.Param("kind")

	result, err := s.Video.Analyze(c.Request().Context(), userID, kind)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, &AnalysisResponse{Kind: kind, Result: result})
}

// SetLanguage switches the response language.
// PUT /api/v1/users/:userID/language
func (s *APIV1Service) SetLanguage(c echo.Context) error {
	userID, err := parseUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	var req LanguageRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, apierrors.InvalidArgument("invalid request body"))
	}

	res, err := s.Video.SetLanguage(c.Request().Context(), userID, req.Language)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, &LanguageResponse{
		Language:     res.Language,
		Summary:      res.Summary,
		SummaryError: errorBody(res.SummaryErr),
	})
}

// DetectLanguage reports whether the text asks for a supported language.
// POST /api/v1/users/:userID/language/detect
func (s *APIV1Service) DetectLanguage(c echo.Context) error {
	if _, err := parseUserID(c); err != nil {
		return writeError(c, err)
	}
	var req DetectLanguageRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, apierrors.InvalidArgument("invalid request body"))
	}

	code, ok := s.Video.DetectLanguage(c.Request().Context(), req.Text)
	return c.JSON(http.StatusOK, &DetectLanguageResponse{Detected: ok, Language: code})
}

// GetSession returns the user's session.
// GET /api/v1/users/:userID/session
func (s *APIV1Service) GetSession(c echo.Context) error {
	userID, err := parseUserID(c)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, s.Video.Session(userID))
}

// DeleteSession clears the user's session, or forgets it with ?purge=true.
// DELETE /api/v1/users/:userID/session
func (s *APIV1Service) DeleteSession(c echo.Context) error {
	userID, err := parseUserID(c)
	if err != nil {
		return writeError(c, err)
	}

	purge := false
	if raw := c.QueryParam("purge"); raw != "" {
		purge, err = strconv.ParseBool(raw)
		if err != nil {
			return writeError(c, apierrors.InvalidArgument("purge must be a boolean"))
		}
	}

	if purge {
		s.Video.DeleteSession(userID)
	} else {
		s.Video.ClearSession(userID)
	}
	return c.NoContent(http.StatusNoContent)
}
