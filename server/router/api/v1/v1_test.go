package v1

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/vidsage/plugin/ai"
	"github.com/hrygo/vidsage/plugin/ai/assistant"
	"github.com/hrygo/vidsage/plugin/ai/resilient"
	"github.com/hrygo/vidsage/plugin/ai/session"
	apierrors "github.com/hrygo/vidsage/server/internal/errors"
	"github.com/hrygo/vidsage/server/middleware"
	"github.com/hrygo/vidsage/server/service/video"
	"github.com/hrygo/vidsage/store/cache"
)

const testVideoID = "dQw4w9WgXcQ"

// fakeChat answers every request with a canned reply or error.
type fakeChat struct {
	mu    sync.Mutex
	reply string
	err   error
	calls int
}

func (f *fakeChat) Complete(_ context.Context, _ string, messages []ai.Message, _ float32, _ int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if f.reply != "" {
		return f.reply, nil
	}
	return "generated for: " + messages[0].Content, nil
}

func (f *fakeChat) set(reply string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reply, f.err = reply, err
}

type testServer struct {
	echo *echo.Echo
	chat *fakeChat
	api  *APIV1Service
}

func newTestServer(t *testing.T, limiter *middleware.RateLimiter) *testServer {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, testVideoID+".txt"), []byte("a talk about commitment"), 0o600))

	chat := &fakeChat{}
	inv, err := resilient.New(resilient.Config{
		Secondary: resilient.Tier{Name: "groq", Client: chat, Model: "test"},
	}, resilient.WithSleeper(func(time.Duration) {}))
	require.NoError(t, err)

	fetcher := video.NewFileFetcher(dir, 0)
	transcripts, err := cache.NewTieredCache(&cache.TieredCacheConfig{L1MaxItems: 10, L1TTL: time.Hour}, nil, fetcher.Fetch)
	require.NoError(t, err)
	t.Cleanup(func() { _ = transcripts.Close() })

	svc := video.NewService(transcripts, session.NewStore(time.Hour), assistant.New(inv))
	api := NewAPIV1Service(svc, limiter, "test")

	e := echo.New()
	api.RegisterRoutes(e)
	return &testServer{echo: e, chat: chat, api: api}
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	ts.echo.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"version":"test"`)
}

func TestLoadVideoAndConverse(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPost, "/api/v1/users/7/video", `{"video_id":"https://youtu.be/`+testVideoID+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	loaded := decode[LoadVideoResponse](t, rec)
	assert.Equal(t, testVideoID, loaded.Session.VideoID)
	assert.Equal(t, "loaded", loaded.Session.State)
	assert.Equal(t, cache.SourceFetch, loaded.Source)
	assert.Equal(t, "english", loaded.Language)
	assert.Contains(t, loaded.Summary, "video analyst")
	assert.Nil(t, loaded.SummaryError)
	assert.NotContains(t, rec.Body.String(), "a talk about commitment", "transcript is not echoed")

	rec = ts.do(t, http.MethodPost, "/api/v1/users/7/questions", `{"question":"what is it about?"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	answer := decode[QuestionResponse](t, rec)
	assert.Equal(t, "what is it about?", answer.Question)
	assert.NotEmpty(t, answer.Answer)

	rec = ts.do(t, http.MethodPost, "/api/v1/users/7/analysis/deepdive", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "deepdive", decode[AnalysisResponse](t, rec).Kind)

	rec = ts.do(t, http.MethodGet, "/api/v1/users/7/session", "")
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decode[session.Snapshot](t, rec)
	require.Len(t, snap.History, 1)
	assert.Equal(t, "what is it about?", snap.History[0].Question)

	rec = ts.do(t, http.MethodPost, "/api/v1/users/8/video", `{"video_id":"`+testVideoID+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, cache.SourceL1, decode[LoadVideoResponse](t, rec).Source)

	rec = ts.do(t, http.MethodGet, "/api/v1/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[StatsResponse](t, rec)
	assert.Equal(t, 2, stats.ActiveSessions)
	assert.Equal(t, 1, stats.Cache.Size)
	assert.EqualValues(t, 1, stats.Cache.Hits)
	assert.Equal(t, "50.0%", stats.Cache.HitRate)
	assert.NotEmpty(t, stats.Requests.Operations)
}

func TestErrorMapping(t *testing.T) {
	ts := newTestServer(t, nil)

	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		wantCode int
		wantErr  apierrors.ErrorCode
	}{
		{"BadUserID", http.MethodPost, "/api/v1/users/abc/questions", `{"question":"q"}`, http.StatusBadRequest, apierrors.ErrCodeInvalidArgument},
		{"NegativeUserID", http.MethodGet, "/api/v1/users/-1/session", "", http.StatusBadRequest, apierrors.ErrCodeInvalidArgument},
		{"BadVideo", http.MethodPost, "/api/v1/users/1/video", `{"video_id":"nope"}`, http.StatusBadRequest, apierrors.ErrCodeInvalidArgument},
		{"UnknownVideo", http.MethodPost, "/api/v1/users/1/video", `{"video_id":"aaaaaaaaaaa"}`, http.StatusNotFound, apierrors.ErrCodeNotFound},
		{"MalformedBody", http.MethodPost, "/api/v1/users/1/video", `{"video_id":`, http.StatusBadRequest, apierrors.ErrCodeInvalidArgument},
		{"QuestionWithoutVideo", http.MethodPost, "/api/v1/users/1/questions", `{"question":"q"}`, http.StatusConflict, apierrors.ErrCodeFailedPrecondition},
		{"AnalysisWithoutVideo", http.MethodPost, "/api/v1/users/1/analysis/summary", "", http.StatusConflict, apierrors.ErrCodeFailedPrecondition},
		{"UnknownKind", http.MethodPost, "/api/v1/users/1/analysis/poem", "", http.StatusBadRequest, apierrors.ErrCodeInvalidArgument},
		{"UnsupportedLanguage", http.MethodPut, "/api/v1/users/1/language", `{"language":"klingon"}`, http.StatusBadRequest, apierrors.ErrCodeInvalidArgument},
		{"BadPurge", http.MethodDelete, "/api/v1/users/1/session?purge=maybe", "", http.StatusBadRequest, apierrors.ErrCodeInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantErr, decode[ErrorResponse](t, rec).Code)
		})
	}
}

func TestProviderFailures(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodPost, "/api/v1/users/1/video", `{"video_id":"`+testVideoID+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	t.Run("RateLimited", func(t *testing.T) {
		ts.chat.set("Sorry, rate limit exceeded", nil)
		rec := ts.do(t, http.MethodPost, "/api/v1/users/1/questions", `{"question":"q"}`)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "30", rec.Header().Get("Retry-After"))
		body := decode[ErrorResponse](t, rec)
		assert.Equal(t, apierrors.ErrCodeRateLimitExceeded, body.Code)
		assert.Equal(t, resilient.ErrRateLimited.Error(), body.Message)
	})

	t.Run("ProviderDown", func(t *testing.T) {
		ts.chat.set("", errors.New("401 invalid api key"))
		rec := ts.do(t, http.MethodPost, "/api/v1/users/1/analysis/actions", "")
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Equal(t, apierrors.ErrCodeLLMUnavailable, decode[ErrorResponse](t, rec).Code)
	})

	t.Run("SummaryFailureStillLoads", func(t *testing.T) {
		ts.chat.set("", errors.New("401 invalid api key"))
		rec := ts.do(t, http.MethodPost, "/api/v1/users/2/video", `{"video_id":"`+testVideoID+`"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		loaded := decode[LoadVideoResponse](t, rec)
		assert.Empty(t, loaded.Summary)
		require.NotNil(t, loaded.SummaryError)
		assert.Equal(t, apierrors.ErrCodeLLMUnavailable, loaded.SummaryError.Code)
		assert.Equal(t, testVideoID, loaded.Session.VideoID)
	})

	snap := ts.api.Metrics.Snapshot()
	assert.EqualValues(t, 2, snap.RequestFailed)
}

func TestLanguageEndpoints(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodPut, "/api/v1/users/3/language", `{"language":"Kannada"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[LanguageResponse](t, rec)
	assert.Equal(t, "kannada", res.Language)
	assert.Empty(t, res.Summary)

	rec = ts.do(t, http.MethodPost, "/api/v1/users/3/video", `{"video_id":"`+testVideoID+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "kannada", decode[LoadVideoResponse](t, rec).Language)

	rec = ts.do(t, http.MethodPut, "/api/v1/users/3/language", `{"language":"tamil"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[LanguageResponse](t, rec).Summary)

	rec = ts.do(t, http.MethodPost, "/api/v1/users/3/language/detect", `{"text":"please reply in hindi"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	detected := decode[DetectLanguageResponse](t, rec)
	assert.True(t, detected.Detected)
	assert.Equal(t, "hindi", detected.Language)

	ts.chat.set("none", nil)
	rec = ts.do(t, http.MethodPost, "/api/v1/users/3/language/detect", `{"text":"what happens at the end"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[DetectLanguageResponse](t, rec).Detected)
}

func TestDeleteSession(t *testing.T) {
	ts := newTestServer(t, nil)
	rec := ts.do(t, http.MethodPost, "/api/v1/users/4/video", `{"video_id":"`+testVideoID+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	sessionID := decode[LoadVideoResponse](t, rec).Session.SessionID

	rec = ts.do(t, http.MethodDelete, "/api/v1/users/4/session", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/users/4/session", "")
	snap := decode[session.Snapshot](t, rec)
	assert.Equal(t, "empty", snap.State)
	assert.Equal(t, sessionID, snap.SessionID)

	rec = ts.do(t, http.MethodDelete, "/api/v1/users/4/session?purge=true", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/users/4/session", "")
	assert.NotEqual(t, sessionID, decode[session.Snapshot](t, rec).SessionID)
}

func TestPerUserRateLimit(t *testing.T) {
	ts := newTestServer(t, middleware.NewRateLimiter(0.001, 1))

	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/v1/users/5/session", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, ts.do(t, http.MethodGet, "/api/v1/users/5/session", "").Code)
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/v1/users/6/session", "").Code)
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/v1/stats", "").Code)
}
