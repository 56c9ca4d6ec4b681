// Package video ties transcripts, user sessions and the assistant together
// for the HTTP API.
package video

import (
	"context"
	"log/slog"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/vidsage/plugin/ai/assistant"
	aicache "github.com/hrygo/vidsage/plugin/ai/cache"
	"github.com/hrygo/vidsage/plugin/ai/session"
	apierrors "github.com/hrygo/vidsage/server/internal/errors"
	"github.com/hrygo/vidsage/server/internal/observability"
	"github.com/hrygo/vidsage/store/cache"
)

// TranscriptStore resolves transcripts through the cache tiers.
type TranscriptStore interface {
	Get(ctx context.Context, videoID string) (*cache.TranscriptResult, cache.Source, error)
	Stats() aicache.Stats
}

// Assistant runs the model-backed use cases.
type Assistant interface {
	Analyze(ctx context.Context, kind assistant.Kind, transcript, language string) (string, error)
	Answer(ctx context.Context, transcript, question string, history []session.Exchange, language string) (string, error)
	DetectLanguage(ctx context.Context, text string) (string, bool)
}

var (
	_ TranscriptStore = (*cache.TieredCache)(nil)
	_ Assistant       = (*assistant.Assistant)(nil)
)

// LoadResult describes a freshly loaded video.
type LoadResult struct {
	Session    session.Snapshot
	Source     cache.Source
	Truncated  bool
	CharCount  int
	Language   string
	Summary    string
	SummaryErr error // set when the video loaded but the summary did not
}

// LanguageResult describes a language switch.
type LanguageResult struct {
	Language   string
	Summary    string
	SummaryErr error
}

// Stats is the service-wide snapshot.
type Stats struct {
	Cache          aicache.Stats `json:"cache"`
	ActiveSessions int           `json:"active_sessions"`
}

// Service implements the video conversation operations.
type Service struct {
	transcripts TranscriptStore
	sessions    session.SessionService
	assistant   Assistant
}

// NewService creates a video service.
func NewService(transcripts TranscriptStore, sessions session.SessionService, asst Assistant) *Service {
	return &Service{
		transcripts: transcripts,
		sessions:    sessions,
		assistant:   asst,
	}
}

// LoadVideo resolves the transcript for input (an ID or URL), attaches it to
// the user's session and produces a summary.
func (s *Service) LoadVideo(ctx context.Context, userID int64, input string) (*LoadResult, error) {
	videoID, ok := ExtractVideoID(input)
	if !ok {
		return nil, apierrors.InvalidArgument("invalid video id or URL")
	}

	logger := observability.LoggerFrom(ctx).With(observability.LogFieldVideoID, videoID)

	transcript, source, err := s.transcripts.Get(ctx, videoID)
	if err != nil {
		if errors.Is(err, ErrTranscriptUnavailable) {
			return nil, apierrors.NotFound("could not process this video", err).WithContext("video_id", videoID)
		}
		return nil, errors.Wrap(err, "load transcript")
	}

	sess := s.sessions.GetOrCreate(userID)
	sess.AttachVideo(videoID, transcript.Text, "")
	language := sess.Language()

	logger.Info("video loaded",
		"source", source,
		"char_count", transcript.CharCount,
		"truncated", transcript.Truncated)

	result := &LoadResult{
		Source:    source,
		Truncated: transcript.Truncated,
		CharCount: transcript.CharCount,
		Language:  language,
	}

	summary, err := s.assistant.Analyze(ctx, assistant.KindSummary, transcript.Text, language)
	if err != nil {
		logger.Warn("summary generation failed after load", "error", err)
		result.SummaryErr = err
	} else {
		result.Summary = summary
	}
	result.Session = sess.Snapshot()
	return result, nil
}

// Ask answers a question about the loaded video and records the exchange.
func (s *Service) Ask(ctx context.Context, userID int64, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", apierrors.InvalidArgument("question must not be empty")
	}

	sess := s.sessions.GetOrCreate(userID)
	snap := sess.Snapshot()
	if snap.Transcript == "" {
		return "", errNoVideo()
	}

	history := snap.History
	if len(history) > assistant.HistoryWindow {
		history = history[len(history)-assistant.HistoryWindow:]
	}
	answer, err := s.assistant.Answer(ctx, snap.Transcript, question, history, snap.Language)
	if err != nil {
		return "", err
	}

	sess.RecordExchange(question, answer)
	return answer, nil
}

// Analyze runs a whole-transcript analysis for the loaded video.
func (s *Service) Analyze(ctx context.Context, userID int64, kind string) (string, error) {
	k, ok := assistant.ParseKind(kind)
	if !ok {
		return "", apierrors.InvalidArgument("unknown analysis kind: " + kind)
	}

	snap := s.sessions.GetOrCreate(userID).Snapshot()
	if snap.Transcript == "" {
		return "", errNoVideo()
	}
	return s.assistant.Analyze(ctx, k, snap.Transcript, snap.Language)
}

// SetLanguage switches the response language and regenerates the summary
// when a video is loaded.
func (s *Service) SetLanguage(ctx context.Context, userID int64, language string) (*LanguageResult, error) {
	language = strings.ToLower(strings.TrimSpace(language))
	if !assistant.IsSupported(language) {
		return nil, apierrors.InvalidArgument("unsupported language: " + language).
			WithContext("supported", assistant.SupportedLanguages())
	}

	sess := s.sessions.GetOrCreate(userID)
	sess.SetLanguage(language)

	result := &LanguageResult{Language: language}
	snap := sess.Snapshot()
	if snap.Transcript == "" {
		return result, nil
	}

	summary, err := s.assistant.Analyze(ctx, assistant.KindSummary, snap.Transcript, language)
	if err != nil {
		observability.LoggerFrom(ctx).Warn("summary regeneration failed", "language", language, "error", err)
		result.SummaryErr = err
		return result, nil
	}
	result.Summary = summary
	return result, nil
}

// DetectLanguage reports which supported language text asks for, if any.
func (s *Service) DetectLanguage(ctx context.Context, text string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	return s.assistant.DetectLanguage(ctx, text)
}

// Session returns a snapshot of the user's session.
func (s *Service) Session(userID int64) session.Snapshot {
	return s.sessions.GetOrCreate(userID).Snapshot()
}

// ClearSession resets the user's session to empty.
func (s *Service) ClearSession(userID int64) {
	s.sessions.Clear(userID)
}

// DeleteSession forgets the user entirely.
func (s *Service) DeleteSession(userID int64) {
	s.sessions.Delete(userID)
	slog.Debug("session deleted", "user_id", userID)
}

// Stats reports cache and session counters.
func (s *Service) Stats() Stats {
	return Stats{
		Cache:          s.transcripts.Stats(),
		ActiveSessions: s.sessions.ActiveCount(),
	}
}

func errNoVideo() error {
	return apierrors.FailedPrecondition("no video loaded, send a video first")
}
