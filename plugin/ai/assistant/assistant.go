// Package assistant turns transcripts and questions into model prompts and
// runs them through the resilient invoker.
package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/vidsage/plugin/ai"
	"github.com/hrygo/vidsage/plugin/ai/resilient"
	"github.com/hrygo/vidsage/plugin/ai/session"
)

// HistoryWindow is how many recent exchanges are replayed to the model.
const HistoryWindow = 5

// Invoker produces a completion for a message sequence.
// *resilient.Invoker satisfies it.
type Invoker interface {
	Invoke(ctx context.Context, messages []ai.Message) (string, error)
}

var _ Invoker = (*resilient.Invoker)(nil)

// Kind names an analysis over a whole transcript.
type Kind string

const (
	KindSummary      Kind = "summary"
	KindDeepDive     Kind = "deepdive"
	KindActionPoints Kind = "actions"
)

// ParseKind validates an analysis kind.
func ParseKind(s string) (Kind, bool) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindSummary, KindDeepDive, KindActionPoints:
		return k, true
	}
	return "", false
}

// Assistant runs the video use cases.
type Assistant struct {
	invoker Invoker
	logger  *slog.Logger
}

// Option customizes the assistant.
type Option func(*Assistant)

// WithLogger overrides the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Assistant) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New creates an assistant backed by invoker.
func New(invoker Invoker, opts ...Option) *Assistant {
	a := &Assistant{
		invoker: invoker,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Summary produces a structured overview of the transcript.
func (a *Assistant) Summary(ctx context.Context, transcript, language string) (string, error) {
	return a.Analyze(ctx, KindSummary, transcript, language)
}

// DeepDive produces an in-depth analysis of the transcript.
func (a *Assistant) DeepDive(ctx context.Context, transcript, language string) (string, error) {
	return a.Analyze(ctx, KindDeepDive, transcript, language)
}

// ActionPoints extracts actionable items from the transcript.
func (a *Assistant) ActionPoints(ctx context.Context, transcript, language string) (string, error) {
	return a.Analyze(ctx, KindActionPoints, transcript, language)
}

// Analyze runs the analysis named by kind.
func (a *Assistant) Analyze(ctx context.Context, kind Kind, transcript, language string) (string, error) {
	var system, template string
	switch kind {
	case KindSummary:
		system, template = summarySystemPrompt, summaryPrompt
	case KindDeepDive:
		system, template = deepDiveSystemPrompt, deepDivePrompt
	case KindActionPoints:
		system, template = actionPointsSystemPrompt, actionPointsPrompt
	default:
		return "", errors.Errorf("unknown analysis kind %q", kind)
	}

	messages := []ai.Message{
		ai.SystemPrompt(system),
		ai.UserMessage(fmt.Sprintf(template, transcript, languageInstruction(language))),
	}
	return a.run(ctx, "generate "+string(kind), messages)
}

// Answer replies to question using the transcript and the most recent history.
func (a *Assistant) Answer(ctx context.Context, transcript, question string, history []session.Exchange, language string) (string, error) {
	messages := []ai.Message{
		ai.SystemPrompt(qaSystemPrompt),
		ai.UserMessage(fmt.Sprintf(qaPrompt, transcript, formatHistory(history), question, languageInstruction(language))),
	}
	return a.run(ctx, "answer question", messages)
}

// DetectLanguage asks the model whether text requests a supported language.
// Keyword matches skip the model. Failures are treated as "no request".
func (a *Assistant) DetectLanguage(ctx context.Context, text string) (string, bool) {
	if code, ok := MatchKeyword(text); ok {
		return code, true
	}

	messages := []ai.Message{
		ai.SystemPrompt(detectSystemPrompt),
		ai.UserMessage(fmt.Sprintf(detectPrompt, text)),
	}
	result, err := a.invoker.Invoke(ctx, messages)
	if err != nil {
		a.logger.Debug("language detection failed", "error", err)
		return "", false
	}

	code := normalizeLanguage(strings.Trim(result, ".\"' \n"))
	if !IsSupported(code) {
		return "", false
	}
	return code, true
}

func (a *Assistant) run(ctx context.Context, op string, messages []ai.Message) (string, error) {
	text, err := a.invoker.Invoke(ctx, messages)
	if err == nil {
		return text, nil
	}
	if resilient.IsRateLimited(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "", err
	}
	a.logger.Error("assistant request failed", "operation", op, "error", err)
	return "", errors.Wrap(err, op)
}

func formatHistory(history []session.Exchange) string {
	if len(history) == 0 {
		return noHistory
	}
	if len(history) > HistoryWindow {
		history = history[len(history)-HistoryWindow:]
	}
	var sb strings.Builder
	for i, ex := range history {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString("Q: ")
		sb.WriteString(ex.Question)
		sb.WriteString("\nA: ")
		sb.WriteString(ex.Answer)
	}
	return sb.String()
}
