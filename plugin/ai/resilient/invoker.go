// Package resilient obtains a text completion from a primary provider with a
// mandatory secondary provider behind it.
//
// # Retry Behaviour
//
// Each provider gets up to MaxAttempts calls. Between attempts the invoker waits
// Delays[attempt-1] (the last delay repeats when the schedule is shorter).
//
// A hard failure (the call returns an error) is retried only when its text
// contains one of the transient signals. Otherwise the provider is abandoned.
//
// A soft failure (the call succeeds but the text contains a rate-limit signal)
// makes the primary fail over immediately, while the secondary retries it like
// a transient failure and finally returns ErrRateLimited.
//
// # Entry Points
//
// New: construct from explicit tiers (tests, custom clients).
// NewFromConfig: construct OpenAI-compatible tiers from ai.LLMConfig.
// Invoker.Invoke: run the procedure for one message sequence.
package resilient

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/hrygo/vidsage/plugin/ai"
)

const (
	defaultMaxAttempts = 3
	defaultTemperature = 0.3
	defaultMaxTokens   = 2048
)

// DefaultDelays is the default backoff schedule.
var DefaultDelays = []time.Duration{3 * time.Second, 6 * time.Second}

// DefaultTransientSignals mark a provider error as retryable.
var DefaultTransientSignals = []string{"429", "503", "rate", "timeout", "connection"}

// DefaultRateLimitSignals mark a successful response as a rate-limit notice.
var DefaultRateLimitSignals = []string{"rate limit", "api rate limit", "too many requests", "429"}

// Tier is one provider with the model to call on it.
type Tier struct {
	Name   string
	Client ai.ChatClient
	Model  string
}

// Config captures the invocation policy.
type Config struct {
	Primary   *Tier // optional
	Secondary Tier

	MaxAttempts      int
	Delays           []time.Duration
	TransientSignals []string
	RateLimitSignals []string
	Temperature      float32
	MaxTokens        int
}

// Invoker runs the retry/fallback procedure. It keeps no state between calls
// and is safe for concurrent use.
type Invoker struct {
	cfg     Config
	sleeper func(time.Duration)
	logger  *slog.Logger
}

// Option customizes the invoker.
type Option func(*Invoker)

// WithSleeper overrides how backoff sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(inv *Invoker) {
		inv.sleeper = sleeper
	}
}

// WithLogger overrides the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(inv *Invoker) {
		if logger != nil {
			inv.logger = logger
		}
	}
}

// New constructs an invoker from explicit tiers.
func New(cfg Config, opts ...Option) (*Invoker, error) {
	if cfg.Secondary.Client == nil {
		return nil, errors.New("resilient: secondary provider client required")
	}
	if cfg.Primary != nil && cfg.Primary.Client == nil {
		return nil, errors.New("resilient: primary provider client required")
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.Delays == nil {
		cfg.Delays = DefaultDelays
	}
	if cfg.TransientSignals == nil {
		cfg.TransientSignals = DefaultTransientSignals
	}
	if cfg.RateLimitSignals == nil {
		cfg.RateLimitSignals = DefaultRateLimitSignals
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = defaultTemperature
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	cfg.TransientSignals = normalizeSignals(cfg.TransientSignals)
	cfg.RateLimitSignals = normalizeSignals(cfg.RateLimitSignals)
	if cfg.Secondary.Name == "" {
		cfg.Secondary.Name = "secondary"
	}
	if cfg.Primary != nil && cfg.Primary.Name == "" {
		primary := *cfg.Primary
		primary.Name = "primary"
		cfg.Primary = &primary
	}

	inv := &Invoker{
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv, nil
}

// NewFromConfig constructs an invoker whose tiers talk to OpenAI-compatible endpoints.
func NewFromConfig(cfg *ai.LLMConfig, opts ...Option) (*Invoker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rc := Config{
		Secondary: Tier{
			Name:   cfg.Secondary.Name,
			Client: ai.NewOpenAIClient(cfg.Secondary),
			Model:  cfg.Secondary.Model,
		},
		MaxAttempts:      cfg.MaxAttempts,
		Delays:           cfg.Backoff,
		TransientSignals: cfg.TransientSignals,
		RateLimitSignals: cfg.RateLimitSignals,
		Temperature:      cfg.Temperature,
		MaxTokens:        cfg.MaxTokens,
	}
	if cfg.Primary != nil {
		rc.Primary = &Tier{
			Name:   cfg.Primary.Name,
			Client: ai.NewOpenAIClient(*cfg.Primary),
			Model:  cfg.Primary.Model,
		}
	}
	return New(rc, opts...)
}

// HasPrimary reports whether a primary provider is configured.
func (inv *Invoker) HasPrimary() bool {
	return inv.cfg.Primary != nil
}

type state int

const (
	stateTryPrimary state = iota
	stateTryFallback
)

// Invoke returns the first successful, non rate-limited completion for messages.
// Errors are ErrRateLimited, a *ProviderError, or the context error.
func (inv *Invoker) Invoke(ctx context.Context, messages []ai.Message) (string, error) {
	st := stateTryFallback
	if inv.cfg.Primary != nil {
		st = stateTryPrimary
	}

	for {
		switch st {
		case stateTryPrimary:
			text, err := inv.runTier(ctx, *inv.cfg.Primary, rolePrimary, messages)
			if err == nil {
				return text, nil
			}
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			inv.logger.Warn("primary provider unavailable, falling back",
				"primary", inv.cfg.Primary.Name,
				"secondary", inv.cfg.Secondary.Name,
				"error", err)
			st = stateTryFallback

		case stateTryFallback:
			return inv.runTier(ctx, inv.cfg.Secondary, roleSecondary, messages)
		}
	}
}

type role int

const (
	rolePrimary role = iota
	roleSecondary
)

func (r role) String() string {
	if r == rolePrimary {
		return "primary"
	}
	return "secondary"
}

// decision is what to do after one attempt.
type decision int

const (
	decideReturn      decision = iota // success, hand the text back
	decideRetry                       // wait and call the same provider again
	decideAbandon                     // stop using this provider
	decideRateLimited                 // secondary exhausted on soft failures
)

// errSoftRateLimit marks a primary abandoned because of a rate-limit response.
var errSoftRateLimit = errors.New("response signalled rate limiting")

func (inv *Invoker) runTier(ctx context.Context, tier Tier, r role, messages []ai.Message) (string, error) {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		text, err := tier.Client.Complete(ctx, tier.Model, messages, inv.cfg.Temperature, inv.cfg.MaxTokens)
		if err != nil && ctx.Err() != nil {
			return "", ctx.Err()
		}

		switch inv.decide(r, attempt, text, err) {
		case decideReturn:
			inv.logger.Debug("completion received", "provider", tier.Name, "attempt", attempt)
			return text, nil

		case decideRetry:
			delay := inv.delay(attempt)
			cause := err
			if cause == nil {
				cause = errSoftRateLimit
			}
			inv.logger.Warn("provider attempt failed, retrying",
				"provider", tier.Name,
				"role", r.String(),
				"attempt", attempt,
				"wait", delay,
				"error", cause)
			if err := inv.sleep(ctx, delay); err != nil {
				return "", err
			}

		case decideAbandon:
			if err == nil {
				err = errSoftRateLimit
			}
			return "", &ProviderError{Provider: tier.Name, Attempts: attempt, Err: err}

		case decideRateLimited:
			inv.logger.Warn("provider rate-limited on every attempt", "provider", tier.Name, "attempts", attempt)
			return "", ErrRateLimited
		}
	}
}

// decide is the decision table for a single attempt.
func (inv *Invoker) decide(r role, attempt int, text string, err error) decision {
	attemptsLeft := attempt < inv.cfg.MaxAttempts

	if err != nil {
		if attemptsLeft && containsAny(err.Error(), inv.cfg.TransientSignals) {
			return decideRetry
		}
		return decideAbandon
	}

	if !containsAny(text, inv.cfg.RateLimitSignals) {
		return decideReturn
	}

	if r == rolePrimary {
		return decideAbandon
	}
	if attemptsLeft {
		return decideRetry
	}
	return decideRateLimited
}

// delay returns the wait before attempt+1.
func (inv *Invoker) delay(attempt int) time.Duration {
	delays := inv.cfg.Delays
	if len(delays) == 0 {
		return 0
	}
	idx := attempt - 1
	if idx >= len(delays) {
		idx = len(delays) - 1
	}
	return delays[idx]
}

func (inv *Invoker) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	if inv.sleeper != nil {
		inv.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func containsAny(text string, signals []string) bool {
	lowered := strings.ToLower(text)
	for _, sig := range signals {
		if sig != "" && strings.Contains(lowered, sig) {
			return true
		}
	}
	return false
}

func normalizeSignals(signals []string) []string {
	result := make([]string, 0, len(signals))
	for _, sig := range signals {
		if trimmed := strings.ToLower(strings.TrimSpace(sig)); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
