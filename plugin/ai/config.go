package ai

import (
	"errors"
	"time"

	"github.com/hrygo/vidsage/internal/profile"
)

// ProviderConfig represents one OpenAI-compatible text generation endpoint.
type ProviderConfig struct {
	Name    string // gateway, groq
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// LLMConfig represents the two-tier LLM configuration.
type LLMConfig struct {
	Primary   *ProviderConfig // optional
	Secondary ProviderConfig

	MaxAttempts      int             // per provider, default: 3
	Backoff          []time.Duration // default: 3s, 6s
	TransientSignals []string
	RateLimitSignals []string
	Temperature      float32 // default: 0.3
	MaxTokens        int     // default: 2048
}

// NewConfigFromProfile creates the LLM config from profile.
func NewConfigFromProfile(p *profile.Profile) *LLMConfig {
	cfg := &LLMConfig{
		Secondary: ProviderConfig{
			Name:    "groq",
			BaseURL: p.GroqBaseURL,
			APIKey:  p.GroqAPIKey,
			Model:   p.GroqModel,
			Timeout: p.LLMTimeout,
		},
		MaxAttempts:      p.LLMMaxAttempts,
		Backoff:          p.LLMBackoff,
		TransientSignals: p.LLMTransientSignals,
		RateLimitSignals: p.LLMRateLimitSignals,
		Temperature:      p.LLMTemperature,
		MaxTokens:        p.LLMMaxTokens,
	}

	if p.HasPrimaryProvider() {
		cfg.Primary = &ProviderConfig{
			Name:    "gateway",
			BaseURL: p.GatewayBaseURL,
			APIKey:  p.GatewayAPIKey,
			Model:   p.GatewayModel,
			Timeout: p.LLMTimeout,
		}
	}

	return cfg
}

// Validate validates the configuration.
func (c *LLMConfig) Validate() error {
	if c.Secondary.APIKey == "" {
		return errors.New("secondary LLM API key is required")
	}
	if c.Secondary.Model == "" {
		return errors.New("secondary LLM model is required")
	}
	if c.Primary != nil && c.Primary.Model == "" {
		return errors.New("primary LLM model is required")
	}
	return nil
}
