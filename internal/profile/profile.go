package profile

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read by the profile.
const EnvPrefix = "VIDSAGE"

// Profile is the configuration to start the server.
type Profile struct {
	// Mode can be "prod" or "dev"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Version is the current version of server
	Version string
	// LogLevel is one of debug, info, warn, error
	LogLevel string
	// LogFormat is "text" or "json"
	LogFormat string

	// Transcript cache
	CacheMaxSize         int           // VIDSAGE_CACHE_MAX_SIZE (default: 50)
	CacheTTL             time.Duration // VIDSAGE_CACHE_TTL (default: 24h)
	CacheCleanupInterval time.Duration // VIDSAGE_CACHE_CLEANUP_INTERVAL (default: 0, disabled)

	// Sessions
	SessionTimeout         time.Duration // VIDSAGE_SESSION_TIMEOUT (default: 60m)
	SessionCleanupInterval time.Duration // VIDSAGE_SESSION_CLEANUP_INTERVAL (default: 0, disabled)

	// LLM invocation policy
	LLMMaxAttempts      int             // VIDSAGE_LLM_MAX_ATTEMPTS (default: 3)
	LLMBackoff          []time.Duration // VIDSAGE_LLM_BACKOFF (default: 3s,6s)
	LLMTransientSignals []string        // VIDSAGE_LLM_TRANSIENT_SIGNALS
	LLMRateLimitSignals []string        // VIDSAGE_LLM_RATE_LIMIT_SIGNALS
	LLMTemperature      float32         // VIDSAGE_LLM_TEMPERATURE (default: 0.3)
	LLMMaxTokens        int             // VIDSAGE_LLM_MAX_TOKENS (default: 2048)
	LLMTimeout          time.Duration   // VIDSAGE_LLM_TIMEOUT (default: 60s)

	// Primary provider, optional: enabled when the API key is set
	GatewayBaseURL string // VIDSAGE_GATEWAY_BASE_URL (default: http://127.0.0.1:18789/v1)
	GatewayAPIKey  string // VIDSAGE_GATEWAY_API_KEY
	GatewayModel   string // VIDSAGE_GATEWAY_MODEL (default: openclaw)

	// Secondary provider, required
	GroqBaseURL string // VIDSAGE_GROQ_BASE_URL (default: https://api.groq.com/openai/v1)
	GroqAPIKey  string // VIDSAGE_GROQ_API_KEY
	GroqModel   string // VIDSAGE_GROQ_MODEL (default: llama-3.3-70b-versatile)

	// Optional shared transcript tier
	RedisAddr     string // VIDSAGE_REDIS_ADDR, empty disables Redis
	RedisPassword string // VIDSAGE_REDIS_PASSWORD
	RedisDB       int    // VIDSAGE_REDIS_DB
	RedisPrefix   string // VIDSAGE_REDIS_PREFIX (default: vidsage:)

	// Transcripts
	TranscriptDir      string // VIDSAGE_TRANSCRIPT_DIR (default: ./transcripts)
	MaxTranscriptChars int    // VIDSAGE_MAX_TRANSCRIPT_CHARS (default: 15000)

	// Per-user request limiting
	RateLimitRPS   float64 // VIDSAGE_RATE_LIMIT_RPS (default: 1)
	RateLimitBurst int     // VIDSAGE_RATE_LIMIT_BURST (default: 3)
}

// Defaults for the invocation policy.
var (
	DefaultLLMBackoff          = []time.Duration{3 * time.Second, 6 * time.Second}
	DefaultLLMTransientSignals = []string{"429", "503", "rate", "timeout", "connection"}
	DefaultLLMRateLimitSignals = []string{"rate limit", "api rate limit", "too many requests", "429"}
)

// SetDefaults registers every default value on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("mode", "dev")
	v.SetDefault("addr", "")
	v.SetDefault("port", 8081)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	v.SetDefault("cache_max_size", 50)
	v.SetDefault("cache_ttl", 24*time.Hour)
	v.SetDefault("cache_cleanup_interval", time.Duration(0))

	v.SetDefault("session_timeout", 60*time.Minute)
	v.SetDefault("session_cleanup_interval", time.Duration(0))

	v.SetDefault("llm_max_attempts", 3)
	v.SetDefault("llm_backoff", "3s,6s")
	v.SetDefault("llm_transient_signals", strings.Join(DefaultLLMTransientSignals, ","))
	v.SetDefault("llm_rate_limit_signals", strings.Join(DefaultLLMRateLimitSignals, ","))
	v.SetDefault("llm_temperature", 0.3)
	v.SetDefault("llm_max_tokens", 2048)
	v.SetDefault("llm_timeout", 60*time.Second)

	v.SetDefault("gateway_base_url", "http://127.0.0.1:18789/v1")
	v.SetDefault("gateway_api_key", "")
	v.SetDefault("gateway_model", "openclaw")

	v.SetDefault("groq_base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("groq_api_key", "")
	v.SetDefault("groq_model", "llama-3.3-70b-versatile")

	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("redis_prefix", "vidsage:")

	v.SetDefault("transcript_dir", "./transcripts")
	v.SetDefault("max_transcript_chars", 15000)

	v.SetDefault("rate_limit_rps", 1.0)
	v.SetDefault("rate_limit_burst", 3)
}

// NewViper returns a viper instance bound to VIDSAGE_* environment variables
// with all defaults registered. configFile is optional.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", configFile)
		}
		slog.Debug("config file loaded", "path", v.ConfigFileUsed())
	}
	return v, nil
}

// Load builds a profile from environment and the optional config file.
func Load(configFile string) (*Profile, error) {
	v, err := NewViper(configFile)
	if err != nil {
		return nil, err
	}
	p, err := FromViper(v)
	if err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// FromViper reads the profile out of v.
func FromViper(v *viper.Viper) (*Profile, error) {
	backoff, err := parseDurations(stringList(v.Get("llm_backoff")))
	if err != nil {
		return nil, errors.Wrap(err, "invalid llm_backoff")
	}

	p := &Profile{
		Mode:      strings.ToLower(strings.TrimSpace(v.GetString("mode"))),
		Addr:      v.GetString("addr"),
		Port:      v.GetInt("port"),
		LogLevel:  strings.ToLower(v.GetString("log_level")),
		LogFormat: strings.ToLower(v.GetString("log_format")),

		CacheMaxSize:         v.GetInt("cache_max_size"),
		CacheTTL:             v.GetDuration("cache_ttl"),
		CacheCleanupInterval: v.GetDuration("cache_cleanup_interval"),

		SessionTimeout:         v.GetDuration("session_timeout"),
		SessionCleanupInterval: v.GetDuration("session_cleanup_interval"),

		LLMMaxAttempts:      v.GetInt("llm_max_attempts"),
		LLMBackoff:          backoff,
		LLMTransientSignals: lowerAll(stringList(v.Get("llm_transient_signals"))),
		LLMRateLimitSignals: lowerAll(stringList(v.Get("llm_rate_limit_signals"))),
		LLMTemperature:      float32(v.GetFloat64("llm_temperature")),
		LLMMaxTokens:        v.GetInt("llm_max_tokens"),
		LLMTimeout:          v.GetDuration("llm_timeout"),

		GatewayBaseURL: strings.TrimSpace(v.GetString("gateway_base_url")),
		GatewayAPIKey:  strings.TrimSpace(v.GetString("gateway_api_key")),
		GatewayModel:   strings.TrimSpace(v.GetString("gateway_model")),

		GroqBaseURL: strings.TrimSpace(v.GetString("groq_base_url")),
		GroqAPIKey:  strings.TrimSpace(v.GetString("groq_api_key")),
		GroqModel:   strings.TrimSpace(v.GetString("groq_model")),

		RedisAddr:     strings.TrimSpace(v.GetString("redis_addr")),
		RedisPassword: v.GetString("redis_password"),
		RedisDB:       v.GetInt("redis_db"),
		RedisPrefix:   v.GetString("redis_prefix"),

		TranscriptDir:      v.GetString("transcript_dir"),
		MaxTranscriptChars: v.GetInt("max_transcript_chars"),

		RateLimitRPS:   v.GetFloat64("rate_limit_rps"),
		RateLimitBurst: v.GetInt("rate_limit_burst"),
	}
	return p, nil
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// HasPrimaryProvider reports whether the gateway provider is configured.
func (p *Profile) HasPrimaryProvider() bool {
	return p.GatewayAPIKey != ""
}

// IsRedisEnabled reports whether the shared transcript tier is configured.
func (p *Profile) IsRedisEnabled() bool {
	return p.RedisAddr != ""
}

// ListenAddr returns the host:port the HTTP server binds to.
func (p *Profile) ListenAddr() string {
	return fmt.Sprintf("%s:%d", p.Addr, p.Port)
}

func (p *Profile) Validate() error {
	if p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "dev"
	}

	if p.GroqAPIKey == "" {
		return errors.New("groq API key is required, set VIDSAGE_GROQ_API_KEY")
	}
	if p.GroqModel == "" {
		return errors.New("groq model is required")
	}
	if p.HasPrimaryProvider() && p.GatewayModel == "" {
		return errors.New("gateway model is required when the gateway API key is set")
	}
	if p.CacheMaxSize <= 0 {
		return errors.Errorf("cache max size must be positive, got %d", p.CacheMaxSize)
	}
	if p.CacheTTL <= 0 {
		return errors.Errorf("cache TTL must be positive, got %s", p.CacheTTL)
	}
	if p.SessionTimeout <= 0 {
		return errors.Errorf("session timeout must be positive, got %s", p.SessionTimeout)
	}
	if p.LLMMaxAttempts <= 0 {
		return errors.Errorf("llm max attempts must be positive, got %d", p.LLMMaxAttempts)
	}
	if p.Port <= 0 || p.Port > 65535 {
		return errors.Errorf("invalid port %d", p.Port)
	}
	if p.TranscriptDir != "" {
		if _, err := os.Stat(p.TranscriptDir); err != nil {
			slog.Warn("transcript directory is not accessible", "dir", p.TranscriptDir, "error", err)
		}
	}
	return nil
}

// stringList accepts either a list value (config file) or a comma separated
// string (environment variable).
func stringList(raw any) []string {
	var items []string
	switch val := raw.(type) {
	case nil:
		return nil
	case string:
		items = strings.Split(val, ",")
	case []string:
		items = val
	case []any:
		for _, item := range val {
			items = append(items, fmt.Sprint(item))
		}
	default:
		items = []string{fmt.Sprint(val)}
	}

	result := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func parseDurations(values []string) ([]time.Duration, error) {
	result := make([]time.Duration, 0, len(values))
	for _, value := range values {
		d, err := time.ParseDuration(value)
		if err != nil {
			return nil, err
		}
		if d < 0 {
			return nil, errors.Errorf("negative duration %s", value)
		}
		result = append(result, d)
	}
	return result, nil
}

func lowerAll(values []string) []string {
	for i, value := range values {
		values[i] = strings.ToLower(value)
	}
	return values
}
