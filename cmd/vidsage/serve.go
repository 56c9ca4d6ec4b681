package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/hrygo/vidsage/internal/profile"
	"github.com/hrygo/vidsage/plugin/ai"
	"github.com/hrygo/vidsage/plugin/ai/assistant"
	"github.com/hrygo/vidsage/plugin/ai/resilient"
	"github.com/hrygo/vidsage/plugin/ai/session"
	"github.com/hrygo/vidsage/server"
	"github.com/hrygo/vidsage/server/middleware"
	apiv1 "github.com/hrygo/vidsage/server/router/api/v1"
	"github.com/hrygo/vidsage/server/service/video"
	"github.com/hrygo/vidsage/store/cache"
)

func newServeCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := profile.Load(*configFlag)
			if err != nil {
				return err
			}
			if p.Version == "" {
				p.Version = version
			}
			if err := p.Validate(); err != nil {
				return errors.Wrap(err, "invalid configuration")
			}

			logger := newLogger(p, cmd.ErrOrStderr())
			slog.SetDefault(logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv, err := buildServer(ctx, p, logger)
			if err != nil {
				return err
			}
			if err := srv.Start(ctx); err != nil {
				return err
			}

			<-ctx.Done()
			srv.Shutdown(context.Background())
			return nil
		},
	}
}

// buildServer wires every component from the profile.
func buildServer(ctx context.Context, p *profile.Profile, logger *slog.Logger) (*server.Server, error) {
	var l2 cache.RedisCacheInterface
	if p.IsRedisEnabled() {
		rc, err := cache.NewRedisCache(ctx, &cache.RedisCacheConfig{
			Addr:         p.RedisAddr,
			Password:     p.RedisPassword,
			DB:           p.RedisDB,
			KeyPrefix:    p.RedisPrefix,
			DefaultTTL:   p.CacheTTL,
			PoolSize:     10,
			MinIdleConns: 2,
		})
		if err != nil {
			return nil, err
		}
		l2 = rc
	}

	fetcher := video.NewFileFetcher(p.TranscriptDir, p.MaxTranscriptChars)
	transcripts, err := cache.NewTieredCache(&cache.TieredCacheConfig{
		L1MaxItems:      p.CacheMaxSize,
		L1TTL:           p.CacheTTL,
		CleanupInterval: p.CacheCleanupInterval,
	}, l2, fetcher.Fetch)
	if err != nil {
		return nil, err
	}

	invoker, err := resilient.NewFromConfig(ai.NewConfigFromProfile(p), resilient.WithLogger(logger))
	if err != nil {
		_ = transcripts.Close()
		return nil, errors.Wrap(err, "failed to create model invoker")
	}
	if !invoker.HasPrimary() {
		logger.Info("no gateway API key configured, using the fallback provider only")
	}

	sessions := session.NewStore(p.SessionTimeout)
	var cleanupJob *session.CleanupJob
	if p.SessionCleanupInterval > 0 {
		cleanupJob = session.NewCleanupJob(sessions, p.SessionCleanupInterval)
	}

	videoService := video.NewService(transcripts, sessions, assistant.New(invoker, assistant.WithLogger(logger)))

	api := apiv1.NewAPIV1Service(videoService, middleware.NewRateLimiter(p.RateLimitRPS, p.RateLimitBurst), p.Version)
	api.Logger = logger

	return server.NewServer(p, api, cleanupJob, transcripts), nil
}
