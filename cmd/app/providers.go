package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/health-advisor/internal/domain/assessment"
	"github.com/yanqian/health-advisor/internal/infra/calllog"
	"github.com/yanqian/health-advisor/internal/infra/config"
	"github.com/yanqian/health-advisor/internal/infra/gencache"
	"github.com/yanqian/health-advisor/internal/infra/llm"
	"github.com/yanqian/health-advisor/internal/infra/llm/chatgpt"
)

func provideAssessmentConfig(cfg *config.Config) assessment.Config {
	out := assessment.Config{
		RecommendationSampling: toSampling(cfg.Assessment.RecommendationSampling),
		DietSampling:           toSampling(cfg.Assessment.DietSampling),
		MissingKeyFallback:     cfg.Assessment.MissingKeyFallback,
		EmptyResponseFallback:  cfg.Assessment.EmptyResponseFallback,
	}
	if cfg.Cache.Enabled {
		out.CacheTTL = cfg.Cache.TTL
	}
	return out
}

func toSampling(s config.SamplingConfig) assessment.Sampling {
	return assessment.Sampling{Temperature: s.Temperature, TopK: s.TopK, TopP: s.TopP}
}

func provideTextGenerator(cfg *config.Config, logger *slog.Logger) (assessment.TextGenerator, error) {
	if cfg.LLM.APIKey == "" {
		logger.Warn("llm api key not set, responses will use fallback text", "provider", cfg.LLM.Provider)
	}
	switch cfg.LLM.Provider {
	case config.ProviderOpenAI:
		return llm.NewChatGPTGenerator(chatgpt.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model, cfg.LLM.Timeout)), nil
	default:
		return llm.NewGeminiGenerator(context.Background(), cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Model, cfg.LLM.Timeout)
	}
}

// provideGenerationCache returns nil when caching is disabled.
func provideGenerationCache(cfg *config.Config, logger *slog.Logger) (assessment.GenerationCache, func()) {
	noop := func() {}
	if !cfg.Cache.Enabled {
		return nil, noop
	}
	if cfg.Cache.Redis.Enabled {
		opt, err := buildValkeyOptions(cfg.Cache.Redis.Addr)
		if err != nil {
			logger.Error("invalid valkey configuration, falling back to memory cache", "error", err)
			return gencache.NewMemoryCache(), noop
		}
		client, err := valkey.NewClient(opt)
		if err != nil {
			logger.Error("failed to create valkey client, falling back to memory cache", "error", err)
			return gencache.NewMemoryCache(), noop
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
			logger.Error("valkey ping failed, falling back to memory cache", "error", err)
			client.Close()
		} else {
			logger.Info("generation valkey cache enabled", "addr", cfg.Cache.Redis.Addr, "ttl", cfg.Cache.TTL)
			return gencache.NewValkeyCache(client, cfg.Cache.Redis.Prefix), client.Close
		}
	}
	logger.Info("generation memory cache enabled", "ttl", cfg.Cache.TTL)
	return gencache.NewMemoryCache(), noop
}

func buildValkeyOptions(addr string) (valkey.ClientOption, error) {
	if strings.Contains(addr, "://") {
		return valkey.ParseURL(addr)
	}
	return valkey.ClientOption{InitAddress: []string{addr}}, nil
}

func provideCallLogRepository(cfg *config.Config, logger *slog.Logger) (assessment.CallLogRepository, func()) {
	noop := func() {}
	fallback := calllog.NewMemoryRepository(cfg.CallLog.Capacity)
	dsn := strings.TrimSpace(cfg.CallLog.Postgres.DSN)
	if dsn == "" {
		logger.Info("call log postgres dsn not set, using memory repository")
		return fallback, noop
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn, using memory repository", "error", err)
		return fallback, noop
	}
	if cfg.CallLog.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.CallLog.Postgres.MaxConns
	}
	if cfg.CallLog.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.CallLog.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, using memory repository", "error", err)
		return fallback, noop
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed, using memory repository", "error", err)
		pool.Close()
		return fallback, noop
	}
	logger.Info("call log postgres repository enabled")
	return calllog.NewPostgresRepository(pool), pool.Close
}
