// Package aiconfig reads and writes the per-community assistant settings.
package aiconfig

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yuelin-song/communitykb/internal/cache"
	"github.com/yuelin-song/communitykb/internal/models"
)

const cacheTTL = 5 * time.Minute

type Service struct {
	db    *pgxpool.Pool
	cache *cache.Cache // optional
}

func NewService(db *pgxpool.Pool, c *cache.Cache) *Service {
	return &Service{db: db, cache: c}
}

func cacheKey(community string) string {
	return "aiconfig:" + community
}

// Get returns the community's config, falling back to defaults (disabled)
// when nothing has been configured yet.
func (s *Service) Get(ctx context.Context, community string) (*models.AIConfig, error) {
	if s.cache != nil {
		var cached models.AIConfig
		err := s.cache.Get(ctx, cacheKey(community), &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			slog.Debug("aiconfig cache read failed", "community", community, "error", err)
		}
	}

	var cfg models.AIConfig
	err := s.db.QueryRow(ctx,
		`SELECT community, enabled, system_prompt, temperature, max_tokens, updated_at
		 FROM ai_configs WHERE community = $1`,
		community,
	).Scan(&cfg.Community, &cfg.Enabled, &cfg.SystemPrompt, &cfg.Temperature, &cfg.MaxTokens, &cfg.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.DefaultAIConfig(community), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ai config: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey(community), &cfg, cacheTTL); err != nil {
			slog.Debug("aiconfig cache write failed", "community", community, "error", err)
		}
	}
	return &cfg, nil
}

// Upsert writes the config and invalidates the cache entry.
func (s *Service) Upsert(ctx context.Context, cfg *models.AIConfig) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO ai_configs (community, enabled, system_prompt, temperature, max_tokens, updated_at)
		 VALUES ($1, $2, $3, $4, $5, now())
		 ON CONFLICT (community) DO UPDATE SET
		   enabled = EXCLUDED.enabled,
		   system_prompt = EXCLUDED.system_prompt,
		   temperature = EXCLUDED.temperature,
		   max_tokens = EXCLUDED.max_tokens,
		   updated_at = now()`,
		cfg.Community, cfg.Enabled, cfg.SystemPrompt, cfg.Temperature, cfg.MaxTokens,
	)
	if err != nil {
		return fmt.Errorf("upsert ai config: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, cacheKey(cfg.Community)); err != nil {
			slog.Debug("aiconfig cache invalidation failed", "community", cfg.Community, "error", err)
		}
	}
	return nil
}
