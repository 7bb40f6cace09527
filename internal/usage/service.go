// Package usage is the append-only log of model calls and its rollups.
package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yuelin-song/communitykb/internal/models"
)

type Service struct {
	db *pgxpool.Pool
}

func NewService(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

// Record appends one usage row. Degraded calls are recorded too, with
// zeroed token counts, so the audit trail shows every attempt.
func (s *Service) Record(ctx context.Context, rec models.UsageRecord) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO ai_usage_logs (request_id, community, user_id, question, answer, prompt_tokens, completion_tokens, total_tokens, latency_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.RequestID, rec.Community, rec.UserID, rec.Question, rec.Answer,
		rec.PromptTokens, rec.CompletionTokens, rec.TotalTokens, rec.LatencyMs,
	)
	if err != nil {
		return fmt.Errorf("insert usage log: %w", err)
	}
	return nil
}

type Summary struct {
	Community   string `json:"community"`
	TotalCalls  int    `json:"total_calls"`
	TotalTokens int    `json:"total_tokens"`
	AvgLatency  int64  `json:"avg_latency_ms"`
}

// Summarize rolls up a community's calls since the given instant.
func (s *Service) Summarize(ctx context.Context, community string, since time.Time) (*Summary, error) {
	var sum Summary
	sum.Community = community
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(total_tokens), 0),
		        COALESCE(AVG(latency_ms), 0)::BIGINT
		 FROM ai_usage_logs
		 WHERE community = $1 AND created_at >= $2`,
		community, since,
	).Scan(&sum.TotalCalls, &sum.TotalTokens, &sum.AvgLatency)
	if err != nil {
		return nil, fmt.Errorf("summarize usage: %w", err)
	}
	return &sum, nil
}
