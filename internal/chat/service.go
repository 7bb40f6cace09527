// Package chat wires retrieval, conversation memory, and the model client
// into the single question-answering operation exposed to the transport
// layer.
package chat

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/yuelin-song/communitykb/internal/llm"
	"github.com/yuelin-song/communitykb/internal/memory"
	"github.com/yuelin-song/communitykb/internal/models"
)

// logTextLimit bounds question/answer text stored in the usage log.
const logTextLimit = 500

// Knowledge is the retrieval surface the service depends on.
type Knowledge interface {
	HasKnowledge(ctx context.Context, community string) (bool, error)
	Retrieve(ctx context.Context, community, query string, topK int) (string, error)
}

// ConfigSource yields the per-community assistant settings.
type ConfigSource interface {
	Get(ctx context.Context, community string) (*models.AIConfig, error)
}

// ModelCaller places the outbound model call.
type ModelCaller interface {
	Answer(ctx context.Context, req llm.AnswerRequest) *llm.Result
}

// History is the short-term conversation memory.
type History interface {
	Append(community string, userID int64, role, content string)
	History(community string, userID int64) []memory.Turn
}

// UsageRecorder persists the per-call audit row.
type UsageRecorder interface {
	Record(ctx context.Context, rec models.UsageRecord) error
}

type Service struct {
	configs   ConfigSource
	knowledge Knowledge
	history   History
	client    ModelCaller
	usage     UsageRecorder
	topK      int
}

func NewService(configs ConfigSource, knowledge Knowledge, history History, client ModelCaller, usage UsageRecorder, topK int) *Service {
	if topK <= 0 {
		topK = 5
	}
	return &Service{
		configs:   configs,
		knowledge: knowledge,
		history:   history,
		client:    client,
		usage:     usage,
		topK:      topK,
	}
}

// Answer runs the full query path for one question. It returns nil (and no
// error) when the assistant is disabled for the community or the community
// has no knowledge base; otherwise it always returns a usable result,
// degraded outcomes included, and both turns are committed to memory and
// the usage log.
func (s *Service) Answer(ctx context.Context, community string, userID int64, question string) (*llm.Result, error) {
	cfg, err := s.configs.Get(ctx, community)
	if err != nil {
		return nil, fmt.Errorf("load ai config: %w", err)
	}
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}

	has, err := s.knowledge.HasKnowledge(ctx, community)
	if err != nil {
		return nil, fmt.Errorf("check knowledge: %w", err)
	}
	if !has {
		return nil, nil
	}

	knowledgeContext, err := s.knowledge.Retrieve(ctx, community, question, s.topK)
	if err != nil {
		return nil, fmt.Errorf("retrieve context: %w", err)
	}

	turns := s.history.History(community, userID)
	historyMsgs := make([]llm.Message, len(turns))
	for i, t := range turns {
		historyMsgs[i] = llm.Message{Role: t.Role, Content: t.Content}
	}

	result := s.client.Answer(ctx, llm.AnswerRequest{
		Community:        community,
		SystemPrompt:     cfg.SystemPrompt,
		KnowledgeContext: knowledgeContext,
		History:          historyMsgs,
		Question:         question,
		Temperature:      cfg.Temperature,
		MaxTokens:        cfg.MaxTokens,
	})

	s.history.Append(community, userID, "user", question)
	s.history.Append(community, userID, "assistant", result.Content)

	rec := models.UsageRecord{
		RequestID:        uuid.New(),
		Community:        community,
		UserID:           userID,
		Question:         truncate(question, logTextLimit),
		Answer:           truncate(result.Content, logTextLimit),
		PromptTokens:     result.PromptTokens,
		CompletionTokens: result.CompletionTokens,
		TotalTokens:      result.TotalTokens,
		LatencyMs:        result.LatencyMs,
	}
	if err := s.usage.Record(ctx, rec); err != nil {
		// The user already has an answer; a lost audit row is not worth
		// failing the call.
		slog.Warn("usage record failed", "community", community, "error", err)
	}

	return result, nil
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
