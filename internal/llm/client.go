package llm

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"
)

// Outcome tags how a model call resolved. Every outcome is a value the
// conversation layer can show to a user; none of them is an error.
type Outcome string

const (
	OutcomeSuccess     Outcome = "success"
	OutcomeRateLimited Outcome = "rate_limited"
	OutcomeFailed      Outcome = "failed"
)

const (
	rateLimitedMessage = "Rate limit reached. Please try again in a moment."
	failedMessage      = "Sorry, I'm unable to respond right now. Please try again later."
)

// Result is the normalized outcome of one Answer call.
type Result struct {
	Content          string  `json:"content"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	LatencyMs        int64   `json:"latency_ms"`
	Outcome          Outcome `json:"outcome"`
}

// AnswerRequest carries everything needed to build the prompt and place
// the outbound call.
type AnswerRequest struct {
	Community        string
	SystemPrompt     string
	KnowledgeContext string
	History          []Message
	Question         string
	Model            string
	Temperature      float64
	MaxTokens        int
}

// Options bounds the client's outbound behavior.
type Options struct {
	Model         string        // default model when the request leaves it empty
	FallbackModel string        // model sent to the fallback provider
	MaxAttempts   int           // total attempts per call, including the first
	RetryDelay    time.Duration // fixed delay between attempts
	CallTimeout   time.Duration // per-attempt deadline
	MaxConcurrent int64         // global in-flight cap across all communities
	RateLimit     int           // calls per community per RatePeriod
	RatePeriod    time.Duration
	ContextLimit  int // knowledge-context character ceiling in the prompt
	HistoryLimit  int // most recent history messages kept in the prompt
}

func DefaultOptions() Options {
	return Options{
		MaxAttempts:   3,
		RetryDelay:    time.Second,
		CallTimeout:   30 * time.Second,
		MaxConcurrent: 5,
		RateLimit:     10,
		RatePeriod:    time.Minute,
		ContextLimit:  6000,
		HistoryLimit:  10,
	}
}

// Client wraps a Provider with per-community rate limiting, a global
// concurrency gate, and bounded retry. A fallback provider, when set, gets
// one attempt after the primary's budget is exhausted.
type Client struct {
	provider Provider
	fallback Provider

	limiter *RateWindow
	sem     *semaphore.Weighted
	opts    Options

	// sleep is the inter-attempt delay, injectable for tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewClient(provider Provider, opts Options) *Client {
	def := DefaultOptions()
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = def.MaxAttempts
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = def.CallTimeout
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = def.MaxConcurrent
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = def.RateLimit
	}
	if opts.RatePeriod <= 0 {
		opts.RatePeriod = def.RatePeriod
	}
	if opts.ContextLimit <= 0 {
		opts.ContextLimit = def.ContextLimit
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = def.HistoryLimit
	}

	return &Client{
		provider: provider,
		limiter:  NewRateWindow(opts.RateLimit, opts.RatePeriod),
		sem:      semaphore.NewWeighted(opts.MaxConcurrent),
		opts:     opts,
		sleep: func(ctx context.Context, d time.Duration) error {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
				return nil
			}
		},
	}
}

// WithFallback sets a secondary provider tried once after the primary's
// attempts are exhausted.
func (c *Client) WithFallback(p Provider) *Client {
	c.fallback = p
	return c
}

// Answer builds the prompt and places the call. It always returns a usable
// Result; rate-limit rejections and exhausted retries come back as degraded
// values with zeroed usage.
func (c *Client) Answer(ctx context.Context, req AnswerRequest) *Result {
	if req.Community != "" && !c.limiter.Allow(req.Community) {
		slog.Debug("model call rate-limited", "community", req.Community)
		return &Result{Content: rateLimitedMessage, Outcome: OutcomeRateLimited}
	}

	model := req.Model
	if model == "" {
		model = c.opts.Model
	}

	chatReq := ChatRequest{
		Model:       model,
		Messages:    c.buildMessages(req),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	start := time.Now()

	resp := c.callWithRetry(ctx, c.provider, chatReq)
	if resp == nil && c.fallback != nil && ctx.Err() == nil {
		slog.Warn("primary provider exhausted, trying fallback",
			"primary", c.provider.Name(), "fallback", c.fallback.Name())
		fbReq := chatReq
		if c.opts.FallbackModel != "" {
			fbReq.Model = c.opts.FallbackModel
		}
		resp = c.attempt(ctx, c.fallback, fbReq)
	}

	latency := time.Since(start).Milliseconds()
	if resp == nil {
		return &Result{Content: failedMessage, LatencyMs: latency, Outcome: OutcomeFailed}
	}

	return &Result{
		Content:          resp.Content,
		PromptTokens:     resp.PromptTokens,
		CompletionTokens: resp.CompletionTokens,
		TotalTokens:      resp.TotalTokens,
		LatencyMs:        latency,
		Outcome:          OutcomeSuccess,
	}
}

// buildMessages assembles system prompt + capped knowledge context, the most
// recent history, then the new question, in that order.
func (c *Client) buildMessages(req AnswerRequest) []Message {
	system := req.SystemPrompt
	if req.KnowledgeContext != "" {
		system += "\n\nBelow is your knowledge base. Answer user questions based on this content. " +
			"If the answer is not in the knowledge base, say you're not sure but try to be helpful.\n" +
			"---\n" + truncateRunes(req.KnowledgeContext, c.opts.ContextLimit) + "\n---"
	}

	history := req.History
	if len(history) > c.opts.HistoryLimit {
		history = history[len(history)-c.opts.HistoryLimit:]
	}

	msgs := make([]Message, 0, len(history)+2)
	msgs = append(msgs, Message{Role: "system", Content: system})
	msgs = append(msgs, history...)
	msgs = append(msgs, Message{Role: "user", Content: req.Question})
	return msgs
}

// callWithRetry runs the bounded attempt loop. It returns nil when every
// attempt failed or the context was canceled.
func (c *Client) callWithRetry(ctx context.Context, p Provider, req ChatRequest) *ChatResponse {
	for attempt := 1; attempt <= c.opts.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := c.sleep(ctx, c.opts.RetryDelay); err != nil {
				return nil
			}
		}

		resp := c.attempt(ctx, p, req)
		if resp != nil {
			return resp
		}
		if ctx.Err() != nil {
			return nil
		}
		slog.Warn("model call attempt failed", "provider", p.Name(), "attempt", attempt)
	}
	return nil
}

// attempt places one call under the concurrency gate and per-attempt timeout.
func (c *Client) attempt(ctx context.Context, p Provider, req ChatRequest) *ChatResponse {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil
	}
	defer c.sem.Release(1)

	callCtx, cancel := context.WithTimeout(ctx, c.opts.CallTimeout)
	defer cancel()

	resp, err := p.ChatCompletion(callCtx, req)
	if err != nil {
		slog.Debug("model call error", "provider", p.Name(), "error", err)
		return nil
	}
	return resp
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
