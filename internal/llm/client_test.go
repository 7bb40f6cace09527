package llm

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	mu        sync.Mutex
	calls     int
	responses []*ChatResponse
	errs      []error
	lastReq   ChatRequest
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) ChatCompletion(_ context.Context, req ChatRequest) (*ChatResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	f.lastReq = req
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return &ChatResponse{Content: "ok"}, nil
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestClient(p Provider) *Client {
	c := NewClient(p, Options{RetryDelay: time.Millisecond})
	c.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return c
}

func TestAnswerSuccess(t *testing.T) {
	p := &fakeProvider{responses: []*ChatResponse{{
		Content: "Bitcoin is digital money.", PromptTokens: 120, CompletionTokens: 30, TotalTokens: 150,
	}}}
	c := newTestClient(p)

	res := c.Answer(context.Background(), AnswerRequest{
		Community: "g1", Question: "What is Bitcoin?", Model: "deepseek-chat",
	})

	assert.Equal(t, OutcomeSuccess, res.Outcome)
	assert.Equal(t, "Bitcoin is digital money.", res.Content)
	assert.Equal(t, 150, res.TotalTokens)
	assert.Equal(t, 1, p.callCount())
}

func TestAnswerRetriesThenDegrades(t *testing.T) {
	boom := errors.New("connection reset")
	p := &fakeProvider{errs: []error{boom, boom, boom}}
	c := newTestClient(p)

	res := c.Answer(context.Background(), AnswerRequest{Community: "g1", Question: "hi"})

	require.NotNil(t, res)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Equal(t, 0, res.TotalTokens)
	assert.NotEmpty(t, res.Content, "caller always has a string to show")
	assert.Equal(t, 3, p.callCount(), "exactly three attempts")
}

func TestAnswerRecoversOnSecondAttempt(t *testing.T) {
	p := &fakeProvider{
		errs:      []error{errors.New("timeout"), nil},
		responses: []*ChatResponse{nil, {Content: "recovered", TotalTokens: 9}},
	}
	c := newTestClient(p)

	res := c.Answer(context.Background(), AnswerRequest{Community: "g1", Question: "hi"})
	assert.Equal(t, OutcomeSuccess, res.Outcome)
	assert.Equal(t, "recovered", res.Content)
	assert.Equal(t, 2, p.callCount())
}

func TestAnswerRateLimitedShortCircuits(t *testing.T) {
	p := &fakeProvider{}
	c := NewClient(p, Options{RateLimit: 1, RetryDelay: time.Millisecond})
	c.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }

	first := c.Answer(context.Background(), AnswerRequest{Community: "g1", Question: "one"})
	assert.Equal(t, OutcomeSuccess, first.Outcome)

	second := c.Answer(context.Background(), AnswerRequest{Community: "g1", Question: "two"})
	assert.Equal(t, OutcomeRateLimited, second.Outcome)
	assert.Equal(t, 0, second.TotalTokens)
	assert.Equal(t, int64(0), second.LatencyMs)
	assert.Equal(t, 1, p.callCount(), "rejected call never reaches the provider")
}

func TestAnswerCancellationStopsRetries(t *testing.T) {
	boom := errors.New("unreachable")
	p := &fakeProvider{errs: []error{boom, boom, boom}}
	c := NewClient(p, Options{RetryDelay: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	c.sleep = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	res := c.Answer(ctx, AnswerRequest{Community: "g1", Question: "hi"})
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Equal(t, 1, p.callCount(), "no retry after cancellation")
}

func TestBuildMessagesOrderAndCaps(t *testing.T) {
	p := &fakeProvider{}
	c := newTestClient(p)

	history := make([]Message, 0, 14)
	for i := 0; i < 7; i++ {
		history = append(history,
			Message{Role: "user", Content: "q"},
			Message{Role: "assistant", Content: "a"},
		)
	}

	msgs := c.buildMessages(AnswerRequest{
		SystemPrompt:     "You are helpful.",
		KnowledgeContext: strings.Repeat("x", 7000),
		History:          history,
		Question:         "latest question",
	})

	require.Len(t, msgs, 12, "system + 10 history + question")
	assert.Equal(t, "system", msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "You are helpful.")
	assert.NotContains(t, msgs[0].Content, strings.Repeat("x", 6001), "context capped at 6000 chars")
	assert.Equal(t, Message{Role: "user", Content: "latest question"}, msgs[len(msgs)-1])
}

func TestBuildMessagesWithoutKnowledge(t *testing.T) {
	c := newTestClient(&fakeProvider{})
	msgs := c.buildMessages(AnswerRequest{SystemPrompt: "sys", Question: "q"})
	require.Len(t, msgs, 2)
	assert.Equal(t, "sys", msgs[0].Content, "no knowledge preamble when context is empty")
}

func TestAnswerFallbackProvider(t *testing.T) {
	boom := errors.New("down")
	primary := &fakeProvider{errs: []error{boom, boom, boom}}
	fallback := &fakeProvider{responses: []*ChatResponse{{Content: "from fallback", TotalTokens: 5}}}

	c := newTestClient(primary).WithFallback(fallback)

	res := c.Answer(context.Background(), AnswerRequest{Community: "g1", Question: "hi"})
	assert.Equal(t, OutcomeSuccess, res.Outcome)
	assert.Equal(t, "from fallback", res.Content)
	assert.Equal(t, 3, primary.callCount())
	assert.Equal(t, 1, fallback.callCount())
}

func TestAnswerConcurrentCallsComplete(t *testing.T) {
	p := &fakeProvider{}
	c := NewClient(p, Options{MaxConcurrent: 2, RateLimit: 100, RetryDelay: time.Millisecond})
	c.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := c.Answer(context.Background(), AnswerRequest{Community: "g1", Question: "hi"})
			assert.Equal(t, OutcomeSuccess, res.Outcome)
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, p.callCount())
}
