package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/quizpal/quizpal/internal/logger"
	"github.com/quizpal/quizpal/internal/store"
)

var testQuizSchema = &Schema{
	Name: "test-quiz",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"quiz": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"question":     map[string]any{"type": "string"},
						"options":      map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
						"answer_index": map[string]any{"type": "integer"},
					},
					"required": []string{"question", "options", "answer_index"},
				},
			},
		},
		"required": []string{"quiz"},
	},
}

const testQuizJSON = `{"quiz":[{"question":"What does chill out mean?","options":["Relax","Run","Shout"],"answer_index":0}]}`

func TestMockProvider_ReturnsCannedResponses(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage(`{"a":1}`), Usage: Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}},
		MockResponse{Content: json.RawMessage(`{"b":2}`), StopReason: "max_tokens"},
	)

	resp1, err := mock.Generate(context.Background(), UserPrompt("first", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp1.Content) != `{"a":1}` {
		t.Fatalf("expected {\"a\":1}, got %s", resp1.Content)
	}
	if resp1.Usage.InputTokens != 10 {
		t.Fatalf("expected 10 input tokens, got %d", resp1.Usage.InputTokens)
	}
	if resp1.StopReason != "end" {
		t.Fatalf("expected stop reason 'end', got %q", resp1.StopReason)
	}

	resp2, err := mock.Generate(context.Background(), UserPrompt("second", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp2.StopReason != "max_tokens" {
		t.Fatalf("expected stop reason 'max_tokens', got %q", resp2.StopReason)
	}
}

func TestMockProvider_EmptyQueueReturnsError(t *testing.T) {
	mock := NewMockProvider()
	_, err := mock.Generate(context.Background(), Request{})
	var unavail *ErrProviderUnavailable
	if !errors.As(err, &unavail) {
		t.Fatalf("expected ErrProviderUnavailable, got: %T", err)
	}
}

func TestMockProvider_HandlerAfterQueue(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: json.RawMessage(`{"first":true}`)})
	mock.Handler = func(req Request) MockResponse {
		return MockResponse{Content: json.RawMessage(`"` + req.Messages[0].Content + `"`)}
	}

	if _, err := mock.Generate(context.Background(), UserPrompt("a", nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp, err := mock.Generate(context.Background(), UserPrompt("echo", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp.Content) != `"echo"` {
		t.Fatalf("expected handler echo, got %s", resp.Content)
	}

	last, ok := mock.LastRequest()
	if !ok || last.Messages[0].Content != "echo" {
		t.Fatalf("unexpected last request: %+v", last)
	}
}

func TestMockProvider_HonorsCanceledContext(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: json.RawMessage(`{}`)})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := mock.Generate(ctx, Request{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if mock.CallCount() != 0 {
		t.Fatalf("canceled call should not be recorded, got %d", mock.CallCount())
	}
}

func TestMockProvider_ReturnsConfiguredError(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Err: &ErrBlocked{Reason: "SAFETY"}},
	)

	_, err := mock.Generate(context.Background(), Request{})
	var blocked *ErrBlocked
	if !errors.As(err, &blocked) {
		t.Fatalf("expected ErrBlocked, got: %T", err)
	}
	if blocked.Reason != "SAFETY" {
		t.Fatalf("expected reason SAFETY, got %q", blocked.Reason)
	}
}

func TestUserPrompt(t *testing.T) {
	req := UserPrompt("hello", testQuizSchema)
	if len(req.Messages) != 1 || req.Messages[0].Role != RoleUser || req.Messages[0].Content != "hello" {
		t.Fatalf("unexpected messages: %+v", req.Messages)
	}
	if req.Schema != testQuizSchema {
		t.Fatal("schema not attached")
	}
	if req.System != "" {
		t.Fatalf("expected no system prompt, got %q", req.System)
	}
}

func TestPurposeContext(t *testing.T) {
	ctx := context.Background()
	if p := PurposeFrom(ctx); p != "unknown" {
		t.Fatalf("expected 'unknown', got %q", p)
	}

	ctx = WithPurpose(ctx, PurposeQuiz)
	if p := PurposeFrom(ctx); p != PurposeQuiz {
		t.Fatalf("expected %q, got %q", PurposeQuiz, p)
	}
}

func TestRequestIDContext(t *testing.T) {
	ctx := context.Background()
	if id := RequestIDFrom(ctx); id != "" {
		t.Fatalf("expected empty id, got %q", id)
	}
	if id := RequestIDFrom(WithRequestID(ctx, "upd-1")); id != "upd-1" {
		t.Fatalf("expected 'upd-1', got %q", id)
	}
	if id := RequestIDFrom(WithRequestID(ctx, "")); len(id) != 36 {
		t.Fatalf("expected generated UUID, got %q", id)
	}
}

func TestConfig_Validate(t *testing.T) {
	withRetry := func(c Config) Config {
		c.Retry.MaxAttempts = 1
		return c
	}
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"gemini without key", withRetry(Config{Provider: "gemini"}), true},
		{"gemini with key", withRetry(Config{Provider: "gemini", Gemini: GeminiConfig{APIKey: "g"}}), false},
		{"anthropic without key", withRetry(Config{Provider: "anthropic"}), true},
		{"openai with key", withRetry(Config{Provider: "openai", OpenAI: OpenAIConfig{APIKey: "sk-test"}}), false},
		{"openrouter without key", withRetry(Config{Provider: "openrouter"}), true},
		{"mock needs no key", withRetry(Config{Provider: "mock"}), false},
		{"zero attempts", Config{Provider: "mock"}, true},
		{"unknown provider", withRetry(Config{Provider: "unknown"}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("GOOGLE_AI_TOKEN", "google-token")
	t.Setenv("QUIZPAL_LLM_MAX_ATTEMPTS", "3")
	t.Setenv("QUIZPAL_LLM_TIMEOUT", "45s")

	cfg := ConfigFromEnv()
	if cfg.Provider != "gemini" {
		t.Fatalf("expected default provider gemini, got %q", cfg.Provider)
	}
	if cfg.Gemini.APIKey != "google-token" {
		t.Fatalf("expected GOOGLE_AI_TOKEN to set the Gemini key, got %q", cfg.Gemini.APIKey)
	}
	if cfg.Retry.MaxAttempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", cfg.Retry.MaxAttempts)
	}
	if cfg.Timeout.Seconds() != 45 {
		t.Fatalf("expected 45s timeout, got %s", cfg.Timeout)
	}
}

func TestConfigFromEnv_Discovery(t *testing.T) {
	for _, k := range []string{
		"QUIZPAL_LLM_PROVIDER", "GOOGLE_AI_TOKEN", "QUIZPAL_GEMINI_API_KEY",
		"GEMINI_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "OPENROUTER_API_KEY",
	} {
		t.Setenv(k, "")
	}

	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Setenv("QUIZPAL_OPENAI_MODEL", "gpt-4o")
	cfg := ConfigFromEnv()
	if cfg.Provider != "openai" || cfg.OpenAI.APIKey != "sk-openai" {
		t.Fatalf("expected discovered openai config, got provider=%q key=%q", cfg.Provider, cfg.OpenAI.APIKey)
	}
	if cfg.OpenAI.Model != "gpt-4o" {
		t.Fatalf("discovery dropped the model override: %q", cfg.OpenAI.Model)
	}

	// An explicit provider is never overridden.
	t.Setenv("QUIZPAL_LLM_PROVIDER", "gemini")
	if cfg := ConfigFromEnv(); cfg.Provider != "gemini" {
		t.Fatalf("expected explicit gemini, got %q", cfg.Provider)
	}

	// A configured default provider wins over discovery.
	t.Setenv("QUIZPAL_LLM_PROVIDER", "")
	t.Setenv("GOOGLE_AI_TOKEN", "g-key")
	if cfg := ConfigFromEnv(); cfg.Provider != "gemini" {
		t.Fatalf("expected gemini with its key set, got %q", cfg.Provider)
	}
}

func TestDefaultConfig_NoRetry(t *testing.T) {
	if got := DefaultConfig().Retry.MaxAttempts; got != 1 {
		t.Fatalf("expected a single attempt by default, got %d", got)
	}
}

func TestLookupCost(t *testing.T) {
	if c := LookupCost("gemini-2.0-flash"); c == nil || c.InputPerMTok != 0.1 {
		t.Fatalf("unexpected cost for gemini-2.0-flash: %+v", c)
	}
	if c := LookupCost("google/gemini-2.0-flash-001"); c == nil {
		t.Fatal("expected OpenRouter id to resolve")
	}
	if c := LookupCost("no-such-model"); c != nil {
		t.Fatalf("expected nil, got %+v", c)
	}

	cost := ModelCost{InputPerMTok: 1, OutputPerMTok: 2}.Cost(1_000_000, 500_000)
	if cost != 2 {
		t.Fatalf("expected cost 2, got %v", cost)
	}
}

type recordingEventRepo struct {
	mu     sync.Mutex
	events []store.LLMRequestEventData
	err    error
}

func (r *recordingEventRepo) AppendLLMRequest(_ context.Context, data store.LLMRequestEventData) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, data)
	return r.err
}

func (r *recordingEventRepo) QueryLLMEvents(context.Context, store.QueryOpts) ([]store.LLMRequestEvent, error) {
	return nil, nil
}

func (r *recordingEventRepo) GetLLMEvent(context.Context, int64) (*store.LLMRequestEvent, error) {
	return nil, store.ErrNotFound
}

func (r *recordingEventRepo) LLMUsageByPurpose(context.Context, store.QueryOpts) ([]store.LLMUsage, error) {
	return nil, nil
}

func (r *recordingEventRepo) LLMUsageByModel(context.Context, store.QueryOpts) ([]store.LLMUsage, error) {
	return nil, nil
}

func TestLoggingProvider_RecordsEvents(t *testing.T) {
	repo := &recordingEventRepo{}
	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage(testQuizJSON), Usage: Usage{InputTokens: 12, OutputTokens: 34}},
		MockResponse{Err: &ErrBlocked{Reason: "SAFETY"}},
	)
	p := WithLogging(mock, "mock", repo, logger.Nop())

	ctx := WithRequestID(WithPurpose(context.Background(), PurposeQuiz), "req-1")
	if _, err := p.Generate(ctx, UserPrompt("chill out", testQuizSchema)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := p.Generate(ctx, UserPrompt("bad", nil)); err == nil {
		t.Fatal("expected error")
	}

	if len(repo.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(repo.events))
	}
	ok := repo.events[0]
	if !ok.Success || ok.Purpose != PurposeQuiz || ok.RequestID != "req-1" || ok.InputTokens != 12 {
		t.Fatalf("unexpected success event: %+v", ok)
	}
	if ok.RequestBytes != len("chill out") || ok.ResponseBytes != len(testQuizJSON) {
		t.Fatalf("sizes = %d/%d, want %d/%d", ok.RequestBytes, ok.ResponseBytes, len("chill out"), len(testQuizJSON))
	}
	failed := repo.events[1]
	if failed.Success || !strings.Contains(failed.ErrorMessage, "SAFETY") {
		t.Fatalf("unexpected failure event: %+v", failed)
	}
}

func TestLoggingProvider_RecordFailureIsIgnored(t *testing.T) {
	repo := &recordingEventRepo{err: errors.New("disk full")}
	mock := NewMockProvider(MockResponse{Content: json.RawMessage(`{}`)})
	p := WithLogging(mock, "mock", repo, nil)

	if _, err := p.Generate(context.Background(), Request{}); err != nil {
		t.Fatalf("recording failure leaked into the response: %v", err)
	}
}

func TestNewProvider_MockSkipsRetryByDefault(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Provider = "mock"

	p, err := NewProvider(context.Background(), cfg, nil, logger.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := p.(*LoggingProvider); !ok {
		t.Fatalf("expected logging provider without retry, got %T", p)
	}

	cfg.Retry.MaxAttempts = 3
	p, err = NewProvider(context.Background(), cfg, nil, logger.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := p.(*RetryProvider); !ok {
		t.Fatalf("expected retry provider, got %T", p)
	}
}
