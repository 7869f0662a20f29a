package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizpal/quizpal/internal/llm"
	"github.com/quizpal/quizpal/internal/logger"
	"github.com/quizpal/quizpal/internal/store"
)

const chillOutJSON = `{
	"quiz": [
		{
			"question": "What does \"chill out\" mean?",
			"options": ["Get angry", "Relax", "Work harder", "Eat something"],
			"answer_index": 1,
			"explanation": "To chill out is to calm down and relax."
		}
	],
	"notes": {"message": "Great job! 😊", "skipped_phrases": [], "corrections": ["Changed 'chil out' to 'chill out'"]}
}`

func newTestClient(responses ...llm.MockResponse) (*Client, *llm.MockProvider) {
	mock := llm.NewMockProvider(responses...)
	return NewClient(mock, DefaultConfig(), logger.Nop()), mock
}

func requireQuizInvariants(t *testing.T, res Result) {
	t.Helper()
	for i, item := range res.Quiz {
		assert.GreaterOrEqual(t, len(item.Options), MinOptions, "item %d", i)
		assert.LessOrEqual(t, len(item.Options), MaxOptions, "item %d", i)
		assert.GreaterOrEqual(t, item.AnswerIndex, 0, "item %d", i)
		assert.Less(t, item.AnswerIndex, len(item.Options), "item %d", i)
		assert.NotEmpty(t, item.Explanation, "item %d", i)
	}
	if len(res.Quiz) == 0 {
		assert.NotEmpty(t, res.Notes.Message, "empty quiz needs a message")
	}
}

func TestClient_Success(t *testing.T) {
	c, mock := newTestClient(llm.MockResponse{Content: json.RawMessage(chillOutJSON)})

	res := c.Generate(context.Background(), BuildPrompt(LevelB1, "chill out"))

	require.False(t, res.Degraded())
	require.Len(t, res.Quiz, 1)
	assert.Equal(t, []string{"Get angry", "Relax", "Work harder", "Eat something"}, res.Quiz[0].Options)
	assert.Equal(t, 1, res.Quiz[0].AnswerIndex)
	assert.Equal(t, "Great job! 😊", res.Notes.Message)
	assert.Nil(t, res.Notes.SkippedPhrases)
	assert.Equal(t, []string{"Changed 'chil out' to 'chill out'"}, res.Notes.Corrections)
	requireQuizInvariants(t, res)

	req, ok := mock.LastRequest()
	require.True(t, ok)
	assert.Equal(t, ResultSchema, req.Schema)
	require.Len(t, req.Messages, 1)
	assert.Contains(t, req.Messages[0].Content, "chill out")
}

func TestClient_FailuresDegrade(t *testing.T) {
	tests := []struct {
		name    string
		resp    llm.MockResponse
		reason  Reason
		message string
	}{
		{"blocked", llm.MockResponse{Err: &llm.ErrBlocked{Reason: "SAFETY"}}, ReasonBlocked, MsgBlocked},
		{"empty", llm.MockResponse{Err: &llm.ErrEmptyResponse{Provider: "gemini"}}, ReasonEmpty, MsgEmpty},
		{"invalid", llm.MockResponse{Err: &llm.ErrInvalidResponse{Content: json.RawMessage(`{"quiz":`), Err: errors.New("eof")}}, ReasonMalformed, MsgMalformed},
		{"wrapped invalid", llm.MockResponse{Err: fmt.Errorf("gen: %w", &llm.ErrInvalidResponse{Err: errors.New("bad")})}, ReasonMalformed, MsgMalformed},
		{"undecodable", llm.MockResponse{Content: json.RawMessage(`{"quiz":"not-a-list"}`)}, ReasonMalformed, MsgMalformed},
		{"rate limit", llm.MockResponse{Err: &llm.ErrRateLimit{Err: errors.New("429")}}, ReasonUnavailable, MsgUnavailable},
		{"unavailable", llm.MockResponse{Err: &llm.ErrProviderUnavailable{}}, ReasonUnavailable, MsgUnavailable},
		{"unknown", llm.MockResponse{Err: errors.New("boom")}, ReasonUnavailable, MsgUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(tt.resp)

			var res Result
			require.NotPanics(t, func() {
				res = c.Generate(context.Background(), "prompt")
			})

			assert.True(t, res.Degraded())
			assert.Equal(t, tt.reason, res.Reason)
			assert.NotNil(t, res.Quiz)
			assert.Empty(t, res.Quiz)
			assert.Equal(t, tt.message, res.Notes.Message)
		})
	}
}

func TestClient_CanceledContextDegrades(t *testing.T) {
	c, _ := newTestClient(llm.MockResponse{Content: json.RawMessage(chillOutJSON)})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := c.Generate(ctx, "prompt")
	assert.True(t, res.Degraded())
	assert.Equal(t, ReasonUnavailable, res.Reason)
}

func TestClient_DropsInvalidItems(t *testing.T) {
	content := `{"quiz":[
		{"question":"ok","options":["a","b","c"],"answer_index":2},
		{"question":"two options","options":["a","b"],"answer_index":0},
		{"question":"bad index","options":["a","b","c","d"],"answer_index":4},
		{"question":"dupes","options":["a","A","b"],"answer_index":0}
	],"notes":{"message":"hi"}}`
	c, _ := newTestClient(llm.MockResponse{Content: json.RawMessage(content)})

	res := c.Generate(context.Background(), "prompt")

	assert.False(t, res.Degraded())
	require.Len(t, res.Quiz, 1)
	assert.Equal(t, "ok", res.Quiz[0].Question)
	assert.Equal(t, 3, res.Dropped)
	requireQuizInvariants(t, res)
}

func TestClient_AllItemsInvalid(t *testing.T) {
	content := `{"quiz":[{"question":"q","options":["only"],"answer_index":0}]}`
	c, _ := newTestClient(llm.MockResponse{Content: json.RawMessage(content)})

	res := c.Generate(context.Background(), "prompt")

	assert.True(t, res.Degraded())
	assert.Equal(t, ReasonNoUsableItems, res.Reason)
	assert.Equal(t, MsgNoUsableItems, res.Notes.Message)
	requireQuizInvariants(t, res)
}

func TestClient_EmptyQuizGetsMessage(t *testing.T) {
	c, _ := newTestClient(
		llm.MockResponse{Content: json.RawMessage(`{"quiz":[],"notes":{"skipped_phrases":["xyz - not a phrase"]}}`)},
		llm.MockResponse{Content: json.RawMessage(`{"quiz":[],"notes":{"message":"Nothing to quiz! 😅"}}`)},
	)

	first := c.Generate(context.Background(), "prompt")
	assert.False(t, first.Degraded())
	assert.Equal(t, MsgNoQuestions, first.Notes.Message)
	assert.Equal(t, []string{"xyz - not a phrase"}, first.Notes.SkippedPhrases)

	second := c.Generate(context.Background(), "prompt")
	assert.Equal(t, "Nothing to quiz! 😅", second.Notes.Message)
}

func TestClient_InvariantsHoldForArbitraryItems(t *testing.T) {
	// Sweep option counts and answer indexes around the valid range.
	mock := llm.NewMockProvider()
	n := 0
	mock.Handler = func(llm.Request) llm.MockResponse {
		n++
		opts := make([]string, n%7)
		for i := range opts {
			opts[i] = fmt.Sprintf("option %d", i)
		}
		body, _ := json.Marshal(Result{Quiz: []Item{{
			Question:    "q",
			Options:     opts,
			AnswerIndex: n%6 - 1,
		}}})
		return llm.MockResponse{Content: body}
	}
	c := NewClient(mock, DefaultConfig(), nil)

	for i := 0; i < 42; i++ {
		requireQuizInvariants(t, c.Generate(context.Background(), "prompt"))
	}
}

func TestCapPayload(t *testing.T) {
	small := []byte("abc")
	assert.Equal(t, "abc", capPayload(small))

	big := make([]byte, 5000)
	for i := range big {
		big[i] = 'x'
	}
	got := capPayload(big)
	assert.Len(t, got, maxLoggedPayload+len("...(truncated)"))
}

// openAIQuizServer answers every chat completion with content.
func openAIQuizServer(t *testing.T, content string) llm.Provider {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-quiz",
			"object":  "chat.completion",
			"created": 1700000000,
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
			"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 20, "total_tokens": 30},
		})
	}))
	t.Cleanup(server.Close)

	p, err := llm.NewOpenAIProvider(llm.OpenAIConfig{APIKey: "test-key", BaseURL: server.URL + "/v1"})
	require.NoError(t, err)
	return p
}

func TestClient_IncompleteItemDroppedOverProvider(t *testing.T) {
	content := `{
		"quiz": [
			{"question": "What does \"chill out\" mean?", "options": ["Get angry", "Relax", "Work harder"], "answer_index": 1},
			{"question": "Pick the synonym of \"hang out\"", "options": ["Spend time", "Leave", "Sleep"]}
		],
		"notes": {"message": "Nice!", "skipped_phrases": null, "corrections": null}
	}`
	c := NewClient(openAIQuizServer(t, content), DefaultConfig(), logger.Nop())

	res := c.Generate(context.Background(), BuildPrompt(LevelB1, "chill out, hang out"))

	require.False(t, res.Degraded(), "reason %q", res.Reason)
	require.Len(t, res.Quiz, 1)
	assert.Equal(t, 1, res.Dropped)
	assert.Equal(t, "Relax", res.Quiz[0].Options[res.Quiz[0].AnswerIndex])
	assert.Equal(t, DefaultExplanation, res.Quiz[0].Explanation)
	assert.Nil(t, res.Notes.SkippedPhrases)
	assert.Nil(t, res.Notes.Corrections)
	requireQuizInvariants(t, res)
}

func TestClient_NullNotesOverProvider(t *testing.T) {
	content := `{"quiz": [{"question": "Q?", "options": ["a", "b", "c"], "answer_index": 2, "explanation": null}], "notes": null}`
	c := NewClient(openAIQuizServer(t, content), DefaultConfig(), logger.Nop())

	res := c.Generate(context.Background(), BuildPrompt(LevelA2, "q"))

	require.False(t, res.Degraded(), "reason %q", res.Reason)
	require.Len(t, res.Quiz, 1)
	assert.Equal(t, 2, res.Quiz[0].AnswerIndex)
	requireQuizInvariants(t, res)
}

func TestItem_MissingAnswerIndexIsInvalid(t *testing.T) {
	for _, raw := range []string{
		`{"question": "Q?", "options": ["a", "b", "c"]}`,
		`{"question": "Q?", "options": ["a", "b", "c"], "answer_index": null}`,
	} {
		var item Item
		require.NoError(t, json.Unmarshal([]byte(raw), &item))
		assert.Equal(t, -1, item.AnswerIndex, raw)

		kept, rejected := Normalize([]Item{item}, DefaultExplanation)
		assert.Empty(t, kept, raw)
		require.Len(t, rejected, 1, raw)
		assert.Equal(t, "answer-index", rejected[0].Validator)
	}
}

func TestClient_AuditLogKeepsNoQuizContent(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	mock := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(chillOutJSON)})
	provider := llm.WithLogging(mock, "mock", st.EventRepo(), logger.Nop())
	c := NewClient(provider, DefaultConfig(), logger.Nop())

	res := c.Generate(context.Background(), BuildPrompt(LevelB1, "my private note: chill out"))
	require.Len(t, res.Quiz, 1)

	events, err := st.EventRepo().QueryLLMEvents(context.Background(), store.QueryOpts{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Positive(t, events[0].RequestBytes)
	assert.Equal(t, len(chillOutJSON), events[0].ResponseBytes)

	// Scan every stored value, not just the mapped fields.
	rows, err := st.DB().Query("SELECT * FROM llm_requests")
	require.NoError(t, err)
	defer rows.Close()
	cols, err := rows.Columns()
	require.NoError(t, err)
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		require.NoError(t, rows.Scan(ptrs...))
		for i, v := range vals {
			text := fmt.Sprint(v)
			if b, ok := v.([]byte); ok {
				text = string(b)
			}
			assert.NotContains(t, text, "private note", cols[i])
			assert.False(t, strings.Contains(text, "Relax"), "column %s holds quiz content", cols[i])
		}
	}
	require.NoError(t, rows.Err())
}
