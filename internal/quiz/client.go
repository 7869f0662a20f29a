package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/quizpal/quizpal/internal/llm"
	"github.com/quizpal/quizpal/internal/logger"
)

// User-facing messages for degraded results.
const (
	MsgBlocked       = "🚫 I can't make a quiz from that text because it was flagged by content filters. Please try some different words or phrases! 🙏"
	MsgEmpty         = "🤔 I didn't get anything back while building your quiz. Please try again in a moment!"
	MsgMalformed     = "😵 I had trouble understanding the quiz I generated. Please try again or rephrase your notes."
	MsgUnavailable   = "😓 Oops, something went wrong while creating your quiz. Please try again or send different notes."
	MsgNoUsableItems = "🤔 I couldn't build proper questions from that. Try sending a few English words or phrases!"
	MsgNoQuestions   = "No questions this time. Send me some English words or phrases and I'll quiz you! 😊"
)

// maxLoggedPayload caps raw model output copied into logs.
const maxLoggedPayload = 1024

// Client turns a rendered prompt into a Result. It never returns an error:
// every failure at the AI boundary becomes a degraded Result.
type Client struct {
	provider llm.Provider
	config   Config
	log      *logger.Logger
}

// NewClient creates a Client with the given provider and config.
func NewClient(provider llm.Provider, cfg Config, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.Validators == nil {
		cfg.Validators = DefaultValidators()
	}
	return &Client{provider: provider, config: cfg, log: log.With("component", "quiz")}
}

// Generate asks the model for a quiz and normalizes the answer.
func (c *Client) Generate(ctx context.Context, prompt string) Result {
	ctx = llm.WithPurpose(ctx, llm.PurposeQuiz)
	if c.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Timeout)
		defer cancel()
	}

	req := llm.UserPrompt(prompt, ResultSchema)
	req.MaxTokens = c.config.MaxTokens
	req.Temperature = c.config.Temperature

	resp, err := c.provider.Generate(ctx, req)
	if err != nil {
		return c.degradedFromError(ctx, err)
	}

	var res Result
	if err := json.Unmarshal(resp.Content, &res); err != nil {
		c.log.Error("decode quiz result",
			"request_id", llm.RequestIDFrom(ctx), "error", err, "raw", capPayload(resp.Content))
		return degraded(ReasonMalformed, MsgMalformed)
	}

	return c.finish(ctx, res)
}

// finish normalizes a parsed result and enforces the empty-quiz invariant.
func (c *Client) finish(ctx context.Context, res Result) Result {
	received := len(res.Quiz)
	items, rejected := NormalizeWith(res.Quiz, c.config.DefaultExplanation, c.config.Validators)
	for _, r := range rejected {
		c.log.Warn("dropped quiz item", "request_id", llm.RequestIDFrom(ctx), "reason", r.Error())
	}

	res.Quiz = items
	res.Dropped = len(rejected)
	res.Notes.Message = strings.TrimSpace(res.Notes.Message)
	res.Notes.SkippedPhrases = cleanPhrases(res.Notes.SkippedPhrases)
	res.Notes.Corrections = cleanPhrases(res.Notes.Corrections)
	res.Outcome = OutcomeOK

	if len(res.Quiz) == 0 {
		if received > 0 {
			res.Outcome = OutcomeDegraded
			res.Reason = ReasonNoUsableItems
			if res.Notes.Message == "" {
				res.Notes.Message = MsgNoUsableItems
			}
		} else if res.Notes.Message == "" {
			res.Notes.Message = MsgNoQuestions
		}
	}

	c.log.Info("quiz generated",
		"request_id", llm.RequestIDFrom(ctx), "items", len(res.Quiz), "dropped", res.Dropped,
		"outcome", res.Outcome.String())
	return res
}

func (c *Client) degradedFromError(ctx context.Context, err error) Result {
	reqID := llm.RequestIDFrom(ctx)

	var (
		blocked *llm.ErrBlocked
		empty   *llm.ErrEmptyResponse
		invalid *llm.ErrInvalidResponse
	)
	switch {
	case errors.As(err, &blocked):
		c.log.Warn("quiz request blocked", "request_id", reqID, "reason", blocked.Reason)
		return degraded(ReasonBlocked, MsgBlocked)
	case errors.As(err, &empty):
		c.log.Warn("empty quiz response", "request_id", reqID, "provider", empty.Provider)
		return degraded(ReasonEmpty, MsgEmpty)
	case errors.As(err, &invalid):
		c.log.Error("invalid quiz response",
			"request_id", reqID, "error", invalid.Err, "raw", capPayload(invalid.Content))
		return degraded(ReasonMalformed, MsgMalformed)
	default:
		c.log.Error("quiz generation failed", "request_id", reqID, "error", err)
		return degraded(ReasonUnavailable, MsgUnavailable)
	}
}

func degraded(reason Reason, message string) Result {
	return Result{
		Quiz:    []Item{},
		Notes:   Notes{Message: message},
		Outcome: OutcomeDegraded,
		Reason:  reason,
	}
}

func capPayload(b []byte) string {
	if len(b) <= maxLoggedPayload {
		return string(b)
	}
	return string(b[:maxLoggedPayload]) + "...(truncated)"
}
