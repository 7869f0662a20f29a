package quiz

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// Item limits. Questions are held to 100 runes, well under the platform's
// 300; options and explanations match the poll limits.
const (
	MaxQuestionRunes    = 100
	MaxOptionRunes      = 100
	MaxExplanationRunes = 200
	MinOptions          = 3
	MaxOptions          = 4
)

// Validator checks a normalized item before it is delivered.
// Implementations should be stateless and safe for concurrent use.
type Validator interface {
	// Name returns a short identifier used in logs.
	Name() string

	// Validate returns nil if the item can be sent as a poll.
	Validate(item Item) *ValidationError
}

// ValidationError describes why an item was dropped.
type ValidationError struct {
	Validator string
	Index     int
	Message   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("item %d: validator %q: %s", e.Index, e.Validator, e.Message)
}

// DefaultValidators is the chain used for AI output and puzzle files.
func DefaultValidators() []Validator {
	return []Validator{
		StructuralValidator{},
		OptionsValidator{},
		AnswerIndexValidator{},
	}
}

// StructuralValidator checks the question text.
type StructuralValidator struct{}

func (StructuralValidator) Name() string { return "structural" }

func (v StructuralValidator) Validate(item Item) *ValidationError {
	if item.Question == "" {
		return &ValidationError{Validator: v.Name(), Message: "question is empty"}
	}
	return nil
}

// OptionsValidator enforces 3-4 non-empty, distinct options.
type OptionsValidator struct{}

func (OptionsValidator) Name() string { return "options" }

func (v OptionsValidator) Validate(item Item) *ValidationError {
	n := len(item.Options)
	if n < MinOptions || n > MaxOptions {
		return &ValidationError{
			Validator: v.Name(),
			Message:   fmt.Sprintf("need %d-%d options, got %d", MinOptions, MaxOptions, n),
		}
	}
	if lo.Contains(item.Options, "") {
		return &ValidationError{Validator: v.Name(), Message: "empty option"}
	}
	if len(lo.UniqBy(item.Options, strings.ToLower)) != n {
		return &ValidationError{Validator: v.Name(), Message: "duplicate options"}
	}
	return nil
}

// AnswerIndexValidator checks that the answer points at an option.
type AnswerIndexValidator struct{}

func (AnswerIndexValidator) Name() string { return "answer-index" }

func (v AnswerIndexValidator) Validate(item Item) *ValidationError {
	if item.AnswerIndex < 0 || item.AnswerIndex >= len(item.Options) {
		return &ValidationError{
			Validator: v.Name(),
			Message:   fmt.Sprintf("answer_index %d out of range for %d options", item.AnswerIndex, len(item.Options)),
		}
	}
	return nil
}
