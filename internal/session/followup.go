package session

import (
	"fmt"
	"strings"

	"github.com/quizpal/quizpal/internal/quiz"
)

// ComposeFollowUp builds the note sent after a quiz: the AI's message,
// skipped phrases and corrections under one header. Without any notes it
// falls back to a "quiz ready" line, or "all done" when nothing was quizzed.
func ComposeFollowUp(res quiz.Result) string {
	var parts []string
	if msg := strings.TrimSpace(res.Notes.Message); msg != "" {
		parts = append(parts, msg)
	}
	if len(res.Notes.SkippedPhrases) > 0 {
		parts = append(parts, fmt.Sprintf(SkippedFormat, strings.Join(res.Notes.SkippedPhrases, ", ")))
	}
	if len(res.Notes.Corrections) > 0 {
		parts = append(parts, fmt.Sprintf(CorrectionFormat, strings.Join(res.Notes.Corrections, ", ")))
	}

	switch {
	case len(parts) > 0:
		return FollowUpHeader + "\n" + strings.Join(parts, "\n") + "\n\n" + FollowUpClosing
	case len(res.Quiz) > 0:
		return QuizReadyText
	default:
		return AllDoneText
	}
}
