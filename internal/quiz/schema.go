package quiz

import "github.com/quizpal/quizpal/internal/llm"

// nullable lets a field be null as well as the given type.
func nullable(t string) []any { return []any{t, "null"} }

// ResultSchema is the JSON contract requested from the model. Only the
// top-level `quiz` array is required. Item fields may be missing or null so
// one incomplete question is dropped by NormalizeWith instead of failing the
// whole response.
var ResultSchema = &llm.Schema{
	Name:        "quiz-result",
	Description: "English vocabulary quiz questions with notes for the learner",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"quiz": map[string]any{
				"type":        "array",
				"description": "One question per input phrase",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"question": map[string]any{
							"type":        nullable("string"),
							"description": "Question text, under 100 characters",
						},
						"options": map[string]any{
							"type":        nullable("array"),
							"items":       map[string]any{"type": nullable("string")},
							"description": "Exactly 3 or 4 distinct options, one correct",
						},
						"answer_index": map[string]any{
							"type":        nullable("integer"),
							"description": "0-based index of the correct option, randomly placed",
						},
						"explanation": map[string]any{
							"type":        nullable("string"),
							"description": "Why each option is right or wrong, under 200 characters",
						},
					},
				},
			},
			"notes": map[string]any{
				"type": nullable("object"),
				"properties": map[string]any{
					"message": map[string]any{
						"type":        nullable("string"),
						"description": "Friendly motivational message with 1-2 emojis",
					},
					"skipped_phrases": map[string]any{
						"type":  nullable("array"),
						"items": map[string]any{"type": nullable("string")},
					},
					"corrections": map[string]any{
						"type":  nullable("array"),
						"items": map[string]any{"type": nullable("string")},
					},
				},
			},
		},
		"required": []any{"quiz"},
	},
}
