package quiz

import "time"

// Default explanations attached when an item arrives without one.
const (
	DefaultExplanation      = "Great job! Keep practicing to master this topic! 🌟"
	DailyDefaultExplanation = "This was your daily challenge! Keep it up! 💪"
)

// Config controls the behavior of the Client.
type Config struct {
	// Validators run, in order, on every normalized item. An item that
	// fails any of them is dropped.
	Validators []Validator

	// MaxTokens is the token budget for the LLM response. Zero leaves the
	// provider default.
	MaxTokens int

	// Temperature controls LLM output randomness (0.0-1.0). Zero leaves
	// the provider default.
	Temperature float64

	// Timeout bounds one generation, retries included.
	Timeout time.Duration

	// DefaultExplanation fills in items without an explanation.
	DefaultExplanation string
}

// DefaultConfig returns a Config with the standard validator chain
// and recommended defaults.
func DefaultConfig() Config {
	return Config{
		Validators:         DefaultValidators(),
		MaxTokens:          2048,
		Timeout:            30 * time.Second,
		DefaultExplanation: DefaultExplanation,
	}
}
