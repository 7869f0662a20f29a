package quiz

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Level is a CEFR proficiency tier.
type Level string

const (
	LevelA1 Level = "A1"
	LevelA2 Level = "A2"
	LevelB1 Level = "B1"
	LevelB2 Level = "B2"
	LevelC1 Level = "C1"
	LevelC2 Level = "C2"
)

// Levels lists every tier from lowest to highest.
var Levels = []Level{LevelA1, LevelA2, LevelB1, LevelB2, LevelC1, LevelC2}

// ParseLevel accepts a tier name in any case. The empty string is rejected;
// callers that allow an unset level check for it first.
func ParseLevel(s string) (Level, error) {
	l := Level(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Levels {
		if l == known {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown level %q", s)
}

// Item is one quiz question, rendered as a single-answer poll.
type Item struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	AnswerIndex int      `json:"answer_index"`
	Explanation string   `json:"explanation,omitempty"`
}

// UnmarshalJSON leaves AnswerIndex at -1 when answer_index is missing or
// null, so the item fails validation instead of marking option 0 correct.
func (it *Item) UnmarshalJSON(b []byte) error {
	type plain Item
	p := plain{AnswerIndex: -1}
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*it = Item(p)
	return nil
}

// Notes is the AI's side channel: what it skipped, what it fixed, and a
// short motivational message.
type Notes struct {
	Message        string   `json:"message"`
	SkippedPhrases []string `json:"skipped_phrases"`
	Corrections    []string `json:"corrections"`
}

// Outcome tags a Result as a normal answer or a recovered failure.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeDegraded
)

func (o Outcome) String() string {
	if o == OutcomeDegraded {
		return "degraded"
	}
	return "ok"
}

// Reason explains a degraded Result.
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonBlocked       Reason = "blocked"
	ReasonEmpty         Reason = "empty"
	ReasonMalformed     Reason = "malformed"
	ReasonUnavailable   Reason = "unavailable"
	ReasonNoUsableItems Reason = "no_usable_items"
)

// Result is what quiz generation hands back. An empty Quiz always comes
// with a non-empty Notes.Message.
type Result struct {
	Quiz  []Item `json:"quiz"`
	Notes Notes  `json:"notes"`

	Outcome Outcome `json:"-"`
	Reason  Reason  `json:"-"`

	// Dropped counts items removed by normalization.
	Dropped int `json:"-"`
}

// Degraded reports whether the result stands in for a failed generation.
func (r Result) Degraded() bool {
	return r.Outcome == OutcomeDegraded
}
