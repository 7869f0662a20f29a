package quiz

import (
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"
)

// Normalize cleans items with the default validator chain. See NormalizeWith.
func Normalize(items []Item, defaultExplanation string) ([]Item, []*ValidationError) {
	return NormalizeWith(items, defaultExplanation, DefaultValidators())
}

// NormalizeWith trims and truncates every item to the poll limits, drops
// blank options (re-pointing the answer index), fills in a missing
// explanation and then runs validators. Items failing any validator are
// dropped; the returned errors say why. Order is preserved.
func NormalizeWith(items []Item, defaultExplanation string, validators []Validator) ([]Item, []*ValidationError) {
	kept := make([]Item, 0, len(items))
	var rejected []*ValidationError

	for i, raw := range items {
		item := normalizeItem(raw, defaultExplanation)

		var verr *ValidationError
		for _, v := range validators {
			if verr = v.Validate(item); verr != nil {
				verr.Index = i
				break
			}
		}
		if verr != nil {
			rejected = append(rejected, verr)
			continue
		}
		kept = append(kept, item)
	}
	return kept, rejected
}

func normalizeItem(item Item, defaultExplanation string) Item {
	out := Item{
		Question:    truncateRunes(strings.TrimSpace(item.Question), MaxQuestionRunes),
		AnswerIndex: -1,
		Explanation: truncateRunes(strings.TrimSpace(item.Explanation), MaxExplanationRunes),
	}
	if out.Explanation == "" {
		out.Explanation = truncateRunes(defaultExplanation, MaxExplanationRunes)
	}

	// Blank options are dropped; a blank correct option leaves the index
	// at -1 so the item is rejected.
	for i, opt := range item.Options {
		opt = truncateRunes(strings.TrimSpace(opt), MaxOptionRunes)
		if opt == "" {
			continue
		}
		if i == item.AnswerIndex {
			out.AnswerIndex = len(out.Options)
		}
		out.Options = append(out.Options, opt)
	}
	return out
}

// truncateRunes cuts s to at most n runes, marking the cut with an ellipsis.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n-1])) + "…"
}

// cleanPhrases trims entries and removes blanks and repeats.
func cleanPhrases(in []string) []string {
	out := lo.Uniq(lo.Compact(lo.Map(in, func(s string, _ int) string {
		return strings.TrimSpace(s)
	})))
	if len(out) == 0 {
		return nil
	}
	return out
}
