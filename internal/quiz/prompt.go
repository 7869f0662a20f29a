package quiz

import (
	"fmt"
	"strings"
)

// broadRange is used when the learner has not picked a level yet.
const broadRange = "A2-C1"

// levelGuidance calibrates vocabulary, grammar and distractors per tier.
var levelGuidance = []struct {
	level Level
	text  string
}{
	{LevelA1, "Use simple vocabulary, basic sentence structures, and familiar contexts (e.g., daily routines). Distractors are obviously distinct but plausible."},
	{LevelA2, "Introduce slightly more complex vocabulary and simple grammar (e.g., present simple, basic prepositions). Distractors are closer in meaning."},
	{LevelB1, "Include intermediate grammar (e.g., past simple, comparatives) and moderately complex contexts. Distractors test common learner errors."},
	{LevelB2, "Use advanced vocabulary, phrasal verbs, and grammar (e.g., conditionals, modals). Distractors are nuanced and context-based."},
	{LevelC1, "Incorporate idiomatic expressions, complex grammar (e.g., subjunctive, mixed conditionals), and subtle contextual differences. Distractors are highly plausible."},
	{LevelC2, "Use sophisticated vocabulary, nuanced idioms, and advanced grammar (e.g., inversion, cleft sentences). Questions test deep understanding; distractors are very close to the correct answer."},
}

const promptTask = `**Task**:
- Generate a quiz with exactly one question per input phrase or word.
- Each question must test the learner's understanding of the phrase or word's meaning, usage, or context.
- Use varied question types: Multiple-choice, Fill-in-the-blank, Matching, or Contextual usage. Rotate question types so the same type is never used more than twice in a row.
- Keep questions clear and concise (under 100 characters).
- Every question must have exactly 3 or 4 answer options:
  - Multiple-choice: options test the phrase's meaning, one correct.
  - Fill-in-the-blank: a sentence with a blank, one correct phrase and plausible distractors.
  - Matching: a phrase and its possible meanings, one correct.
  - Contextual usage: a scenario and candidate phrases, one correct.
- Avoid repetitive phrasing (not "What's the meaning of..." for every question).

**Input**:
- The input is a list of English phrases or words, separated by commas or newlines (e.g., "chill out, spill the beans, worn out").
- If a phrase is misspelled or slightly wrong, work out what the learner meant, correct it and record the correction.

**Output Format**:
Return a JSON object with exactly two top-level keys:
- "quiz": an array of objects, each with:
  - "question": question text (under 100 characters).
  - "options": an array of exactly 3 or 4 distinct strings (one correct, the rest plausible distractors).
  - "answer_index": integer index of the correct option (0-3 for 4 options, 0-2 for 3 options).
  - "explanation": a brief explanation (under 200 characters) of why the options are right or wrong, in simple words. Do not restate which option is correct.
- "notes": an object with:
  - "skipped_phrases": array of phrases you skipped, each with a short reason (e.g., "xyz - not a recognized phrase").
  - "corrections": array of strings describing corrections (e.g., "Changed 'chil out' to 'chill out'").
  - "message": a friendly, motivational message with 1-2 emojis.

**Constraints**:
- Exactly 3 or 4 options per question, with exactly one correct answer.
- The position of the correct answer MUST be randomized. "answer_index" must be a genuinely random position, not predominantly 0 or any other fixed index.
- Options must be plausible, distinct, and educational.
- Never use the same question type more than twice consecutively.
- Keep questions and options short enough for a chat poll.
- Avoid obscure vocabulary or cultural references.

**Error Handling**:
- Skip unclear or unrecognized phrases and list them in notes.skipped_phrases with a reason.
- Correct minor spelling or grammar errors and list them in notes.corrections.
- If the input is empty, generate 3 sample questions on common idioms and set notes.message to explain that no input was provided (e.g., "No input provided, here are sample questions! 😄").

**Tone and Style**:
- Use a friendly, encouraging tone in notes.message.
- Keep language clear and accessible for non-native speakers.

**Example Output**:
{
  "quiz": [
    {
      "question": "Q1",
      "options": ["Option 1", "Option 2", "Option 3", "Option 4"],
      "answer_index": 3,
      "explanation": "Short explanation of why each option is correct or incorrect"
    },
    {
      "question": "Q2",
      "options": ["Option 1", "Option 2", "Option 3"],
      "answer_index": 0,
      "explanation": "Short explanation of why each option is correct or incorrect"
    }
  ],
  "notes": {
    "skipped_phrases": [],
    "corrections": [],
    "message": "Awesome! Keep practicing these phrases! 😊🌟"
  }
}

**Response**:
- Return only the JSON object, with no additional text, comments, or Markdown code fences.
`

// BuildPrompt renders the quiz instruction for a learner level and the raw
// text they sent. An empty level targets a broad intermediate range.
func BuildPrompt(level Level, input string) string {
	target := string(level)
	if target == "" {
		target = broadRange
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are an expert English teacher creating engaging quizzes for English learners at the %s level "+
		"to improve their understanding of idiomatic phrases and vocabulary. "+
		"Generate a quiz from the learner's phrases or words; each question has exactly 3 or 4 answer options "+
		"(one correct, the rest plausible distractors).\n\n", target)

	b.WriteString("**CEFR Level Guidance**:\n")
	for _, g := range levelGuidance {
		fmt.Fprintf(&b, "%s: %s\n", g.level, g.text)
	}
	fmt.Fprintf(&b, "The learner's level is %s. Adapt vocabulary and grammar in questions, options and explanations to it.\n\n", target)

	b.WriteString(promptTask)

	b.WriteString("\n**User Input:**\n")
	b.WriteString(strings.TrimSpace(input))
	return b.String()
}
