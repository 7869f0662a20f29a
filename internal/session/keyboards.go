package session

import (
	"github.com/quizpal/quizpal/internal/messaging"
	"github.com/quizpal/quizpal/internal/quiz"
)

// Callback data understood by HandleCallback.
const (
	CallbackLevelPrefix   = "level_"
	CallbackSettingsLevel = "settings_english_level"
	CallbackSettingsDaily = "settings_daily_puzzle"
	CallbackDailyOn       = "settings_daily_on"
	CallbackDailyOff      = "settings_daily_off"
)

// LevelKeyboard lists the six levels, two per row.
func LevelKeyboard() messaging.Keyboard {
	var kb messaging.Keyboard
	for i := 0; i < len(quiz.Levels); i += 2 {
		row := []messaging.Button{}
		for _, l := range quiz.Levels[i:min(i+2, len(quiz.Levels))] {
			row = append(row, messaging.Button{Text: string(l), Data: CallbackLevelPrefix + string(l)})
		}
		kb = append(kb, row)
	}
	return kb
}

// SettingsKeyboard is attached to the /settings summary.
func SettingsKeyboard() messaging.Keyboard {
	return messaging.Keyboard{
		{{Text: "English Level", Data: CallbackSettingsLevel}},
		{{Text: "Daily Puzzle", Data: CallbackSettingsDaily}},
	}
}

// DailyKeyboard toggles the daily puzzle.
func DailyKeyboard() messaging.Keyboard {
	return messaging.Keyboard{
		{{Text: "✅ Active", Data: CallbackDailyOn}},
		{{Text: "❌ Deactive", Data: CallbackDailyOff}},
	}
}
