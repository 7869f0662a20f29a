package session

// Chat texts. Kept plain so no parse mode is needed.
const (
	WelcomeText = "🎉 Welcome to the Quiz Bot! 🎉\n" +
		"I'm here to turn your notes into fun quizzes! 📚\n\n" +
		"First, please select your English language level:"

	LevelSetTextFormat = "Great! Your level is set to %s. ✨\n" +
		"💬 Write a sentence/word/phrase/.. in English.\n" +
		"I'll catch your grammar mistakes and quiz you on it! 🔥(No idea? send me a color/object/..)"
	LevelSaveFailedText = "Sorry, there was an issue saving your level. Please try /start again. 😥"
	LevelUnknownText    = "Hmm, I don't know that level. Please pick one of the buttons. 🙏"

	LevelRequiredText = "Please set your English level first using the /start command. Then send your notes!"
	AcknowledgeText   = "🔍 Got your notes! Generating a fun quiz for you... This might take a moment. 😊"
	PollFailedText    = "😓 Oops, there was an issue sending one of the quiz questions. Let's try the rest or you can send new notes."

	FollowUpHeader   = "📝 A quick note:"
	FollowUpClosing  = "The world of knowledge is endless! Don't you want to learn more? I'm here and all ears! 👂"
	QuizReadyText    = "🎯 Your quiz is ready! Answer the questions above and let's see how you do! 😄"
	AllDoneText      = "All done for now! 😄"
	SkippedFormat    = "⚠️ I skipped some parts that weren't clear: %s."
	CorrectionFormat = "✅ I made these corrections: %s."

	SettingsTextFormat = "⚙️ Bot Settings ⚙️\n\n" +
		"📝 Current Status:\n" +
		"🌎 English Level: %s\n" +
		"🧩 Sending Daily Puzzle: %s"
	LevelNotSet = "not set"

	DailyOnText = "Your daily puzzle has been successfully activated. ✅\n\n" +
		"Daily quiz puzzle is so fun and can improve your English significantly\n" +
		"As a strong start, in addition to the daily quiz, send notes to be turned into quizzes😉"
	DailyOffText = "Your daily puzzle has been successfully deactivated. ✅\n\n" +
		"But daily quiz puzzle is so helpful and fun, don't you wanna activate it again😢?\n" +
		"Although I'm still here to turn your notes into fun quizzes😉. Just send me!"
	SettingSaveFailedText = "Sorry, I couldn't save that setting. Please try again in a moment. 😥"

	HelpText = "📚 QuizPal turns your English notes into quizzes!\n\n" +
		"/start - choose your English level\n" +
		"/settings - change your level or the daily puzzle\n" +
		"/help - show this message\n\n" +
		"Send me words, phrases or sentences and I'll make a quiz from them. 🧩"
	UnknownCommandText = "🤔 I don't know that command. Try /start, /settings or /help."
	InternalErrorText  = "😥 Oh no, something went a bit sideways on my end! " +
		"I've noted it down. Please try again in a moment or use /start to reset. Let's keep the fun going! 🎈"
)
