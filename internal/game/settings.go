package game

import "errors"

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
	DifficultyMixed  Difficulty = "mixed"
)

type Language string

const (
	LanguageEnglish Language = "en"
	LanguageRussian Language = "ru"
)

const (
	MinRoundTimeSec = 30
	MaxRoundTimeSec = 180
	MinWordsToWin   = 10
	MaxWordsToWin   = 100
)

// Settings is the host-editable match configuration. Team names are
// keyed by team slot and applied to teams as they are created.
type Settings struct {
	RoundTime  int            `json:"roundTime"` // seconds
	WordsToWin int            `json:"wordsToWin"`
	Difficulty Difficulty     `json:"difficulty"`
	Language   Language       `json:"language"`
	TeamNames  map[int]string `json:"teamNames,omitempty"`
}

func (s Settings) Validate() error {
	if s.RoundTime < MinRoundTimeSec || s.RoundTime > MaxRoundTimeSec {
		return errors.New("round time must be between 30 and 180 seconds")
	}
	if s.WordsToWin < MinWordsToWin || s.WordsToWin > MaxWordsToWin {
		return errors.New("words to win must be between 10 and 100")
	}
	switch s.Difficulty {
	case DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyMixed:
	default:
		return errors.New("invalid difficulty level")
	}
	switch s.Language {
	case LanguageEnglish, LanguageRussian:
	default:
		return errors.New("invalid language")
	}
	return nil
}
