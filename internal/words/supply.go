// Package words provides the embedded word banks the game draws from.
package words

import (
	"embed"
	"math/rand"
	"strings"

	"github.com/aliasflow/alias-game-backend/internal/game"
)

//go:embed data/*.txt
var dataFS embed.FS

// Supply hands out shuffled word banks filtered by difficulty and
// language. It satisfies game.WordSupply.
type Supply struct {
	lists map[game.Language]map[game.Difficulty][]string
}

func NewSupply() *Supply {
	s := &Supply{lists: make(map[game.Language]map[game.Difficulty][]string)}
	for _, lang := range []game.Language{game.LanguageEnglish, game.LanguageRussian} {
		s.lists[lang] = make(map[game.Difficulty][]string)
		for _, diff := range []game.Difficulty{game.DifficultyEasy, game.DifficultyMedium, game.DifficultyHard} {
			s.lists[lang][diff] = load(string(lang) + "_" + string(diff))
		}
	}
	return s
}

func load(name string) []string {
	raw, err := dataFS.ReadFile("data/" + name + ".txt")
	if err != nil {
		return nil
	}
	var words []string
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	return words
}

// Draw returns up to n words for the given difficulty and language,
// shuffled. Mixed pulls from all three difficulties. Unknown languages
// fall back to English.
func (s *Supply) Draw(n int, difficulty game.Difficulty, language game.Language) []string {
	byDiff, ok := s.lists[language]
	if !ok {
		byDiff = s.lists[game.LanguageEnglish]
	}

	var pool []string
	if difficulty == game.DifficultyMixed {
		for _, diff := range []game.Difficulty{game.DifficultyEasy, game.DifficultyMedium, game.DifficultyHard} {
			pool = append(pool, byDiff[diff]...)
		}
	} else {
		pool = append(pool, byDiff[difficulty]...)
	}

	rand.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	if n > 0 && n < len(pool) {
		pool = pool[:n]
	}
	return pool
}
