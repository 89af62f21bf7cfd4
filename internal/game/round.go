package game

import "time"

// RoundResult summarizes a finished round for the round-ended event.
type RoundResult struct {
	Guessed   int            `json:"guessed"`
	Skipped   int            `json:"skipped"`
	TeamScore int            `json:"teamScore"`
	History   []HistoryEntry `json:"wordHistory"`
}

// GuessResult is the outcome of resolving one word. While the timer
// has not expired it carries the next word; after expiry the round is
// closed and the result distinguishes a plain end from one where a
// team has already crossed the win threshold.
type GuessResult struct {
	NextWord    string
	HasNext     bool
	RoundEnded  bool
	Round       RoundResult
	GameWillEnd bool
	Winner      int
}

// GameResult is the payload of the game-ended event.
type GameResult struct {
	Winner      int         `json:"winner"`
	FinalScores map[int]int `json:"finalScores"`
	Teams       []Team      `json:"teams"`
}

// GuessWord consumes the current word. A correct guess scores +1, an
// incorrect one (or skip) -1 clamped at zero. If the round timer has
// already expired, resolving this word also ends the round.
func (r *Room) GuessWord(correct bool) (GuessResult, error) {
	if r.round == nil || !r.round.Active {
		return GuessResult{}, ErrNoActiveRound
	}
	if r.round.WordIndex >= len(r.words) {
		return GuessResult{}, ErrNoMoreWords
	}

	word := r.words[r.round.WordIndex]
	r.used[word] = struct{}{}

	r.round.History = append(r.round.History, HistoryEntry{
		Word:      word,
		Correct:   correct,
		Timestamp: time.Now().UnixMilli(),
	})

	if correct {
		r.round.WordsGuessed = append(r.round.WordsGuessed, word)
		r.scores[r.round.TeamID]++
	} else {
		r.round.WordsSkipped = append(r.round.WordsSkipped, word)
		if r.scores[r.round.TeamID] > 0 {
			r.scores[r.round.TeamID]--
		}
	}

	r.round.WordIndex++

	if r.round.TimerExpired {
		result, _ := r.EndRound()
		out := GuessResult{RoundEnded: true, Round: result}
		if winner, ok := r.CheckWinner(); ok {
			out.GameWillEnd = true
			out.Winner = winner
		}
		return out, nil
	}

	next, ok := r.CurrentWord()
	return GuessResult{NextWord: next, HasNext: ok}, nil
}

// CheckWinner scans teams in insertion order for the first one at or
// past the win threshold. Ties break on iteration order, not score.
func (r *Room) CheckWinner() (int, bool) {
	for _, team := range r.teams {
		if r.scores[team.ID] >= r.Settings.WordsToWin {
			return team.ID, true
		}
	}
	return 0, false
}

// AdjustWordScores lets the explainer correct history entries once per
// round. Each adjustment is a delta from the entry's currently
// effective value (a prior adjustment, or the original ±1); the summed
// delta is applied to the team score in one shot, clamped at zero.
func (r *Room) AdjustWordScores(adjustments map[int]int) error {
	if r.round == nil {
		return ErrNoActiveRound
	}
	if r.scoresAdjusted {
		return ErrScoresAdjusted
	}
	for _, value := range adjustments {
		if value < -1 || value > 1 {
			return ErrBadAdjustment
		}
	}

	delta := 0
	for index, value := range adjustments {
		if index < 0 || index >= len(r.round.History) {
			continue
		}
		entry := &r.round.History[index]
		current := -1
		if entry.Correct {
			current = 1
		}
		if entry.Adjusted {
			current = entry.AdjustedValue
		}
		delta += value - current

		entry.Correct = value == 1
		entry.Adjusted = true
		entry.AdjustedValue = value
	}

	score := r.scores[r.round.TeamID] + delta
	if score < 0 {
		score = 0
	}
	r.scores[r.round.TeamID] = score
	r.scoresAdjusted = true
	return nil
}

// EndRound deactivates the round, archives a snapshot of it, and opens
// the intermission.
func (r *Room) EndRound() (RoundResult, error) {
	if r.round == nil {
		return RoundResult{}, ErrNoActiveRound
	}
	r.round.Active = false
	r.history = append(r.history, *r.round)
	r.awaitingNextRound = true

	return RoundResult{
		Guessed:   len(r.round.WordsGuessed),
		Skipped:   len(r.round.WordsSkipped),
		TeamScore: r.scores[r.round.TeamID],
		History:   copyHistory(r.round.History),
	}, nil
}

// ConfirmScoresReady records the outgoing explainer's sign-off on the
// round's (possibly adjusted) scores. Adjustments may have pushed a
// team past the threshold, so the winner check runs again here and
// ends the game immediately when it hits.
func (r *Room) ConfirmScoresReady() (gameEnded bool, result GameResult) {
	r.explainerConfirmed = true
	if winner, ok := r.CheckWinner(); ok {
		return true, r.EndGame(winner)
	}
	return false, GameResult{}
}

func (r *Room) ConfirmReadyForNextRound() {
	r.readyForNextRound = true
}

// MarkTimerExpired flags the round as out of time. The round stays
// active so the explainer can still resolve the word on screen.
func (r *Room) MarkTimerExpired() {
	if r.round != nil && r.round.Active {
		r.round.TimerExpired = true
	}
}

// EndGame closes the match. Statistics persistence is the caller's
// concern; this only mutates in-memory state.
func (r *Room) EndGame(winnerTeamID int) GameResult {
	r.Status = StatusFinished
	r.round = nil

	scores := make(map[int]int, len(r.scores))
	for id, score := range r.scores {
		scores[id] = score
	}
	return GameResult{
		Winner:      winnerTeamID,
		FinalScores: scores,
		Teams:       r.copyTeams(),
	}
}
