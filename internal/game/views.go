package game

import "time"

// RoomState is the broadcast snapshot. The current word is never part
// of it; only the explainer view carries the word.
type RoomState struct {
	RoomCode           string        `json:"roomCode"`
	HostID             string        `json:"hostId"`
	Status             Status        `json:"status"`
	Settings           Settings      `json:"settings"`
	Players            []Player      `json:"players"`
	Teams              []Team        `json:"teams"`
	Scores             map[int]int   `json:"scores"`
	Spectators         []Spectator   `json:"spectators"`
	ChatMessages       []ChatMessage `json:"chatMessages"`
	WaitingForNext     bool          `json:"waitingForNextRound"`
	ReadyForNext       bool          `json:"readyForNextRound"`
	ExplainerConfirmed bool          `json:"explainerConfirmedScores"`
	NextExplainerID    string        `json:"nextExplainerId,omitempty"`
	CurrentRound       *RoundView    `json:"currentRound"`
}

type RoundView struct {
	TeamID        int            `json:"teamId"`
	ExplainerID   string         `json:"explainerId"`
	TimeRemaining int64          `json:"timeRemaining"` // millis
	IsActive      bool           `json:"isActive"`
	TimerExpired  bool           `json:"timerExpired"`
	WordsGuessed  int            `json:"wordsGuessed"`
	WordsSkipped  int            `json:"wordsSkipped"`
	History       []HistoryEntry `json:"wordHistory"`
}

// ExplainerView is pushed only to the active explainer.
type ExplainerView struct {
	CurrentWord   string `json:"currentWord"`
	TimeRemaining int64  `json:"timeRemaining"` // millis
	WordsGuessed  int    `json:"wordsGuessed"`
	WordsSkipped  int    `json:"wordsSkipped"`
	TeamScore     int    `json:"teamScore"`
}

// SpectatorView is the snapshot with a spectator marker; the word
// stays hidden from spectators.
type SpectatorView struct {
	RoomState
	IsSpectator bool `json:"isSpectator"`
}

// Snapshot copies everything it exposes: ws writer goroutines marshal
// the result while the actor keeps mutating the room, so no live
// pointer or slice may leak out.
func (r *Room) Snapshot() RoomState {
	players := make([]Player, 0, len(r.players))
	for _, id := range r.joinOrder {
		players = append(players, *r.players[id])
	}

	spectators := make([]Spectator, 0, len(r.spectators))
	for _, id := range r.specOrder {
		if s, ok := r.spectators[id]; ok {
			spectators = append(spectators, *s)
		}
	}

	scores := make(map[int]int, len(r.scores))
	for id, score := range r.scores {
		scores[id] = score
	}

	state := RoomState{
		RoomCode:           r.Code,
		HostID:             r.HostID,
		Status:             r.Status,
		Settings:           r.Settings,
		Players:            players,
		Teams:              r.copyTeams(),
		Scores:             scores,
		Spectators:         spectators,
		ChatMessages:       r.ChatMessages(chatHistoryLimit),
		WaitingForNext:     r.awaitingNextRound,
		ReadyForNext:       r.readyForNextRound,
		ExplainerConfirmed: r.explainerConfirmed,
	}
	if r.awaitingNextRound {
		if next, ok := r.NextExplainerID(); ok {
			state.NextExplainerID = next
		}
	}
	if r.round != nil {
		state.CurrentRound = &RoundView{
			TeamID:        r.round.TeamID,
			ExplainerID:   r.round.ExplainerID,
			TimeRemaining: remainingMillis(r.round.EndTime),
			IsActive:      r.round.Active,
			TimerExpired:  r.round.TimerExpired,
			WordsGuessed:  len(r.round.WordsGuessed),
			WordsSkipped:  len(r.round.WordsSkipped),
			History:       copyHistory(r.round.History),
		}
	}
	return state
}

func (r *Room) copyTeams() []Team {
	teams := make([]Team, len(r.teams))
	for i, t := range r.teams {
		teams[i] = Team{
			ID:      t.ID,
			Name:    t.Name,
			Members: append([]string(nil), t.Members...),
		}
	}
	return teams
}

// copyHistory detaches history entries; AdjustWordScores rewrites them
// in place after the slice has already been broadcast.
func copyHistory(entries []HistoryEntry) []HistoryEntry {
	out := make([]HistoryEntry, len(entries))
	copy(out, entries)
	return out
}

// Explainer returns the explainer view, or false when no round is
// active. Calling it advances the word cursor past consumed words, so
// an exhausted bank surfaces here as an auto-ended round.
func (r *Room) Explainer() (ExplainerView, bool) {
	if r.round == nil || !r.round.Active {
		return ExplainerView{}, false
	}
	word, _ := r.CurrentWord()
	return ExplainerView{
		CurrentWord:   word,
		TimeRemaining: remainingMillis(r.round.EndTime),
		WordsGuessed:  len(r.round.WordsGuessed),
		WordsSkipped:  len(r.round.WordsSkipped),
		TeamScore:     r.scores[r.round.TeamID],
	}, true
}

func (r *Room) Spectator() SpectatorView {
	return SpectatorView{RoomState: r.Snapshot(), IsSpectator: true}
}

func remainingMillis(deadline time.Time) int64 {
	ms := time.Until(deadline).Milliseconds()
	if ms < 0 {
		return 0
	}
	return ms
}
