package game

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

// NoTeam marks a player that has not picked a team yet.
const NoTeam = -1

const (
	maxChatMessages  = 100
	chatHistoryLimit = 50
	maxChatLength    = 500
)

// WordSupply returns a shuffled word bank filtered by difficulty and
// language. The room draws one bank per game and never refills it.
type WordSupply interface {
	Draw(n int, difficulty Difficulty, language Language) []string
}

type Player struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	// ConnID is empty while the player is disconnected; membership is
	// only removed by an explicit leave.
	ConnID string `json:"-"`
	TeamID int    `json:"teamId"`
	Ready  bool   `json:"isReady"`
}

type Team struct {
	ID      int      `json:"id"`
	Name    string   `json:"name"`
	Members []string `json:"players"` // ordered userIDs
}

type Spectator struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	ConnID   string `json:"-"`
}

type ChatMessage struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"` // unix millis
}

type HistoryEntry struct {
	Word          string `json:"word"`
	Correct       bool   `json:"correct"`
	Timestamp     int64  `json:"timestamp"` // unix millis
	Adjusted      bool   `json:"adjusted,omitempty"`
	AdjustedValue int    `json:"adjustedValue,omitempty"`
}

type Round struct {
	TeamID         int
	TeamIndex      int
	ExplainerIndex int
	ExplainerID    string
	StartTime      time.Time
	EndTime        time.Time
	WordIndex      int // cursor into the word bank
	WordsGuessed   []string
	WordsSkipped   []string
	History        []HistoryEntry
	Active         bool
	TimerExpired   bool
}

// Room is the state machine for one match. It is not safe for
// concurrent use; the room actor owns it and serializes all access.
type Room struct {
	Code     string
	HostID   string
	Status   Status
	Settings Settings

	players   map[string]*Player
	joinOrder []string
	teams     []*Team
	scores    map[int]int

	currentTeamIndex int
	explainerCursor  map[int]int // team id -> last explainer index

	words []string
	used  map[string]struct{}

	round   *Round
	history []Round

	awaitingNextRound  bool
	readyForNextRound  bool
	explainerConfirmed bool
	scoresAdjusted     bool
	starting           bool

	spectators map[string]*Spectator
	specOrder  []string
	chat       []ChatMessage

	supply WordSupply

	CreatedAt    time.Time
	LastActivity time.Time
}

func NewRoom(code, hostID string, settings Settings, supply WordSupply) *Room {
	now := time.Now()
	return &Room{
		Code:            code,
		HostID:          hostID,
		Status:          StatusWaiting,
		Settings:        settings,
		players:         make(map[string]*Player),
		scores:          make(map[int]int),
		explainerCursor: make(map[int]int),
		used:            make(map[string]struct{}),
		spectators:      make(map[string]*Spectator),
		supply:          supply,
		CreatedAt:       now,
		LastActivity:    now,
	}
}

func (r *Room) Touch() {
	r.LastActivity = time.Now()
}

// Join adds a new member, or reattaches an existing member's
// connection. Reconnection is allowed in any status; new members are
// only accepted while waiting.
func (r *Room) Join(userID, username, connID string) (reconnected bool, err error) {
	if p, ok := r.players[userID]; ok {
		p.ConnID = connID
		return true, nil
	}
	if r.Status != StatusWaiting {
		return false, ErrRoomClosed
	}
	r.players[userID] = &Player{
		UserID:   userID,
		Username: username,
		ConnID:   connID,
		TeamID:   NoTeam,
	}
	r.joinOrder = append(r.joinOrder, userID)
	return false, nil
}

// Leave removes a member and everything hanging off them: team slot,
// empty teams (with score and rotation cursor), host role, and, if
// they were the active explainer, the round itself. Reports whether
// the room is now empty.
func (r *Room) Leave(userID string) (empty bool) {
	delete(r.players, userID)
	for i, id := range r.joinOrder {
		if id == userID {
			r.joinOrder = append(r.joinOrder[:i], r.joinOrder[i+1:]...)
			break
		}
	}

	kept := r.teams[:0]
	for _, team := range r.teams {
		for i, id := range team.Members {
			if id == userID {
				team.Members = append(team.Members[:i], team.Members[i+1:]...)
				break
			}
		}
		if len(team.Members) == 0 {
			delete(r.scores, team.ID)
			delete(r.explainerCursor, team.ID)
			continue
		}
		kept = append(kept, team)
	}
	r.teams = kept

	if userID == r.HostID && len(r.joinOrder) > 0 {
		r.HostID = r.joinOrder[0]
	}

	if r.round != nil && r.round.ExplainerID == userID {
		r.round.Active = false
		r.awaitingNextRound = true
	}

	if r.Status == StatusPlaying && len(r.teams) < 2 {
		r.Status = StatusFinished
		r.round = nil
		r.awaitingNextRound = false
		r.readyForNextRound = false
	}

	return len(r.players) == 0
}

// AssignTeam moves a player to the given team slot, creating the team
// lazily. Team composition is frozen once the game starts.
func (r *Room) AssignTeam(userID string, teamID int) error {
	player, ok := r.players[userID]
	if !ok {
		return ErrPlayerNotFound
	}
	if r.Status == StatusPlaying || r.starting {
		return ErrTeamsLocked
	}

	if player.TeamID != NoTeam {
		if old := r.team(player.TeamID); old != nil {
			for i, id := range old.Members {
				if id == userID {
					old.Members = append(old.Members[:i], old.Members[i+1:]...)
					break
				}
			}
		}
	}

	player.TeamID = teamID
	team := r.team(teamID)
	if team == nil {
		team = &Team{ID: teamID, Name: r.teamName(teamID)}
		r.teams = append(r.teams, team)
		r.scores[teamID] = 0
	}
	team.Members = append(team.Members, userID)
	return nil
}

func (r *Room) team(id int) *Team {
	for _, t := range r.teams {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func (r *Room) teamName(id int) string {
	if name, ok := r.Settings.TeamNames[id]; ok && name != "" {
		return name
	}
	return "Team " + strconv.Itoa(id+1)
}

func (r *Room) ToggleReady(userID string) error {
	player, ok := r.players[userID]
	if !ok {
		return ErrPlayerNotFound
	}
	player.Ready = !player.Ready
	return nil
}

// UpdateSettings replaces the settings and renames any existing teams
// covered by the new team names.
func (r *Room) UpdateSettings(settings Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	r.Settings = settings
	for _, team := range r.teams {
		if name, ok := settings.TeamNames[team.ID]; ok && name != "" {
			team.Name = name
		}
	}
	return nil
}

func (r *Room) CanStart() bool {
	if len(r.players) < 2 {
		return false
	}
	if len(r.teams) < 2 {
		return false
	}
	for _, team := range r.teams {
		if len(team.Members) == 0 {
			return false
		}
	}
	for _, player := range r.players {
		if !player.Ready {
			return false
		}
	}
	return true
}

// Start draws the word bank and begins the first round. The starting
// lock serializes double-submitted start commands down to one winner
// and is never released for the lifetime of the room.
func (r *Room) Start(bankSize int) error {
	if r.starting {
		return ErrAlreadyStarting
	}
	if !r.CanStart() {
		return ErrCannotStart
	}

	r.starting = true
	r.Status = StatusPlaying
	r.words = r.supply.Draw(bankSize, r.Settings.Difficulty, r.Settings.Language)
	r.used = make(map[string]struct{})

	for _, team := range r.teams {
		r.scores[team.ID] = 0
	}

	r.StartNewRound()
	return nil
}

// StartNewRound rotates to the next team and that team's next
// explainer, then opens a fresh round. The very first round keeps
// team index 0. Outside an active game (the match may finish during
// the intermission when a team empties out) it is a no-op; the team
// index can be stale after team pruning.
func (r *Room) StartNewRound() {
	if r.Status != StatusPlaying || len(r.teams) == 0 {
		return
	}
	r.awaitingNextRound = false
	r.readyForNextRound = false
	r.explainerConfirmed = false
	r.scoresAdjusted = false

	if r.round != nil {
		r.currentTeamIndex = (r.currentTeamIndex + 1) % len(r.teams)
	}
	team := r.teams[r.currentTeamIndex]

	cursor, seen := r.explainerCursor[team.ID]
	if seen {
		cursor = (cursor + 1) % len(team.Members)
	}
	r.explainerCursor[team.ID] = cursor

	now := time.Now()
	r.round = &Round{
		TeamID:         team.ID,
		TeamIndex:      r.currentTeamIndex,
		ExplainerIndex: cursor,
		ExplainerID:    team.Members[cursor],
		StartTime:      now,
		EndTime:        now.Add(time.Duration(r.Settings.RoundTime) * time.Second),
		Active:         true,
	}
}

// NextExplainerID is a pure lookahead of who would explain next; it
// does not advance any rotation state.
func (r *Room) NextExplainerID() (string, bool) {
	if r.round == nil || len(r.teams) == 0 {
		return "", false
	}
	next := r.teams[(r.currentTeamIndex+1)%len(r.teams)]
	if len(next.Members) == 0 {
		return "", false
	}
	cursor, seen := r.explainerCursor[next.ID]
	if seen {
		cursor = (cursor + 1) % len(next.Members)
	}
	return next.Members[cursor], true
}

// CurrentWord advances the cursor past consumed words and returns the
// first unconsumed one. An exhausted bank ends the round in place;
// that is a normal termination path, not an error.
func (r *Room) CurrentWord() (string, bool) {
	if r.round == nil || !r.round.Active {
		return "", false
	}
	for r.round.WordIndex < len(r.words) {
		word := r.words[r.round.WordIndex]
		if _, consumed := r.used[word]; !consumed {
			return word, true
		}
		r.round.WordIndex++
	}
	r.round.Active = false
	r.awaitingNextRound = true
	return "", false
}

func (r *Room) Round() *Round { return r.round }

func (r *Room) Score(teamID int) int { return r.scores[teamID] }

func (r *Room) Teams() []*Team { return r.teams }

func (r *Room) Player(userID string) (*Player, bool) {
	p, ok := r.players[userID]
	return p, ok
}

func (r *Room) PlayerCount() int { return len(r.players) }

func (r *Room) AwaitingNextRound() bool { return r.awaitingNextRound }

func (r *Room) ReadyForNextRound() bool { return r.readyForNextRound }

// Members lists userID/connID pairs for every current member,
// spectators included. Used by the directory to release its indices.
func (r *Room) Members() []MemberRef {
	refs := make([]MemberRef, 0, len(r.players)+len(r.spectators))
	for _, id := range r.joinOrder {
		p := r.players[id]
		refs = append(refs, MemberRef{UserID: p.UserID, ConnID: p.ConnID})
	}
	for _, id := range r.specOrder {
		if s, ok := r.spectators[id]; ok {
			refs = append(refs, MemberRef{UserID: s.UserID, ConnID: s.ConnID, Spectator: true})
		}
	}
	return refs
}

type MemberRef struct {
	UserID    string
	ConnID    string
	Spectator bool
}

// Disconnect clears the player's connection but keeps their seat.
func (r *Room) Disconnect(userID string) {
	if p, ok := r.players[userID]; ok {
		p.ConnID = ""
	}
}

func (r *Room) AddSpectator(userID, username, connID string) {
	if _, ok := r.spectators[userID]; !ok {
		r.specOrder = append(r.specOrder, userID)
	}
	r.spectators[userID] = &Spectator{UserID: userID, Username: username, ConnID: connID}
}

func (r *Room) RemoveSpectator(userID string) {
	if _, ok := r.spectators[userID]; !ok {
		return
	}
	delete(r.spectators, userID)
	for i, id := range r.specOrder {
		if id == userID {
			r.specOrder = append(r.specOrder[:i], r.specOrder[i+1:]...)
			break
		}
	}
}

func (r *Room) AddChatMessage(userID, username, message string) (ChatMessage, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return ChatMessage{}, ErrEmptyMessage
	}
	if len(message) > maxChatLength {
		return ChatMessage{}, ErrMessageTooLong
	}
	msg := ChatMessage{
		ID:        uuid.NewString(),
		UserID:    userID,
		Username:  username,
		Message:   message,
		Timestamp: time.Now().UnixMilli(),
	}
	r.chat = append(r.chat, msg)
	if len(r.chat) > maxChatMessages {
		r.chat = r.chat[len(r.chat)-maxChatMessages:]
	}
	return msg, nil
}

func (r *Room) ChatMessages(limit int) []ChatMessage {
	if limit <= 0 || limit > len(r.chat) {
		limit = len(r.chat)
	}
	out := make([]ChatMessage, limit)
	copy(out, r.chat[len(r.chat)-limit:])
	return out
}
