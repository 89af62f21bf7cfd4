package types

import "github.com/aliasflow/alias-game-backend/internal/game"

// Client -> Server. One command per frame; RequestID ties the ack back
// to the command. Unused fields are omitted per command type.
type ClientCommand struct {
	Type      string `json:"type"`
	RequestID string `json:"requestId,omitempty"`

	RoomCode    string         `json:"roomCode,omitempty"`    // join-room, join-as-spectator
	Username    string         `json:"username,omitempty"`    // create-room, join-room
	Settings    *game.Settings `json:"settings,omitempty"`    // create-room, update-settings
	TeamID      *int           `json:"teamId,omitempty"`      // assign-team
	Correct     *bool          `json:"correct,omitempty"`     // guess-word
	Adjustments map[int]int    `json:"adjustments,omitempty"` // adjust-word-scores
	Message     string         `json:"message,omitempty"`     // send-chat-message
}

// Command types.
const (
	CmdCreateRoom            = "create-room"
	CmdJoinRoom              = "join-room"
	CmdGetRoomState          = "get-room-state"
	CmdLeaveRoom             = "leave-room"
	CmdAssignTeam            = "assign-team"
	CmdUpdateSettings        = "update-settings"
	CmdToggleReady           = "toggle-ready"
	CmdStartGame             = "start-game"
	CmdGuessWord             = "guess-word"
	CmdEndRound              = "end-round"
	CmdAdjustWordScores      = "adjust-word-scores"
	CmdConfirmScoresReady    = "confirm-scores-ready"
	CmdConfirmReadyNextRound = "confirm-ready-next-round"
	CmdStartNextRound        = "start-next-round"
	CmdSendChatMessage       = "send-chat-message"
	CmdJoinAsSpectator       = "join-as-spectator"
	CmdLeaveSpectator        = "leave-spectator"
)

// Ack is the at-most-once reply to a client command.
type Ack struct {
	RequestID string `json:"requestId,omitempty"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`

	Room       *game.RoomState     `json:"room,omitempty"`
	Spectator  *game.SpectatorView `json:"spectatorRoom,omitempty"`
	CanStart   *bool               `json:"canStart,omitempty"`
	NextWord   string              `json:"nextWord,omitempty"`
	RoundEnded bool                `json:"roundEnded,omitempty"`
	GameEnded  bool                `json:"gameEnded,omitempty"`
}

// ServerEvent is a broadcast or targeted push.
type ServerEvent struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Server event types.
const (
	EvtAck                = "ack"
	EvtPlayerJoined       = "player-joined"
	EvtPlayerLeft         = "player-left"
	EvtPlayerDisconnected = "player-disconnected"
	EvtGameState          = "game-state-update"
	EvtGameStarted        = "game-started"
	EvtRoundStarted       = "round-started"
	EvtRoundEnded         = "round-ended"
	EvtGameEnded          = "game-ended"
	EvtScoreUpdate        = "score-update"
	EvtExplainerView      = "explainer-view"
	EvtTimeUpdate         = "time-update"
	EvtTimerExpired       = "timer-expired"
	EvtChatMessage        = "chat-message"
	EvtError              = "error"
)
