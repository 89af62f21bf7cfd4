// Package room runs one goroutine per match. All access to the game
// state machine flows through the actor's inbox, so no two commands
// for the same room ever interleave mid-mutation; timer ticks land on
// the same loop and interleave only at operation boundaries.
package room

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/aliasflow/alias-game-backend/internal/game"
	"github.com/aliasflow/alias-game-backend/internal/stats"
	"github.com/aliasflow/alias-game-backend/pkg/types"
)

type Msg interface{ isRoomMsg() }

type Join struct {
	UserID   string
	Username string
	ConnID   string
	Outbox   chan types.ServerEvent
	Reply    chan JoinReply
}

type JoinReply struct {
	State       game.RoomState
	Reconnected bool
	Err         error
}

type Leave struct {
	UserID string
	Reply  chan LeaveReply
}

type LeaveReply struct {
	Empty bool
}

type Disconnect struct {
	UserID string
	ConnID string
}

type SpectatorJoin struct {
	UserID   string
	Username string
	ConnID   string
	Outbox   chan types.ServerEvent
	Reply    chan game.SpectatorView
}

type SpectatorLeave struct{ UserID string }

// Command is a gameplay command from a connected member. The actor
// replies with exactly one ack.
type Command struct {
	UserID string
	Cmd    types.ClientCommand
	Reply  chan types.Ack
}

type GetMembers struct{ Reply chan []game.MemberRef }

// GetSummary asks the actor for the lobby-listing view of its room.
type GetSummary struct{ Reply chan Summary }

type Summary struct {
	RoomCode    string        `json:"roomCode"`
	PlayerCount int           `json:"playerCount"`
	Status      game.Status   `json:"status"`
	Settings    game.Settings `json:"settings"`
}

type Shutdown struct{}

func (Join) isRoomMsg()           {}
func (Leave) isRoomMsg()          {}
func (Disconnect) isRoomMsg()     {}
func (SpectatorJoin) isRoomMsg()  {}
func (SpectatorLeave) isRoomMsg() {}
func (Command) isRoomMsg()        {}
func (GetMembers) isRoomMsg()     {}
func (GetSummary) isRoomMsg()     {}
func (Shutdown) isRoomMsg()       {}

// Deps carries the actor's collaborators. Stats may be nil.
type Deps struct {
	Log          *zap.Logger
	Stats        *stats.Store
	WordBankSize int
	TickInterval time.Duration
}

type Room struct {
	code  string
	inbox chan Msg
	g     *game.Room

	clients map[string]chan types.ServerEvent // userID -> outbox

	ticker    *time.Ticker
	tickEvery time.Duration
	ticks     int

	bankSize int
	stats    *stats.Store
	log      *zap.Logger

	lastActive atomic.Int64 // unix nanos, readable by the directory sweep

	ctx    context.Context
	cancel context.CancelFunc
}

func New(parent context.Context, g *game.Room, deps Deps) *Room {
	ctx, cancel := context.WithCancel(parent)

	tickEvery := deps.TickInterval
	if tickEvery <= 0 {
		tickEvery = time.Second
	}
	bankSize := deps.WordBankSize
	if bankSize <= 0 {
		bankSize = 200
	}

	r := &Room{
		code:      g.Code,
		inbox:     make(chan Msg, 64),
		g:         g,
		clients:   make(map[string]chan types.ServerEvent),
		tickEvery: tickEvery,
		bankSize:  bankSize,
		stats:     deps.Stats,
		log:       deps.Log.With(zap.String("room", g.Code)),
		ctx:       ctx,
		cancel:    cancel,
	}
	r.lastActive.Store(time.Now().UnixNano())

	go r.loop()
	return r
}

func (r *Room) Inbox() chan<- Msg { return r.inbox }

func (r *Room) Code() string { return r.code }

// Done is closed once the actor has shut down; senders waiting on a
// reply select on it to survive racing an eviction.
func (r *Room) Done() <-chan struct{} { return r.ctx.Done() }

// LastActive reports when the room last handled a command. Safe to
// call from other goroutines.
func (r *Room) LastActive() time.Time {
	return time.Unix(0, r.lastActive.Load())
}

func (r *Room) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case <-r.tickC():
			r.tick()

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Join:
				r.handleJoin(msg)
			case Leave:
				r.handleLeave(msg)
			case Disconnect:
				r.handleDisconnect(msg)
			case SpectatorJoin:
				r.handleSpectatorJoin(msg)
			case SpectatorLeave:
				r.touch()
				r.g.RemoveSpectator(msg.UserID)
				delete(r.clients, msg.UserID)
			case Command:
				r.handleCommand(msg)
			case GetMembers:
				msg.Reply <- r.g.Members()
			case GetSummary:
				msg.Reply <- Summary{
					RoomCode:    r.code,
					PlayerCount: r.g.PlayerCount(),
					Status:      r.g.Status,
					Settings:    r.g.Settings,
				}
			case Shutdown:
				r.shutdown()
				return
			}
		}
	}
}

func (r *Room) shutdown() {
	r.stopTimer()
	clear(r.clients)
	r.cancel()
}

func (r *Room) touch() {
	r.g.Touch()
	r.lastActive.Store(time.Now().UnixNano())
}

func (r *Room) handleJoin(msg Join) {
	r.touch()
	reconnected, err := r.g.Join(msg.UserID, msg.Username, msg.ConnID)
	if err != nil {
		msg.Reply <- JoinReply{Err: err}
		return
	}
	r.clients[msg.UserID] = msg.Outbox

	if !reconnected {
		r.broadcastExcept(msg.UserID, types.ServerEvent{
			Type: types.EvtPlayerJoined,
			Data: map[string]any{"userId": msg.UserID, "username": msg.Username},
		})
		r.broadcastState()
	}

	msg.Reply <- JoinReply{State: r.g.Snapshot(), Reconnected: reconnected}

	// A reconnecting explainer picks up mid-round: re-send their view
	// and resume the timer that paused on disconnect.
	if rd := r.g.Round(); reconnected && r.g.Status == game.StatusPlaying &&
		rd != nil && rd.ExplainerID == msg.UserID {
		r.sendExplainerView()
		if rd.Active && r.ticker == nil {
			r.log.Info("explainer reconnected, resuming timer")
			r.startTimer()
		}
	}
}

func (r *Room) handleLeave(msg Leave) {
	r.touch()
	empty := r.g.Leave(msg.UserID)
	delete(r.clients, msg.UserID)

	// Leaving can deactivate the round (explainer left) or finish the
	// game (fewer than two teams); both retire the timer immediately.
	if rd := r.g.Round(); r.g.Status == game.StatusFinished || rd == nil || !rd.Active {
		r.stopTimer()
	}

	if !empty {
		r.broadcast(types.ServerEvent{
			Type: types.EvtPlayerLeft,
			Data: map[string]any{"userId": msg.UserID},
		})
		r.broadcastState()
	}
	msg.Reply <- LeaveReply{Empty: empty}
}

func (r *Room) handleDisconnect(msg Disconnect) {
	// A stale close from a connection that was already superseded by a
	// reconnect must not knock the fresh connection out.
	if p, found := r.g.Player(msg.UserID); found && msg.ConnID != "" && p.ConnID != msg.ConnID {
		return
	}
	r.g.Disconnect(msg.UserID)
	delete(r.clients, msg.UserID)

	// Pause the countdown while the explainer is gone; Join resumes it.
	if rd := r.g.Round(); rd != nil && rd.ExplainerID == msg.UserID && r.ticker != nil {
		r.log.Info("explainer disconnected, pausing timer", zap.String("userId", msg.UserID))
		r.stopTimer()
	}

	r.broadcast(types.ServerEvent{
		Type: types.EvtPlayerDisconnected,
		Data: map[string]any{"userId": msg.UserID},
	})
}

func (r *Room) handleSpectatorJoin(msg SpectatorJoin) {
	r.touch()
	r.g.AddSpectator(msg.UserID, msg.Username, msg.ConnID)
	r.clients[msg.UserID] = msg.Outbox
	msg.Reply <- r.g.Spectator()
}

func (r *Room) broadcast(evt types.ServerEvent) {
	for id, ch := range r.clients {
		select {
		case ch <- evt:
		default:
			// Slow or wedged client: drop it, the connection will
			// re-sync on reconnect.
			delete(r.clients, id)
		}
	}
}

func (r *Room) broadcastExcept(userID string, evt types.ServerEvent) {
	for id, ch := range r.clients {
		if id == userID {
			continue
		}
		select {
		case ch <- evt:
		default:
			delete(r.clients, id)
		}
	}
}

func (r *Room) broadcastState() {
	r.broadcast(types.ServerEvent{Type: types.EvtGameState, Data: r.g.Snapshot()})
}

func (r *Room) sendTo(userID string, evt types.ServerEvent) {
	ch, ok := r.clients[userID]
	if !ok {
		return
	}
	select {
	case ch <- evt:
	default:
		delete(r.clients, userID)
	}
}

func (r *Room) sendExplainerView() {
	rd := r.g.Round()
	if rd == nil {
		return
	}
	if view, ok := r.g.Explainer(); ok {
		r.sendTo(rd.ExplainerID, types.ServerEvent{Type: types.EvtExplainerView, Data: view})
	}
}
