// Package ws bridges websocket connections to the directory and room
// actors. Each connection gets an outbox channel that room actors push
// events into; the connection owns the channel for its whole lifetime,
// actors only ever drop their reference to it.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aliasflow/alias-game-backend/internal/auth"
	"github.com/aliasflow/alias-game-backend/internal/directory"
	"github.com/aliasflow/alias-game-backend/internal/room"
	"github.com/aliasflow/alias-game-backend/pkg/types"
)

const (
	outboxSize   = 32
	writeTimeout = 5 * time.Second
	readLimit    = 16 * 1024
)

func Handler(dir *directory.Directory, verifier *auth.Verifier, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := verifier.Verify(r.URL.Query().Get("token"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			return
		}
		conn.SetReadLimit(readLimit)
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		connID := uuid.NewString()
		s := &session{
			conn:     conn,
			dir:      dir,
			connID:   connID,
			userID:   claims.UserID,
			username: claims.Username,
			outbox:   make(chan types.ServerEvent, outboxSize),
			log:      log.With(zap.String("userId", claims.UserID), zap.String("connId", connID)),
		}
		s.run(r.Context())
	}
}

// session is the per-connection state. The reader loop is the only
// goroutine that mutates it; the writer goroutine only reads conn and
// mu.
type session struct {
	conn *websocket.Conn
	dir  *directory.Directory

	connID   string
	userID   string
	username string

	// rm caches the room the user is in; falls back to a directory
	// lookup when nil or stale.
	rm *room.Room

	outbox chan types.ServerEvent

	mu  sync.Mutex // serializes conn.Write between reader acks and the event writer
	log *zap.Logger
}

func (s *session) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Whatever ends the connection, the directory hears about it
	// exactly once. The ConnID lets a room ignore this if the user has
	// already reconnected elsewhere.
	defer func() { s.dir.Inbox() <- directory.HandleDisconnect{ConnID: s.connID} }()

	go s.writeLoop(ctx)

	s.log.Info("connection open")
	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				s.log.Info("connection closed")
			default:
				s.log.Info("connection dropped", zap.Error(err))
			}
			return
		}

		var cmd types.ClientCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			s.send(ctx, types.ServerEvent{Type: types.EvtError, Data: "bad json"})
			continue
		}

		ack := s.dispatch(ctx, cmd)
		ack.RequestID = cmd.RequestID
		s.send(ctx, types.ServerEvent{Type: types.EvtAck, Data: ack})
	}
}

func (s *session) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-s.outbox:
			s.send(ctx, evt)
		}
	}
}

func (s *session) send(ctx context.Context, evt types.ServerEvent) {
	payload, err := json.Marshal(evt)
	if err != nil {
		s.log.Error("marshal event", zap.Error(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := s.conn.Write(wctx, websocket.MessageText, payload); err != nil {
		// Reader loop will observe the broken connection and exit.
		s.log.Debug("write failed", zap.Error(err))
	}
}

func (s *session) dispatch(ctx context.Context, cmd types.ClientCommand) types.Ack {
	switch cmd.Type {
	case types.CmdCreateRoom:
		return s.createRoom(cmd)
	case types.CmdJoinRoom:
		return s.joinRoom(cmd)
	case types.CmdLeaveRoom:
		return s.leaveRoom()
	case types.CmdJoinAsSpectator:
		return s.joinAsSpectator(cmd)
	case types.CmdLeaveSpectator:
		return s.leaveSpectator()
	default:
		return s.roomCommand(ctx, cmd)
	}
}

func (s *session) name(cmd types.ClientCommand) string {
	if cmd.Username != "" {
		return cmd.Username
	}
	return s.username
}

func (s *session) createRoom(cmd types.ClientCommand) types.Ack {
	if cmd.Settings == nil {
		return types.Ack{Error: "missing required fields"}
	}

	reply := make(chan directory.CreateReply, 1)
	s.dir.Inbox() <- directory.CreateRoom{
		HostID:   s.userID,
		Username: s.name(cmd),
		ConnID:   s.connID,
		Settings: *cmd.Settings,
		Outbox:   s.outbox,
		Reply:    reply,
	}
	res := <-reply
	if res.Err != nil {
		return types.Ack{Error: res.Err.Error()}
	}

	s.rm = res.Room
	s.log.Info("room created", zap.String("room", res.Room.Code()))
	return types.Ack{Success: true, Room: &res.State}
}

func (s *session) joinRoom(cmd types.ClientCommand) types.Ack {
	if cmd.RoomCode == "" {
		return types.Ack{Error: "missing required fields"}
	}

	reply := make(chan directory.JoinReply, 1)
	s.dir.Inbox() <- directory.JoinRoom{
		Code:     cmd.RoomCode,
		UserID:   s.userID,
		Username: s.name(cmd),
		ConnID:   s.connID,
		Outbox:   s.outbox,
		Reply:    reply,
	}
	res := <-reply
	if res.Err != nil {
		return types.Ack{Error: res.Err.Error()}
	}

	s.rm = res.Room
	s.log.Info("joined room",
		zap.String("room", cmd.RoomCode), zap.Bool("reconnected", res.Reconnected))
	return types.Ack{Success: true, Room: &res.State}
}

func (s *session) leaveRoom() types.Ack {
	reply := make(chan error, 1)
	s.dir.Inbox() <- directory.LeaveRoom{UserID: s.userID, Reply: reply}
	if err := <-reply; err != nil {
		return types.Ack{Error: err.Error()}
	}
	s.rm = nil
	return types.Ack{Success: true}
}

func (s *session) joinAsSpectator(cmd types.ClientCommand) types.Ack {
	if cmd.RoomCode == "" {
		return types.Ack{Error: "missing required fields"}
	}

	reply := make(chan directory.SpectateReply, 1)
	s.dir.Inbox() <- directory.SpectateRoom{
		Code:     cmd.RoomCode,
		UserID:   s.userID,
		Username: s.name(cmd),
		ConnID:   s.connID,
		Outbox:   s.outbox,
		Reply:    reply,
	}
	res := <-reply
	if res.Err != nil {
		return types.Ack{Error: res.Err.Error()}
	}
	return types.Ack{Success: true, Spectator: &res.View}
}

func (s *session) leaveSpectator() types.Ack {
	reply := make(chan error, 1)
	s.dir.Inbox() <- directory.LeaveSpectator{UserID: s.userID, Reply: reply}
	if err := <-reply; err != nil {
		return types.Ack{Error: err.Error()}
	}
	return types.Ack{Success: true}
}

// roomCommand forwards a gameplay command to the user's room actor and
// waits for its ack. The wait also watches the room's Done channel so
// a racing eviction cannot strand the connection.
func (s *session) roomCommand(ctx context.Context, cmd types.ClientCommand) types.Ack {
	rm, err := s.room()
	if err != nil {
		return types.Ack{Error: err.Error()}
	}

	reply := make(chan types.Ack, 1)
	select {
	case rm.Inbox() <- room.Command{UserID: s.userID, Cmd: cmd, Reply: reply}:
	case <-rm.Done():
		s.rm = nil
		return types.Ack{Error: "room closed"}
	case <-ctx.Done():
		return types.Ack{Error: "connection closing"}
	}

	select {
	case ack := <-reply:
		return ack
	case <-rm.Done():
		s.rm = nil
		return types.Ack{Error: "room closed"}
	case <-ctx.Done():
		return types.Ack{Error: "connection closing"}
	}
}

func (s *session) room() (*room.Room, error) {
	if s.rm != nil {
		select {
		case <-s.rm.Done():
			s.rm = nil
		default:
			return s.rm, nil
		}
	}

	reply := make(chan *room.Room, 1)
	s.dir.Inbox() <- directory.RoomByUser{UserID: s.userID, Reply: reply}
	rm := <-reply
	if rm == nil {
		return nil, directory.ErrNotInRoom
	}
	s.rm = rm
	return rm, nil
}
