// Package directory owns the room registry and the user and
// connection indices. It is a single actor: membership changes and
// their index updates always happen in the same synchronous step, so
// a userId can never dangle between rooms.
package directory

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"time"

	"go.uber.org/zap"

	"github.com/aliasflow/alias-game-backend/internal/game"
	"github.com/aliasflow/alias-game-backend/internal/room"
	"github.com/aliasflow/alias-game-backend/pkg/types"
)

var ErrRoomNotFound = errors.New("room not found")
var ErrNotInRoom = errors.New("not in a room")

const codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const codeLength = 6

type Msg interface{ isDirectoryMsg() }

type CreateRoom struct {
	HostID   string
	Username string
	ConnID   string
	Settings game.Settings
	Outbox   chan types.ServerEvent
	Reply    chan CreateReply
}

type CreateReply struct {
	Room  *room.Room
	State game.RoomState
	Err   error
}

type JoinRoom struct {
	Code     string
	UserID   string
	Username string
	ConnID   string
	Outbox   chan types.ServerEvent
	Reply    chan JoinReply
}

type JoinReply struct {
	Room        *room.Room
	State       game.RoomState
	Reconnected bool
	Err         error
}

type LeaveRoom struct {
	UserID string
	Reply  chan error
}

type HandleDisconnect struct{ ConnID string }

type RoomByUser struct {
	UserID string
	Reply  chan *room.Room
}

type SpectateRoom struct {
	Code     string
	UserID   string
	Username string
	ConnID   string
	Outbox   chan types.ServerEvent
	Reply    chan SpectateReply
}

type SpectateReply struct {
	View game.SpectatorView
	Err  error
}

type LeaveSpectator struct {
	UserID string
	Reply  chan error
}

type ListRooms struct{ Reply chan []room.Summary }

type DeleteAllRooms struct{ Reply chan int }

func (CreateRoom) isDirectoryMsg()       {}
func (JoinRoom) isDirectoryMsg()         {}
func (LeaveRoom) isDirectoryMsg()        {}
func (HandleDisconnect) isDirectoryMsg() {}
func (RoomByUser) isDirectoryMsg()       {}
func (SpectateRoom) isDirectoryMsg()     {}
func (LeaveSpectator) isDirectoryMsg()   {}
func (ListRooms) isDirectoryMsg()        {}
func (DeleteAllRooms) isDirectoryMsg()   {}

// Config tunes room lifecycle; zero values fall back to production
// defaults (1h idle timeout, 10m sweep).
type Config struct {
	IdleTimeout   time.Duration
	SweepInterval time.Duration
}

type Directory struct {
	inbox chan Msg

	rooms     map[string]*room.Room // code -> actor
	userRooms map[string]string     // player userID -> code
	specRooms map[string]string     // spectator userID -> code
	connUsers map[string]string     // connID -> userID

	supply   game.WordSupply
	roomDeps room.Deps

	idleTimeout time.Duration
	sweepEvery  time.Duration

	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func New(parent context.Context, supply game.WordSupply, roomDeps room.Deps, cfg Config, log *zap.Logger) *Directory {
	ctx, cancel := context.WithCancel(parent)

	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = time.Hour
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 10 * time.Minute
	}

	d := &Directory{
		inbox:       make(chan Msg, 64),
		rooms:       make(map[string]*room.Room),
		userRooms:   make(map[string]string),
		specRooms:   make(map[string]string),
		connUsers:   make(map[string]string),
		supply:      supply,
		roomDeps:    roomDeps,
		idleTimeout: cfg.IdleTimeout,
		sweepEvery:  cfg.SweepInterval,
		log:         log,
		ctx:         ctx,
		cancel:      cancel,
	}
	go d.loop()
	return d
}

func (d *Directory) Inbox() chan<- Msg { return d.inbox }

func (d *Directory) loop() {
	sweep := time.NewTicker(d.sweepEvery)
	defer sweep.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return

		case <-sweep.C:
			d.sweepIdle()

		case m := <-d.inbox:
			switch msg := m.(type) {
			case CreateRoom:
				d.createRoom(msg)
			case JoinRoom:
				d.joinRoom(msg)
			case LeaveRoom:
				msg.Reply <- d.leave(msg.UserID)
			case HandleDisconnect:
				d.disconnect(msg.ConnID)
			case RoomByUser:
				if code, ok := d.userRooms[msg.UserID]; ok {
					msg.Reply <- d.rooms[code]
				} else {
					msg.Reply <- nil
				}
			case SpectateRoom:
				d.spectate(msg)
			case LeaveSpectator:
				msg.Reply <- d.leaveSpectator(msg.UserID)
			case ListRooms:
				msg.Reply <- d.listRooms()
			case DeleteAllRooms:
				msg.Reply <- d.deleteAll()
			}
		}
	}
}

func (d *Directory) generateCode() (string, error) {
	for {
		code := make([]byte, codeLength)
		for i := range code {
			num, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeCharset))))
			if err != nil {
				return "", err
			}
			code[i] = codeCharset[num.Int64()]
		}
		if _, taken := d.rooms[string(code)]; !taken {
			return string(code), nil
		}
	}
}

func (d *Directory) createRoom(msg CreateRoom) {
	// Same single-room rule as joinRoom: hosting a new room leaves the
	// old one first, in this same step.
	if _, joined := d.userRooms[msg.HostID]; joined {
		_ = d.leave(msg.HostID)
	}

	code, err := d.generateCode()
	if err != nil {
		msg.Reply <- CreateReply{Err: err}
		return
	}

	g := game.NewRoom(code, msg.HostID, msg.Settings, d.supply)
	rm := room.New(d.ctx, g, d.roomDeps)
	d.rooms[code] = rm

	reply := make(chan room.JoinReply, 1)
	rm.Inbox() <- room.Join{
		UserID:   msg.HostID,
		Username: msg.Username,
		ConnID:   msg.ConnID,
		Outbox:   msg.Outbox,
		Reply:    reply,
	}
	res := <-reply
	if res.Err != nil {
		rm.Inbox() <- room.Shutdown{}
		delete(d.rooms, code)
		msg.Reply <- CreateReply{Err: res.Err}
		return
	}

	d.userRooms[msg.HostID] = code
	d.connUsers[msg.ConnID] = msg.HostID
	d.log.Info("room created", zap.String("room", code), zap.String("host", msg.HostID))

	msg.Reply <- CreateReply{Room: rm, State: res.State}
}

func (d *Directory) joinRoom(msg JoinRoom) {
	rm, ok := d.rooms[msg.Code]
	if !ok {
		msg.Reply <- JoinReply{Err: ErrRoomNotFound}
		return
	}

	// A user sits in at most one room; joining a new one leaves the
	// old one first, in this same step.
	if prev, joined := d.userRooms[msg.UserID]; joined && prev != msg.Code {
		_ = d.leave(msg.UserID)
	}

	reply := make(chan room.JoinReply, 1)
	rm.Inbox() <- room.Join{
		UserID:   msg.UserID,
		Username: msg.Username,
		ConnID:   msg.ConnID,
		Outbox:   msg.Outbox,
		Reply:    reply,
	}
	res := <-reply
	if res.Err != nil {
		msg.Reply <- JoinReply{Err: res.Err}
		return
	}

	d.userRooms[msg.UserID] = msg.Code
	d.connUsers[msg.ConnID] = msg.UserID

	msg.Reply <- JoinReply{Room: rm, State: res.State, Reconnected: res.Reconnected}
}

func (d *Directory) leave(userID string) error {
	code, ok := d.userRooms[userID]
	if !ok {
		return ErrNotInRoom
	}
	rm := d.rooms[code]

	reply := make(chan room.LeaveReply, 1)
	rm.Inbox() <- room.Leave{UserID: userID, Reply: reply}
	res := <-reply

	delete(d.userRooms, userID)

	if res.Empty {
		d.destroyRoom(code)
	}
	return nil
}

func (d *Directory) disconnect(connID string) {
	userID, ok := d.connUsers[connID]
	if !ok {
		return
	}
	delete(d.connUsers, connID)

	if code, joined := d.userRooms[userID]; joined {
		d.rooms[code].Inbox() <- room.Disconnect{UserID: userID, ConnID: connID}
		return
	}
	if code, watching := d.specRooms[userID]; watching {
		d.rooms[code].Inbox() <- room.SpectatorLeave{UserID: userID}
		delete(d.specRooms, userID)
	}
}

func (d *Directory) spectate(msg SpectateRoom) {
	rm, ok := d.rooms[msg.Code]
	if !ok {
		msg.Reply <- SpectateReply{Err: ErrRoomNotFound}
		return
	}

	reply := make(chan game.SpectatorView, 1)
	rm.Inbox() <- room.SpectatorJoin{
		UserID:   msg.UserID,
		Username: msg.Username,
		ConnID:   msg.ConnID,
		Outbox:   msg.Outbox,
		Reply:    reply,
	}
	view := <-reply

	d.specRooms[msg.UserID] = msg.Code
	d.connUsers[msg.ConnID] = msg.UserID

	msg.Reply <- SpectateReply{View: view}
}

func (d *Directory) leaveSpectator(userID string) error {
	code, ok := d.specRooms[userID]
	if !ok {
		return ErrNotInRoom
	}
	d.rooms[code].Inbox() <- room.SpectatorLeave{UserID: userID}
	delete(d.specRooms, userID)
	return nil
}

func (d *Directory) listRooms() []room.Summary {
	summaries := make([]room.Summary, 0, len(d.rooms))
	for _, rm := range d.rooms {
		reply := make(chan room.Summary, 1)
		rm.Inbox() <- room.GetSummary{Reply: reply}
		summaries = append(summaries, <-reply)
	}
	return summaries
}

// destroyRoom shuts the actor down (cancelling any round timer) and
// releases every index entry pointing at it.
func (d *Directory) destroyRoom(code string) {
	rm, ok := d.rooms[code]
	if !ok {
		return
	}

	reply := make(chan []game.MemberRef, 1)
	rm.Inbox() <- room.GetMembers{Reply: reply}
	for _, ref := range <-reply {
		if ref.Spectator {
			delete(d.specRooms, ref.UserID)
		} else {
			delete(d.userRooms, ref.UserID)
		}
		if ref.ConnID != "" {
			delete(d.connUsers, ref.ConnID)
		}
	}

	rm.Inbox() <- room.Shutdown{}
	delete(d.rooms, code)
}

func (d *Directory) sweepIdle() {
	var evicted []string
	for code, rm := range d.rooms {
		if time.Since(rm.LastActive()) > d.idleTimeout {
			evicted = append(evicted, code)
		}
	}
	for _, code := range evicted {
		d.log.Info("evicting idle room", zap.String("room", code))
		d.destroyRoom(code)
	}
	if len(evicted) > 0 {
		d.log.Info("idle sweep done", zap.Int("evicted", len(evicted)))
	}
}

func (d *Directory) deleteAll() int {
	n := len(d.rooms)
	for code := range d.rooms {
		d.destroyRoom(code)
	}
	d.log.Info("deleted all rooms", zap.Int("count", n))
	return n
}
