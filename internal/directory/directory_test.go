package directory

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aliasflow/alias-game-backend/internal/game"
	"github.com/aliasflow/alias-game-backend/internal/room"
	"github.com/aliasflow/alias-game-backend/pkg/types"
)

const recvTimeout = 2 * time.Second

type listSupply struct{}

func (listSupply) Draw(n int, _ game.Difficulty, _ game.Language) []string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("word%02d", i)
	}
	return words
}

func testSettings() game.Settings {
	return game.Settings{
		RoundTime:  60,
		WordsToWin: 10,
		Difficulty: game.DifficultyMedium,
		Language:   game.LanguageEnglish,
	}
}

func newTestDirectory(t *testing.T, cfg Config) *Directory {
	t.Helper()
	deps := room.Deps{Log: zap.NewNop(), TickInterval: 5 * time.Millisecond}
	return New(context.Background(), listSupply{}, deps, cfg, zap.NewNop())
}

func createRoom(t *testing.T, d *Directory, hostID string) (*room.Room, game.RoomState) {
	t.Helper()
	reply := make(chan CreateReply, 1)
	d.Inbox() <- CreateRoom{
		HostID:   hostID,
		Username: "player-" + hostID,
		ConnID:   "conn-" + hostID,
		Settings: testSettings(),
		Outbox:   make(chan types.ServerEvent, 64),
		Reply:    reply,
	}
	select {
	case res := <-reply:
		require.NoError(t, res.Err)
		return res.Room, res.State
	case <-time.After(recvTimeout):
		t.Fatal("timed out creating room")
		return nil, game.RoomState{}
	}
}

func joinRoom(t *testing.T, d *Directory, code, userID string) JoinReply {
	t.Helper()
	reply := make(chan JoinReply, 1)
	d.Inbox() <- JoinRoom{
		Code:     code,
		UserID:   userID,
		Username: "player-" + userID,
		ConnID:   "conn-" + userID,
		Outbox:   make(chan types.ServerEvent, 64),
		Reply:    reply,
	}
	select {
	case res := <-reply:
		return res
	case <-time.After(recvTimeout):
		t.Fatal("timed out joining room")
		return JoinReply{}
	}
}

func roomByUser(t *testing.T, d *Directory, userID string) *room.Room {
	t.Helper()
	reply := make(chan *room.Room, 1)
	d.Inbox() <- RoomByUser{UserID: userID, Reply: reply}
	select {
	case rm := <-reply:
		return rm
	case <-time.After(recvTimeout):
		t.Fatal("timed out looking up room")
		return nil
	}
}

func TestCreateRoomGeneratesCode(t *testing.T) {
	d := newTestDirectory(t, Config{})

	rm, state := createRoom(t, d, "host1")
	assert.Regexp(t, regexp.MustCompile(`^[A-Z0-9]{6}$`), rm.Code())
	assert.Equal(t, rm.Code(), state.RoomCode)
	assert.Equal(t, "host1", state.HostID)

	other, _ := createRoom(t, d, "host2")
	assert.NotEqual(t, rm.Code(), other.Code())
}

func TestJoinUnknownRoom(t *testing.T) {
	d := newTestDirectory(t, Config{})
	res := joinRoom(t, d, "ZZZZZZ", "u1")
	assert.ErrorIs(t, res.Err, ErrRoomNotFound)
}

func TestJoinTracksUserIndex(t *testing.T) {
	d := newTestDirectory(t, Config{})
	rm, _ := createRoom(t, d, "host1")

	res := joinRoom(t, d, rm.Code(), "u2")
	require.NoError(t, res.Err)
	assert.Same(t, rm, roomByUser(t, d, "u2"))
	assert.Nil(t, roomByUser(t, d, "ghost"))
}

func TestCreatingSecondRoomLeavesFirst(t *testing.T) {
	d := newTestDirectory(t, Config{})
	first, _ := createRoom(t, d, "host1")
	second, _ := createRoom(t, d, "host1")

	assert.Same(t, second, roomByUser(t, d, "host1"))

	// host1 was the first room's only member, so vacating it on the
	// second create destroys it.
	select {
	case <-first.Done():
	case <-time.After(recvTimeout):
		t.Fatal("vacated room was not destroyed")
	}
}

func TestJoiningSecondRoomLeavesFirst(t *testing.T) {
	d := newTestDirectory(t, Config{})
	first, _ := createRoom(t, d, "host1")
	second, _ := createRoom(t, d, "host2")

	res := joinRoom(t, d, first.Code(), "u2")
	require.NoError(t, res.Err)
	res = joinRoom(t, d, second.Code(), "u2")
	require.NoError(t, res.Err)

	assert.Same(t, second, roomByUser(t, d, "u2"))
}

func TestLastPlayerLeavingDestroysRoom(t *testing.T) {
	d := newTestDirectory(t, Config{})
	rm, _ := createRoom(t, d, "host1")

	reply := make(chan error, 1)
	d.Inbox() <- LeaveRoom{UserID: "host1", Reply: reply}
	require.NoError(t, <-reply)

	assert.Nil(t, roomByUser(t, d, "host1"))
	select {
	case <-rm.Done():
	case <-time.After(recvTimeout):
		t.Fatal("empty room was not shut down")
	}
}

func TestLeaveWithoutRoom(t *testing.T) {
	d := newTestDirectory(t, Config{})
	reply := make(chan error, 1)
	d.Inbox() <- LeaveRoom{UserID: "nobody", Reply: reply}
	assert.ErrorIs(t, <-reply, ErrNotInRoom)
}

func TestDisconnectKeepsMembership(t *testing.T) {
	d := newTestDirectory(t, Config{})
	rm, _ := createRoom(t, d, "host1")

	d.Inbox() <- HandleDisconnect{ConnID: "conn-host1"}

	// Disconnecting is not leaving: the seat is held for reconnection.
	assert.Same(t, rm, roomByUser(t, d, "host1"))
}

func TestSpectateLifecycle(t *testing.T) {
	d := newTestDirectory(t, Config{})
	rm, _ := createRoom(t, d, "host1")

	reply := make(chan SpectateReply, 1)
	d.Inbox() <- SpectateRoom{
		Code:     rm.Code(),
		UserID:   "watcher",
		Username: "watcher",
		ConnID:   "conn-watcher",
		Outbox:   make(chan types.ServerEvent, 64),
		Reply:    reply,
	}
	res := <-reply
	require.NoError(t, res.Err)
	assert.True(t, res.View.IsSpectator)

	errReply := make(chan error, 1)
	d.Inbox() <- LeaveSpectator{UserID: "watcher", Reply: errReply}
	require.NoError(t, <-errReply)

	d.Inbox() <- LeaveSpectator{UserID: "watcher", Reply: errReply}
	assert.ErrorIs(t, <-errReply, ErrNotInRoom)
}

func TestListRooms(t *testing.T) {
	d := newTestDirectory(t, Config{})
	a, _ := createRoom(t, d, "host1")
	b, _ := createRoom(t, d, "host2")

	reply := make(chan []room.Summary, 1)
	d.Inbox() <- ListRooms{Reply: reply}
	summaries := <-reply

	require.Len(t, summaries, 2)
	codes := map[string]int{}
	for _, s := range summaries {
		codes[s.RoomCode] = s.PlayerCount
	}
	assert.Equal(t, 1, codes[a.Code()])
	assert.Equal(t, 1, codes[b.Code()])
}

func TestDeleteAllRooms(t *testing.T) {
	d := newTestDirectory(t, Config{})
	rm, _ := createRoom(t, d, "host1")
	createRoom(t, d, "host2")

	reply := make(chan int, 1)
	d.Inbox() <- DeleteAllRooms{Reply: reply}
	assert.Equal(t, 2, <-reply)

	assert.Nil(t, roomByUser(t, d, "host1"))
	select {
	case <-rm.Done():
	case <-time.After(recvTimeout):
		t.Fatal("room actor not shut down")
	}
}

func TestIdleRoomsAreSwept(t *testing.T) {
	d := newTestDirectory(t, Config{
		IdleTimeout:   50 * time.Millisecond,
		SweepInterval: 20 * time.Millisecond,
	})
	rm, _ := createRoom(t, d, "host1")

	select {
	case <-rm.Done():
	case <-time.After(recvTimeout):
		t.Fatal("idle room was not evicted")
	}
	assert.Nil(t, roomByUser(t, d, "host1"))
}
