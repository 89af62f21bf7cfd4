package game

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// listSupply deals words from a fixed list, ignoring filters.
type listSupply struct{ words []string }

func (s listSupply) Draw(n int, _ Difficulty, _ Language) []string {
	if n > len(s.words) {
		n = len(s.words)
	}
	out := make([]string, n)
	copy(out, s.words[:n])
	return out
}

func testSettings() Settings {
	return Settings{
		RoundTime:  60,
		WordsToWin: 10,
		Difficulty: DifficultyMedium,
		Language:   LanguageEnglish,
	}
}

func wordList(n int) []string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("word%02d", i)
	}
	return words
}

// fourPlayerRoom returns a startable room: u1,u2 on team 0 and u3,u4
// on team 1, everyone ready, u1 hosting.
func fourPlayerRoom(t *testing.T, settings Settings, bank []string) *Room {
	t.Helper()
	r := NewRoom("ABC123", "u1", settings, listSupply{words: bank})
	for i, id := range []string{"u1", "u2", "u3", "u4"} {
		_, err := r.Join(id, "player-"+id, "conn-"+id)
		require.NoError(t, err)
		require.NoError(t, r.AssignTeam(id, i/2))
		require.NoError(t, r.ToggleReady(id))
	}
	return r
}

func TestJoinReconnectAndLateJoin(t *testing.T) {
	r := fourPlayerRoom(t, testSettings(), wordList(50))
	require.NoError(t, r.Start(50))

	// A new user cannot join a running game.
	_, err := r.Join("u5", "player-u5", "conn-u5")
	assert.ErrorIs(t, err, ErrRoomClosed)

	// An existing member reconnects with a fresh connection and keeps
	// their seat.
	r.Disconnect("u2")
	p, _ := r.Player("u2")
	assert.Empty(t, p.ConnID)

	reconnected, err := r.Join("u2", "player-u2", "conn-u2b")
	require.NoError(t, err)
	assert.True(t, reconnected)
	p, _ = r.Player("u2")
	assert.Equal(t, "conn-u2b", p.ConnID)
	assert.Equal(t, 0, p.TeamID)
	assert.True(t, p.Ready)
}

func TestLeaveReassignsHost(t *testing.T) {
	r := fourPlayerRoom(t, testSettings(), wordList(50))

	empty := r.Leave("u1")
	assert.False(t, empty)
	assert.Equal(t, "u2", r.HostID)

	r.Leave("u2")
	r.Leave("u3")
	empty = r.Leave("u4")
	assert.True(t, empty)
}

func TestLeaveRemovesEmptyTeam(t *testing.T) {
	r := NewRoom("ABC123", "u1", testSettings(), listSupply{})
	for _, id := range []string{"u1", "u2", "u3"} {
		_, err := r.Join(id, id, "c-"+id)
		require.NoError(t, err)
	}
	require.NoError(t, r.AssignTeam("u1", 0))
	require.NoError(t, r.AssignTeam("u2", 0))
	require.NoError(t, r.AssignTeam("u3", 1))

	r.Leave("u3")
	assert.Len(t, r.Teams(), 1)
	assert.Equal(t, 0, r.Teams()[0].ID)
}

func TestLeaveDuringGameFinishesWithOneTeamLeft(t *testing.T) {
	r := fourPlayerRoom(t, testSettings(), wordList(50))
	require.NoError(t, r.Start(50))

	r.Leave("u3")
	r.Leave("u4")
	assert.Equal(t, StatusFinished, r.Status)
	assert.Nil(t, r.Round())
}

func TestExplainerLeaveDeactivatesRound(t *testing.T) {
	r := fourPlayerRoom(t, testSettings(), wordList(50))
	require.NoError(t, r.Start(50))

	explainer := r.Round().ExplainerID
	r.Leave(explainer)
	assert.True(t, r.AwaitingNextRound())
}

func TestAssignTeamMovesBetweenTeams(t *testing.T) {
	r := NewRoom("ABC123", "u1", testSettings(), listSupply{})
	_, err := r.Join("u1", "u1", "c1")
	require.NoError(t, err)

	require.NoError(t, r.AssignTeam("u1", 0))
	require.NoError(t, r.AssignTeam("u1", 1))

	require.Len(t, r.Teams(), 2)
	assert.Empty(t, r.Teams()[0].Members)
	assert.Equal(t, []string{"u1"}, r.Teams()[1].Members)

	assert.ErrorIs(t, r.AssignTeam("ghost", 0), ErrPlayerNotFound)
}

func TestAssignTeamLockedOnceStarted(t *testing.T) {
	r := fourPlayerRoom(t, testSettings(), wordList(50))
	require.NoError(t, r.Start(50))
	assert.ErrorIs(t, r.AssignTeam("u1", 1), ErrTeamsLocked)
}

func TestTeamNamesFromSettings(t *testing.T) {
	settings := testSettings()
	settings.TeamNames = map[int]string{0: "Reds"}

	r := NewRoom("ABC123", "u1", settings, listSupply{})
	_, err := r.Join("u1", "u1", "c1")
	require.NoError(t, err)
	_, err = r.Join("u2", "u2", "c2")
	require.NoError(t, err)
	require.NoError(t, r.AssignTeam("u1", 0))
	require.NoError(t, r.AssignTeam("u2", 1))

	assert.Equal(t, "Reds", r.Teams()[0].Name)
	assert.Equal(t, "Team 2", r.Teams()[1].Name)
}

func TestUpdateSettings(t *testing.T) {
	r := NewRoom("ABC123", "u1", testSettings(), listSupply{})
	_, err := r.Join("u1", "u1", "c1")
	require.NoError(t, err)
	require.NoError(t, r.AssignTeam("u1", 0))

	bad := testSettings()
	bad.RoundTime = 10
	assert.Error(t, r.UpdateSettings(bad))

	good := testSettings()
	good.RoundTime = 90
	good.TeamNames = map[int]string{0: "Winners"}
	require.NoError(t, r.UpdateSettings(good))
	assert.Equal(t, 90, r.Settings.RoundTime)
	assert.Equal(t, "Winners", r.Teams()[0].Name)
}

func TestCanStart(t *testing.T) {
	r := NewRoom("ABC123", "u1", testSettings(), listSupply{words: wordList(50)})
	assert.False(t, r.CanStart())

	for _, id := range []string{"u1", "u2"} {
		_, err := r.Join(id, id, "c-"+id)
		require.NoError(t, err)
	}
	require.NoError(t, r.AssignTeam("u1", 0))
	require.NoError(t, r.AssignTeam("u2", 1))
	assert.False(t, r.CanStart(), "players not ready yet")

	require.NoError(t, r.ToggleReady("u1"))
	require.NoError(t, r.ToggleReady("u2"))
	assert.True(t, r.CanStart())

	require.NoError(t, r.ToggleReady("u2"))
	assert.False(t, r.CanStart())
}

func TestStartIsOneShot(t *testing.T) {
	r := fourPlayerRoom(t, testSettings(), wordList(50))
	require.NoError(t, r.Start(50))
	assert.ErrorIs(t, r.Start(50), ErrAlreadyStarting)
	assert.Equal(t, StatusPlaying, r.Status)
}

func TestStartResetsScores(t *testing.T) {
	r := fourPlayerRoom(t, testSettings(), wordList(50))
	require.NoError(t, r.Start(50))
	assert.Equal(t, 0, r.Score(0))
	assert.Equal(t, 0, r.Score(1))
}

func TestChatValidationAndBounds(t *testing.T) {
	r := NewRoom("ABC123", "u1", testSettings(), listSupply{})

	_, err := r.AddChatMessage("u1", "u1", "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = r.AddChatMessage("u1", "u1", strings.Repeat("x", maxChatLength+1))
	assert.ErrorIs(t, err, ErrMessageTooLong)

	for i := 0; i < maxChatMessages+20; i++ {
		_, err := r.AddChatMessage("u1", "u1", fmt.Sprintf("msg %d", i))
		require.NoError(t, err)
	}
	all := r.ChatMessages(0)
	assert.Len(t, all, maxChatMessages)
	assert.Equal(t, "msg 119", all[len(all)-1].Message)

	recent := r.ChatMessages(chatHistoryLimit)
	assert.Len(t, recent, chatHistoryLimit)
	assert.Equal(t, "msg 119", recent[len(recent)-1].Message)
}

func TestSnapshotDetachedFromRoomState(t *testing.T) {
	r := fourPlayerRoom(t, testSettings(), wordList(50))
	snap := r.Snapshot()

	require.NoError(t, r.ToggleReady("u1"))
	require.NoError(t, r.AssignTeam("u2", 1))

	// The snapshot keeps the state it was taken from.
	assert.True(t, snap.Players[0].Ready)
	assert.Equal(t, []string{"u1", "u2"}, snap.Teams[0].Members)

	p, _ := r.Player("u1")
	assert.False(t, p.Ready)
	assert.Equal(t, []string{"u1"}, r.Teams()[0].Members)
}

func TestSpectators(t *testing.T) {
	r := fourPlayerRoom(t, testSettings(), wordList(50))
	r.AddSpectator("s1", "watcher", "conn-s1")
	r.AddSpectator("s1", "watcher", "conn-s1b") // reconnect, not a duplicate

	refs := r.Members()
	require.Len(t, refs, 5)
	assert.True(t, refs[4].Spectator)
	assert.Equal(t, "conn-s1b", refs[4].ConnID)

	r.RemoveSpectator("s1")
	assert.Len(t, r.Members(), 4)
}
