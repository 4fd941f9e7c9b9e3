// internal/lobby/lobby_store_test.go
package lobby

import (
	"fmt"
	"math/rand"
	"strconv"
	"testing"

	"github.com/jason-s-yu/czar/internal/catalog"
	"github.com/jason-s-yu/czar/internal/game"
	"github.com/jason-s-yu/czar/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCards() *catalog.Catalog {
	c := &catalog.Catalog{}
	for i := 0; i < 5; i++ {
		c.Prompts = append(c.Prompts, models.PromptCard{ID: fmt.Sprintf("p%d", i), Text: "______?", Pick: 1})
	}
	for i := 0; i < 60; i++ {
		c.Answers = append(c.Answers, models.AnswerCard{ID: fmt.Sprintf("a%d", i), Text: fmt.Sprintf("answer %d", i)})
	}
	return c
}

func newTestStore(t *testing.T) (*Store, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	return NewStore(rand.New(rand.NewSource(1)), testCards(), logger), hook
}

// setupRoom creates a room and joins each name with a lowercased conn id.
func setupRoom(t *testing.T, s *Store, names ...string) *Room {
	t.Helper()
	r, err := s.CreateRoom()
	require.NoError(t, err)
	for _, n := range names {
		_, err := s.AddPlayer(r.Code, connID(n), n)
		require.NoError(t, err)
	}
	return r
}

func connID(name string) string { return "conn-" + name }

func TestCreateRoomCodes(t *testing.T) {
	s, hook := newTestStore(t)
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		r, err := s.CreateRoom()
		require.NoError(t, err)
		n, err := strconv.Atoi(r.Code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 1000)
		assert.LessOrEqual(t, n, 9999)
		assert.False(t, seen[r.Code], "code %s issued twice", r.Code)
		seen[r.Code] = true

		assert.Empty(t, r.Players)
		assert.Empty(t, r.HostID)
	}
	assert.Len(t, s.Rooms(), 200)
	assert.Equal(t, "room created", hook.LastEntry().Message)
}

func TestCreateRoomWhenCodesRunOut(t *testing.T) {
	s, _ := newTestStore(t)
	for n := minCode; n <= maxCode; n++ {
		if n == 4242 {
			continue
		}
		s.rooms[strconv.Itoa(n)] = &Room{Code: strconv.Itoa(n)}
	}

	r, err := s.CreateRoom()
	require.NoError(t, err)
	assert.Equal(t, "4242", r.Code)

	_, err = s.CreateRoom()
	assert.ErrorIs(t, err, ErrNoFreeCode)
	assert.Len(t, s.Rooms(), maxCode-minCode+1)
}

func TestAddPlayer(t *testing.T) {
	s, _ := newTestStore(t)
	r := setupRoom(t, s, "Alice", "Bob")

	assert.Equal(t, connID("Alice"), r.HostID)
	require.Len(t, r.Players, 2)
	assert.Equal(t, "Bob", r.Players[1].Name)

	_, err := s.AddPlayer(r.Code, "conn-other", "Bob")
	assert.ErrorIs(t, err, ErrNameConflict)

	_, err = s.AddPlayer("0000", "conn-x", "X")
	assert.ErrorIs(t, err, ErrRoomNotFound)

	_, err = s.AddPlayer(r.Code, "conn-x", "   ")
	assert.ErrorIs(t, err, ErrInvalidName)

	other, err := s.CreateRoom()
	require.NoError(t, err)
	_, err = s.AddPlayer(other.Code, connID("Alice"), "Alice")
	assert.ErrorIs(t, err, ErrAlreadyInRoom)
}

func TestAddPlayerRejoinUpdatesName(t *testing.T) {
	s, _ := newTestStore(t)
	r := setupRoom(t, s, "Alice", "Bob")

	_, err := s.AddPlayer(r.Code, connID("Bob"), "Robert")
	require.NoError(t, err)
	require.Len(t, r.Players, 2)
	assert.Equal(t, "Robert", r.Players[1].Name)

	// Keeping one's own name is not a conflict.
	_, err = s.AddPlayer(r.Code, connID("Bob"), "Robert")
	assert.NoError(t, err)
}

func TestAddPlayerAfterStart(t *testing.T) {
	s, _ := newTestStore(t)
	r := setupRoom(t, s, "Alice", "Bob")
	require.NoError(t, r.StartGame(connID("Alice")))

	_, err := s.AddPlayer(r.Code, connID("Carol"), "Carol")
	assert.ErrorIs(t, err, ErrGameStarted)

	_, err = s.AddPlayer(r.Code, connID("Bob"), "Bobby")
	require.NoError(t, err)
	p, ok := r.Session.Player(connID("Bob"))
	require.True(t, ok)
	assert.Equal(t, "Bobby", p.Name)
}

func TestRemovePlayerHostHandover(t *testing.T) {
	s, hook := newTestStore(t)
	r := setupRoom(t, s, "Alice", "Bob", "Carol")

	rm, err := s.RemovePlayer(connID("Alice"))
	require.NoError(t, err)
	assert.True(t, rm.WasHost)
	assert.False(t, rm.Destroyed)
	assert.Equal(t, "Alice", rm.Player.Name)
	assert.Equal(t, connID("Bob"), r.HostID)
	assert.Equal(t, connID("Bob"), hook.LastEntry().Data["newHost"])

	_, err = s.RemovePlayer(connID("Alice"))
	assert.ErrorIs(t, err, ErrNotInRoom)

	rm, err = s.RemovePlayer(connID("Carol"))
	require.NoError(t, err)
	assert.False(t, rm.WasHost)
	assert.Equal(t, connID("Bob"), r.HostID)
}

func TestRemoveLastPlayerDestroysRoom(t *testing.T) {
	s, _ := newTestStore(t)
	r := setupRoom(t, s, "Alice")

	rm, err := s.RemovePlayer(connID("Alice"))
	require.NoError(t, err)
	assert.True(t, rm.Destroyed)
	assert.Nil(t, rm.Room)
	assert.Equal(t, r.Code, rm.Code)

	_, ok := s.Get(r.Code)
	assert.False(t, ok)
	_, ok = s.FindRoomFor(connID("Alice"))
	assert.False(t, ok)
}

func TestFindRoomFor(t *testing.T) {
	s, _ := newTestStore(t)
	a := setupRoom(t, s, "Alice")
	b := setupRoom(t, s, "Bob")

	got, ok := s.FindRoomFor(connID("Bob"))
	require.True(t, ok)
	assert.Equal(t, b.Code, got.Code)
	got, ok = s.FindRoomFor(connID("Alice"))
	require.True(t, ok)
	assert.Equal(t, a.Code, got.Code)
	_, ok = s.FindRoomFor("nobody")
	assert.False(t, ok)
}

func TestRemoveCzarRepairsSession(t *testing.T) {
	s, _ := newTestStore(t)
	r := setupRoom(t, s, "Alice", "Bob", "Carol")
	require.NoError(t, r.StartGame(connID("Alice")))
	require.Equal(t, connID("Alice"), r.Session.CzarID)
	before := r.Session

	rm, err := s.RemovePlayer(connID("Alice"))
	require.NoError(t, err)
	assert.True(t, rm.WasCzar)
	assert.Same(t, before, rm.Before)
	assert.Equal(t, connID("Bob"), r.Session.CzarID)
	assert.Equal(t, 2, r.Session.RoundNumber)
	assert.Equal(t, game.PhaseCardSubmission, r.Session.Phase)
	assert.Equal(t, connID("Bob"), r.HostID)
	assert.Len(t, r.Session.Players, 2)
}

func TestStoreLogsWithRoomFields(t *testing.T) {
	s, hook := newTestStore(t)
	r := setupRoom(t, s, "Alice")

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, r.Code, entry.Data["room"])
	assert.Equal(t, "Alice", entry.Data["name"])
}
