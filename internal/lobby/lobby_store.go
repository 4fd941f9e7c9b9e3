// internal/lobby/lobby_store.go
package lobby

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jason-s-yu/czar/internal/catalog"
	"github.com/jason-s-yu/czar/internal/game"
	"github.com/jason-s-yu/czar/internal/models"
	"github.com/sirupsen/logrus"
)

var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrNameConflict  = errors.New("name already taken in this room")
	ErrGameStarted   = errors.New("game already started")
	ErrNotInRoom     = errors.New("not in a room")
	ErrAlreadyInRoom = errors.New("already in another room")
	ErrNotHost       = errors.New("only the host can do that")
	ErrNoSession     = errors.New("no game in progress")
	ErrInvalidName   = errors.New("player name must not be empty")
	ErrNoFreeCode    = errors.New("no free room code")
)

// MaxNameLength caps display names, counted in runes.
const MaxNameLength = 32

const (
	minCode = 1000
	maxCode = 9999
	// codeAttempts random picks are tried before scanning for a free code.
	codeAttempts = 100
)

// Store owns every active room keyed by its 4-digit code.
//
// Store has no locks. All calls must come from one goroutine, normally the
// command loop in handlers.GameServer.
type Store struct {
	rooms  map[string]*Room
	rng    game.Source
	cards  *catalog.Catalog
	logger logrus.FieldLogger
	now    func() time.Time
}

// NewStore returns an empty store dealing from cards with rng.
func NewStore(rng game.Source, cards *catalog.Catalog, logger logrus.FieldLogger) *Store {
	return &Store{
		rooms:  make(map[string]*Room),
		rng:    rng,
		cards:  cards,
		logger: logger,
		now:    time.Now,
	}
}

// CreateRoom registers an empty room with no host under a fresh code.
// It fails with ErrNoFreeCode once every code is held by an active room.
func (s *Store) CreateRoom() (*Room, error) {
	code, err := s.newCode()
	if err != nil {
		return nil, err
	}
	r := &Room{
		Code:      code,
		CreatedAt: s.now(),
		rng:       s.rng,
		cards:     s.cards,
	}
	s.rooms[code] = r
	s.logger.WithField("room", code).Info("room created")
	return r, nil
}

// newCode picks a random code in 1000-9999 not held by an active room.
// When random picks keep colliding it falls back to the lowest free code.
func (s *Store) newCode() (string, error) {
	for i := 0; i < codeAttempts; i++ {
		code := strconv.Itoa(minCode + s.rng.Intn(maxCode-minCode+1))
		if _, taken := s.rooms[code]; !taken {
			return code, nil
		}
	}
	for n := minCode; n <= maxCode; n++ {
		code := strconv.Itoa(n)
		if _, taken := s.rooms[code]; !taken {
			return code, nil
		}
	}
	return "", ErrNoFreeCode
}

// Get looks up a room by code.
func (s *Store) Get(code string) (*Room, bool) {
	r, ok := s.rooms[code]
	return r, ok
}

// Rooms returns every active room ordered by code.
func (s *Store) Rooms() []*Room {
	out := make([]*Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// FindRoomFor returns the room connID is a member of.
func (s *Store) FindRoomFor(connID string) (*Room, bool) {
	for _, r := range s.rooms {
		if r.playerIndex(connID) >= 0 {
			return r, true
		}
	}
	return nil, false
}

// AddPlayer puts connID into the room under name. A connection already in
// the room is a rejoin and only has its name updated. The first player to
// join becomes host.
func (s *Store) AddPlayer(code, connID, name string) (*Room, error) {
	r, name, err := s.validateJoin(code, connID, name)
	if err != nil {
		return nil, err
	}

	if i := r.playerIndex(connID); i >= 0 {
		r.Players[i].Name = name
		if r.Session != nil {
			r.Session = r.Session.Renamed(connID, name)
		}
		s.logger.WithFields(logrus.Fields{"room": code, "player": connID}).Info("player rejoined")
		return r, nil
	}
	if other, in := s.FindRoomFor(connID); in {
		return nil, fmt.Errorf("room %s: %w", other.Code, ErrAlreadyInRoom)
	}

	r.Players = append(r.Players, models.Player{ID: connID, Name: name, JoinedAt: s.now()})
	if r.HostID == "" {
		r.HostID = connID
	}
	s.logger.WithFields(logrus.Fields{"room": code, "player": connID, "name": name}).Info("player joined")
	return r, nil
}

// CheckJoin runs the checks AddPlayer would run against the target room
// without changing anything. Membership of another room is not checked.
func (s *Store) CheckJoin(code, connID, name string) error {
	_, _, err := s.validateJoin(code, connID, name)
	return err
}

func (s *Store) validateJoin(code, connID, name string) (*Room, string, error) {
	name = strings.TrimSpace(name)
	if name == "" || len([]rune(name)) > MaxNameLength {
		return nil, "", ErrInvalidName
	}
	r, ok := s.rooms[code]
	if !ok {
		return nil, "", fmt.Errorf("room %s: %w", code, ErrRoomNotFound)
	}
	for _, p := range r.Players {
		if p.Name == name && p.ID != connID {
			return nil, "", fmt.Errorf("%q: %w", name, ErrNameConflict)
		}
	}
	if r.GameStarted && !r.HasPlayer(connID) {
		return nil, "", fmt.Errorf("room %s: %w", code, ErrGameStarted)
	}
	return r, name, nil
}

// Removal describes what RemovePlayer changed.
type Removal struct {
	Code      string
	Player    models.Player
	Room      *Room // nil once the room is destroyed
	Destroyed bool
	WasHost   bool
	WasCzar   bool
	// Before is the session as it was prior to the removal, if a game was running.
	Before *game.Session
}

// RemovePlayer takes connID out of whichever room it is in. An emptied room
// is destroyed, a departing host is replaced by the earliest remaining
// joiner, and a running session is repaired around the gap.
func (s *Store) RemovePlayer(connID string) (Removal, error) {
	r, ok := s.FindRoomFor(connID)
	if !ok {
		return Removal{}, ErrNotInRoom
	}
	i := r.playerIndex(connID)
	rm := Removal{
		Code:    r.Code,
		Player:  r.Players[i],
		Room:    r,
		WasHost: r.HostID == connID,
		Before:  r.Session,
	}

	var nextSession *game.Session
	if r.Session != nil {
		rm.WasCzar = r.Session.CzarID == connID
		next, err := r.Session.RemovePlayer(s.rng, connID)
		switch {
		case err == nil:
			nextSession = next
		case errors.Is(err, game.ErrUnknownPlayer):
			nextSession = r.Session
		default:
			return Removal{}, err
		}
	}

	r.Players = append(r.Players[:i:i], r.Players[i+1:]...)
	r.Session = nextSession
	fields := logrus.Fields{"room": r.Code, "player": connID}

	if len(r.Players) == 0 {
		delete(s.rooms, r.Code)
		rm.Room = nil
		rm.Destroyed = true
		s.logger.WithFields(fields).Info("last player left, room destroyed")
		return rm, nil
	}
	if rm.WasHost {
		r.HostID = r.Players[0].ID
		fields["newHost"] = r.HostID
	}
	s.logger.WithFields(fields).Info("player left")
	return rm, nil
}
