// internal/lobby/lobby.go
package lobby

import (
	"time"

	"github.com/jason-s-yu/czar/internal/catalog"
	"github.com/jason-s-yu/czar/internal/game"
	"github.com/jason-s-yu/czar/internal/models"
)

// Room is one isolated game: its roster, host and optional running session.
//
// Game operations compute the next session first and assign it only when the
// transition succeeds, so a rejected command leaves the room as it was.
type Room struct {
	Code        string
	Players     []models.Player // join order
	HostID      string
	GameStarted bool
	Session     *game.Session
	CreatedAt   time.Time

	rng   game.Source
	cards *catalog.Catalog
}

// HasPlayer reports whether connID is a member.
func (r *Room) HasPlayer(connID string) bool {
	return r.playerIndex(connID) >= 0
}

// Player returns the member with connID.
func (r *Room) Player(connID string) (models.Player, bool) {
	if i := r.playerIndex(connID); i >= 0 {
		return r.Players[i], true
	}
	return models.Player{}, false
}

func (r *Room) playerIndex(connID string) int {
	for i, p := range r.Players {
		if p.ID == connID {
			return i
		}
	}
	return -1
}

// StartGame deals a fresh session. Only the host may start and only once.
func (r *Room) StartGame(requester string) error {
	if !r.HasPlayer(requester) {
		return ErrNotInRoom
	}
	if r.GameStarted {
		return ErrGameStarted
	}
	if requester != r.HostID {
		return ErrNotHost
	}
	s, err := game.Start(r.rng, r.cards, r.Players)
	if err != nil {
		return err
	}
	r.Session = s
	r.GameStarted = true
	return nil
}

// SubmitCard plays cardID from the requester's hand.
func (r *Room) SubmitCard(player, cardID string) error {
	s, err := r.session(player)
	if err != nil {
		return err
	}
	return r.commit(s.Submit(r.rng, player, cardID))
}

// SelectWinner lets the Czar award the round to winnerID.
func (r *Room) SelectWinner(czar, winnerID string) error {
	s, err := r.session(czar)
	if err != nil {
		return err
	}
	return r.commit(s.SelectWinner(czar, winnerID))
}

// SelectSubmission lets the Czar award the round by submission position.
func (r *Room) SelectSubmission(czar string, index int) error {
	s, err := r.session(czar)
	if err != nil {
		return err
	}
	return r.commit(s.SelectSubmission(czar, index))
}

// NextRound opens the following round. Host only.
func (r *Room) NextRound(requester string) error {
	s, err := r.session(requester)
	if err != nil {
		return err
	}
	if requester != r.HostID {
		return ErrNotHost
	}
	return r.commit(s.NextRound(r.rng))
}

func (r *Room) session(requester string) (*game.Session, error) {
	if !r.HasPlayer(requester) {
		return nil, ErrNotInRoom
	}
	if r.Session == nil {
		return nil, ErrNoSession
	}
	return r.Session, nil
}

func (r *Room) commit(next *game.Session, err error) error {
	if err != nil {
		return err
	}
	r.Session = next
	return nil
}

// View projects the running session for viewerID.
func (r *Room) View(viewerID string) (game.View, bool) {
	if r.Session == nil {
		return game.View{}, false
	}
	v := game.Project(r.Session, viewerID)
	v.You.IsHost = viewerID == r.HostID
	return v, true
}

// PlayerSnapshot is a member as shown in room listings.
type PlayerSnapshot struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Score    int       `json:"score"`
	HandSize int       `json:"handSize"`
	IsHost   bool      `json:"isHost"`
	IsCzar   bool      `json:"isCzar"`
	JoinedAt time.Time `json:"joinedAt"`
}

// Snapshot is the public membership view of a room. It carries no cards.
type Snapshot struct {
	Code        string           `json:"code"`
	HostID      string           `json:"hostId,omitempty"`
	GameStarted bool             `json:"gameStarted"`
	CreatedAt   time.Time        `json:"createdAt"`
	Players     []PlayerSnapshot `json:"players"`
	Phase       game.Phase       `json:"phase"`
	RoundNumber int              `json:"roundNumber,omitempty"`
	CzarID      string           `json:"czarId,omitempty"`
}

// Snapshot merges the roster with per-game scores.
func (r *Room) Snapshot() Snapshot {
	snap := Snapshot{
		Code:        r.Code,
		HostID:      r.HostID,
		GameStarted: r.GameStarted,
		CreatedAt:   r.CreatedAt,
		Players:     make([]PlayerSnapshot, 0, len(r.Players)),
		Phase:       game.PhaseWaitingForPlayers,
	}
	if r.Session != nil {
		snap.Phase = r.Session.Phase
		snap.RoundNumber = r.Session.RoundNumber
		snap.CzarID = r.Session.CzarID
	}
	for _, p := range r.Players {
		ps := PlayerSnapshot{
			ID:       p.ID,
			Name:     p.Name,
			IsHost:   p.ID == r.HostID,
			JoinedAt: p.JoinedAt,
		}
		if r.Session != nil {
			if st, ok := r.Session.Player(p.ID); ok {
				ps.Score = st.Score
				ps.HandSize = len(st.Hand)
			}
			ps.IsCzar = p.ID == r.Session.CzarID
		}
		snap.Players = append(snap.Players, ps)
	}
	return snap
}
