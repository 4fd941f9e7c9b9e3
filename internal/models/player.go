package models

import "time"

// Player is a room member, identified by the connection that joined.
// Per-game state (score, hand) lives in the game session.
type Player struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joinedAt"`
}
