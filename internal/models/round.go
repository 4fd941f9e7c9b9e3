// internal/models/round.go
package models

import "github.com/google/uuid"

// RoundResult is the record of a resolved round, published to the historian
// queue and persisted by the historian service.
type RoundResult struct {
	SessionID   uuid.UUID `json:"session_id"`
	RoomCode    string    `json:"room_code"`
	RoundNumber int       `json:"round_number"`
	PromptID    string    `json:"prompt_id,omitempty"`
	PromptText  string    `json:"prompt_text,omitempty"`
	WinnerID    string    `json:"winner_id"`
	WinnerName  string    `json:"winner_name"`
	CardID      string    `json:"card_id"`
	CardText    string    `json:"card_text"`
	Timestamp   int64     `json:"timestamp"` // epoch millis
}
