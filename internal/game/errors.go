package game

import "errors"

// Validation failures returned by session transitions. A failed transition
// never changes the session it was called on.
var (
	ErrWrongPhase        = errors.New("action not allowed in the current phase")
	ErrNotCzar           = errors.New("only the czar can do that")
	ErrCzarCannotSubmit  = errors.New("the czar does not submit a card")
	ErrCardNotInHand     = errors.New("card is not in your hand")
	ErrInvalidTarget     = errors.New("no submission for that target")
	ErrNotEnoughPlayers  = errors.New("at least two players are required")
	ErrUnknownPlayer     = errors.New("player is not part of this game")
	ErrCatalogIncomplete = errors.New("catalog has no cards to deal")
)
