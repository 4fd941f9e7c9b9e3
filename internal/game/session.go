// internal/game/session.go
package game

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jason-s-yu/czar/internal/catalog"
	"github.com/jason-s-yu/czar/internal/models"
)

// Phase is one step of the round cycle.
type Phase string

const (
	PhaseWaitingForPlayers Phase = "waitingForPlayers"
	PhaseCardSubmission    Phase = "cardSubmission"
	PhaseCzarSelection     Phase = "czarSelection"
	PhaseRoundEnd          Phase = "roundEnd"
)

// PlayerState is the per-game state of one room member.
type PlayerState struct {
	ID    string
	Name  string
	Score int
	Hand  []models.AnswerCard
}

// Submission is the card a non-Czar player put forward this round.
type Submission struct {
	PlayerID string
	Card     models.AnswerCard
}

// RoundWinner records who took the round and with which card.
type RoundWinner struct {
	PlayerID   string
	PlayerName string
	Card       models.AnswerCard
}

// Session is the authoritative state of one room's game.
//
// A Session is never changed in place. Every transition returns a new value
// and leaves the receiver untouched.
//
// Every answer card id lives in exactly one of: a hand, AnswerDeck,
// PlayedAnswers, or Submissions.
type Session struct {
	ID          uuid.UUID
	Phase       Phase
	RoundNumber int
	CzarID      string
	Prompt      *models.PromptCard
	Submissions []Submission
	Players     []PlayerState // join order

	AnswerDeck    []models.AnswerCard
	PromptDeck    []models.PromptCard
	PlayedPrompts []models.PromptCard
	PlayedAnswers []models.AnswerCard

	RoundWinner *RoundWinner
}

// Start shuffles fresh decks, deals a full hand to every player in join
// order, draws the first prompt and makes the first player Czar.
func Start(rng Source, cat *catalog.Catalog, players []models.Player) (*Session, error) {
	if len(players) < 2 {
		return nil, ErrNotEnoughPlayers
	}
	if cat == nil || len(cat.Answers) == 0 {
		return nil, ErrCatalogIncomplete
	}

	s := &Session{
		ID:          uuid.New(),
		Phase:       PhaseCardSubmission,
		RoundNumber: 1,
		CzarID:      players[0].ID,
		Players:     make([]PlayerState, 0, len(players)),
		AnswerDeck:  Shuffle(rng, cat.Answers),
		PromptDeck:  Shuffle(rng, cat.Prompts),
	}
	for _, p := range players {
		hand, deck := Replenish(nil, s.AnswerDeck, HandSize)
		s.AnswerDeck = deck
		s.Players = append(s.Players, PlayerState{ID: p.ID, Name: p.Name, Hand: hand})
	}
	s.drawPrompt(rng)
	return s, nil
}

// Submit plays cardID from playerID's hand. A second submission in the same
// round replaces the first and the earlier card goes back to the hand. Once
// every non-Czar player has a submission the session moves to czar selection
// with the submissions in shuffled order.
func (s *Session) Submit(rng Source, playerID, cardID string) (*Session, error) {
	if s.Phase != PhaseCardSubmission {
		return nil, fmt.Errorf("submit in %s: %w", s.Phase, ErrWrongPhase)
	}
	pi := s.playerIndex(playerID)
	if pi < 0 {
		return nil, ErrUnknownPlayer
	}
	if playerID == s.CzarID {
		return nil, ErrCzarCannotSubmit
	}
	si := s.submissionIndex(playerID)
	if si >= 0 && s.Submissions[si].Card.ID == cardID {
		return s.clone(), nil
	}
	ci := cardIndex(s.Players[pi].Hand, cardID)
	if ci < 0 {
		return nil, fmt.Errorf("card %s: %w", cardID, ErrCardNotInHand)
	}

	next := s.clone()
	p := &next.Players[pi]
	card := p.Hand[ci]
	p.Hand = append(p.Hand[:ci], p.Hand[ci+1:]...)
	if si >= 0 {
		p.Hand = append(p.Hand, next.Submissions[si].Card)
		next.Submissions[si].Card = card
	} else {
		next.Submissions = append(next.Submissions, Submission{PlayerID: playerID, Card: card})
	}
	next.maybeCloseSubmissions(rng)
	return next, nil
}

// SelectWinner awards the round to winnerID. Only the Czar may call it and
// only a player with a submission can win.
func (s *Session) SelectWinner(czarID, winnerID string) (*Session, error) {
	if s.Phase != PhaseCzarSelection {
		return nil, fmt.Errorf("select winner in %s: %w", s.Phase, ErrWrongPhase)
	}
	if czarID != s.CzarID {
		return nil, ErrNotCzar
	}
	si := s.submissionIndex(winnerID)
	pi := s.playerIndex(winnerID)
	if si < 0 || pi < 0 {
		return nil, fmt.Errorf("player %s: %w", winnerID, ErrInvalidTarget)
	}

	next := s.clone()
	next.Players[pi].Score++
	next.RoundWinner = &RoundWinner{
		PlayerID:   winnerID,
		PlayerName: next.Players[pi].Name,
		Card:       next.Submissions[si].Card,
	}
	next.Phase = PhaseRoundEnd
	return next, nil
}

// SelectSubmission is SelectWinner addressed by position in the shuffled
// submission list, the only handle the Czar's view carries.
func (s *Session) SelectSubmission(czarID string, index int) (*Session, error) {
	if s.Phase != PhaseCzarSelection {
		return nil, fmt.Errorf("select submission in %s: %w", s.Phase, ErrWrongPhase)
	}
	if czarID != s.CzarID {
		return nil, ErrNotCzar
	}
	if index < 0 || index >= len(s.Submissions) {
		return nil, fmt.Errorf("submission %d: %w", index, ErrInvalidTarget)
	}
	return s.SelectWinner(czarID, s.Submissions[index].PlayerID)
}

// NextRound closes a finished round and opens the next one with the Czar
// passed to the following player in join order.
func (s *Session) NextRound(rng Source) (*Session, error) {
	if s.Phase != PhaseRoundEnd {
		return nil, fmt.Errorf("next round in %s: %w", s.Phase, ErrWrongPhase)
	}
	next := s.clone()
	ci := next.playerIndex(next.CzarID)
	next.advance(rng, (ci+1)%len(next.Players))
	return next, nil
}

// RemovePlayer takes playerID out of the game. The leaver's hand and any
// submission go to the played pile. If the Czar leaves, the round restarts
// with the player who followed them in join order. Otherwise an open round
// may close because the leaver was the last one being waited on, and a czar
// selection left with nothing to judge restarts under the same Czar.
//
// When the last player leaves the returned session has no players and no
// transition runs; the owning room is expected to go away with it.
func (s *Session) RemovePlayer(rng Source, playerID string) (*Session, error) {
	pi := s.playerIndex(playerID)
	if pi < 0 {
		return nil, ErrUnknownPlayer
	}

	next := s.clone()
	next.PlayedAnswers = append(next.PlayedAnswers, next.Players[pi].Hand...)
	if si := next.submissionIndex(playerID); si >= 0 {
		next.PlayedAnswers = append(next.PlayedAnswers, next.Submissions[si].Card)
		next.Submissions = append(next.Submissions[:si], next.Submissions[si+1:]...)
	}
	next.Players = append(next.Players[:pi], next.Players[pi+1:]...)
	if len(next.Players) == 0 {
		return next, nil
	}

	if playerID == s.CzarID {
		next.advance(rng, pi%len(next.Players))
		return next, nil
	}

	switch next.Phase {
	case PhaseCardSubmission:
		next.maybeCloseSubmissions(rng)
	case PhaseCzarSelection:
		if len(next.Submissions) == 0 {
			next.advance(rng, next.playerIndex(next.CzarID))
		}
	}
	return next, nil
}

// Player returns the state of playerID.
func (s *Session) Player(playerID string) (PlayerState, bool) {
	if i := s.playerIndex(playerID); i >= 0 {
		return s.Players[i], true
	}
	return PlayerState{}, false
}

// Renamed returns a copy of s with playerID's display name replaced.
func (s *Session) Renamed(playerID, name string) *Session {
	next := s.clone()
	if i := next.playerIndex(playerID); i >= 0 {
		next.Players[i].Name = name
	}
	return next
}

// HasSubmitted reports whether playerID has a card in this round.
func (s *Session) HasSubmitted(playerID string) bool {
	return s.submissionIndex(playerID) >= 0
}

// advance moves the prompt and submissions to history, rotates the Czar to
// the player at czarIdx, draws a new prompt and refills non-Czar hands.
func (s *Session) advance(rng Source, czarIdx int) {
	if s.Prompt != nil {
		s.PlayedPrompts = append(s.PlayedPrompts, *s.Prompt)
		s.Prompt = nil
	}
	for _, sub := range s.Submissions {
		s.PlayedAnswers = append(s.PlayedAnswers, sub.Card)
	}
	s.Submissions = nil
	s.RoundWinner = nil

	s.CzarID = s.Players[czarIdx].ID
	s.Phase = PhaseCardSubmission
	s.RoundNumber++
	s.drawPrompt(rng)

	for i := range s.Players {
		p := &s.Players[i]
		if p.ID == s.CzarID {
			continue
		}
		if HandSize-len(p.Hand) > len(s.AnswerDeck) {
			s.recycleAnswers(rng)
		}
		p.Hand, s.AnswerDeck = Replenish(p.Hand, s.AnswerDeck, HandSize)
	}
}

// drawPrompt sets the round prompt, reshuffling played prompts into the deck
// when it runs dry. Prompt stays nil only when no prompt is left anywhere.
func (s *Session) drawPrompt(rng Source) {
	if len(s.PromptDeck) == 0 && len(s.PlayedPrompts) > 0 {
		s.PromptDeck = Shuffle(rng, s.PlayedPrompts)
		s.PlayedPrompts = nil
	}
	if p, rest, ok := Draw(rng, s.PromptDeck); ok {
		s.Prompt = &p
		s.PromptDeck = rest
	}
}

// recycleAnswers shuffles played answers under the remaining deck so unseen
// cards are still dealt first.
func (s *Session) recycleAnswers(rng Source) {
	if len(s.PlayedAnswers) == 0 {
		return
	}
	deck := Shuffle(rng, s.PlayedAnswers)
	s.AnswerDeck = append(deck, s.AnswerDeck...)
	s.PlayedAnswers = nil
}

func (s *Session) maybeCloseSubmissions(rng Source) {
	if len(s.Submissions) == 0 {
		return
	}
	for _, p := range s.Players {
		if p.ID != s.CzarID && !s.HasSubmitted(p.ID) {
			return
		}
	}
	s.Submissions = Shuffle(rng, s.Submissions)
	s.Phase = PhaseCzarSelection
}

func (s *Session) playerIndex(id string) int {
	for i, p := range s.Players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (s *Session) submissionIndex(playerID string) int {
	for i, sub := range s.Submissions {
		if sub.PlayerID == playerID {
			return i
		}
	}
	return -1
}

func cardIndex(hand []models.AnswerCard, id string) int {
	for i, c := range hand {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (s *Session) clone() *Session {
	next := *s
	next.Players = make([]PlayerState, len(s.Players))
	for i, p := range s.Players {
		p.Hand = append([]models.AnswerCard(nil), p.Hand...)
		next.Players[i] = p
	}
	next.Submissions = append([]Submission(nil), s.Submissions...)
	next.AnswerDeck = append([]models.AnswerCard(nil), s.AnswerDeck...)
	next.PromptDeck = append([]models.PromptCard(nil), s.PromptDeck...)
	next.PlayedPrompts = append([]models.PromptCard(nil), s.PlayedPrompts...)
	next.PlayedAnswers = append([]models.AnswerCard(nil), s.PlayedAnswers...)
	if s.Prompt != nil {
		p := *s.Prompt
		next.Prompt = &p
	}
	if s.RoundWinner != nil {
		w := *s.RoundWinner
		next.RoundWinner = &w
	}
	return &next
}
