// internal/game/sync_state.go
package game

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/czar/internal/models"
)

// CardView is an answer card as one viewer may see it. Cards in hands the
// viewer does not own carry only Hidden.
type CardView struct {
	ID     string `json:"id,omitempty"`
	Text   string `json:"text,omitempty"`
	Hidden bool   `json:"hidden,omitempty"`
}

// PlayerView is one player's public state plus, for the viewer, their hand.
type PlayerView struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Score        int        `json:"score"`
	HandSize     int        `json:"handSize"`
	IsCzar       bool       `json:"isCzar"`
	HasSubmitted bool       `json:"hasSubmitted"`
	Hand         []CardView `json:"hand"`
}

// SubmissionKind tags the shape of a SubmissionView.
type SubmissionKind string

const (
	KindOwn         SubmissionKind = "own"
	KindAnonymous   SubmissionKind = "anonymous"
	KindCzarVisible SubmissionKind = "czarVisible"
	KindRevealed    SubmissionKind = "revealed"
)

// SubmissionView is one entry of a viewer's submission list. The concrete
// type decides what the viewer is allowed to learn about that submission.
type SubmissionView interface {
	SubmissionKind() SubmissionKind
}

// OwnSubmission is the viewer's own card. Index is set once submissions
// have been shuffled into their judging order.
type OwnSubmission struct {
	Kind  SubmissionKind    `json:"kind"`
	Index *int              `json:"index,omitempty"`
	Card  models.AnswerCard `json:"card"`
}

// AnonymousSubmission marks someone else's card without its content. While
// cards are still coming in it names the submitter; once judging starts it
// carries only the position.
type AnonymousSubmission struct {
	Kind      SubmissionKind `json:"kind"`
	Index     *int           `json:"index,omitempty"`
	PlayerID  string         `json:"playerId,omitempty"`
	Submitted bool           `json:"submitted,omitempty"`
}

// CzarVisibleSubmission shows the Czar a card with no attribution.
type CzarVisibleSubmission struct {
	Kind  SubmissionKind    `json:"kind"`
	Index int               `json:"index"`
	Card  models.AnswerCard `json:"card"`
}

// RevealedSubmission is a judged card with its author.
type RevealedSubmission struct {
	Kind       SubmissionKind    `json:"kind"`
	Index      int               `json:"index"`
	PlayerID   string            `json:"playerId"`
	PlayerName string            `json:"playerName"`
	Card       models.AnswerCard `json:"card"`
	Winner     bool              `json:"winner"`
}

func (OwnSubmission) SubmissionKind() SubmissionKind         { return KindOwn }
func (AnonymousSubmission) SubmissionKind() SubmissionKind   { return KindAnonymous }
func (CzarVisibleSubmission) SubmissionKind() SubmissionKind { return KindCzarVisible }
func (RevealedSubmission) SubmissionKind() SubmissionKind    { return KindRevealed }

// WinnerView is the public result of a judged round.
type WinnerView struct {
	PlayerID   string            `json:"playerId"`
	PlayerName string            `json:"playerName"`
	Card       models.AnswerCard `json:"card"`
}

// Viewer describes who a View was built for.
type Viewer struct {
	ID     string `json:"id"`
	IsCzar bool   `json:"isCzar"`
	IsHost bool   `json:"isHost"`
}

// View is the sanitized session snapshot sent to a single player. Deck
// contents appear only as counts.
type View struct {
	SessionID         uuid.UUID          `json:"sessionId"`
	Phase             Phase              `json:"phase"`
	RoundNumber       int                `json:"roundNumber"`
	CzarID            string             `json:"czarId"`
	Prompt            *models.PromptCard `json:"prompt"`
	Players           []PlayerView       `json:"players"`
	Submissions       []SubmissionView   `json:"submissions"`
	SubmissionCount   int                `json:"submissionCount"`
	AnswerDeckSize    int                `json:"answerDeckSize"`
	PromptDeckSize    int                `json:"promptDeckSize"`
	PlayedAnswerCount int                `json:"playedAnswerCount"`
	PlayedPromptCount int                `json:"playedPromptCount"`
	RoundWinner       *WinnerView        `json:"roundWinner,omitempty"`
	You               Viewer             `json:"you"`
}

// Project builds the snapshot of s that viewerID is allowed to see.
func Project(s *Session, viewerID string) View {
	v := View{
		SessionID:         s.ID,
		Phase:             s.Phase,
		RoundNumber:       s.RoundNumber,
		CzarID:            s.CzarID,
		Players:           make([]PlayerView, 0, len(s.Players)),
		Submissions:       projectSubmissions(s, viewerID),
		SubmissionCount:   len(s.Submissions),
		AnswerDeckSize:    len(s.AnswerDeck),
		PromptDeckSize:    len(s.PromptDeck),
		PlayedAnswerCount: len(s.PlayedAnswers),
		PlayedPromptCount: len(s.PlayedPrompts),
		You:               Viewer{ID: viewerID, IsCzar: viewerID == s.CzarID},
	}
	if s.Prompt != nil {
		p := *s.Prompt
		v.Prompt = &p
	}

	for _, p := range s.Players {
		pv := PlayerView{
			ID:           p.ID,
			Name:         p.Name,
			Score:        p.Score,
			HandSize:     len(p.Hand),
			IsCzar:       p.ID == s.CzarID,
			HasSubmitted: s.HasSubmitted(p.ID),
			Hand:         make([]CardView, len(p.Hand)),
		}
		for i, c := range p.Hand {
			if p.ID == viewerID {
				pv.Hand[i] = CardView{ID: c.ID, Text: c.Text}
			} else {
				pv.Hand[i] = CardView{Hidden: true}
			}
		}
		v.Players = append(v.Players, pv)
	}

	if s.Phase == PhaseRoundEnd && s.RoundWinner != nil {
		v.RoundWinner = &WinnerView{
			PlayerID:   s.RoundWinner.PlayerID,
			PlayerName: s.RoundWinner.PlayerName,
			Card:       s.RoundWinner.Card,
		}
	}
	return v
}

func projectSubmissions(s *Session, viewerID string) []SubmissionView {
	out := make([]SubmissionView, 0, len(s.Submissions))
	for i, sub := range s.Submissions {
		idx := i
		switch s.Phase {
		case PhaseCardSubmission:
			if sub.PlayerID == viewerID {
				out = append(out, OwnSubmission{Kind: KindOwn, Card: sub.Card})
			} else {
				out = append(out, AnonymousSubmission{Kind: KindAnonymous, PlayerID: sub.PlayerID, Submitted: true})
			}
		case PhaseCzarSelection:
			switch {
			case viewerID == s.CzarID:
				out = append(out, CzarVisibleSubmission{Kind: KindCzarVisible, Index: idx, Card: sub.Card})
			case sub.PlayerID == viewerID:
				out = append(out, OwnSubmission{Kind: KindOwn, Index: &idx, Card: sub.Card})
			default:
				out = append(out, AnonymousSubmission{Kind: KindAnonymous, Index: &idx})
			}
		case PhaseRoundEnd:
			name := ""
			if p, ok := s.Player(sub.PlayerID); ok {
				name = p.Name
			}
			out = append(out, RevealedSubmission{
				Kind:       KindRevealed,
				Index:      idx,
				PlayerID:   sub.PlayerID,
				PlayerName: name,
				Card:       sub.Card,
				Winner:     s.RoundWinner != nil && s.RoundWinner.PlayerID == sub.PlayerID,
			})
		}
	}
	return out
}
