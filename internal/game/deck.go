// internal/game/deck.go
package game

// HandSize is the number of answer cards a player holds after a refill.
const HandSize = 10

// Source is the randomness a session draws from. *math/rand.Rand satisfies it.
type Source interface {
	Intn(n int) int
	Shuffle(n int, swap func(i, j int))
}

// Shuffle returns a uniformly permuted copy of cards. The input is not modified.
func Shuffle[T any](rng Source, cards []T) []T {
	out := make([]T, len(cards))
	copy(out, cards)
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

// Draw removes one uniformly random card from deck and returns it together
// with the shrunk deck. ok is false when the deck is empty.
func Draw[T any](rng Source, deck []T) (card T, rest []T, ok bool) {
	if len(deck) == 0 {
		return card, deck, false
	}
	i := rng.Intn(len(deck))
	card = deck[i]
	rest = make([]T, 0, len(deck)-1)
	rest = append(rest, deck[:i]...)
	rest = append(rest, deck[i+1:]...)
	return card, rest, true
}

// Replenish pops cards from the tail of deck onto hand until hand holds
// target cards or the deck runs out. Neither input slice is modified.
func Replenish[T any](hand, deck []T, target int) ([]T, []T) {
	need := target - len(hand)
	if need <= 0 {
		return hand, deck
	}
	if need > len(deck) {
		need = len(deck)
	}
	cut := len(deck) - need

	newHand := make([]T, 0, len(hand)+need)
	newHand = append(newHand, hand...)
	for i := len(deck) - 1; i >= cut; i-- {
		newHand = append(newHand, deck[i])
	}
	return newHand, deck[:cut:cut]
}
