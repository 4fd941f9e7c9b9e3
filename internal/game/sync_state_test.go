package game

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectHidesOtherHands(t *testing.T) {
	s, _ := setupTestSession(t, testCatalog(3, 40), "Alice", "Bob", "Carol")
	v := Project(s, "bob")

	assert.Equal(t, "bob", v.You.ID)
	assert.False(t, v.You.IsCzar)
	assert.Equal(t, 10, v.AnswerDeckSize)
	assert.Equal(t, 2, v.PromptDeckSize)
	require.Len(t, v.Players, 3)

	for _, p := range v.Players {
		assert.Equal(t, 10, p.HandSize)
		require.Len(t, p.Hand, 10)
		for _, c := range p.Hand {
			if p.ID == "bob" {
				assert.NotEmpty(t, c.ID)
				assert.NotEmpty(t, c.Text)
				assert.False(t, c.Hidden)
			} else {
				assert.Equal(t, CardView{Hidden: true}, c)
			}
		}
	}
	assert.True(t, v.Players[0].IsCzar)

	raw, err := json.Marshal(v)
	require.NoError(t, err)
	alice, _ := s.Player("alice")
	for _, c := range alice.Hand {
		assert.NotContains(t, string(raw), `"`+c.Text+`"`, "bob's snapshot must not carry alice's cards")
	}
	for _, c := range s.AnswerDeck {
		assert.NotContains(t, string(raw), `"`+c.ID+`"`)
	}
}

func TestProjectDuringSubmission(t *testing.T) {
	s, rng := setupTestSession(t, testCatalog(3, 40), "Alice", "Bob", "Carol")
	s = submitFirst(t, s, rng, "bob")

	own := Project(s, "bob")
	require.Len(t, own.Submissions, 1)
	sub, ok := own.Submissions[0].(OwnSubmission)
	require.True(t, ok)
	assert.Nil(t, sub.Index)
	assert.Equal(t, s.Submissions[0].Card, sub.Card)

	other := Project(s, "carol")
	require.Len(t, other.Submissions, 1)
	anon, ok := other.Submissions[0].(AnonymousSubmission)
	require.True(t, ok)
	assert.Equal(t, "bob", anon.PlayerID)
	assert.True(t, anon.Submitted)
	assert.True(t, other.Players[1].HasSubmitted)
	assert.False(t, other.Players[2].HasSubmitted)
}

func TestProjectCzarSelectionIsBlind(t *testing.T) {
	s, rng := setupTestSession(t, testCatalog(3, 40), "Alice", "Bob", "Carol")
	s = submitFirst(t, s, rng, "bob")
	s = submitFirst(t, s, rng, "carol")
	require.Equal(t, PhaseCzarSelection, s.Phase)

	czar := Project(s, "alice")
	assert.True(t, czar.You.IsCzar)
	require.Len(t, czar.Submissions, 2)
	for i, sv := range czar.Submissions {
		cv, ok := sv.(CzarVisibleSubmission)
		require.True(t, ok)
		assert.Equal(t, i, cv.Index)
		assert.Equal(t, s.Submissions[i].Card, cv.Card)
	}

	raw, err := json.Marshal(czar.Submissions)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "playerId")
	assert.NotContains(t, string(raw), "bob")
	assert.NotContains(t, string(raw), "carol")

	bob := Project(s, "bob")
	var owns, anons int
	for i, sv := range bob.Submissions {
		switch sub := sv.(type) {
		case OwnSubmission:
			owns++
			require.NotNil(t, sub.Index)
			assert.Equal(t, i, *sub.Index)
			assert.Equal(t, "bob", s.Submissions[i].PlayerID)
		case AnonymousSubmission:
			anons++
			require.NotNil(t, sub.Index)
			assert.Empty(t, sub.PlayerID)
		default:
			t.Fatalf("unexpected submission view %T", sv)
		}
	}
	assert.Equal(t, 1, owns)
	assert.Equal(t, 1, anons)
}

func TestProjectRoundEndRevealsAll(t *testing.T) {
	s, rng := setupTestSession(t, testCatalog(3, 40), "Alice", "Bob", "Carol")
	s = submitFirst(t, s, rng, "bob")
	s = submitFirst(t, s, rng, "carol")
	s, err := s.SelectWinner("alice", "carol")
	require.NoError(t, err)

	for _, viewer := range []string{"alice", "bob", "carol"} {
		v := Project(s, viewer)
		require.NotNil(t, v.RoundWinner)
		assert.Equal(t, "carol", v.RoundWinner.PlayerID)
		assert.Equal(t, "Carol", v.RoundWinner.PlayerName)

		winners := 0
		for _, sv := range v.Submissions {
			r, ok := sv.(RevealedSubmission)
			require.True(t, ok)
			assert.NotEmpty(t, r.PlayerName)
			if r.Winner {
				winners++
				assert.Equal(t, "carol", r.PlayerID)
				assert.Equal(t, v.RoundWinner.Card, r.Card)
			}
		}
		assert.Equal(t, 1, winners)
	}
}

func TestProjectKindOnTheWire(t *testing.T) {
	s, rng := setupTestSession(t, testCatalog(0, 40), "Alice", "Bob")
	s = submitFirst(t, s, rng, "bob")

	raw, err := json.Marshal(Project(s, "alice"))
	require.NoError(t, err)

	var decoded struct {
		Prompt      *struct{} `json:"prompt"`
		Submissions []struct {
			Kind string `json:"kind"`
		} `json:"submissions"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Nil(t, decoded.Prompt)
	require.Len(t, decoded.Submissions, 1)
	assert.Equal(t, string(KindCzarVisible), decoded.Submissions[0].Kind)
}
