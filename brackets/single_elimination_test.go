package brackets

import (
	"fmt"
	"testing"

	"github.com/Dosada05/bracket-engine/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func participants(n int) []Participant {
	ps := make([]Participant, 0, n)
	for i := 1; i <= n; i++ {
		ps = append(ps, Participant{UserID: i, Name: fmt.Sprintf("Fighter %d", i)})
	}
	return ps
}

func TestBracketSizeAndRounds(t *testing.T) {
	tests := []struct {
		n, size, rounds int
	}{
		{1, 1, 1},
		{2, 2, 1},
		{3, 4, 2},
		{4, 4, 2},
		{5, 8, 3},
		{8, 8, 3},
		{9, 16, 4},
		{33, 64, 6},
	}
	for _, tt := range tests {
		size := BracketSize(tt.n)
		assert.Equal(t, tt.size, size, "size for n=%d", tt.n)
		assert.Equal(t, tt.rounds, RoundCount(size), "rounds for n=%d", tt.n)
	}
	assert.Equal(t, 0, BracketSize(0))
}

func TestRoundName(t *testing.T) {
	assert.Equal(t, "Final", RoundName(4, 4))
	assert.Equal(t, "Semifinal", RoundName(3, 4))
	assert.Equal(t, "Quarterfinal", RoundName(2, 4))
	assert.Equal(t, "Round of 16", RoundName(1, 4))
	assert.Equal(t, "Round of 32", RoundName(1, 5))
	assert.Equal(t, "Final", RoundName(1, 1))
}

func TestGenerateBracketRejectsEmptyCategory(t *testing.T) {
	_, err := PlanSingleElimination("Open, Open, Open", nil)
	assert.ErrorIs(t, err, ErrNoParticipants)
}

func TestGenerateBracketSingleParticipant(t *testing.T) {
	plan, err := PlanSingleElimination("Adult, -70kg, Black", participants(1))
	require.NoError(t, err)

	require.Len(t, plan.Matches, 1)
	final := plan.Matches[0]
	assert.True(t, final.IsBye)
	assert.Equal(t, "Final", final.RoundName)
	assert.Equal(t, -1, final.Next)
	require.NotNil(t, final.FighterA)
	assert.Equal(t, 1, final.FighterA.UserID)
	assert.Nil(t, final.FighterB)
	assert.Empty(t, plan.Advancements)
}

func TestGenerateBracketTwoParticipants(t *testing.T) {
	plan, err := PlanSingleElimination("Adult, -70kg, Black", participants(2))
	require.NoError(t, err)

	require.Len(t, plan.Matches, 1)
	final := plan.Matches[0]
	assert.False(t, final.IsBye)
	assert.Equal(t, 1, final.FighterA.UserID)
	assert.Equal(t, 2, final.FighterB.UserID)
	assert.Equal(t, 0, plan.Final())
}

func TestGenerateBracketFiveParticipants(t *testing.T) {
	plan, err := PlanSingleElimination("Junior, -55kg, Color", participants(5))
	require.NoError(t, err)

	assert.Equal(t, 8, plan.BracketSize)
	assert.Equal(t, 3, plan.Rounds)
	require.Len(t, plan.Matches, 7)

	first := plan.Matches[0]
	assert.False(t, first.IsBye)
	assert.Equal(t, 1, first.FighterA.UserID)
	assert.Equal(t, 2, first.FighterB.UserID)
	assert.Equal(t, "Quarterfinal", first.RoundName)

	for i, want := range []int{3, 4, 5} {
		m := plan.Matches[i+1]
		assert.True(t, m.IsBye, "match %d", m.MatchNumber)
		assert.Equal(t, want, m.FighterA.UserID)
		assert.Nil(t, m.FighterB)
	}

	assert.Equal(t, 4, plan.Matches[0].Next)
	assert.Equal(t, 4, plan.Matches[1].Next)
	assert.Equal(t, 5, plan.Matches[2].Next)
	assert.Equal(t, 5, plan.Matches[3].Next)
	assert.Equal(t, 6, plan.Matches[4].Next)
	assert.Equal(t, 6, plan.Matches[5].Next)
	assert.Equal(t, "Semifinal", plan.Matches[4].RoundName)
	assert.Equal(t, "Final", plan.Matches[6].RoundName)

	assert.Equal(t, []ByeAdvancement{
		{From: 1, To: 4, Slot: models.SlotA, Fighter: participants(5)[2]},
		{From: 2, To: 5, Slot: models.SlotA, Fighter: participants(5)[3]},
		{From: 3, To: 5, Slot: models.SlotB, Fighter: participants(5)[4]},
	}, plan.Advancements)
}

func TestGenerateBracketStructure(t *testing.T) {
	for n := 1; n <= 40; n++ {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			plan, err := PlanSingleElimination("Open, Open, Open", participants(n))
			require.NoError(t, err)

			size := BracketSize(n)
			require.Len(t, plan.Matches, max(size-1, 1))

			finals := 0
			feeders := make(map[int]int)
			seen := make(map[int]int)
			byes := 0
			for i, m := range plan.Matches {
				assert.Equal(t, i+1, m.MatchNumber)
				if m.Next < 0 {
					finals++
					assert.Equal(t, plan.Rounds, m.Round)
					assert.Equal(t, "Final", m.RoundName)
				} else {
					assert.Greater(t, m.Next, i)
					assert.Equal(t, m.Round+1, plan.Matches[m.Next].Round)
					feeders[m.Next]++
				}
				if m.Round == 1 {
					require.NotNil(t, m.FighterA)
					seen[m.FighterA.UserID]++
					if m.FighterB != nil {
						seen[m.FighterB.UserID]++
					}
					assert.Equal(t, m.FighterB == nil, m.IsBye)
				} else {
					assert.Nil(t, m.FighterA)
					assert.Nil(t, m.FighterB)
				}
				if m.IsBye {
					byes++
				}
			}

			assert.Equal(t, 1, finals)
			for idx, count := range feeders {
				assert.Equal(t, 2, count, "match %d feeders", idx+1)
			}
			assert.Len(t, seen, n)
			for id, count := range seen {
				assert.Equal(t, 1, count, "participant %d", id)
			}

			if n > 1 {
				assert.Equal(t, size-n, byes)
				assert.Equal(t, n-1, len(plan.Matches)-byes, "decisive matches")
			}
			if n%2 == 1 {
				last := n
				found := false
				for _, m := range plan.Matches {
					if m.IsBye && m.FighterA.UserID == last {
						found = true
					}
				}
				assert.True(t, found, "last participant must receive a bye")
			}

			slots := make(map[int]map[models.Slot]bool)
			for _, adv := range plan.Advancements {
				assert.True(t, plan.Matches[adv.From].IsBye)
				assert.Equal(t, plan.Matches[adv.From].Next, adv.To)
				if slots[adv.To] == nil {
					slots[adv.To] = make(map[models.Slot]bool)
				}
				assert.False(t, slots[adv.To][adv.Slot], "slot reused in match %d", adv.To+1)
				slots[adv.To][adv.Slot] = true
			}
			if n > 1 {
				assert.Len(t, plan.Advancements, byes)
			}
		})
	}
}
