package brackets

import (
	"fmt"

	"github.com/Dosada05/bracket-engine/models"
)

// Participant is a seeded fighter entering a bracket.
type Participant struct {
	UserID   int
	Name     string
	BeltRank string
}

// PlannedMatch is one node of a bracket before it is persisted.
// Next is the index of the match the winner advances to, -1 for the final.
type PlannedMatch struct {
	Round       int
	RoundName   string
	MatchNumber int

	FighterA *Participant
	FighterB *Participant
	IsBye    bool

	Next int
}

// ByeAdvancement moves a bye recipient into the match it was promoted to.
type ByeAdvancement struct {
	From    int
	To      int
	Slot    models.Slot
	Fighter Participant
}

// Plan is the full single-elimination tree for one category.
// Matches are ordered by round, then by position within the round, so the
// slice index plus one is the match number.
type Plan struct {
	CategoryName string
	BracketSize  int
	Rounds       int
	Matches      []PlannedMatch
	Advancements []ByeAdvancement
}

// Final returns the index of the single match with no successor.
func (p *Plan) Final() int {
	for i := range p.Matches {
		if p.Matches[i].Next < 0 {
			return i
		}
	}
	return -1
}

func (p *Plan) add(m PlannedMatch) int {
	m.MatchNumber = len(p.Matches) + 1
	p.Matches = append(p.Matches, m)
	return len(p.Matches) - 1
}

type SingleEliminationGenerator struct{}

func NewSingleEliminationGenerator() BracketGenerator {
	return &SingleEliminationGenerator{}
}

func (g *SingleEliminationGenerator) GetName() string {
	return "SingleElimination"
}

// GenerateBracket lays out a single-elimination tree for already seeded participants.
//
// Round 1 always has BracketSize/2 matches. Neighbouring participants are
// paired from the top of the list until the remaining participants exactly
// fill the remaining round-1 slots, after which every remaining participant
// receives a bye. Byes therefore go to the bottom of the seeding.
//
// For n = 5 this is one pairing and three byes, not one bye: every fighter
// but the champion loses exactly once, so a plan always holds n-1 decisive
// (non-bye) matches. Giving more fighters a round-1 opponent would break that.
func (g *SingleEliminationGenerator) GenerateBracket(params GenerateBracketParams) (*Plan, error) {
	participants := params.Participants
	n := len(participants)
	if n == 0 {
		return nil, ErrNoParticipants
	}

	size := BracketSize(n)
	rounds := RoundCount(size)
	plan := &Plan{
		CategoryName: params.CategoryName,
		BracketSize:  size,
		Rounds:       rounds,
		Matches:      make([]PlannedMatch, 0, max(size-1, 1)),
	}

	firstRound := max(size/2, 1)
	fullPairs := n - firstRound

	current := make([]int, 0, firstRound)
	next := 0
	for i := 0; i < firstRound; i++ {
		pm := PlannedMatch{Round: 1, RoundName: RoundName(1, rounds), Next: -1}
		a := participants[next]
		next++
		pm.FighterA = &a
		if i < fullPairs {
			b := participants[next]
			next++
			pm.FighterB = &b
		} else {
			pm.IsBye = true
		}
		current = append(current, plan.add(pm))
	}

	if next != n {
		return nil, fmt.Errorf("bracket layout placed %d of %d participants", next, n)
	}

	for round := 2; len(current) > 1; round++ {
		winners := make([]int, 0, len(current)/2)
		for i := 0; i+1 < len(current); i += 2 {
			target := plan.add(PlannedMatch{Round: round, RoundName: RoundName(round, rounds), Next: -1})
			plan.Matches[current[i]].Next = target
			plan.Matches[current[i+1]].Next = target
			winners = append(winners, target)
		}
		current = winners
	}

	plan.Advancements = planByeAdvancements(plan)
	return plan, nil
}

// Bye recipients are moved forward at build time, filling the first empty
// slot of their successor exactly like a played match would.
func planByeAdvancements(plan *Plan) []ByeAdvancement {
	filled := make(map[int]models.Slot)
	var advancements []ByeAdvancement
	for i, m := range plan.Matches {
		if !m.IsBye || m.Next < 0 || m.FighterA == nil {
			continue
		}
		slot := models.SlotA
		if filled[m.Next] == models.SlotA {
			slot = models.SlotB
		}
		filled[m.Next] = slot
		advancements = append(advancements, ByeAdvancement{
			From:    i,
			To:      m.Next,
			Slot:    slot,
			Fighter: *m.FighterA,
		})
	}
	return advancements
}

// BracketSize is the smallest power of two that fits n participants.
func BracketSize(n int) int {
	if n <= 0 {
		return 0
	}
	size := 1
	for size < n {
		size <<= 1
	}
	return size
}

// RoundCount is log2 of the bracket size, with a single-entrant bracket still playing one round.
func RoundCount(size int) int {
	rounds := 0
	for s := size; s > 1; s >>= 1 {
		rounds++
	}
	return max(rounds, 1)
}

// RoundName labels a round by its distance from the final.
func RoundName(round, totalRounds int) string {
	switch totalRounds - round {
	case 0:
		return "Final"
	case 1:
		return "Semifinal"
	case 2:
		return "Quarterfinal"
	default:
		return fmt.Sprintf("Round of %d", 1<<(totalRounds-round+1))
	}
}

// PlanSingleElimination is a shorthand for the default generator.
func PlanSingleElimination(categoryName string, participants []Participant) (*Plan, error) {
	return NewSingleEliminationGenerator().GenerateBracket(GenerateBracketParams{
		CategoryName: categoryName,
		Participants: participants,
	})
}
