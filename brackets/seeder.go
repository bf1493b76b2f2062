package brackets

import (
	"sort"
	"strings"

	"github.com/Dosada05/bracket-engine/models"
)

type beltRank struct {
	marker string
	rank   int
}

// Checked in order, so the more specific labels come first.
var beltRanks = []beltRank{
	{"black 3rd dan", 9},
	{"black 2nd dan", 8},
	{"black 1st dan", 7},
	{"black", 7},
	{"red", 6},
	{"brown", 5},
	{"blue", 4},
	{"green", 3},
	{"yellow", 2},
	{"white", 1},
}

const defaultBeltRank = 1

// BeltRank maps a free-text belt label ("Black 2nd Dan", "green belt") to an integer rank.
// Unknown or empty labels rank as a white belt.
func BeltRank(label string) int {
	normalized := strings.ToLower(strings.Join(strings.Fields(label), " "))
	if normalized == "" {
		return defaultBeltRank
	}
	for _, br := range beltRanks {
		if strings.Contains(normalized, br.marker) {
			return br.rank
		}
	}
	return defaultBeltRank
}

// Seed orders one category's registrations by belt rank, highest first.
// Equal ranks keep their registration order.
//
// This is a coarse heuristic: it does not place top seeds in opposite halves
// of the bracket, the builder simply pairs neighbours of the sorted list.
func Seed(registrations []*models.Registration) []*models.Registration {
	seeded := make([]*models.Registration, len(registrations))
	copy(seeded, registrations)
	sort.SliceStable(seeded, func(i, j int) bool {
		return BeltRank(seeded[i].BeltRank) > BeltRank(seeded[j].BeltRank)
	})
	return seeded
}

// ParticipantsFrom converts seeded registrations into bracket participants.
func ParticipantsFrom(registrations []*models.Registration) []Participant {
	participants := make([]Participant, 0, len(registrations))
	for _, r := range registrations {
		participants = append(participants, Participant{
			UserID:   r.UserID,
			Name:     r.FighterName,
			BeltRank: r.BeltRank,
		})
	}
	return participants
}
