package brackets

import (
	"errors"
	"sort"

	"github.com/Dosada05/bracket-engine/models"
)

var (
	ErrMatchesIncomplete = errors.New("bracket has matches that are not completed")
	ErrFinalNotResolved  = errors.New("bracket final has no winner")
)

// Placement is a medal position derived from a finished bracket.
type Placement struct {
	UserID int
	Rank   int
	Medal  models.Medal
}

// ResolvePlacements derives gold, silver and bronze from a fully played bracket.
// Both losing semifinalists share rank 3; byes produce no bronze.
func ResolvePlacements(matches []*models.Match) ([]Placement, error) {
	if len(matches) == 0 {
		return nil, ErrFinalNotResolved
	}

	maxRound := 0
	for _, m := range matches {
		if m.Status != models.MatchCompleted {
			return nil, ErrMatchesIncomplete
		}
		if m.RoundNumber > maxRound {
			maxRound = m.RoundNumber
		}
	}

	var final *models.Match
	for _, m := range matches {
		if m.RoundNumber == maxRound {
			final = m
			break
		}
	}
	if final == nil || final.WinnerID == nil {
		return nil, ErrFinalNotResolved
	}

	placements := []Placement{{UserID: *final.WinnerID, Rank: 1, Medal: models.MedalGold}}
	if loser := final.LoserID(); loser != nil {
		placements = append(placements, Placement{UserID: *loser, Rank: 2, Medal: models.MedalSilver})
	}

	if maxRound < 2 {
		return placements, nil
	}

	semis := make([]*models.Match, 0, 2)
	for _, m := range matches {
		if m.RoundNumber == maxRound-1 {
			semis = append(semis, m)
		}
	}
	sort.Slice(semis, func(i, j int) bool { return semis[i].MatchNumber < semis[j].MatchNumber })

	for _, m := range semis {
		if loser := m.LoserID(); loser != nil {
			placements = append(placements, Placement{UserID: *loser, Rank: 3, Medal: models.MedalBronze})
		}
	}
	return placements, nil
}
