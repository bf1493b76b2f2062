package models

import "time"

type MatchStatus string

const (
	MatchScheduled MatchStatus = "SCHEDULED"
	MatchLive      MatchStatus = "LIVE"
	MatchCompleted MatchStatus = "COMPLETED"
)

// Slot identifies one of the two fighter positions of a match.
type Slot int

const (
	SlotA Slot = 1
	SlotB Slot = 2
)

type Match struct {
	ID          int    `json:"id" db:"id"`
	BracketID   int    `json:"bracket_id" db:"bracket_id"`
	EventID     int    `json:"event_id" db:"event_id"` // из brackets, в matches не хранится
	RoundNumber int    `json:"round_number" db:"round_number"`
	RoundName   string `json:"round_name" db:"round_name"`
	MatchNumber int    `json:"match_number" db:"match_number"`

	FighterAID   *int    `json:"fighter_a_id" db:"fighter_a_id"`
	FighterBID   *int    `json:"fighter_b_id" db:"fighter_b_id"`
	FighterAName *string `json:"fighter_a_name" db:"fighter_a_name"`
	FighterBName *string `json:"fighter_b_name" db:"fighter_b_name"`

	IsBye         bool        `json:"is_bye" db:"is_bye"`
	Status        MatchStatus `json:"status" db:"status"`
	WinnerID      *int        `json:"winner_id" db:"winner_id"`
	FighterAScore int         `json:"fighter_a_score" db:"fighter_a_score"`
	FighterBScore int         `json:"fighter_b_score" db:"fighter_b_score"`
	Notes         *string     `json:"notes,omitempty" db:"notes"`

	StartedAt   *time.Time `json:"started_at" db:"started_at"`
	CompletedAt *time.Time `json:"completed_at" db:"completed_at"`
	NextMatchID *int       `json:"next_match_id" db:"next_match_id"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// IsFinal reports whether the match feeds no further match.
func (m *Match) IsFinal() bool {
	return m.NextMatchID == nil
}

func (m *Match) HasBothFighters() bool {
	return m.FighterAID != nil && m.FighterBID != nil
}

// SlotOf returns the side the fighter occupies, or 0 if the fighter is not in the match.
func (m *Match) SlotOf(fighterID int) Slot {
	switch {
	case m.FighterAID != nil && *m.FighterAID == fighterID:
		return SlotA
	case m.FighterBID != nil && *m.FighterBID == fighterID:
		return SlotB
	}
	return 0
}

func (m *Match) NameIn(slot Slot) *string {
	if slot == SlotB {
		return m.FighterBName
	}
	if slot == SlotA {
		return m.FighterAName
	}
	return nil
}

// FirstEmptySlot returns the first unfilled fighter slot, or 0 when both are taken.
func (m *Match) FirstEmptySlot() Slot {
	if m.FighterAID == nil {
		return SlotA
	}
	if m.FighterBID == nil {
		return SlotB
	}
	return 0
}

// LoserID returns the fighter that did not win a completed match.
// Byes and matches with an unknown winner have no loser.
func (m *Match) LoserID() *int {
	if m.Status != MatchCompleted || m.WinnerID == nil || m.IsBye {
		return nil
	}
	switch m.SlotOf(*m.WinnerID) {
	case SlotA:
		return m.FighterBID
	case SlotB:
		return m.FighterAID
	}
	return nil
}
