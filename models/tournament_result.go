package models

import "time"

type Medal string

const (
	MedalGold   Medal = "GOLD"
	MedalSilver Medal = "SILVER"
	MedalBronze Medal = "BRONZE"
)

// TournamentResult is a placement record written once a bracket is resolved.
type TournamentResult struct {
	ID           int       `json:"id" db:"id"`
	EventID      int       `json:"event_id" db:"event_id"`
	BracketID    int       `json:"bracket_id" db:"bracket_id"`
	UserID       int       `json:"user_id" db:"user_id"`
	FinalRank    int       `json:"final_rank" db:"final_rank"`
	Medal        Medal     `json:"medal" db:"medal"`
	CategoryName string    `json:"category_name" db:"category_name"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
