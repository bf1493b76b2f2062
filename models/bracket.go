package models

import "time"

type BracketStatus string

const (
	BracketDraft      BracketStatus = "DRAFT"
	BracketInProgress BracketStatus = "IN_PROGRESS"
	BracketCompleted  BracketStatus = "COMPLETED"
)

// Bracket is the single-elimination tree of one category within one event.
type Bracket struct {
	ID                int           `json:"id" db:"id"`
	EventID           int           `json:"event_id" db:"event_id"`
	CategoryAge       string        `json:"category_age" db:"category_age"`
	CategoryWeight    string        `json:"category_weight" db:"category_weight"`
	CategoryBelt      string        `json:"category_belt" db:"category_belt"`
	CategoryName      string        `json:"category_name" db:"category_name"`
	TotalParticipants int           `json:"total_participants" db:"total_participants"`
	Status            BracketStatus `json:"status" db:"status"`
	CreatedAt         time.Time     `json:"created_at" db:"created_at"`

	// Заполняется сервисом при загрузке полной сетки
	Matches []*Match `json:"matches,omitempty" db:"-"`
}
