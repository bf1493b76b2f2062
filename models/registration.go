package models

import "time"

// RegistrationStatus mirrors the approval_status column owned by the membership app.
type RegistrationStatus string

const (
	RegistrationPending  RegistrationStatus = "PENDING"
	RegistrationApproved RegistrationStatus = "APPROVED"
	RegistrationRejected RegistrationStatus = "REJECTED"
)

// Registration is an event entry as exposed by the membership application.
// Read-only from the bracket engine's point of view.
type Registration struct {
	ID             int                `json:"id" db:"id"`
	EventID        int                `json:"event_id" db:"event_id"`
	UserID         int                `json:"user_id" db:"user_id"`
	FighterName    string             `json:"fighter_name" db:"fighter_name"`
	BeltRank       string             `json:"belt_rank" db:"belt_rank"`
	CategoryAge    *string            `json:"category_age,omitempty" db:"category_age"`
	CategoryWeight *string            `json:"category_weight,omitempty" db:"category_weight"`
	CategoryBelt   *string            `json:"category_belt,omitempty" db:"category_belt"`
	ApprovalStatus RegistrationStatus `json:"approval_status" db:"approval_status"`
	CreatedAt      time.Time          `json:"created_at" db:"created_at"`
}
