package models

// UserRole is the role claim issued by the membership app.
type UserRole string

const (
	RoleAdmin       UserRole = "admin"
	RoleOrganizer   UserRole = "organizer"
	RoleParticipant UserRole = "participant"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleOrganizer, RoleParticipant:
		return true
	}
	return false
}
