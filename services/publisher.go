package services

import (
	"github.com/Dosada05/bracket-engine/brackets"
	"github.com/Dosada05/bracket-engine/models"
)

// Publisher delivers live events to subscribers of a topic.
// Implementations must not block and never fail the caller.
type Publisher interface {
	Publish(topic, eventType string, payload interface{})
}

const (
	EventMatchStarted     = "match:started"
	EventMatchUpdate      = "match:update"
	EventMatchEnded       = "match:ended"
	EventBracketCompleted = "bracket:completed"
)

type MatchStartedPayload struct {
	MatchID   int     `json:"matchId"`
	BracketID int     `json:"bracketId"`
	FighterA  *string `json:"fighterA"`
	FighterB  *string `json:"fighterB"`
	Round     string  `json:"round"`
}

// MatchUpdatePayload echoes only the fields the scorer sent.
type MatchUpdatePayload struct {
	MatchID       int     `json:"matchId"`
	FighterAScore *int    `json:"fighterAScore,omitempty"`
	FighterBScore *int    `json:"fighterBScore,omitempty"`
	Notes         *string `json:"notes,omitempty"`
}

type MatchEndedPayload struct {
	MatchID   int `json:"matchId"`
	WinnerID  int `json:"winnerId"`
	BracketID int `json:"bracketId"`
}

type BracketCompletedPayload struct {
	BracketID int                        `json:"bracketId"`
	EventID   int                        `json:"eventId"`
	Results   []*models.TournamentResult `json:"results"`
}

// publishMatchEvent fans a match event out to the global live feed, the
// bracket viewers and the event page.
func publishMatchEvent(p Publisher, m *models.Match, eventType string, payload interface{}) {
	p.Publish(brackets.TopicLive, eventType, payload)
	p.Publish(brackets.BracketTopic(m.BracketID), eventType, payload)
	p.Publish(brackets.EventTopic(m.EventID), eventType, payload)
}
