package engine

import (
	"time"

	"github.com/teamtrack/volley-live-backend/internal/catalog"
)

type MatchStatus string

const (
	MatchScheduled  MatchStatus = "SCHEDULED"
	MatchInProgress MatchStatus = "IN_PROGRESS"
	MatchFinalized  MatchStatus = "FINALIZED"
	MatchCancelled  MatchStatus = "CANCELLED"
)

type SetStatus string

const (
	SetInProgress SetStatus = "IN_PROGRESS"
	SetFinalized  SetStatus = "FINALIZED"
)

// Match is the authoritative state for one match. The roster maps eligible
// athlete ids to the team they play for in this match.
type Match struct {
	ID          string            `json:"match_id"`
	ScheduledAt time.Time         `json:"scheduled_at"`
	Location    string            `json:"location,omitempty"`
	HomeTeamID  string            `json:"home_team_id"`
	AwayTeamID  string            `json:"away_team_id"`
	Status      MatchStatus       `json:"status"`
	Roster      map[string]string `json:"roster"`
	Sets        []Set             `json:"sets"`
}

// Set owns its ordered action sequence. Scores are derived from the actions
// by the projector, never set directly.
type Set struct {
	ID            string     `json:"set_id"`
	MatchID       string     `json:"match_id"`
	Number        int        `json:"number"`
	HomeScore     int        `json:"home_score"`
	AwayScore     int        `json:"away_score"`
	Status        SetStatus  `json:"status"`
	ServingTeamID string     `json:"serving_team_id,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	FinalizedAt   *time.Time `json:"finalized_at,omitempty"`
	Actions       []Action   `json:"actions"`
}

// Action is immutable once confirmed. Seq is the server-assigned position
// within the set, starting at 1.
type Action struct {
	ID         string             `json:"action_id"`
	MatchID    string             `json:"match_id"`
	SetID      string             `json:"set_id"`
	Type       catalog.ActionType `json:"type"`
	Result     catalog.Result     `json:"result"`
	AthleteID  string             `json:"athlete_id"`
	TeamID     string             `json:"team_id"`
	Seq        int                `json:"seq"`
	RecordedAt time.Time          `json:"recorded_at"`
}

// ActiveSet returns a pointer to the set currently in progress, or nil.
// At most one set per match may be in progress.
func (m *Match) ActiveSet() *Set {
	for i := range m.Sets {
		if m.Sets[i].Status == SetInProgress {
			return &m.Sets[i]
		}
	}
	return nil
}

// SetByID returns the set with the given id, or nil.
func (m *Match) SetByID(id string) *Set {
	for i := range m.Sets {
		if m.Sets[i].ID == id {
			return &m.Sets[i]
		}
	}
	return nil
}

// Clone deep-copies the match so Apply never aliases the caller's state.
func (m Match) Clone() Match {
	out := m
	out.Roster = make(map[string]string, len(m.Roster))
	for k, v := range m.Roster {
		out.Roster[k] = v
	}
	out.Sets = make([]Set, len(m.Sets))
	for i, s := range m.Sets {
		cs := s
		if s.FinalizedAt != nil {
			ts := *s.FinalizedAt
			cs.FinalizedAt = &ts
		}
		cs.Actions = make([]Action, len(s.Actions))
		copy(cs.Actions, s.Actions)
		out.Sets[i] = cs
	}
	return out
}
