package engine

import (
	"time"

	"github.com/google/uuid"
)

// Hooks so tests can pin ids and timestamps.
var newID = func() string { return uuid.NewString() }
var timeNow = time.Now

// NewScheduledMatch builds a match in its initial state. The roster maps
// athlete ids to team ids and must cover every athlete eligible to act.
func NewScheduledMatch(id, homeTeamID, awayTeamID, location string, scheduledAt time.Time, roster map[string]string) Match {
	if id == "" {
		id = newID()
	}
	if roster == nil {
		roster = map[string]string{}
	}
	return Match{
		ID:          id,
		ScheduledAt: scheduledAt,
		Location:    location,
		HomeTeamID:  homeTeamID,
		AwayTeamID:  awayTeamID,
		Status:      MatchScheduled,
		Roster:      roster,
		Sets:        []Set{},
	}
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}
