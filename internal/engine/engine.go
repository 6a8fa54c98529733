package engine

import (
	"errors"
	"fmt"

	"github.com/teamtrack/volley-live-backend/internal/catalog"
)

var ErrInvalidTransition = errors.New("invalid lifecycle transition")
var ErrStaleCommand = errors.New("command references a set that is no longer active")
var ErrUnsupportedCommand = errors.New("unsupported command")

// ErrInvalidActorTeam is catalog's error re-exported so callers can check the
// whole taxonomy against this package.
var ErrInvalidActorTeam = catalog.ErrInvalidActorTeam

type CommandType string

const (
	CmdStartMatch     CommandType = "StartMatch"
	CmdEndMatch       CommandType = "EndMatch"
	CmdCreateSet      CommandType = "CreateSet"
	CmdFinalizeSet    CommandType = "FinalizeSet"
	CmdRegisterAction CommandType = "RegisterAction"
	CmdUndoLastAction CommandType = "UndoLastAction"
)

// Command carries enough context for validation against authoritative state.
// SetID is required for RegisterAction and UndoLastAction; FinalizeSet falls
// back to the active set when SetID is empty.
type Command struct {
	Type          CommandType
	MatchID       string
	SetID         string
	ServingTeamID string
	ActionType    catalog.ActionType
	Result        catalog.Result
	AthleteID     string
}

type EventType string

const (
	EvtMatchStarted     EventType = "MatchStarted"
	EvtMatchFinalized   EventType = "MatchFinalized"
	EvtSetCreated       EventType = "SetCreated"
	EvtSetFinalized     EventType = "SetFinalized"
	EvtSetScoreUpdated  EventType = "SetScoreUpdated"
	EvtActionRegistered EventType = "ActionRegistered"
	EvtActionUndone     EventType = "ActionUndone"
)

type Event struct {
	Type      EventType
	MatchID   string
	SetID     string
	SetNumber int
	ActionID  string
	Action    *Action
	HomeScore int
	AwayScore int
}

// Apply validates cmd against the match lifecycle and returns the events it
// produces plus the successor state. The input state is never mutated; on
// error it is returned unchanged.
func Apply(m Match, cmd Command) ([]Event, Match, error) {
	if m.Status == MatchFinalized || m.Status == MatchCancelled {
		return nil, m, fmt.Errorf("match %s is %s: %w", m.ID, m.Status, ErrInvalidTransition)
	}

	switch cmd.Type {
	case CmdStartMatch:
		return applyStartMatch(m, cmd)
	case CmdCreateSet:
		return applyCreateSet(m, cmd)
	case CmdFinalizeSet:
		return applyFinalizeSet(m, cmd)
	case CmdRegisterAction:
		return applyRegisterAction(m, cmd)
	case CmdUndoLastAction:
		return applyUndoLastAction(m, cmd)
	case CmdEndMatch:
		return applyEndMatch(m)
	default:
		return nil, m, fmt.Errorf("%q: %w", cmd.Type, ErrUnsupportedCommand)
	}
}

func applyStartMatch(m Match, cmd Command) ([]Event, Match, error) {
	if m.Status != MatchScheduled {
		return nil, m, fmt.Errorf("start match: status is %s: %w", m.Status, ErrInvalidTransition)
	}

	next := m.Clone()
	next.Status = MatchInProgress
	set := newSet(&next, 1, cmd.ServingTeamID)
	next.Sets = append(next.Sets, set)

	events := []Event{
		{Type: EvtMatchStarted, MatchID: next.ID},
		{Type: EvtSetCreated, MatchID: next.ID, SetID: set.ID, SetNumber: set.Number},
	}
	return events, next, nil
}

func applyCreateSet(m Match, cmd Command) ([]Event, Match, error) {
	if m.Status != MatchInProgress {
		return nil, m, fmt.Errorf("create set: match not started: %w", ErrInvalidTransition)
	}
	if active := m.ActiveSet(); active != nil {
		return nil, m, fmt.Errorf("create set: set %d already active: %w", active.Number, ErrInvalidTransition)
	}

	next := m.Clone()
	set := newSet(&next, len(next.Sets)+1, cmd.ServingTeamID)
	next.Sets = append(next.Sets, set)

	events := []Event{
		{Type: EvtSetCreated, MatchID: next.ID, SetID: set.ID, SetNumber: set.Number},
	}
	return events, next, nil
}

func applyFinalizeSet(m Match, cmd Command) ([]Event, Match, error) {
	next := m.Clone()

	var set *Set
	if cmd.SetID == "" {
		set = next.ActiveSet()
		if set == nil {
			return nil, m, fmt.Errorf("finalize set: no set in progress: %w", ErrInvalidTransition)
		}
	} else {
		set = next.SetByID(cmd.SetID)
		if set == nil {
			return nil, m, fmt.Errorf("finalize set: unknown set %s: %w", cmd.SetID, ErrStaleCommand)
		}
		if set.Status == SetFinalized {
			return nil, m, fmt.Errorf("finalize set: set %d already finalized: %w", set.Number, ErrInvalidTransition)
		}
	}

	finalizeSet(set)
	events := []Event{setFinalizedEvent(next.ID, set)}
	return events, next, nil
}

func applyRegisterAction(m Match, cmd Command) ([]Event, Match, error) {
	next := m.Clone()
	set, err := resolveActiveSet(&next, cmd.SetID, "register action")
	if err != nil {
		return nil, m, err
	}

	if !catalog.Legal(cmd.ActionType, cmd.Result) {
		return nil, m, fmt.Errorf("register action: %s/%s: %w", cmd.ActionType, cmd.Result, catalog.ErrUnknownResult)
	}

	teamID, ok := next.Roster[cmd.AthleteID]
	if !ok {
		return nil, m, fmt.Errorf("register action: athlete %s not on roster: %w", cmd.AthleteID, ErrInvalidActorTeam)
	}
	if teamID != next.HomeTeamID && teamID != next.AwayTeamID {
		return nil, m, fmt.Errorf("register action: team %s: %w", teamID, ErrInvalidActorTeam)
	}

	action := Action{
		ID:         newID(),
		MatchID:    next.ID,
		SetID:      set.ID,
		Type:       cmd.ActionType,
		Result:     cmd.Result,
		AthleteID:  cmd.AthleteID,
		TeamID:     teamID,
		Seq:        len(set.Actions) + 1,
		RecordedAt: timeNow(),
	}
	set.Actions = append(set.Actions, action)

	if err := reprojectSet(&next, set); err != nil {
		return nil, m, err
	}

	events := []Event{
		{Type: EvtActionRegistered, MatchID: next.ID, SetID: set.ID, SetNumber: set.Number, ActionID: action.ID, Action: &action},
		{Type: EvtSetScoreUpdated, MatchID: next.ID, SetID: set.ID, SetNumber: set.Number, HomeScore: set.HomeScore, AwayScore: set.AwayScore},
	}
	return events, next, nil
}

func applyUndoLastAction(m Match, cmd Command) ([]Event, Match, error) {
	next := m.Clone()
	set, err := resolveActiveSet(&next, cmd.SetID, "undo")
	if err != nil {
		return nil, m, err
	}
	if len(set.Actions) == 0 {
		return nil, m, fmt.Errorf("undo: set %d has no actions: %w", set.Number, ErrInvalidTransition)
	}

	last := set.Actions[len(set.Actions)-1]
	set.Actions = set.Actions[:len(set.Actions)-1]

	if err := reprojectSet(&next, set); err != nil {
		return nil, m, err
	}

	events := []Event{
		{Type: EvtActionUndone, MatchID: next.ID, SetID: set.ID, SetNumber: set.Number, ActionID: last.ID},
		{Type: EvtSetScoreUpdated, MatchID: next.ID, SetID: set.ID, SetNumber: set.Number, HomeScore: set.HomeScore, AwayScore: set.AwayScore},
	}
	return events, next, nil
}

// applyEndMatch finalizes a still-running set first, so clients always see an
// explicit SetFinalized before the terminal MatchFinalized.
func applyEndMatch(m Match) ([]Event, Match, error) {
	if m.Status != MatchInProgress {
		return nil, m, fmt.Errorf("end match: status is %s: %w", m.Status, ErrInvalidTransition)
	}

	next := m.Clone()
	var events []Event
	if set := next.ActiveSet(); set != nil {
		finalizeSet(set)
		events = append(events, setFinalizedEvent(next.ID, set))
	}
	next.Status = MatchFinalized
	events = append(events, Event{Type: EvtMatchFinalized, MatchID: next.ID})
	return events, next, nil
}

// resolveActiveSet maps a command's set reference to the in-progress set. A
// reference to a finalized set is stale, not invalid: the set existed but has
// since been frozen.
func resolveActiveSet(m *Match, setID, op string) (*Set, error) {
	active := m.ActiveSet()
	if active == nil {
		return nil, fmt.Errorf("%s: no set in progress: %w", op, ErrInvalidTransition)
	}
	if setID != "" && setID != active.ID {
		return nil, fmt.Errorf("%s: set %s: %w", op, setID, ErrStaleCommand)
	}
	return active, nil
}

func reprojectSet(m *Match, set *Set) error {
	home, away, err := ProjectScore(m.HomeTeamID, m.AwayTeamID, set.Actions)
	if err != nil {
		return err
	}
	set.HomeScore, set.AwayScore = home, away
	return nil
}

func newSet(m *Match, number int, servingTeamID string) Set {
	return Set{
		ID:            newID(),
		MatchID:       m.ID,
		Number:        number,
		Status:        SetInProgress,
		ServingTeamID: servingTeamID,
		StartedAt:     timeNow(),
		Actions:       []Action{},
	}
}

func finalizeSet(set *Set) {
	ts := timeNow()
	set.Status = SetFinalized
	set.FinalizedAt = &ts
}

func setFinalizedEvent(matchID string, set *Set) Event {
	return Event{
		Type:      EvtSetFinalized,
		MatchID:   matchID,
		SetID:     set.ID,
		SetNumber: set.Number,
		HomeScore: set.HomeScore,
		AwayScore: set.AwayScore,
	}
}
