// Package client implements the viewer/scorekeeper side of the live channel:
// a non-authoritative projection of match state with optimistic-update
// reconciliation, a websocket session, and a reconnection supervisor.
package client

import (
	"errors"
	"fmt"
	"time"

	"github.com/teamtrack/volley-live-backend/internal/catalog"
	"github.com/teamtrack/volley-live-backend/internal/engine"
	"github.com/teamtrack/volley-live-backend/internal/scoring"
	"github.com/teamtrack/volley-live-backend/pkg/types"
)

var ErrPendingAction = errors.New("an optimistic action is already pending")
var ErrNoActiveSet = errors.New("no set in progress")

// PendingAction is the single optimistic guess allowed at a time. It is
// compared against incoming confirmations on (athlete, type, result).
type PendingAction struct {
	SetID       string
	AthleteID   string
	Type        catalog.ActionType
	Result      catalog.Result
	SubmittedAt time.Time
}

// Projection mirrors authoritative match state on the client. All mutation
// happens on one logical event-processing stream, so a guard field is enough
// to enforce the single-pending-action contract; no lock is needed.
type Projection struct {
	match   engine.Match
	pending *PendingAction
	seen    map[string]bool
	stats   *scoring.Statistics
}

func NewProjection() *Projection {
	return &Projection{seen: map[string]bool{}}
}

// ResetFromSnapshot rebuilds the mirror from a REST read. Any optimistic
// guess is discarded: the snapshot is authoritative.
func (p *Projection) ResetFromSnapshot(m engine.Match) {
	p.match = m.Clone()
	p.pending = nil
	p.stats = nil
	p.seen = map[string]bool{}
	for _, set := range p.match.Sets {
		for _, a := range set.Actions {
			p.seen[a.ID] = true
		}
	}
}

// Match returns a copy of the authoritative mirror (no pending residue).
func (p *Projection) Match() engine.Match { return p.match.Clone() }

func (p *Projection) Pending() *PendingAction { return p.pending }

// Statistics returns the latest server-pushed statistics snapshot, if any.
func (p *Projection) Statistics() *scoring.Statistics { return p.stats }

// SubmitOptimistic records the guess for an action the caller is about to
// send. It rejects while another guess is unconfirmed: the UI must block or
// queue, never interleave.
func (p *Projection) SubmitOptimistic(athleteID string, t catalog.ActionType, r catalog.Result, now time.Time) error {
	if p.pending != nil {
		return ErrPendingAction
	}
	set := p.match.ActiveSet()
	if set == nil {
		return ErrNoActiveSet
	}
	if !catalog.Legal(t, r) {
		return fmt.Errorf("%s/%s: %w", t, r, catalog.ErrUnknownResult)
	}
	if _, err := engine.ScoreDelta(p.match, athleteID, t, r); err != nil {
		return err
	}
	p.pending = &PendingAction{
		SetID:       set.ID,
		AthleteID:   athleteID,
		Type:        t,
		Result:      r,
		SubmittedAt: now,
	}
	return nil
}

// DisplayedScore is what the operator sees for the active set: the fold over
// the confirmed log plus, transiently, the single pending guess.
func (p *Projection) DisplayedScore() (home, away int) {
	set := p.match.ActiveSet()
	if set == nil {
		return 0, 0
	}
	home, away = set.HomeScore, set.AwayScore
	if p.pending != nil && p.pending.SetID == set.ID {
		if point, err := engine.ScoreDelta(p.match, p.pending.AthleteID, p.pending.Type, p.pending.Result); err == nil {
			switch point {
			case catalog.PointHome:
				home++
			case catalog.PointAway:
				away++
			}
		}
	}
	return home, away
}

// CancelPending drops the guess without touching authoritative state, e.g.
// when the command it backed never made it onto the wire.
func (p *Projection) CancelPending() { p.pending = nil }

// ExpirePending discards a guess that no confirmation answered within the
// bound. Returns true when the caller should resync: the guess is gone and
// the displayed score has been corrected to the authoritative fold.
func (p *Projection) ExpirePending(now time.Time, timeout time.Duration) bool {
	if p.pending == nil {
		return false
	}
	if now.Sub(p.pending.SubmittedAt) < timeout {
		return false
	}
	p.pending = nil
	return true
}

// ApplyEvent folds one server event into the mirror. Duplicate deliveries
// are deduplicated by action id; unknown event kinds are ignored.
func (p *Projection) ApplyEvent(ev types.ServerEvent) error {
	switch ev.Type {
	case types.EvtActionRegistered:
		return p.applyActionRegistered(ev)
	case types.EvtActionUndone:
		return p.applyActionUndone(ev)
	case types.EvtMatchStarted:
		p.match.Status = engine.MatchInProgress
	case types.EvtMatchFinalized:
		p.match.Status = engine.MatchFinalized
		p.pending = nil
	case types.EvtSetCreated:
		if p.match.SetByID(ev.SetID) == nil {
			p.match.Sets = append(p.match.Sets, engine.Set{
				ID:        ev.SetID,
				MatchID:   ev.MatchID,
				Number:    ev.SetNumber,
				Status:    engine.SetInProgress,
				StartedAt: ev.Timestamp,
				Actions:   []engine.Action{},
			})
		}
	case types.EvtSetScoreUpdated:
		if set := p.match.SetByID(ev.SetID); set != nil {
			set.HomeScore, set.AwayScore = ev.HomeScore, ev.AwayScore
		}
	case types.EvtSetFinalized:
		if set := p.match.SetByID(ev.SetID); set != nil {
			set.Status = engine.SetFinalized
			set.HomeScore, set.AwayScore = ev.HomeScore, ev.AwayScore
			ts := ev.Timestamp
			set.FinalizedAt = &ts
			if p.pending != nil && p.pending.SetID == set.ID {
				p.pending = nil
			}
		}
	case types.EvtLiveStatisticsUpdate:
		p.stats = ev.Stats
	}
	return nil
}

func (p *Projection) applyActionRegistered(ev types.ServerEvent) error {
	if ev.Action == nil {
		return nil
	}
	if p.seen[ev.Action.ID] {
		return nil
	}
	p.seen[ev.Action.ID] = true
	if ev.Stats != nil {
		p.stats = ev.Stats
	}

	set := p.match.SetByID(ev.Action.SetID)
	if set == nil {
		// Event for a set we have not learned about; the next resync
		// will reconcile us.
		return nil
	}

	if p.pending != nil && p.matchesPending(*ev.Action) {
		// Our guess was confirmed; swap in the authoritative action
		// without a visible score jump.
		p.pending = nil
	} else if p.pending != nil && p.pending.SetID == set.ID {
		// Another operator's action won the race. Discard the guess;
		// the re-fold below derives the score from the authoritative
		// log alone.
		p.pending = nil
	}

	set.Actions = append(set.Actions, *ev.Action)
	return p.refold(set)
}

// applyActionUndone removes exactly the identified action. Undo is never
// applied optimistically: only the server knows the authoritative ordering.
func (p *Projection) applyActionUndone(ev types.ServerEvent) error {
	if ev.ActionID == "" || p.seen["undo:"+ev.ActionID] {
		return nil
	}
	p.seen["undo:"+ev.ActionID] = true

	set := p.match.SetByID(ev.SetID)
	if set == nil {
		return nil
	}
	for i := len(set.Actions) - 1; i >= 0; i-- {
		if set.Actions[i].ID == ev.ActionID {
			set.Actions = append(set.Actions[:i], set.Actions[i+1:]...)
			break
		}
	}
	return p.refold(set)
}

// refold re-derives the set score from the confirmed log. It is a full fold,
// not a patch, so no optimistic residue can survive.
func (p *Projection) refold(set *engine.Set) error {
	home, away, err := engine.ProjectScore(p.match.HomeTeamID, p.match.AwayTeamID, set.Actions)
	if err != nil {
		return err
	}
	set.HomeScore, set.AwayScore = home, away
	return nil
}

func (p *Projection) matchesPending(a engine.Action) bool {
	return p.pending.SetID == a.SetID &&
		p.pending.AthleteID == a.AthleteID &&
		p.pending.Type == a.Type &&
		p.pending.Result == a.Result
}
