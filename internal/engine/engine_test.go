package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/teamtrack/volley-live-backend/internal/catalog"
)

const (
	homeTeam = "team-home"
	awayTeam = "team-away"
)

func testRoster() map[string]string {
	return map[string]string{
		"ath-h1": homeTeam,
		"ath-h2": homeTeam,
		"ath-a1": awayTeam,
		"ath-a2": awayTeam,
	}
}

func scheduledMatch() Match {
	return NewScheduledMatch("m1", homeTeam, awayTeam, "Gym A", time.Now(), testRoster())
}

// startedMatch returns an in-progress match with set 1 active.
func startedMatch(t *testing.T) Match {
	t.Helper()
	_, m, err := Apply(scheduledMatch(), Command{Type: CmdStartMatch, MatchID: "m1"})
	if err != nil {
		t.Fatalf("start match: %v", err)
	}
	return m
}

func register(t *testing.T, m Match, athlete string, at catalog.ActionType, r catalog.Result) Match {
	t.Helper()
	_, next, err := Apply(m, Command{
		Type:       CmdRegisterAction,
		MatchID:    m.ID,
		SetID:      m.ActiveSet().ID,
		ActionType: at,
		Result:     r,
		AthleteID:  athlete,
	})
	if err != nil {
		t.Fatalf("register %s/%s: %v", at, r, err)
	}
	return next
}

func TestStartMatch_CreatesFirstSet(t *testing.T) {
	events, m, err := Apply(scheduledMatch(), Command{Type: CmdStartMatch, MatchID: "m1"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if m.Status != MatchInProgress {
		t.Fatalf("status = %s, want IN_PROGRESS", m.Status)
	}
	if len(m.Sets) != 1 || m.Sets[0].Number != 1 || m.Sets[0].Status != SetInProgress {
		t.Fatalf("expected one active set #1, got %+v", m.Sets)
	}
	if !ContainsEvent(events, EvtMatchStarted) || !ContainsEvent(events, EvtSetCreated) {
		t.Fatalf("want MatchStarted+SetCreated, got %+v", events)
	}
}

func TestStartMatch_RejectedWhenAlreadyStarted(t *testing.T) {
	m := startedMatch(t)
	_, _, err := Apply(m, Command{Type: CmdStartMatch, MatchID: m.ID})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("want ErrInvalidTransition, got %v", err)
	}
}

func TestCreateSet_RejectedWhileSetActive(t *testing.T) {
	m := startedMatch(t)
	_, _, err := Apply(m, Command{Type: CmdCreateSet, MatchID: m.ID})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("want ErrInvalidTransition, got %v", err)
	}
}

func TestCreateSet_AfterFinalizeGetsNextNumber(t *testing.T) {
	m := startedMatch(t)
	_, m, err := Apply(m, Command{Type: CmdFinalizeSet, MatchID: m.ID, SetID: m.ActiveSet().ID})
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	_, m, err = Apply(m, Command{Type: CmdCreateSet, MatchID: m.ID, ServingTeamID: awayTeam})
	if err != nil {
		t.Fatalf("create set: %v", err)
	}
	set := m.ActiveSet()
	if set == nil || set.Number != 2 {
		t.Fatalf("expected active set #2, got %+v", set)
	}
	if set.ServingTeamID != awayTeam {
		t.Fatalf("serving team = %q, want %q", set.ServingTeamID, awayTeam)
	}
}

func TestFinalizeSet_SecondFinalizeRejected(t *testing.T) {
	m := startedMatch(t)
	setID := m.ActiveSet().ID

	_, m, err := Apply(m, Command{Type: CmdFinalizeSet, MatchID: m.ID, SetID: setID})
	if err != nil {
		t.Fatalf("first finalize: %v", err)
	}
	if m.Sets[0].FinalizedAt == nil {
		t.Fatalf("finalize timestamp not set")
	}

	_, _, err = Apply(m, Command{Type: CmdFinalizeSet, MatchID: m.ID, SetID: setID})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("want ErrInvalidTransition, got %v", err)
	}
}

func TestRegisterAction_SetPointScenario(t *testing.T) {
	// Build a 24-24 set, then a home attack point makes it 25-24.
	m := startedMatch(t)
	for i := 0; i < 24; i++ {
		m = register(t, m, "ath-h1", catalog.ActionAttack, catalog.ResultAttackPoint)
		m = register(t, m, "ath-a1", catalog.ActionServe, catalog.ResultAce)
	}
	set := m.ActiveSet()
	if set.HomeScore != 24 || set.AwayScore != 24 {
		t.Fatalf("setup score = %d-%d, want 24-24", set.HomeScore, set.AwayScore)
	}

	m = register(t, m, "ath-h2", catalog.ActionAttack, catalog.ResultAttackPoint)
	set = m.ActiveSet()
	if set.HomeScore != 25 || set.AwayScore != 24 {
		t.Fatalf("score = %d-%d, want 25-24", set.HomeScore, set.AwayScore)
	}

	_, m, err := Apply(m, Command{Type: CmdFinalizeSet, MatchID: m.ID, SetID: set.ID})
	if err != nil {
		t.Fatalf("finalize accepted expected, got %v", err)
	}
	_, _, err = Apply(m, Command{Type: CmdFinalizeSet, MatchID: m.ID, SetID: set.ID})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("second finalize: want ErrInvalidTransition, got %v", err)
	}
}

func TestRegisterAction_SidesResolveAgainstActorTeam(t *testing.T) {
	cases := []struct {
		name     string
		athlete  string
		at       catalog.ActionType
		r        catalog.Result
		wantHome int
		wantAway int
	}{
		{"home ace scores home", "ath-h1", catalog.ActionServe, catalog.ResultAce, 1, 0},
		{"home serve error scores away", "ath-h1", catalog.ActionServe, catalog.ResultServeError, 0, 1},
		{"away block point scores away", "ath-a1", catalog.ActionBlock, catalog.ResultBlockPoint, 0, 1},
		{"away reception D scores home", "ath-a1", catalog.ActionReception, catalog.ResultReceptionD, 1, 0},
		{"rotation scores nobody", "ath-h1", catalog.ActionRotation, catalog.ResultRotationCompleted, 0, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := register(t, startedMatch(t), tc.athlete, tc.at, tc.r)
			set := m.ActiveSet()
			if set.HomeScore != tc.wantHome || set.AwayScore != tc.wantAway {
				t.Fatalf("score = %d-%d, want %d-%d", set.HomeScore, set.AwayScore, tc.wantHome, tc.wantAway)
			}
		})
	}
}

func TestRegisterAction_AssignsMonotonicSeq(t *testing.T) {
	m := startedMatch(t)
	m = register(t, m, "ath-h1", catalog.ActionServe, catalog.ResultAce)
	m = register(t, m, "ath-a1", catalog.ActionAttack, catalog.ResultAttackError)
	m = register(t, m, "ath-h1", catalog.ActionBlock, catalog.ResultBlockTouch)

	actions := m.ActiveSet().Actions
	for i, a := range actions {
		if a.Seq != i+1 {
			t.Fatalf("action %d has seq %d", i, a.Seq)
		}
	}
}

func TestRegisterAction_UnknownAthleteRejected(t *testing.T) {
	m := startedMatch(t)
	_, _, err := Apply(m, Command{
		Type:       CmdRegisterAction,
		MatchID:    m.ID,
		SetID:      m.ActiveSet().ID,
		ActionType: catalog.ActionServe,
		Result:     catalog.ResultAce,
		AthleteID:  "ath-unknown",
	})
	if !errors.Is(err, ErrInvalidActorTeam) {
		t.Fatalf("want ErrInvalidActorTeam, got %v", err)
	}
}

func TestRegisterAction_IllegalResultRejected(t *testing.T) {
	m := startedMatch(t)
	_, _, err := Apply(m, Command{
		Type:       CmdRegisterAction,
		MatchID:    m.ID,
		SetID:      m.ActiveSet().ID,
		ActionType: catalog.ActionServe,
		Result:     catalog.ResultBlockPoint,
		AthleteID:  "ath-h1",
	})
	if !errors.Is(err, catalog.ErrUnknownResult) {
		t.Fatalf("want ErrUnknownResult, got %v", err)
	}
}

func TestRegisterAction_StaleSetRejected(t *testing.T) {
	m := startedMatch(t)
	oldSetID := m.ActiveSet().ID

	_, m, err := Apply(m, Command{Type: CmdFinalizeSet, MatchID: m.ID, SetID: oldSetID})
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	_, m, err = Apply(m, Command{Type: CmdCreateSet, MatchID: m.ID})
	if err != nil {
		t.Fatalf("create set: %v", err)
	}

	_, _, err = Apply(m, Command{
		Type:       CmdRegisterAction,
		MatchID:    m.ID,
		SetID:      oldSetID,
		ActionType: catalog.ActionServe,
		Result:     catalog.ResultAce,
		AthleteID:  "ath-h1",
	})
	if !errors.Is(err, ErrStaleCommand) {
		t.Fatalf("want ErrStaleCommand, got %v", err)
	}
}

func TestUndo_SingleActionBackToZero(t *testing.T) {
	m := startedMatch(t)
	m = register(t, m, "ath-h1", catalog.ActionServe, catalog.ResultAce)

	events, m, err := Apply(m, Command{Type: CmdUndoLastAction, MatchID: m.ID, SetID: m.ActiveSet().ID})
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	set := m.ActiveSet()
	if set.HomeScore != 0 || set.AwayScore != 0 {
		t.Fatalf("score = %d-%d, want 0-0", set.HomeScore, set.AwayScore)
	}
	if len(set.Actions) != 0 {
		t.Fatalf("expected empty action log, got %d", len(set.Actions))
	}
	if !ContainsEvent(events, EvtActionUndone) {
		t.Fatalf("want ActionUndone event, got %+v", events)
	}
}

func TestUndo_EmptySetRejected(t *testing.T) {
	m := startedMatch(t)
	_, _, err := Apply(m, Command{Type: CmdUndoLastAction, MatchID: m.ID, SetID: m.ActiveSet().ID})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("want ErrInvalidTransition, got %v", err)
	}
}

func TestEndMatch_FinalizesActiveSetFirst(t *testing.T) {
	m := startedMatch(t)
	m = register(t, m, "ath-h1", catalog.ActionServe, catalog.ResultAce)

	events, m, err := Apply(m, Command{Type: CmdEndMatch, MatchID: m.ID})
	if err != nil {
		t.Fatalf("end match: %v", err)
	}
	if m.Status != MatchFinalized {
		t.Fatalf("status = %s, want FINALIZED", m.Status)
	}
	if len(events) != 2 || events[0].Type != EvtSetFinalized || events[1].Type != EvtMatchFinalized {
		t.Fatalf("want [SetFinalized MatchFinalized], got %+v", events)
	}
}

func TestTerminalMatch_AbsorbsAllCommands(t *testing.T) {
	m := startedMatch(t)
	_, m, err := Apply(m, Command{Type: CmdEndMatch, MatchID: m.ID})
	if err != nil {
		t.Fatalf("end match: %v", err)
	}

	for _, ct := range []CommandType{CmdStartMatch, CmdCreateSet, CmdFinalizeSet, CmdRegisterAction, CmdUndoLastAction, CmdEndMatch} {
		_, _, err := Apply(m, Command{Type: ct, MatchID: m.ID, ActionType: catalog.ActionServe, Result: catalog.ResultAce, AthleteID: "ath-h1"})
		if !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("%s on finalized match: want ErrInvalidTransition, got %v", ct, err)
		}
	}
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	m := startedMatch(t)
	before := len(m.ActiveSet().Actions)

	_, _, err := Apply(m, Command{
		Type:       CmdRegisterAction,
		MatchID:    m.ID,
		SetID:      m.ActiveSet().ID,
		ActionType: catalog.ActionServe,
		Result:     catalog.ResultAce,
		AthleteID:  "ath-h1",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if len(m.ActiveSet().Actions) != before {
		t.Fatalf("input state was mutated")
	}
}
