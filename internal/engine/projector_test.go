package engine

import (
	"errors"
	"testing"

	"github.com/teamtrack/volley-live-backend/internal/catalog"
)

func TestProjectScore_ReplayIsDeterministic(t *testing.T) {
	m := startedMatch(t)
	m = register(t, m, "ath-h1", catalog.ActionServe, catalog.ResultAce)
	m = register(t, m, "ath-a1", catalog.ActionAttack, catalog.ResultAttackPoint)
	m = register(t, m, "ath-h2", catalog.ActionBlock, catalog.ResultBlockMiss)
	m = register(t, m, "ath-a2", catalog.ActionSet, catalog.ResultSetError)
	actions := m.ActiveSet().Actions

	h1, a1, err := ProjectScore(homeTeam, awayTeam, actions)
	if err != nil {
		t.Fatalf("first fold: %v", err)
	}
	h2, a2, err := ProjectScore(homeTeam, awayTeam, actions)
	if err != nil {
		t.Fatalf("second fold: %v", err)
	}
	if h1 != h2 || a1 != a2 {
		t.Fatalf("fold not deterministic: %d-%d vs %d-%d", h1, a1, h2, a2)
	}
	if h1 != 2 || a1 != 2 {
		t.Fatalf("score = %d-%d, want 2-2", h1, a1)
	}
}

func TestProjectScore_EmptyLogIsZero(t *testing.T) {
	h, a, err := ProjectScore(homeTeam, awayTeam, nil)
	if err != nil || h != 0 || a != 0 {
		t.Fatalf("got %d-%d err=%v, want 0-0", h, a, err)
	}
}

func TestProjectScore_RejectsForeignTeam(t *testing.T) {
	actions := []Action{{Type: catalog.ActionServe, Result: catalog.ResultAce, TeamID: "team-other"}}
	_, _, err := ProjectScore(homeTeam, awayTeam, actions)
	if !errors.Is(err, catalog.ErrInvalidActorTeam) {
		t.Fatalf("want ErrInvalidActorTeam, got %v", err)
	}
}

func TestScoreDelta(t *testing.T) {
	m := startedMatch(t)

	got, err := ScoreDelta(m, "ath-a1", catalog.ActionAttack, catalog.ResultAttackError)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got != catalog.PointHome {
		t.Fatalf("away attack error should score home, got %v", got)
	}

	if _, err := ScoreDelta(m, "nobody", catalog.ActionServe, catalog.ResultAce); !errors.Is(err, ErrInvalidActorTeam) {
		t.Fatalf("want ErrInvalidActorTeam, got %v", err)
	}
}
