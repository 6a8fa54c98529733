package engine

import "github.com/teamtrack/volley-live-backend/internal/catalog"

// ProjectScore folds the ordered action sequence into a set score. The fold
// is a pure, order-dependent integer accumulation: replaying the same
// sequence always yields the same result.
func ProjectScore(homeTeamID, awayTeamID string, actions []Action) (home, away int, err error) {
	for _, a := range actions {
		side, serr := catalog.SideFor(a.Type, a.Result)
		if serr != nil {
			return 0, 0, serr
		}
		point, rerr := catalog.Resolve(side, a.TeamID, homeTeamID, awayTeamID)
		if rerr != nil {
			return 0, 0, rerr
		}
		switch point {
		case catalog.PointHome:
			home++
		case catalog.PointAway:
			away++
		}
	}
	return home, away, nil
}

// ScoreDelta reports which side a single hypothetical action would score for.
// Used by clients for optimistic projection before confirmation arrives.
func ScoreDelta(m Match, athleteID string, t catalog.ActionType, r catalog.Result) (catalog.PointTo, error) {
	teamID, ok := m.Roster[athleteID]
	if !ok {
		return catalog.PointNone, ErrInvalidActorTeam
	}
	side, err := catalog.SideFor(t, r)
	if err != nil {
		return catalog.PointNone, err
	}
	return catalog.Resolve(side, teamID, m.HomeTeamID, m.AwayTeamID)
}
