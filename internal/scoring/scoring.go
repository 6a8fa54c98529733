// Package scoring derives statistics from confirmed action logs. Everything
// here is a fold over the log: no statistic is stored, all of them are
// reproducible at any time.
package scoring

import (
	"github.com/teamtrack/volley-live-backend/internal/catalog"
	"github.com/teamtrack/volley-live-backend/internal/engine"
)

// AthleteLine is one athlete's tally within the aggregation scope.
type AthleteLine struct {
	AthleteID string                 `json:"athlete_id"`
	TeamID    string                 `json:"team_id"`
	Total     int                    `json:"total"`
	ByResult  map[catalog.Result]int `json:"by_result"`
	PointsWon int                    `json:"points_won"`
	Faults    int                    `json:"faults"`
}

// Statistics is the derived snapshot pushed to clients alongside action
// confirmations and on the periodic live-statistics tick.
type Statistics struct {
	MatchID    string                  `json:"match_id"`
	SetID      string                  `json:"set_id,omitempty"`
	HomePoints int                     `json:"home_points"`
	AwayPoints int                     `json:"away_points"`
	Athletes   map[string]*AthleteLine `json:"athletes"`
}

// AggregateSet folds one set's confirmed actions.
func AggregateSet(m engine.Match, set engine.Set) (Statistics, error) {
	stats := Statistics{
		MatchID:  m.ID,
		SetID:    set.ID,
		Athletes: map[string]*AthleteLine{},
	}
	if err := fold(&stats, m, set.Actions); err != nil {
		return Statistics{}, err
	}
	return stats, nil
}

// AggregateMatch folds every set of the match in order.
func AggregateMatch(m engine.Match) (Statistics, error) {
	stats := Statistics{
		MatchID:  m.ID,
		Athletes: map[string]*AthleteLine{},
	}
	for _, set := range m.Sets {
		if err := fold(&stats, m, set.Actions); err != nil {
			return Statistics{}, err
		}
	}
	return stats, nil
}

func fold(stats *Statistics, m engine.Match, actions []engine.Action) error {
	for _, a := range actions {
		line, ok := stats.Athletes[a.AthleteID]
		if !ok {
			line = &AthleteLine{
				AthleteID: a.AthleteID,
				TeamID:    a.TeamID,
				ByResult:  map[catalog.Result]int{},
			}
			stats.Athletes[a.AthleteID] = line
		}
		line.Total++
		line.ByResult[a.Result]++

		side, err := catalog.SideFor(a.Type, a.Result)
		if err != nil {
			return err
		}
		point, err := catalog.Resolve(side, a.TeamID, m.HomeTeamID, m.AwayTeamID)
		if err != nil {
			return err
		}
		switch point {
		case catalog.PointHome:
			stats.HomePoints++
		case catalog.PointAway:
			stats.AwayPoints++
		}
		switch side {
		case catalog.SideActor:
			line.PointsWon++
		case catalog.SideOpponent:
			line.Faults++
		}
	}
	return nil
}
