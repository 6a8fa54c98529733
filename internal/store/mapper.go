package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/teamtrack/volley-live-backend/internal/catalog"
	"github.com/teamtrack/volley-live-backend/internal/engine"
)

type matchRow struct {
	ID          string `gorm:"primaryKey"`
	ScheduledAt time.Time
	Location    string
	HomeTeamID  string
	AwayTeamID  string
	Status      string
	Roster      []byte   `gorm:"type:jsonb"`
	Sets        []setRow `gorm:"foreignKey:MatchID;constraint:OnDelete:CASCADE"`
}

func (matchRow) TableName() string { return "matches" }

type setRow struct {
	ID            string `gorm:"primaryKey"`
	MatchID       string `gorm:"index"`
	Number        int
	HomeScore     int
	AwayScore     int
	Status        string
	ServingTeamID string
	StartedAt     time.Time
	FinalizedAt   *time.Time
	Actions       []actionRow `gorm:"foreignKey:SetID;constraint:OnDelete:CASCADE"`
}

func (setRow) TableName() string { return "sets" }

type actionRow struct {
	ID         string `gorm:"primaryKey"`
	MatchID    string `gorm:"index"`
	SetID      string `gorm:"index"`
	Type       string
	Result     string
	AthleteID  string
	TeamID     string
	Seq        int
	RecordedAt time.Time
}

func (actionRow) TableName() string { return "actions" }

func toRow(m engine.Match) (matchRow, error) {
	roster, err := json.Marshal(m.Roster)
	if err != nil {
		return matchRow{}, fmt.Errorf("marshal roster: %w", err)
	}
	row := matchRow{
		ID:          m.ID,
		ScheduledAt: m.ScheduledAt,
		Location:    m.Location,
		HomeTeamID:  m.HomeTeamID,
		AwayTeamID:  m.AwayTeamID,
		Status:      string(m.Status),
		Roster:      roster,
	}
	for _, s := range m.Sets {
		sr := setRow{
			ID:            s.ID,
			MatchID:       s.MatchID,
			Number:        s.Number,
			HomeScore:     s.HomeScore,
			AwayScore:     s.AwayScore,
			Status:        string(s.Status),
			ServingTeamID: s.ServingTeamID,
			StartedAt:     s.StartedAt,
			FinalizedAt:   s.FinalizedAt,
		}
		for _, a := range s.Actions {
			sr.Actions = append(sr.Actions, actionRow{
				ID:         a.ID,
				MatchID:    a.MatchID,
				SetID:      a.SetID,
				Type:       string(a.Type),
				Result:     string(a.Result),
				AthleteID:  a.AthleteID,
				TeamID:     a.TeamID,
				Seq:        a.Seq,
				RecordedAt: a.RecordedAt,
			})
		}
		row.Sets = append(row.Sets, sr)
	}
	return row, nil
}

func fromRow(row matchRow) (engine.Match, error) {
	roster := map[string]string{}
	if len(row.Roster) > 0 {
		if err := json.Unmarshal(row.Roster, &roster); err != nil {
			return engine.Match{}, fmt.Errorf("unmarshal roster: %w", err)
		}
	}
	m := engine.Match{
		ID:          row.ID,
		ScheduledAt: row.ScheduledAt,
		Location:    row.Location,
		HomeTeamID:  row.HomeTeamID,
		AwayTeamID:  row.AwayTeamID,
		Status:      engine.MatchStatus(row.Status),
		Roster:      roster,
		Sets:        []engine.Set{},
	}
	for _, sr := range row.Sets {
		s := engine.Set{
			ID:            sr.ID,
			MatchID:       sr.MatchID,
			Number:        sr.Number,
			HomeScore:     sr.HomeScore,
			AwayScore:     sr.AwayScore,
			Status:        engine.SetStatus(sr.Status),
			ServingTeamID: sr.ServingTeamID,
			StartedAt:     sr.StartedAt,
			FinalizedAt:   sr.FinalizedAt,
			Actions:       []engine.Action{},
		}
		for _, ar := range sr.Actions {
			s.Actions = append(s.Actions, engine.Action{
				ID:         ar.ID,
				MatchID:    ar.MatchID,
				SetID:      ar.SetID,
				Type:       catalog.ActionType(ar.Type),
				Result:     catalog.Result(ar.Result),
				AthleteID:  ar.AthleteID,
				TeamID:     ar.TeamID,
				Seq:        ar.Seq,
				RecordedAt: ar.RecordedAt,
			})
		}
		m.Sets = append(m.Sets, s)
	}
	return m, nil
}
