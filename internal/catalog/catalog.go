package catalog

import "errors"

var ErrUnknownResult = errors.New("unknown result for action type")
var ErrInvalidActorTeam = errors.New("actor team is neither home nor away")

type ActionType string

const (
	ActionServe        ActionType = "SERVE"
	ActionAttack       ActionType = "ATTACK"
	ActionBlock        ActionType = "BLOCK"
	ActionReception    ActionType = "RECEPTION"
	ActionDefense      ActionType = "DEFENSE"
	ActionSet          ActionType = "SET"
	ActionRotation     ActionType = "ROTATION"
	ActionSubstitution ActionType = "SUBSTITUTION"
)

type Result string

const (
	ResultAce        Result = "ACE"
	ResultServeIn    Result = "SERVE_IN"
	ResultServeError Result = "SERVE_ERROR"

	ResultAttackPoint   Result = "ATTACK_POINT"
	ResultAttackError   Result = "ATTACK_ERROR"
	ResultAttackBlocked Result = "ATTACK_BLOCKED"

	ResultBlockPoint Result = "BLOCK_POINT"
	ResultBlockTouch Result = "BLOCK_TOUCH"
	ResultBlockMiss  Result = "BLOCK_MISS"

	ResultReceptionA Result = "RECEPTION_A"
	ResultReceptionB Result = "RECEPTION_B"
	ResultReceptionC Result = "RECEPTION_C"
	ResultReceptionD Result = "RECEPTION_D"

	ResultDefenseSuccess Result = "DEFENSE_SUCCESS"
	ResultDefenseFail    Result = "DEFENSE_FAIL"

	ResultSetSuccess Result = "SET_SUCCESS"
	ResultSetError   Result = "SET_ERROR"

	ResultRotationCompleted     Result = "ROTATION_COMPLETED"
	ResultSubstitutionCompleted Result = "SUBSTITUTION_COMPLETED"
)

// Side says which side of the net gains a point, relative to the acting
// athlete's team.
type Side int

const (
	SideNone Side = iota
	SideActor
	SideOpponent
)

// PointTo is the absolute counterpart of Side, resolved against the match's
// home/away identities.
type PointTo int

const (
	PointNone PointTo = iota
	PointHome
	PointAway
)

// table has one row per legal (type, result) pair. Rotation and substitution
// are bookkeeping actions and never score.
var table = map[ActionType]map[Result]Side{
	ActionServe: {
		ResultAce:        SideActor,
		ResultServeIn:    SideNone,
		ResultServeError: SideOpponent,
	},
	ActionAttack: {
		ResultAttackPoint:   SideActor,
		ResultAttackError:   SideOpponent,
		ResultAttackBlocked: SideOpponent,
	},
	ActionBlock: {
		ResultBlockPoint: SideActor,
		ResultBlockTouch: SideNone,
		ResultBlockMiss:  SideOpponent,
	},
	ActionReception: {
		ResultReceptionA: SideNone,
		ResultReceptionB: SideNone,
		ResultReceptionC: SideNone,
		ResultReceptionD: SideOpponent,
	},
	ActionDefense: {
		ResultDefenseSuccess: SideNone,
		ResultDefenseFail:    SideOpponent,
	},
	ActionSet: {
		ResultSetSuccess: SideNone,
		ResultSetError:   SideOpponent,
	},
	ActionRotation: {
		ResultRotationCompleted: SideNone,
	},
	ActionSubstitution: {
		ResultSubstitutionCompleted: SideNone,
	},
}

// Types lists every action type in the catalog.
func Types() []ActionType {
	return []ActionType{
		ActionServe, ActionAttack, ActionBlock, ActionReception,
		ActionDefense, ActionSet, ActionRotation, ActionSubstitution,
	}
}

// ResultsFor lists the legal results for a type. Nil for an unknown type.
func ResultsFor(t ActionType) []Result {
	rows, ok := table[t]
	if !ok {
		return nil
	}
	out := make([]Result, 0, len(rows))
	for r := range rows {
		out = append(out, r)
	}
	return out
}

// Legal reports whether result is a legal outcome of the action type.
func Legal(t ActionType, r Result) bool {
	_, ok := table[t][r]
	return ok
}

// SideFor returns the relative point attribution for a (type, result) pair.
func SideFor(t ActionType, r Result) (Side, error) {
	side, ok := table[t][r]
	if !ok {
		return SideNone, ErrUnknownResult
	}
	return side, nil
}

// Resolve converts a relative side to an absolute point attribution given the
// acting athlete's team and the match's home/away team identities.
func Resolve(side Side, actorTeamID, homeTeamID, awayTeamID string) (PointTo, error) {
	var actorIsHome bool
	switch actorTeamID {
	case homeTeamID:
		actorIsHome = true
	case awayTeamID:
		actorIsHome = false
	default:
		return PointNone, ErrInvalidActorTeam
	}

	switch side {
	case SideNone:
		return PointNone, nil
	case SideActor:
		if actorIsHome {
			return PointHome, nil
		}
		return PointAway, nil
	case SideOpponent:
		if actorIsHome {
			return PointAway, nil
		}
		return PointHome, nil
	default:
		return PointNone, ErrUnknownResult
	}
}
