package types

import (
	"time"

	"github.com/teamtrack/volley-live-backend/internal/engine"
	"github.com/teamtrack/volley-live-backend/internal/scoring"
)

// Client -> Server message kinds.
const (
	MsgJoinRoom       = "JoinRoom"
	MsgLeaveRoom      = "LeaveRoom"
	MsgStartMatch     = "StartMatch"
	MsgEndMatch       = "EndMatch"
	MsgCreateSet      = "CreateSet"
	MsgFinalizeSet    = "FinalizeSet"
	MsgRegisterAction = "RegisterAction"
	MsgUndoLastAction = "UndoLastAction"
	MsgPing           = "Ping"
)

type ClientMessage struct {
	Type          string `json:"type"`
	MatchID       string `json:"match_id,omitempty"`
	SetID         string `json:"set_id,omitempty"`
	ServingTeamID string `json:"serving_team_id,omitempty"`
	ActionType    string `json:"action_type,omitempty"`
	Result        string `json:"result,omitempty"`
	AthleteID     string `json:"athlete_id,omitempty"`
}

// Server -> Client event kinds.
const (
	EvtRoomJoined           = "RoomJoined"
	EvtMatchStarted         = "MatchStarted"
	EvtMatchFinalized       = "MatchFinalized"
	EvtSetCreated           = "SetCreated"
	EvtSetFinalized         = "SetFinalized"
	EvtSetScoreUpdated      = "SetScoreUpdated"
	EvtActionRegistered     = "ActionRegistered"
	EvtActionUndone         = "ActionUndone"
	EvtLiveStatisticsUpdate = "LiveStatisticsUpdate"
	EvtUserJoined           = "UserJoined"
	EvtUserLeft             = "UserLeft"
	EvtError                = "Error"
)

// Error codes surfaced to operators. The server maps engine/auth sentinels
// onto these; clients branch on the code, never on the message text.
const (
	CodeUnauthenticated   = "Unauthenticated"
	CodeCredentialExpired = "CredentialExpired"
	CodeInvalidTransition = "InvalidTransition"
	CodeInvalidActorTeam  = "InvalidActorTeam"
	CodeStaleCommand      = "StaleCommand"
	CodeBadCommand        = "BadCommand"
	CodeInternal          = "Internal"
)

type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ServerEvent is the single push-event envelope. Timestamp plus the id
// fields give receivers enough to deduplicate at-least-once delivery.
type ServerEvent struct {
	Type      string               `json:"type"`
	Timestamp time.Time            `json:"ts"`
	MatchID   string               `json:"match_id,omitempty"`
	SetID     string               `json:"set_id,omitempty"`
	SetNumber int                  `json:"set_number,omitempty"`
	ActionID  string               `json:"action_id,omitempty"`
	Action    *engine.Action       `json:"action,omitempty"`
	HomeScore int                  `json:"home_score"`
	AwayScore int                  `json:"away_score"`
	Stats     *scoring.Statistics  `json:"stats,omitempty"`
	UserID    string               `json:"user_id,omitempty"`
	Error     *ErrorInfo           `json:"error,omitempty"`
}
