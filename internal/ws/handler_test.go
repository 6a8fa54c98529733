package ws

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/teamtrack/volley-live-backend/internal/catalog"
	"github.com/teamtrack/volley-live-backend/internal/engine"
	"github.com/teamtrack/volley-live-backend/pkg/types"
)

type recordedConn struct {
	mu     sync.Mutex
	writes int
	closed bool
	code   websocket.StatusCode
}

func (c *recordedConn) Write(ctx context.Context, typ websocket.MessageType, p []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes++
	return nil
}

func (c *recordedConn) Close(code websocket.StatusCode, reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.code = code
	return nil
}

func TestWriterClosesConnWhenRoomDropsClient(t *testing.T) {
	conn := &recordedConn{}
	out := make(chan types.ServerEvent, 4)
	out <- types.ServerEvent{Type: types.EvtRoomJoined}
	close(out)

	writer(context.Background(), conn, out, 0, zap.NewNop())

	if conn.writes != 1 {
		t.Fatalf("writes = %d, want the queued event drained first", conn.writes)
	}
	if !conn.closed {
		t.Fatal("room-closed outbox must close the socket, or the peer keeps a dead session")
	}
	if conn.code != websocket.StatusPolicyViolation {
		t.Fatalf("close code = %v, want StatusPolicyViolation", conn.code)
	}
}

func TestWriterLeavesConnOpenOnVoluntaryLeave(t *testing.T) {
	conn := &recordedConn{}
	out := make(chan types.ServerEvent)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	close(out)

	writer(ctx, conn, out, 0, zap.NewNop())

	if conn.closed {
		t.Fatal("voluntary leave must not close the socket; the reader may join another room")
	}
}

func TestToCommand(t *testing.T) {
	cases := []struct {
		msgType string
		want    engine.CommandType
	}{
		{types.MsgStartMatch, engine.CmdStartMatch},
		{types.MsgEndMatch, engine.CmdEndMatch},
		{types.MsgCreateSet, engine.CmdCreateSet},
		{types.MsgFinalizeSet, engine.CmdFinalizeSet},
		{types.MsgRegisterAction, engine.CmdRegisterAction},
		{types.MsgUndoLastAction, engine.CmdUndoLastAction},
	}
	for _, tc := range cases {
		cmd, ok := toCommand(types.ClientMessage{Type: tc.msgType, MatchID: "m1"})
		if !ok {
			t.Fatalf("toCommand(%s) not ok", tc.msgType)
		}
		if cmd.Type != tc.want || cmd.MatchID != "m1" {
			t.Fatalf("toCommand(%s) = %+v", tc.msgType, cmd)
		}
	}

	if _, ok := toCommand(types.ClientMessage{Type: "Nonsense"}); ok {
		t.Fatal("unknown message type must not map to a command")
	}
	if _, ok := toCommand(types.ClientMessage{Type: types.MsgJoinRoom}); ok {
		t.Fatal("JoinRoom is session plumbing, not an engine command")
	}
}

func TestToCommandCarriesActionFields(t *testing.T) {
	cmd, ok := toCommand(types.ClientMessage{
		Type:       types.MsgRegisterAction,
		MatchID:    "m1",
		SetID:      "s1",
		ActionType: string(catalog.ActionAttack),
		Result:     string(catalog.ResultAttackPoint),
		AthleteID:  "ath-1",
	})
	if !ok {
		t.Fatal("expected ok")
	}
	if cmd.SetID != "s1" || cmd.ActionType != catalog.ActionAttack ||
		cmd.Result != catalog.ResultAttackPoint || cmd.AthleteID != "ath-1" {
		t.Fatalf("fields dropped: %+v", cmd)
	}
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest("GET", "/ws?token=abc", nil)
	if got := bearerToken(r); got != "abc" {
		t.Fatalf("query token = %q", got)
	}

	r = httptest.NewRequest("GET", "/ws", nil)
	r.Header.Set("Authorization", "Bearer xyz")
	if got := bearerToken(r); got != "xyz" {
		t.Fatalf("header token = %q", got)
	}

	// Query wins when both are present.
	r = httptest.NewRequest("GET", "/ws?token=abc", nil)
	r.Header.Set("Authorization", "Bearer xyz")
	if got := bearerToken(r); got != "abc" {
		t.Fatalf("precedence token = %q", got)
	}

	r = httptest.NewRequest("GET", "/ws", nil)
	if got := bearerToken(r); got != "" {
		t.Fatalf("empty token = %q", got)
	}
}
