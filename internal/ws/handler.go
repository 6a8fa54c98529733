package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teamtrack/volley-live-backend/internal/auth"
	"github.com/teamtrack/volley-live-backend/internal/catalog"
	"github.com/teamtrack/volley-live-backend/internal/engine"
	"github.com/teamtrack/volley-live-backend/internal/hub"
	"github.com/teamtrack/volley-live-backend/internal/metrics"
	"github.com/teamtrack/volley-live-backend/internal/room"
	"github.com/teamtrack/volley-live-backend/pkg/types"
)

type Options struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func (o *Options) fill() {
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = 60 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 3 * time.Second
	}
}

// joined tracks the connection's current room membership.
type joined struct {
	room     *room.Room
	clientID string
	cancel   context.CancelFunc
}

// Handler upgrades the connection after the bearer credential checks out and
// then bridges it to room actors. The credential is verified before any join
// can succeed.
func Handler(h *hub.Hub, verifier auth.Verifier, logger *zap.Logger, met *metrics.Metrics, opts Options) http.HandlerFunc {
	opts.fill()
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := verifier.Verify(bearerToken(r))
		if err != nil {
			code := types.CodeUnauthenticated
			if err == auth.ErrCredentialExpired {
				code = types.CodeCredentialExpired
			}
			http.Error(w, code, http.StatusUnauthorized)
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		met.OpenSessions.Inc()
		defer met.OpenSessions.Dec()

		log := logger.With(zap.String("user_id", claims.UserID))
		log.Info("session opened")
		defer log.Info("session closed")

		var cur *joined
		leave := func() {
			if cur == nil {
				return
			}
			// Cancel before the room closes the outbox, so the writer can
			// tell a voluntary leave from being dropped by the room.
			cur.cancel()
			cur.room.Inbox() <- room.Leave{ClientID: cur.clientID}
			cur = nil
		}
		// Abrupt disconnects prune membership too; no acknowledgment needed.
		defer leave()

		sendError := func(code, message string) {
			ev := types.ServerEvent{
				Type:      types.EvtError,
				Timestamp: time.Now().UTC(),
				Error:     &types.ErrorInfo{Code: code, Message: message},
			}
			writeEvent(r.Context(), conn, ev, opts.WriteTimeout)
		}

		for {
			ctx, cancel := context.WithTimeout(r.Context(), opts.ReadTimeout)
			_, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				sendError(types.CodeBadCommand, "bad json")
				continue
			}

			switch cm.Type {
			case types.MsgPing:
				// Heartbeat; reading it already refreshed liveness.

			case types.MsgJoinRoom:
				leave()
				reply := make(chan *room.Room, 1)
				h.Inbox() <- hub.EnsureRoom{MatchID: cm.MatchID, Reply: reply}
				rm := <-reply
				if rm == nil {
					sendError(types.CodeBadCommand, "unknown match "+cm.MatchID)
					continue
				}
				clientID := uuid.NewString()
				out := make(chan types.ServerEvent, 32)
				writeCtx, writeCancel := context.WithCancel(r.Context())
				go writer(writeCtx, conn, out, opts.WriteTimeout, log)
				rm.Inbox() <- room.Join{ClientID: clientID, UserID: claims.UserID, Outbox: out}
				cur = &joined{room: rm, clientID: clientID, cancel: writeCancel}

			case types.MsgLeaveRoom:
				leave()

			default:
				if cur == nil {
					sendError(types.CodeBadCommand, "join a room first")
					continue
				}
				cmd, ok := toCommand(cm)
				if !ok {
					sendError(types.CodeBadCommand, "unknown type "+cm.Type)
					continue
				}
				cur.room.Inbox() <- room.FromClient{ClientID: cur.clientID, Cmd: cmd}
			}
		}
	}
}

// sessionConn is the subset of *websocket.Conn the writer touches.
type sessionConn interface {
	Write(ctx context.Context, typ websocket.MessageType, p []byte) error
	Close(code websocket.StatusCode, reason string) error
}

// writer drains the room outbox onto the socket. The room closes the outbox
// when the client leaves, is dropped, or the room shuts down. On a voluntary
// leave the session context is already cancelled; any other close means the
// room evicted us, and the socket must die with the membership or the peer
// keeps a session that will never see another event.
func writer(ctx context.Context, conn sessionConn, out <-chan types.ServerEvent, timeout time.Duration, log *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-out:
			if !ok {
				if ctx.Err() == nil {
					log.Info("dropped by room, closing connection")
					_ = conn.Close(websocket.StatusPolicyViolation, "slow consumer")
				}
				return
			}
			if err := writeEvent(ctx, conn, ev, timeout); err != nil {
				log.Debug("write failed", zap.Error(err))
				return
			}
		}
	}
}

func writeEvent(ctx context.Context, conn sessionConn, ev types.ServerEvent, timeout time.Duration) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return conn.Write(wctx, websocket.MessageText, payload)
}

func toCommand(m types.ClientMessage) (engine.Command, bool) {
	base := engine.Command{
		MatchID:       m.MatchID,
		SetID:         m.SetID,
		ServingTeamID: m.ServingTeamID,
		ActionType:    catalog.ActionType(m.ActionType),
		Result:        catalog.Result(m.Result),
		AthleteID:     m.AthleteID,
	}

	switch m.Type {
	case types.MsgStartMatch:
		base.Type = engine.CmdStartMatch
	case types.MsgEndMatch:
		base.Type = engine.CmdEndMatch
	case types.MsgCreateSet:
		base.Type = engine.CmdCreateSet
	case types.MsgFinalizeSet:
		base.Type = engine.CmdFinalizeSet
	case types.MsgRegisterAction:
		base.Type = engine.CmdRegisterAction
	case types.MsgUndoLastAction:
		base.Type = engine.CmdUndoLastAction
	default:
		return engine.Command{}, false
	}
	return base, true
}

func bearerToken(r *http.Request) string {
	if tok := r.URL.Query().Get("token"); tok != "" {
		return tok
	}
	header := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return after
	}
	return ""
}
