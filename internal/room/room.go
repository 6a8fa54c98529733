// Package room runs one goroutine per match that exclusively owns that
// match's authoritative state. All command validation and action-sequence
// mutation is serialized through the room inbox; broadcasts fan out after the
// authoritative write completes.
package room

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/teamtrack/volley-live-backend/internal/catalog"
	"github.com/teamtrack/volley-live-backend/internal/engine"
	"github.com/teamtrack/volley-live-backend/internal/metrics"
	"github.com/teamtrack/volley-live-backend/internal/scoring"
	"github.com/teamtrack/volley-live-backend/internal/store"
	"github.com/teamtrack/volley-live-backend/pkg/types"
)

type Msg interface{ isRoomMsg() }

// Join enrolls a client in the broadcast group. The room acknowledges with
// RoomJoined on the client's outbox and announces presence to the others.
type Join struct {
	ClientID string
	UserID   string
	Outbox   chan types.ServerEvent
}

type Leave struct{ ClientID string }

// FromClient carries a decoded command from one client. Rejections go back
// to that client only; confirmations are broadcast to the whole room.
type FromClient struct {
	ClientID string
	Cmd      engine.Command
}

// GetState reflects internal state without data races; used by tests and the
// hub when it needs a consistent read.
type GetState struct {
	Reply chan View
}

type Shutdown struct{}

func (Join) isRoomMsg()       {}
func (Leave) isRoomMsg()      {}
func (FromClient) isRoomMsg() {}
func (GetState) isRoomMsg()   {}
func (Shutdown) isRoomMsg()   {}

type View struct {
	NumClients int
	Match      engine.Match
}

type member struct {
	userID string
	outbox chan types.ServerEvent
}

type Room struct {
	inbox   chan Msg
	match   engine.Match
	clients map[string]member

	store         store.MatchStore
	log           *zap.Logger
	metrics       *metrics.Metrics
	statsInterval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
}

func New(parent context.Context, m engine.Match, st store.MatchStore, logger *zap.Logger, met *metrics.Metrics, statsInterval time.Duration) *Room {
	ctx, cancel := context.WithCancel(parent)
	r := &Room{
		inbox:         make(chan Msg, 64),
		match:         m,
		clients:       make(map[string]member),
		store:         st,
		log:           logger.With(zap.String("match_id", m.ID)),
		metrics:       met,
		statsInterval: statsInterval,
		ctx:           ctx,
		cancel:        cancel,
	}
	go r.loop()
	return r
}

func (r *Room) Inbox() chan<- Msg { return r.inbox }

func (r *Room) MatchID() string { return r.match.ID }

func (r *Room) loop() {
	var tick <-chan time.Time
	if r.statsInterval > 0 {
		ticker := time.NewTicker(r.statsInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case <-tick:
			r.broadcastLiveStatistics()

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Join:
				r.clients[msg.ClientID] = member{userID: msg.UserID, outbox: msg.Outbox}
				r.metrics.RoomMembers.WithLabelValues(r.match.ID).Set(float64(len(r.clients)))
				ack := types.ServerEvent{
					Type:      types.EvtRoomJoined,
					Timestamp: time.Now().UTC(),
					MatchID:   r.match.ID,
					UserID:    msg.UserID,
				}
				select {
				case msg.Outbox <- ack:
				default:
					r.dropClient(msg.ClientID, false)
					continue
				}
				r.broadcastExcept(msg.ClientID, types.ServerEvent{
					Type:      types.EvtUserJoined,
					Timestamp: time.Now().UTC(),
					MatchID:   r.match.ID,
					UserID:    msg.UserID,
				})

			case Leave:
				r.dropClient(msg.ClientID, true)

			case FromClient:
				r.handleCommand(msg)

			case GetState:
				msg.Reply <- View{
					NumClients: len(r.clients),
					Match:      r.match.Clone(),
				}

			case Shutdown:
				r.shutdown()
				return
			}
		}
	}
}

func (r *Room) handleCommand(msg FromClient) {
	events, next, err := engine.Apply(r.match, msg.Cmd)
	if err != nil {
		r.metrics.CommandRejected(string(msg.Cmd.Type))
		r.log.Info("command rejected",
			zap.String("command", string(msg.Cmd.Type)),
			zap.String("client_id", msg.ClientID),
			zap.Error(err))
		r.sendError(msg.ClientID, err)
		return
	}

	if err := r.store.SaveMatch(r.ctx, next); err != nil {
		r.metrics.CommandRejected(string(msg.Cmd.Type))
		r.log.Error("persist failed, command not applied",
			zap.String("command", string(msg.Cmd.Type)),
			zap.Error(err))
		r.sendError(msg.ClientID, err)
		return
	}

	r.match = next
	r.metrics.CommandApplied(string(msg.Cmd.Type))
	for _, ev := range events {
		r.broadcast(r.toWire(ev))
	}
}

// toWire stamps an engine event with the server timestamp and, for action
// confirmations, a precomputed statistics snapshot so clients skip a
// round trip.
func (r *Room) toWire(ev engine.Event) types.ServerEvent {
	out := types.ServerEvent{
		Timestamp: time.Now().UTC(),
		MatchID:   ev.MatchID,
		SetID:     ev.SetID,
		SetNumber: ev.SetNumber,
		ActionID:  ev.ActionID,
		Action:    ev.Action,
		HomeScore: ev.HomeScore,
		AwayScore: ev.AwayScore,
	}

	switch ev.Type {
	case engine.EvtMatchStarted:
		out.Type = types.EvtMatchStarted
	case engine.EvtMatchFinalized:
		out.Type = types.EvtMatchFinalized
	case engine.EvtSetCreated:
		out.Type = types.EvtSetCreated
	case engine.EvtSetFinalized:
		out.Type = types.EvtSetFinalized
	case engine.EvtSetScoreUpdated:
		out.Type = types.EvtSetScoreUpdated
	case engine.EvtActionUndone:
		out.Type = types.EvtActionUndone
	case engine.EvtActionRegistered:
		out.Type = types.EvtActionRegistered
		if set := r.match.SetByID(ev.SetID); set != nil {
			if stats, err := scoring.AggregateSet(r.match, *set); err == nil {
				out.Stats = &stats
			} else {
				r.log.Warn("stats aggregation failed", zap.Error(err))
			}
		}
	}
	return out
}

func (r *Room) broadcastLiveStatistics() {
	if len(r.clients) == 0 || r.match.ActiveSet() == nil {
		return
	}
	stats, err := scoring.AggregateMatch(r.match)
	if err != nil {
		r.log.Warn("live statistics aggregation failed", zap.Error(err))
		return
	}
	r.broadcast(types.ServerEvent{
		Type:      types.EvtLiveStatisticsUpdate,
		Timestamp: time.Now().UTC(),
		MatchID:   r.match.ID,
		Stats:     &stats,
	})
}

func (r *Room) sendError(clientID string, err error) {
	m, ok := r.clients[clientID]
	if !ok {
		return
	}
	ev := types.ServerEvent{
		Type:      types.EvtError,
		Timestamp: time.Now().UTC(),
		MatchID:   r.match.ID,
		Error: &types.ErrorInfo{
			Code:    ErrorCode(err),
			Message: err.Error(),
		},
	}
	select {
	case m.outbox <- ev:
	default:
		r.dropClient(clientID, false)
	}
}

func (r *Room) broadcast(ev types.ServerEvent) {
	r.broadcastExcept("", ev)
}

func (r *Room) broadcastExcept(skipID string, ev types.ServerEvent) {
	r.metrics.EventsBroadcast.WithLabelValues(ev.Type).Inc()
	for id, m := range r.clients {
		if id == skipID {
			continue
		}
		select {
		case m.outbox <- ev:
		default:
			// Client is slow or full; drop it. It will resync on reconnect.
			r.dropClient(id, false)
		}
	}
}

func (r *Room) dropClient(id string, announce bool) {
	m, ok := r.clients[id]
	if !ok {
		return
	}
	delete(r.clients, id)
	close(m.outbox)
	r.metrics.RoomMembers.WithLabelValues(r.match.ID).Set(float64(len(r.clients)))
	if announce {
		r.broadcast(types.ServerEvent{
			Type:      types.EvtUserLeft,
			Timestamp: time.Now().UTC(),
			MatchID:   r.match.ID,
			UserID:    m.userID,
		})
	}
}

func (r *Room) shutdown() {
	for id, m := range r.clients {
		close(m.outbox)
		delete(r.clients, id)
	}
	r.metrics.RoomMembers.WithLabelValues(r.match.ID).Set(0)
	r.cancel()
}

// ErrorCode maps an engine/store rejection onto the wire error taxonomy.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, engine.ErrInvalidActorTeam):
		return types.CodeInvalidActorTeam
	case errors.Is(err, engine.ErrStaleCommand):
		return types.CodeStaleCommand
	case errors.Is(err, engine.ErrInvalidTransition):
		return types.CodeInvalidTransition
	case errors.Is(err, catalog.ErrUnknownResult), errors.Is(err, engine.ErrUnsupportedCommand):
		return types.CodeBadCommand
	default:
		return types.CodeInternal
	}
}
