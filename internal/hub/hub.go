package hub

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/teamtrack/volley-live-backend/internal/metrics"
	"github.com/teamtrack/volley-live-backend/internal/room"
	"github.com/teamtrack/volley-live-backend/internal/store"
)

type HubMsg interface{ isHubMsg() }

// EnsureRoom resolves the room for a match, starting it from persisted state
// on first touch. Reply receives nil when the match does not exist.
type EnsureRoom struct {
	MatchID string
	Reply   chan *room.Room
}

type GetRoom struct {
	MatchID string
	Reply   chan *room.Room
}

type RemoveRoom struct {
	MatchID string
}

type ShutdownHub struct{}

func (EnsureRoom) isHubMsg()  {}
func (GetRoom) isHubMsg()     {}
func (RemoveRoom) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}

type Hub struct {
	inbox chan HubMsg
	rooms map[string]*room.Room

	store         store.MatchStore
	log           *zap.Logger
	metrics       *metrics.Metrics
	statsInterval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(parent context.Context, st store.MatchStore, logger *zap.Logger, met *metrics.Metrics, statsInterval time.Duration) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:         make(chan HubMsg, 64),
		rooms:         make(map[string]*room.Room),
		store:         st,
		log:           logger,
		metrics:       met,
		statsInterval: statsInterval,
		ctx:           ctx,
		cancel:        cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case EnsureRoom:
				if r := h.rooms[msg.MatchID]; r != nil {
					msg.Reply <- r
					break
				}
				match, err := h.store.GetMatch(h.ctx, msg.MatchID)
				if err != nil {
					if !errors.Is(err, store.ErrNotFound) {
						h.log.Error("load match failed", zap.String("match_id", msg.MatchID), zap.Error(err))
					}
					msg.Reply <- nil
					break
				}
				r := room.New(h.ctx, match, h.store, h.log, h.metrics, h.statsInterval)
				h.rooms[msg.MatchID] = r
				msg.Reply <- r

			case GetRoom:
				msg.Reply <- h.rooms[msg.MatchID] // May be nil

			case RemoveRoom:
				if r := h.rooms[msg.MatchID]; r != nil {
					r.Inbox() <- room.Shutdown{}
					delete(h.rooms, msg.MatchID)
				}

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) shutdown() {
	for id, r := range h.rooms {
		r.Inbox() <- room.Shutdown{}
		delete(h.rooms, id)
	}
	h.cancel()
}
