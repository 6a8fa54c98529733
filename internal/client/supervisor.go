package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/teamtrack/volley-live-backend/internal/auth"
	"github.com/teamtrack/volley-live-backend/internal/catalog"
	"github.com/teamtrack/volley-live-backend/internal/engine"
	"github.com/teamtrack/volley-live-backend/pkg/types"
)

var ErrConnectionLost = errors.New("connection lost")
var ErrReconnectionExhausted = errors.New("reconnection attempts exhausted")
var ErrNotConnected = errors.New("not connected")

var errForceReconnect = errors.New("force reconnect requested")

type State string

const (
	StateDisconnected State = "DISCONNECTED"
	StateConnecting   State = "CONNECTING"
	StateConnected    State = "CONNECTED"
	StateReconnecting State = "RECONNECTING"
	StateFailed       State = "FAILED"
)

// Update is what the consumer (UI) receives: a state change, a server event
// already folded into the projection, or a surfaced error.
type Update struct {
	State State
	Event *types.ServerEvent
	Err   error
}

type Config struct {
	ServerURL string
	MatchID   string
	Token     auth.Token

	MaxAttempts       int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	HeartbeatInterval time.Duration
	ConfirmTimeout    time.Duration
}

func (c *Config) fill() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = 500 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 10 * time.Second
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 20 * time.Second
	}
	if c.ConfirmTimeout <= 0 {
		c.ConfirmTimeout = 5 * time.Second
	}
}

// Supervisor owns the connection lifecycle: initial connect, heartbeat
// liveness, bounded reconnection with increasing delay, and full
// resynchronization after every (re)connect. It exclusively owns the session
// handle; the transport is released on every exit path.
type Supervisor struct {
	cfg    Config
	dialer Dialer
	api    MatchFetcher
	log    *zap.Logger

	mu    sync.Mutex
	conn  Conn
	proj  *Projection
	state State

	updates chan Update
	force   chan struct{}
}

func NewSupervisor(cfg Config, dialer Dialer, api MatchFetcher, logger *zap.Logger) *Supervisor {
	cfg.fill()
	return &Supervisor{
		cfg:     cfg,
		dialer:  dialer,
		api:     api,
		log:     logger.With(zap.String("match_id", cfg.MatchID)),
		proj:    NewProjection(),
		state:   StateDisconnected,
		updates: make(chan Update, 64),
		force:   make(chan struct{}, 1),
	}
}

func (s *Supervisor) Updates() <-chan Update { return s.updates }

func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// DisplayedScore is the operator-facing score: authoritative fold plus the
// pending optimistic guess, if one exists.
func (s *Supervisor) DisplayedScore() (home, away int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proj.DisplayedScore()
}

// MatchSnapshot returns a copy of the authoritative mirror.
func (s *Supervisor) MatchSnapshot() engine.Match {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proj.Match()
}

// Run drives the connection until ctx is cancelled (navigation away) or the
// retry budget is exhausted. The room is left and the transport closed on
// every exit path.
func (s *Supervisor) Run(ctx context.Context) error {
	defer s.teardown()
	first := true

	for {
		if first {
			s.setState(StateConnecting)
			first = false
		} else {
			s.setState(StateReconnecting)
		}

		if err := s.connectWithRetry(ctx); err != nil {
			if ctx.Err() != nil {
				s.setState(StateDisconnected)
				return ctx.Err()
			}
			s.setState(StateFailed)
			s.emit(Update{Err: err})
			return err
		}
		s.setState(StateConnected)

		err := s.serve(ctx)
		s.teardown()
		if ctx.Err() != nil {
			s.setState(StateDisconnected)
			return ctx.Err()
		}
		if errors.Is(err, errForceReconnect) {
			s.log.Info("forcing full reconnect")
			continue
		}
		s.log.Warn("connection lost", zap.Error(err))
		s.emit(Update{Err: fmt.Errorf("%w: %v", ErrConnectionLost, err)})
	}
}

// ForceReconnect tears the session down and rebuilds it rather than resuming
// a half-open connection.
func (s *Supervisor) ForceReconnect() {
	select {
	case s.force <- struct{}{}:
	default:
	}
}

// RegisterAction applies the optimistic guess and sends the command. Exactly
// one unconfirmed action is allowed; a second submit is rejected with
// ErrPendingAction until confirmation, correction, or expiry.
func (s *Supervisor) RegisterAction(athleteID string, t catalog.ActionType, r catalog.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return ErrNotConnected
	}
	if err := s.proj.SubmitOptimistic(athleteID, t, r, time.Now()); err != nil {
		return err
	}

	set := s.proj.match.ActiveSet()
	msg := types.ClientMessage{
		Type:       types.MsgRegisterAction,
		MatchID:    s.cfg.MatchID,
		SetID:      set.ID,
		ActionType: string(t),
		Result:     string(r),
		AthleteID:  athleteID,
	}
	if err := s.sendLocked(msg); err != nil {
		s.proj.CancelPending()
		return err
	}
	return nil
}

// UndoLastAction is never optimistic: determining "the most recent action"
// requires authoritative ordering, so the command just goes to the server.
func (s *Supervisor) UndoLastAction() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return ErrNotConnected
	}
	set := s.proj.match.ActiveSet()
	if set == nil {
		return ErrNoActiveSet
	}
	return s.sendLocked(types.ClientMessage{
		Type:    types.MsgUndoLastAction,
		MatchID: s.cfg.MatchID,
		SetID:   set.ID,
	})
}

// Send forwards a lifecycle command (StartMatch, CreateSet, FinalizeSet,
// EndMatch) on the live session.
func (s *Supervisor) Send(msg types.ClientMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return ErrNotConnected
	}
	if msg.MatchID == "" {
		msg.MatchID = s.cfg.MatchID
	}
	return s.sendLocked(msg)
}

func (s *Supervisor) sendLocked(msg types.ClientMessage) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.conn.Send(ctx, msg)
}

// connectWithRetry drives the bounded, increasing-delay attempt sequence.
func (s *Supervisor) connectWithRetry(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.InitialDelay
	b.MaxInterval = s.cfg.MaxDelay
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()

	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		err := s.connectOnce(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		s.log.Warn("connect attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", s.cfg.MaxAttempts),
			zap.Error(err))

		if attempt == s.cfg.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.NextBackOff()):
		}
	}
	return fmt.Errorf("after %d attempts: %v: %w", s.cfg.MaxAttempts, lastErr, ErrReconnectionExhausted)
}

// connectOnce dials, joins the room, and resynchronizes from the read API.
// The event channel is a notification mechanism; after any gap the REST read
// is the source of truth.
func (s *Supervisor) connectOnce(ctx context.Context) error {
	conn, err := s.dialer.Dial(ctx, s.cfg.ServerURL, s.cfg.Token)
	if err != nil {
		return err
	}

	if err := conn.Send(ctx, types.ClientMessage{Type: types.MsgJoinRoom, MatchID: s.cfg.MatchID}); err != nil {
		_ = conn.Close()
		return fmt.Errorf("join room: %w", err)
	}

	m, err := s.api.FetchMatch(ctx, s.cfg.MatchID)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("resync: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.proj.ResetFromSnapshot(m)
	s.mu.Unlock()
	return nil
}

// serve pumps events and heartbeats until the connection dies, ctx ends, or
// a force-reconnect is requested.
func (s *Supervisor) serve(ctx context.Context) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for {
			ev, err := conn.ReadEvent(gctx)
			if err != nil {
				return err
			}
			s.mu.Lock()
			applyErr := s.proj.ApplyEvent(ev)
			s.mu.Unlock()
			if applyErr != nil {
				s.log.Warn("event rejected by projection", zap.Error(applyErr))
				continue
			}
			s.emit(Update{Event: &ev})
		}
	})

	g.Go(func() error {
		ticker := time.NewTicker(s.cfg.HeartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
				if err := conn.Send(gctx, types.ClientMessage{Type: types.MsgPing}); err != nil {
					return fmt.Errorf("heartbeat: %w", err)
				}
			}
		}
	})

	// Expiry gets its own ticker so the confirmation bound holds as
	// configured instead of rounding up to the next heartbeat.
	g.Go(func() error {
		ticker := time.NewTicker(s.cfg.ConfirmTimeout)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
				s.expireStalePending(gctx)
			}
		}
	})

	g.Go(func() error {
		select {
		case <-gctx.Done():
			return gctx.Err()
		case <-s.force:
			return errForceReconnect
		}
	})

	return g.Wait()
}

// expireStalePending enforces the optimistic-confirmation bound: a guess no
// confirmation answered is discarded and the mirror is rebuilt from the read
// API, so the operator is never left staring at a stale prediction.
func (s *Supervisor) expireStalePending(ctx context.Context) {
	s.mu.Lock()
	expired := s.proj.ExpirePending(time.Now(), s.cfg.ConfirmTimeout)
	s.mu.Unlock()
	if !expired {
		return
	}

	s.log.Warn("optimistic action expired without confirmation, resyncing")
	m, err := s.api.FetchMatch(ctx, s.cfg.MatchID)
	if err != nil {
		s.log.Warn("resync after expiry failed", zap.Error(err))
		return
	}
	s.mu.Lock()
	s.proj.ResetFromSnapshot(m)
	s.mu.Unlock()
	s.emit(Update{Err: fmt.Errorf("optimistic action expired after %s", s.cfg.ConfirmTimeout)})
}

func (s *Supervisor) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	s.emit(Update{State: st})
}

// emit never blocks the supervisor; a consumer that stops draining loses
// updates, not the connection.
func (s *Supervisor) emit(u Update) {
	select {
	case s.updates <- u:
	default:
	}
}

// teardown leaves the room and closes the transport. Safe to call twice.
func (s *Supervisor) teardown() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()
	if conn == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = conn.Send(ctx, types.ClientMessage{Type: types.MsgLeaveRoom, MatchID: s.cfg.MatchID})
	_ = conn.Close()
}
