// Package session owns one transport connection and one room-channel
// membership for the lifetime of a client session. It translates
// transport lifecycle into explicit observer callbacks, validates
// every message at the schema boundary, and feeds the state reducer
// from a single serial delivery path.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wfunc/betduel/logger"
	"github.com/wfunc/betduel/monitor"
	"github.com/wfunc/betduel/network"
	"github.com/wfunc/betduel/schema"
	"github.com/wfunc/betduel/state"
	"github.com/wfunc/betduel/store"
)

type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnected    Status = "connected"
	StatusReconnecting Status = "reconnecting"
)

var (
	ErrAlreadyStarted = errors.New("session already started")
	ErrTornDown       = errors.New("session torn down")
	ErrNotConnected   = errors.New("not connected")
	// ErrConnectionLost resolves pushes whose connection died before
	// the reply arrived.
	ErrConnectionLost = errors.New("connection lost")
)

// JoinError is a failed channel join: surfaced once, never retried on
// its own. Reason is "error" or "timeout".
type JoinError struct {
	Reason string
	Cause  error
}

func (e *JoinError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("join failed (%s): %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("join failed (%s)", e.Reason)
}

func (e *JoinError) Unwrap() error { return e.Cause }

// SendError is a failed outbound push. Reason is "error" or "timeout".
type SendError struct {
	Event  string
	Reason string
	Cause  error
}

func (e *SendError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("push %q failed (%s): %v", e.Event, e.Reason, e.Cause)
	}
	return fmt.Sprintf("push %q failed (%s)", e.Event, e.Reason)
}

func (e *SendError) Unwrap() error { return e.Cause }

// Observer is the presentation adapter's subscription point. Calls
// arrive from the session's delivery goroutine, one at a time.
type Observer interface {
	StateChanged(snap state.Snapshot)
	ConnectivityChanged(status Status)
	Notice(message string)
}

// NopObserver is a base for observers that only care about some
// callbacks.
type NopObserver struct{}

func (NopObserver) StateChanged(state.Snapshot) {}
func (NopObserver) ConnectivityChanged(Status)  {}
func (NopObserver) Notice(string)               {}

type Config struct {
	SocketURL   string
	JoinTimeout time.Duration
	PushTimeout time.Duration
}

// Session is the connection manager for one room. One instance owns
// one transport connection and one channel membership; instances are
// never shared across rooms.
type Session struct {
	cfg      Config
	roomID   string
	dialer   network.Dialer
	store    store.Store
	observer Observer
	mon      *monitor.Monitor

	mutex   sync.Mutex
	conn    network.Connection
	status  Status
	joined  bool
	started bool
	snap    state.Snapshot
	pending map[string]chan *schema.PushReply

	done      chan struct{}
	closeOnce sync.Once
}

func New(roomID string, cfg Config, dialer network.Dialer, st store.Store, obs Observer, mon *monitor.Monitor) *Session {
	if cfg.JoinTimeout <= 0 {
		cfg.JoinTimeout = 10 * time.Second
	}
	if cfg.PushTimeout <= 0 {
		cfg.PushTimeout = 5 * time.Second
	}
	if dialer == nil {
		dialer = network.WSDialer{}
	}
	if st == nil {
		st = store.NewMemoryStore()
	}
	if obs == nil {
		obs = NopObserver{}
	}
	return &Session{
		cfg:      cfg,
		roomID:   roomID,
		dialer:   dialer,
		store:    st,
		observer: obs,
		mon:      mon,
		status:   StatusDisconnected,
		snap:     state.NewSnapshot(),
		pending:  make(map[string]chan *schema.PushReply),
		done:     make(chan struct{}),
	}
}

func (s *Session) RoomID() string { return s.roomID }

func (s *Session) Status() Status {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.status
}

// Snapshot returns a copy of the current projection.
func (s *Session) Snapshot() state.Snapshot {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.snap
}

// Connect dials the transport and joins the room channel, presenting
// a persisted identity when one exists. A failed join leaves the
// session disconnected; the caller decides whether to try again.
// Connect must be called at most once per session instance.
func (s *Session) Connect(ctx context.Context) error {
	s.mutex.Lock()
	if s.started {
		s.mutex.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	s.mutex.Unlock()

	conn, err := s.dialer.Dial(ctx, s.cfg.SocketURL)
	if err != nil {
		return &JoinError{Reason: "error", Cause: err}
	}

	s.mutex.Lock()
	s.conn = conn
	s.mutex.Unlock()

	go s.readLoop(conn)

	if err := s.join(ctx, conn); err != nil {
		s.mutex.Lock()
		s.conn = nil
		s.mutex.Unlock()
		conn.Close()
		return err
	}
	return nil
}

// join pushes the join event on the room topic and waits for its
// reply. Called from Connect and from every reconnect attempt.
func (s *Session) join(ctx context.Context, conn network.Connection) error {
	req := schema.JoinRequest{RoomID: s.roomID}
	if userID, err := s.store.Load(s.roomID); err == nil {
		req.UserID = userID
	} else if !errors.Is(err, store.ErrNotFound) {
		logger.Log.Warnf("session store read failed for room %s: %v", s.roomID, err)
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return &JoinError{Reason: "error", Cause: err}
	}

	ref := uuid.New().String()
	ch := s.register(ref)
	frame := &network.Frame{
		Topic:   network.RoomTopic(s.roomID),
		Event:   network.EventJoin,
		Ref:     ref,
		Payload: payload,
	}
	if err := conn.WriteFrame(frame); err != nil {
		s.unregister(ref)
		return &JoinError{Reason: "error", Cause: err}
	}

	timer := time.NewTimer(s.cfg.JoinTimeout)
	defer timer.Stop()

	select {
	case reply, ok := <-ch:
		if !ok {
			return &JoinError{Reason: "error", Cause: ErrConnectionLost}
		}
		if reply.Status != network.StatusOK {
			return &JoinError{Reason: "error", Cause: fmt.Errorf("server replied %q", reply.Status)}
		}
		resp, err := schema.DecodeJoinResponse(reply.Response)
		if err != nil {
			return &JoinError{Reason: "error", Cause: err}
		}
		s.completeJoin(resp)
		return nil

	case <-timer.C:
		s.unregister(ref)
		return &JoinError{Reason: "timeout"}

	case <-ctx.Done():
		s.unregister(ref)
		return &JoinError{Reason: "error", Cause: ctx.Err()}

	case <-s.done:
		s.unregister(ref)
		return ErrTornDown
	}
}

func (s *Session) completeJoin(resp *schema.JoinResponse) {
	s.mutex.Lock()
	s.snap.UserID = resp.UserID
	s.snap.Room = resp.RoomInfo
	s.status = StatusConnected
	s.joined = true
	snap := s.snap
	s.mutex.Unlock()

	if err := s.store.Save(s.roomID, resp.UserID); err != nil {
		logger.Log.Warnf("failed to persist session identity for room %s: %v", s.roomID, err)
	}

	logger.Log.Infof("joined room %s as user %s", s.roomID, resp.UserID)
	s.mon.SetConnected(true)
	s.observer.ConnectivityChanged(StatusConnected)
	s.observer.StateChanged(snap)
}

// Send validates and pushes one outbound command, reporting the
// per-push outcome. Failures are reported, never retried here.
func (s *Session) Send(ctx context.Context, cmd schema.ClientCommand) error {
	event, payload, err := schema.EncodeCommand(cmd)
	if err != nil {
		return err
	}

	s.mutex.Lock()
	conn := s.conn
	s.mutex.Unlock()
	if conn == nil {
		return &SendError{Event: event, Reason: "error", Cause: ErrNotConnected}
	}

	ref := uuid.New().String()
	ch := s.register(ref)
	frame := &network.Frame{
		Topic:   network.RoomTopic(s.roomID),
		Event:   event,
		Ref:     ref,
		Payload: payload,
	}

	start := time.Now()
	if err := conn.WriteFrame(frame); err != nil {
		s.unregister(ref)
		s.mon.IncPushesFailed()
		return &SendError{Event: event, Reason: "error", Cause: err}
	}
	s.mon.IncPushesSent()

	timer := time.NewTimer(s.cfg.PushTimeout)
	defer timer.Stop()

	select {
	case reply, ok := <-ch:
		s.mon.ObservePushLatency(time.Since(start))
		if !ok {
			s.mon.IncPushesFailed()
			return &SendError{Event: event, Reason: "error", Cause: ErrConnectionLost}
		}
		if reply.Status != network.StatusOK {
			s.mon.IncPushesFailed()
			return &SendError{Event: event, Reason: "error", Cause: fmt.Errorf("server replied %q", reply.Status)}
		}
		return nil

	case <-timer.C:
		s.unregister(ref)
		s.mon.IncPushesFailed()
		return &SendError{Event: event, Reason: "timeout"}

	case <-ctx.Done():
		s.unregister(ref)
		return ctx.Err()

	case <-s.done:
		return ErrTornDown
	}
}

// MarkChallengeSent records the local transition after a confirmed
// send_challenge push; no inbound event produces this phase for the
// challenger.
func (s *Session) MarkChallengeSent() {
	s.applyLocal(func(snap state.Snapshot) state.Snapshot {
		snap.Phase = state.PhaseChallengeSent
		return snap
	})
}

// ApplyLocalReset clears one lifecycle immediately, ahead of the
// server's own game_reset event. Both run the same reducer logic, so
// the late event lands on an identical snapshot.
func (s *Session) ApplyLocalReset() {
	s.applyLocal(state.Reset)
}

func (s *Session) applyLocal(fn func(state.Snapshot) state.Snapshot) {
	select {
	case <-s.done:
		return
	default:
	}

	s.mutex.Lock()
	s.snap = fn(s.snap)
	snap := s.snap
	s.mutex.Unlock()
	s.observer.StateChanged(snap)
}

// Teardown leaves the channel and closes the transport. Idempotent;
// meant for every exit path. Once it begins, no late completion or
// stale frame mutates state.
func (s *Session) Teardown() {
	s.closeOnce.Do(func() {
		close(s.done)

		s.mutex.Lock()
		conn := s.conn
		s.conn = nil
		s.status = StatusDisconnected
		for ref, ch := range s.pending {
			delete(s.pending, ref)
			close(ch)
		}
		s.mutex.Unlock()

		if conn != nil {
			_ = conn.WriteFrame(&network.Frame{
				Topic: network.RoomTopic(s.roomID),
				Event: network.EventLeave,
			})
			conn.Close()
		}

		s.mon.SetConnected(false)
		s.observer.ConnectivityChanged(StatusDisconnected)
		logger.Log.Infof("session for room %s torn down", s.roomID)
	})
}

func (s *Session) readLoop(conn network.Connection) {
	for {
		frame, err := conn.ReadFrame()
		if err != nil {
			s.handleDisconnect(conn, err)
			return
		}
		s.handleFrame(frame)
	}
}

func (s *Session) handleFrame(frame *network.Frame) {
	select {
	case <-s.done:
		return
	default:
	}
	s.mon.IncMessagesReceived()

	if frame.Event == network.EventReply {
		s.resolveReply(frame)
		return
	}

	evt, err := schema.DecodeServerEvent(frame.Event, frame.Payload)
	if err != nil {
		// A single malformed message is dropped; the session and the
		// current state survive it.
		s.mon.IncMessagesRejected()
		logger.Log.Warnf("dropping inbound message: %v", err)
		return
	}

	s.mutex.Lock()
	select {
	case <-s.done:
		s.mutex.Unlock()
		return
	default:
	}
	if !state.Expected(s.snap.Phase, evt.Type()) {
		logger.Log.Warnf("event %s arrived in phase %s; applying anyway", evt.Type(), s.snap.Phase)
	}
	next, err := state.Apply(s.snap, evt)
	if err != nil {
		s.mutex.Unlock()
		logger.Log.Warnf("reducer rejected event: %v", err)
		return
	}
	s.snap = next
	s.mutex.Unlock()

	s.observer.StateChanged(next)
}

func (s *Session) resolveReply(frame *network.Frame) {
	reply, err := schema.DecodePushReply(frame.Payload)
	if err != nil {
		s.mon.IncMessagesRejected()
		logger.Log.Warnf("dropping reply: %v", err)
		return
	}

	s.mutex.Lock()
	ch, ok := s.pending[frame.Ref]
	if ok {
		delete(s.pending, frame.Ref)
	}
	s.mutex.Unlock()

	if !ok {
		logger.Log.Warnf("reply with unknown ref %q dropped", frame.Ref)
		return
	}
	ch <- reply
}

func (s *Session) handleDisconnect(conn network.Connection, cause error) {
	select {
	case <-s.done:
		return
	default:
	}

	s.mutex.Lock()
	if s.conn != conn {
		// A stale read loop lost a race with reconnect or teardown.
		s.mutex.Unlock()
		return
	}
	s.conn = nil
	wasJoined := s.joined && s.status == StatusConnected
	if wasJoined {
		s.status = StatusReconnecting
	}
	for ref, ch := range s.pending {
		delete(s.pending, ref)
		close(ch)
	}
	s.mutex.Unlock()

	if !wasJoined {
		return
	}

	logger.Log.Warnf("transport dropped for room %s: %v", s.roomID, cause)
	s.mon.SetConnected(false)
	s.observer.ConnectivityChanged(StatusReconnecting)
	s.observer.Notice("connection lost, reconnecting")

	go s.reconnectLoop()
}

// reconnectLoop retries dial+rejoin on the fixed delay ladder until a
// join succeeds or the session is torn down. The backoff is
// unconditional; it does not distinguish error causes.
func (s *Session) reconnectLoop() {
	for attempt := 1; ; attempt++ {
		timer := time.NewTimer(retryDelay(attempt))
		select {
		case <-s.done:
			timer.Stop()
			return
		case <-timer.C:
		}

		s.mon.IncReconnectAttempts()
		logger.Log.Infof("reconnect attempt %d for room %s", attempt, s.roomID)

		dialCtx, cancel := context.WithTimeout(context.Background(), s.cfg.JoinTimeout)
		conn, err := s.dialer.Dial(dialCtx, s.cfg.SocketURL)
		cancel()
		if err != nil {
			logger.Log.Warnf("reconnect dial failed: %v", err)
			continue
		}

		s.mutex.Lock()
		select {
		case <-s.done:
			s.mutex.Unlock()
			conn.Close()
			return
		default:
		}
		s.conn = conn
		s.mutex.Unlock()

		go s.readLoop(conn)

		if err := s.join(context.Background(), conn); err != nil {
			if errors.Is(err, ErrTornDown) {
				return
			}
			logger.Log.Warnf("rejoin failed: %v", err)
			s.mutex.Lock()
			if s.conn == conn {
				s.conn = nil
			}
			s.mutex.Unlock()
			conn.Close()
			continue
		}
		return
	}
}

func (s *Session) register(ref string) chan *schema.PushReply {
	ch := make(chan *schema.PushReply, 1)
	s.mutex.Lock()
	s.pending[ref] = ch
	s.mutex.Unlock()
	return ch
}

func (s *Session) unregister(ref string) {
	s.mutex.Lock()
	delete(s.pending, ref)
	s.mutex.Unlock()
}
