package server

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/shawkym/chatpane/pkg/log"
	"github.com/shawkym/chatpane/pkg/metrics"
	"github.com/shawkym/chatpane/pkg/widget"
)

// Session is one page load: a controller and the queue of rendered events
// waiting for the page's websocket.
type Session struct {
	ID         string
	Controller *widget.Controller

	events    chan wireEvent
	created   time.Time
	connected atomic.Bool
	closed    atomic.Bool
	metrics   *metrics.Metrics
}

// Events is drained by the websocket pump.
func (s *Session) Events() <-chan wireEvent {
	return s.events
}

// publish renders ev and queues it without blocking. A full queue drops the
// event: the page has stopped reading.
func (s *Session) publish(ev widget.Event) {
	if s.closed.Load() {
		return
	}
	wire, err := encodeEvent(ev)
	if err != nil {
		log.WithError(err).WithField("session_id", s.ID).Error("failed to render event")
		return
	}

	select {
	case s.events <- wire:
	default:
		s.metrics.RecordDroppedEvent()
		log.WithFields(map[string]interface{}{
			"session_id": s.ID,
			"event":      wire.Type,
		}).Warn("event queue full, dropping event")
	}
}

// Store holds live sessions keyed by id.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	bridge    widget.Bridge
	sanitizer widget.Sanitizer
	metrics   *metrics.Metrics
	ttl       time.Duration
	buffer    int
}

// NewStore creates an empty store. Sessions share bridge and sanitizer.
func NewStore(bridge widget.Bridge, sanitizer widget.Sanitizer, m *metrics.Metrics, ttl time.Duration, buffer int) *Store {
	if buffer <= 0 {
		buffer = 64
	}
	return &Store{
		sessions:  make(map[string]*Session),
		bridge:    bridge,
		sanitizer: sanitizer,
		metrics:   m,
		ttl:       ttl,
		buffer:    buffer,
	}
}

// Create starts a new session with a fresh page.
func (st *Store) Create() *Session {
	id := uuid.New().String()
	sess := &Session{
		ID:      id,
		events:  make(chan wireEvent, st.buffer),
		created: time.Now(),
		metrics: st.metrics,
	}

	opts := widget.Options{SessionID: id, Sanitizer: st.sanitizer}
	if st.metrics != nil {
		opts.Recorder = st.metrics
	}
	sess.Controller = widget.NewController(st.bridge, opts)
	sess.Controller.Subscribe(sess.publish)

	st.mu.Lock()
	st.sessions[id] = sess
	st.mu.Unlock()

	st.metrics.SessionOpened()
	log.WithField("session_id", id).Debug("session created")
	return sess
}

// Get looks up a session by id.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	sess, ok := st.sessions[id]
	return sess, ok
}

// Remove drops a session. Replies still in flight for it are discarded.
func (st *Store) Remove(id string) {
	st.mu.Lock()
	sess, ok := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()

	if !ok {
		return
	}
	sess.closed.Store(true)
	st.metrics.SessionClosed()
	log.WithField("session_id", id).Debug("session removed")
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep removes sessions that were created before now minus the TTL and
// never opened their event stream. It returns how many were removed.
func (st *Store) Sweep(now time.Time) int {
	if st.ttl <= 0 {
		return 0
	}

	var stale []string
	st.mu.RLock()
	for id, sess := range st.sessions {
		if !sess.connected.Load() && now.Sub(sess.created) > st.ttl {
			stale = append(stale, id)
		}
	}
	st.mu.RUnlock()

	for _, id := range stale {
		st.Remove(id)
	}
	if len(stale) > 0 {
		log.WithField("count", len(stale)).Info("swept abandoned sessions")
	}
	return len(stale)
}

// RunSweeper sweeps every interval until ctx is done.
func (st *Store) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			st.Sweep(now)
		}
	}
}

// Wait blocks until every session's in-flight chat calls have finished.
func (st *Store) Wait() {
	st.mu.RLock()
	sessions := make([]*Session, 0, len(st.sessions))
	for _, sess := range st.sessions {
		sessions = append(sessions, sess)
	}
	st.mu.RUnlock()

	for _, sess := range sessions {
		sess.Controller.Wait()
	}
}
