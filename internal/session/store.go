package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"pocket-calculator/internal/engine"
)

var (
	// ErrNotFound is returned for unknown or expired session ids.
	ErrNotFound = errors.New("session not found")

	// ErrInputLimit is returned when a push would grow a log past the
	// configured maximum.
	ErrInputLimit = errors.New("session input limit reached")
)

// session pairs an engine with the lock that serializes its push/read units.
type session struct {
	mu       sync.Mutex
	engine   *engine.Engine
	lastUsed time.Time
}

// Store keeps one calculator engine per session id.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*session

	ttl        time.Duration
	maxInputs  int
	now        func() time.Time
	engineOpts []engine.Option
	logger     *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithTTL sets how long an idle session survives. Zero disables expiry.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// WithMaxInputs caps the length of each session's input log. Zero means no cap.
func WithMaxInputs(n int) Option {
	return func(s *Store) { s.maxInputs = n }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithEngineOptions is applied to every engine the store creates.
func WithEngineOptions(opts ...engine.Option) Option {
	return func(s *Store) { s.engineOpts = opts }
}

// WithLogger sets the logger used for expiry events.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// NewStore returns an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		sessions: make(map[string]*session),
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create starts a session with an empty log and returns its id.
func (s *Store) Create() string {
	id := uuid.NewString()

	s.mu.Lock()
	s.sessions[id] = &session{
		engine:   engine.New(s.engineOpts...),
		lastUsed: s.now(),
	}
	s.mu.Unlock()

	return id
}

func (s *Store) get(id string) (*session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

// Do runs fn with exclusive access to the session's engine.
func (s *Store) Do(id string, fn func(*engine.Engine) error) error {
	sess, err := s.get(id)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.lastUsed = s.now()
	return fn(sess.engine)
}

// Append is Do for callers that add one input to the log. It fails with
// ErrInputLimit instead of calling fn when the log is full.
func (s *Store) Append(id string, fn func(*engine.Engine) error) error {
	return s.Do(id, func(e *engine.Engine) error {
		if s.maxInputs > 0 && e.Len() >= s.maxInputs {
			return ErrInputLimit
		}
		return fn(e)
	})
}

// Delete removes a session.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, id)
	return nil
}

// Len is the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep drops sessions idle for longer than the TTL and returns how many
// were removed. Sessions busy in Do are skipped.
func (s *Store) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.ttl)

	s.mu.RLock()
	candidates := make(map[string]*session, len(s.sessions))
	for id, sess := range s.sessions {
		candidates[id] = sess
	}
	s.mu.RUnlock()

	expired := make(map[string]*session)
	for id, sess := range candidates {
		if !sess.mu.TryLock() {
			continue
		}
		if sess.lastUsed.Before(cutoff) {
			expired[id] = sess
		}
		sess.mu.Unlock()
	}
	if len(expired) == 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range expired {
		// Deleted concurrently.
		if s.sessions[id] != sess {
			continue
		}
		delete(s.sessions, id)
		removed++
	}
	return removed
}

// Run sweeps expired sessions every interval until ctx is cancelled.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Info("expired calculator sessions",
					zap.Int("removed", n),
					zap.Int("active", s.Len()),
				)
			}
		}
	}
}

// Collector exposes the number of live sessions as a Prometheus gauge.
func (s *Store) Collector() prometheus.Collector {
	return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "calculator_sessions_active",
		Help: "Number of live calculator sessions.",
	}, func() float64 {
		return float64(s.Len())
	})
}
