package gpa

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/melmanss/gpa/internal/logger"
)

// =====================================
// Session (Unit of Work)
// =====================================

// ErrSessionClosed is returned by every operation issued through a closed session.
var ErrSessionClosed = NewError(ErrorTypeConnection, "session is closed")

// Session owns one store connection. Each write issued through it runs in its
// own transaction: Idle -> TransactionActive -> Committed | RolledBack -> Idle.
//
// A Session is not meant to be shared between goroutines. Calls are serialized.
type Session struct {
	mu      sync.Mutex
	store   Store
	log     *logger.Logger
	closed  bool
	state   atomic.Int32
	outcome atomic.Int32
}

// NewSession wraps an open store connection. A nil logger discards output.
func NewSession(store Store, log *logger.Logger) *Session {
	if log == nil {
		log = logger.Nop()
	}
	return &Session{store: store, log: log}
}

// State returns the current transaction state.
func (s *Session) State() TxState {
	return TxState(s.state.Load())
}

// LastOutcome returns TxCommitted or TxRolledBack for the most recent write,
// or TxIdle if no write has completed yet.
func (s *Session) LastOutcome() TxState {
	return TxState(s.outcome.Load())
}

// Logger returns the session's structured logger.
func (s *Session) Logger() *logger.Logger {
	return s.log
}

// Write runs fn in a new transaction. Store faults come back as
// ErrorTypePersistence after the rollback; validation and invalid-argument
// errors are returned unchanged.
func (s *Session) Write(ctx context.Context, op string, fn TransactionFunc) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}

	start := time.Now()
	s.state.Store(int32(TxActive))
	defer func() {
		if r := recover(); r != nil {
			s.outcome.Store(int32(TxRolledBack))
			s.state.Store(int32(TxIdle))
			s.log.Error("transaction panicked", "op", op, "panic", r)
			panic(r)
		}
	}()

	err = s.store.Transaction(ctx, fn)
	if err != nil {
		s.outcome.Store(int32(TxRolledBack))
		s.state.Store(int32(TxIdle))
		s.log.Warn("transaction rolled back", "op", op, "error", err, "elapsed", time.Since(start))
		return persistenceFailure(op, err)
	}

	s.outcome.Store(int32(TxCommitted))
	s.state.Store(int32(TxIdle))
	s.log.Debug("transaction committed", "op", op, "elapsed", time.Since(start))
	return nil
}

// Read runs fn on the session's connection outside a transaction.
func (s *Session) Read(ctx context.Context, fn func(st Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	return fn(s.store)
}

// Close releases the connection. It is safe to call on a nil or closed session.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.store == nil {
		return nil
	}
	if err := s.store.Close(); err != nil {
		return NewErrorWithCause(ErrorTypeConnection, "failed to release session connection", err)
	}
	s.log.Debug("session closed")
	return nil
}
