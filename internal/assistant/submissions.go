package assistant

import (
	"context"
	"errors"
	"sync"
)

// ErrInFlight is returned by Submissions.Begin while a request for the same
// key is still running.
var ErrInFlight = errors.New("assistant: request already in flight")

// Submissions allows at most one running parse per key (usually a member
// ID) and lets the caller abort it, e.g. when the assistant panel closes.
type Submissions struct {
	mu      sync.Mutex
	running map[string]context.CancelFunc
}

func NewSubmissions() *Submissions {
	return &Submissions{running: make(map[string]context.CancelFunc)}
}

// Begin marks key as busy and returns a context that Cancel(key) aborts.
// The returned done func must be called when the request finishes. It
// releases key and reports whether the request was still live, i.e. not
// canceled, at that moment. Later calls return the same answer.
func (s *Submissions) Begin(ctx context.Context, key string) (context.Context, func() bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.running[key]; busy {
		return nil, nil, ErrInFlight
	}
	ctx, cancel := context.WithCancel(ctx)
	s.running[key] = cancel

	var once sync.Once
	var live bool
	done := func() bool {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.running, key)
			live = ctx.Err() == nil
			cancel()
		})
		return live
	}
	return ctx, done, nil
}

// Cancel aborts the running request for key. It reports whether one was
// running. A request whose done func already ran is not running.
func (s *Submissions) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cancel, ok := s.running[key]
	if ok {
		cancel()
	}
	return ok
}

// InFlight reports whether key has a running request.
func (s *Submissions) InFlight(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.running[key]
	return ok
}
