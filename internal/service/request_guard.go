package service

import (
	"context"
	"errors"
	"sync"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// ErrSuperseded is returned when a newer request for the same key started
// before this one could commit its result
var ErrSuperseded = errors.New("request superseded by a newer request")

// Ticket identifies one in-flight request
type Ticket struct {
	ID     string
	key    string
	cancel context.CancelFunc
}

// RequestGuard lets only the most recently started request per key commit.
// Starting a request cancels the context of the one it replaces.
type RequestGuard struct {
	mu       sync.Mutex
	inflight map[string]*Ticket
	logger   *zap.Logger
}

// NewRequestGuard creates an empty guard
func NewRequestGuard(logger *zap.Logger) *RequestGuard {
	return &RequestGuard{
		inflight: make(map[string]*Ticket),
		logger:   logger,
	}
}

// Begin registers a new request under key. The returned context is
// cancelled when a newer request begins or when End is called.
func (g *RequestGuard) Begin(ctx context.Context, key string) (context.Context, *Ticket) {
	ctx, cancel := context.WithCancel(ctx)
	t := &Ticket{ID: ulid.Make().String(), key: key, cancel: cancel}

	g.mu.Lock()
	prev := g.inflight[key]
	g.inflight[key] = t
	g.mu.Unlock()

	if prev != nil {
		prev.cancel()
		g.logger.Debug("request superseded",
			zap.String("key", key),
			zap.String("previous", prev.ID),
			zap.String("current", t.ID))
	}
	return ctx, t
}

// Commit runs apply if t is still the latest request for its key. The check
// and apply are atomic with respect to Begin.
func (g *RequestGuard) Commit(t *Ticket, apply func()) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inflight[t.key] != t {
		return ErrSuperseded
	}
	apply()
	return nil
}

// End releases the request's context and forgets it if still current
func (g *RequestGuard) End(t *Ticket) {
	t.cancel()
	g.mu.Lock()
	if g.inflight[t.key] == t {
		delete(g.inflight, t.key)
	}
	g.mu.Unlock()
}

// InFlight returns the number of keys with a running request
func (g *RequestGuard) InFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.inflight)
}
