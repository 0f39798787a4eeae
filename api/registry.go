package api

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/maastricht-university/datecoach-analytics/orchestrator"
)

// Registry owns the live sessions of one server process.
type Registry struct {
	ctx     context.Context
	options func() orchestrator.Options
	clock   func() time.Time

	mu       sync.RWMutex
	sessions map[string]*orchestrator.Session
}

// NewRegistry builds sessions from options(), which is called once per session so
// configuration reloads apply to sessions created afterwards.
func NewRegistry(ctx context.Context, options func() orchestrator.Options) *Registry {
	return &Registry{
		ctx:      ctx,
		options:  options,
		clock:    time.Now,
		sessions: map[string]*orchestrator.Session{},
	}
}

// Create starts a new session at the registry clock.
func (r *Registry) Create() (*orchestrator.Session, error) {
	o := r.options()
	o.ID = uuid.NewString()
	if o.Clock == nil {
		o.Clock = r.clock
	}
	s := orchestrator.NewSession(o)
	if err := s.Start(r.ctx, o.Clock()); err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.sessions[s.ID()] = s
	r.mu.Unlock()
	return s, nil
}

func (r *Registry) Get(id string) (*orchestrator.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// IDs lists known sessions in lexical order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// EndAll closes every running session; used on shutdown.
func (r *Registry) EndAll() int {
	n := 0
	for _, id := range r.IDs() {
		s, ok := r.Get(id)
		if !ok || s.Ended() {
			continue
		}
		if _, err := s.End(r.clock()); err == nil {
			n++
		}
	}
	return n
}
