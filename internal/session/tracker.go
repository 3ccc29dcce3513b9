package session

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// ErrNotFound is returned for an unknown or already finished session.
var ErrNotFound = errors.New("drag session not found")

// ReaperConfig controls how abandoned drags are cleaned up.
type ReaperConfig struct {
	IdleTimeout   time.Duration // default 2m
	SweepInterval time.Duration // default 15s

	// OnCancel runs, without the tracker lock held, for every reaped
	// session.
	OnCancel func(s *Session)
}

func (c ReaperConfig) withDefaults() ReaperConfig {
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 2 * time.Minute
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = 15 * time.Second
	}
	return c
}

// Info is a snapshot of an open session.
type Info struct {
	Session  *Session  `json:"session"`
	Last     Proposal  `json:"last"`
	LastSeen time.Time `json:"last_seen"`
	IdleSecs float64   `json:"idle_secs"`
}

// Tracker holds the open drag sessions of all clients.
type Tracker struct {
	mu       sync.Mutex
	sessions map[string]*entry
	logger   *slog.Logger

	// stopReaper is set while a reaper runs.
	stopReaper func()
}

type entry struct {
	session  *Session
	last     Proposal
	lastSeen time.Time
}

// NewTracker creates an empty tracker. A nil logger uses slog.Default().
func NewTracker(logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		sessions: make(map[string]*entry),
		logger:   logger,
	}
}

// Open registers s. An existing session with the same id is replaced.
func (t *Tracker) Open(s *Session) Proposal {
	p := s.Propose(0, 0)
	t.mu.Lock()
	t.sessions[s.ID] = &entry{session: s, last: p, lastSeen: time.Now()}
	t.mu.Unlock()
	return p
}

// Get returns the open session with id.
func (t *Tracker) Get(id string) (*Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.sessions[id]
	if !ok {
		return nil, false
	}
	return e.session, true
}

// Update records a new displacement and returns the proposal for it.
func (t *Tracker) Update(id string, dx, dy float64) (Proposal, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.sessions[id]
	if !ok {
		return Proposal{}, ErrNotFound
	}
	e.last = e.session.Propose(dx, dy)
	e.lastSeen = time.Now()
	return e.last, nil
}

// End closes the session and returns the proposal to commit. The caller
// persists it only when Changed is true.
func (t *Tracker) End(id string, dx, dy float64) (*Session, Proposal, error) {
	t.mu.Lock()
	e, ok := t.sessions[id]
	if ok {
		delete(t.sessions, id)
	}
	t.mu.Unlock()
	if !ok {
		return nil, Proposal{}, ErrNotFound
	}
	return e.session, e.session.Propose(dx, dy), nil
}

// Cancel discards the session. It reports whether the session existed.
func (t *Tracker) Cancel(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.sessions[id]
	delete(t.sessions, id)
	return ok
}

// List returns the open sessions, most recently updated first.
func (t *Tracker) List() []Info {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	out := make([]Info, 0, len(t.sessions))
	for _, e := range t.sessions {
		out = append(out, Info{
			Session:  e.session,
			Last:     e.last,
			LastSeen: e.lastSeen,
			IdleSecs: now.Sub(e.lastSeen).Seconds(),
		})
	}
	slices.SortFunc(out, func(a, b Info) int { return b.LastSeen.Compare(a.LastSeen) })
	return out
}

// StartReaper cancels sessions idle for longer than cfg.IdleTimeout until
// Stop is called. A nil cfg uses the defaults. Starting again replaces the
// running reaper.
func (t *Tracker) StartReaper(cfg *ReaperConfig) {
	var c ReaperConfig
	if cfg != nil {
		c = *cfg
	}
	c = c.withDefaults()

	t.Stop()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		tick := time.NewTicker(c.SweepInterval)
		defer tick.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-tick.C:
				t.sweep(c, now)
			}
		}
	}()

	t.mu.Lock()
	t.stopReaper = func() { cancel(); <-done }
	t.mu.Unlock()
	t.logger.Debug("drag reaper running", "idle_timeout", c.IdleTimeout, "every", c.SweepInterval)
}

// Stop halts the reaper and waits for it to exit. It is safe to call
// when no reaper runs.
func (t *Tracker) Stop() {
	t.mu.Lock()
	stop := t.stopReaper
	t.stopReaper = nil
	t.mu.Unlock()
	if stop != nil {
		stop()
	}
}

// sweep removes sessions last seen more than cfg.IdleTimeout before now.
func (t *Tracker) sweep(cfg ReaperConfig, now time.Time) {
	t.mu.Lock()
	var idle []*Session
	for id, e := range t.sessions {
		if now.Sub(e.lastSeen) > cfg.IdleTimeout {
			idle = append(idle, e.session)
			delete(t.sessions, id)
		}
	}
	t.mu.Unlock()

	for _, s := range idle {
		t.logger.Info("idle drag cancelled", "session_id", s.ID, "task_id", s.TaskID, "kind", s.Kind)
		if cfg.OnCancel != nil {
			cfg.OnCancel(s)
		}
	}
}
