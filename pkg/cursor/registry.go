package cursor

import (
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/stashdb/stashdb/pkg/auth"
	"github.com/stashdb/stashdb/pkg/domain"
	"github.com/stashdb/stashdb/pkg/exec"
)

// Params carries everything a cursor needs to be continued later. Ownership
// of Source transfers to the registry if and only if Register succeeds.
type Params struct {
	Source          exec.DocumentSource
	NS              string
	Principals      auth.PrincipalSet
	ReadConcern     domain.ReadConcern
	OriginalRequest domain.Document
}

// clientCursor is a registered, resumable result source
type clientCursor struct {
	id              int64
	source          exec.DocumentSource
	ns              string
	principals      auth.PrincipalSet
	readConcern     domain.ReadConcern
	originalRequest domain.Document
	createdAt       time.Time
	lastActive      time.Time
	pinned          bool
}

// Registry is the process-wide owner of registered cursors. Cursors enter on
// Register and leave on exhaustion, explicit kill, or idle timeout.
type Registry struct {
	mu      sync.Mutex
	cursors map[int64]*clientCursor

	maxOpen      int
	idleTimeout  time.Duration
	reapInterval time.Duration
	now          func() time.Time

	// Background reaper
	backgroundWg sync.WaitGroup
	stopChan     chan struct{}
}

// NewRegistry creates a cursor registry
func NewRegistry(options ...Option) *Registry {
	r := &Registry{
		cursors:      make(map[int64]*clientCursor),
		maxOpen:      10000,
		idleTimeout:  10 * time.Minute,
		reapInterval: time.Minute,
		now:          time.Now,
		stopChan:     make(chan struct{}),
	}
	for _, option := range options {
		option(r)
	}
	return r
}

// Register stores a detached source under a fresh cursor id. Callers must
// not touch the source after a successful Register; on failure the registry
// retains nothing and the caller keeps ownership.
func (r *Registry) Register(p Params) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.maxOpen > 0 && len(r.cursors) >= r.maxOpen {
		return 0, fmt.Errorf("cursor registry is at capacity (%d): %w", r.maxOpen, domain.ErrTooManyCursors)
	}

	id := r.nextIDLocked()
	now := r.now()
	r.cursors[id] = &clientCursor{
		id:              id,
		source:          p.Source,
		ns:              p.NS,
		principals:      p.Principals,
		readConcern:     p.ReadConcern,
		originalRequest: p.OriginalRequest,
		createdAt:       now,
		lastActive:      now,
	}
	return id, nil
}

// nextIDLocked picks a random nonzero id not already in use. Caller must
// hold r.mu.
func (r *Registry) nextIDLocked() int64 {
	for {
		id := rand.Int63()
		if id == 0 {
			continue
		}
		if _, exists := r.cursors[id]; exists {
			continue
		}
		return id
	}
}

// Pin checks out a cursor for exclusive use by one continuation request. The
// caller's principal set must match the set captured when the cursor was
// created.
func (r *Registry) Pin(id int64, principals auth.PrincipalSet) (*PinnedCursor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cc, exists := r.cursors[id]
	if !exists {
		return nil, fmt.Errorf("cursor id %d: %w", id, domain.ErrCursorNotFound)
	}
	if cc.pinned {
		return nil, fmt.Errorf("cursor id %d: %w", id, domain.ErrCursorInUse)
	}
	if !cc.principals.Equal(principals) {
		return nil, fmt.Errorf("cursor id %d was created by different principals: %w", id, domain.ErrNotAuthorized)
	}
	cc.pinned = true
	cc.lastActive = r.now()
	return &PinnedCursor{registry: r, cursor: cc}, nil
}

// Kill removes an unpinned cursor and closes its source. It reports whether
// the cursor existed and was killed.
func (r *Registry) Kill(id int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	cc, exists := r.cursors[id]
	if !exists {
		return false
	}
	if cc.pinned {
		log.Printf("WARN: Cursor %d is pinned, not killing", id)
		return false
	}
	r.destroyLocked(cc)
	return true
}

// Len returns the number of registered cursors.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cursors)
}

// destroyLocked removes a cursor and closes its source. Caller must hold
// r.mu.
func (r *Registry) destroyLocked(cc *clientCursor) {
	delete(r.cursors, cc.id)
	cc.source.Close()
}

// StartBackgroundReaper starts the idle-cursor reaper. Idle-timeout policy
// belongs to the registry, not to the operations that create cursors.
func (r *Registry) StartBackgroundReaper() {
	r.backgroundWg.Add(1)
	go func() {
		defer r.backgroundWg.Done()
		ticker := time.NewTicker(r.reapInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := r.reapIdle(); n > 0 {
					log.Printf("INFO: Reaped %d idle cursors", n)
				}
			case <-r.stopChan:
				return
			}
		}
	}()
}

// StopBackgroundReaper stops the reaper and waits for it to exit.
func (r *Registry) StopBackgroundReaper() {
	close(r.stopChan)
	r.backgroundWg.Wait()
}

// reapIdle destroys cursors idle past the timeout and returns how many.
func (r *Registry) reapIdle() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.idleTimeout)
	reaped := 0
	for _, cc := range r.cursors {
		if cc.pinned || cc.lastActive.After(cutoff) {
			continue
		}
		log.Printf("INFO: Cursor %d on %s idle since %s, reaping", cc.id, cc.ns, cc.lastActive.Format(time.RFC3339))
		r.destroyLocked(cc)
		reaped++
	}
	return reaped
}

// PinnedCursor is a cursor checked out by a continuation request. Exactly
// one of Release or Destroy must be called when the request is done with it.
type PinnedCursor struct {
	registry *Registry
	cursor   *clientCursor
}

// ID returns the cursor id.
func (p *PinnedCursor) ID() int64 {
	return p.cursor.id
}

// NS returns the namespace the cursor was created on.
func (p *PinnedCursor) NS() string {
	return p.cursor.ns
}

// ReadConcern returns the read concern captured at creation time.
func (p *PinnedCursor) ReadConcern() domain.ReadConcern {
	return p.cursor.readConcern
}

// OriginalRequest returns the request document that created the cursor.
func (p *PinnedCursor) OriginalRequest() domain.Document {
	return p.cursor.originalRequest
}

// Source returns the cursor's result source. Valid only while pinned.
func (p *PinnedCursor) Source() exec.DocumentSource {
	return p.cursor.source
}

// Release unpins the cursor, leaving it registered for later continuations.
func (p *PinnedCursor) Release() {
	r := p.registry
	r.mu.Lock()
	defer r.mu.Unlock()
	p.cursor.pinned = false
	p.cursor.lastActive = r.now()
}

// Destroy unpins the cursor and removes it from the registry, closing its
// source. Used when a continuation observes exhaustion.
func (p *PinnedCursor) Destroy() {
	r := p.registry
	r.mu.Lock()
	defer r.mu.Unlock()
	p.cursor.pinned = false
	r.destroyLocked(p.cursor)
}
