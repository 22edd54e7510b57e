package menu

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// SharedSession is one logical menu instance shared by several viewers: one
// View per member, all fed from one immutable base context. Membership is a
// copy-on-write set replaced wholesale under a read-write lock; cell
// broadcasts are debounced and coalesced before fanning out to members.
type SharedSession struct {
	id     uuid.UUID
	menuID string
	base   *ViewContext

	// members is the copy-on-write membership map, viewer id -> View.
	// Writes replace the map under mu; reads load the pointer lock-free.
	members atomic.Pointer[map[string]*View]
	mu      sync.Mutex

	// pending accumulates per-cell updates until the next debounce flush.
	// A nil value clears the cell. Later updates to the same cell win.
	pending   map[int]*CompiledItem
	pendingMu sync.Mutex

	registry *sharedRegistry
	closed   atomic.Bool
}

// ID returns the shared session id.
func (s *SharedSession) ID() uuid.UUID { return s.id }

// MenuID returns the menu the session renders.
func (s *SharedSession) MenuID() string { return s.menuID }

// Members returns the current member views. The returned map is the live
// copy-on-write snapshot and must not be mutated.
func (s *SharedSession) Members() map[string]*View {
	if m := s.members.Load(); m != nil {
		return *m
	}
	return nil
}

// MemberCount returns the number of member viewers.
func (s *SharedSession) MemberCount() int {
	return len(s.Members())
}

// Broadcast queues a cell update for every member. Nothing is written
// immediately: updates accumulate and flush in a fixed-interval batch, with
// multiple updates to the same cell coalesced into the latest value.
func (s *SharedSession) Broadcast(slot int, it *CompiledItem) {
	if s.closed.Load() {
		return
	}
	s.pendingMu.Lock()
	s.pending[slot] = it
	s.pendingMu.Unlock()
}

// flush applies the pending batch to every member view.
func (s *SharedSession) flush() {
	s.pendingMu.Lock()
	if len(s.pending) == 0 {
		s.pendingMu.Unlock()
		return
	}
	batch := s.pending
	s.pending = make(map[int]*CompiledItem)
	s.pendingMu.Unlock()

	for _, view := range s.Members() {
		for slot, it := range batch {
			view.writeCell(slot, it)
		}
	}
}

// addMember inserts a member view by copy-on-write replacement.
func (s *SharedSession) addMember(view *View) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.members.Load()
	next := make(map[string]*View, 1)
	if old != nil {
		for id, v := range *old {
			next[id] = v
		}
	}
	next[view.viewer.ID()] = view
	s.members.Store(&next)
}

// dropMember removes a member from the set without closing its view (the
// view is already closing). Removing the last member closes the session.
func (s *SharedSession) dropMember(viewerID string) {
	s.mu.Lock()
	old := s.members.Load()
	if old == nil {
		s.mu.Unlock()
		return
	}
	if _, ok := (*old)[viewerID]; !ok {
		s.mu.Unlock()
		return
	}
	next := make(map[string]*View, len(*old)-1)
	for id, v := range *old {
		if id != viewerID {
			next[id] = v
		}
	}
	s.members.Store(&next)
	empty := len(next) == 0
	s.mu.Unlock()

	if empty {
		s.Close()
	}
}

// RemoveMember closes a member's view and drops it from the session.
func (s *SharedSession) RemoveMember(viewerID string) {
	m := s.Members()
	view, ok := m[viewerID]
	if !ok {
		return
	}
	view.close()
}

// Close flushes any pending batch and tears every member view down.
func (s *SharedSession) Close() {
	if s.closed.Swap(true) {
		return // Already closed
	}

	s.flush()

	for _, view := range s.Members() {
		view.shared = nil // Avoid re-entering dropMember.
		view.close()
	}
	s.members.Store(nil)

	if s.registry != nil {
		s.registry.remove(s.id)
	}
}

// sharedRegistry tracks every live shared session. It is mutated from
// multiple call sites and internally synchronized.
type sharedRegistry struct {
	sessions sync.Map // uuid.UUID -> *SharedSession
}

func newSharedRegistry() *sharedRegistry {
	return &sharedRegistry{}
}

// create registers a new shared session.
func (r *sharedRegistry) create(menuID string, base *ViewContext) *SharedSession {
	s := &SharedSession{
		id:       uuid.New(),
		menuID:   menuID,
		base:     base,
		pending:  make(map[int]*CompiledItem),
		registry: r,
	}
	r.sessions.Store(s.id, s)
	return s
}

// get returns a session by id.
func (r *sharedRegistry) get(id uuid.UUID) *SharedSession {
	if val, ok := r.sessions.Load(id); ok {
		return val.(*SharedSession)
	}
	return nil
}

func (r *sharedRegistry) remove(id uuid.UUID) {
	r.sessions.Delete(id)
}

// flushAll runs the debounced flush for every session. Called on the engine
// tick.
func (r *sharedRegistry) flushAll() {
	r.sessions.Range(func(_, v any) bool {
		v.(*SharedSession).flush()
		return true
	})
}

// closeAll force-flushes and closes every session.
func (r *sharedRegistry) closeAll() {
	r.sessions.Range(func(_, v any) bool {
		v.(*SharedSession).Close()
		return true
	})
}
