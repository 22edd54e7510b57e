package menu

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// StateSchemaVersion is stamped on every persisted snapshot. Loading an older
// version runs it through migrateState before use.
const StateSchemaVersion = 1

// persistTimeout bounds one store round-trip.
const persistTimeout = 5 * time.Second

// PersistedState is the durable snapshot of a menu's runtime state for one
// viewer.
type PersistedState struct {
	// StateData is the free-form state map owned by the view session.
	StateData map[string]any `json:"stateData"`

	// TabStates remembers the page per tab id.
	TabStates map[string]int `json:"tabStates"`

	// CustomData is free-form storage for external callers.
	CustomData map[string]any `json:"customData"`

	// UpdatedAt is stamped on every save.
	UpdatedAt time.Time `json:"updatedAt"`

	// SchemaVersion versions the snapshot layout.
	SchemaVersion int `json:"schemaVersion"`
}

// NewPersistedState returns the initial/default state form.
func NewPersistedState() *PersistedState {
	return &PersistedState{
		StateData:     make(map[string]any),
		TabStates:     make(map[string]int),
		CustomData:    make(map[string]any),
		SchemaVersion: StateSchemaVersion,
	}
}

// migrateState upgrades a loaded snapshot to the current schema. Snapshots
// already at the current version pass through untouched.
func migrateState(s *PersistedState) *PersistedState {
	if s == nil {
		return NewPersistedState()
	}
	if s.StateData == nil {
		s.StateData = make(map[string]any)
	}
	if s.TabStates == nil {
		s.TabStates = make(map[string]int)
	}
	if s.CustomData == nil {
		s.CustomData = make(map[string]any)
	}
	// Version 0 predates the schema stamp; its field layout matches v1.
	s.SchemaVersion = StateSchemaVersion
	return s
}

// StateResult is the outcome of an asynchronous load.
type StateResult struct {
	State *PersistedState
	Err   error
}

// stateKey identifies one (viewer, menu) snapshot.
type stateKey struct {
	viewer string
	menu   string
}

// pendingSave is one batched save with its waiters.
type pendingSave struct {
	state   *PersistedState
	waiters []chan error
}

// persister batches asynchronous saves to amortize store round-trips and
// serves asynchronous loads. A store failure is surfaced on the result
// channel; the menu stays usable with in-memory state only.
type persister struct {
	store StateStore

	pending map[stateKey]*pendingSave
	mu      sync.Mutex
}

func newPersister(store StateStore) *persister {
	if store == nil {
		store = NewMemoryStore()
	}
	return &persister{
		store:   store,
		pending: make(map[stateKey]*pendingSave),
	}
}

// Save queues a snapshot for the next batch flush. The returned channel
// receives exactly one value once the write lands (or fails).
func (p *persister) Save(viewerID, menuID string, state *PersistedState) <-chan error {
	done := make(chan error, 1)

	state.UpdatedAt = time.Now()
	state.SchemaVersion = StateSchemaVersion

	key := stateKey{viewer: viewerID, menu: menuID}
	p.mu.Lock()
	if ps, ok := p.pending[key]; ok {
		// Coalesce: the newest snapshot wins, all waiters share its fate.
		ps.state = state
		ps.waiters = append(ps.waiters, done)
	} else {
		p.pending[key] = &pendingSave{state: state, waiters: []chan error{done}}
	}
	p.mu.Unlock()

	return done
}

// Load fetches a snapshot asynchronously. A missing record yields a nil
// State; callers default it as needed.
func (p *persister) Load(viewerID, menuID string) <-chan StateResult {
	out := make(chan StateResult, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()

		state, err := p.store.Load(ctx, viewerID, menuID)
		if err != nil {
			out <- StateResult{Err: err}
			return
		}
		if state == nil {
			out <- StateResult{}
			return
		}
		out <- StateResult{State: migrateState(state)}
	}()
	return out
}

// flush writes all queued saves. Called from the engine tick and on session
// close; close paths should pass wait=true so teardown does not race the
// write.
func (p *persister) flush(wait bool) {
	p.mu.Lock()
	if len(p.pending) == 0 {
		p.mu.Unlock()
		return
	}
	batch := p.pending
	p.pending = make(map[stateKey]*pendingSave)
	p.mu.Unlock()

	write := func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()

		for key, ps := range batch {
			err := p.store.Save(ctx, key.viewer, key.menu, ps.state)
			if err != nil {
				slog.Warn("menu: state save failed",
					"viewer", key.viewer,
					"menu", key.menu,
					"error", err)
			}
			for _, w := range ps.waiters {
				w <- err
			}
		}
	}

	if wait {
		write()
	} else {
		go write()
	}
}
