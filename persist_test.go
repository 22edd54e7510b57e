package menu

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingStore rejects every write.
type failingStore struct{ *MemoryStore }

func (failingStore) Save(context.Context, string, string, *PersistedState) error {
	return errors.New("disk on fire")
}

var _ StateStore = failingStore{}

// TestPersisterRoundTrip verifies a save-flush-load cycle restores the
// snapshot with the schema stamp applied.
func TestPersisterRoundTrip(t *testing.T) {
	p := newPersister(NewMemoryStore())

	state := NewPersistedState()
	state.StateData["cart"] = []any{"sword"}
	state.TabStates["weapons"] = 3

	done := p.Save("x1", "shop", state)
	p.flush(true)
	require.NoError(t, <-done)

	res := <-p.Load("x1", "shop")
	require.NoError(t, res.Err)
	require.NotNil(t, res.State)
	assert.Equal(t, []any{"sword"}, res.State.StateData["cart"])
	assert.Equal(t, 3, res.State.TabStates["weapons"])
	assert.Equal(t, StateSchemaVersion, res.State.SchemaVersion)
	assert.False(t, res.State.UpdatedAt.IsZero())
}

// TestPersisterLoadMissing verifies a missing record yields a nil state and
// no error.
func TestPersisterLoadMissing(t *testing.T) {
	p := newPersister(NewMemoryStore())

	res := <-p.Load("nobody", "shop")
	require.NoError(t, res.Err)
	assert.Nil(t, res.State)
}

// TestPersisterCoalescesSaves verifies rapid saves for one (viewer, menu)
// collapse into a single write of the newest snapshot.
func TestPersisterCoalescesSaves(t *testing.T) {
	store := NewMemoryStore()
	p := newPersister(store)

	var waiters []<-chan error
	for i := 0; i < 10; i++ {
		s := NewPersistedState()
		s.StateData["n"] = i
		waiters = append(waiters, p.Save("x1", "shop", s))
	}
	p.flush(true)

	for _, w := range waiters {
		assert.NoError(t, <-w)
	}

	res := <-p.Load("x1", "shop")
	require.NoError(t, res.Err)
	assert.Equal(t, 9, res.State.StateData["n"], "the newest snapshot wins")
}

// TestPersisterSaveFailure verifies a store failure reaches every waiter and
// leaves the persister usable.
func TestPersisterSaveFailure(t *testing.T) {
	p := newPersister(failingStore{NewMemoryStore()})

	a := p.Save("x1", "shop", NewPersistedState())
	b := p.Save("x1", "shop", NewPersistedState())
	p.flush(true)

	assert.Error(t, <-a)
	assert.Error(t, <-b)
}

// TestMigrateState verifies nil maps and stale versions are upgraded on
// load.
func TestMigrateState(t *testing.T) {
	got := migrateState(&PersistedState{SchemaVersion: 0, UpdatedAt: time.Now()})
	assert.NotNil(t, got.StateData)
	assert.NotNil(t, got.TabStates)
	assert.NotNil(t, got.CustomData)
	assert.Equal(t, StateSchemaVersion, got.SchemaVersion)

	assert.NotNil(t, migrateState(nil))
}

// TestMemoryStoreIsolation verifies records are keyed by (viewer, menu).
func TestMemoryStoreIsolation(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	s := NewPersistedState()
	s.StateData["k"] = "v"
	require.NoError(t, store.Save(ctx, "x1", "shop", s))

	got, err := store.Load(ctx, "x1", "bank")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = store.Load(ctx, "x2", "shop")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = store.Load(ctx, "x1", "shop")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "v", got.StateData["k"])
}
