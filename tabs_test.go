package menu

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func tabbedConfig() *MenuConfig {
	return &MenuConfig{
		ID:   "tabbed",
		Size: 27,
		Tabs: []*TabConfig{
			{ID: "weapons"},
			{ID: "armor", Default: true},
			{ID: "food"},
		},
	}
}

// TestTabStateDefault verifies the marked default tab is active initially,
// falling back to the first tab when none is marked.
func TestTabStateDefault(t *testing.T) {
	ts := newTabState(tabbedConfig())
	assert.Equal(t, "armor", ts.Active())

	cfg := tabbedConfig()
	for _, tab := range cfg.Tabs {
		tab.Default = false
	}
	assert.Equal(t, "weapons", newTabState(cfg).Active())

	assert.Equal(t, "", newTabState(&MenuConfig{ID: "plain", Size: 9}).Active())
}

// TestTabStateCircularNavigation verifies next/prev wrap around both ends.
func TestTabStateCircularNavigation(t *testing.T) {
	cfg := tabbedConfig()
	ts := newTabState(cfg)

	assert.True(t, ts.next(cfg))
	assert.Equal(t, "food", ts.Active())
	assert.True(t, ts.next(cfg))
	assert.Equal(t, "weapons", ts.Active(), "next past the last tab wraps to the first")

	assert.True(t, ts.prev(cfg))
	assert.Equal(t, "food", ts.Active(), "prev past the first tab wraps to the last")
}

// TestTabStateSwitchUnknown verifies switching to an unknown id is ignored.
func TestTabStateSwitchUnknown(t *testing.T) {
	cfg := tabbedConfig()
	ts := newTabState(cfg)

	assert.False(t, ts.switchTo(cfg, "mounts"))
	assert.Equal(t, "armor", ts.Active())

	assert.True(t, ts.switchTo(cfg, "food"))
	assert.Equal(t, "food", ts.Active())
}

// TestTabStatePageMemory verifies each tab remembers its page independently
// and resumes it on return.
func TestTabStatePageMemory(t *testing.T) {
	cfg := tabbedConfig()
	ts := newTabState(cfg)

	ts.setPage(3)
	assert.True(t, ts.switchTo(cfg, "food"))
	assert.Equal(t, 1, ts.page(), "fresh tab starts at page 1")

	ts.setPage(5)
	assert.True(t, ts.switchTo(cfg, "armor"))
	assert.Equal(t, 3, ts.page(), "returning resumes the remembered page")
}

// TestTabStateSnapshotRestore verifies page memory survives a persistence
// round trip.
func TestTabStateSnapshotRestore(t *testing.T) {
	cfg := tabbedConfig()
	ts := newTabState(cfg)
	ts.setPage(4)
	ts.switchTo(cfg, "food")
	ts.setPage(2)

	snap := ts.snapshot()

	restored := newTabState(cfg)
	restored.restore(snap)
	assert.Equal(t, 4, restored.page(), "active tab is armor")
	restored.switchTo(cfg, "food")
	assert.Equal(t, 2, restored.page())
}

// TestTabStateConcurrentRestore verifies a persistence restore can land
// while pages are being read and written from the live session.
func TestTabStateConcurrentRestore(t *testing.T) {
	cfg := tabbedConfig()
	ts := newTabState(cfg)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			ts.restore(map[string]int{"armor": i, "food": i})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			_ = ts.page()
			ts.setPage(i)
			_ = ts.snapshot()
			_ = ts.items(cfg)
		}
	}()
	wg.Wait()

	assert.GreaterOrEqual(t, ts.page(), 1)
}
