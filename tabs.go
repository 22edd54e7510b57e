package menu

import "sync"

// tabState tracks the active tab and per-tab page memory for one viewer.
// Returning to a tab resumes at the page the viewer left it on. The mutex
// covers reads from tick goroutines (loaded-state restore, auto-save
// snapshots) against main-thread page and tab changes.
type tabState struct {
	mu     sync.RWMutex
	active string
	pages  map[string]int
}

// newTabState initializes the state on the menu's default tab.
func newTabState(cfg *MenuConfig) *tabState {
	return &tabState{
		active: cfg.defaultTab(),
		pages:  make(map[string]int),
	}
}

// Active returns the active tab id, "" for untabbed menus.
func (t *tabState) Active() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.active
}

// page returns the remembered page for the active tab, defaulting to 1.
func (t *tabState) page() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if p, ok := t.pages[t.active]; ok {
		return p
	}
	return 1
}

// setPage remembers the page for the active tab.
func (t *tabState) setPage(p int) {
	t.mu.Lock()
	t.pages[t.active] = p
	t.mu.Unlock()
}

// switchTo activates a tab explicitly. Unknown ids are ignored.
func (t *tabState) switchTo(cfg *MenuConfig, id string) bool {
	if cfg.tab(id) == nil {
		return false
	}
	t.mu.Lock()
	t.active = id
	t.mu.Unlock()
	return true
}

// next activates the following tab, wrapping past the last to the first.
func (t *tabState) next(cfg *MenuConfig) bool {
	return t.step(cfg, 1)
}

// prev activates the preceding tab, wrapping past the first to the last.
func (t *tabState) prev(cfg *MenuConfig) bool {
	return t.step(cfg, -1)
}

func (t *tabState) step(cfg *MenuConfig, dir int) bool {
	n := len(cfg.Tabs)
	if n == 0 {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	cur := 0
	for i, tab := range cfg.Tabs {
		if tab.ID == t.active {
			cur = i
			break
		}
	}
	t.active = cfg.Tabs[((cur+dir)%n+n)%n].ID
	return true
}

// items returns the active tab's item set, merged over the base set by the
// render pass (tab items win on overlapping cells).
func (t *tabState) items(cfg *MenuConfig) []*ItemConfig {
	tab := cfg.tab(t.Active())
	if tab == nil {
		return nil
	}
	return tab.Items
}

// snapshot exports the per-tab page memory for persistence.
func (t *tabState) snapshot() map[string]int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]int, len(t.pages))
	for id, p := range t.pages {
		out[id] = p
	}
	return out
}

// restore imports persisted per-tab pages.
func (t *tabState) restore(pages map[string]int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, p := range pages {
		t.pages[id] = p
	}
}
