package menu

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// renderTimeout bounds the join on compilation futures. Compilations are
// expected to be fast; exceeding the warn threshold logs a warning before the
// pass gives up on the cell.
const (
	renderTimeout       = 5 * time.Second
	renderWarnThreshold = 500 * time.Millisecond
)

// View is one open menu instance for one viewer. It triggers compilation,
// assembles the cell map, dispatches clicks and drags, and owns re-render.
//
// Views are created by Manager.Open and live until Close. All public methods
// except the State accessors must run on the host's main thread.
type View struct {
	id      uuid.UUID
	viewer  Viewer
	menu    *MenuConfig
	vctx    *ViewContext
	manager *Manager

	// The title-refresh fallback can swap the surface from a tick
	// goroutine, so every read goes through sfc.
	surfMu  sync.RWMutex
	surface Surface

	tabs  *tabState
	state atomic.Pointer[PersistedState]

	// cells and defs are the last completed render: exactly one compiled
	// item per cell at any render instant.
	cellMu   sync.RWMutex
	cells    map[int]*CompiledItem
	defs     map[int]*ItemConfig
	reserved map[int]bool

	drag atomic.Pointer[DragSession]

	titleTimer atomic.Pointer[deadline]
	saveTimer  atomic.Pointer[deadline]

	shared *SharedSession

	renderMu sync.Mutex
	closed   atomic.Bool
}

// ID returns the view's session id.
func (v *View) ID() uuid.UUID { return v.id }

// Viewer returns the viewer this view renders for.
func (v *View) Viewer() Viewer { return v.viewer }

// Menu returns the config snapshot this view was opened with. Reloading
// configurations does not affect an already-open view.
func (v *View) Menu() *MenuConfig { return v.menu }

// Context returns the view's mutable context.
func (v *View) Context() *ViewContext { return v.vctx }

// Closed reports whether the view has been closed.
func (v *View) Closed() bool { return v.closed.Load() }

// State returns the view's runtime state snapshot. Mutations are picked up
// by the next save.
func (v *View) State() *PersistedState { return v.state.Load() }

// sfc returns the surface currently backing the view.
func (v *View) sfc() Surface {
	v.surfMu.RLock()
	defer v.surfMu.RUnlock()
	return v.surface
}

// Page returns the current page of the active tab.
func (v *View) Page() int { return v.tabs.page() }

// Tab returns the active tab id.
func (v *View) Tab() string { return v.tabs.Active() }

// ItemAt returns the compiled item rendered in a cell.
func (v *View) ItemAt(slot int) *CompiledItem {
	v.cellMu.RLock()
	defer v.cellMu.RUnlock()
	return v.cells[slot]
}

// defAt returns the definition rendered in a cell.
func (v *View) defAt(slot int) *ItemConfig {
	v.cellMu.RLock()
	defer v.cellMu.RUnlock()
	return v.defs[slot]
}

func (v *View) dragSession() *DragSession     { return v.drag.Load() }
func (v *View) setDragSession(d *DragSession) { v.drag.Store(d) }

// SetPage moves the active tab to a page and re-renders. Out-of-range pages
// clamp rather than fail.
func (v *View) SetPage(page int) error {
	v.tabs.setPage(page)
	if err := v.Render(); err != nil {
		return err
	}
	v.manager.dispatchEvent(PageChangeEvent{View: v, Page: v.tabs.page()})
	return nil
}

// NextPage advances one page.
func (v *View) NextPage() error { return v.SetPage(v.tabs.page() + 1) }

// PrevPage goes back one page.
func (v *View) PrevPage() error { return v.SetPage(v.tabs.page() - 1) }

// SwitchTab activates a tab and re-renders, resuming the tab's remembered
// page.
func (v *View) SwitchTab(id string) error {
	if !v.tabs.switchTo(v.menu, id) {
		return nil
	}
	return v.tabSwitched()
}

// NextTab activates the following tab, wrapping past the last to the first.
func (v *View) NextTab() error {
	if !v.tabs.next(v.menu) {
		return nil
	}
	return v.tabSwitched()
}

// PrevTab activates the preceding tab, wrapping past the first to the last.
func (v *View) PrevTab() error {
	if !v.tabs.prev(v.menu) {
		return nil
	}
	return v.tabSwitched()
}

func (v *View) tabSwitched() error {
	if err := v.Render(); err != nil {
		return err
	}
	v.manager.dispatchEvent(TabSwitchEvent{View: v, Tab: v.tabs.Active()})
	return nil
}

// contentList reads the pagination content list from the view context.
func (v *View) contentList() []any {
	if v.menu.Pagination == nil {
		return nil
	}
	source := v.menu.Pagination.ContentSource
	if source == "" {
		source = defaultContentSource
	}
	raw, ok := v.vctx.Data(source)
	if !ok {
		return nil
	}
	switch list := raw.(type) {
	case []any:
		return list
	case []*ItemConfig:
		out := make([]any, len(list))
		for i, it := range list {
			out[i] = it
		}
		return out
	case []string:
		out := make([]any, len(list))
		for i, s := range list {
			out[i] = s
		}
		return out
	default:
		return nil
	}
}

// Render performs one full render pass: it assembles the cell map by layer
// overlay, joins every compilation future, and only then writes cells into
// the surface. A failure compiling one item never aborts the pass; the cell
// is left empty and the failure logged.
func (v *View) Render() error {
	if v.closed.Load() {
		return nil
	}
	v.renderMu.Lock()
	defer v.renderMu.Unlock()

	content := v.contentList()

	var pv *PaginatedView
	if p := v.menu.Pagination; p != nil {
		pv = paginate(p, v.tabs.page(), len(content))
		v.tabs.setPage(pv.Page)
		v.vctx.SetPlaceholder("page", strconv.Itoa(pv.Page))
		v.vctx.SetPlaceholder("total_pages", strconv.Itoa(pv.TotalPages))
	}

	assign, reserved := v.assembleLayers(pv, content)

	ctx, cancel := context.WithTimeout(context.Background(), renderTimeout)
	defer cancel()

	type pending struct {
		slot   int
		def    *ItemConfig
		future *CompileFuture
	}
	futures := make([]pending, 0, len(assign))
	for slot, def := range assign {
		futures = append(futures, pending{
			slot:   slot,
			def:    def,
			future: v.manager.compiler.Compile(ctx, v.viewer, v.menu, def, v.vctx),
		})
	}

	// Join barrier: every future resolves before a single cell is written,
	// so a render never observes a partially computed item.
	started := time.Now()
	cells := make(map[int]*CompiledItem, len(futures))
	defs := make(map[int]*ItemConfig, len(futures))
	for _, p := range futures {
		res := p.future.Await(ctx)
		if res.Err != nil {
			slog.Warn("menu: item compilation failed",
				"menu", v.menu.ID,
				"item", p.def.Key,
				"slot", p.slot,
				"error", res.Err)
			continue
		}
		if res.Item == nil {
			continue // Hidden by view conditions.
		}
		cells[p.slot] = res.Item
		defs[p.slot] = p.def
	}
	if elapsed := time.Since(started); elapsed > renderWarnThreshold {
		slog.Warn("menu: slow render pass",
			"menu", v.menu.ID,
			"viewer", v.viewer.Name(),
			"elapsed", elapsed)
	}

	if v.closed.Load() {
		// The view closed while compiling; discard the finished work.
		return nil
	}

	v.cellMu.Lock()
	v.cells = cells
	v.defs = defs
	v.reserved = reserved
	v.cellMu.Unlock()

	surface := v.sfc()
	for slot := 0; slot < v.menu.Size; slot++ {
		if it, ok := cells[slot]; ok {
			if err := surface.SetItem(slot, it); err != nil {
				slog.Warn("menu: writing cell failed",
					"menu", v.menu.ID,
					"slot", slot,
					"error", err)
			}
		} else {
			surface.Clear(slot)
		}
	}

	return v.renderTitle(ctx)
}

// assembleLayers builds the definition per cell by successive overlay; later
// layers win on conflicting cells. Pagination content cells are reserved as
// empty even when unfilled, so fill-all-empty-cells items never overwrite
// them.
func (v *View) assembleLayers(pv *PaginatedView, content []any) (map[int]*ItemConfig, map[int]bool) {
	assign := make(map[int]*ItemConfig)
	reserved := make(map[int]bool)
	var fillers []*ItemConfig

	place := func(def *ItemConfig) {
		if def.FillEmpty {
			fillers = append(fillers, def)
			return
		}
		for _, slot := range def.Slots {
			if slot >= 0 && slot < v.menu.Size {
				assign[slot] = def
			}
		}
	}

	// Layer 1: static items.
	for _, def := range v.menu.Items {
		place(def)
	}

	// Layer 2: tab items win over base on overlap.
	for _, def := range v.tabs.items(v.menu) {
		place(def)
	}

	// Layer 3: pagination content and navigation.
	if pv != nil {
		for _, slot := range pv.ContentSlots {
			reserved[slot] = true
			delete(assign, slot)
		}
		for slot, idx := range pv.Assignments {
			if def := v.contentDef(content, idx); def != nil {
				assign[slot] = def
			}
		}
		p := v.menu.Pagination
		if p.Navigation {
			if pv.HasPrev && p.PrevItem != nil {
				for _, slot := range pv.PrevSlots {
					assign[slot] = p.PrevItem
				}
			}
			if pv.HasNext && p.NextItem != nil {
				for _, slot := range pv.NextSlots {
					assign[slot] = p.NextItem
				}
			}
			// Navigation cells without a nav item on this page stay
			// empty rather than fall through to lower layers.
			if !pv.HasPrev {
				for _, slot := range pv.PrevSlots {
					reserved[slot] = true
					delete(assign, slot)
				}
			}
			if !pv.HasNext {
				for _, slot := range pv.NextSlots {
					reserved[slot] = true
					delete(assign, slot)
				}
			}
		}
	}

	// Layer 4: externally injected overrides always win.
	for slot, def := range v.vctx.overrideSnapshot() {
		if slot >= 0 && slot < v.menu.Size {
			assign[slot] = def
		}
	}

	// Fillers: every empty, unreserved cell.
	for _, filler := range fillers {
		for slot := 0; slot < v.menu.Size; slot++ {
			if _, taken := assign[slot]; !taken && !reserved[slot] {
				assign[slot] = filler
			}
		}
	}

	return assign, reserved
}

// contentDef turns one content entry into a renderable definition. Entries
// may be full definitions, or plain values rendered through the configured
// content template with %entry% and %entry_index% placeholders.
func (v *View) contentDef(content []any, idx int) *ItemConfig {
	if idx < 0 || idx >= len(content) {
		return nil
	}
	switch e := content[idx].(type) {
	case *ItemConfig:
		return e
	default:
		tmpl := v.menu.Pagination.ContentItem
		if tmpl == nil {
			return nil
		}
		def := *tmpl
		ph := make(map[string]string, len(tmpl.Placeholders)+2)
		for k, val := range tmpl.Placeholders {
			ph[k] = val
		}
		ph["entry"] = toString(e)
		ph["entry_index"] = strconv.Itoa(idx)
		def.Placeholders = ph
		def.DynamicPlaceholders = append([]string{"entry", "entry_index"}, tmpl.DynamicPlaceholders...)
		return &def
	}
}

// renderTitle substitutes and applies the title template. Surfaces without
// in-place title support degrade to a full reopen.
func (v *View) renderTitle(ctx context.Context) error {
	title, err := v.manager.compiler.CompileTitle(ctx, v.viewer, v.menu, v.vctx)
	if err != nil {
		slog.Warn("menu: title compilation failed", "menu", v.menu.ID, "error", err)
		return nil
	}
	if err := v.sfc().SetTitle(title); err == ErrTitleUnsupported {
		return v.reopenSurface(title)
	} else if err != nil {
		return err
	}
	return nil
}

// reopenSurface is the slower-but-correct fallback when the surface cannot
// update its title in place.
func (v *View) reopenSurface(title string) error {
	surface, err := v.manager.opener.OpenSurface(v.viewer, title, v.menu.Size)
	if err != nil {
		return err
	}
	v.surfMu.Lock()
	old := v.surface
	v.surface = surface
	v.surfMu.Unlock()
	_ = old.Close()

	v.cellMu.RLock()
	cells := v.cells
	v.cellMu.RUnlock()
	for slot := 0; slot < v.menu.Size; slot++ {
		if it, ok := cells[slot]; ok {
			_ = surface.SetItem(slot, it)
		} else {
			surface.Clear(slot)
		}
	}
	return nil
}

// writeCell applies one externally pushed cell update (shared-session
// broadcasts, drag placements).
func (v *View) writeCell(slot int, it *CompiledItem) {
	if v.closed.Load() || slot < 0 || slot >= v.menu.Size {
		return
	}
	v.cellMu.Lock()
	if it == nil {
		delete(v.cells, slot)
	} else {
		v.cells[slot] = it
	}
	v.cellMu.Unlock()

	surface := v.sfc()
	if it == nil {
		surface.Clear(slot)
		return
	}
	if err := surface.SetItem(slot, it); err != nil {
		slog.Warn("menu: writing cell failed", "menu", v.menu.ID, "slot", slot, "error", err)
	}
}

// revertCells restores cells from the last completed render after a rejected
// drag transaction.
func (v *View) revertCells(slots []int) {
	v.cellMu.RLock()
	cells := v.cells
	v.cellMu.RUnlock()
	surface := v.sfc()
	for _, slot := range slots {
		if it, ok := cells[slot]; ok {
			_ = surface.SetItem(slot, it)
		} else {
			surface.Clear(slot)
		}
	}
}

// scheduleTitleRefresh arms the recurring title refresh, if configured.
func (v *View) scheduleTitleRefresh() {
	interval := v.menu.TitleRefresh
	if interval <= 0 || v.manager.scheduler == nil {
		return
	}
	var fire func()
	fire = func() {
		if v.closed.Load() {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), renderTimeout)
		if err := v.renderTitle(ctx); err != nil {
			slog.Warn("menu: title refresh failed", "menu", v.menu.ID, "error", err)
		}
		cancel()
		v.titleTimer.Store(v.manager.scheduler.Schedule(time.Now().Add(interval), fire))
	}
	v.titleTimer.Store(v.manager.scheduler.Schedule(time.Now().Add(interval), fire))
}

// scheduleAutoSave arms the recurring auto-save, if configured.
func (v *View) scheduleAutoSave() {
	p := v.menu.Persistence
	if p == nil || !p.Enabled || p.AutoSave <= 0 || v.manager.scheduler == nil {
		return
	}
	var fire func()
	fire = func() {
		if v.closed.Load() {
			return
		}
		v.queueSave()
		v.saveTimer.Store(v.manager.scheduler.Schedule(time.Now().Add(p.AutoSave), fire))
	}
	v.saveTimer.Store(v.manager.scheduler.Schedule(time.Now().Add(p.AutoSave), fire))
}

// queueSave snapshots the tab state into the persisted state and queues a
// batched save.
func (v *View) queueSave() {
	state := v.state.Load()
	state.TabStates = v.tabs.snapshot()
	v.manager.persist.Save(v.viewer.ID(), v.menu.ID, state)
}

// applyLoadedState merges a loaded snapshot into the view and re-renders.
// Called asynchronously once the load completes; discarded if the view
// closed in the meantime.
func (v *View) applyLoadedState(state *PersistedState) {
	if v.closed.Load() {
		return
	}
	v.state.Store(state)
	v.tabs.restore(state.TabStates)
	if err := v.Render(); err != nil {
		slog.Warn("menu: render after state load failed", "menu", v.menu.ID, "error", err)
	}
}

// close tears the view down: timers cancelled, drag abandoned, state saved
// when the menu persists on close. In-flight compilations are not cancelled;
// their results are simply discarded.
func (v *View) close() {
	if v.closed.Swap(true) {
		return // Already closed
	}

	if d := v.titleTimer.Load(); d != nil {
		d.Cancel()
	}
	if d := v.saveTimer.Load(); d != nil {
		d.Cancel()
	}
	if d := v.dragSession(); d != nil {
		d.cancel()
	}

	if p := v.menu.Persistence; p != nil && p.Enabled && p.SaveOnClose {
		v.queueSave()
		v.manager.persist.flush(true)
	}

	if v.shared != nil {
		v.shared.dropMember(v.viewer.ID())
	}

	_ = v.sfc().Close()
	v.manager.removeView(v)
	v.manager.dispatchEvent(CloseEvent{View: v})
}

func toString(val any) string {
	switch s := val.(type) {
	case string:
		return s
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	default:
		return ""
	}
}
