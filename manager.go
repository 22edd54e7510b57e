package menu

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Manager is the engine's central coordinator: it owns the menu registry, the
// compilation cache, the per-viewer views, the shared-session registry and
// the persistence pipeline. Multiple Manager instances can coexist in one
// process; nothing is ambient or global.
type Manager struct {
	// configs maps menu id -> config. Reload swaps the whole map; a config
	// is never patched in place.
	configs   map[string]*MenuConfig
	configsMu sync.RWMutex

	// manual holds programmatically registered configs, re-applied over
	// file sources on every reload.
	manual   map[string]*MenuConfig
	manualMu sync.Mutex

	// sources are the registered definition files, replayed by Reload.
	sources   []configSource
	sourcesMu sync.Mutex

	// views maps viewer id -> open view. One open menu per viewer.
	views   map[string]*View
	viewsMu sync.RWMutex

	shared    *sharedRegistry
	cache     *compileCache
	compiler  *Compiler
	persist   *persister
	scheduler *scheduler

	typeHandlers   map[string]TypeHandler
	typeHandlersMu sync.RWMutex

	dispatcher ActionDispatcher
	opener     SurfaceOpener

	observers   []Observer
	observersMu sync.RWMutex
}

type configSource struct {
	path      string
	namespace string
}

// ErrUnknownMenu is returned when opening a menu id with no registered
// config.
type ErrUnknownMenu struct{ ID string }

func (e ErrUnknownMenu) Error() string {
	return fmt.Sprintf("menu: no menu registered as %q", e.ID)
}

func newManager(b *Builder) *Manager {
	m := &Manager{
		configs:      make(map[string]*MenuConfig),
		manual:       make(map[string]*MenuConfig),
		views:        make(map[string]*View),
		shared:       newSharedRegistry(),
		typeHandlers: make(map[string]TypeHandler),
		dispatcher:   b.dispatcher,
		opener:       b.opener,
	}
	if m.dispatcher == nil {
		m.dispatcher = NopDispatcher{}
	}
	m.cache = newCompileCache(b.cacheTTL, b.cacheMax)
	m.compiler = newCompiler(m.cache, b.evaluator, b.translator, b.providers)
	m.persist = newPersister(b.store)
	m.scheduler = newScheduler(m)
	return m
}

// Start begins the engine tick loop (broadcast debounce, drag expiry, title
// refresh, auto-save).
func (m *Manager) Start() {
	m.scheduler.Start()
}

// Shutdown stops the tick loop, flushes pending persistence and closes every
// open view and shared session.
func (m *Manager) Shutdown() {
	m.shared.closeAll()

	m.viewsMu.Lock()
	views := make([]*View, 0, len(m.views))
	for _, v := range m.views {
		views = append(views, v)
	}
	m.viewsMu.Unlock()
	for _, v := range views {
		v.close()
	}

	m.scheduler.Stop()
	m.cache.stop()
}

// Register adds a programmatically built config. The config replaces any
// previous one under the same id, wholesale.
func (m *Manager) Register(cfg *MenuConfig) error {
	if err := validateConfig(cfg); err != nil {
		return err
	}
	m.manualMu.Lock()
	m.manual[cfg.ID] = cfg
	m.manualMu.Unlock()

	m.configsMu.Lock()
	m.configs[cfg.ID] = cfg
	m.configsMu.Unlock()
	return nil
}

// RegisterFile loads every menu defined in a YAML document and returns the
// count loaded. Malformed items are logged and skipped; the load continues.
func (m *Manager) RegisterFile(path string) (int, error) {
	return m.registerFile(path, "")
}

// RegisterFileNS loads a document with every menu id prefixed
// "namespace:id".
func (m *Manager) RegisterFileNS(namespace, path string) (int, error) {
	return m.registerFile(path, namespace)
}

func (m *Manager) registerFile(path, namespace string) (int, error) {
	configs, err := ParseFile(path, namespace)
	if err != nil {
		return 0, err
	}

	m.sourcesMu.Lock()
	m.sources = append(m.sources, configSource{path: path, namespace: namespace})
	m.sourcesMu.Unlock()

	m.configsMu.Lock()
	for _, cfg := range configs {
		m.configs[cfg.ID] = cfg
	}
	m.configsMu.Unlock()
	return len(configs), nil
}

// Config returns the registered config for a menu id.
func (m *Manager) Config(id string) (*MenuConfig, bool) {
	m.configsMu.RLock()
	defer m.configsMu.RUnlock()
	cfg, ok := m.configs[id]
	return cfg, ok
}

// Reload re-reads every registered definition file asynchronously and swaps
// the whole config registry. Already-open views keep their snapshot and are
// unaffected. The result carries the first parse failure, if any.
func (m *Manager) Reload() <-chan error {
	out := make(chan error, 1)
	go func() {
		m.sourcesMu.Lock()
		sources := make([]configSource, len(m.sources))
		copy(sources, m.sources)
		m.sourcesMu.Unlock()

		next := make(map[string]*MenuConfig)
		var firstErr error
		for _, src := range sources {
			configs, err := ParseFile(src.path, src.namespace)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				slog.Warn("menu: reload failed for file", "path", src.path, "error", err)
				continue
			}
			for _, cfg := range configs {
				next[cfg.ID] = cfg
			}
		}

		m.manualMu.Lock()
		for id, cfg := range m.manual {
			next[id] = cfg
		}
		m.manualMu.Unlock()

		m.configsMu.Lock()
		m.configs = next
		m.configsMu.Unlock()

		m.cache.invalidateAll()
		out <- firstErr
	}()
	return out
}

// Open opens a menu for one viewer and returns the session id. Any menu the
// viewer already has open is closed first. Main-thread only.
func (m *Manager) Open(viewer Viewer, menuID string, vctx *ViewContext) (uuid.UUID, error) {
	cfg, ok := m.Config(menuID)
	if !ok {
		return uuid.Nil, ErrUnknownMenu{ID: menuID}
	}
	view, err := m.openView(viewer, cfg, vctx, nil)
	if err != nil {
		return uuid.Nil, err
	}
	return view.id, nil
}

// OpenShared opens one logical menu instance for several viewers at once and
// returns the shared session id. Each member gets its own view reading from
// a clone of the base context. Main-thread only.
func (m *Manager) OpenShared(viewers []Viewer, menuID string, base *ViewContext) (uuid.UUID, error) {
	cfg, ok := m.Config(menuID)
	if !ok {
		return uuid.Nil, ErrUnknownMenu{ID: menuID}
	}
	if !cfg.Shared {
		return uuid.Nil, fmt.Errorf("menu: %q is not marked shared", menuID)
	}
	if base == nil {
		base = NewViewContext()
	}

	session := m.shared.create(menuID, base)
	for _, viewer := range viewers {
		view, err := m.openView(viewer, cfg, base.clone(), session)
		if err != nil {
			slog.Warn("menu: shared open failed for member",
				"menu", menuID,
				"viewer", viewer.Name(),
				"error", err)
			continue
		}
		session.addMember(view)
	}
	if session.MemberCount() == 0 {
		session.Close()
		return uuid.Nil, fmt.Errorf("menu: shared open of %q reached no viewers", menuID)
	}
	return session.id, nil
}

// AddSharedMember joins a viewer to an existing shared session.
func (m *Manager) AddSharedMember(sessionID uuid.UUID, viewer Viewer) error {
	session := m.shared.get(sessionID)
	if session == nil {
		return fmt.Errorf("menu: no shared session %s", sessionID)
	}
	cfg, ok := m.Config(session.menuID)
	if !ok {
		return ErrUnknownMenu{ID: session.menuID}
	}
	view, err := m.openView(viewer, cfg, session.base.clone(), session)
	if err != nil {
		return err
	}
	session.addMember(view)
	return nil
}

// SharedSession returns a live shared session by id.
func (m *Manager) SharedSession(id uuid.UUID) *SharedSession {
	return m.shared.get(id)
}

func (m *Manager) openView(viewer Viewer, cfg *MenuConfig, vctx *ViewContext, shared *SharedSession) (*View, error) {
	if m.opener == nil {
		return nil, fmt.Errorf("menu: no surface opener configured")
	}
	if vctx == nil {
		vctx = NewViewContext()
	}

	if old := m.View(viewer.ID()); old != nil {
		old.close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), renderTimeout)
	title, err := m.compiler.CompileTitle(ctx, viewer, cfg, vctx)
	cancel()
	if err != nil {
		title = cfg.Title
	}

	surface, err := m.opener.OpenSurface(viewer, title, cfg.Size)
	if err != nil {
		return nil, fmt.Errorf("menu: opening surface for %q: %w", cfg.ID, err)
	}

	v := &View{
		id:      uuid.New(),
		viewer:  viewer,
		menu:    cfg,
		vctx:    vctx,
		surface: surface,
		manager: m,
		tabs:    newTabState(cfg),
		cells:   make(map[int]*CompiledItem),
		defs:    make(map[int]*ItemConfig),
		shared:  shared,
	}
	v.state.Store(NewPersistedState())

	m.viewsMu.Lock()
	m.views[viewer.ID()] = v
	m.viewsMu.Unlock()

	if cfg.persistenceEnabled() {
		ch := m.persist.Load(viewer.ID(), cfg.ID)
		go func() {
			res := <-ch
			if res.Err != nil {
				slog.Warn("menu: state load failed",
					"menu", cfg.ID,
					"viewer", viewer.Name(),
					"error", res.Err)
				return
			}
			if res.State != nil {
				v.applyLoadedState(res.State)
			}
		}()
	}

	if err := v.Render(); err != nil {
		v.close()
		return nil, err
	}
	v.scheduleTitleRefresh()
	v.scheduleAutoSave()
	m.dispatchEvent(OpenEvent{View: v})
	return v, nil
}

// View returns the viewer's open view, nil when none.
func (m *Manager) View(viewerID string) *View {
	m.viewsMu.RLock()
	defer m.viewsMu.RUnlock()
	return m.views[viewerID]
}

// Close closes the viewer's open view, if any.
func (m *Manager) Close(viewerID string) {
	if v := m.View(viewerID); v != nil {
		v.close()
	}
}

// removeView unregisters a closing view.
func (m *Manager) removeView(v *View) {
	m.viewsMu.Lock()
	if m.views[v.viewer.ID()] == v {
		delete(m.views, v.viewer.ID())
	}
	m.viewsMu.Unlock()
}

// SaveState persists a snapshot asynchronously. The returned channel carries
// the write's outcome; on failure the menu stays usable with in-memory state.
func (m *Manager) SaveState(viewerID, menuID string, state *PersistedState) <-chan error {
	return m.persist.Save(viewerID, menuID, state)
}

// LoadState loads a snapshot asynchronously, yielding the default state form
// when no record exists.
func (m *Manager) LoadState(viewerID, menuID string) <-chan StateResult {
	out := make(chan StateResult, 1)
	go func() {
		res := <-m.persist.Load(viewerID, menuID)
		if res.Err == nil && res.State == nil {
			res.State = NewPersistedState()
		}
		out <- res
	}()
	return out
}

// InvalidateCache drops every cached compilation.
func (m *Manager) InvalidateCache() {
	m.cache.invalidateAll()
}

// InvalidateMenu drops every cached compilation for one menu.
func (m *Manager) InvalidateMenu(menuID string) {
	m.cache.invalidateMenu(menuID)
}

// InvalidateItems drops a menu's cached items but keeps its cached titles.
func (m *Manager) InvalidateItems(menuID string) {
	m.cache.invalidateItems(menuID)
}

// InvalidateViewer drops only cache entries rendered with this viewer's
// dynamic inputs, leaving globally shared static entries intact.
func (m *Manager) InvalidateViewer(viewerID string) {
	m.cache.invalidateViewer(viewerID)
}

// RegisterTypeHandler binds a capability handler to an item type token.
// Unknown types fall through to the default dispatch chain.
func (m *Manager) RegisterTypeHandler(itemType string, h TypeHandler) {
	m.typeHandlersMu.Lock()
	m.typeHandlers[itemType] = h
	m.typeHandlersMu.Unlock()
}

func (m *Manager) typeHandler(itemType string) TypeHandler {
	m.typeHandlersMu.RLock()
	defer m.typeHandlersMu.RUnlock()
	return m.typeHandlers[itemType]
}

// Observe registers an observer for session lifecycle events.
func (m *Manager) Observe(o Observer) {
	m.observersMu.Lock()
	m.observers = append(m.observers, o)
	m.observersMu.Unlock()
}

func (m *Manager) dispatchEvent(event any) {
	m.observersMu.RLock()
	observers := m.observers
	m.observersMu.RUnlock()
	for _, o := range observers {
		o.HandleMenuEvent(event)
	}
}

// TickNumber returns the engine's current tick number.
func (m *Manager) TickNumber() uint64 {
	return m.scheduler.tickNumber.Load()
}

// validateConfig rejects configs an open could never render.
func validateConfig(cfg *MenuConfig) error {
	if cfg == nil || cfg.ID == "" {
		return fmt.Errorf("menu: config without id")
	}
	if cfg.Size <= 0 {
		return fmt.Errorf("menu: config %q has no grid size", cfg.ID)
	}
	if cfg.TitleRefresh < 0 {
		return fmt.Errorf("menu: config %q has negative title refresh", cfg.ID)
	}
	return nil
}
