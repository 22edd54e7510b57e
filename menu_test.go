package menu

import (
	"context"
	"fmt"
	"sync"
)

// testViewer is a minimal viewer identity for tests.
type testViewer struct {
	id   string
	name string
}

func (v testViewer) ID() string   { return v.id }
func (v testViewer) Name() string { return v.name }

// cellWrite is one recorded surface write.
type cellWrite struct {
	slot int
	item *CompiledItem
}

// testSurface records every write the engine performs against it.
type testSurface struct {
	mu           sync.Mutex
	size         int
	cells        map[int]*CompiledItem
	writes       []cellWrite
	title        string
	titleErr     error
	titleUpdates int
	closed       bool
}

func newTestSurface(size int) *testSurface {
	return &testSurface{size: size, cells: make(map[int]*CompiledItem)}
}

func (s *testSurface) Size() int { return s.size }

func (s *testSurface) SetItem(slot int, it *CompiledItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cells[slot] = it
	s.writes = append(s.writes, cellWrite{slot: slot, item: it})
	return nil
}

func (s *testSurface) Clear(slot int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cells, slot)
}

func (s *testSurface) SetTitle(title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.titleErr != nil {
		return s.titleErr
	}
	s.title = title
	s.titleUpdates++
	return nil
}

func (s *testSurface) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *testSurface) itemAt(slot int) *CompiledItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cells[slot]
}

func (s *testSurface) writesTo(slot int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, w := range s.writes {
		if w.slot == slot {
			n++
		}
	}
	return n
}

// testOpener hands out recording surfaces and remembers them per viewer.
type testOpener struct {
	mu       sync.Mutex
	surfaces map[string][]*testSurface
	titleErr error
	failErr  error
}

func newTestOpener() *testOpener {
	return &testOpener{surfaces: make(map[string][]*testSurface)}
}

func (o *testOpener) OpenSurface(v Viewer, title string, size int) (Surface, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.failErr != nil {
		return nil, o.failErr
	}
	s := newTestSurface(size)
	s.title = title
	s.titleErr = o.titleErr
	o.surfaces[v.ID()] = append(o.surfaces[v.ID()], s)
	return s, nil
}

// surface returns the latest surface opened for a viewer.
func (o *testOpener) surface(viewerID string) *testSurface {
	o.mu.Lock()
	defer o.mu.Unlock()
	list := o.surfaces[viewerID]
	if len(list) == 0 {
		return nil
	}
	return list[len(list)-1]
}

func (o *testOpener) surfaceCount(viewerID string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.surfaces[viewerID])
}

// recordingDispatcher captures every dispatched action list.
type recordingDispatcher struct {
	mu    sync.Mutex
	calls [][]string
}

func (d *recordingDispatcher) Dispatch(_ context.Context, _ Click, actions []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := make([]string, len(actions))
	copy(cp, actions)
	d.calls = append(d.calls, cp)
	return nil
}

func (d *recordingDispatcher) dispatched() [][]string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// stubEvaluator answers condition expressions from a fixed table. Unknown
// expressions error, so tests notice unexpected evaluations.
type stubEvaluator struct {
	truths map[string]bool
}

func (e stubEvaluator) Evaluate(_ context.Context, expr string, _ map[string]any) (bool, error) {
	v, ok := e.truths[expr]
	if !ok {
		return false, fmt.Errorf("unexpected expression %q", expr)
	}
	return v, nil
}

// staticProvider resolves placeholders from a fixed map, standing in for an
// external dynamic-text source.
type staticProvider struct {
	values map[string]string
}

func (p staticProvider) Resolve(_ Viewer, key string) (string, bool) {
	v, ok := p.values[key]
	return v, ok
}

// newTestManager builds a manager without starting the tick loop, so tests
// drive flushes and expiries deterministically.
func newTestManager(opts ...func(*Builder)) (*Manager, *testOpener, *recordingDispatcher) {
	opener := newTestOpener()
	dispatcher := &recordingDispatcher{}
	b := NewBuilder().
		Opener(opener).
		Dispatcher(dispatcher).
		Evaluator(TrueEvaluator{})
	for _, opt := range opts {
		opt(b)
	}
	if b.store == nil {
		b.store = NewMemoryStore()
	}
	return newManager(b), opener, dispatcher
}
