package menu

import (
	"time"
)

// Builder configures the engine before initialization.
// Use NewBuilder() to create a builder and chain configuration methods.
type Builder struct {
	evaluator  Evaluator
	dispatcher ActionDispatcher
	translator Translator
	providers  []PlaceholderProvider
	store      StateStore
	opener     SurfaceOpener
	observers  []Observer
	cacheTTL   time.Duration
	cacheMax   int
}

// NewBuilder creates a new engine builder.
func NewBuilder() *Builder {
	return &Builder{
		cacheTTL: defaultCacheTTL,
		cacheMax: defaultCacheMax,
	}
}

// Evaluator sets the condition evaluator used for view-conditions,
// click-conditions and variant conditions. Defaults to a CEL evaluator.
func (b *Builder) Evaluator(e Evaluator) *Builder {
	b.evaluator = e
	return b
}

// Dispatcher sets the action dispatcher click actions are handed to.
func (b *Builder) Dispatcher(d ActionDispatcher) *Builder {
	b.dispatcher = d
	return b
}

// Translator sets the localization hook used during placeholder
// substitution.
func (b *Builder) Translator(t Translator) *Builder {
	b.translator = t
	return b
}

// PlaceholderProvider registers an external placeholder source, consulted
// after the static and context layers. Providers are tried in registration
// order.
func (b *Builder) PlaceholderProvider(p PlaceholderProvider) *Builder {
	b.providers = append(b.providers, p)
	return b
}

// Store sets the backing state store for persistence. Without one,
// persistence operations resolve against an in-memory store.
func (b *Builder) Store(s StateStore) *Builder {
	b.store = s
	return b
}

// Opener sets the surface opener the manager uses to open grids for
// viewers.
func (b *Builder) Opener(o SurfaceOpener) *Builder {
	b.opener = o
	return b
}

// Observer registers a session lifecycle observer.
func (b *Builder) Observer(o Observer) *Builder {
	b.observers = append(b.observers, o)
	return b
}

// CacheTTL overrides the compilation cache's entry lifetime.
func (b *Builder) CacheTTL(ttl time.Duration) *Builder {
	if ttl > 0 {
		b.cacheTTL = ttl
	}
	return b
}

// CacheMax overrides the compilation cache's entry bound.
func (b *Builder) CacheMax(n int) *Builder {
	if n > 0 {
		b.cacheMax = n
	}
	return b
}

// Init initializes the engine with the configured settings and starts its
// tick loop. Returns the Manager instance which should be stored and used to
// register and open menus. Multiple Manager instances can coexist.
func (b *Builder) Init() *Manager {
	if b.evaluator == nil {
		eval, err := NewCELEvaluator()
		if err != nil {
			// CEL env construction only fails on a broken declaration
			// set, which is fixed at compile time.
			panic(err)
		}
		b.evaluator = eval
	}
	if b.store == nil {
		b.store = NewMemoryStore()
	}
	m := newManager(b)
	for _, o := range b.observers {
		m.Observe(o)
	}
	m.Start()
	return m
}
