package menu

import (
	"context"
	"log/slog"
	"sync"
)

// Compiler turns item definitions into CompiledItems: it resolves the active
// variant, substitutes placeholders and consults the compilation cache.
// Compilation runs off the main thread; Compile returns a future the render
// pass joins on.
type Compiler struct {
	cache      *compileCache
	eval       Evaluator
	translator Translator
	providers  []PlaceholderProvider

	// contextAware remembers (menu/item/variant) identities whose render
	// consulted a context-scoped source, so later key derivations scope to
	// the viewer up front.
	contextAware sync.Map
}

// newCompiler wires a compiler to its collaborators.
func newCompiler(cache *compileCache, eval Evaluator, tr Translator, providers []PlaceholderProvider) *Compiler {
	if eval == nil {
		eval = TrueEvaluator{}
	}
	return &Compiler{
		cache:      cache,
		eval:       eval,
		translator: tr,
		providers:  providers,
	}
}

// CompileResult is the outcome of one compilation. A nil Item with nil Err
// means the item is hidden (its view predicates did not hold).
type CompileResult struct {
	Item *CompiledItem
	Err  error
}

// CompileFuture resolves to a CompileResult. Await may be called any number
// of times.
type CompileFuture struct {
	done chan struct{}
	res  CompileResult
}

// Await blocks until the compilation finishes or ctx is done.
func (f *CompileFuture) Await(ctx context.Context) CompileResult {
	select {
	case <-f.done:
		return f.res
	case <-ctx.Done():
		return CompileResult{Err: ctx.Err()}
	}
}

// resolvedFuture wraps an already-known result.
func resolvedFuture(res CompileResult) *CompileFuture {
	f := &CompileFuture{done: make(chan struct{}), res: res}
	close(f.done)
	return f
}

// Compile starts compiling one item for a viewer. The viewer may be nil in
// shared or anonymous contexts; viewer-scoped keys then collapse to the
// anonymous scope.
func (c *Compiler) Compile(ctx context.Context, viewer Viewer, cfg *MenuConfig, def *ItemConfig, vctx *ViewContext) *CompileFuture {
	f := &CompileFuture{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.res = c.compile(ctx, viewer, cfg, def, vctx)
	}()
	return f
}

// CompileTitle renders a menu's title template for a viewer, through the same
// cache as items so repeated title refreshes stay cheap.
func (c *Compiler) CompileTitle(ctx context.Context, viewer Viewer, cfg *MenuConfig, vctx *ViewContext) (string, error) {
	def := &ItemConfig{Key: titleItemKey, Name: cfg.Title}
	if cfg.Pagination != nil {
		// Page numbers change within one cache TTL; fold their values
		// into the title's key so a page flip never shows a stale title.
		def.DynamicPlaceholders = []string{"page", "total_pages"}
	}
	res := c.compile(ctx, viewer, cfg, def, vctx)
	if res.Err != nil {
		return "", res.Err
	}
	if res.Item == nil {
		return cfg.Title, nil
	}
	return res.Item.Name, nil
}

func (c *Compiler) compile(ctx context.Context, viewer Viewer, cfg *MenuConfig, def *ItemConfig, vctx *ViewContext) CompileResult {
	vars := conditionVars(viewer, vctx)

	if len(def.ViewConditions) > 0 {
		ok, err := evalAll(ctx, c.eval, def.ViewConditions, vars)
		if err != nil {
			slog.Warn("menu: view condition failed",
				"menu", cfg.ID,
				"item", def.Key,
				"error", err)
			return CompileResult{}
		}
		if !ok {
			return CompileResult{}
		}
	}

	resolved, variant := resolveVariant(ctx, c.eval, cfg, def, vars)

	sub := &substituter{
		translator: c.translator,
		providers:  c.providers,
		viewer:     viewer,
		vctx:       vctx,
		local:      resolved.Placeholders,
	}

	key := deriveKey(cfg.ID, resolved, variant, viewer, sub)
	if !key.ViewerScoped && c.isContextAware(key) {
		key.ViewerScoped = true
		if viewer != nil {
			key.Viewer = viewer.ID()
		}
	}

	if resolved.NoCache {
		item := c.render(resolved, variant, sub)
		return CompileResult{Item: item}
	}

	item, err := c.cache.getOrCompute(key, func() (*CompiledItem, CacheKey, bool, error) {
		item := c.render(resolved, variant, sub)

		final := key
		if sub.contextAware && !final.ViewerScoped {
			final.ViewerScoped = true
			if viewer != nil {
				final.Viewer = viewer.ID()
			}
			c.markContextAware(final)
		}
		return item, final, true, nil
	})
	if err != nil {
		return CompileResult{Err: err}
	}
	return CompileResult{Item: item}
}

// render performs the placeholder substitution producing the final item.
func (c *Compiler) render(def *ItemConfig, variant string, sub *substituter) *CompiledItem {
	amount := def.Amount
	if amount <= 0 {
		amount = 1
	}
	return &CompiledItem{
		Source:   def,
		Variant:  variant,
		Type:     def.Type,
		Material: def.Material,
		Name:     sub.run(def.Name),
		Lore:     sub.runAll(def.Lore),
		Amount:   amount,
		Glint:    def.Glint,
	}
}

// identityOf strips the viewer scope from a key, leaving the shared
// (menu/item/variant) identity.
func identityOf(key CacheKey) CacheKey {
	return CacheKey{Menu: key.Menu, Item: key.Item, Variant: key.Variant}
}

func (c *Compiler) isContextAware(key CacheKey) bool {
	_, ok := c.contextAware.Load(identityOf(key))
	return ok
}

func (c *Compiler) markContextAware(key CacheKey) {
	c.contextAware.Store(identityOf(key), struct{}{})
}
