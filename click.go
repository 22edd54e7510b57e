package menu

import (
	"context"
	"log/slog"
)

// HandleClick dispatches one click on a cell. The chain, in order: click
// predicates gate everything; then a registered type handler, a programmatic
// binding, the item's conditional block, the click-kind action list and
// finally the default action list. Whichever of those fires prevents the
// rest from firing.
//
// Main-thread only, like everything that touches the render surface.
func (v *View) HandleClick(slot int, kind ClickKind) {
	if v.closed.Load() {
		return
	}

	def := v.defAt(slot)
	if def == nil {
		return
	}
	click := Click{
		Viewer:   v.viewer,
		View:     v,
		Slot:     slot,
		Kind:     kind,
		Item:     def,
		Compiled: v.ItemAt(slot),
	}

	ctx, cancel := context.WithTimeout(context.Background(), renderTimeout)
	defer cancel()

	// (a) Click predicates: unsatisfied aborts with no action.
	if len(def.ClickConditions) > 0 {
		vars := conditionVars(v.viewer, v.vctx)
		ok, err := evalAll(ctx, v.manager.compiler.eval, def.ClickConditions, vars)
		if err != nil {
			slog.Warn("menu: click condition failed",
				"menu", v.menu.ID,
				"item", def.Key,
				"error", err)
			return
		}
		if !ok {
			return
		}
	}

	v.manager.dispatchEvent(ClickEvent{View: v, Click: click})

	// (b) Type handler: presence short-circuits the rest of the chain.
	if def.Type != "" {
		if h := v.manager.typeHandler(def.Type); h != nil {
			h(click)
			return
		}
	}

	// (c) Programmatic per-click-kind binding.
	if h := v.vctx.clickHandler(kind); h != nil {
		if h(click) {
			return
		}
	}

	// (d) Conditional action block.
	if c := def.Conditional; c != nil {
		v.runConditional(ctx, click, c)
		return
	}

	// (e) Click-kind action list.
	if actions, ok := def.ClickActions[kind]; ok && len(actions) > 0 {
		v.dispatchActions(ctx, click, actions)
		return
	}

	// (f) Default action list.
	if len(def.Actions) > 0 {
		v.dispatchActions(ctx, click, def.Actions)
	}
}

// runConditional evaluates a conditions -> success/fail block and dispatches
// the selected branch.
func (v *View) runConditional(ctx context.Context, click Click, c *ConditionalActions) {
	vars := conditionVars(v.viewer, v.vctx)
	ok, err := evalAll(ctx, v.manager.compiler.eval, c.Conditions, vars)
	if err != nil {
		slog.Warn("menu: conditional block failed",
			"menu", v.menu.ID,
			"item", click.Item.Key,
			"error", err)
		ok = false
	}
	if ok {
		v.dispatchActions(ctx, click, c.Success)
	} else {
		v.dispatchActions(ctx, click, c.Fail)
	}
}

// dispatchActions hands an action list to the external dispatcher with
// placeholders substituted.
func (v *View) dispatchActions(ctx context.Context, click Click, actions []string) {
	if len(actions) == 0 {
		return
	}
	sub := &substituter{
		translator: v.manager.compiler.translator,
		providers:  v.manager.compiler.providers,
		viewer:     v.viewer,
		vctx:       v.vctx,
		local:      click.Item.Placeholders,
	}
	if err := v.manager.dispatcher.Dispatch(ctx, click, sub.runAll(actions)); err != nil {
		slog.Warn("menu: action dispatch failed",
			"menu", v.menu.ID,
			"item", click.Item.Key,
			"error", err)
	}
}
