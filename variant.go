package menu

import (
	"context"
	"log/slog"
)

// resolveVariant picks the single variant to render for an item. Inline
// variants are evaluated before named references, first-satisfied-wins within
// each group, and the base definition is the fallback when nothing matches.
//
// Unknown named references are logged and skipped; a render never fails over
// a broken variant table.
func resolveVariant(ctx context.Context, eval Evaluator, cfg *MenuConfig, def *ItemConfig, vars map[string]any) (*ItemConfig, string) {
	for _, v := range def.Variants {
		if variantMatches(ctx, eval, cfg.ID, def.Key, v, vars) {
			return mergeItem(def, v.Item), variantID(v)
		}
	}

	for _, ref := range def.VariantRefs {
		v, ok := cfg.VariantTemplates[ref]
		if !ok {
			slog.Warn("menu: unknown variant reference",
				"menu", cfg.ID,
				"item", def.Key,
				"variant", ref)
			continue
		}
		if variantMatches(ctx, eval, cfg.ID, def.Key, v, vars) {
			id := v.ID
			if id == "" {
				id = ref
			}
			return mergeItem(def, v.Item), id
		}
	}

	return def, ""
}

// variantMatches evaluates a variant's condition. Evaluation errors count as
// unsatisfied.
func variantMatches(ctx context.Context, eval Evaluator, menuID, itemKey string, v *VariantConfig, vars map[string]any) bool {
	if v.Condition == "" {
		return true
	}
	ok, err := eval.Evaluate(ctx, v.Condition, vars)
	if err != nil {
		slog.Warn("menu: variant condition failed",
			"menu", menuID,
			"item", itemKey,
			"condition", v.Condition,
			"error", err)
		return false
	}
	return ok
}

// variantID returns the cache identity of an inline variant, falling back to
// the condition text for anonymous variants.
func variantID(v *VariantConfig) string {
	if v.ID != "" {
		return v.ID
	}
	return v.Condition
}

// mergeItem overlays a variant override on a base definition. Zero-valued
// override fields inherit from the base; identity fields (Key, Slots) always
// come from the base. The result is a fresh ItemConfig; neither input is
// mutated.
func mergeItem(base, over *ItemConfig) *ItemConfig {
	if over == nil {
		return base
	}

	out := *base
	if over.Type != "" {
		out.Type = over.Type
	}
	if over.Material != "" {
		out.Material = over.Material
	}
	if over.Name != "" {
		out.Name = over.Name
	}
	if len(over.Lore) > 0 {
		out.Lore = over.Lore
	}
	if over.Amount != 0 {
		out.Amount = over.Amount
	}
	if over.Glint {
		out.Glint = true
	}
	if over.NoCache {
		out.NoCache = true
	}
	if len(over.DynamicPlaceholders) > 0 {
		out.DynamicPlaceholders = over.DynamicPlaceholders
	}
	if len(over.Placeholders) > 0 {
		merged := make(map[string]string, len(base.Placeholders)+len(over.Placeholders))
		for k, v := range base.Placeholders {
			merged[k] = v
		}
		for k, v := range over.Placeholders {
			merged[k] = v
		}
		out.Placeholders = merged
	}
	if len(over.ClickConditions) > 0 {
		out.ClickConditions = over.ClickConditions
	}
	if len(over.Actions) > 0 {
		out.Actions = over.Actions
	}
	if len(over.ClickActions) > 0 {
		out.ClickActions = over.ClickActions
	}
	if over.Conditional != nil {
		out.Conditional = over.Conditional
	}

	// A resolved variant never re-enters variant resolution; the priority
	// chain is evaluated top-down exactly once.
	out.Variants = nil
	out.VariantRefs = nil

	return &out
}
