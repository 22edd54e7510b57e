package menu

import "strconv"

// CompiledItem is the rendered, ready-to-display representation of one item.
// Compiled items are never mutated; recompilation replaces them wholesale, so
// instances may be shared freely between cells, viewers and the cache.
type CompiledItem struct {
	// Source is the definition this item was compiled from, after variant
	// resolution.
	Source *ItemConfig

	// Variant is the id of the resolved variant, "" for the base item.
	Variant string

	// Type is the capability token used during click dispatch.
	Type string

	// Rendered appearance.
	Material string
	Name     string
	Lore     []string
	Amount   int
	Glint    bool
}

// fingerprint feeds the drag anti-dupe checksum. Two items with the same
// fingerprint are interchangeable for duplication purposes.
func (it *CompiledItem) fingerprint() string {
	if it == nil {
		return ""
	}
	return it.Material + "\x00" + it.Name + "\x00" + strconv.Itoa(it.Amount)
}
