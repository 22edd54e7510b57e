package menu

import "time"

// MenuConfig is the immutable definition of one menu. Configs are created by
// the parser (or assembled programmatically) and registered with a Manager.
// Reload replaces the whole object under its id; a config is never mutated
// after registration.
type MenuConfig struct {
	// ID uniquely identifies the menu within a Manager.
	ID string

	// Title is the surface title template. It runs through placeholder
	// substitution on every (re)render.
	Title string

	// Size is the number of cells in the grid.
	Size int

	// Items are the static item definitions. Multiple configs may reference
	// the same *ItemConfig; definitions are shared, not copied.
	Items []*ItemConfig

	// Pagination is nil for unpaginated menus.
	Pagination *PaginationConfig

	// Tabs is empty for untabbed menus. The default tab is the one marked
	// Default, or the first tab when none is marked.
	Tabs []*TabConfig

	// Persistence is nil when no state is persisted for this menu.
	Persistence *PersistenceConfig

	// Shared marks the menu as openable for multiple viewers at once.
	Shared bool

	// TitleRefresh re-renders the title template on this interval.
	// Zero disables title refresh.
	TitleRefresh time.Duration

	// VariantTemplates is the named variant table referenced by
	// ItemConfig.VariantRefs.
	VariantTemplates map[string]*VariantConfig
}

// ItemConfig is the immutable definition of one item. The zero value of every
// appearance field means "inherit" when the config is used as a variant
// override.
type ItemConfig struct {
	// Key identifies the item within its menu (the YAML map key). It is part
	// of cache-key identity.
	Key string

	// Slots are the cells this item occupies, parsed from a cell-range
	// expression.
	Slots []int

	// Type selects a registered type handler during click dispatch.
	// Empty for plain items.
	Type string

	// Appearance.
	Material string
	Name     string
	Lore     []string
	Amount   int
	Glint    bool

	// FillEmpty duplicates this item into every empty, unreserved cell after
	// all other layers have rendered.
	FillEmpty bool

	// AllowDrag permits drag transactions starting on this item's cells.
	AllowDrag bool

	// NoCache bypasses the compilation cache entirely.
	NoCache bool

	// DynamicPlaceholders lists placeholder keys whose resolved values are
	// folded into the cache key. An item resolving any context-aware
	// placeholder gets a viewer-scoped key even when this list is empty.
	DynamicPlaceholders []string

	// Placeholders are item-local substitutions applied before any other
	// source.
	Placeholders map[string]string

	// ViewConditions gate whether the item renders at all.
	ViewConditions []string

	// ClickConditions gate click dispatch.
	ClickConditions []string

	// Actions is the default action list (raw dialect lines; the dialect
	// parser is an external collaborator).
	Actions []string

	// ClickActions are action lists per click kind, taking priority over
	// Actions.
	ClickActions map[ClickKind][]string

	// Conditional is an optional conditions -> success/fail action block,
	// dispatched before any configured action list.
	Conditional *ConditionalActions

	// Variants are inline variants, ordered highest priority first.
	Variants []*VariantConfig

	// VariantRefs name entries of the menu's VariantTemplates table.
	// Inline variants are always evaluated before references.
	VariantRefs []string
}

// VariantConfig is one alternate appearance/behavior for an item, selected
// when its condition holds.
type VariantConfig struct {
	// ID identifies the variant for cache-key purposes. Falls back to the
	// condition text when empty.
	ID string

	// Condition is the predicate expression selecting this variant.
	Condition string

	// Item holds the fields overriding the base definition. Zero-valued
	// fields inherit from the base.
	Item *ItemConfig
}

// PaginationMode selects how content cells are derived.
type PaginationMode int

const (
	// PageNative delegates paging to the host; the engine only tracks
	// offsets and page counts.
	PageNative PaginationMode = iota

	// PageLayout assigns every cell a role from a textual layout grid.
	PageLayout

	// PageHybrid prefers an explicit content-slot list and falls back to
	// scanning the layout for the content marker.
	PageHybrid
)

// String returns the configuration token for the mode.
func (m PaginationMode) String() string {
	switch m {
	case PageLayout:
		return "layout"
	case PageHybrid:
		return "hybrid"
	default:
		return "native"
	}
}

// PaginationConfig declares how a menu pages its content list.
type PaginationConfig struct {
	Mode PaginationMode

	// Layout is the textual grid, one string per row. 'x' marks content
	// cells, '<' and '>' mark previous/next navigation cells. Any other
	// rune leaves the cell to the regular layers.
	Layout []string

	// ContentSlots explicitly lists content cells (hybrid mode).
	ContentSlots []int

	// PrevSlots and NextSlots explicitly list navigation cells, taking
	// priority over layout markers.
	PrevSlots []int
	NextSlots []int

	// ItemsPerPage caps content per page. Zero derives it from the number
	// of content cells.
	ItemsPerPage int

	// Navigation toggles rendering of the navigation items.
	Navigation bool

	// PrevItem and NextItem render into the navigation cells. They are
	// omitted entirely on the first/last page respectively.
	PrevItem *ItemConfig
	NextItem *ItemConfig

	// ContentItem is the template rendered once per content entry when the
	// entry is not itself an *ItemConfig. The entry value is exposed as the
	// %entry% placeholder and its index as %entry_index%.
	ContentItem *ItemConfig

	// ContentSource names the ViewContext data slot holding the content
	// list. Defaults to "content".
	ContentSource string
}

// TabConfig declares one tab of a tabbed menu.
type TabConfig struct {
	// ID identifies the tab. Persisted per-tab page memory is keyed by it.
	ID string

	// Default marks the initially active tab.
	Default bool

	// Items are merged over the base item set while the tab is active; tab
	// items win on overlapping cells.
	Items []*ItemConfig
}

// PersistenceConfig declares the durable-state policy for a menu.
type PersistenceConfig struct {
	// Enabled turns persistence on for this menu.
	Enabled bool

	// SaveOnClose saves the session state when the view closes.
	SaveOnClose bool

	// AutoSave saves on this interval while the view is open. Zero disables
	// interval saves.
	AutoSave time.Duration
}

// defaultTab returns the initially active tab id, or "" for untabbed menus.
func (c *MenuConfig) defaultTab() string {
	for _, t := range c.Tabs {
		if t.Default {
			return t.ID
		}
	}
	if len(c.Tabs) > 0 {
		return c.Tabs[0].ID
	}
	return ""
}

// tab returns the tab with the given id.
func (c *MenuConfig) tab(id string) *TabConfig {
	for _, t := range c.Tabs {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// persistenceEnabled reports whether this menu persists state.
func (c *MenuConfig) persistenceEnabled() bool {
	return c.Persistence != nil && c.Persistence.Enabled
}
