package menu

import "sync"

// ViewContext carries the mutable per-open-instance state: placeholder
// values, opaque data slots (content lists, one-off item overrides) and
// programmatic click bindings. The opening caller mutates it before and
// between renders; the engine injects pagination placeholders such as "page"
// and "total_pages" before each render pass.
type ViewContext struct {
	mu            sync.RWMutex
	placeholders  map[string]string
	data          map[string]any
	namespace     string
	clickHandlers map[ClickKind]ClickHandler
	overrides     map[int]*ItemConfig
}

// NewViewContext creates an empty view context.
func NewViewContext() *ViewContext {
	return &ViewContext{
		placeholders: make(map[string]string),
		data:         make(map[string]any),
	}
}

// SetPlaceholder sets a placeholder value.
func (c *ViewContext) SetPlaceholder(key, value string) {
	c.mu.Lock()
	c.placeholders[key] = value
	c.mu.Unlock()
}

// Placeholder returns a placeholder value.
func (c *ViewContext) Placeholder(key string) (string, bool) {
	c.mu.RLock()
	v, ok := c.placeholders[key]
	c.mu.RUnlock()
	return v, ok
}

// SetData stores an opaque value in a named data slot. The pagination engine
// reads its content list from the slot named by PaginationConfig.ContentSource.
func (c *ViewContext) SetData(key string, value any) {
	c.mu.Lock()
	c.data[key] = value
	c.mu.Unlock()
}

// Data returns the value of a data slot.
func (c *ViewContext) Data(key string) (any, bool) {
	c.mu.RLock()
	v, ok := c.data[key]
	c.mu.RUnlock()
	return v, ok
}

// SetNamespace tags the context with a namespace.
func (c *ViewContext) SetNamespace(ns string) {
	c.mu.Lock()
	c.namespace = ns
	c.mu.Unlock()
}

// Namespace returns the namespace tag.
func (c *ViewContext) Namespace() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.namespace
}

// OnClick binds a programmatic handler for a click kind. Use ClickAny to
// match every kind.
func (c *ViewContext) OnClick(kind ClickKind, h ClickHandler) {
	c.mu.Lock()
	if c.clickHandlers == nil {
		c.clickHandlers = make(map[ClickKind]ClickHandler)
	}
	c.clickHandlers[kind] = h
	c.mu.Unlock()
}

// SetOverride injects a one-off item into a cell. Overrides render last and
// win over every other layer.
func (c *ViewContext) SetOverride(slot int, item *ItemConfig) {
	c.mu.Lock()
	if c.overrides == nil {
		c.overrides = make(map[int]*ItemConfig)
	}
	if item == nil {
		delete(c.overrides, slot)
	} else {
		c.overrides[slot] = item
	}
	c.mu.Unlock()
}

// clickHandler returns the bound handler for a kind, falling back to the
// ClickAny binding.
func (c *ViewContext) clickHandler(kind ClickKind) ClickHandler {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if h, ok := c.clickHandlers[kind]; ok {
		return h
	}
	return c.clickHandlers[ClickAny]
}

// overrideSnapshot returns a copy of the override map.
func (c *ViewContext) overrideSnapshot() map[int]*ItemConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.overrides) == 0 {
		return nil
	}
	out := make(map[int]*ItemConfig, len(c.overrides))
	for slot, it := range c.overrides {
		out[slot] = it
	}
	return out
}

// placeholderSnapshot returns a copy of the placeholder map.
func (c *ViewContext) placeholderSnapshot() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.placeholders))
	for k, v := range c.placeholders {
		out[k] = v
	}
	return out
}

// clone derives a context sharing no mutable state with the original.
// Shared sessions clone their base context per member.
func (c *ViewContext) clone() *ViewContext {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := NewViewContext()
	out.namespace = c.namespace
	for k, v := range c.placeholders {
		out.placeholders[k] = v
	}
	for k, v := range c.data {
		out.data[k] = v
	}
	for slot, it := range c.overrides {
		if out.overrides == nil {
			out.overrides = make(map[int]*ItemConfig)
		}
		out.overrides[slot] = it
	}
	for kind, h := range c.clickHandlers {
		if out.clickHandlers == nil {
			out.clickHandlers = make(map[ClickKind]ClickHandler)
		}
		out.clickHandlers[kind] = h
	}
	return out
}
