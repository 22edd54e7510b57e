package menu

import "context"

// ClickKind classifies a click on a cell.
type ClickKind string

const (
	ClickLeft       ClickKind = "left"
	ClickRight      ClickKind = "right"
	ClickShiftLeft  ClickKind = "shift_left"
	ClickShiftRight ClickKind = "shift_right"
	ClickMiddle     ClickKind = "middle"
	ClickDouble     ClickKind = "double"
	ClickDrop       ClickKind = "drop"

	// ClickAny matches every click kind when used as a handler binding.
	ClickAny ClickKind = "any"
)

// Click carries everything a handler needs about one click.
type Click struct {
	Viewer   Viewer
	View     *View
	Slot     int
	Kind     ClickKind
	Item     *ItemConfig
	Compiled *CompiledItem
}

// ClickHandler is a programmatic handler bound to a click kind on a
// ViewContext. Returning true marks the click handled.
type ClickHandler func(c Click) bool

// TypeHandler is a capability handler registered for an item type token.
// Its presence short-circuits the rest of the dispatch chain.
type TypeHandler func(c Click)

// ActionDispatcher runs configured action lists. The action dialect and its
// handlers live outside the engine; raw dialect lines are passed through
// untouched.
type ActionDispatcher interface {
	Dispatch(ctx context.Context, c Click, actions []string) error
}

// ConditionalActions is a conditions -> success/fail action block attached to
// an item.
type ConditionalActions struct {
	Conditions []string
	Success    []string
	Fail       []string
}

// NopDispatcher discards all actions. It is the default when no dispatcher is
// configured.
type NopDispatcher struct{}

// Dispatch implements ActionDispatcher.
func (NopDispatcher) Dispatch(context.Context, Click, []string) error { return nil }
