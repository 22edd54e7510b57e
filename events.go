package menu

// Session lifecycle events, dispatched to registered observers. Observers run
// synchronously on the thread emitting the event and must not block.

// OpenEvent is emitted after a view's first render completes.
type OpenEvent struct {
	View *View
}

// CloseEvent is emitted when a view closes.
type CloseEvent struct {
	View *View
}

// ClickEvent is emitted for every click passing its predicates, before the
// dispatch chain runs.
type ClickEvent struct {
	View  *View
	Click Click
}

// PageChangeEvent is emitted after a page change re-renders.
type PageChangeEvent struct {
	View *View
	Page int
}

// TabSwitchEvent is emitted after a tab switch re-renders.
type TabSwitchEvent struct {
	View *View
	Tab  string
}

// Observer receives session lifecycle events. Register with
// Manager.Observe.
type Observer interface {
	HandleMenuEvent(event any)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(event any)

// HandleMenuEvent implements Observer.
func (f ObserverFunc) HandleMenuEvent(event any) { f(event) }
