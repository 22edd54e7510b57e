package menu

import "errors"

// Viewer identifies the actor a menu instance is rendered for.
// For Dragonfly players the ID is the player's XUID.
type Viewer interface {
	// ID returns a stable identity for the viewer. It is embedded in
	// viewer-scoped cache keys and persistence records.
	ID() string

	// Name returns a display name for logging.
	Name() string
}

// ErrTitleUnsupported is returned by surfaces that cannot update their title
// in place. The engine falls back to a full reopen in that case.
var ErrTitleUnsupported = errors.New("menu: surface does not support title updates")

// Surface is one open grid the engine renders into. Cell writes may also
// originate from the engine's tick goroutine (shared-session flushes, title
// refreshes); implementations marshal to the host thread as needed.
type Surface interface {
	// Size returns the number of addressable cells.
	Size() int

	// SetItem writes a compiled item into a cell.
	SetItem(slot int, it *CompiledItem) error

	// Clear empties a cell.
	Clear(slot int)

	// SetTitle updates the surface title in place. Surfaces without
	// packet-level title support return ErrTitleUnsupported.
	SetTitle(title string) error

	// Close tears the surface down on the host side.
	Close() error
}

// SurfaceOpener creates render surfaces. Implemented by the host adapter;
// see NewInventoryOpener for the Dragonfly implementation.
type SurfaceOpener interface {
	OpenSurface(v Viewer, title string, size int) (Surface, error)
}
