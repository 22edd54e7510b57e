// Package menu provides an inventory GUI rendering and synchronization engine
// for Dragonfly servers.
//
// The engine turns declarative menu definitions into rendered grids of
// interactive items, keeps rendering cheap through a TTL compilation cache,
// supports paginated, tabbed and shared layouts, and persists per-viewer menu
// state across sessions.
//
// # Quick Start
//
// Load menu definitions and open one for a player:
//
//	mngr := menu.NewBuilder().
//	    Evaluator(eval).
//	    Dispatcher(actions).
//	    Store(store).
//	    Opener(opener).
//	    Init()
//	mngr.Start()
//
//	count, err := mngr.RegisterFile("menus/shop.yml")
//	if err != nil {
//	    panic(err)
//	}
//
//	id, err := mngr.Open(viewer, "shop", menu.NewViewContext())
//
// # Definitions
//
// Menus are declared in YAML documents keyed by menu id. Items are keyed by
// cell-range expressions such as "13", "0-8" or "0;4;8", and may carry
// conditional variants, click actions per click kind, pagination layouts and
// tab sets. See RegisterFile for the document format.
//
// # Collaborators
//
// The engine consumes a handful of narrow contracts supplied by the host:
//
//	Evaluator            predicate/condition evaluation (a CEL default ships)
//	ActionDispatcher     runs configured action lists on clicks
//	Translator           translation-table placeholder lookups
//	PlaceholderProvider  external dynamic text substitution
//	StateStore           durable menu state (in-memory and sqlite ship)
//	SurfaceOpener        creates the host render surface for a viewer
//
// # Concurrency
//
// Open, Close and click dispatch must run on the host's main thread. Item
// compilation and persistence I/O run asynchronously and are joined before a
// render pass writes any cell, so a render never observes a partially
// computed item.
package menu

// Version is the menu engine version.
const Version = "1.0.0"
