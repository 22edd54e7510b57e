package menu

import "unicode"

// Layout grid markers. Content cells fill strictly in row-major order.
const (
	contentMarker = 'x'
	prevMarker    = '<'
	nextMarker    = '>'
)

// defaultContentSource is the ViewContext data slot the content list is read
// from when the config names none.
const defaultContentSource = "content"

// PaginatedView is the concrete cell assignment for one page of one content
// list. It is recomputed on every page change and never cached across render
// passes: content lists can change between opens.
type PaginatedView struct {
	// Page is the clamped current page, 1-based.
	Page int

	// TotalPages is max(1, ceil(contentLen / itemsPerPage)).
	TotalPages int

	// Assignments maps a content slot to the index of the content entry
	// rendered in it. Unassigned content slots stay reserved but empty.
	Assignments map[int]int

	// ContentSlots is the full content slot set for the page, assigned or
	// not. A fill-all-empty-cells item must never overwrite these.
	ContentSlots []int

	// PrevSlots and NextSlots carry the navigation cells. Navigation items
	// are omitted entirely (not just disabled) when the corresponding move
	// is unavailable.
	PrevSlots []int
	NextSlots []int

	// HasPrev and HasNext flag navigation availability.
	HasPrev bool
	HasNext bool

	// Offset is the index of the first content entry on the page, for
	// native mode where the host does its own paging.
	Offset int

	// PerPage is the resolved items-per-page.
	PerPage int
}

// paginate computes the view for a page of a content list. Page numbers are
// clamped into [1, TotalPages], never rejected; an empty content list yields
// one page with no assignments.
func paginate(cfg *PaginationConfig, page, contentLen int) *PaginatedView {
	contentSlots := resolveContentSlots(cfg)
	prevSlots, nextSlots := resolveNavSlots(cfg)

	perPage := cfg.ItemsPerPage
	if perPage <= 0 {
		perPage = len(contentSlots)
	}
	if perPage <= 0 {
		perPage = 1
	}

	total := (contentLen + perPage - 1) / perPage
	if total < 1 {
		total = 1
	}

	if page < 1 {
		page = 1
	}
	if page > total {
		page = total
	}

	pv := &PaginatedView{
		Page:         page,
		TotalPages:   total,
		ContentSlots: contentSlots,
		PrevSlots:    prevSlots,
		NextSlots:    nextSlots,
		HasPrev:      page > 1,
		HasNext:      page < total,
		Offset:       (page - 1) * perPage,
		PerPage:      perPage,
	}

	if cfg.Mode == PageNative {
		// The host pages natively; the engine only tracks offsets.
		return pv
	}

	pv.Assignments = make(map[int]int)
	for i, slot := range contentSlots {
		if i >= perPage {
			break
		}
		idx := pv.Offset + i
		if idx >= contentLen {
			break
		}
		pv.Assignments[slot] = idx
	}
	return pv
}

// resolveContentSlots derives the content cell list for a config. Layout mode
// always scans the grid; hybrid prefers the explicit list and falls back to
// the grid.
func resolveContentSlots(cfg *PaginationConfig) []int {
	switch cfg.Mode {
	case PageLayout:
		return scanLayout(cfg.Layout, contentMarker)
	case PageHybrid:
		if len(cfg.ContentSlots) > 0 {
			return cfg.ContentSlots
		}
		return scanLayout(cfg.Layout, contentMarker)
	default:
		return nil
	}
}

// resolveNavSlots derives the navigation cells: explicit configuration wins
// over layout markers.
func resolveNavSlots(cfg *PaginationConfig) (prev, next []int) {
	prev = cfg.PrevSlots
	if len(prev) == 0 {
		prev = scanLayout(cfg.Layout, prevMarker)
	}
	next = cfg.NextSlots
	if len(next) == 0 {
		next = scanLayout(cfg.Layout, nextMarker)
	}
	return prev, next
}

// scanLayout collects the cells carrying a marker, row-major. Marker matching
// is case-insensitive for letter markers.
func scanLayout(rows []string, marker rune) []int {
	var slots []int
	slot := 0
	for _, row := range rows {
		for _, r := range row {
			if unicode.ToLower(r) == marker {
				slots = append(slots, slot)
			}
			slot++
		}
	}
	return slots
}
