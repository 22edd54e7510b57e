package menu

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shopConfig() *MenuConfig {
	return &MenuConfig{
		ID:    "shop",
		Title: "Shop %page%/%total_pages%",
		Size:  27,
		Items: []*ItemConfig{
			{Key: "border", Material: "black_stained_glass_pane", Name: " ", FillEmpty: true},
			{Key: "info", Slots: []int{4}, Material: "book", Name: "Info"},
		},
		Pagination: &PaginationConfig{
			Mode: PageLayout,
			Layout: []string{
				"#########",
				"#xxxxxxx#",
				"#<#####>#",
			},
			Navigation:    true,
			ContentSource: "wares",
			ContentItem:   &ItemConfig{Key: "ware", Material: "paper", Name: "%entry%"},
			PrevItem:      &ItemConfig{Key: "prev", Slots: []int{19}, Material: "arrow", Name: "Previous"},
			NextItem:      &ItemConfig{Key: "next", Slots: []int{25}, Material: "arrow", Name: "Next"},
		},
	}
}

func wares(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("ware-%02d", i)
	}
	return out
}

func openShop(t *testing.T, m *Manager, opener *testOpener) (*View, *testSurface) {
	t.Helper()
	require.NoError(t, m.Register(shopConfig()))

	vctx := NewViewContext()
	vctx.SetData("wares", wares(20))

	viewer := testViewer{id: "x1", name: "alice"}
	_, err := m.Open(viewer, "shop", vctx)
	require.NoError(t, err)

	view := m.View("x1")
	require.NotNil(t, view)
	return view, opener.surface("x1")
}

// TestRenderLayerOverlay verifies the full overlay on a paginated 27-cell
// menu: static items, content cells, navigation, fillers and reserved cells.
func TestRenderLayerOverlay(t *testing.T) {
	m, opener, _ := newTestManager()
	defer m.Shutdown()
	view, surface := openShop(t, m, opener)

	assert.Equal(t, 1, view.Page())

	// Static layer.
	require.NotNil(t, surface.itemAt(4))
	assert.Equal(t, "Info", surface.itemAt(4).Name)

	// Content cells 10-16 carry the first seven entries.
	for i, slot := range []int{10, 11, 12, 13, 14, 15, 16} {
		it := surface.itemAt(slot)
		require.NotNil(t, it, "slot %d", slot)
		assert.Equal(t, fmt.Sprintf("ware-%02d", i), it.Name, "slot %d", slot)
		assert.Equal(t, "paper", it.Material)
	}

	// Navigation: no previous on page one, next present.
	assert.Nil(t, surface.itemAt(19))
	require.NotNil(t, surface.itemAt(25))
	assert.Equal(t, "Next", surface.itemAt(25).Name)

	// Fillers cover the remaining cells but never the reserved ones.
	for _, slot := range []int{0, 8, 9, 17, 18, 26} {
		it := surface.itemAt(slot)
		require.NotNil(t, it, "slot %d", slot)
		assert.Equal(t, "black_stained_glass_pane", it.Material, "slot %d", slot)
	}

	assert.Equal(t, "Shop 1/3", surface.title)
}

// TestRenderLastPagePartial verifies unassigned content cells on the last
// page stay empty instead of being filled.
func TestRenderLastPagePartial(t *testing.T) {
	m, opener, _ := newTestManager()
	defer m.Shutdown()
	view, surface := openShop(t, m, opener)

	require.NoError(t, view.SetPage(3))
	assert.Equal(t, 3, view.Page())

	// 20 entries, 7 per page: the last page holds six.
	require.NotNil(t, surface.itemAt(10))
	assert.Equal(t, "ware-14", surface.itemAt(10).Name)
	require.NotNil(t, surface.itemAt(15))
	assert.Equal(t, "ware-19", surface.itemAt(15).Name)
	assert.Nil(t, surface.itemAt(16), "unfilled content cell stays reserved and empty")

	// Navigation flips: previous present, next gone.
	require.NotNil(t, surface.itemAt(19))
	assert.Equal(t, "Previous", surface.itemAt(19).Name)
	assert.Nil(t, surface.itemAt(25))

	assert.Equal(t, "Shop 3/3", surface.title)
}

// TestPageNavigationClamps verifies prev/next clamp at the edges rather than
// erroring.
func TestPageNavigationClamps(t *testing.T) {
	m, opener, _ := newTestManager()
	defer m.Shutdown()
	view, _ := openShop(t, m, opener)

	require.NoError(t, view.PrevPage())
	assert.Equal(t, 1, view.Page())

	require.NoError(t, view.NextPage())
	assert.Equal(t, 2, view.Page())

	require.NoError(t, view.SetPage(99))
	assert.Equal(t, 3, view.Page())
}

// TestRenderContextOverrides verifies externally injected overrides beat
// every other layer.
func TestRenderContextOverrides(t *testing.T) {
	m, opener, _ := newTestManager()
	defer m.Shutdown()
	view, surface := openShop(t, m, opener)

	view.Context().SetOverride(4, &ItemConfig{Key: "special", Material: "emerald", Name: "Special"})
	require.NoError(t, view.Render())

	require.NotNil(t, surface.itemAt(4))
	assert.Equal(t, "Special", surface.itemAt(4).Name)
}

// TestRenderTabItemsWin verifies the active tab's items overlay the base set
// and switching tabs swaps the cell.
func TestRenderTabItemsWin(t *testing.T) {
	m, opener, _ := newTestManager()
	defer m.Shutdown()

	cfg := &MenuConfig{
		ID:    "tabbed",
		Title: "Tabbed",
		Size:  9,
		Items: []*ItemConfig{
			{Key: "base", Slots: []int{0}, Material: "stone", Name: "Base"},
		},
		Tabs: []*TabConfig{
			{ID: "first", Default: true, Items: []*ItemConfig{
				{Key: "sword", Slots: []int{0}, Material: "iron_sword", Name: "Sword"},
			}},
			{ID: "second", Items: []*ItemConfig{
				{Key: "apple", Slots: []int{1}, Material: "apple", Name: "Apple"},
			}},
		},
	}
	require.NoError(t, m.Register(cfg))
	_, err := m.Open(testViewer{id: "x1", name: "alice"}, "tabbed", nil)
	require.NoError(t, err)
	view := m.View("x1")
	surface := opener.surface("x1")

	require.NotNil(t, surface.itemAt(0))
	assert.Equal(t, "Sword", surface.itemAt(0).Name, "tab item wins the overlapping cell")

	require.NoError(t, view.SwitchTab("second"))
	assert.Equal(t, "Base", surface.itemAt(0).Name, "base item returns when the tab no longer covers it")
	require.NotNil(t, surface.itemAt(1))
	assert.Equal(t, "Apple", surface.itemAt(1).Name)
}

// TestRenderHiddenByViewCondition verifies an unsatisfied view condition
// leaves the cell empty without failing the pass.
func TestRenderHiddenByViewCondition(t *testing.T) {
	m, opener, _ := newTestManager(func(b *Builder) {
		b.Evaluator(stubEvaluator{truths: map[string]bool{"is_admin": false}})
	})
	defer m.Shutdown()

	cfg := &MenuConfig{
		ID:    "lobby",
		Title: "Lobby",
		Size:  9,
		Items: []*ItemConfig{
			{Key: "admin", Slots: []int{0}, Material: "command_block", ViewConditions: []string{"is_admin"}},
			{Key: "public", Slots: []int{1}, Material: "compass", Name: "Warp"},
		},
	}
	require.NoError(t, m.Register(cfg))
	_, err := m.Open(testViewer{id: "x1", name: "alice"}, "lobby", nil)
	require.NoError(t, err)
	surface := opener.surface("x1")

	assert.Nil(t, surface.itemAt(0))
	require.NotNil(t, surface.itemAt(1))
	assert.Equal(t, "Warp", surface.itemAt(1).Name)
}

// TestTitleFallbackReopens verifies a surface without in-place title support
// degrades to a reopen that restores every cell.
func TestTitleFallbackReopens(t *testing.T) {
	m, opener, _ := newTestManager()
	defer m.Shutdown()
	opener.titleErr = ErrTitleUnsupported

	view, _ := openShop(t, m, opener)

	// The open itself already reopened once for the title.
	require.GreaterOrEqual(t, opener.surfaceCount("x1"), 2)

	require.NoError(t, view.SetPage(2))
	surface := opener.surface("x1")
	require.NotNil(t, surface.itemAt(10))
	assert.Equal(t, "ware-07", surface.itemAt(10).Name, "the reopened surface carries the rendered cells")
}

// TestSurfaceSwapDuringWrites verifies the title-refresh reopen can swap the
// surface while cells are still being pushed from broadcasts.
func TestSurfaceSwapDuringWrites(t *testing.T) {
	m, opener, _ := newTestManager()
	defer m.Shutdown()
	view, _ := openShop(t, m, opener)

	it := &CompiledItem{Material: "emerald", Name: "Bid"}
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			assert.NoError(t, view.reopenSurface("Shop"))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			view.writeCell(4, it)
		}
	}()
	wg.Wait()

	require.NotNil(t, view.sfc())
	assert.GreaterOrEqual(t, opener.surfaceCount("x1"), 101)
	assert.Equal(t, "Bid", view.ItemAt(4).Name)
}

// TestCloseTearsDown verifies close is idempotent, closes the surface and
// unregisters the view.
func TestCloseTearsDown(t *testing.T) {
	m, opener, _ := newTestManager()
	defer m.Shutdown()
	view, surface := openShop(t, m, opener)

	m.Close("x1")
	assert.True(t, view.Closed())
	assert.True(t, surface.closed)
	assert.Nil(t, m.View("x1"))

	m.Close("x1") // second close is a no-op
}

// TestOpenReplacesExisting verifies opening a second menu closes the
// viewer's previous view first.
func TestOpenReplacesExisting(t *testing.T) {
	m, opener, _ := newTestManager()
	defer m.Shutdown()
	first, _ := openShop(t, m, opener)

	require.NoError(t, m.Register(&MenuConfig{ID: "other", Title: "Other", Size: 9}))
	_, err := m.Open(testViewer{id: "x1", name: "alice"}, "other", nil)
	require.NoError(t, err)

	assert.True(t, first.Closed())
	assert.Equal(t, "other", m.View("x1").Menu().ID)
}

// TestRenderTwoPageFill verifies a 27-cell grid with 14 content cells and 20
// entries: full first page, partial second, fillers never entering content
// cells.
func TestRenderTwoPageFill(t *testing.T) {
	m, opener, _ := newTestManager()
	defer m.Shutdown()

	contentSlots := make([]int, 0, 14)
	for slot := 9; slot < 23; slot++ {
		contentSlots = append(contentSlots, slot)
	}
	cfg := &MenuConfig{
		ID:    "catalog",
		Title: "Catalog",
		Size:  27,
		Items: []*ItemConfig{
			{Key: "filler", Material: "gray_stained_glass_pane", Name: " ", FillEmpty: true},
		},
		Pagination: &PaginationConfig{
			Mode:         PageHybrid,
			ContentSlots: contentSlots,
			ItemsPerPage: 14,
			ContentItem:  &ItemConfig{Key: "entry", Material: "paper", Name: "%entry%"},
		},
	}
	require.NoError(t, m.Register(cfg))

	vctx := NewViewContext()
	vctx.SetData("content", wares(20))
	_, err := m.Open(testViewer{id: "x1", name: "alice"}, "catalog", vctx)
	require.NoError(t, err)
	view := m.View("x1")
	surface := opener.surface("x1")

	pv := paginate(cfg.Pagination, 1, 20)
	assert.Equal(t, 2, pv.TotalPages)

	// Page 1: entries 0-13 fill every content cell.
	for i, slot := range contentSlots {
		require.NotNil(t, surface.itemAt(slot), "slot %d", slot)
		assert.Equal(t, fmt.Sprintf("ware-%02d", i), surface.itemAt(slot).Name)
	}
	assert.Equal(t, "gray_stained_glass_pane", surface.itemAt(0).Material)

	// Page 2: entries 14-19, remaining content cells empty, never filled.
	require.NoError(t, view.SetPage(2))
	for i := 0; i < 6; i++ {
		slot := contentSlots[i]
		require.NotNil(t, surface.itemAt(slot), "slot %d", slot)
		assert.Equal(t, fmt.Sprintf("ware-%02d", 14+i), surface.itemAt(slot).Name)
	}
	for _, slot := range contentSlots[6:] {
		assert.Nil(t, surface.itemAt(slot), "reserved content cell %d stays empty", slot)
	}
	assert.Equal(t, "gray_stained_glass_pane", surface.itemAt(26).Material)
}
