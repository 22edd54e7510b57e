package menu

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sharedConfig() *MenuConfig {
	return &MenuConfig{
		ID:     "auction",
		Title:  "Auction",
		Size:   9,
		Shared: true,
		Items: []*ItemConfig{
			{Key: "lot", Slots: []int{4}, Material: "chest", Name: "Lot"},
		},
	}
}

func openAuction(t *testing.T, m *Manager, viewers ...Viewer) *SharedSession {
	t.Helper()
	require.NoError(t, m.Register(sharedConfig()))
	id, err := m.OpenShared(viewers, "auction", nil)
	require.NoError(t, err)
	session := m.SharedSession(id)
	require.NotNil(t, session)
	return session
}

func twoViewers() []Viewer {
	return []Viewer{
		testViewer{id: "x1", name: "alice"},
		testViewer{id: "x2", name: "bob"},
	}
}

// TestOpenSharedMembers verifies every viewer gets their own view bound to
// the session.
func TestOpenSharedMembers(t *testing.T) {
	m, opener, _ := newTestManager()
	defer m.Shutdown()
	session := openAuction(t, m, twoViewers()...)

	assert.Equal(t, 2, session.MemberCount())
	for _, id := range []string{"x1", "x2"} {
		view := m.View(id)
		require.NotNil(t, view, id)
		assert.Equal(t, "auction", view.Menu().ID)
		require.NotNil(t, opener.surface(id).itemAt(4), id)
	}
}

// TestOpenSharedRejectsUnsharedMenu verifies only menus marked shared can be
// opened for multiple viewers.
func TestOpenSharedRejectsUnsharedMenu(t *testing.T) {
	m, _, _ := newTestManager()
	defer m.Shutdown()
	require.NoError(t, m.Register(&MenuConfig{ID: "solo", Title: "Solo", Size: 9}))

	_, err := m.OpenShared(twoViewers(), "solo", nil)
	assert.Error(t, err)
}

// TestBroadcastDebounce verifies rapid broadcasts coalesce into a single
// write of the latest value per cell at flush time.
func TestBroadcastDebounce(t *testing.T) {
	m, opener, _ := newTestManager()
	defer m.Shutdown()
	session := openAuction(t, m, twoViewers()...)

	for i := 0; i < 10; i++ {
		session.Broadcast(0, &CompiledItem{
			Material: "gold_ingot",
			Name:     fmt.Sprintf("Bid %d", i),
			Amount:   1,
		})
	}

	// Nothing reaches the members before the debounce flush.
	assert.Equal(t, 0, opener.surface("x1").writesTo(0))

	session.flush()

	for _, id := range []string{"x1", "x2"} {
		surface := opener.surface(id)
		assert.Equal(t, 1, surface.writesTo(0), "viewer %s sees one coalesced write", id)
		require.NotNil(t, surface.itemAt(0))
		assert.Equal(t, "Bid 9", surface.itemAt(0).Name)
	}
}

// TestBroadcastClearsCell verifies a nil broadcast empties the cell on every
// member.
func TestBroadcastClearsCell(t *testing.T) {
	m, opener, _ := newTestManager()
	defer m.Shutdown()
	session := openAuction(t, m, twoViewers()...)

	session.Broadcast(4, nil)
	session.flush()

	assert.Nil(t, opener.surface("x1").itemAt(4))
	assert.Nil(t, opener.surface("x2").itemAt(4))
}

// TestSharedMemberLeaves verifies a member closing only drops that member;
// later broadcasts still reach the rest.
func TestSharedMemberLeaves(t *testing.T) {
	m, opener, _ := newTestManager()
	defer m.Shutdown()
	session := openAuction(t, m, twoViewers()...)

	m.Close("x2")
	assert.Equal(t, 1, session.MemberCount())

	session.Broadcast(0, &CompiledItem{Material: "gold_ingot", Name: "Bid", Amount: 1})
	session.flush()
	assert.NotNil(t, opener.surface("x1").itemAt(0))
	assert.Nil(t, opener.surface("x2").itemAt(0))
}

// TestSharedLastMemberCloses verifies the session dissolves with its last
// member.
func TestSharedLastMemberCloses(t *testing.T) {
	m, _, _ := newTestManager()
	defer m.Shutdown()
	session := openAuction(t, m, twoViewers()...)
	id := session.ID()

	m.Close("x1")
	m.Close("x2")

	assert.Nil(t, m.SharedSession(id))
}

// TestSharedSessionClose verifies closing the session closes every member
// view.
func TestSharedSessionClose(t *testing.T) {
	m, _, _ := newTestManager()
	defer m.Shutdown()
	session := openAuction(t, m, twoViewers()...)

	session.Close()

	assert.Nil(t, m.View("x1"))
	assert.Nil(t, m.View("x2"))
	assert.Nil(t, m.SharedSession(session.ID()))
}

// TestAddSharedMember verifies late joins render the menu and receive
// subsequent broadcasts.
func TestAddSharedMember(t *testing.T) {
	m, opener, _ := newTestManager()
	defer m.Shutdown()
	session := openAuction(t, m, testViewer{id: "x1", name: "alice"})

	require.NoError(t, m.AddSharedMember(session.ID(), testViewer{id: "x3", name: "carol"}))
	assert.Equal(t, 2, session.MemberCount())

	session.Broadcast(0, &CompiledItem{Material: "gold_ingot", Name: "Bid", Amount: 1})
	session.flush()
	assert.NotNil(t, opener.surface("x3").itemAt(0))
}
