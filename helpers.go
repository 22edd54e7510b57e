package menu

import (
	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/df-mc/dragonfly/server/player"

	"github.com/google/uuid"
)

// Player returns a Dragonfly player's open view. Returns nil when the player
// has no menu open.
func (m *Manager) Player(p *player.Player) *View {
	return m.View(p.XUID())
}

// OpenPlayer opens a menu for a Dragonfly player.
//
// Usage:
//
//	func (h *LobbyHandler) HandleItemUse(ctx *player.Context) {
//	    if _, err := menus.OpenPlayer(ctx.Val(), "lobby:selector", nil); err != nil {
//	        ctx.Val().Message("Could not open the selector.")
//	    }
//	}
func (m *Manager) OpenPlayer(p *player.Player, menuID string, vctx *ViewContext) (uuid.UUID, error) {
	return m.Open(NewPlayerViewer(p), menuID, vctx)
}

// Command extracts the player and their open view from a command source.
// Returns (nil, nil) if the source is not a player; the view is nil when the
// player has no menu open.
//
// Usage:
//
//	func (c ShopCommand) Run(src cmd.Source, out *cmd.Output, tx *world.Tx) {
//	    p, view := menu.Command(menus, src)
//	    if p == nil {
//	        out.Error("Player-only command")
//	        return
//	    }
//	    // Use p and view...
//	}
func Command(m *Manager, src cmd.Source) (*player.Player, *View) {
	p, ok := src.(*player.Player)
	if !ok {
		return nil, nil
	}
	return p, m.Player(p)
}
