package menu

import (
	"fmt"

	"github.com/df-mc/dragonfly/server/item"
	"github.com/df-mc/dragonfly/server/item/enchantment"
	"github.com/df-mc/dragonfly/server/item/inventory"
	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/world"
)

// PlayerViewer adapts a Dragonfly player to the Viewer interface. The XUID
// is the stable identity; cache keys and persistence records survive name
// changes.
type PlayerViewer struct {
	p *player.Player
}

// NewPlayerViewer wraps a Dragonfly player.
func NewPlayerViewer(p *player.Player) *PlayerViewer {
	return &PlayerViewer{p: p}
}

// Player returns the wrapped player.
func (v *PlayerViewer) Player() *player.Player { return v.p }

// ID returns the player's XUID.
func (v *PlayerViewer) ID() string { return v.p.XUID() }

// Name returns the player's username.
func (v *PlayerViewer) Name() string { return v.p.Name() }

// StackFromItem converts a compiled item to a Dragonfly item stack.
func StackFromItem(it *CompiledItem) (item.Stack, error) {
	t, ok := world.ItemByName(namespacedMaterial(it.Material), 0)
	if !ok {
		return item.Stack{}, fmt.Errorf("menu: unknown material %q", it.Material)
	}
	count := it.Amount
	if count < 1 {
		count = 1
	}
	stack := item.NewStack(t, count)
	if it.Name != "" {
		stack = stack.WithCustomName(it.Name)
	}
	if len(it.Lore) > 0 {
		stack = stack.WithLore(it.Lore...)
	}
	if it.Glint {
		stack = stack.WithEnchantments(item.NewEnchantment(enchantment.Unbreaking, 1))
	}
	return stack, nil
}

func namespacedMaterial(material string) string {
	for i := 0; i < len(material); i++ {
		if material[i] == ':' {
			return material
		}
	}
	return "minecraft:" + material
}

// ShowFunc presents an inventory to a player under a title and returns a
// teardown callback. It is supplied by the integrating server, which owns
// the packet-level window handling.
type ShowFunc func(p *player.Player, inv *inventory.Inventory, title string) (close func(), err error)

// RetitleFunc updates an open window's title in place. Optional; without
// one the engine reopens the surface on title changes.
type RetitleFunc func(p *player.Player, title string) error

// InventorySurface renders into a Dragonfly inventory shown to one player.
type InventorySurface struct {
	inv      *inventory.Inventory
	p        *player.Player
	retitle  RetitleFunc
	teardown func()
}

// Size implements Surface.
func (s *InventorySurface) Size() int { return s.inv.Size() }

// SetItem implements Surface. A nil item clears the cell.
func (s *InventorySurface) SetItem(slot int, it *CompiledItem) error {
	if it == nil {
		s.Clear(slot)
		return nil
	}
	stack, err := StackFromItem(it)
	if err != nil {
		return err
	}
	return s.inv.SetItem(slot, stack)
}

// Clear implements Surface.
func (s *InventorySurface) Clear(slot int) {
	_ = s.inv.SetItem(slot, item.Stack{})
}

// SetTitle implements Surface.
func (s *InventorySurface) SetTitle(title string) error {
	if s.retitle == nil {
		return ErrTitleUnsupported
	}
	return s.retitle(s.p, title)
}

// Close implements Surface.
func (s *InventorySurface) Close() error {
	if s.teardown != nil {
		s.teardown()
	}
	return nil
}

// Inventory returns the backing inventory, for wiring click callbacks on the
// host side.
func (s *InventorySurface) Inventory() *inventory.Inventory { return s.inv }

// InventoryOpener opens InventorySurfaces for PlayerViewers.
type InventoryOpener struct {
	show    ShowFunc
	retitle RetitleFunc
}

// NewInventoryOpener builds the Dragonfly surface opener. The retitle hook
// may be nil.
func NewInventoryOpener(show ShowFunc, retitle RetitleFunc) *InventoryOpener {
	return &InventoryOpener{show: show, retitle: retitle}
}

// OpenSurface implements SurfaceOpener. The viewer must be a PlayerViewer.
func (o *InventoryOpener) OpenSurface(v Viewer, title string, size int) (Surface, error) {
	pv, ok := v.(*PlayerViewer)
	if !ok {
		return nil, fmt.Errorf("menu: viewer %q is not a player", v.Name())
	}
	inv := inventory.New(size, nil)
	teardown, err := o.show(pv.p, inv, title)
	if err != nil {
		return nil, fmt.Errorf("menu: showing inventory: %w", err)
	}
	return &InventorySurface{inv: inv, p: pv.p, retitle: o.retitle, teardown: teardown}, nil
}
