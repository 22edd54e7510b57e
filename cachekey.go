package menu

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// titleItemKey is the item identity under which rendered titles are cached.
// It keeps title entries distinct from item entries so that item-only
// invalidation leaves them intact.
const titleItemKey = "\x00title"

// CacheKey identifies one cached compilation: the (menu, item, variant)
// identity plus, for items with dynamic inputs, the viewer and a hash of the
// resolved dynamic values.
//
// Two otherwise-identical items with different dynamic inputs get different
// keys; two identical items with no dynamic inputs collapse to one key
// regardless of viewer.
type CacheKey struct {
	Menu    string
	Item    string
	Variant string

	// ViewerScoped marks keys embedding the viewer identity. Set when the
	// item declares dynamic placeholders or resolved any context-aware
	// placeholder.
	ViewerScoped bool

	// Viewer is the viewer id, "" unless ViewerScoped.
	Viewer string

	// Dynamic is the hash of the resolved dynamic placeholder values, 0
	// when the item declares none.
	Dynamic uint64
}

// String renders the key's canonical map form.
func (k CacheKey) String() string {
	var b strings.Builder
	b.Grow(len(k.Menu) + len(k.Item) + len(k.Variant) + len(k.Viewer) + 24)
	b.WriteString(k.Menu)
	b.WriteByte('/')
	b.WriteString(k.Item)
	b.WriteByte('/')
	b.WriteString(k.Variant)
	if k.ViewerScoped {
		b.WriteByte('@')
		b.WriteString(k.Viewer)
	}
	if k.Dynamic != 0 {
		b.WriteByte('#')
		b.WriteString(strconv.FormatUint(k.Dynamic, 16))
	}
	return b.String()
}

// isTitle reports whether the key caches a rendered title.
func (k CacheKey) isTitle() bool {
	return k.Item == titleItemKey
}

// deriveKey computes the cache key for a resolved item definition. The
// substituter must already have resolved the declared dynamic placeholder
// values; contextAware carries whether any context-scoped source was
// consulted.
func deriveKey(menuID string, def *ItemConfig, variant string, viewer Viewer, sub *substituter) CacheKey {
	key := CacheKey{
		Menu:    menuID,
		Item:    def.Key,
		Variant: variant,
	}

	if len(def.DynamicPlaceholders) > 0 {
		d := xxhash.New()
		for _, ph := range def.DynamicPlaceholders {
			v, _ := sub.resolve(ph)
			_, _ = d.WriteString(ph)
			_, _ = d.Write([]byte{0})
			_, _ = d.WriteString(v)
			_, _ = d.Write([]byte{0})
		}
		key.Dynamic = d.Sum64()
		key.ViewerScoped = true
	}

	// Any context-aware substitution forces a viewer-scoped key, even
	// without an explicit dynamic-placeholder declaration.
	if sub.contextAware {
		key.ViewerScoped = true
	}

	if key.ViewerScoped && viewer != nil {
		key.Viewer = viewer.ID()
	}
	return key
}
