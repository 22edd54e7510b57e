package menu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type mapTranslator map[string]string

func (t mapTranslator) Translate(key string) (string, bool) {
	v, ok := t[key]
	return v, ok
}

// TestSubstituterPriority verifies resolution order: item-local values beat
// the translation table, which beats the view context, which beats external
// providers.
func TestSubstituterPriority(t *testing.T) {
	vctx := NewViewContext()
	vctx.SetPlaceholder("b", "ctx-b")
	vctx.SetPlaceholder("c", "ctx-c")

	s := &substituter{
		translator: mapTranslator{"a": "tr-a", "b": "tr-b"},
		providers:  []PlaceholderProvider{staticProvider{values: map[string]string{"d": "pr-d"}}},
		viewer:     testViewer{id: "x1", name: "alice"},
		vctx:       vctx,
		local:      map[string]string{"a": "local-a"},
	}

	assert.Equal(t, "local-a tr-b ctx-c pr-d", s.run("%a% %b% %c% %d%"))
}

// TestSubstituterContextAware verifies only context and provider resolutions
// mark the render viewer-dependent.
func TestSubstituterContextAware(t *testing.T) {
	vctx := NewViewContext()
	vctx.SetPlaceholder("balance", "120")

	s := &substituter{
		translator: mapTranslator{"greeting": "Welcome"},
		vctx:       vctx,
		local:      map[string]string{"shop": "Blacksmith"},
	}
	s.run("%greeting% to the %shop%")
	assert.False(t, s.contextAware, "local and translated values are shared across viewers")

	s.run("Balance: %balance%")
	assert.True(t, s.contextAware)
}

// TestSubstituterRecursiveExpansion verifies placeholders may expand into
// further placeholders.
func TestSubstituterRecursiveExpansion(t *testing.T) {
	s := &substituter{
		local: map[string]string{
			"outer": "a %inner% c",
			"inner": "b",
		},
	}
	assert.Equal(t, "a b c", s.run("%outer%"))
}

// TestSubstituterPassBound verifies self-referential placeholders terminate
// at the pass bound instead of looping.
func TestSubstituterPassBound(t *testing.T) {
	s := &substituter{
		local: map[string]string{"loop": "x%loop%"},
	}
	out := s.run("%loop%")
	assert.Equal(t, "xxxxxxxxxx%loop%", out)
}

// TestSubstituterUnknownToken verifies unknown tokens keep their markers and
// unmatched markers pass through verbatim.
func TestSubstituterUnknownToken(t *testing.T) {
	s := &substituter{local: map[string]string{"known": "v"}}

	assert.Equal(t, "v and %unknown%", s.run("%known% and %unknown%"))
	assert.Equal(t, "50% off", s.run("50% off"))
}

// TestSubstituterRunAll verifies lore lines substitute independently.
func TestSubstituterRunAll(t *testing.T) {
	s := &substituter{local: map[string]string{"price": "100"}}

	out := s.runAll([]string{"Costs %price%.", "No tokens."})
	assert.Equal(t, []string{"Costs 100.", "No tokens."}, out)
	assert.Nil(t, s.runAll(nil))
}
