package menu

import "strings"

// Translator resolves translation-table placeholders. Translation lookups
// are viewer-independent and therefore do not force viewer-scoped caching.
type Translator interface {
	Translate(key string) (string, bool)
}

// PlaceholderProvider is the narrow contract to an external dynamic-text
// source. Any value it supplies is viewer-dependent, so items resolving
// through a provider always get a viewer-scoped cache key.
type PlaceholderProvider interface {
	Resolve(viewer Viewer, key string) (string, bool)
}

// maxSubstitutionPasses bounds recursive placeholder expansion. A pass that
// changes nothing terminates substitution early.
const maxSubstitutionPasses = 10

// substituter resolves %key% tokens for one item render. Sources are
// consulted in priority order: the item-local map, the translation table,
// the view context, then external providers.
type substituter struct {
	translator Translator
	providers  []PlaceholderProvider
	viewer     Viewer
	vctx       *ViewContext
	local      map[string]string

	// contextAware is set once any value came from the view context or an
	// external provider. Such a render must not share a cache entry across
	// viewers.
	contextAware bool
}

// resolve resolves a single placeholder key.
func (s *substituter) resolve(key string) (string, bool) {
	if v, ok := s.local[key]; ok {
		return v, true
	}
	if s.translator != nil {
		if v, ok := s.translator.Translate(key); ok {
			return v, true
		}
	}
	if s.vctx != nil {
		if v, ok := s.vctx.Placeholder(key); ok {
			s.contextAware = true
			return v, true
		}
	}
	for _, p := range s.providers {
		if v, ok := p.Resolve(s.viewer, key); ok {
			s.contextAware = true
			return v, true
		}
	}
	return "", false
}

// run substitutes all %key% tokens, iterating so that placeholders may expand
// into further placeholders, up to maxSubstitutionPasses.
func (s *substituter) run(in string) string {
	if !strings.ContainsRune(in, '%') {
		return in
	}
	out := in
	for pass := 0; pass < maxSubstitutionPasses; pass++ {
		next := s.pass(out)
		if next == out {
			break
		}
		out = next
	}
	return out
}

// runAll substitutes every string in place-order and returns the results.
func (s *substituter) runAll(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	for i, line := range in {
		out[i] = s.run(line)
	}
	return out
}

// pass performs one substitution pass over the input.
func (s *substituter) pass(in string) string {
	var b strings.Builder
	b.Grow(len(in))

	for i := 0; i < len(in); {
		start := strings.IndexByte(in[i:], '%')
		if start < 0 {
			b.WriteString(in[i:])
			break
		}
		start += i
		b.WriteString(in[i:start])

		end := strings.IndexByte(in[start+1:], '%')
		if end < 0 {
			// Unmatched marker, keep verbatim.
			b.WriteString(in[start:])
			break
		}
		end += start + 1

		key := in[start+1 : end]
		if v, ok := s.resolve(key); ok {
			b.WriteString(v)
		} else {
			// Unknown token stays untouched, including its markers.
			b.WriteString(in[start : end+1])
		}
		i = end + 1
	}
	return b.String()
}
