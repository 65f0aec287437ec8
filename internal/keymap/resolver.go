package keymap

import (
	"cmp"
	"slices"
)

// Resolver maps key strings, as reported by tea.KeyMsg.String, to actions.
// What a key does depends on the Mode it is pressed in.
type Resolver struct {
	contexts map[string]map[string]Action // context -> key -> action
}

// NewResolver indexes bindings by context. A key bound twice in one
// context resolves to the later binding.
func NewResolver(bindings []Binding) *Resolver {
	r := &Resolver{contexts: make(map[string]map[string]Action)}
	for _, b := range bindings {
		keys := r.contexts[b.Context]
		if keys == nil {
			keys = make(map[string]Action)
			r.contexts[b.Context] = keys
		}
		for _, key := range b.Keys {
			keys[key] = b.Action
		}
	}
	return r
}

// Resolve returns the action for key in mode, or "" if the key does
// nothing there.
func (r *Resolver) Resolve(mode Mode, key string) Action {
	for _, ctx := range modeContexts[mode] {
		if action, ok := r.contexts[ctx][key]; ok {
			return action
		}
	}
	return ""
}

// KeysFor returns the keys that trigger action in mode, sorted, for hints.
// A key shadowed by an earlier context of the mode is left out.
func (r *Resolver) KeysFor(mode Mode, action Action) []string {
	var keys []string
	for _, ctx := range modeContexts[mode] {
		for key, a := range r.contexts[ctx] {
			if a == action && r.Resolve(mode, key) == action && !slices.Contains(keys, key) {
				keys = append(keys, key)
			}
		}
	}
	slices.SortFunc(keys, compareKeys)
	return keys
}

// compareKeys orders named keys ("enter") before single characters, then
// alphabetically, so hints lead with the most readable key.
func compareKeys(a, b string) int {
	if na, nb := len(a) > 1, len(b) > 1; na != nb {
		if na {
			return -1
		}
		return 1
	}
	return cmp.Compare(a, b)
}
