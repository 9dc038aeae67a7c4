package extension

import "sort"

// CallbackFields registers simple callback fields for types defined by other
// extensions, keyed by type name. It contributes no SDL.
type CallbackFields map[string][]string

var _ Extension = CallbackFields(nil)

func (CallbackFields) ID() string  { return "callback_fields" }
func (CallbackFields) SDL() string { return "" }

func (c CallbackFields) RegisterResolvers(a *Assembly) {
	types := make([]string, 0, len(c))
	for t := range c {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		a.AddSimpleCallbackFields(t, c[t]...)
	}
}
