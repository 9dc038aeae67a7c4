package executor

import (
	"github.com/hanpama/thundergql/internal/language"
	"github.com/hanpama/thundergql/internal/schema"
)

// fieldGroup is the set of fields sharing one response name.
type fieldGroup struct {
	ResponseName string
	Fields       []*language.Field
}

// collectFields groups the fields of a selection set by response name, in
// query order, expanding fragments that apply to objectType.
func (ex *execution) collectFields(objectType *schema.Type, selectionSet language.SelectionSet) []fieldGroup {
	var groups []fieldGroup
	index := make(map[string]int)
	visited := make(map[string]bool)

	var collect func(language.SelectionSet)
	collect = func(set language.SelectionSet) {
		for _, selection := range set {
			switch sel := selection.(type) {
			case *language.Field:
				if !ex.included(sel.Directives) {
					continue
				}
				name := sel.Alias
				if name == "" {
					name = sel.Name
				}
				if i, ok := index[name]; ok {
					groups[i].Fields = append(groups[i].Fields, sel)
					continue
				}
				index[name] = len(groups)
				groups = append(groups, fieldGroup{ResponseName: name, Fields: []*language.Field{sel}})

			case *language.InlineFragment:
				if !ex.included(sel.Directives) || !ex.fragmentApplies(objectType, sel.TypeCondition) {
					continue
				}
				collect(sel.SelectionSet)

			case *language.FragmentSpread:
				if !ex.included(sel.Directives) || visited[sel.Name] {
					continue
				}
				visited[sel.Name] = true
				def := ex.doc.Fragments.ForName(sel.Name)
				if def == nil || !ex.fragmentApplies(objectType, def.TypeCondition) {
					continue
				}
				collect(def.SelectionSet)
			}
		}
	}
	collect(selectionSet)
	return groups
}

// fragmentApplies reports whether a fragment with the given type condition
// applies to objectType: the same type, an interface it implements, or a
// union containing it.
func (ex *execution) fragmentApplies(objectType *schema.Type, condition string) bool {
	if condition == "" || condition == objectType.Name {
		return true
	}
	return ex.schema.IsPossibleType(condition, objectType.Name)
}

// included evaluates @skip and @include.
func (ex *execution) included(directives language.DirectiveList) bool {
	if d := directives.ForName("skip"); d != nil && ex.directiveFlag(d.Arguments) {
		return false
	}
	if d := directives.ForName("include"); d != nil && !ex.directiveFlag(d.Arguments) {
		return false
	}
	return true
}

func (ex *execution) directiveFlag(args language.ArgumentList) bool {
	arg := args.ForName("if")
	if arg == nil {
		return false
	}
	v, _ := literalValue(arg.Value, ex.vars)
	b, _ := v.(bool)
	return b
}
