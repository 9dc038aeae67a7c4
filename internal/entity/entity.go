package entity

import (
	"context"
	"fmt"
	"sort"
)

// Entity is a content entity: a typed, bundled bag of field item lists.
type Entity struct {
	Type     string
	Bundle   string
	ID       string
	UUID     string
	Langcode string
	Fields   map[string]FieldList

	// Translations holds translated copies keyed by langcode.
	Translations map[string]*Entity

	loader Loader
}

// Key returns "<type>/<id>".
func (e *Entity) Key() string { return e.Type + "/" + e.ID }

// Field returns the item list of a field.
func (e *Entity) Field(name string) (FieldList, bool) {
	if fl, ok := e.baseField(name); ok {
		return fl, true
	}
	fl, ok := e.Fields[name]
	return fl, ok
}

// Translation returns the translation for langcode, or e itself when there is
// none.
func (e *Entity) Translation(langcode string) *Entity {
	if langcode == "" || langcode == e.Langcode {
		return e
	}
	if t, ok := e.Translations[langcode]; ok {
		return t
	}
	return e
}

// Label returns the first value of the name field.
func (e *Entity) Label() string {
	if fl, ok := e.Fields["name"]; ok {
		if v, ok := fl.First().Get("value"); ok {
			return fmt.Sprint(v)
		}
	}
	return ""
}

// FieldNames returns the configurable field names, sorted.
func (e *Entity) FieldNames() []string {
	names := make([]string, 0, len(e.Fields))
	for n := range e.Fields {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Attribute exposes base properties and fields to path lookups.
func (e *Entity) Attribute(_ context.Context, name string) (any, bool, error) {
	fl, ok := e.Field(name)
	if !ok {
		return nil, false, nil
	}
	return fl, true, nil
}

func (e *Entity) baseField(name string) (FieldList, bool) {
	var v string
	switch name {
	case "id":
		v = e.ID
	case "uuid":
		v = e.UUID
	case "bundle":
		v = e.Bundle
	case "langcode":
		v = e.Langcode
	case "type":
		v = e.Type
	default:
		return nil, false
	}
	if v == "" {
		return nil, false
	}
	return FieldList{{Values: map[string]any{"value": v}}}, true
}

func (e *Entity) bind(l Loader) {
	e.loader = l
	for _, fl := range e.Fields {
		for i := range fl {
			fl[i].loader = l
		}
	}
	for _, t := range e.Translations {
		t.bind(l)
	}
}

// Item is one value of a field. Reference items carry target_type and
// target_id and dereference through the store they were loaded from.
type Item struct {
	Values map[string]any

	loader Loader
}

// Get returns a property of the item.
func (i Item) Get(name string) (any, bool) {
	v, ok := i.Values[name]
	return v, ok && v != nil
}

// Target returns the referenced entity type and id.
func (i Item) Target() (entityType, id string, ok bool) {
	t, _ := i.Values["target_type"].(string)
	id = fmt.Sprint(i.Values["target_id"])
	if t == "" || i.Values["target_id"] == nil {
		return "", "", false
	}
	return t, id, true
}

func (i Item) Attribute(_ context.Context, name string) (any, bool, error) {
	v, ok := i.Get(name)
	return v, ok, nil
}

// Dereference loads the referenced entity. A dangling reference is absent.
func (i Item) Dereference(ctx context.Context) (any, bool, error) {
	t, id, ok := i.Target()
	if !ok || i.loader == nil {
		return nil, false, nil
	}
	e, err := i.loader.Load(ctx, t, id)
	if err != nil {
		if IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return e, true, nil
}

// FieldList is the ordered list of items of one field. Attribute access and
// dereferencing answer for the first item.
type FieldList []Item

// First returns the first item, or an empty item.
func (fl FieldList) First() Item {
	if len(fl) == 0 {
		return Item{}
	}
	return fl[0]
}

func (fl FieldList) Attribute(ctx context.Context, name string) (any, bool, error) {
	if len(fl) == 0 {
		return nil, false, nil
	}
	return fl[0].Attribute(ctx, name)
}

func (fl FieldList) Dereference(ctx context.Context) (any, bool, error) {
	if len(fl) == 0 {
		return nil, false, nil
	}
	return fl[0].Dereference(ctx)
}
