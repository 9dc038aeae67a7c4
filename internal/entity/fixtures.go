package entity

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// uuidNamespace seeds name-based UUIDs for fixture entities without one.
var uuidNamespace = uuid.MustParse("6f1d6a43-5a35-4bd4-9a0e-4c1f1f1a7c21")

// Fixtures is the document format of fixture files:
//
//	entities:
//	  - type: media
//	    bundle: image
//	    id: "1"
//	    fields:
//	      name: Sunset
//	      field_image: {target_type: file, target_id: "10", alt: Sun}
//	    translations:
//	      de: {fields: {name: Sonnenuntergang}}
//	aliases:
//	  /media/sunset: media/1
//
// A field value may be a scalar (one item with a "value" property), a mapping
// (one item) or a sequence of either.
type Fixtures struct {
	Entities []FixtureEntity  `yaml:"entities"`
	Aliases  map[string]string `yaml:"aliases"`
}

type FixtureEntity struct {
	Type         string                        `yaml:"type"`
	Bundle       string                        `yaml:"bundle"`
	ID           string                        `yaml:"id"`
	UUID         string                        `yaml:"uuid"`
	Langcode     string                        `yaml:"langcode"`
	Fields       map[string]any                `yaml:"fields"`
	Translations map[string]FixtureTranslation `yaml:"translations"`
}

type FixtureTranslation struct {
	Fields map[string]any `yaml:"fields"`
}

// LoadFixtures reads a fixture document from path.
func LoadFixtures(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read fixtures")
	}
	return ParseFixtures(data)
}

// ParseFixtures decodes a YAML fixture document.
func ParseFixtures(data []byte) (*Fixtures, error) {
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "parse fixtures")
	}
	for i, e := range f.Entities {
		if e.Type == "" || e.ID == "" {
			return nil, errors.Errorf("fixture entity #%d: type and id are required", i)
		}
	}
	return &f, nil
}

// Build converts a fixture entity into an Entity.
func (fe FixtureEntity) Build() (*Entity, error) {
	langcode := fe.Langcode
	if langcode == "" {
		langcode = "en"
	}
	id := fe.UUID
	if id == "" {
		id = uuid.NewSHA1(uuidNamespace, []byte(fe.Type+"/"+fe.ID)).String()
	}
	fields, err := buildFields(fe.Fields)
	if err != nil {
		return nil, errors.Wrapf(err, "%s/%s", fe.Type, fe.ID)
	}
	e := &Entity{
		Type:     fe.Type,
		Bundle:   fe.Bundle,
		ID:       fe.ID,
		UUID:     id,
		Langcode: langcode,
		Fields:   fields,
	}
	for lang, tr := range fe.Translations {
		trFields, err := buildFields(tr.Fields)
		if err != nil {
			return nil, errors.Wrapf(err, "%s/%s translation %s", fe.Type, fe.ID, lang)
		}
		if e.Translations == nil {
			e.Translations = make(map[string]*Entity)
		}
		e.Translations[lang] = e.translate(lang, trFields)
	}
	return e, nil
}

// translate returns a copy of e in langcode; fields missing from overrides
// are shared with e.
func (e *Entity) translate(langcode string, overrides map[string]FieldList) *Entity {
	t := &Entity{
		Type:     e.Type,
		Bundle:   e.Bundle,
		ID:       e.ID,
		UUID:     e.UUID,
		Langcode: langcode,
		Fields:   make(map[string]FieldList, len(e.Fields)),
	}
	for k, v := range e.Fields {
		t.Fields[k] = v
	}
	for k, v := range overrides {
		t.Fields[k] = v
	}
	return t
}

func buildFields(raw map[string]any) (map[string]FieldList, error) {
	out := make(map[string]FieldList, len(raw))
	for name, v := range raw {
		fl, err := buildFieldList(v)
		if err != nil {
			return nil, errors.Wrapf(err, "field %s", name)
		}
		out[name] = fl
	}
	return out, nil
}

func buildFieldList(v any) (FieldList, error) {
	switch t := v.(type) {
	case nil:
		return FieldList{}, nil
	case []any:
		fl := make(FieldList, 0, len(t))
		for _, it := range t {
			item, err := buildItem(it)
			if err != nil {
				return nil, err
			}
			fl = append(fl, item)
		}
		return fl, nil
	default:
		item, err := buildItem(t)
		if err != nil {
			return nil, err
		}
		return FieldList{item}, nil
	}
}

func buildItem(v any) (Item, error) {
	switch t := v.(type) {
	case map[string]any:
		values := make(map[string]any, len(t))
		for k, vv := range t {
			values[k] = vv
		}
		if id, ok := values["target_id"]; ok && id != nil {
			values["target_id"] = fmt.Sprint(id)
		}
		return Item{Values: values}, nil
	case []any:
		return Item{}, errors.New("nested sequences are not supported")
	default:
		return Item{Values: map[string]any{"value": t}}, nil
	}
}
