package producer

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/hanpama/thundergql/internal/entity"
)

// ErrInvalidParam is returned when a required parameter is missing or has
// the wrong shape.
var ErrInvalidParam = errors.New("producer: invalid parameter")

func stringParam(params map[string]any, name string) (string, bool) {
	v, ok := params[name]
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, t != ""
	case fmt.Stringer:
		return t.String(), true
	case int, int32, int64, float64:
		return fmt.Sprint(t), true
	}
	return "", false
}

func requireString(params map[string]any, name string) (string, error) {
	s, ok := stringParam(params, name)
	if !ok {
		return "", errors.Wrapf(ErrInvalidParam, "%s: string required, got %T", name, params[name])
	}
	return s, nil
}

func entityParam(params map[string]any, name string) (*entity.Entity, bool) {
	e, ok := params[name].(*entity.Entity)
	return e, ok && e != nil
}

// fieldValue returns the "value" property of the first item of a field, or
// the named key of a plain map.
func fieldValue(v any, name string) (any, bool) {
	switch t := v.(type) {
	case *entity.Entity:
		fl, ok := t.Field(name)
		if !ok {
			return nil, false
		}
		return fl.First().Get("value")
	case map[string]any:
		out, ok := t[name]
		return out, ok && out != nil
	}
	return nil, false
}

func fieldString(v any, name string) (string, bool) {
	out, ok := fieldValue(v, name)
	if !ok {
		return "", false
	}
	s := fmt.Sprint(out)
	return s, s != ""
}

func fieldInt(v any, name string) (int, bool) {
	out, ok := fieldValue(v, name)
	if !ok {
		return 0, false
	}
	return toInt(out)
}

func intParam(params map[string]any, name string) (int, bool) {
	return toInt(params[name])
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}
