package executor

import (
	"math"
	"strconv"

	"github.com/pkg/errors"

	"github.com/hanpama/thundergql/internal/language"
	"github.com/hanpama/thundergql/internal/schema"
)

// coerceVariableValues coerces the raw request variables (decoded JSON) of an
// operation. Omitted variables with a default take the default; omitted
// nullable variables stay absent.
func coerceVariableValues(
	sch *schema.Schema,
	op *language.OperationDefinition,
	raw map[string]any,
) (map[string]any, error) {
	coerced := make(map[string]any, len(op.VariableDefinitions))
	for _, def := range op.VariableDefinitions {
		typ := schema.RefFromAST(def.Type)
		value, ok := raw[def.Variable]
		if !ok {
			if def.DefaultValue != nil {
				dv, _ := literalValue(def.DefaultValue, nil)
				cv, err := coerceInput(sch, dv, typ)
				if err != nil {
					return nil, errors.Wrapf(err, "variable $%s default value", def.Variable)
				}
				coerced[def.Variable] = cv
				continue
			}
			if typ.IsNonNull() {
				return nil, errors.Errorf("variable $%s of required type %s was not provided", def.Variable, typ)
			}
			continue
		}
		cv, err := coerceInput(sch, value, typ)
		if err != nil {
			return nil, errors.Wrapf(err, "variable $%s of type %s", def.Variable, typ)
		}
		coerced[def.Variable] = cv
	}
	return coerced, nil
}

// coerceArgumentValues coerces the arguments of one field selection.
func coerceArgumentValues(
	sch *schema.Schema,
	def *schema.Field,
	arguments language.ArgumentList,
	vars map[string]any,
) (map[string]any, error) {
	coerced := make(map[string]any, len(def.Arguments))
	for _, argDef := range def.Arguments {
		var (
			value   any
			present bool
		)
		if arg := arguments.ForName(argDef.Name); arg != nil {
			value, present = literalValue(arg.Value, vars)
		}
		if !present {
			if argDef.DefaultValue != nil {
				value, present = argDef.DefaultValue, true
			} else if argDef.Type.IsNonNull() {
				return nil, errors.Errorf("argument %q of required type %s was not provided", argDef.Name, argDef.Type)
			} else {
				continue
			}
		}
		cv, err := coerceInput(sch, value, argDef.Type)
		if err != nil {
			return nil, errors.Wrapf(err, "argument %q", argDef.Name)
		}
		coerced[argDef.Name] = cv
	}
	return coerced, nil
}

// literalValue converts a literal to a Go value, substituting variables.
// present is false for a bare variable that was not provided.
func literalValue(v *language.Value, vars map[string]any) (any, bool) {
	if v == nil {
		return nil, false
	}
	switch v.Kind {
	case language.Variable:
		val, ok := vars[v.Raw]
		return val, ok
	case language.IntValue:
		n, err := strconv.ParseInt(v.Raw, 10, 64)
		if err != nil {
			return v.Raw, true
		}
		return n, true
	case language.FloatValue:
		f, err := strconv.ParseFloat(v.Raw, 64)
		if err != nil {
			return v.Raw, true
		}
		return f, true
	case language.BooleanValue:
		return v.Raw == "true", true
	case language.NullValue:
		return nil, true
	case language.ListValue:
		out := make([]any, 0, len(v.Children))
		for _, c := range v.Children {
			item, _ := literalValue(c.Value, vars)
			out = append(out, item)
		}
		return out, true
	case language.ObjectValue:
		out := make(map[string]any, len(v.Children))
		for _, c := range v.Children {
			if item, ok := literalValue(c.Value, vars); ok {
				out[c.Name] = item
			}
		}
		return out, true
	}
	// strings, block strings and enum names
	return v.Raw, true
}

// coerceInput coerces an input value to typ.
func coerceInput(sch *schema.Schema, value any, typ *schema.TypeRef) (any, error) {
	if typ.IsNonNull() {
		if value == nil {
			return nil, errors.Errorf("expected non-null %s", typ)
		}
		return coerceInput(sch, value, typ.OfType)
	}
	if value == nil {
		return nil, nil
	}
	if typ.Kind == schema.TypeRefKindList {
		items, ok := value.([]any)
		if !ok {
			// a single value is a list of one
			item, err := coerceInput(sch, value, typ.OfType)
			if err != nil {
				return nil, err
			}
			return []any{item}, nil
		}
		out := make([]any, len(items))
		for i, item := range items {
			cv, err := coerceInput(sch, item, typ.OfType)
			if err != nil {
				return nil, errors.Wrapf(err, "item %d", i)
			}
			out[i] = cv
		}
		return out, nil
	}

	switch typ.Named {
	case "Int":
		return coerceInt(value)
	case "Float":
		return coerceFloat(value)
	case "String":
		if s, ok := value.(string); ok {
			return s, nil
		}
	case "Boolean":
		if b, ok := value.(bool); ok {
			return b, nil
		}
	case "ID":
		switch v := value.(type) {
		case string:
			return v, nil
		case int:
			return strconv.Itoa(v), nil
		case int64:
			return strconv.FormatInt(v, 10), nil
		case float64:
			if v == math.Trunc(v) {
				return strconv.FormatInt(int64(v), 10), nil
			}
		}
	default:
		return coerceNamedInput(sch, value, typ.Named)
	}
	return nil, errors.Errorf("cannot represent %v (%T) as %s", value, value, typ.Named)
}

func coerceNamedInput(sch *schema.Schema, value any, name string) (any, error) {
	t := sch.Types[name]
	if t == nil {
		return nil, errors.Errorf("unknown input type %q", name)
	}
	switch t.Kind {
	case schema.TypeKindEnum:
		s, ok := value.(string)
		if ok {
			for _, ev := range t.EnumValues {
				if ev.Name == s {
					return s, nil
				}
			}
		}
		return nil, errors.Errorf("%v is not a value of enum %s", value, name)
	case schema.TypeKindInputObject:
		m, ok := value.(map[string]any)
		if !ok {
			return nil, errors.Errorf("expected an object for %s, got %T", name, value)
		}
		out := make(map[string]any, len(t.InputFields))
		known := make(map[string]bool, len(t.InputFields))
		for _, f := range t.InputFields {
			known[f.Name] = true
			v, present := m[f.Name]
			if !present {
				if f.DefaultValue != nil {
					v, present = f.DefaultValue, true
				} else if f.Type.IsNonNull() {
					return nil, errors.Errorf("field %s.%s of required type %s was not provided", name, f.Name, f.Type)
				}
			}
			if !present {
				continue
			}
			cv, err := coerceInput(sch, v, f.Type)
			if err != nil {
				return nil, errors.Wrapf(err, "field %s.%s", name, f.Name)
			}
			out[f.Name] = cv
		}
		for k := range m {
			if !known[k] {
				return nil, errors.Errorf("field %q is not defined by type %s", k, name)
			}
		}
		return out, nil
	}
	// custom scalars pass through
	return value, nil
}

func coerceInt(value any) (any, error) {
	var n int64
	switch v := value.(type) {
	case int:
		n = int64(v)
	case int32:
		n = int64(v)
	case int64:
		n = v
	case float64:
		if v != math.Trunc(v) {
			return nil, errors.Errorf("cannot represent non-integer %v as Int", v)
		}
		n = int64(v)
	default:
		return nil, errors.Errorf("cannot represent %v (%T) as Int", value, value)
	}
	if n > math.MaxInt32 || n < math.MinInt32 {
		return nil, errors.Errorf("%d does not fit a 32-bit Int", n)
	}
	return int(n), nil
}

func coerceFloat(value any) (any, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	}
	return nil, errors.Errorf("cannot represent %v (%T) as Float", value, value)
}
