package runtime

import (
	"context"
	"encoding/base64"
	"fmt"
	"math"
	"strconv"

	"github.com/pkg/errors"
)

// SerializeLeafValue normalises values produced by entity fields and
// operations to the JSON shape of the GraphQL scalar. Custom scalars and
// enums pass through; byte slices are base64 encoded.
func (r *Runtime) SerializeLeafValue(_ context.Context, typeName string, value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	if b, ok := value.([]byte); ok {
		return base64.StdEncoding.EncodeToString(b), nil
	}
	switch typeName {
	case "String", "ID":
		switch v := value.(type) {
		case string:
			return v, nil
		case fmt.Stringer:
			return v.String(), nil
		case bool, int, int32, int64, uint, uint32, uint64:
			return fmt.Sprint(v), nil
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64), nil
		}
	case "Int":
		switch v := value.(type) {
		case int:
			return v, nil
		case int32:
			return int(v), nil
		case int64:
			return int(v), nil
		case uint32:
			return int(v), nil
		case float64:
			if v == math.Trunc(v) {
				return int(v), nil
			}
		case string:
			if n, err := strconv.Atoi(v); err == nil {
				return n, nil
			}
		case bool:
			if v {
				return 1, nil
			}
			return 0, nil
		}
	case "Float":
		switch v := value.(type) {
		case float64:
			return v, nil
		case float32:
			return float64(v), nil
		case int:
			return float64(v), nil
		case int64:
			return float64(v), nil
		case string:
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f, nil
			}
		}
	case "Boolean":
		switch v := value.(type) {
		case bool:
			return v, nil
		case int:
			return v != 0, nil
		case string:
			if b, err := strconv.ParseBool(v); err == nil {
				return b, nil
			}
		}
	default:
		return value, nil
	}
	return nil, errors.Errorf("%s cannot represent %v (%T)", typeName, value, value)
}
