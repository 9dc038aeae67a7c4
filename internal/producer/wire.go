package producer

import (
	"fmt"

	"github.com/hanpama/thundergql/internal/entity"
)

// wireParams converts producer parameters into values structpb accepts.
// Entities travel as their identifying properties, not their fields.
func wireParams(params map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = toWire(v)
	}
	return out
}

func toWire(v any) any {
	switch t := v.(type) {
	case nil, string, bool, int, int32, int64, uint32, uint64, float32, float64:
		return t
	case *entity.Entity:
		return map[string]any{
			"type":     t.Type,
			"bundle":   t.Bundle,
			"id":       t.ID,
			"uuid":     t.UUID,
			"langcode": t.Langcode,
		}
	case entity.Route:
		return map[string]any{"path": t.Path, "entityType": t.EntityType, "entityId": t.EntityID}
	case entity.Item:
		return toWire(t.Values)
	case entity.FieldList:
		out := make([]any, len(t))
		for i, it := range t {
			out[i] = toWire(it)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = toWire(vv)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = toWire(vv)
		}
		return out
	case fmt.Stringer:
		return t.String()
	}
	return fmt.Sprint(v)
}
