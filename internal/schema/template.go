// Package schema derives default values from endpoint schemas.
package schema

import (
	"apiscope/internal/model"
	"apiscope/internal/value"
)

// Synthesize builds the template value for s. An absent schema yields an
// empty object; arrays get one representative element so the shape of an
// entry is visible. Cyclic schemas are not supported.
func Synthesize(s *model.Schema) any {
	if s == nil {
		return value.NewObject()
	}
	switch s.Type {
	case model.TypeObject:
		obj := value.NewObject()
		for _, p := range s.Properties {
			obj.Set(p.Name, Synthesize(p.Schema))
		}
		return obj
	case model.TypeArray:
		if s.Items == nil {
			return []any{}
		}
		return []any{Synthesize(s.Items)}
	case model.TypeString:
		return ""
	case model.TypeInteger, model.TypeNumber:
		return 0.0
	case model.TypeBoolean:
		return false
	default:
		return nil
	}
}
