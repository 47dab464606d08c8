package schema

import (
	"strings"

	"apiscope/internal/model"
	"apiscope/internal/value"
)

// TypeLabel is the short type shown in parameter tables, e.g. "array<string>"
// or "string (available, pending, sold)".
func TypeLabel(s *model.Schema) string {
	if s == nil {
		return "any"
	}
	switch {
	case s.Type == model.TypeArray && s.Items != nil:
		return "array<" + TypeLabel(s.Items) + ">"
	case len(s.Enum) > 0:
		return string(s.Type) + " (" + strings.Join(s.Enum, ", ") + ")"
	case s.Type == "":
		return "any"
	default:
		return string(s.Type)
	}
}

// Document renders s back into its JSON-Schema shape for display.
func Document(s *model.Schema) any {
	obj := value.NewObject()
	if s == nil {
		return obj
	}
	if s.Type != "" {
		obj.Set("type", string(s.Type))
	}
	if s.Description != "" {
		obj.Set("description", s.Description)
	}
	if len(s.Enum) > 0 {
		enum := make([]any, len(s.Enum))
		for i, e := range s.Enum {
			enum[i] = e
		}
		obj.Set("enum", enum)
	}
	if len(s.Required) > 0 {
		req := make([]any, len(s.Required))
		for i, r := range s.Required {
			req[i] = r
		}
		obj.Set("required", req)
	}
	if len(s.Properties) > 0 {
		props := value.NewObject()
		for _, p := range s.Properties {
			props.Set(p.Name, Document(p.Schema))
		}
		obj.Set("properties", props)
	}
	if s.Items != nil {
		obj.Set("items", Document(s.Items))
	}
	return obj
}
