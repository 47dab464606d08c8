package orchestrator

import (
	"fmt"
	"strings"

	"apiscope/internal/model"
	"apiscope/internal/store"
	"apiscope/internal/value"
)

// Violation names one missing field.
type Violation struct {
	// Location is "path", "query" or "body".
	Location string
	// Name is the parameter name, or the display path of a body property.
	Name string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s parameter %q is required", v.Location, v.Name)
}

// ValidationError lists every missing field found in one pass.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.String()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Names returns the missing field names in report order.
func (e *ValidationError) Names() []string {
	out := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		out[i] = v.Name
	}
	return out
}

// Validate checks required path and query parameters for a non-blank value
// and, when the body is required, every required body property for presence.
// A property holding 0 or false is present; absent, null and "" are not.
func Validate(ep model.Endpoint, st store.State) error {
	var vs []Violation
	for _, p := range ep.PathParams {
		if p.Required && strings.TrimSpace(st.PathParams.Value(p.Name)) == "" {
			vs = append(vs, Violation{Location: "path", Name: p.Name})
		}
	}
	for _, p := range ep.QueryParams {
		if p.Required && strings.TrimSpace(st.QueryParams.Value(p.Name)) == "" {
			vs = append(vs, Violation{Location: "query", Name: p.Name})
		}
	}
	if st.BodyEnabled && ep.RequestBody.Required {
		vs = requiredBody(vs, ep.RequestBody.Schema, st.Body, nil)
	}
	if len(vs) > 0 {
		return &ValidationError{Violations: vs}
	}
	return nil
}

// requiredBody descends into present objects only: a missing parent is
// reported once, not together with its children.
func requiredBody(vs []Violation, s *model.Schema, v any, at value.Path) []Violation {
	if s == nil || s.Type != model.TypeObject {
		return vs
	}
	obj, ok := v.(*value.Object)
	if !ok {
		if len(at) == 0 && v == nil {
			vs = append(vs, Violation{Location: "body", Name: "body"})
		}
		return vs
	}
	for _, prop := range s.Properties {
		child, ok := obj.Get(prop.Name)
		if s.IsRequired(prop.Name) && missing(child, ok) {
			vs = append(vs, Violation{Location: "body", Name: at.Child(prop.Name).String()})
			continue
		}
		if ok {
			vs = requiredBody(vs, prop.Schema, child, at.Child(prop.Name))
		}
	}
	return vs
}

func missing(v any, ok bool) bool {
	if !ok || v == nil {
		return true
	}
	s, isString := v.(string)
	return isString && s == ""
}
