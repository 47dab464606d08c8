package model

import (
	"strings"
	"time"

	stringsutil "github.com/projectdiscovery/utils/strings"
)

type SchemaType string

const (
	TypeObject  SchemaType = "object"
	TypeArray   SchemaType = "array"
	TypeString  SchemaType = "string"
	TypeInteger SchemaType = "integer"
	TypeNumber  SchemaType = "number"
	TypeBoolean SchemaType = "boolean"
)

// Schema is the JSON-Schema-like description of a value's shape. Properties
// keep their declaration order.
type Schema struct {
	Type        SchemaType
	Description string
	Enum        []string
	Properties  []Property
	Items       *Schema
	Required    []string
}

type Property struct {
	Name   string
	Schema *Schema
}

// Property returns the child schema declared under name.
func (s *Schema) Property(name string) (*Schema, bool) {
	if s == nil {
		return nil, false
	}
	for _, p := range s.Properties {
		if p.Name == name {
			return p.Schema, true
		}
	}
	return nil, false
}

// IsRequired reports whether name is listed in the required set and also
// declared as a property. Names without a matching property are inert.
func (s *Schema) IsRequired(name string) bool {
	if _, ok := s.Property(name); !ok {
		return false
	}
	for _, r := range s.Required {
		if r == name {
			return true
		}
	}
	return false
}

type Param struct {
	Name     string
	Required bool
	Schema   *Schema
}

type RequestBody struct {
	Required    bool
	Description string
	// Schema is the application/json schema, nil when none is declared.
	Schema *Schema
}

type Response struct {
	Status      string
	ContentType string
	Schema      *Schema
	Example     any
	HasExample  bool
}

type Endpoint struct {
	ID          string
	Method      string
	Summary     string
	Description string
	Path        string

	PathParams  []Param
	QueryParams []Param
	RequestBody RequestBody
	Responses   []Response
}

// Key is the human reference for an endpoint, e.g. "GET /pet/{petId}".
func (e Endpoint) Key() string {
	return strings.ToUpper(e.Method) + " " + e.Path
}

// AllowsBody reports whether the method may carry a request body.
func AllowsBody(method string) bool {
	return stringsutil.EqualFoldAny(strings.TrimSpace(method), "POST", "PUT", "PATCH")
}

// RequestParams is what the transport receives.
type RequestParams struct {
	PathParams  Pairs
	QueryParams Pairs
	BodyParams  any
	Headers     Pairs
}

type RequestResult struct {
	Status     int
	StatusText string
	Data       any
	Headers    map[string]string
	Time       time.Duration
}

// HistoryEntry is an immutable record of a completed request.
type HistoryEntry struct {
	ID        string
	Endpoint  Endpoint
	Params    RequestParams
	Result    RequestResult
	Timestamp time.Time
}
