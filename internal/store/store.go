// Package store owns the request parameters of the selected endpoint.
//
// The structured body tree is authoritative. Its JSON text is re-derived on
// every structured edit; raw text edits replace the tree only when they
// parse. A Store is not safe for concurrent use: it belongs to the UI loop.
package store

import (
	"errors"
	"fmt"
	"strings"

	"apiscope/internal/model"
	"apiscope/internal/schema"
	"apiscope/internal/value"
)

var (
	ErrNoEndpoint    = errors.New("no endpoint selected")
	ErrBodyDisabled  = errors.New("request body not allowed for this endpoint")
	ErrUnknownParam  = errors.New("parameter not declared by endpoint")
	ErrDuplicateName = errors.New("header already exists")
)

const AuthorizationHeader = "authorization"

type Field int

const (
	FieldEndpoint Field = iota
	FieldPathParams
	FieldQueryParams
	FieldBody
	FieldHeaders
)

func (f Field) String() string {
	switch f {
	case FieldEndpoint:
		return "endpoint"
	case FieldPathParams:
		return "path"
	case FieldQueryParams:
		return "query"
	case FieldBody:
		return "body"
	case FieldHeaders:
		return "headers"
	default:
		return fmt.Sprintf("field(%d)", int(f))
	}
}

// Listener is told which part of the state changed; it reads the new values
// back from the store.
type Listener func(Field)

// State is a detached copy of the store's contents.
type State struct {
	Endpoint    *model.Endpoint
	PathParams  model.Pairs
	QueryParams model.Pairs
	Body        any
	BodyText    string
	BodyEnabled bool
	Headers     model.Pairs
}

type Store struct {
	defaultHeaders model.Pairs
	credential     string

	endpoint    *model.Endpoint
	pathParams  model.Pairs
	queryParams model.Pairs
	body        any
	bodyText    string
	bodyValid   bool
	bodyEnabled bool
	headers     model.Pairs

	listeners map[int]Listener
	nextID    int
}

// New returns an empty store; defaultHeaders seed the header list on every
// endpoint selection.
func New(defaultHeaders model.Pairs) *Store {
	s := &Store{
		defaultHeaders: defaultHeaders.Clone(),
		listeners:      map[int]Listener{},
	}
	s.reset(nil)
	return s
}

// Subscribe registers fn and returns a function that removes it.
func (s *Store) Subscribe(fn Listener) func() {
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() { delete(s.listeners, id) }
}

func (s *Store) notify(fields ...Field) {
	for _, f := range fields {
		for _, fn := range s.listeners {
			fn(f)
		}
	}
}

// Select replaces the whole parameter state for ep. A nil endpoint clears it.
func (s *Store) Select(ep *model.Endpoint) {
	s.reset(ep)
	s.notify(FieldEndpoint, FieldPathParams, FieldQueryParams, FieldBody, FieldHeaders)
}

func (s *Store) reset(ep *model.Endpoint) {
	var (
		pathParams, queryParams model.Pairs
		body                    any = value.NewObject()
		enabled                 bool
	)
	if ep != nil {
		cp := *ep
		ep = &cp
		for _, p := range ep.PathParams {
			pathParams.Set(p.Name, "")
		}
		for _, p := range ep.QueryParams {
			queryParams.Set(p.Name, "")
		}
		if model.AllowsBody(ep.Method) && ep.RequestBody.Schema != nil {
			enabled = true
			body = schema.Synthesize(ep.RequestBody.Schema)
		}
	}
	headers := s.defaultHeaders.Clone()
	if s.credential != "" {
		headers.Set(AuthorizationHeader, s.credential)
	}

	s.endpoint = ep
	s.pathParams = pathParams
	s.queryParams = queryParams
	s.body = body
	s.bodyText = value.Indent(body)
	s.bodyValid = true
	s.bodyEnabled = enabled
	s.headers = headers
}

func (s *Store) Endpoint() (model.Endpoint, bool) {
	if s.endpoint == nil {
		return model.Endpoint{}, false
	}
	return *s.endpoint, true
}

func (s *Store) Method() string {
	if s.endpoint == nil {
		return ""
	}
	return strings.ToUpper(s.endpoint.Method)
}

func (s *Store) PathParams() model.Pairs  { return s.pathParams.Clone() }
func (s *Store) QueryParams() model.Pairs { return s.queryParams.Clone() }
func (s *Store) Headers() model.Pairs     { return s.headers.Clone() }

// Body returns the live tree. Callers must edit it through the store.
func (s *Store) Body() any         { return s.body }
func (s *Store) BodyText() string  { return s.bodyText }
func (s *Store) BodyEnabled() bool { return s.bodyEnabled }

// BodyInSync is false while the raw text holds an edit that did not parse.
func (s *Store) BodyInSync() bool { return s.bodyValid }

func (s *Store) BodySchema() *model.Schema {
	if s.endpoint == nil || !s.bodyEnabled {
		return nil
	}
	return s.endpoint.RequestBody.Schema
}

func (s *Store) SetPathParam(name, v string) error {
	if !s.pathParams.Has(name) {
		return fmt.Errorf("path param %q: %w", name, ErrUnknownParam)
	}
	s.pathParams.Set(name, v)
	s.notify(FieldPathParams)
	return nil
}

func (s *Store) SetQueryParam(name, v string) error {
	if !s.queryParams.Has(name) {
		return fmt.Errorf("query param %q: %w", name, ErrUnknownParam)
	}
	s.queryParams.Set(name, v)
	s.notify(FieldQueryParams)
	return nil
}

func (s *Store) editBody(fn func(root any) (any, error)) error {
	if s.endpoint == nil {
		return ErrNoEndpoint
	}
	if !s.bodyEnabled {
		return ErrBodyDisabled
	}
	root, err := fn(s.body)
	if err != nil {
		return err
	}
	s.body = root
	s.bodyText = value.Indent(root)
	s.bodyValid = true
	s.notify(FieldBody)
	return nil
}

// SetBodyValue writes v at p and re-derives the body text.
func (s *Store) SetBodyValue(p value.Path, v any) error {
	return s.editBody(func(root any) (any, error) { return value.Set(root, p, v) })
}

func (s *Store) AppendBodyValue(p value.Path, v any) error {
	return s.editBody(func(root any) (any, error) { return value.Append(root, p, v) })
}

func (s *Store) RemoveBodyValue(p value.Path, i int) error {
	return s.editBody(func(root any) (any, error) { return value.Remove(root, p, i) })
}

// SetBodyText records the raw text as typed. When it parses, the tree is
// replaced wholesale; otherwise the tree is left alone until the text becomes
// valid again. Invalid JSON is not an error.
func (s *Store) SetBodyText(text string) error {
	if s.endpoint == nil {
		return ErrNoEndpoint
	}
	if !s.bodyEnabled {
		return ErrBodyDisabled
	}
	s.bodyText = text
	if v, err := value.Parse(text); err == nil {
		s.body = v
		s.bodyValid = true
	} else {
		s.bodyValid = false
	}
	s.notify(FieldBody)
	return nil
}

// ResetBody re-synthesizes the body template.
func (s *Store) ResetBody() error {
	return s.editBody(func(any) (any, error) {
		return schema.Synthesize(s.endpoint.RequestBody.Schema), nil
	})
}

// AddHeader appends an empty header row.
func (s *Store) AddHeader() {
	if s.headers.Has("") {
		return
	}
	s.headers.Set("", "")
	s.notify(FieldHeaders)
}

func (s *Store) SetHeader(name, v string) {
	s.headers.Set(name, v)
	s.notify(FieldHeaders)
}

// RenameHeader moves a header to a new name; it ends up last in order.
func (s *Store) RenameHeader(oldName, newName string) error {
	if oldName == newName {
		return nil
	}
	if s.headers.Has(newName) {
		return fmt.Errorf("rename %q to %q: %w", oldName, newName, ErrDuplicateName)
	}
	s.headers.Rename(oldName, newName)
	s.notify(FieldHeaders)
	return nil
}

func (s *Store) DeleteHeader(name string) {
	s.headers.Delete(name)
	s.notify(FieldHeaders)
}

// SetCredential keeps the authorization header equal to token. A bare token
// is sent as a bearer token.
func (s *Store) SetCredential(token string) {
	token = strings.TrimSpace(token)
	if token != "" && !strings.Contains(token, " ") {
		token = "Bearer " + token
	}
	s.credential = token
	if token == "" {
		s.headers.Delete(AuthorizationHeader)
	} else {
		s.headers.Set(AuthorizationHeader, token)
	}
	s.notify(FieldHeaders)
}

func (s *Store) Credential() string { return s.credential }

// Snapshot copies the current state; later edits do not affect it.
func (s *Store) Snapshot() State {
	st := State{
		PathParams:  s.pathParams.Clone(),
		QueryParams: s.queryParams.Clone(),
		Body:        value.Clone(s.body),
		BodyText:    s.bodyText,
		BodyEnabled: s.bodyEnabled,
		Headers:     s.headers.Clone(),
	}
	if s.endpoint != nil {
		ep := *s.endpoint
		st.Endpoint = &ep
	}
	return st
}
