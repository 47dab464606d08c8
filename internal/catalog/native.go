package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"apiscope/internal/model"
	"apiscope/internal/value"
)

// The native format is either a list of endpoints or a mapping holding one
// under "endpoints". It is walked as yaml.Node so parameters, properties and
// example keys keep the order they were written in.

const jsonMedia = "application/json"

func decodeNative(doc *yaml.Node) (*Catalog, error) {
	c := &Catalog{}
	list := doc
	if doc.Kind == yaml.MappingNode {
		c.Title = scalar(mapValue(doc, "title"))
		c.BaseURL = strings.TrimRight(scalar(mapValue(doc, "base_url")), "/")
		list = mapValue(doc, "endpoints")
	}
	if list == nil || list.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("line %d: expected a list of endpoints", doc.Line)
	}
	for _, n := range list.Content {
		ep, err := decodeEndpoint(n)
		if err != nil {
			return nil, err
		}
		c.Endpoints = append(c.Endpoints, ep)
	}
	return c, nil
}

func decodeEndpoint(n *yaml.Node) (model.Endpoint, error) {
	n = resolve(n)
	if n.Kind != yaml.MappingNode {
		return model.Endpoint{}, fmt.Errorf("line %d: endpoint must be a mapping", n.Line)
	}
	ep := model.Endpoint{
		ID:          scalar(mapValue(n, "id")),
		Method:      strings.ToUpper(scalar(mapValue(n, "method"))),
		Summary:     scalar(mapValue(n, "summary")),
		Description: scalar(mapValue(n, "description")),
		Path:        scalar(mapValue(n, "path")),
	}
	if ep.Method == "" || ep.Path == "" {
		return model.Endpoint{}, fmt.Errorf("line %d: endpoint needs method and path", n.Line)
	}
	if ep.ID == "" {
		ep.ID = uuid.NewString()
	}

	// Path parameters are required unless the catalog says otherwise.
	ep.PathParams = decodeParams(mapValue(n, "path_params"), true)
	ep.QueryParams = decodeParams(mapValue(n, "queries"), false)

	if rb := mapValue(n, "request_body"); rb != nil {
		ep.RequestBody = model.RequestBody{
			Required:    boolean(mapValue(rb, "required"), false),
			Description: scalar(mapValue(rb, "description")),
		}
		if mt := mediaType(mapValue(rb, "content"), ""); mt != nil {
			ep.RequestBody.Schema = decodeSchema(mapValue(mt, "schema"))
		}
	}

	if rs := mapValue(n, "responses"); rs != nil && rs.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(rs.Content); i += 2 {
			ep.Responses = append(ep.Responses, decodeResponse(rs.Content[i].Value, rs.Content[i+1]))
		}
	}
	return ep, nil
}

func decodeParams(n *yaml.Node, requiredByDefault bool) []model.Param {
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	var out []model.Param
	for i := 0; i+1 < len(n.Content); i += 2 {
		p := resolve(n.Content[i+1])
		out = append(out, model.Param{
			Name:     n.Content[i].Value,
			Required: boolean(mapValue(p, "required"), requiredByDefault),
			Schema:   decodeSchema(mapValue(p, "schema")),
		})
	}
	return out
}

func decodeResponse(status string, n *yaml.Node) model.Response {
	r := model.Response{Status: status}
	content := mapValue(n, "content")
	mt := mediaType(content, jsonMedia)
	if mt == nil {
		return r
	}
	r.ContentType = mediaName(content, mt)
	r.Schema = decodeSchema(mapValue(mt, "schema"))

	ex := mapValue(mt, "example")
	if ex == nil {
		if exs := mapValue(mt, "examples"); exs != nil && exs.Kind == yaml.MappingNode && len(exs.Content) >= 2 {
			ex = mapValue(exs.Content[1], "value")
		}
	}
	if v := decodeValue(ex); v != nil {
		r.Example, r.HasExample = v, true
	}
	return r
}

// mediaType prefers application/json, then want, then the first entry.
func mediaType(content *yaml.Node, want string) *yaml.Node {
	if content == nil || content.Kind != yaml.MappingNode || len(content.Content) < 2 {
		return nil
	}
	if mt := mapValue(content, jsonMedia); mt != nil {
		return mt
	}
	if want != "" {
		if mt := mapValue(content, want); mt != nil {
			return mt
		}
	}
	return resolve(content.Content[1])
}

func mediaName(content, mt *yaml.Node) string {
	for i := 0; i+1 < len(content.Content); i += 2 {
		if resolve(content.Content[i+1]) == mt {
			return content.Content[i].Value
		}
	}
	return ""
}

func decodeSchema(n *yaml.Node) *model.Schema {
	return decodeSchemaNode(n, nil)
}

// decodeSchemaNode cuts off an alias that points back at a schema on the
// current branch, so self-referencing anchors stay finite.
func decodeSchemaNode(n *yaml.Node, seen []*yaml.Node) *model.Schema {
	n = resolve(n)
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	typ := model.SchemaType(scalar(mapValue(n, "type")))
	for _, v := range seen {
		if v == n {
			return &model.Schema{Type: typ, Description: "recursive schema"}
		}
	}
	if len(seen) >= maxSchemaDepth {
		return &model.Schema{Type: typ}
	}
	seen = append(seen, n)

	s := &model.Schema{
		Type:        typ,
		Description: scalar(mapValue(n, "description")),
		Items:       decodeSchemaNode(mapValue(n, "items"), seen),
	}
	if e := mapValue(n, "enum"); e != nil && e.Kind == yaml.SequenceNode {
		for _, v := range e.Content {
			s.Enum = append(s.Enum, v.Value)
		}
	}
	if r := mapValue(n, "required"); r != nil && r.Kind == yaml.SequenceNode {
		for _, v := range r.Content {
			s.Required = append(s.Required, v.Value)
		}
	}
	if props := mapValue(n, "properties"); props != nil && props.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(props.Content); i += 2 {
			s.Properties = append(s.Properties, model.Property{
				Name:   props.Content[i].Value,
				Schema: decodeSchemaNode(props.Content[i+1], seen),
			})
		}
	}
	if s.Type == "" && len(s.Properties) > 0 {
		s.Type = model.TypeObject
	}
	return s
}

// decodeValue turns a YAML/JSON node into a value tree.
func decodeValue(n *yaml.Node) any {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil
		}
		return decodeValue(n.Content[0])
	case yaml.AliasNode:
		return decodeValue(n.Alias)
	case yaml.MappingNode:
		obj := value.NewObject()
		for i := 0; i+1 < len(n.Content); i += 2 {
			obj.Set(n.Content[i].Value, decodeValue(n.Content[i+1]))
		}
		return obj
	case yaml.SequenceNode:
		out := make([]any, len(n.Content))
		for i, e := range n.Content {
			out[i] = decodeValue(e)
		}
		return out
	}
	switch n.ShortTag() {
	case "!!null":
		return nil
	case "!!bool":
		return boolean(n, false)
	case "!!int", "!!float":
		var f float64
		if err := n.Decode(&f); err == nil {
			return f
		}
		if f, err := strconv.ParseFloat(n.Value, 64); err == nil {
			return f
		}
	}
	return n.Value
}

func mapValue(n *yaml.Node, key string) *yaml.Node {
	n = resolve(n)
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return resolve(n.Content[i+1])
		}
	}
	return nil
}

// resolve follows YAML aliases (*anchor) to the anchored node.
func resolve(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

func scalar(n *yaml.Node) string {
	if n == nil || n.Kind != yaml.ScalarNode || n.ShortTag() == "!!null" {
		return ""
	}
	return strings.TrimSpace(n.Value)
}

func boolean(n *yaml.Node, def bool) bool {
	if n == nil || n.Kind != yaml.ScalarNode {
		return def
	}
	var b bool
	if err := n.Decode(&b); err != nil {
		return def
	}
	return b
}
