package catalog

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/pkg/errors"
	"github.com/projectdiscovery/gologger"

	"apiscope/internal/model"
	"apiscope/internal/value"
)

var methodOrder = []string{"GET", "POST", "PUT", "PATCH", "DELETE"}

const maxSchemaDepth = 32

func fromOpenAPI(ctx context.Context, data []byte, location *url.URL) (*Catalog, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx
	loader.IsExternalRefsAllowed = true

	var doc *openapi3.T
	var err error
	if location != nil {
		doc, err = loader.LoadFromDataWithPath(data, location)
	} else {
		doc, err = loader.LoadFromData(data)
	}
	if err != nil {
		return nil, errors.Wrap(err, "invalid openapi document")
	}
	// Browsing a slightly broken document is still useful.
	if err := doc.Validate(ctx); err != nil {
		gologger.Warning().Msgf("openapi document does not validate: %s", err)
	}

	c := &Catalog{Endpoints: ExtractEndpoints(doc)}
	if doc.Info != nil {
		c.Title = strings.TrimSpace(doc.Info.Title)
	}
	if len(doc.Servers) > 0 && doc.Servers[0] != nil {
		c.BaseURL = ResolveBaseURL(doc.Servers[0].URL, location)
	}
	return c, nil
}

// ExtractEndpoints lists every operation, paths sorted, methods in
// GET POST PUT PATCH DELETE order. Schema properties come out sorted by name
// because the document model does not keep their order.
func ExtractEndpoints(doc *openapi3.T) []model.Endpoint {
	var out []model.Endpoint
	if doc == nil || doc.Paths == nil {
		return out
	}

	items := doc.Paths.Map()
	paths := make([]string, 0, len(items))
	for p := range items {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, path := range paths {
		item := items[path]
		if item == nil {
			continue
		}
		ops := item.Operations()
		for _, method := range methodOrder {
			op := ops[method]
			if op == nil {
				continue
			}
			out = append(out, convertOperation(method, path, item.Parameters, op))
		}
	}
	return out
}

func convertOperation(method, path string, common openapi3.Parameters, op *openapi3.Operation) model.Endpoint {
	ep := model.Endpoint{
		ID:          strings.TrimSpace(op.OperationID),
		Method:      method,
		Path:        path,
		Summary:     strings.TrimSpace(op.Summary),
		Description: strings.TrimSpace(op.Description),
	}
	if ep.ID == "" {
		ep.ID = strings.ToLower(method) + " " + path
	}

	for _, p := range mergeParameters(common, op.Parameters) {
		mp := model.Param{
			Name:     p.Name,
			Required: p.Required,
			Schema:   convertSchema(p.Schema, nil),
		}
		switch p.In {
		case openapi3.ParameterInPath:
			mp.Required = true
			ep.PathParams = append(ep.PathParams, mp)
		case openapi3.ParameterInQuery:
			ep.QueryParams = append(ep.QueryParams, mp)
		}
	}

	if op.RequestBody != nil && op.RequestBody.Value != nil {
		rb := op.RequestBody.Value
		ep.RequestBody = model.RequestBody{
			Required:    rb.Required,
			Description: strings.TrimSpace(rb.Description),
		}
		if mt := rb.Content.Get(jsonMedia); mt != nil {
			ep.RequestBody.Schema = convertSchema(mt.Schema, nil)
		}
	}

	if op.Responses != nil {
		responses := op.Responses.Map()
		codes := make([]string, 0, len(responses))
		for code := range responses {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		for _, code := range codes {
			ep.Responses = append(ep.Responses, convertResponse(code, responses[code]))
		}
	}
	return ep
}

// mergeParameters lets an operation parameter replace the path-item
// parameter with the same location and name, in the path item's position.
func mergeParameters(common, own openapi3.Parameters) []*openapi3.Parameter {
	type key struct{ in, name string }
	var out []*openapi3.Parameter
	at := map[key]int{}
	for _, list := range []openapi3.Parameters{common, own} {
		for _, ref := range list {
			if ref == nil || ref.Value == nil {
				continue
			}
			k := key{ref.Value.In, ref.Value.Name}
			if i, ok := at[k]; ok {
				out[i] = ref.Value
				continue
			}
			at[k] = len(out)
			out = append(out, ref.Value)
		}
	}
	return out
}

func convertResponse(code string, ref *openapi3.ResponseRef) model.Response {
	r := model.Response{Status: code}
	if ref == nil || ref.Value == nil || len(ref.Value.Content) == 0 {
		return r
	}
	ct := jsonMedia
	mt := ref.Value.Content.Get(ct)
	if mt == nil {
		names := make([]string, 0, len(ref.Value.Content))
		for name := range ref.Value.Content {
			names = append(names, name)
		}
		sort.Strings(names)
		ct = names[0]
		mt = ref.Value.Content[ct]
	}
	r.ContentType = ct
	if mt == nil {
		return r
	}
	r.Schema = convertSchema(mt.Schema, nil)

	example := mt.Example
	if example == nil && len(mt.Examples) > 0 {
		names := make([]string, 0, len(mt.Examples))
		for name := range mt.Examples {
			names = append(names, name)
		}
		sort.Strings(names)
		if ex := mt.Examples[names[0]]; ex != nil && ex.Value != nil {
			example = ex.Value.Value
		}
	}
	if example != nil {
		r.Example, r.HasExample = value.FromGo(example), true
	}
	return r
}

// convertSchema follows references; a schema already on the current branch
// is cut off to keep recursive definitions finite.
func convertSchema(ref *openapi3.SchemaRef, seen []*openapi3.Schema) *model.Schema {
	if ref == nil || ref.Value == nil {
		return nil
	}
	s := ref.Value
	for _, v := range seen {
		if v == s {
			return &model.Schema{Type: schemaType(s), Description: "recursive " + ref.Ref}
		}
	}
	if len(seen) >= maxSchemaDepth {
		return &model.Schema{Type: schemaType(s)}
	}
	seen = append(seen, s)

	out := &model.Schema{
		Type:        schemaType(s),
		Description: strings.TrimSpace(s.Description),
		Required:    append([]string(nil), s.Required...),
	}
	for _, e := range s.Enum {
		out.Enum = append(out.Enum, fmt.Sprint(e))
	}
	if s.Items != nil {
		out.Items = convertSchema(s.Items, seen)
	}
	if len(s.Properties) > 0 {
		names := make([]string, 0, len(s.Properties))
		for name := range s.Properties {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			out.Properties = append(out.Properties, model.Property{Name: name, Schema: convertSchema(s.Properties[name], seen)})
		}
	}
	return out
}

func schemaType(s *openapi3.Schema) model.SchemaType {
	if s.Type == nil {
		if len(s.Properties) > 0 {
			return model.TypeObject
		}
		return ""
	}
	for _, t := range []model.SchemaType{model.TypeObject, model.TypeArray, model.TypeString, model.TypeInteger, model.TypeNumber, model.TypeBoolean} {
		if s.Type.Is(string(t)) {
			return t
		}
	}
	return ""
}
