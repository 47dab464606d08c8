package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"

	"apiscope/internal/model"
	"apiscope/internal/value"
)

func names(props []model.Property) []string {
	var out []string
	for _, p := range props {
		out = append(out, p.Name)
	}
	return out
}

func keys(eps []model.Endpoint) []string {
	var out []string
	for _, ep := range eps {
		out = append(out, ep.Key())
	}
	return out
}

func TestLoadSamplePetstore(t *testing.T) {
	c, err := Load(context.Background(), "../../examples/petstore.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Title != "Swagger Petstore" || c.BaseURL != "https://petstore3.swagger.io/api/v3" {
		t.Fatalf("header = %q %q", c.Title, c.BaseURL)
	}

	del, ok := c.Find("DELETE /user/{username}")
	if !ok {
		t.Fatal("DELETE /user/{username} not found")
	}
	if len(del.PathParams) != 1 || del.PathParams[0].Name != "username" || !del.PathParams[0].Required {
		t.Fatalf("path params = %+v", del.PathParams)
	}

	add, ok := c.Find("post /pet")
	if !ok {
		t.Fatal("POST /pet not found")
	}
	s := add.RequestBody.Schema
	want := []string{"id", "name", "category", "photoUrls", "tags", "status"}
	if !add.RequestBody.Required || s == nil || !reflect.DeepEqual(names(s.Properties), want) {
		t.Fatalf("body schema properties = %v", names(s.Properties))
	}
	status, _ := s.Property("status")
	if !reflect.DeepEqual(status.Enum, []string{"available", "pending", "sold"}) {
		t.Fatalf("enum = %v", status.Enum)
	}

	user, _ := c.Find("3cac872b-8dd5-4274-a041-a231784cc928")
	if len(user.Responses) != 1 || !user.Responses[0].HasExample {
		t.Fatalf("responses = %+v", user.Responses)
	}
	ex := value.Compact(user.Responses[0].Example)
	if ex != `{"id":10,"username":"theUser","firstName":"John","lastName":"James","email":"john@email.com","password":"12345","phone":"12345","userStatus":1}` {
		t.Fatalf("example = %s", ex)
	}
}

func TestNativeJSONCatalog(t *testing.T) {
	data, err := os.ReadFile("testdata/catalog.json")
	if err != nil {
		t.Fatal(err)
	}
	c, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(c.Endpoints) != 1 {
		t.Fatalf("endpoints = %d", len(c.Endpoints))
	}
	ep := c.Endpoints[0]
	if ep.ID == "" || ep.Method != "POST" {
		t.Fatalf("id=%q method=%q", ep.ID, ep.Method)
	}
	if got := []string{ep.QueryParams[0].Name, ep.QueryParams[1].Name}; !reflect.DeepEqual(got, []string{"dryRun", "channel"}) {
		t.Fatalf("query order = %v", got)
	}
	if !ep.QueryParams[0].Required || ep.QueryParams[1].Required {
		t.Fatalf("query required flags = %+v", ep.QueryParams)
	}
	if got := names(ep.RequestBody.Schema.Properties); !reflect.DeepEqual(got, []string{"petId", "quantity", "complete"}) {
		t.Fatalf("properties = %v", got)
	}
	if r := ep.Responses[0]; r.Status != "200" || value.Compact(r.Example) != `{"status":"placed","id":3}` {
		t.Fatalf("200 = %+v", r)
	}
	if r := ep.Responses[1]; r.ContentType != "text/plain" || r.HasExample {
		t.Fatalf("400 = %+v", r)
	}
}

func TestNativeCatalogErrors(t *testing.T) {
	for name, doc := range map[string]string{
		"not a list":     `endpoints: 3`,
		"missing path":   `[{method: GET}]`,
		"scalar element": `[GET]`,
		"swagger 2":      `swagger: "2.0"`,
	} {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestOpenAPIDocument(t *testing.T) {
	data, err := os.ReadFile("testdata/openapi.yaml")
	if err != nil {
		t.Fatal(err)
	}
	c, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if c.Title != "Tree Service" || c.BaseURL != "/api/v1" {
		t.Fatalf("header = %q %q", c.Title, c.BaseURL)
	}
	want := []string{"POST /nodes", "GET /nodes/{nodeId}", "DELETE /nodes/{nodeId}"}
	if got := keys(c.Endpoints); !reflect.DeepEqual(got, want) {
		t.Fatalf("endpoints = %v", got)
	}

	get, ok := c.Find("getNode")
	if !ok {
		t.Fatal("getNode not found by operation id")
	}
	if len(get.PathParams) != 1 || get.PathParams[0].Name != "nodeId" || get.PathParams[0].Schema.Type != model.TypeInteger {
		t.Fatalf("path params = %+v", get.PathParams)
	}
	if len(get.QueryParams) != 1 || get.QueryParams[0].Name != "depth" {
		t.Fatalf("header parameters must not become query params: %+v", get.QueryParams)
	}
	if r := get.Responses[0]; r.Status != "200" || value.Compact(r.Example) != `{"children":[],"name":"root"}` {
		t.Fatalf("200 = %+v", r)
	}
	if get.Responses[1].HasExample {
		t.Fatal("404 has no example")
	}

	create, _ := c.Find("createNode")
	s := create.RequestBody.Schema
	if !create.RequestBody.Required || !reflect.DeepEqual(names(s.Properties), []string{"children", "kind", "name"}) {
		t.Fatalf("body = %+v", create.RequestBody)
	}
	children, _ := s.Property("children")
	if children.Type != model.TypeArray || children.Items == nil || children.Items.Type != model.TypeObject {
		t.Fatalf("children = %+v", children)
	}
	if len(children.Items.Properties) != 0 {
		t.Fatal("recursive schema was expanded")
	}
	if value.Compact(create.Responses[0].Example) != `{"name":"leaf"}` {
		t.Fatalf("named example = %s", value.Compact(create.Responses[0].Example))
	}

	if _, ok := c.Find("delete /nodes/{nodeId}"); !ok {
		t.Fatal("operation without id not found")
	}
}

func TestLoadRemoteResolvesServer(t *testing.T) {
	data, err := os.ReadFile("testdata/openapi.yaml")
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/openapi.yaml" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	c, err := Load(context.Background(), srv.URL+"/openapi.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.BaseURL != srv.URL+"/api/v1" {
		t.Fatalf("base url = %q", c.BaseURL)
	}
	if _, err := Load(context.Background(), srv.URL+"/missing.yaml"); err == nil {
		t.Fatal("expected error for 404")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(context.Background(), t.TempDir()+"/nope.yaml"); err == nil {
		t.Fatal("expected error")
	}
	if _, err := Load(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty source")
	}
}

func TestGroupByResource(t *testing.T) {
	eps := []model.Endpoint{
		{Method: "DELETE", Path: "/user/{username}"},
		{Method: "GET", Path: "/pet/findByStatus"},
		{Method: "GET", Path: "/user/login"},
		{Method: "GET", Path: "/users"},
		{Method: "GET", Path: "/"},
	}
	groups := GroupByResource(eps)
	var got []string
	for _, g := range groups {
		got = append(got, g.Name)
	}
	if !reflect.DeepEqual(got, []string{"/user", "/pet", "/users", "/"}) {
		t.Fatalf("groups = %v", got)
	}
	if !reflect.DeepEqual(keys(groups[0].Endpoints), []string{"DELETE /user/{username}", "GET /user/login"}) {
		t.Fatalf("/user = %v", keys(groups[0].Endpoints))
	}
}

func TestFilter(t *testing.T) {
	eps := []model.Endpoint{
		{Method: "GET", Path: "/pet/findByStatus", Summary: "Finds Pets by status"},
		{Method: "DELETE", Path: "/user/{username}", Summary: "Delete user"},
		{Method: "GET", Path: "/user/login", Summary: "Logs user into the system"},
	}
	if got := Filter(eps, ""); len(got) != 3 {
		t.Fatalf("empty query kept %d", len(got))
	}
	if got := keys(Filter(eps, "login")); !reflect.DeepEqual(got, []string{"GET /user/login"}) {
		t.Fatalf("login = %v", got)
	}
	if got := keys(Filter(eps, "DEL")); len(got) == 0 || got[0] != "DELETE /user/{username}" {
		t.Fatalf("DEL = %v", got)
	}
	if got := Filter(eps, "zzz"); len(got) != 0 {
		t.Fatalf("zzz = %v", keys(got))
	}
}

func TestParseInlineOpenAPI(t *testing.T) {
	doc := `openapi: 3.0.0
info: {title: t, version: "1"}
paths:
  /pet:
    get:
      responses:
        "200": {description: ok}
`
	c, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := keys(c.Endpoints); !reflect.DeepEqual(got, []string{"GET /pet"}) {
		t.Fatalf("endpoints = %v", got)
	}
}

func TestOperationParameterOverridesPathItem(t *testing.T) {
	doc := `openapi: 3.0.0
info: {title: t, version: "1"}
paths:
  /pet/{petId}:
    parameters:
      - {name: petId, in: path, required: true, schema: {type: integer}}
      - {name: verbose, in: query, schema: {type: boolean}}
    get:
      parameters:
        - {name: petId, in: path, required: true, schema: {type: string}}
        - {name: verbose, in: header, schema: {type: string}}
      responses:
        "200": {description: ok}
`
	c, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	ep := c.Endpoints[0]
	if len(ep.PathParams) != 1 || ep.PathParams[0].Schema.Type != model.TypeString {
		t.Fatalf("path params = %+v", ep.PathParams)
	}
	if len(ep.QueryParams) != 1 || ep.QueryParams[0].Name != "verbose" {
		t.Fatalf("query params = %+v", ep.QueryParams)
	}
}

func TestNativeRecursiveAnchor(t *testing.T) {
	doc := `- method: POST
  path: /nodes
  request_body:
    content:
      application/json:
        schema: &node
          type: object
          properties:
            name: {type: string}
            child: *node
`
	c, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	s := c.Endpoints[0].RequestBody.Schema
	if !reflect.DeepEqual(names(s.Properties), []string{"name", "child"}) {
		t.Fatalf("properties = %v", names(s.Properties))
	}
	child, _ := s.Property("child")
	if child.Type != model.TypeObject || len(child.Properties) != 0 {
		t.Fatalf("child = %+v", child)
	}
}
