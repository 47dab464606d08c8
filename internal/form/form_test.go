package form

import (
	"errors"
	"math"
	"testing"

	"apiscope/internal/model"
	"apiscope/internal/store"
	"apiscope/internal/value"
)

func str() *model.Schema { return &model.Schema{Type: model.TypeString} }

func petSchema() *model.Schema {
	return &model.Schema{
		Type:     model.TypeObject,
		Required: []string{"name", "photoUrls"},
		Properties: []model.Property{
			{Name: "id", Schema: &model.Schema{Type: model.TypeInteger}},
			{Name: "name", Schema: str()},
			{Name: "category", Schema: &model.Schema{
				Type: model.TypeObject,
				Properties: []model.Property{
					{Name: "id", Schema: &model.Schema{Type: model.TypeInteger}},
					{Name: "name", Schema: str()},
				},
			}},
			{Name: "photoUrls", Schema: &model.Schema{Type: model.TypeArray, Items: str()}},
			{Name: "tags", Schema: &model.Schema{Type: model.TypeArray, Items: &model.Schema{
				Type: model.TypeObject,
				Properties: []model.Property{
					{Name: "id", Schema: &model.Schema{Type: model.TypeInteger}},
					{Name: "name", Schema: str()},
				},
			}}},
			{Name: "status", Schema: &model.Schema{Type: model.TypeString, Enum: []string{"available", "pending", "sold"}}},
			{Name: "vaccinated", Schema: &model.Schema{Type: model.TypeBoolean}},
			{Name: "scores", Schema: &model.Schema{Type: model.TypeArray, Items: &model.Schema{Type: model.TypeNumber}}},
		},
	}
}

func newForm(t *testing.T) (*Form, *store.Store) {
	t.Helper()
	s := store.New(nil)
	ep := &model.Endpoint{
		ID:          "add-pet",
		Method:      "POST",
		Path:        "/pet",
		RequestBody: model.RequestBody{Required: true, Schema: petSchema()},
	}
	s.Select(ep)
	return New(s, s.BodySchema()), s
}

func find[T Widget](t *testing.T, f *Form, path string) T {
	t.Helper()
	p, err := value.ParsePath(path)
	if err != nil {
		t.Fatal(err)
	}
	w, ok := f.Find(p)
	if !ok {
		t.Fatalf("no widget at %s", path)
	}
	tw, ok := w.(T)
	if !ok {
		t.Fatalf("widget at %s is %s", path, w.Kind())
	}
	return tw
}

func at(t *testing.T, s *store.Store, path string) any {
	t.Helper()
	p, err := value.ParsePath(path)
	if err != nil {
		t.Fatal(err)
	}
	return value.Get(s.Body(), p)
}

func TestChoose(t *testing.T) {
	cases := []struct {
		schema *model.Schema
		want   Kind
	}{
		{petSchema(), KindObjectGroup},
		{&model.Schema{Type: model.TypeObject}, KindScalarInput},
		{&model.Schema{Type: model.TypeArray, Items: str()}, KindStringArray},
		{&model.Schema{Type: model.TypeArray, Items: &model.Schema{Type: model.TypeObject}}, KindObjectArray},
		{&model.Schema{Type: model.TypeArray, Items: &model.Schema{Type: model.TypeInteger}}, KindRawArray},
		{&model.Schema{Type: model.TypeArray}, KindRawArray},
		{&model.Schema{Type: model.TypeString, Enum: []string{"a"}}, KindEnumSelect},
		{&model.Schema{Type: model.TypeString, Enum: []string{}}, KindScalarInput},
		{&model.Schema{Type: model.TypeBoolean}, KindBooleanSelect},
		{&model.Schema{Type: model.TypeInteger}, KindScalarInput},
		{nil, KindScalarInput},
	}
	for i, c := range cases {
		if got := Choose(c.schema); got != c.want {
			t.Errorf("case %d: Choose = %s, want %s", i, got, c.want)
		}
	}
}

func TestWidgetsFollowSchemaOrder(t *testing.T) {
	f, _ := newForm(t)
	ws := f.Widgets()
	var names []string
	for _, w := range ws {
		names = append(names, FieldOf(w).Name)
	}
	want := []string{"id", "name", "category", "photoUrls", "tags", "status", "vaccinated", "scores"}
	if len(names) != len(want) {
		t.Fatalf("names = %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names = %v, want %v", names, want)
		}
	}
	if !FieldOf(ws[1]).Required || FieldOf(ws[0]).Required {
		t.Fatalf("required flags wrong")
	}
	if FieldOf(ws[1]).Label() != "name *" {
		t.Fatalf("label = %q", FieldOf(ws[1]).Label())
	}
}

func TestEnumRestrictsValues(t *testing.T) {
	f, s := newForm(t)
	w := find[*EnumSelect](t, f, "status")
	for _, opt := range []string{"available", "pending", "sold"} {
		if err := w.Select(opt); err != nil {
			t.Fatalf("select %s: %v", opt, err)
		}
		if at(t, s, "status") != opt {
			t.Fatalf("status = %v", at(t, s, "status"))
		}
	}
	for _, bad := range []string{"", "lost", "Available"} {
		if err := w.Select(bad); !errors.Is(err, ErrNotAnOption) {
			t.Fatalf("select %q: expected ErrNotAnOption, got %v", bad, err)
		}
		if at(t, s, "status") != "sold" {
			t.Fatalf("rejected option changed the value")
		}
	}
	if err := f.Assign(value.Path{value.Key("status")}, "lost"); !errors.Is(err, ErrNotAnOption) {
		t.Fatalf("Assign bypassed the enum: %v", err)
	}
}

func TestBooleanSelect(t *testing.T) {
	f, s := newForm(t)
	w := find[*BooleanSelect](t, f, "vaccinated")
	if err := w.Select("true"); err != nil {
		t.Fatal(err)
	}
	if at(t, s, "vaccinated") != true {
		t.Fatalf("vaccinated = %#v", at(t, s, "vaccinated"))
	}
	if err := w.Select("yes"); !errors.Is(err, ErrNotAnOption) {
		t.Fatalf("expected ErrNotAnOption, got %v", err)
	}
}

func TestScalarInputNumeric(t *testing.T) {
	f, s := newForm(t)
	w := find[*ScalarInput](t, f, "category.id")
	if !w.Numeric {
		t.Fatalf("integer field should be numeric")
	}
	if err := w.Input("42"); err != nil {
		t.Fatal(err)
	}
	if at(t, s, "category.id") != 42.0 {
		t.Fatalf("category.id = %#v", at(t, s, "category.id"))
	}
	if err := w.Input("4x"); err != nil {
		t.Fatal(err)
	}
	if f, ok := at(t, s, "category.id").(float64); !ok || !math.IsNaN(f) {
		t.Fatalf("non-numeric input should be written through as NaN, got %#v", at(t, s, "category.id"))
	}
	if find[*ScalarInput](t, f, "category.id").Text != "NaN" {
		t.Fatalf("NaN should display as NaN")
	}

	name := find[*ScalarInput](t, f, "name")
	if name.Numeric {
		t.Fatalf("string field should not be numeric")
	}
	if err := name.Input("doggie"); err != nil {
		t.Fatal(err)
	}
	if at(t, s, "name") != "doggie" {
		t.Fatalf("name = %#v", at(t, s, "name"))
	}
}

func TestStringArrayEditor(t *testing.T) {
	f, s := newForm(t)
	w := find[*StringArrayEditor](t, f, "photoUrls")
	if len(w.Items) != 1 || w.Items[0] != "" {
		t.Fatalf("items = %#v", w.Items)
	}
	if err := w.SetItem(0, "a.jpg"); err != nil {
		t.Fatal(err)
	}
	if err := w.Append(); err != nil {
		t.Fatal(err)
	}
	if !value.Equal(at(t, s, "photoUrls"), []any{"a.jpg", ""}) {
		t.Fatalf("photoUrls = %s", value.Compact(at(t, s, "photoUrls")))
	}
	if err := w.Delete(0); err != nil {
		t.Fatal(err)
	}
	if !value.Equal(at(t, s, "photoUrls"), []any{""}) {
		t.Fatalf("photoUrls = %s", value.Compact(at(t, s, "photoUrls")))
	}
}

func TestObjectArrayEditor(t *testing.T) {
	f, s := newForm(t)
	w := find[*ObjectArrayEditor](t, f, "tags")
	if len(w.Rows) != 1 {
		t.Fatalf("rows = %d", len(w.Rows))
	}
	if err := f.Assign(value.Path{value.Key("tags"), value.Index(0), value.Key("name")}, "first"); err != nil {
		t.Fatal(err)
	}
	if err := w.Append(); err != nil {
		t.Fatal(err)
	}
	w = find[*ObjectArrayEditor](t, f, "tags")
	if len(w.Rows) != 2 || w.Rows[1].Name != "#1" {
		t.Fatalf("rows after append = %d", len(w.Rows))
	}
	if err := f.Assign(value.Path{value.Key("tags"), value.Index(1), value.Key("name")}, "second"); err != nil {
		t.Fatal(err)
	}
	if err := w.Delete(0); err != nil {
		t.Fatal(err)
	}
	if at(t, s, "tags[0].name") != "second" {
		t.Fatalf("delete did not renumber: %s", value.Compact(at(t, s, "tags")))
	}
	want := "{\"id\":0,\"name\":\"\"}"
	if err := w.Append(); err != nil {
		t.Fatal(err)
	}
	if got := value.Compact(at(t, s, "tags[1]")); got != want {
		t.Fatalf("appended row = %s, want %s", got, want)
	}
}

func TestRawArrayText(t *testing.T) {
	f, s := newForm(t)
	w := find[*RawArrayText](t, f, "scores")
	if w.Text != "[0]" {
		t.Fatalf("text = %q", w.Text)
	}
	if err := w.Input("[1, 2.5"); err != nil {
		t.Fatalf("invalid json must not be an error: %v", err)
	}
	if !value.Equal(at(t, s, "scores"), []any{0.0}) {
		t.Fatalf("invalid json changed the value")
	}
	again := find[*RawArrayText](t, f, "scores")
	if again.Text != "[1, 2.5" || again.Valid {
		t.Fatalf("draft lost: %q valid=%v", again.Text, again.Valid)
	}
	if err := again.Input("[1, 2.5]"); err != nil {
		t.Fatal(err)
	}
	if !value.Equal(at(t, s, "scores"), []any{1.0, 2.5}) {
		t.Fatalf("scores = %s", value.Compact(at(t, s, "scores")))
	}
	if got := find[*RawArrayText](t, f, "scores"); got.Text != "[1,2.5]" || !got.Valid {
		t.Fatalf("text after apply = %q", got.Text)
	}
	if err := f.Assign(value.Path{value.Key("scores")}, "{}"); !errors.Is(err, ErrInvalidJSON) {
		t.Fatalf("expected ErrInvalidJSON, got %v", err)
	}
}

func TestRawArrayDraftDroppedWhenValueChanges(t *testing.T) {
	f, s := newForm(t)
	_ = find[*RawArrayText](t, f, "scores").Input("[oops")
	if err := s.SetBodyValue(value.Path{value.Key("scores")}, []any{9.0}); err != nil {
		t.Fatal(err)
	}
	if got := find[*RawArrayText](t, f, "scores"); got.Text != "[9]" || !got.Valid {
		t.Fatalf("stale draft shown: %q", got.Text)
	}
}

func TestCollapseStateByPath(t *testing.T) {
	f, _ := newForm(t)
	g := find[*ObjectGroup](t, f, "category")
	if !g.Expanded {
		t.Fatalf("groups start expanded")
	}
	before := len(Visible(f.Widgets()))
	g.Toggle()
	if find[*ObjectGroup](t, f, "category").Expanded {
		t.Fatalf("collapse state not kept")
	}
	if after := len(Visible(f.Widgets())); after != before-2 {
		t.Fatalf("visible widgets %d -> %d", before, after)
	}
	f.Reset(f.Schema())
	if !find[*ObjectGroup](t, f, "category").Expanded {
		t.Fatalf("reset should expand everything")
	}
}

func TestAssignStringArrayElement(t *testing.T) {
	f, s := newForm(t)
	if err := f.Assign(value.Path{value.Key("photoUrls"), value.Index(1)}, "b.jpg"); err != nil {
		t.Fatal(err)
	}
	if !value.Equal(at(t, s, "photoUrls"), []any{"", "b.jpg"}) {
		t.Fatalf("photoUrls = %s", value.Compact(at(t, s, "photoUrls")))
	}
	if err := f.Assign(value.Path{value.Key("photoUrls"), value.Index(5)}, "x"); err == nil {
		t.Fatalf("expected error for index past the end")
	}
	if err := f.Assign(value.Path{value.Key("category")}, "x"); !errors.Is(err, ErrNotAssignable) {
		t.Fatalf("expected ErrNotAssignable, got %v", err)
	}
	if err := f.Assign(value.Path{value.Key("nope")}, "x"); !errors.Is(err, ErrNoField) {
		t.Fatalf("expected ErrNoField, got %v", err)
	}
}

func TestRootArraySchema(t *testing.T) {
	s := store.New(nil)
	s.Select(&model.Endpoint{
		Method:      "PUT",
		Path:        "/tags",
		RequestBody: model.RequestBody{Schema: &model.Schema{Type: model.TypeArray, Items: str()}},
	})
	f := New(s, s.BodySchema())
	ws := f.Widgets()
	if len(ws) != 1 || ws[0].Kind() != KindStringArray {
		t.Fatalf("unexpected root widgets %v", ws)
	}
	if err := ws[0].(*StringArrayEditor).Append(); err != nil {
		t.Fatal(err)
	}
	if s.BodyText() != "[\n  \"\",\n  \"\"\n]" {
		t.Fatalf("body text = %q", s.BodyText())
	}
}
