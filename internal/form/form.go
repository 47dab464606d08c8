package form

import (
	"strconv"

	"apiscope/internal/model"
	"apiscope/internal/value"
)

// Editor is the body owner the widgets write through.
type Editor interface {
	Body() any
	SetBodyValue(p value.Path, v any) error
	AppendBodyValue(p value.Path, v any) error
	RemoveBodyValue(p value.Path, i int) error
}

type draft struct {
	text string
	// base is the stored value the draft was typed over; the draft is
	// dropped once the stored value changes underneath it.
	base string
}

// Form presents the body of one endpoint. Collapse state and unparsed
// drafts live here, keyed by the display form of the path.
type Form struct {
	ed        Editor
	schema    *model.Schema
	collapsed map[string]bool
	drafts    map[string]draft
}

func New(ed Editor, s *model.Schema) *Form {
	return &Form{ed: ed, schema: s, collapsed: map[string]bool{}, drafts: map[string]draft{}}
}

// Reset points the form at a new schema and forgets all view state.
func (f *Form) Reset(s *model.Schema) {
	f.schema = s
	f.collapsed = map[string]bool{}
	f.drafts = map[string]draft{}
}

func (f *Form) Schema() *model.Schema { return f.schema }

// Expanded reports the collapse state of the group at p; groups start
// expanded.
func (f *Form) Expanded(p value.Path) bool { return !f.collapsed[p.String()] }

func (f *Form) SetExpanded(p value.Path, expanded bool) {
	if expanded {
		delete(f.collapsed, p.String())
		return
	}
	f.collapsed[p.String()] = true
}

func (f *Form) keepDraft(p value.Path, text string) {
	f.drafts[p.String()] = draft{text: text, base: value.Compact(value.Get(f.ed.Body(), p))}
}

func (f *Form) dropDraft(p value.Path) { delete(f.drafts, p.String()) }

// Widgets builds the widget tree for the current body. An object root is
// unwrapped into its properties.
func (f *Form) Widgets() []Widget {
	s := f.schema
	if s == nil {
		return nil
	}
	if Choose(s) == KindObjectGroup {
		return f.children(s, nil, 0)
	}
	return []Widget{f.build("", nil, s, false, 0)}
}

func (f *Form) children(s *model.Schema, at value.Path, depth int) []Widget {
	out := make([]Widget, 0, len(s.Properties))
	for _, p := range s.Properties {
		out = append(out, f.build(p.Name, at.Child(p.Name), p.Schema, s.IsRequired(p.Name), depth))
	}
	return out
}

func (f *Form) build(name string, at value.Path, s *model.Schema, required bool, depth int) Widget {
	fd := Field{Name: name, Path: at, Schema: s, Required: required, Depth: depth}
	cur := value.Get(f.ed.Body(), at)

	switch Choose(s) {
	case KindObjectGroup:
		return &ObjectGroup{
			Field:    fd,
			Expanded: f.Expanded(at),
			Children: f.children(s, at, depth+1),
			form:     f,
		}
	case KindStringArray:
		arr, _ := cur.([]any)
		items := make([]string, len(arr))
		for i, e := range arr {
			items[i] = displayText(e)
		}
		return &StringArrayEditor{Field: fd, Items: items, form: f}
	case KindObjectArray:
		arr, _ := cur.([]any)
		w := &ObjectArrayEditor{Field: fd, form: f}
		for i := range arr {
			rowPath := at.At(i)
			w.Rows = append(w.Rows, &ObjectGroup{
				Field:    Field{Name: "#" + strconv.Itoa(i), Path: rowPath, Schema: s.Items, Depth: depth + 1},
				Expanded: f.Expanded(rowPath),
				Children: f.children(s.Items, rowPath, depth+2),
				form:     f,
			})
		}
		return w
	case KindRawArray:
		w := &RawArrayText{Field: fd, Text: value.Compact(cur), Valid: true, form: f}
		if d, ok := f.drafts[at.String()]; ok {
			if d.base == w.Text {
				w.Text, w.Valid = d.text, false
			} else {
				f.dropDraft(at)
			}
		}
		return w
	case KindEnumSelect:
		sel, _ := cur.(string)
		return &EnumSelect{Field: fd, Options: append([]string(nil), s.Enum...), Selected: sel, form: f}
	case KindBooleanSelect:
		b, _ := cur.(bool)
		return &BooleanSelect{Field: fd, Value: b, form: f}
	default:
		numeric := s != nil && (s.Type == model.TypeInteger || s.Type == model.TypeNumber)
		return &ScalarInput{Field: fd, Numeric: numeric, Text: displayText(cur), form: f}
	}
}

// Walk visits ws depth first, descending into groups and object-array rows.
// Collapsed groups are still visited when all is true.
func Walk(ws []Widget, all bool, fn func(Widget)) {
	for _, w := range ws {
		fn(w)
		switch t := w.(type) {
		case *ObjectGroup:
			if all || t.Expanded {
				Walk(t.Children, all, fn)
			}
		case *ObjectArrayEditor:
			for _, row := range t.Rows {
				Walk([]Widget{row}, all, fn)
			}
		}
	}
}

// Visible lists the widgets a user currently sees, in display order.
func Visible(ws []Widget) []Widget {
	var out []Widget
	Walk(ws, false, func(w Widget) { out = append(out, w) })
	return out
}

// Find returns the widget presenting p.
func (f *Form) Find(p value.Path) (Widget, bool) {
	key := p.String()
	var found Widget
	Walk(f.Widgets(), true, func(w Widget) {
		if found == nil && w.field().Path.String() == key {
			found = w
		}
	})
	return found, found != nil
}
