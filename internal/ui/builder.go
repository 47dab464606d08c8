package ui

import (
	"errors"
	"fmt"
	"strings"

	"apiscope/internal/form"
	"apiscope/internal/model"
	"apiscope/internal/store"
)

type rowKind int

const (
	rowSection rowKind = iota
	rowNote
	rowPathParam
	rowQueryParam
	rowWidget
	rowArrayItem
	rowAddItem
	rowHeader
	rowAddHeader
)

// row is one line of the parameter pane.
type row struct {
	kind   rowKind
	name   string
	param  *model.Param
	widget form.Widget
	// parent is the enclosing object array of an element row.
	parent *form.ObjectArrayEditor
	index  int
}

func (r row) selectable() bool { return r.kind != rowSection && r.kind != rowNote }

// prompt asks for one line of text and applies it.
type prompt struct {
	title  string
	text   string
	apply  func(string) error
	cancel func()
}

var errNothingToDo = errors.New("nothing to do here")

// builder holds the request form of the selected endpoint and maps cursor
// actions onto store and widget operations.
type builder struct {
	store  *store.Store
	form   *form.Form
	rows   []row
	cursor int
}

func newBuilder(st *store.Store) *builder {
	b := &builder{store: st, form: form.New(st, st.BodySchema())}
	st.Subscribe(func(f store.Field) {
		if f == store.FieldEndpoint {
			b.form.Reset(st.BodySchema())
			b.cursor = 0
		}
		b.refresh()
	})
	b.refresh()
	return b
}

func (b *builder) refresh() {
	b.rows = b.buildRows()
	if b.cursor >= len(b.rows) {
		b.cursor = len(b.rows) - 1
	}
	if b.cursor < 0 {
		b.cursor = 0
	}
	if len(b.rows) > 0 && !b.rows[b.cursor].selectable() {
		b.move(1)
	}
}

func (b *builder) buildRows() []row {
	ep, ok := b.store.Endpoint()
	if !ok {
		return []row{{kind: rowNote, name: "no endpoint selected"}}
	}
	var rows []row
	if len(ep.PathParams) > 0 {
		rows = append(rows, row{kind: rowSection, name: "Path"})
		for i := range ep.PathParams {
			rows = append(rows, row{kind: rowPathParam, name: ep.PathParams[i].Name, param: &ep.PathParams[i]})
		}
	}
	if len(ep.QueryParams) > 0 {
		rows = append(rows, row{kind: rowSection, name: "Query"})
		for i := range ep.QueryParams {
			rows = append(rows, row{kind: rowQueryParam, name: ep.QueryParams[i].Name, param: &ep.QueryParams[i]})
		}
	}
	if b.store.BodyEnabled() {
		rows = append(rows, row{kind: rowSection, name: "Body"})
		ws := b.form.Widgets()
		if len(ws) == 0 {
			rows = append(rows, row{kind: rowNote, name: "(no fields, edit the JSON with ctrl+e)"})
		}
		rows = widgetRows(rows, ws)
	}
	rows = append(rows, row{kind: rowSection, name: "Headers"})
	for _, h := range b.store.Headers() {
		rows = append(rows, row{kind: rowHeader, name: h.Name})
	}
	rows = append(rows, row{kind: rowAddHeader})
	return rows
}

func widgetRows(rows []row, ws []form.Widget) []row {
	for _, w := range ws {
		rows = append(rows, row{kind: rowWidget, widget: w})
		switch t := w.(type) {
		case *form.ObjectGroup:
			if t.Expanded {
				rows = widgetRows(rows, t.Children)
			}
		case *form.StringArrayEditor:
			for i := range t.Items {
				rows = append(rows, row{kind: rowArrayItem, widget: t, index: i})
			}
			rows = append(rows, row{kind: rowAddItem, widget: t})
		case *form.ObjectArrayEditor:
			for i, g := range t.Rows {
				rows = append(rows, row{kind: rowWidget, widget: g, parent: t, index: i})
				if g.Expanded {
					rows = widgetRows(rows, g.Children)
				}
			}
			rows = append(rows, row{kind: rowAddItem, widget: t})
		}
	}
	return rows
}

func (b *builder) current() (row, bool) {
	if b.cursor < 0 || b.cursor >= len(b.rows) {
		return row{}, false
	}
	return b.rows[b.cursor], true
}

// move steps the cursor by delta, skipping section lines.
func (b *builder) move(delta int) {
	if len(b.rows) == 0 {
		return
	}
	step := 1
	if delta < 0 {
		step, delta = -1, -delta
	}
	i := b.cursor
	for n := 0; n < delta; n++ {
		j := i + step
		for j >= 0 && j < len(b.rows) && !b.rows[j].selectable() {
			j += step
		}
		if j < 0 || j >= len(b.rows) {
			break
		}
		i = j
	}
	b.cursor = i
}

// activate performs the enter action of the current row. Rows that need
// text return a prompt instead.
func (b *builder) activate() (*prompt, error) {
	r, ok := b.current()
	if !ok {
		return nil, errNothingToDo
	}
	switch r.kind {
	case rowPathParam:
		return &prompt{
			title: "path " + r.name,
			text:  b.store.PathParams().Value(r.name),
			apply: func(s string) error { return b.store.SetPathParam(r.name, s) },
		}, nil
	case rowQueryParam:
		title := "query " + r.name
		if r.param.Schema != nil && len(r.param.Schema.Enum) > 0 {
			title += " [" + strings.Join(r.param.Schema.Enum, "|") + "]"
		}
		return &prompt{
			title: title,
			text:  b.store.QueryParams().Value(r.name),
			apply: func(s string) error { return b.store.SetQueryParam(r.name, s) },
		}, nil
	case rowArrayItem:
		sa := r.widget.(*form.StringArrayEditor)
		return &prompt{
			title: fmt.Sprintf("%s[%d]", sa.Path, r.index),
			text:  sa.Items[r.index],
			apply: func(s string) error { return sa.SetItem(r.index, s) },
		}, nil
	case rowAddItem:
		return nil, b.add()
	case rowHeader:
		return &prompt{
			title: "header " + r.name,
			text:  b.store.Headers().Value(r.name),
			apply: func(s string) error { b.store.SetHeader(r.name, s); return nil },
		}, nil
	case rowAddHeader:
		return b.newHeader(), nil
	case rowWidget:
		return b.activateWidget(r.widget)
	}
	return nil, errNothingToDo
}

func (b *builder) activateWidget(w form.Widget) (*prompt, error) {
	f := form.FieldOf(w)
	switch t := w.(type) {
	case *form.ObjectGroup:
		t.Toggle()
		b.refresh()
		return nil, nil
	case *form.EnumSelect:
		return nil, t.Select(nextOption(t.Options, t.Selected))
	case *form.BooleanSelect:
		return nil, t.Select(fmt.Sprint(!t.Value))
	case *form.ScalarInput:
		return &prompt{title: f.Path.String(), text: t.Text, apply: t.Input}, nil
	case *form.RawArrayText:
		return &prompt{title: f.Path.String() + " (json array)", text: t.Text, apply: func(s string) error {
			if err := t.Input(s); err != nil {
				return err
			}
			if !t.Valid {
				b.refresh()
				return fmt.Errorf("%s: %w, kept as draft", f.Path, form.ErrInvalidJSON)
			}
			return nil
		}}, nil
	}
	return nil, errNothingToDo
}

func nextOption(options []string, cur string) string {
	for i, o := range options {
		if o == cur {
			return options[(i+1)%len(options)]
		}
	}
	if len(options) == 0 {
		return ""
	}
	return options[0]
}

func (b *builder) newHeader() *prompt {
	b.store.AddHeader()
	drop := func() { b.store.DeleteHeader("") }
	return &prompt{title: "new header name", cancel: drop, apply: func(s string) error {
		s = strings.TrimSpace(s)
		if s == "" {
			drop()
			return nil
		}
		return b.store.RenameHeader("", s)
	}}
}

// add appends to the array under the cursor, or a header.
func (b *builder) add() error {
	r, ok := b.current()
	if !ok {
		return errNothingToDo
	}
	if r.parent != nil {
		return r.parent.Append()
	}
	switch t := r.widget.(type) {
	case *form.StringArrayEditor:
		return t.Append()
	case *form.ObjectArrayEditor:
		return t.Append()
	}
	if r.kind == rowHeader || r.kind == rowAddHeader {
		return errUseEnter
	}
	return errNothingToDo
}

var errUseEnter = errors.New("press enter on \"+ add header\" to add a header")

// remove deletes the element or header under the cursor, or clears a
// parameter.
func (b *builder) remove() error {
	r, ok := b.current()
	if !ok {
		return errNothingToDo
	}
	switch r.kind {
	case rowArrayItem:
		return r.widget.(*form.StringArrayEditor).Delete(r.index)
	case rowHeader:
		b.store.DeleteHeader(r.name)
		return nil
	case rowPathParam:
		return b.store.SetPathParam(r.name, "")
	case rowQueryParam:
		return b.store.SetQueryParam(r.name, "")
	case rowWidget:
		if r.parent != nil {
			return r.parent.Delete(r.index)
		}
	}
	return errNothingToDo
}

// rename asks for a new name of the header under the cursor.
func (b *builder) rename() (*prompt, error) {
	r, ok := b.current()
	if !ok || r.kind != rowHeader {
		return nil, errNothingToDo
	}
	return &prompt{title: "rename header " + r.name, text: r.name, apply: func(s string) error {
		return b.store.RenameHeader(r.name, strings.TrimSpace(s))
	}}, nil
}
