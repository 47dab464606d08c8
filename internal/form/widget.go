// Package form maps a body schema onto editable widgets.
//
// Widget is a closed sum type: every schema node is presented as exactly one
// of the seven concrete widgets below, and every edit made through a widget
// goes back into the body tree by path.
package form

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"apiscope/internal/model"
	"apiscope/internal/schema"
	"apiscope/internal/value"
)

var ErrNotAnOption = errors.New("value is not one of the allowed options")

type Kind int

const (
	KindObjectGroup Kind = iota
	KindStringArray
	KindObjectArray
	KindRawArray
	KindEnumSelect
	KindBooleanSelect
	KindScalarInput
)

func (k Kind) String() string {
	switch k {
	case KindObjectGroup:
		return "object"
	case KindStringArray:
		return "string-array"
	case KindObjectArray:
		return "object-array"
	case KindRawArray:
		return "raw-array"
	case KindEnumSelect:
		return "enum"
	case KindBooleanSelect:
		return "boolean"
	case KindScalarInput:
		return "input"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Choose picks the representation for s. The first matching rule wins.
func Choose(s *model.Schema) Kind {
	if s == nil {
		return KindScalarInput
	}
	switch {
	case s.Type == model.TypeObject && len(s.Properties) > 0:
		return KindObjectGroup
	case s.Type == model.TypeArray && s.Items != nil && s.Items.Type == model.TypeString:
		return KindStringArray
	case s.Type == model.TypeArray && s.Items != nil && s.Items.Type == model.TypeObject:
		return KindObjectArray
	case s.Type == model.TypeArray:
		return KindRawArray
	case s.Type == model.TypeString && len(s.Enum) > 0:
		return KindEnumSelect
	case s.Type == model.TypeBoolean:
		return KindBooleanSelect
	default:
		return KindScalarInput
	}
}

// Field is what every widget has in common.
type Field struct {
	Name     string
	Path     value.Path
	Schema   *model.Schema
	Required bool
	Depth    int
}

func (f *Field) field() *Field { return f }

// Label is the display name, flagged when required.
func (f *Field) Label() string {
	if f.Required {
		return f.Name + " *"
	}
	return f.Name
}

type Widget interface {
	Kind() Kind
	field() *Field
}

// FieldOf exposes the common part of w.
func FieldOf(w Widget) *Field { return w.field() }

// ObjectGroup is a collapsible section over an object's properties.
type ObjectGroup struct {
	Field
	Expanded bool
	Children []Widget
	form     *Form
}

func (*ObjectGroup) Kind() Kind { return KindObjectGroup }

func (w *ObjectGroup) Toggle() {
	w.Expanded = !w.Expanded
	w.form.SetExpanded(w.Path, w.Expanded)
}

// StringArrayEditor is a list of string inputs.
type StringArrayEditor struct {
	Field
	Items []string
	form  *Form
}

func (*StringArrayEditor) Kind() Kind { return KindStringArray }

func (w *StringArrayEditor) SetItem(i int, text string) error {
	return w.form.ed.SetBodyValue(w.Path.At(i), text)
}

func (w *StringArrayEditor) Append() error {
	return w.form.ed.AppendBodyValue(w.Path, "")
}

func (w *StringArrayEditor) Delete(i int) error {
	return w.form.ed.RemoveBodyValue(w.Path, i)
}

// ObjectArrayEditor is a list of sub-forms, one per element. Rows are
// addressed by index only; deleting a row renumbers the ones after it.
type ObjectArrayEditor struct {
	Field
	Rows []*ObjectGroup
	form *Form
}

func (*ObjectArrayEditor) Kind() Kind { return KindObjectArray }

func (w *ObjectArrayEditor) Append() error {
	return w.form.ed.AppendBodyValue(w.Path, schema.Synthesize(w.Schema.Items))
}

func (w *ObjectArrayEditor) Delete(i int) error {
	return w.form.ed.RemoveBodyValue(w.Path, i)
}

// RawArrayText edits an array as JSON text.
type RawArrayText struct {
	Field
	Text string
	// Valid is false while Text holds an edit that did not parse.
	Valid bool
	form  *Form
}

func (*RawArrayText) Kind() Kind { return KindRawArray }

// Input applies text when it parses as a JSON array. Anything else is kept
// as a draft and the stored value stays as it was.
func (w *RawArrayText) Input(text string) error {
	w.Text = text
	v, err := value.Parse(text)
	if _, isArray := v.([]any); err != nil || !isArray {
		w.Valid = false
		w.form.keepDraft(w.Path, text)
		return nil
	}
	w.Valid = true
	w.form.dropDraft(w.Path)
	return w.form.ed.SetBodyValue(w.Path, v)
}

// EnumSelect is a choice among the schema's enumerated strings.
type EnumSelect struct {
	Field
	Options  []string
	Selected string
	form     *Form
}

func (*EnumSelect) Kind() Kind { return KindEnumSelect }

func (w *EnumSelect) Select(option string) error {
	for _, o := range w.Options {
		if o == option {
			w.Selected = option
			return w.form.ed.SetBodyValue(w.Path, option)
		}
	}
	return fmt.Errorf("%s: %q: %w", w.Path, option, ErrNotAnOption)
}

// BooleanSelect is a choice between "true" and "false".
type BooleanSelect struct {
	Field
	Value bool
	form  *Form
}

func (*BooleanSelect) Kind() Kind { return KindBooleanSelect }

func (*BooleanSelect) Options() []string { return []string{"true", "false"} }

func (w *BooleanSelect) Select(option string) error {
	switch option {
	case "true":
		w.Value = true
	case "false":
		w.Value = false
	default:
		return fmt.Errorf("%s: %q: %w", w.Path, option, ErrNotAnOption)
	}
	return w.form.ed.SetBodyValue(w.Path, w.Value)
}

// ScalarInput is a free text input, numeric for integer and number schemas.
type ScalarInput struct {
	Field
	Numeric bool
	Text    string
	form    *Form
}

func (*ScalarInput) Kind() Kind { return KindScalarInput }

// Input writes text through. In numeric mode text that is not a number is
// stored as NaN rather than rejected.
func (w *ScalarInput) Input(text string) error {
	w.Text = text
	if !w.Numeric {
		return w.form.ed.SetBodyValue(w.Path, text)
	}
	return w.form.ed.SetBodyValue(w.Path, parseNumber(text))
}

func parseNumber(text string) float64 {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

func displayText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if math.IsNaN(t) {
			return "NaN"
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return value.Compact(v)
	}
}
