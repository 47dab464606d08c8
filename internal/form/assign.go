package form

import (
	"errors"
	"fmt"

	"apiscope/internal/value"
)

var (
	ErrNoField       = errors.New("no form field at path")
	ErrNotAssignable = errors.New("field cannot be assigned from text")
	ErrInvalidJSON   = errors.New("invalid json array")
)

// Assign sets the field at p from text the way a user typing into its
// widget would. Elements of string arrays are addressed by index; the index
// equal to the current length appends a new element first.
func (f *Form) Assign(p value.Path, text string) error {
	if w, ok := f.Find(p); ok {
		switch t := w.(type) {
		case *ScalarInput:
			return t.Input(text)
		case *EnumSelect:
			return t.Select(text)
		case *BooleanSelect:
			return t.Select(text)
		case *RawArrayText:
			if err := t.Input(text); err != nil {
				return err
			}
			if !t.Valid {
				return fmt.Errorf("%s: %w", p, ErrInvalidJSON)
			}
			return nil
		default:
			return fmt.Errorf("%s (%s): %w", p, w.Kind(), ErrNotAssignable)
		}
	}

	if len(p) > 0 && p[len(p)-1].IsIndex {
		if w, ok := f.Find(p[:len(p)-1]); ok {
			if sa, ok := w.(*StringArrayEditor); ok {
				i := p[len(p)-1].Index
				if i == len(sa.Items) {
					if err := sa.Append(); err != nil {
						return err
					}
				}
				return sa.SetItem(i, text)
			}
		}
	}
	return fmt.Errorf("%s: %w", p, ErrNoField)
}
