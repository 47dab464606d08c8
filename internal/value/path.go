package value

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrNoParent   = errors.New("parent does not exist")
	ErrIndexRange = errors.New("index out of range")
	ErrNotArray   = errors.New("value is not an array")
)

// Segment addresses one step into a tree: an object key or an array index.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

func Key(k string) Segment { return Segment{Key: k} }
func Index(i int) Segment  { return Segment{Index: i, IsIndex: true} }

// Path is a structured location inside a tree. The string form
// ("items[2].name") is only used for display and collapse-state keys.
type Path []Segment

func (p Path) Child(key string) Path { return p.append(Key(key)) }
func (p Path) At(i int) Path         { return p.append(Index(i)) }

func (p Path) append(s Segment) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, s)
}

func (p Path) String() string {
	var b strings.Builder
	for i, s := range p {
		if s.IsIndex {
			b.WriteString("[" + strconv.Itoa(s.Index) + "]")
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s.Key)
	}
	return b.String()
}

// ParsePath reads the display form. Keys containing '.' or '[' cannot be
// expressed this way; build such paths with Child instead.
func ParsePath(s string) (Path, error) {
	var p Path
	if s == "" {
		return p, nil
	}
	for _, part := range strings.Split(s, ".") {
		name := part
		rest := ""
		if i := strings.IndexByte(part, '['); i >= 0 {
			name, rest = part[:i], part[i:]
		}
		if name != "" {
			p = append(p, Key(name))
		} else if rest == "" {
			return nil, fmt.Errorf("invalid path %q: empty segment", s)
		}
		for rest != "" {
			end := strings.IndexByte(rest, ']')
			if rest[0] != '[' || end < 0 {
				return nil, fmt.Errorf("invalid path %q", s)
			}
			n, err := strconv.Atoi(rest[1:end])
			if err != nil || n < 0 {
				return nil, fmt.Errorf("invalid path %q: bad index %q", s, rest[1:end])
			}
			p = append(p, Index(n))
			rest = rest[end+1:]
		}
	}
	return p, nil
}

// Lookup descends p from root.
func Lookup(root any, p Path) (any, bool) {
	cur := root
	for _, s := range p {
		next, ok := step(cur, s)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// Get is Lookup with a soft failure: a missing location yields "".
func Get(root any, p Path) any {
	v, ok := Lookup(root, p)
	if !ok {
		return ""
	}
	return v
}

func step(cur any, s Segment) (any, bool) {
	if s.IsIndex {
		arr, ok := cur.([]any)
		if !ok || s.Index < 0 || s.Index >= len(arr) {
			return nil, false
		}
		return arr[s.Index], true
	}
	obj, ok := cur.(*Object)
	if !ok {
		return nil, false
	}
	return obj.Get(s.Key)
}

// Set assigns v at p, mutating root in place, and returns the root. No
// intermediate structure is created, and array positions must already exist.
// An empty path replaces the root.
func Set(root any, p Path, v any) (any, error) {
	if len(p) == 0 {
		return v, nil
	}
	parent, ok := Lookup(root, p[:len(p)-1])
	if !ok {
		return root, fmt.Errorf("set %s: %w", p, ErrNoParent)
	}
	last := p[len(p)-1]
	if last.IsIndex {
		arr, ok := parent.([]any)
		if !ok {
			return root, fmt.Errorf("set %s: %w", p, ErrNotArray)
		}
		if last.Index < 0 || last.Index >= len(arr) {
			return root, fmt.Errorf("set %s: %w", p, ErrIndexRange)
		}
		arr[last.Index] = v
		return root, nil
	}
	obj, ok := parent.(*Object)
	if !ok || obj == nil {
		return root, fmt.Errorf("set %s: %w", p, ErrNoParent)
	}
	obj.Set(last.Key, v)
	return root, nil
}

// Append pushes v onto the array at p.
func Append(root any, p Path, v any) (any, error) {
	cur, ok := Lookup(root, p)
	if !ok {
		return root, fmt.Errorf("append %s: %w", p, ErrNoParent)
	}
	arr, ok := cur.([]any)
	if !ok {
		return root, fmt.Errorf("append %s: %w", p, ErrNotArray)
	}
	return Set(root, p, append(arr, v))
}

// Remove deletes element i of the array at p; later elements shift down.
func Remove(root any, p Path, i int) (any, error) {
	cur, ok := Lookup(root, p)
	if !ok {
		return root, fmt.Errorf("remove %s: %w", p, ErrNoParent)
	}
	arr, ok := cur.([]any)
	if !ok {
		return root, fmt.Errorf("remove %s: %w", p, ErrNotArray)
	}
	if i < 0 || i >= len(arr) {
		return root, fmt.Errorf("remove %s[%d]: %w", p, i, ErrIndexRange)
	}
	out := make([]any, 0, len(arr)-1)
	out = append(out, arr[:i]...)
	out = append(out, arr[i+1:]...)
	return Set(root, p, out)
}
