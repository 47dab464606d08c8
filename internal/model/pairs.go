package model

type Pair struct {
	Name  string
	Value string
}

// Pairs is an insertion-ordered string map. Names are case-sensitive.
type Pairs []Pair

func (p Pairs) index(name string) int {
	for i, kv := range p {
		if kv.Name == name {
			return i
		}
	}
	return -1
}

func (p Pairs) Get(name string) (string, bool) {
	if i := p.index(name); i >= 0 {
		return p[i].Value, true
	}
	return "", false
}

func (p Pairs) Value(name string) string {
	v, _ := p.Get(name)
	return v
}

func (p Pairs) Has(name string) bool { return p.index(name) >= 0 }

// Set replaces the value of an existing entry in place, or appends a new one.
func (p *Pairs) Set(name, value string) {
	if i := p.index(name); i >= 0 {
		(*p)[i].Value = value
		return
	}
	*p = append(*p, Pair{Name: name, Value: value})
}

func (p *Pairs) Delete(name string) {
	i := p.index(name)
	if i < 0 {
		return
	}
	*p = append((*p)[:i:i], (*p)[i+1:]...)
}

// Rename moves the value under oldName to newName. The entry is re-inserted
// at the end; an existing newName entry is overwritten.
func (p *Pairs) Rename(oldName, newName string) {
	if oldName == newName {
		return
	}
	v, ok := p.Get(oldName)
	if !ok {
		return
	}
	p.Delete(oldName)
	p.Delete(newName)
	*p = append(*p, Pair{Name: newName, Value: v})
}

func (p Pairs) Names() []string {
	out := make([]string, len(p))
	for i, kv := range p {
		out[i] = kv.Name
	}
	return out
}

func (p Pairs) Clone() Pairs {
	if p == nil {
		return nil
	}
	out := make(Pairs, len(p))
	copy(out, p)
	return out
}

func (p Pairs) Map() map[string]string {
	out := make(map[string]string, len(p))
	for _, kv := range p {
		out[kv.Name] = kv.Value
	}
	return out
}
