package nested

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// State is the tri-state selection value of a node.
type State uint8

const (
	Off State = iota
	On
	Indeterminate
)

// String returns the wire name of the state.
func (s State) String() string {
	switch s {
	case On:
		return "on"
	case Indeterminate:
		return "indeterminate"
	default:
		return "off"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Unknown names decode as Off.
func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "on":
		*s = On
	case "indeterminate":
		*s = Indeterminate
	default:
		*s = Off
	}
	return nil
}

// OpenSet is an insertion-ordered set of open group ids.
type OpenSet struct {
	m *orderedmap.OrderedMap[string, struct{}]
}

// NewOpenSet creates a set holding ids in the given order.
func NewOpenSet(ids ...string) *OpenSet {
	s := &OpenSet{m: orderedmap.New[string, struct{}]()}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Has reports whether id is open.
func (s *OpenSet) Has(id string) bool {
	_, ok := s.m.Get(id)
	return ok
}

// Add marks id as open. Re-adding keeps the original position.
func (s *OpenSet) Add(id string) {
	s.m.Set(id, struct{}{})
}

// Delete removes id. Deleting an absent id is a no-op.
func (s *OpenSet) Delete(id string) {
	s.m.Delete(id)
}

// Len returns the number of open ids.
func (s *OpenSet) Len() int {
	return s.m.Len()
}

// IDs returns the open ids in insertion order.
func (s *OpenSet) IDs() []string {
	ids := make([]string, 0, s.m.Len())
	for p := s.m.Oldest(); p != nil; p = p.Next() {
		ids = append(ids, p.Key)
	}
	return ids
}

// Clone returns an independent copy.
func (s *OpenSet) Clone() *OpenSet {
	return NewOpenSet(s.IDs()...)
}

// Selection maps node ids to their selection state, preserving the order in
// which ids were first set.
type Selection struct {
	m *orderedmap.OrderedMap[string, State]
}

// NewSelection creates an empty selection.
func NewSelection() *Selection {
	return &Selection{m: orderedmap.New[string, State]()}
}

// Get returns the state of id and whether it has an entry.
// A missing id reads as Off.
func (s *Selection) Get(id string) (State, bool) {
	return s.m.Get(id)
}

// State returns the state of id, Off when absent.
func (s *Selection) State(id string) State {
	st, _ := s.m.Get(id)
	return st
}

// Set stores the state of id. Existing entries keep their position.
func (s *Selection) Set(id string, st State) {
	s.m.Set(id, st)
}

// Delete removes the entry for id.
func (s *Selection) Delete(id string) {
	s.m.Delete(id)
}

// Len returns the number of entries, whatever their state.
func (s *Selection) Len() int {
	return s.m.Len()
}

// Each calls fn for every entry in insertion order until fn returns false.
func (s *Selection) Each(fn func(id string, st State) bool) {
	for p := s.m.Oldest(); p != nil; p = p.Next() {
		if !fn(p.Key, p.Value) {
			return
		}
	}
}

// IDs returns every id with an entry, in insertion order.
func (s *Selection) IDs() []string {
	ids := make([]string, 0, s.m.Len())
	s.Each(func(id string, _ State) bool {
		ids = append(ids, id)
		return true
	})
	return ids
}

// On returns the ids whose state is exactly On, in insertion order.
func (s *Selection) On() []string {
	var ids []string
	s.Each(func(id string, st State) bool {
		if st == On {
			ids = append(ids, id)
		}
		return true
	})
	return ids
}

// Map returns a plain map copy, convenient for comparisons and encoding.
func (s *Selection) Map() map[string]State {
	out := make(map[string]State, s.m.Len())
	s.Each(func(id string, st State) bool {
		out[id] = st
		return true
	})
	return out
}

// Clone returns an independent copy with the same ordering.
func (s *Selection) Clone() *Selection {
	c := NewSelection()
	s.Each(func(id string, st State) bool {
		c.Set(id, st)
		return true
	})
	return c
}
