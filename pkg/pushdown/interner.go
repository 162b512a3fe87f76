package pushdown

import (
	"fmt"
	"strconv"
)

// Interner maps domain values to dense, zero-based identifiers assigned in
// insertion order. Identifiers are never reused.
//
// Interner is not safe for concurrent mutation.
type Interner[T comparable] struct {
	values []T
	ids    map[T]uint32
}

// NewInterner creates an interner pre-populated with values, in order.
func NewInterner[T comparable](values ...T) *Interner[T] {
	in := &Interner[T]{ids: make(map[T]uint32, len(values))}
	for _, v := range values {
		in.Insert(v)
	}
	return in
}

// Insert returns the id of v, assigning the next free id if v is new.
func (in *Interner[T]) Insert(v T) uint32 {
	if id, ok := in.ids[v]; ok {
		return id
	}
	id := uint32(len(in.values))
	in.values = append(in.values, v)
	in.ids[v] = id
	return id
}

// Lookup returns the value of id. An out-of-range id is a programming error.
func (in *Interner[T]) Lookup(id uint32) T {
	if int(id) >= len(in.values) {
		panic(fmt.Sprintf("pushdown: interner id %d out of range [0..%d)", id, len(in.values)))
	}
	return in.values[id]
}

// Exists reports the id of v if it has been inserted.
func (in *Interner[T]) Exists(v T) (uint32, bool) {
	id, ok := in.ids[v]
	return id, ok
}

// Size returns the number of interned values.
func (in *Interner[T]) Size() int { return len(in.values) }

// Values returns a copy of the interned values in id order.
func (in *Interner[T]) Values() []T {
	out := make([]T, len(in.values))
	copy(out, in.values)
	return out
}

// StateNaming maps control-state names to dense state ids.
//
// Two implementations are provided: NamedStates keeps a name table, and
// IndexedStates treats names as decimal ids and keeps no table at all.
type StateNaming interface {
	// Insert returns the id of name, creating the state if needed.
	Insert(name string) (int, error)
	// Exists reports the id of name if the state exists.
	Exists(name string) (int, bool)
	// Name returns the name of state id.
	Name(id int) string
	// Size returns the number of states.
	Size() int
}

// NamedStates is a StateNaming backed by an Interner.
type NamedStates struct {
	names *Interner[string]
}

// NewNamedStates creates a NamedStates with the given states, in order.
func NewNamedStates(names ...string) *NamedStates {
	return &NamedStates{names: NewInterner(names...)}
}

// Insert implements StateNaming.
func (s *NamedStates) Insert(name string) (int, error) {
	return int(s.names.Insert(name)), nil
}

// Exists implements StateNaming.
func (s *NamedStates) Exists(name string) (int, bool) {
	id, ok := s.names.Exists(name)
	return int(id), ok
}

// Name implements StateNaming.
func (s *NamedStates) Name(id int) string { return s.names.Lookup(uint32(id)) }

// Size implements StateNaming.
func (s *NamedStates) Size() int { return s.names.Size() }

// IndexedStates is the identity StateNaming: state names are the decimal
// form of their ids. Inserting "5" creates states 0 through 5.
type IndexedStates struct {
	size int
}

// NewIndexedStates creates an IndexedStates with n states.
func NewIndexedStates(n int) *IndexedStates { return &IndexedStates{size: n} }

// Insert implements StateNaming.
func (s *IndexedStates) Insert(name string) (int, error) {
	id, err := strconv.Atoi(name)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("%w: %q is not a state index", ErrUnknownState, name)
	}
	if id >= s.size {
		s.size = id + 1
	}
	return id, nil
}

// Exists implements StateNaming.
func (s *IndexedStates) Exists(name string) (int, bool) {
	id, err := strconv.Atoi(name)
	if err != nil || id < 0 || id >= s.size {
		return 0, false
	}
	return id, true
}

// Name implements StateNaming.
func (s *IndexedStates) Name(id int) string {
	if id < 0 || id >= s.size {
		panic(fmt.Sprintf("pushdown: state id %d out of range [0..%d)", id, s.size))
	}
	return strconv.Itoa(id)
}

// Size implements StateNaming.
func (s *IndexedStates) Size() int { return s.size }
