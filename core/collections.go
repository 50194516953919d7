package core

import (
	"fmt"

	"github.com/gocql/gocql"

	"github.com/kndndrj/priam/core/wire"
)

// collection is the shared part of List and Set.
type collection struct {
	parent Value
	elem   gocql.TypeInfo
}

func (c *collection) child(info gocql.TypeInfo, data []byte) Value {
	return Value{
		result: c.parent.result,
		info:   info,
		data:   data,
		null:   data == nil,
	}
}

func (c *collection) forEach(fn func(Value)) error {
	if err := c.parent.alive(); err != nil {
		return err
	}

	next, hasNext, _, err := wire.NextCollection(c.parent.data, c.parent.info.Version(), 1)
	if err != nil {
		return err
	}

	for hasNext() {
		data, err := next()
		if err != nil {
			return err
		}
		fn(c.child(c.elem, data))
	}
	return nil
}

func (c *collection) len() int {
	if c.parent.alive() != nil {
		return 0
	}
	_, _, count, err := wire.NextCollection(c.parent.data, c.parent.info.Version(), 1)
	if err != nil {
		return 0
	}
	return count
}

func (c *collection) values() ([]any, error) {
	var (
		out    []any
		decErr error
	)
	err := c.forEach(func(v Value) {
		if decErr != nil {
			return
		}
		var val any
		val, decErr = v.Any()
		out = append(out, val)
	})
	if err != nil {
		return nil, err
	}
	return out, decErr
}

// List is a list column. Elements come in insertion order.
type List struct {
	collection
}

// ForEach calls fn with every element. Each call walks the list from the start.
func (l *List) ForEach(fn func(Value)) error {
	return l.forEach(fn)
}

// Len returns the number of elements, 0 once the result was released.
func (l *List) Len() int {
	return l.len()
}

// Values decodes every element with Value.Any.
func (l *List) Values() ([]any, error) {
	return l.values()
}

// Set is a set column. Elements come in the order the cluster sent them.
type Set struct {
	collection
}

// ForEach calls fn with every element. Each call walks the set from the start.
func (s *Set) ForEach(fn func(Value)) error {
	return s.forEach(fn)
}

func (s *Set) Len() int {
	return s.len()
}

// Values decodes every element with Value.Any.
func (s *Set) Values() ([]any, error) {
	return s.values()
}

// MapEntry is a decoded key/value pair of a map.
type MapEntry struct {
	Key   any
	Value any
}

func (e MapEntry) String() string {
	return fmt.Sprintf("%v: %v", e.Key, e.Value)
}

// Map is a map column. Pairs come in the order the cluster sent them.
type Map struct {
	parent Value
	key    gocql.TypeInfo
	elem   gocql.TypeInfo
}

// ForEach calls fn with every key/value pair.
func (m *Map) ForEach(fn func(key, value Value)) error {
	if err := m.parent.alive(); err != nil {
		return err
	}

	next, hasNext, _, err := wire.NextCollection(m.parent.data, m.parent.info.Version(), 2)
	if err != nil {
		return err
	}

	for hasNext() {
		k, err := next()
		if err != nil {
			return err
		}
		v, err := next()
		if err != nil {
			return err
		}
		fn(m.child(m.key, k), m.child(m.elem, v))
	}
	return nil
}

func (m *Map) child(info gocql.TypeInfo, data []byte) Value {
	return Value{
		result: m.parent.result,
		info:   info,
		data:   data,
		null:   data == nil,
	}
}

// Len returns the number of pairs, 0 once the result was released.
func (m *Map) Len() int {
	if m.parent.alive() != nil {
		return 0
	}
	_, _, count, err := wire.NextCollection(m.parent.data, m.parent.info.Version(), 2)
	if err != nil {
		return 0
	}
	return count
}

// Entries decodes every pair with Value.Any.
func (m *Map) Entries() ([]MapEntry, error) {
	var (
		out    []MapEntry
		decErr error
	)
	err := m.ForEach(func(key, value Value) {
		if decErr != nil {
			return
		}
		var entry MapEntry
		if entry.Key, decErr = key.Any(); decErr != nil {
			return
		}
		if entry.Value, decErr = value.Any(); decErr != nil {
			return
		}
		out = append(out, entry)
	})
	if err != nil {
		return nil, err
	}
	return out, decErr
}

// Tuple is a tuple column with a fixed number of typed elements.
type Tuple struct {
	parent Value
	elems  []gocql.TypeInfo
}

// ForEach calls fn with every element in declaration order.
func (t *Tuple) ForEach(fn func(Value)) error {
	if err := t.parent.alive(); err != nil {
		return err
	}

	next, hasNext := wire.NextTuple(t.parent.data, len(t.elems))
	for i := 0; hasNext(); i++ {
		data, err := next()
		if err != nil {
			return err
		}
		fn(Value{
			result: t.parent.result,
			info:   t.elems[i],
			data:   data,
			null:   data == nil,
		})
	}
	return nil
}

func (t *Tuple) Len() int {
	if t.parent.alive() != nil {
		return 0
	}
	return len(t.elems)
}

// Values decodes every element with Value.Any.
func (t *Tuple) Values() ([]any, error) {
	var (
		out    []any
		decErr error
	)
	err := t.ForEach(func(v Value) {
		if decErr != nil {
			return
		}
		var val any
		val, decErr = v.Any()
		out = append(out, val)
	})
	if err != nil {
		return nil, err
	}
	return out, decErr
}
