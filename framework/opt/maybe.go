// Package opt provides an optional value type used for lookups that may legitimately find
// nothing, such as a config key with no source defining it or a test object outside a test.
package opt

import "fmt"

// Maybe is a value that is either present or absent.
type Maybe[V any] struct {
	defined bool
	value   V
}

// Some returns a Maybe that has a defined value.
func Some[V any](value V) Maybe[V] {
	return Maybe[V]{defined: true, value: value}
}

// None returns a Maybe with no value.
func None[V any]() Maybe[V] { return Maybe[V]{} }

// FromPtr returns Some(*ptr) if ptr is non-nil, or None otherwise.
func FromPtr[V any](ptr *V) Maybe[V] {
	if ptr != nil {
		return Some(*ptr)
	}
	return None[V]()
}

// IsDefined returns true if the Maybe has a value.
func (m Maybe[V]) IsDefined() bool { return m.defined }

// Value returns the value if one is defined, or the zero value for the type otherwise.
func (m Maybe[V]) Value() V { return m.value }

// Get returns the value and whether it was defined, in the style of a map lookup.
func (m Maybe[V]) Get() (V, bool) { return m.value, m.defined }

// OrElse returns the value of the Maybe if any, or valueIfUndefined otherwise.
func (m Maybe[V]) OrElse(valueIfUndefined V) V {
	if m.defined {
		return m.value
	}
	return valueIfUndefined
}

// OrElseErr returns the value, or err if no value is defined.
func (m Maybe[V]) OrElseErr(err error) (V, error) {
	if m.defined {
		return m.value, nil
	}
	var zero V
	return zero, err
}

// Or returns m if it is defined, or else other.
func (m Maybe[V]) Or(other Maybe[V]) Maybe[V] {
	if m.defined {
		return m
	}
	return other
}

// Map transforms a defined value with fn; an undefined Maybe stays undefined.
func Map[V, W any](m Maybe[V], fn func(V) W) Maybe[W] {
	if m.defined {
		return Some(fn(m.value))
	}
	return None[W]()
}

// String returns a string representation of the value, or "[none]" if undefined.
func (m Maybe[V]) String() string {
	if !m.defined {
		return "[none]"
	}
	if s, ok := any(m.value).(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", m.value)
}
