package domain

// Optional distinguishes an absent field from an explicit null in partial
// updates. The zero value is absent.
type Optional[T any] struct {
	value T
	set   bool
	null  bool
}

// Some returns a present, non-null Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

// Null returns a present Optional that asks for the field to be cleared.
func Null[T any]() Optional[T] {
	return Optional[T]{set: true, null: true}
}

// IsSet reports whether the field was supplied at all, null included.
func (o Optional[T]) IsSet() bool { return o.set }

// IsNull reports whether the field was supplied as an explicit null.
func (o Optional[T]) IsNull() bool { return o.set && o.null }

// Get returns the value and whether a non-null value is present.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.set && !o.null
}

// Merge applies o on top of current: absent keeps current, null yields the
// zero value and a value replaces it.
func (o Optional[T]) Merge(current T) T {
	switch {
	case !o.set:
		return current
	case o.null:
		var zero T
		return zero
	default:
		return o.value
	}
}
