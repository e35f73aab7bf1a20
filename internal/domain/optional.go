package domain

// Optional is one field of a partial update to a nullable column.
// The zero value leaves the column untouched. Set with a nil Value clears it.
type Optional[T any] struct {
	Set   bool
	Value *T
}

// Some returns an Optional that writes v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: &v}
}

// Null returns an Optional that clears the column.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true}
}

// Or returns the patched value when o is set, otherwise current.
func (o Optional[T]) Or(current *T) *T {
	if !o.Set {
		return current
	}
	if o.Value == nil {
		return nil
	}
	v := *o.Value
	return &v
}

// clonePtr returns a pointer to a copy of *p, or nil.
func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
