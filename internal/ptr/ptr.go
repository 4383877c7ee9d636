// Package ptr has helpers for optional (pointer) fields.
package ptr

// To returns a pointer to v.
func To[T any](v T) *T {
	return &v
}

// NonZero returns a pointer to v, or nil when v is the zero value.
// Useful for optional filters where an empty query parameter means "unset".
func NonZero[T comparable](v T) *T {
	var zero T
	if v == zero {
		return nil
	}
	return &v
}
