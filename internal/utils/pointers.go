package utils

// Deref returns the value v points to, or the zero value when v is nil
func Deref[T any](v *T) T {
	if v == nil {
		var zero T
		return zero
	}
	return *v
}

// Ptr returns a pointer to a copy of v, for optional JSON fields
func Ptr[T any](v T) *T {
	return &v
}
