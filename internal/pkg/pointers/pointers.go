package pointers

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }

// NonEmpty returns nil for "" and a pointer to s otherwise, matching nullable
// text columns.
func NonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Value dereferences p, returning the zero value for nil.
func Value[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
