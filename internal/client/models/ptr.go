package models

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// OptionalString returns nil for blank strings.
func OptionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
