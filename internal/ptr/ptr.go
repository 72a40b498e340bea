// Package ptr provides generic helpers for optional scalar fields such as
// Transfer's connection/total timeout settings.
package ptr

func Ref[T any](t T) *T {
	return &t
}

func Deref[T any](t *T) T {
	if t == nil {
		var zero T
		return zero
	}
	return *t
}
