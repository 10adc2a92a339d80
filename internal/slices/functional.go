// Package slices contains small generic helpers for transforming slices.
package slices

func Map[L ~[]X, X, Y any](l L, f func(X) Y) []Y {
	r := make([]Y, len(l))
	for i, x := range l {
		r[i] = f(x)
	}
	return r
}

// TryMap is like Map, but stops at the first error returned by f.
func TryMap[L ~[]X, X, Y any](l L, f func(X) (Y, error)) ([]Y, error) {
	r := make([]Y, len(l))
	for i, x := range l {
		y, err := f(x)
		if err != nil {
			return nil, err
		}
		r[i] = y
	}
	return r, nil
}
