package common

// At returns s[i], counting from the end for negative i, and false when i is
// out of range.
func At[S ~[]E, E any](s S, i int) (E, bool) {
	if i < 0 {
		i += len(s)
	}

	if i < 0 || i >= len(s) {
		var zero E
		return zero, false
	}

	return s[i], true
}
