package pkg

// Contains check source have target
func Contains[T comparable](slice []T, val T) bool {
	for _, v := range slice {
		if v == val {
			return true
		}
	}
	return false
}

// AppendUnique append val when it is not already present, set semantics on a slice
func AppendUnique[T comparable](slice []T, val T) []T {
	if Contains(slice, val) {
		return slice
	}
	return append(slice, val)
}

// Remove drop every occurrence of val
func Remove[T comparable](slice []T, val T) []T {
	out := make([]T, 0, len(slice))
	for _, v := range slice {
		if v != val {
			out = append(out, v)
		}
	}
	return out
}
