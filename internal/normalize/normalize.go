package normalize

// OptStr returns nil for an empty string.
func OptStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
