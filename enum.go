package stripe

// IsKnown reports whether v is one of known. Generated enum types are plain
// string types, so a token the Service adds later decodes without error and
// simply fails this check; it is re-encoded verbatim.
func IsKnown[E ~string](v E, known ...E) bool {
	for _, k := range known {
		if v == k {
			return true
		}
	}
	return false
}
