package handlers

const (
	defaultListLimit = 50
	maxListLimit     = 500
	maxListOffset    = 10000
)

// clampPage normalizes listing bounds the same way traversal bounds are
// normalized: silently, never as an error.
func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	if offset > maxListOffset {
		offset = maxListOffset
	}
	return limit, offset
}
