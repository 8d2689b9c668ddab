package sortby

// SortBy is the ordering applied to both recommendation sources.
type SortBy string

// Sort order constants.
const (
	// Distance orders nearest first, breaking ties by rating.
	Distance SortBy = "distance"
	// Rating orders best rated first, breaking ties by distance.
	Rating SortBy = "rating"
)

// IsValid checks if the order is one of the supported values.
func (s SortBy) IsValid() bool {
	return s == Distance || s == Rating
}

// Parse maps a query parameter to a SortBy. Empty input defaults to Distance.
func Parse(s string) (SortBy, bool) {
	if s == "" {
		return Distance, true
	}
	v := SortBy(s)
	return v, v.IsValid()
}
