package recommendation

// Candidate is a dish row joined with its restaurant, as read from the catalog.
// VoteAvg is on a 0-10 scale. Lat/Lng are nil when the restaurant has no location.
type Candidate struct {
	DishID      string
	Name        string
	Description string
	VoteAvg     float64
	Restaurant  CandidateRestaurant
}

// CandidateRestaurant is the restaurant side of a Candidate.
type CandidateRestaurant struct {
	Name    string
	Address string
	Website string
	Lat     *float64
	Lng     *float64
}
