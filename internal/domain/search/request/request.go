package request

import (
	"strconv"
	"strings"

	"github.com/dishola/dishola/internal/domain"
	"github.com/dishola/dishola/internal/domain/geo"
	"github.com/dishola/dishola/internal/domain/search/sortby"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed free-text query length in bytes.
	MaxQueryLength = 200
	// MaxTastes caps the number of taste terms honored per request.
	MaxTastes = 10
)

const maxTasteLen = 60

// Mode tells which input drives a search.
type Mode string

// Request modes.
const (
	ModeQuery  Mode = "query"
	ModeTastes Mode = "tastes"
)

// Request is a validated search request. Exactly one of query or tastes is active.
type Request struct {
	query  string
	tastes []string
	lat    string
	long   string
	latF   float64
	longF  float64
	sortBy sortby.SortBy
}

// New validates and normalizes search parameters.
// Query wins when both query and tastes are given. Coordinates keep their
// original textual form for prompts and are also parsed for distance math.
func New(query string, tastes []string, lat, long, sort string) (Request, error) {
	query = strings.TrimSpace(query)
	cleaned := normalizeTastes(tastes)

	if query == "" && len(cleaned) == 0 {
		return Request{}, domain.NewValidationError("q", "or tastes is required")
	}
	if len(query) > MaxQueryLength {
		return Request{}, domain.NewValidationError("q", "is too long (max "+strconv.Itoa(MaxQueryLength)+" chars)")
	}
	if query != "" {
		cleaned = nil
	}
	if len(cleaned) > MaxTastes {
		cleaned = cleaned[:MaxTastes]
	}

	lat = strings.TrimSpace(lat)
	long = strings.TrimSpace(long)
	if lat == "" {
		return Request{}, domain.NewValidationError("lat", "is required")
	}
	if long == "" {
		return Request{}, domain.NewValidationError("long", "is required")
	}
	latF, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return Request{}, domain.NewValidationError("lat", "must be a number")
	}
	longF, err := strconv.ParseFloat(long, 64)
	if err != nil {
		return Request{}, domain.NewValidationError("long", "must be a number")
	}
	if !geo.ValidateCoordinates(latF, longF) {
		return Request{}, domain.NewValidationError("lat/long", "out of range")
	}

	s, ok := sortby.Parse(strings.TrimSpace(sort))
	if !ok {
		return Request{}, domain.NewValidationError("sort", "must be \"distance\" or \"rating\"")
	}

	return Request{
		query:  query,
		tastes: cleaned,
		lat:    lat,
		long:   long,
		latF:   latF,
		longF:  longF,
		sortBy: s,
	}, nil
}

// Mode reports whether the free-text query or the taste list drives the search.
func (r *Request) Mode() Mode {
	if r.query != "" {
		return ModeQuery
	}
	return ModeTastes
}

// Query returns the free-text query (empty in taste mode).
func (r *Request) Query() string { return r.query }

// Tastes returns the taste terms (nil in query mode).
func (r *Request) Tastes() []string { return r.tastes }

// Lat returns the latitude as given by the client.
func (r *Request) Lat() string { return r.lat }

// Long returns the longitude as given by the client.
func (r *Request) Long() string { return r.long }

// LatFloat returns the parsed latitude.
func (r *Request) LatFloat() float64 { return r.latF }

// LongFloat returns the parsed longitude.
func (r *Request) LongFloat() float64 { return r.longF }

// SortBy returns the requested ordering.
func (r *Request) SortBy() sortby.SortBy { return r.sortBy }

// CacheParts returns the normalized components that identify equivalent requests.
func (r *Request) CacheParts() []string {
	tastes := make([]string, len(r.tastes))
	for i, t := range r.tastes {
		tastes[i] = strings.ToLower(t)
	}
	return []string{
		strings.ToLower(strings.Join(strings.Fields(r.query), " ")),
		strconv.FormatFloat(r.latF, 'f', 4, 64),
		strconv.FormatFloat(r.longF, 'f', 4, 64),
		strings.Join(tastes, ","),
		string(r.sortBy),
	}
}

// SplitTastes splits a comma-separated taste list as sent on the query string.
func SplitTastes(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

func normalizeTastes(in []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(in))
	for _, t := range in {
		t = strings.Join(strings.Fields(t), " ")
		if t == "" || len(t) > maxTasteLen {
			continue
		}
		key := strings.ToLower(t)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}
