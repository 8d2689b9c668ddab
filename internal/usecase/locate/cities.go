package locate

// box is an axis-aligned lat/long rectangle around a metro area.
type box struct {
	label                          string
	minLat, maxLat, minLng, maxLng float64
}

func (b box) contains(lat, lng float64) bool {
	return lat >= b.minLat && lat <= b.maxLat && lng >= b.minLng && lng <= b.maxLng
}

// cities is scanned in order, so smaller boxes nested inside larger ones go first.
var cities = []box{
	{"San Francisco, CA", 37.70, 37.84, -122.52, -122.35},
	{"Oakland, CA", 37.70, 37.89, -122.35, -122.11},
	{"San Jose, CA", 37.12, 37.47, -122.05, -121.65},
	{"Los Angeles, CA", 33.70, 34.34, -118.67, -118.15},
	{"San Diego, CA", 32.53, 33.11, -117.31, -116.91},
	{"Seattle, WA", 47.49, 47.74, -122.44, -122.24},
	{"Portland, OR", 45.43, 45.65, -122.84, -122.47},
	{"Las Vegas, NV", 36.00, 36.35, -115.37, -115.00},
	{"Phoenix, AZ", 33.29, 33.92, -112.32, -111.93},
	{"Denver, CO", 39.61, 39.91, -105.11, -104.60},
	{"Austin, TX", 30.10, 30.52, -97.94, -97.56},
	{"Houston, TX", 29.52, 30.11, -95.79, -95.01},
	{"Dallas, TX", 32.62, 33.02, -96.99, -96.55},
	{"Chicago, IL", 41.64, 42.02, -87.94, -87.52},
	{"Minneapolis, MN", 44.89, 45.05, -93.33, -93.19},
	{"New Orleans, LA", 29.86, 30.07, -90.14, -89.88},
	{"Atlanta, GA", 33.65, 33.89, -84.55, -84.29},
	{"Miami, FL", 25.71, 25.86, -80.32, -80.14},
	{"Washington, DC", 38.79, 38.99, -77.12, -76.91},
	{"Philadelphia, PA", 39.87, 40.14, -75.28, -74.96},
	{"Manhattan, NY", 40.70, 40.88, -74.02, -73.91},
	{"Brooklyn, NY", 40.57, 40.74, -74.05, -73.83},
	{"Queens, NY", 40.54, 40.80, -73.96, -73.70},
	{"Boston, MA", 42.23, 42.40, -71.19, -70.99},
	{"Toronto, ON", 43.58, 43.86, -79.64, -79.12},
	{"Vancouver, BC", 49.20, 49.32, -123.23, -123.02},
	{"Mexico City, MX", 19.18, 19.59, -99.36, -98.94},
	{"London, UK", 51.28, 51.69, -0.51, 0.33},
	{"Paris, FR", 48.81, 48.91, 2.22, 2.47},
	{"Tokyo, JP", 35.53, 35.82, 139.56, 139.92},
}
