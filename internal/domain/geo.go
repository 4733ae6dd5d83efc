package domain

// MaxIndexableLat is the largest absolute latitude Redis GEO commands accept.
const MaxIndexableLat = 85.05112878

// GeoPoint is a WGS84 position.
type GeoPoint struct {
	Lng float64
	Lat float64
}

// Valid reports whether the point lies within longitude/latitude bounds.
func (p GeoPoint) Valid() bool {
	return p.Lng >= -180 && p.Lng <= 180 && p.Lat >= -90 && p.Lat <= 90
}

// Indexable reports whether the point is valid and can be stored in the cab geo index.
func (p GeoPoint) Indexable() bool {
	return p.Valid() && p.Lat >= -MaxIndexableLat && p.Lat <= MaxIndexableLat
}

// Coordinates returns the point in [longitude, latitude] order.
func (p GeoPoint) Coordinates() [2]float64 {
	return [2]float64{p.Lng, p.Lat}
}
