package geo

import "fmt"

// Transform identifies which interpretation of a raw coordinate pair won.
type Transform string

const (
	TransformOriginal Transform = "orig"
	TransformSwap     Transform = "swap"
	TransformNegLat   Transform = "neg_lat"
	TransformNegLon   Transform = "neg_lon"
	TransformNegBoth  Transform = "neg_both"
)

// Reason classifies why a coordinate pair could not be resolved.
type Reason string

const (
	ReasonMissing     Reason = "missing"
	ReasonOutOfRange  Reason = "invalid_range"
	ReasonImplausible Reason = "implausible"
)

// ResolveError reports an unresolvable merchant coordinate. It is advisory:
// callers degrade to "unknown distance" rather than failing.
type ResolveError struct {
	Reason Reason
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("geo: coordinate unresolvable (%s)", e.Reason)
}

// Point is a resolved merchant position with the transform that produced it.
type Point struct {
	Lat       float64
	Lon       float64
	Transform Transform
	// DistanceKm is the great-circle distance from the user position used to
	// pick this candidate.
	DistanceKm float64
}

type candidate struct {
	lat, lon *float64
	tag      Transform
}

func neg(v *float64) *float64 {
	if v == nil {
		return nil
	}
	n := -*v
	return &n
}

// Resolve picks the most plausible interpretation of a possibly corrupted
// (lat, lon) pair, assuming real merchants are near the user. Candidates are
// the pair as-is, swapped, and with either or both signs flipped; out-of-range
// candidates are discarded and the closest survivor wins. The result is
// rejected when nothing is in range or the best candidate is farther than
// Options.MaxPlausibleKm.
func Resolve(userLat, userLon float64, rawLat, rawLon *float64, opts Options) (Point, error) {
	opts = opts.withDefaults()

	if rawLat == nil && rawLon == nil {
		return Point{}, &ResolveError{Reason: ReasonMissing}
	}

	candidates := []candidate{
		{rawLat, rawLon, TransformOriginal},
		{rawLon, rawLat, TransformSwap},
		{neg(rawLat), rawLon, TransformNegLat},
		{rawLat, neg(rawLon), TransformNegLon},
		{neg(rawLat), neg(rawLon), TransformNegBoth},
	}

	best := Point{DistanceKm: -1}
	for _, c := range candidates {
		if c.lat == nil || c.lon == nil {
			continue
		}
		lat, lon := *c.lat, *c.lon
		if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
			continue
		}
		d := Distance(userLat, userLon, lat, lon)
		if best.DistanceKm < 0 || d < best.DistanceKm {
			best = Point{Lat: lat, Lon: lon, Transform: c.tag, DistanceKm: d}
		}
	}

	if best.DistanceKm < 0 {
		return Point{}, &ResolveError{Reason: ReasonOutOfRange}
	}
	if best.DistanceKm > opts.MaxPlausibleKm {
		return Point{}, &ResolveError{Reason: ReasonImplausible}
	}
	return best, nil
}
