// Package geo computes great-circle distances and repairs unreliable
// merchant coordinates before ranking.
package geo

import (
	"math"
	"strconv"
	"strings"
)

// earthRadiusKm is the mean Earth radius used by the haversine formula.
const earthRadiusKm = 6372.795477598

// Options tunes the coordinate heuristics and travel-cost estimate.
type Options struct {
	// MaxPlausibleKm rejects repaired coordinates farther than this from the
	// user. A sanity ceiling, not a domain limit.
	MaxPlausibleKm float64
	// FuelKmPerLiter and PricePerLiter drive the travel-cost estimate.
	FuelKmPerLiter float64
	PricePerLiter  float64
}

// DefaultOptions mirrors the historical defaults.
func DefaultOptions() Options {
	return Options{
		MaxPlausibleKm: 2000,
		FuelKmPerLiter: 10,
		PricePerLiter:  6.0,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxPlausibleKm <= 0 {
		o.MaxPlausibleKm = d.MaxPlausibleKm
	}
	if o.FuelKmPerLiter <= 0 {
		o.FuelKmPerLiter = d.FuelKmPerLiter
	}
	if o.PricePerLiter <= 0 {
		o.PricePerLiter = d.PricePerLiter
	}
	return o
}

// Distance returns the great-circle distance in kilometers between two points.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	rlat1 := lat1 * math.Pi / 180
	rlon1 := lon1 * math.Pi / 180
	rlat2 := lat2 * math.Pi / 180
	rlon2 := lon2 * math.Pi / 180

	dlat := rlat2 - rlat1
	dlon := rlon2 - rlon1

	a := math.Pow(math.Sin(dlat/2), 2) + math.Cos(rlat1)*math.Cos(rlat2)*math.Pow(math.Sin(dlon/2), 2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// TravelCost estimates the fuel cost of covering distKm. Unknown distances
// (negative or NaN) cost zero.
func (o Options) TravelCost(distKm float64) float64 {
	if distKm < 0 || math.IsNaN(distKm) {
		return 0
	}
	o = o.withDefaults()
	return distKm / o.FuelKmPerLiter * o.PricePerLiter
}

// ParseCoord parses a latitude/longitude value that may use a comma as the
// decimal separator. Returns nil for empty or non-numeric input.
func ParseCoord(raw string) *float64 {
	s := strings.TrimSpace(raw)
	if s == "" || strings.EqualFold(s, "null") {
		return nil
	}
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
