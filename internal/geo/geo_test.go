package geo

import (
	"errors"
	"math"
	"testing"
)

func f(v float64) *float64 { return &v }

func TestDistanceSymmetricAndZero(t *testing.T) {
	pairs := [][4]float64{
		{-23.55, -46.63, -22.90, -43.17},
		{0, 0, 0, 0},
		{51.5, -0.12, 48.85, 2.35},
	}
	for _, p := range pairs {
		ab := Distance(p[0], p[1], p[2], p[3])
		ba := Distance(p[2], p[3], p[0], p[1])
		if math.Abs(ab-ba) > 1e-9 {
			t.Fatalf("distance not symmetric: %f vs %f", ab, ba)
		}
	}
	if d := Distance(-23.55, -46.63, -23.55, -46.63); d != 0 {
		t.Fatalf("distance to self should be 0, got %f", d)
	}
}

func TestDistanceSaoPauloRio(t *testing.T) {
	// Known great-circle distance is roughly 360 km.
	d := Distance(-23.5505, -46.6333, -22.9068, -43.1729)
	if d < 350 || d > 370 {
		t.Fatalf("unexpected distance %f", d)
	}
}

func TestResolveSwappedCoordinates(t *testing.T) {
	// Merchant stored as (lon, lat); user sits at the true location.
	pt, err := Resolve(-23.55, -46.63, f(-46.63), f(-23.55), Options{})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if pt.Transform != TransformSwap {
		t.Fatalf("expected swap transform, got %s", pt.Transform)
	}
	if pt.DistanceKm > 0.001 {
		t.Fatalf("expected near-zero distance, got %f", pt.DistanceKm)
	}
}

func TestResolveSignFlip(t *testing.T) {
	pt, err := Resolve(-23.55, -46.63, f(23.55), f(-46.63), Options{})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if pt.Transform != TransformNegLat {
		t.Fatalf("expected neg_lat, got %s", pt.Transform)
	}
}

func TestResolveIdempotent(t *testing.T) {
	pt, err := Resolve(-23.55, -46.63, f(-46.63), f(-23.55), Options{})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	again, err := Resolve(-23.55, -46.63, f(pt.Lat), f(pt.Lon), Options{})
	if err != nil {
		t.Fatalf("second resolve failed: %v", err)
	}
	if again.Transform != TransformOriginal {
		t.Fatalf("re-resolving a repaired point should be orig, got %s", again.Transform)
	}
	if again.Lat != pt.Lat || again.Lon != pt.Lon {
		t.Fatalf("repaired point changed: (%f,%f) vs (%f,%f)", again.Lat, again.Lon, pt.Lat, pt.Lon)
	}
}

func TestResolveMissing(t *testing.T) {
	_, err := Resolve(-23.55, -46.63, nil, nil, Options{})
	var re *ResolveError
	if !errors.As(err, &re) || re.Reason != ReasonMissing {
		t.Fatalf("expected missing reason, got %v", err)
	}
}

func TestResolveOutOfRange(t *testing.T) {
	_, err := Resolve(-23.55, -46.63, f(250), f(400), Options{})
	var re *ResolveError
	if !errors.As(err, &re) || re.Reason != ReasonOutOfRange {
		t.Fatalf("expected invalid_range reason, got %v", err)
	}
}

func TestResolveImplausible(t *testing.T) {
	// Tokyo viewed from São Paulo: every candidate exceeds the ceiling.
	_, err := Resolve(-23.55, -46.63, f(35.68), f(139.69), Options{})
	var re *ResolveError
	if !errors.As(err, &re) || re.Reason != ReasonImplausible {
		t.Fatalf("expected implausible reason, got %v", err)
	}

	// A generous ceiling accepts the same pair.
	if _, err := Resolve(-23.55, -46.63, f(35.68), f(139.69), Options{MaxPlausibleKm: 25000}); err != nil {
		t.Fatalf("expected success with raised ceiling, got %v", err)
	}
}

func TestTravelCost(t *testing.T) {
	opts := DefaultOptions()
	if c := opts.TravelCost(100); math.Abs(c-60) > 1e-9 {
		t.Fatalf("expected 60, got %f", c)
	}
	if c := opts.TravelCost(-1); c != 0 {
		t.Fatalf("unknown distance should cost 0, got %f", c)
	}
	custom := Options{FuelKmPerLiter: 20, PricePerLiter: 5}
	if c := custom.TravelCost(100); math.Abs(c-25) > 1e-9 {
		t.Fatalf("expected 25, got %f", c)
	}
}

func TestParseCoord(t *testing.T) {
	if v := ParseCoord(" -23,55 "); v == nil || *v != -23.55 {
		t.Fatalf("comma decimal separator not handled: %v", v)
	}
	if v := ParseCoord("-46.63"); v == nil || *v != -46.63 {
		t.Fatalf("plain float not handled: %v", v)
	}
	for _, bad := range []string{"", "null", "abc", "--1"} {
		if v := ParseCoord(bad); v != nil {
			t.Fatalf("expected nil for %q, got %f", bad, *v)
		}
	}
}
