package services

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"backend/models"
)

// fixedGeocoder resolves addresses from a static table.
type fixedGeocoder struct {
	points map[string]GeoPoint
}

func (g *fixedGeocoder) Geocode(_ context.Context, address string) (GeoPoint, error) {
	p, ok := g.points[address]
	if !ok {
		return GeoPoint{}, ErrAddressNotFound
	}
	return p, nil
}

func TestHaversineKm(t *testing.T) {
	// One degree of longitude on the equator is R * pi/180.
	a := GeoPoint{Lat: 0, Lon: 0}
	b := GeoPoint{Lat: 0, Lon: 1}
	want := earthRadiusKm * math.Pi / 180
	if got := HaversineKm(a, b); math.Abs(got-want) > 0.001 {
		t.Errorf("HaversineKm = %v, want %v", got, want)
	}

	if got := HaversineKm(a, a); got != 0 {
		t.Errorf("zero-distance pair = %v, want 0", got)
	}
}

func TestComputeTravelFeeAllowance(t *testing.T) {
	geo := &fixedGeocoder{points: map[string]GeoPoint{
		"base":  {Lat: 0, Lon: 0, FormattedAddress: "Base"},
		"venue": {Lat: 0, Lon: 1, FormattedAddress: "Venue"},
	}}

	// One way 111.2 km, round trip 222.4, minus 30 free = 192.4 billable.
	fee := ComputeTravelFee(context.Background(), geo, "base", "venue", 0.50, 30)
	if fee.Error != "" {
		t.Fatalf("unexpected error: %s", fee.Error)
	}
	if fee.OneWayKm != 111.2 {
		t.Errorf("OneWayKm = %v, want 111.2", fee.OneWayKm)
	}
	if fee.RoundTripKm != 222.4 {
		t.Errorf("RoundTripKm = %v, want 222.4", fee.RoundTripKm)
	}
	if fee.BillableKm != 192.4 {
		t.Errorf("BillableKm = %v, want 192.4", fee.BillableKm)
	}
	if fee.Fee != 96.20 {
		t.Errorf("Fee = %v, want 96.20", fee.Fee)
	}
	if fee.ResolvedOrigin != "Base" || fee.ResolvedDestination != "Venue" {
		t.Errorf("resolved addresses not carried: %q / %q", fee.ResolvedOrigin, fee.ResolvedDestination)
	}
}

func TestComputeTravelFeeWithinAllowanceIsFree(t *testing.T) {
	geo := &fixedGeocoder{points: map[string]GeoPoint{
		"base":  {Lat: 45.0, Lon: 4.0},
		"venue": {Lat: 45.05, Lon: 4.0}, // a few km away
	}}

	fee := ComputeTravelFee(context.Background(), geo, "base", "venue", 0.50, 30)
	if fee.Error != "" {
		t.Fatalf("unexpected error: %s", fee.Error)
	}
	if fee.BillableKm != 0 || fee.Fee != 0 {
		t.Errorf("short trip should be free: billable=%v fee=%v", fee.BillableKm, fee.Fee)
	}
	if fee.RoundTripKm <= 0 {
		t.Errorf("round trip should still be reported: %v", fee.RoundTripKm)
	}
}

func TestComputeTravelFeeFailsClosed(t *testing.T) {
	geo := &fixedGeocoder{points: map[string]GeoPoint{
		"base": {Lat: 0, Lon: 0, FormattedAddress: "Base"},
	}}

	fee := ComputeTravelFee(context.Background(), geo, "base", "nowhere", 0.50, 30)
	if fee.Fee != 0 || fee.BillableKm != 0 {
		t.Errorf("degraded fee must be zero: fee=%v billable=%v", fee.Fee, fee.BillableKm)
	}
	if fee.Error == "" {
		t.Error("degraded result must carry an error reason")
	}
	if !strings.Contains(fee.Error, "destination") {
		t.Errorf("error should name the failing side: %s", fee.Error)
	}

	// Degraded fee still flows through the breakdown without blocking it.
	services := []models.ServiceLineItem{{Quantity: 1, UnitPrice: 200}}
	b, err := ComputeBreakdown(services, nil, &fee, nil, models.Discount{}, 20, 30)
	if err != nil {
		t.Fatalf("ComputeBreakdown: %v", err)
	}
	if b.PreDiscountTotal != 200 {
		t.Errorf("PreDiscountTotal = %v, want 200", b.PreDiscountTotal)
	}
}

func TestHTTPGeocoderParsesAndCaches(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if got := r.URL.Query().Get("format"); got != "json" {
			t.Errorf("format = %q, want json", got)
		}
		w.Write([]byte(`[{"lat":"45.7640","lon":"4.8357","display_name":"Lyon, France"}]`))
	}))
	defer srv.Close()

	geo := NewHTTPGeocoder(srv.URL)
	p, err := geo.Geocode(context.Background(), "Lyon")
	if err != nil {
		t.Fatalf("Geocode: %v", err)
	}
	if p.Lat != 45.7640 || p.Lon != 4.8357 {
		t.Errorf("parsed point = %+v", p)
	}
	if p.FormattedAddress != "Lyon, France" {
		t.Errorf("FormattedAddress = %q", p.FormattedAddress)
	}

	// Second lookup must hit the cache, not the provider.
	if _, err := geo.Geocode(context.Background(), "Lyon"); err != nil {
		t.Fatalf("cached Geocode: %v", err)
	}
	if calls != 1 {
		t.Errorf("provider called %d times, want 1", calls)
	}
}

func TestHTTPGeocoderEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	geo := NewHTTPGeocoder(srv.URL)
	_, err := geo.Geocode(context.Background(), "does not exist")
	if !errors.Is(err, ErrAddressNotFound) {
		t.Errorf("err = %v, want ErrAddressNotFound", err)
	}
}
