package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"backend/models"
)

// GeocodeTimeout bounds every call to the geocoding provider so a slow
// provider can never block a wizard step.
const GeocodeTimeout = 5 * time.Second

// ErrAddressNotFound is returned when the provider resolves zero results.
var ErrAddressNotFound = errors.New("address could not be resolved")

// GeoPoint is a resolved coordinate pair.
type GeoPoint struct {
	Lat              float64
	Lon              float64
	FormattedAddress string
}

// Geocoder resolves a free-text address to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (GeoPoint, error)
}

// HTTPGeocoder talks to a Nominatim-compatible search endpoint. Responses are
// cached per normalized address; the fee calculator itself never caches.
type HTTPGeocoder struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.Mutex
	cache map[string]GeoPoint
}

// NewHTTPGeocoder builds a geocoder against the given search endpoint
// (e.g. https://nominatim.openstreetmap.org/search).
func NewHTTPGeocoder(baseURL string) *HTTPGeocoder {
	return &HTTPGeocoder{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: GeocodeTimeout},
		cache:      make(map[string]GeoPoint),
	}
}

type geocodeResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func (g *HTTPGeocoder) Geocode(ctx context.Context, address string) (GeoPoint, error) {
	g.mu.Lock()
	if p, ok := g.cache[address]; ok {
		g.mu.Unlock()
		return p, nil
	}
	g.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, GeocodeTimeout)
	defer cancel()

	q := url.Values{}
	q.Set("q", address)
	q.Set("format", "json")
	q.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return GeoPoint{}, err
	}
	req.Header.Set("User-Agent", "eclat-evenements/1.0")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return GeoPoint{}, fmt.Errorf("geocoding request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return GeoPoint{}, fmt.Errorf("geocoding provider returned status %d", resp.StatusCode)
	}

	var results []geocodeResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return GeoPoint{}, fmt.Errorf("geocoding response decode failed: %v", err)
	}
	if len(results) == 0 {
		return GeoPoint{}, ErrAddressNotFound
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return GeoPoint{}, fmt.Errorf("geocoding returned invalid latitude: %v", err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return GeoPoint{}, fmt.Errorf("geocoding returned invalid longitude: %v", err)
	}

	point := GeoPoint{Lat: lat, Lon: lon, FormattedAddress: results[0].DisplayName}

	g.mu.Lock()
	g.cache[address] = point
	g.mu.Unlock()

	return point, nil
}

const earthRadiusKm = 6371.0

// HaversineKm is the great-circle distance between two points in kilometres.
func HaversineKm(a, b GeoPoint) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

// ComputeTravelFee resolves both addresses and prices the round trip beyond
// the free allowance. Fails closed: if either address cannot be resolved the
// result carries fee 0, billable 0 and an explicit error reason, and callers
// must surface the value as an unconfirmed estimate rather than trust it.
func ComputeTravelFee(ctx context.Context, geocoder Geocoder, originAddress, destinationAddress string, ratePerKm, freeKm float64) models.TravelFee {
	origin, err := geocoder.Geocode(ctx, originAddress)
	if err != nil {
		return models.TravelFee{Error: fmt.Sprintf("origin address: %v", err)}
	}

	destination, err := geocoder.Geocode(ctx, destinationAddress)
	if err != nil {
		return models.TravelFee{
			ResolvedOrigin: origin.FormattedAddress,
			Error:          fmt.Sprintf("destination address: %v", err),
		}
	}

	oneWay := round1(HaversineKm(origin, destination))
	roundTrip := round1(2 * oneWay)
	billable := roundTrip - freeKm
	if billable < 0 {
		billable = 0
	}
	billable = round1(billable)

	return models.TravelFee{
		OneWayKm:            oneWay,
		RoundTripKm:         roundTrip,
		BillableKm:          billable,
		Fee:                 Round2(billable * ratePerKm),
		ResolvedOrigin:      origin.FormattedAddress,
		ResolvedDestination: destination.FormattedAddress,
	}
}
