package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwellsafe/dwellsafe-cli/internal/incident"
	"github.com/dwellsafe/dwellsafe-cli/internal/safety"
	"github.com/dwellsafe/dwellsafe-cli/internal/severity"
	"github.com/dwellsafe/dwellsafe-cli/pkg/geocode"
)

func storeWith(records ...incident.Record) *incident.Store {
	store := incident.NewStore(severity.NewClassifier())
	store.Swap(incident.BuildFromRecords(records, severity.NewClassifier()))
	return store
}

func testServer(store *incident.Store, opts ...Option) http.Handler {
	service := safety.NewService(store, safety.DefaultParams())
	return NewServer(service, store, opts...).Router()
}

func doJSON(t *testing.T, handler http.Handler, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var parsed map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parsed))
	}
	return rec, parsed
}

func TestHealth(t *testing.T) {
	h := testServer(storeWith(
		incident.Record{Latitude: 40.7, Longitude: -74.0, Category: "Theft"},
	))
	rec, body := doJSON(t, h, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(1), body["incidents"])
}

func TestRequestIDEchoed(t *testing.T) {
	h := testServer(storeWith())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestAreaScoreByCoordinates(t *testing.T) {
	h := testServer(storeWith(
		incident.Record{Latitude: 40.7000, Longitude: -74.0000, Category: "Noise"},
		incident.Record{Latitude: 40.7001, Longitude: -74.0001, Category: "Noise"},
	))
	rec, body := doJSON(t, h, http.MethodGet, "/v1/area/score?lat=40.7&lon=-74.0", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(2), body["total_complaints"])
	assert.NotEmpty(t, body["grade"])
}

func TestAreaScoreEmptyBatch(t *testing.T) {
	h := testServer(storeWith())
	rec, body := doJSON(t, h, http.MethodGet, "/v1/area/score?lat=40.7&lon=-74.0", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 85.0, body["score"])
	assert.Equal(t, "B", body["grade"])
	assert.Equal(t, true, body["insufficient_data"])
}

func TestAreaScoreBadCoordinates(t *testing.T) {
	h := testServer(storeWith())
	rec, body := doJSON(t, h, http.MethodGet, "/v1/area/score?lat=abc&lon=-74.0", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["error"], "lat")
}

func TestAreaScoreMissingParams(t *testing.T) {
	h := testServer(storeWith())
	rec, _ := doJSON(t, h, http.MethodGet, "/v1/area/score", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type fakeGeocoder struct {
	result *geocode.Result
}

func (f *fakeGeocoder) Geocode(ctx context.Context, addr geocode.AddressInput) (*geocode.Result, error) {
	return f.result, nil
}

func TestAreaScoreByAddress(t *testing.T) {
	g := &fakeGeocoder{result: &geocode.Result{
		Latitude: 40.7, Longitude: -74.0, Matched: true, Source: "census",
	}}
	h := testServer(storeWith(
		incident.Record{Latitude: 40.7, Longitude: -74.0, Category: "Theft"},
	), WithGeocoder(g))

	rec, body := doJSON(t, h, http.MethodGet, "/v1/area/score?address=350+5th+Ave", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["total_complaints"])
}

func TestAreaScoreAddressNotFound(t *testing.T) {
	g := &fakeGeocoder{result: &geocode.Result{Matched: false}}
	h := testServer(storeWith(), WithGeocoder(g))

	rec, _ := doJSON(t, h, http.MethodGet, "/v1/area/score?address=nowhere", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAreaScoreAddressWithoutGeocoder(t *testing.T) {
	h := testServer(storeWith())
	rec, _ := doJSON(t, h, http.MethodGet, "/v1/area/score?address=350+5th+Ave", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouteScore(t *testing.T) {
	h := testServer(storeWith())
	body := `{"path":[{"lat":40.70,"lon":-74.00},{"lat":40.71,"lon":-74.00}]}`
	rec, parsed := doJSON(t, h, http.MethodPost, "/v1/route/score", body)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 85.0, parsed["score"])
	assert.Equal(t, "B", parsed["grade"])
}

func TestRouteScoreInvalidBody(t *testing.T) {
	h := testServer(storeWith())
	rec, _ := doJSON(t, h, http.MethodPost, "/v1/route/score", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRoutesRank(t *testing.T) {
	h := testServer(storeWith())
	body := `{"routes":[
		{"id":"route_0","path":[{"lat":40.70,"lon":-74.00}],"duration_seconds":600},
		{"id":"route_1","path":[{"lat":40.71,"lon":-74.00}],"duration_seconds":900}
	]}`
	rec, parsed := doJSON(t, h, http.MethodPost, "/v1/routes/rank", body)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, parsed["safest_id"])
	assert.NotEmpty(t, parsed["fastest_id"])
	routes, ok := parsed["routes"].([]any)
	require.True(t, ok)
	assert.Len(t, routes, 2)
}

func TestRoutesRankEmpty(t *testing.T) {
	h := testServer(storeWith())
	rec, parsed := doJSON(t, h, http.MethodPost, "/v1/routes/rank", `{"routes":[]}`)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, parsed["error"], "no routes")
}

func TestBoroughsCompare(t *testing.T) {
	h := testServer(storeWith(
		incident.Record{Latitude: 40.78, Longitude: -73.96, Category: "Theft", Borough: "MANHATTAN"},
		incident.Record{Latitude: 40.65, Longitude: -73.95, Category: "Noise", Borough: "BROOKLYN"},
	))
	rec, parsed := doJSON(t, h, http.MethodGet, "/v1/boroughs/compare", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, parsed, "MANHATTAN")
	assert.Contains(t, parsed, "BROOKLYN")
}
