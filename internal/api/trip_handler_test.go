package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripbuddy/tripbuddy-api/internal/api/shared"
	"github.com/tripbuddy/tripbuddy-api/internal/domain"
	"github.com/tripbuddy/tripbuddy-api/internal/service"
	"github.com/tripbuddy/tripbuddy-api/internal/store"
)

// mockTripService implements TripService with configurable behavior.
type mockTripService struct {
	createFn     func(ctx context.Context, userID uuid.UUID, params service.CreateTripParams) (*service.TripCreation, error)
	regenerateFn func(ctx context.Context, tripID uuid.UUID) (*service.TripCreation, error)
	getFn        func(ctx context.Context, tripID uuid.UUID) (*service.TripDetails, error)
}

func (m *mockTripService) CreateTripWithItinerary(ctx context.Context, userID uuid.UUID, params service.CreateTripParams) (*service.TripCreation, error) {
	return m.createFn(ctx, userID, params)
}

func (m *mockTripService) Regenerate(ctx context.Context, tripID uuid.UUID) (*service.TripCreation, error) {
	return m.regenerateFn(ctx, tripID)
}

func (m *mockTripService) GetTrip(ctx context.Context, tripID uuid.UUID) (*service.TripDetails, error) {
	return m.getFn(ctx, tripID)
}

func sampleCreation(t *testing.T) *service.TripCreation {
	t.Helper()

	itinerary, err := domain.NewItinerary([]string{"Paris"}, []string{"museums"}, 1000, 5000, "")
	require.NoError(t, err)

	trip, err := domain.NewTrip(uuid.New(), itinerary.ID, itinerary.Cities,
		time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 9, 4, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	return &service.TripCreation{
		Trip:         trip,
		Itinerary:    itinerary,
		GenerationID: uuid.New(),
	}
}

func newTripRouter(svc TripService) http.Handler {
	r := chi.NewRouter()
	handler := NewTripHandler(svc)
	r.Post("/api/trips", handler.CreateTrip)
	r.Post("/api/trips/{tripID}/regenerate", handler.Regenerate)
	r.Get("/api/trips/{tripID}", handler.GetTrip)
	return r
}

func createTripBody(t *testing.T) *bytes.Buffer {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"cities":     []string{"Paris"},
		"start_date": "2026-09-01T00:00:00Z",
		"end_date":   "2026-09-04T00:00:00Z",
		"min_budget": 1000,
		"max_budget": 5000,
		"interests":  []string{"museums"},
	})
	require.NoError(t, err)
	return bytes.NewBuffer(body)
}

func withUser(r *http.Request, userID uuid.UUID) *http.Request {
	ctx := context.WithValue(r.Context(), shared.UserIDContextKey, userID)
	return r.WithContext(ctx)
}

func TestCreateTripCreated(t *testing.T) {
	t.Parallel()

	creation := sampleCreation(t)
	svc := &mockTripService{
		createFn: func(_ context.Context, _ uuid.UUID, params service.CreateTripParams) (*service.TripCreation, error) {
			assert.Equal(t, []string{"Paris"}, params.Cities)
			assert.Equal(t, 1000, params.MinBudget)
			return creation, nil
		},
	}
	router := newTripRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/trips", createTripBody(t))
	req = withUser(req, uuid.New())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp TripCreationResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, creation.Trip.ID.String(), resp.TripID)
	assert.Equal(t, creation.GenerationID.String(), resp.GenerationID)
	assert.Equal(t, "pending", resp.GenerateStatus)
	assert.Equal(t, "Trip to Paris", resp.TripName)
}

func TestCreateTripMissingUser(t *testing.T) {
	t.Parallel()

	router := newTripRouter(&mockTripService{})

	req := httptest.NewRequest(http.MethodPost, "/api/trips", createTripBody(t))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateTripValidation(t *testing.T) {
	t.Parallel()

	router := newTripRouter(&mockTripService{})

	cases := []struct {
		name string
		body map[string]any
	}{
		{
			name: "no cities",
			body: map[string]any{
				"cities":     []string{},
				"start_date": "2026-09-01T00:00:00Z",
				"end_date":   "2026-09-04T00:00:00Z",
			},
		},
		{
			name: "max budget below min",
			body: map[string]any{
				"cities":     []string{"Paris"},
				"start_date": "2026-09-01T00:00:00Z",
				"end_date":   "2026-09-04T00:00:00Z",
				"min_budget": 5000,
				"max_budget": 1000,
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body, err := json.Marshal(tc.body)
			require.NoError(t, err)

			req := httptest.NewRequest(http.MethodPost, "/api/trips", bytes.NewBuffer(body))
			req = withUser(req, uuid.New())
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCreateTripMalformedJSON(t *testing.T) {
	t.Parallel()

	router := newTripRouter(&mockTripService{})

	req := httptest.NewRequest(http.MethodPost, "/api/trips", bytes.NewBufferString("{not json"))
	req = withUser(req, uuid.New())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateTripDuplicateConflict(t *testing.T) {
	t.Parallel()

	svc := &mockTripService{
		createFn: func(_ context.Context, _ uuid.UUID, _ service.CreateTripParams) (*service.TripCreation, error) {
			return nil, service.ErrDuplicateRequest
		},
	}
	router := newTripRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/trips", createTripBody(t))
	req = withUser(req, uuid.New())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)

	var resp shared.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "An identical itinerary request is already being generated", resp.Error)
}

func TestRegenerateCreated(t *testing.T) {
	t.Parallel()

	creation := sampleCreation(t)
	svc := &mockTripService{
		regenerateFn: func(_ context.Context, tripID uuid.UUID) (*service.TripCreation, error) {
			assert.Equal(t, creation.Trip.ID, tripID)
			return creation, nil
		},
	}
	router := newTripRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/trips/"+creation.Trip.ID.String()+"/regenerate", nil)
	req = withUser(req, uuid.New())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestRegenerateStatusMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		serviceErr error
		wantStatus int
	}{
		{name: "unknown trip", serviceErr: store.ErrTripNotFound, wantStatus: http.StatusNotFound},
		{name: "generation in flight", serviceErr: domain.ErrGenerationInFlight, wantStatus: http.StatusConflict},
		{name: "job already queued", serviceErr: service.ErrJobAlreadyQueued, wantStatus: http.StatusConflict},
		{name: "unexpected", serviceErr: assert.AnError, wantStatus: http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockTripService{
				regenerateFn: func(_ context.Context, _ uuid.UUID) (*service.TripCreation, error) {
					return nil, tc.serviceErr
				},
			}
			router := newTripRouter(svc)

			req := httptest.NewRequest(http.MethodPost, "/api/trips/"+uuid.NewString()+"/regenerate", nil)
			req = withUser(req, uuid.New())
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code)
		})
	}
}

func TestRegenerateInvalidTripID(t *testing.T) {
	t.Parallel()

	router := newTripRouter(&mockTripService{})

	req := httptest.NewRequest(http.MethodPost, "/api/trips/not-a-uuid/regenerate", nil)
	req = withUser(req, uuid.New())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetTrip(t *testing.T) {
	t.Parallel()

	creation := sampleCreation(t)
	plan := &domain.Plan{Days: []domain.PlanDay{{
		Day:    1,
		Places: []domain.PlanPlace{{Name: "Louvre", ThingsToDo: "See the collections"}},
	}}}
	creation.Itinerary.MarkCompleted(plan, nil, time.Now().UTC())

	svc := &mockTripService{
		getFn: func(_ context.Context, _ uuid.UUID) (*service.TripDetails, error) {
			return &service.TripDetails{Trip: creation.Trip, Itinerary: creation.Itinerary}, nil
		},
	}
	router := newTripRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/trips/"+creation.Trip.ID.String(), nil)
	req = withUser(req, uuid.New())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp TripDetailResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 3, resp.Days)
	assert.Equal(t, "completed", resp.Itinerary.GenerateStatus)
	require.NotNil(t, resp.Itinerary.GeneratedPlan)
	assert.Equal(t, "Louvre", resp.Itinerary.GeneratedPlan.Days[0].Places[0].Name)
}

func TestGetTripNotFound(t *testing.T) {
	t.Parallel()

	svc := &mockTripService{
		getFn: func(_ context.Context, _ uuid.UUID) (*service.TripDetails, error) {
			return nil, store.ErrTripNotFound
		},
	}
	router := newTripRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/trips/"+uuid.NewString(), nil)
	req = withUser(req, uuid.New())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
