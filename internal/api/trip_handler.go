package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tripbuddy/tripbuddy-api/internal/api/shared"
	"github.com/tripbuddy/tripbuddy-api/internal/domain"
	"github.com/tripbuddy/tripbuddy-api/internal/service"
)

// TripService is the orchestrator surface the trip handler needs.
type TripService interface {
	CreateTripWithItinerary(ctx context.Context, userID uuid.UUID, params service.CreateTripParams) (*service.TripCreation, error)
	Regenerate(ctx context.Context, tripID uuid.UUID) (*service.TripCreation, error)
	GetTrip(ctx context.Context, tripID uuid.UUID) (*service.TripDetails, error)
}

// CreateTripRequest represents the request body for creating a new trip
type CreateTripRequest struct {
	Cities    []string  `json:"cities" validate:"required,min=1,dive,required"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required"`
	MinBudget int       `json:"min_budget" validate:"gte=0"`
	MaxBudget int       `json:"max_budget" validate:"gtefield=MinBudget"`
	Interests []string  `json:"interests"`
	Currency  string    `json:"currency"`
}

// TripCreationResponse carries the identifiers the client polls with while
// the plan is generated asynchronously.
type TripCreationResponse struct {
	TripID         string `json:"trip_id"`
	ItineraryID    string `json:"itinerary_id"`
	GenerationID   string `json:"generation_id"`
	GenerateStatus string `json:"generate_status"`
	TripName       string `json:"trip_name"`
}

// TripDetailResponse represents the full read model for a trip.
type TripDetailResponse struct {
	TripID    string          `json:"trip_id"`
	TripName  string          `json:"trip_name"`
	StartDate time.Time       `json:"start_date"`
	EndDate   time.Time       `json:"end_date"`
	Days      int             `json:"days"`
	Itinerary ItineraryDetail `json:"itinerary"`
}

// ItineraryDetail is the itinerary projection inside a trip response.
type ItineraryDetail struct {
	ID                    string       `json:"id"`
	Cities                []string     `json:"cities"`
	Interests             []string     `json:"interests"`
	MinBudget             int          `json:"min_budget"`
	MaxBudget             int          `json:"max_budget"`
	Currency              string       `json:"currency"`
	GenerateStatus        string       `json:"generate_status"`
	GenerationAttempts    int          `json:"generation_attempts"`
	GenerationCompletedAt *time.Time   `json:"generation_completed_at,omitempty"`
	GeneratedPlan         *domain.Plan `json:"generated_plan,omitempty"`
}

// TripHandler handles trip-related HTTP requests
type TripHandler struct {
	tripService TripService
}

// NewTripHandler creates a new TripHandler
func NewTripHandler(tripService TripService) *TripHandler {
	return &TripHandler{
		tripService: tripService,
	}
}

// CreateTrip handles POST /api/trips requests. The response is 201 with the
// generated identifiers; the plan itself arrives asynchronously.
func (h *TripHandler) CreateTrip(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(shared.UserIDContextKey).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return
	}

	var req CreateTripRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	result, err := h.tripService.CreateTripWithItinerary(r.Context(), userID, service.CreateTripParams{
		Cities:    req.Cities,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		MinBudget: req.MinBudget,
		MaxBudget: req.MaxBudget,
		Interests: req.Interests,
		Currency:  req.Currency,
	})
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, creationToResponse(result))
}

// Regenerate handles POST /api/trips/{tripID}/regenerate requests.
func (h *TripHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	tripID, err := uuid.Parse(chi.URLParam(r, "tripID"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid trip ID")
		return
	}

	result, err := h.tripService.Regenerate(r.Context(), tripID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, creationToResponse(result))
}

// GetTrip handles GET /api/trips/{tripID} requests.
func (h *TripHandler) GetTrip(w http.ResponseWriter, r *http.Request) {
	tripID, err := uuid.Parse(chi.URLParam(r, "tripID"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid trip ID")
		return
	}

	details, err := h.tripService.GetTrip(r.Context(), tripID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, detailsToResponse(details))
}

// creationToResponse converts a service.TripCreation to its response DTO.
func creationToResponse(result *service.TripCreation) TripCreationResponse {
	return TripCreationResponse{
		TripID:         result.Trip.ID.String(),
		ItineraryID:    result.Itinerary.ID.String(),
		GenerationID:   result.GenerationID.String(),
		GenerateStatus: string(result.Itinerary.GenerateStatus),
		TripName:       result.Trip.TripName,
	}
}

// detailsToResponse converts a service.TripDetails to its response DTO.
func detailsToResponse(details *service.TripDetails) TripDetailResponse {
	return TripDetailResponse{
		TripID:    details.Trip.ID.String(),
		TripName:  details.Trip.TripName,
		StartDate: details.Trip.StartDate,
		EndDate:   details.Trip.EndDate,
		Days:      details.Trip.Days(),
		Itinerary: ItineraryDetail{
			ID:                    details.Itinerary.ID.String(),
			Cities:                details.Itinerary.Cities,
			Interests:             details.Itinerary.Interests,
			MinBudget:             details.Itinerary.MinBudget,
			MaxBudget:             details.Itinerary.MaxBudget,
			Currency:              details.Itinerary.Currency,
			GenerateStatus:        string(details.Itinerary.GenerateStatus),
			GenerationAttempts:    details.Itinerary.GenerationAttempts,
			GenerationCompletedAt: details.Itinerary.GenerationCompletedAt,
			GeneratedPlan:         details.Itinerary.GeneratedPlan,
		},
	}
}
