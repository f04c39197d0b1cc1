package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rahmanrestaurant/tablebook/internal/http/middleware"
	"github.com/rahmanrestaurant/tablebook/internal/observability/metrics"
	"github.com/rahmanrestaurant/tablebook/internal/reservations"
	"github.com/rahmanrestaurant/tablebook/pkg/logging"
)

// ReservationsHandler exposes the booking API over the reservation service.
type ReservationsHandler struct {
	service *reservations.Service
	metrics *metrics.BookingMetrics
	logger  *logging.Logger
}

// NewReservationsHandler creates the handler. service must not be nil.
func NewReservationsHandler(service *reservations.Service, m *metrics.BookingMetrics, logger *logging.Logger) *ReservationsHandler {
	if service == nil {
		panic("handlers: reservation service is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ReservationsHandler{service: service, metrics: m, logger: logger}
}

type bookingResponse struct {
	Success      bool                        `json:"success"`
	Reservation  *reservations.Reservation   `json:"reservation"`
	WhatsAppLink string                      `json:"whatsappLink"`
	Delivery     reservations.DeliveryRecord `json:"whatsappDelivery"`
	ProviderHint string                      `json:"providerHint"`
}

// Create books a slot.
// POST /api/reservations
func (h *ReservationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req reservations.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if identity, ok := middleware.IdentityFromContext(r.Context()); ok {
		req.UserID = identity.UserID
		req.UserEmail = identity.Email
	}

	result, err := h.service.Book(r.Context(), req)
	if err != nil {
		h.writeBookingError(w, r, err)
		return
	}

	h.metrics.ObserveBooking("created")
	writeJSON(w, http.StatusCreated, bookingResponse{
		Success:      true,
		Reservation:  result.Reservation,
		WhatsAppLink: result.WhatsAppLink,
		Delivery:     result.Delivery,
		ProviderHint: result.ProviderHint,
	})
}

func (h *ReservationsHandler) writeBookingError(w http.ResponseWriter, r *http.Request, err error) {
	if ve, ok := reservations.IsValidation(err); ok {
		h.metrics.ObserveBooking("invalid")
		jsonError(w, validationMessage(ve), http.StatusBadRequest)
		return
	}
	if errors.Is(err, reservations.ErrSlotTaken) {
		h.metrics.ObserveBooking("conflict")
		jsonError(w, "Table is already reserved for this slot.", http.StatusConflict)
		return
	}
	h.metrics.ObserveBooking("error")
	h.logger.Error("booking failed", "error", err, "path", r.URL.Path)
	jsonError(w, "failed to create reservation", http.StatusInternalServerError)
}

// validationMessage renders the user-facing message for the first failing
// field, matching what the booking form displays.
func validationMessage(ve *reservations.ValidationError) string {
	switch ve.Field {
	case "guests":
		return "Guests must be between 1 and 10."
	case "tableNumber":
		return "Table number must be between 1 and 50."
	case "slot":
		if ve.Message == "slot must be a valid timestamp" {
			return "Reservation slot must be a valid date and time."
		}
		return "All reservation fields are required."
	default:
		return "All reservation fields are required."
	}
}

// List returns reservations, optionally filtered by slot and table.
// GET /api/reservations?slot=&tableNumber=
func (h *ReservationsHandler) List(w http.ResponseWriter, r *http.Request) {
	var filter reservations.Filter

	if raw := r.URL.Query().Get("slot"); raw != "" {
		slotAt, err := parseSlotParam(raw)
		if err != nil {
			jsonError(w, "slot must be a valid timestamp", http.StatusBadRequest)
			return
		}
		filter.SlotAt = &slotAt
	}
	if raw := r.URL.Query().Get("tableNumber"); raw != "" {
		tableNumber, err := strconv.Atoi(raw)
		if err != nil || tableNumber < 1 {
			jsonError(w, "tableNumber must be a positive integer", http.StatusBadRequest)
			return
		}
		filter.TableNumber = tableNumber
	}

	out, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("listing reservations failed", "error", err)
		jsonError(w, "failed to list reservations", http.StatusInternalServerError)
		return
	}
	if out == nil {
		out = []*reservations.Reservation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"reservations": out})
}

func parseSlotParam(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		t, err = time.Parse("2006-01-02T15:04", raw)
	}
	return t.UTC(), err
}
