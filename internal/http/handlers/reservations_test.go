package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rahmanrestaurant/tablebook/internal/reservations"
)

func newBookingHandler(t *testing.T) *ReservationsHandler {
	t.Helper()
	svc := reservations.NewService(reservations.NewMemoryRepository(), nil, "+917858062571", time.Second, nil)
	return NewReservationsHandler(svc, nil, nil)
}

func postBooking(t *testing.T, h *ReservationsHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/reservations", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Create(rec, req)
	return rec
}

const validBookingBody = `{
	"name": "Asha",
	"email": "asha@example.com",
	"phone": "9876543210",
	"slot": "2026-09-12T19:00:00Z",
	"guests": 2,
	"tableNumber": 4,
	"whatsappOptIn": true
}`

func TestCreateReservationReturns201(t *testing.T) {
	h := newBookingHandler(t)
	rec := postBooking(t, h, validBookingBody)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Success      bool   `json:"success"`
		WhatsAppLink string `json:"whatsappLink"`
		ProviderHint string `json:"providerHint"`
		Reservation  struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"reservation"`
		Delivery struct {
			Admin struct {
				Sent   bool   `json:"sent"`
				Reason string `json:"reason"`
			} `json:"admin"`
		} `json:"whatsappDelivery"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.Reservation.ID == "" || resp.Reservation.Status != "booked" {
		t.Errorf("response = %+v", resp)
	}
	if !strings.HasPrefix(resp.WhatsAppLink, "https://wa.me/") {
		t.Errorf("whatsappLink = %q", resp.WhatsAppLink)
	}
	// No notifier wired; the hint tells the operator how to enable sends.
	if resp.ProviderHint == "" {
		t.Error("expected providerHint")
	}
	if resp.Delivery.Admin.Sent || resp.Delivery.Admin.Reason != "not-attempted" {
		t.Errorf("admin receipt = %+v", resp.Delivery.Admin)
	}
}

func TestCreateReservationValidationMessages(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		message string
	}{
		{
			"guests out of range",
			`{"name":"Asha","email":"a@example.com","phone":"9876543210","slot":"2026-09-12T19:00:00Z","guests":11,"tableNumber":4}`,
			"Guests must be between 1 and 10.",
		},
		{
			"table out of range",
			`{"name":"Asha","email":"a@example.com","phone":"9876543210","slot":"2026-09-12T19:00:00Z","guests":2,"tableNumber":51}`,
			"Table number must be between 1 and 50.",
		},
		{
			"missing fields",
			`{"guests":2,"tableNumber":4}`,
			"All reservation fields are required.",
		},
		{
			"bad slot",
			`{"name":"Asha","email":"a@example.com","phone":"9876543210","slot":"tonight","guests":2,"tableNumber":4}`,
			"Reservation slot must be a valid date and time.",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newBookingHandler(t)
			rec := postBooking(t, h, tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
			}
			var resp struct {
				Message string `json:"message"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Message != tc.message {
				t.Errorf("message = %q, want %q", resp.Message, tc.message)
			}
		})
	}
}

func TestCreateReservationConflictReturns409(t *testing.T) {
	h := newBookingHandler(t)

	if rec := postBooking(t, h, validBookingBody); rec.Code != http.StatusCreated {
		t.Fatalf("first booking status = %d", rec.Code)
	}
	rec := postBooking(t, h, validBookingBody)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Message != "Table is already reserved for this slot." {
		t.Errorf("message = %q", resp.Message)
	}
}

func TestCreateReservationRejectsBadJSON(t *testing.T) {
	h := newBookingHandler(t)
	rec := postBooking(t, h, `{"name": `)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestListReservationsFiltersAndOrders(t *testing.T) {
	h := newBookingHandler(t)

	bodies := []string{
		`{"name":"C","email":"c@example.com","phone":"9876543210","slot":"2026-09-12T21:00:00Z","guests":2,"tableNumber":2}`,
		`{"name":"A","email":"a@example.com","phone":"9876543210","slot":"2026-09-12T19:00:00Z","guests":2,"tableNumber":9}`,
		`{"name":"B","email":"b@example.com","phone":"9876543210","slot":"2026-09-12T19:00:00Z","guests":2,"tableNumber":3}`,
	}
	for _, body := range bodies {
		if rec := postBooking(t, h, body); rec.Code != http.StatusCreated {
			t.Fatalf("seed booking failed: %d %s", rec.Code, rec.Body.String())
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/reservations", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Reservations []struct {
			Name        string `json:"name"`
			TableNumber int    `json:"tableNumber"`
		} `json:"reservations"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Reservations) != 3 {
		t.Fatalf("len = %d", len(resp.Reservations))
	}
	if resp.Reservations[0].Name != "B" || resp.Reservations[1].Name != "A" || resp.Reservations[2].Name != "C" {
		t.Errorf("order = %+v", resp.Reservations)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/reservations?slot=2026-09-12T19:00:00Z&tableNumber=9", nil)
	rec = httptest.NewRecorder()
	h.List(rec, req)
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode filtered: %v", err)
	}
	if len(resp.Reservations) != 1 || resp.Reservations[0].Name != "A" {
		t.Errorf("filtered = %+v", resp.Reservations)
	}
}

func TestListReservationsRejectsBadParams(t *testing.T) {
	h := newBookingHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/reservations?slot=tonight", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad slot status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/reservations?tableNumber=zero", nil)
	rec = httptest.NewRecorder()
	h.List(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad tableNumber status = %d", rec.Code)
	}
}

func TestListReservationsEmptyIsArray(t *testing.T) {
	h := newBookingHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/api/reservations", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)
	if !strings.Contains(rec.Body.String(), `"reservations":[]`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}
