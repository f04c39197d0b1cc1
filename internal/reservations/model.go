package reservations

import (
	"strings"
	"time"

	"github.com/rahmanrestaurant/tablebook/internal/messaging"
)

// Reservation lifecycle states. Only booked is produced today; the column
// leaves room for cancellation states.
const StatusBooked = "booked"

// Guest and table bounds enforced on every booking request.
const (
	MinGuests   = 1
	MaxGuests   = 10
	MinTable    = 1
	MaxTable    = 50
)

// DeliveryRecord is the per-channel notification outcome embedded in a
// reservation. Written once at creation time.
type DeliveryRecord struct {
	Admin    messaging.Receipt `json:"admin"`
	Customer messaging.Receipt `json:"customer"`
}

// NotAttemptedDelivery is the placeholder persisted before any send runs.
func NotAttemptedDelivery() DeliveryRecord {
	return DeliveryRecord{
		Admin:    messaging.NotAttempted(),
		Customer: messaging.NotAttempted(),
	}
}

// Reservation is one booked table-slot.
type Reservation struct {
	ID            string         `json:"id"`
	UserID        string         `json:"userId,omitempty"`
	UserEmail     string         `json:"userEmail,omitempty"`
	Name          string         `json:"name"`
	Email         string         `json:"email"`
	Phone         string         `json:"phone"`
	SlotAt        time.Time      `json:"slotAt"`
	Guests        int            `json:"guests"`
	TableNumber   int            `json:"tableNumber"`
	WhatsAppOptIn bool           `json:"whatsappOptIn"`
	Delivery      DeliveryRecord `json:"whatsappDelivery"`
	Status        string         `json:"status"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// BookingRequest is the request body for creating a reservation. UserID and
// UserEmail are attached from the optional auth identity, never from the body.
type BookingRequest struct {
	UserID        string `json:"-"`
	UserEmail     string `json:"-"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Slot          string `json:"slot"`
	Guests        int    `json:"guests"`
	TableNumber   int    `json:"tableNumber"`
	WhatsAppOptIn bool   `json:"whatsappOptIn"`
}

// Accepted slot layouts. The first is canonical; the second matches the
// minute-granularity value the reservation form submits.
var slotLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
}

// Validate checks fields in order and returns a ValidationError for the first
// failure: required fields, then guest bounds, then table bounds. On success
// it returns the parsed slot timestamp.
func (r *BookingRequest) Validate() (time.Time, error) {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Phone = strings.TrimSpace(r.Phone)
	r.Slot = strings.TrimSpace(r.Slot)

	if r.Name == "" {
		return time.Time{}, &ValidationError{Field: "name", Message: "name is required"}
	}
	if r.Email == "" {
		return time.Time{}, &ValidationError{Field: "email", Message: "email is required"}
	}
	if r.Phone == "" {
		return time.Time{}, &ValidationError{Field: "phone", Message: "phone is required"}
	}
	if r.Slot == "" {
		return time.Time{}, &ValidationError{Field: "slot", Message: "slot is required"}
	}
	slotAt, err := parseSlot(r.Slot)
	if err != nil {
		return time.Time{}, &ValidationError{Field: "slot", Message: "slot must be a valid timestamp"}
	}
	if r.Guests < MinGuests || r.Guests > MaxGuests {
		return time.Time{}, &ValidationError{Field: "guests", Message: "guests must be between 1 and 10"}
	}
	if r.TableNumber < MinTable || r.TableNumber > MaxTable {
		return time.Time{}, &ValidationError{Field: "tableNumber", Message: "table number must be between 1 and 50"}
	}
	return slotAt, nil
}

func parseSlot(value string) (time.Time, error) {
	var lastErr error
	for _, layout := range slotLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// Filter narrows reservation listings. Zero values mean no constraint.
type Filter struct {
	SlotAt      *time.Time
	TableNumber int
}
