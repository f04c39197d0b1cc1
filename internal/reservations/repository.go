package reservations

import (
	"context"
	"time"
)

// Repository provides persistence for reservations. Create must enforce the
// one-reservation-per-(table, slot) invariant and return ErrSlotTaken when it
// is violated; that constraint, not the caller's pre-check, is authoritative.
type Repository interface {
	Create(ctx context.Context, res *Reservation) error
	FindBySlot(ctx context.Context, tableNumber int, slotAt time.Time) (*Reservation, error)
	List(ctx context.Context, filter Filter) ([]*Reservation, error)
	UpdateDelivery(ctx context.Context, id string, delivery DeliveryRecord) error
}
