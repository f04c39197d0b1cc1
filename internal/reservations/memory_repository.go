package reservations

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository keeps reservations in-process. It backs tests and DB-less
// runs, and enforces the same (table, slot) uniqueness under its own lock.
type MemoryRepository struct {
	mu     sync.Mutex
	byID   map[string]*Reservation
	bySlot map[slotKey]string
}

type slotKey struct {
	table  int
	slotAt int64
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:   make(map[string]*Reservation),
		bySlot: make(map[slotKey]string),
	}
}

var _ Repository = (*MemoryRepository)(nil)

func (r *MemoryRepository) Create(ctx context.Context, res *Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := slotKey{table: res.TableNumber, slotAt: res.SlotAt.UnixNano()}
	if _, taken := r.bySlot[key]; taken {
		return ErrSlotTaken
	}

	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	if res.Status == "" {
		res.Status = StatusBooked
	}
	if res.CreatedAt.IsZero() {
		res.CreatedAt = time.Now().UTC()
	}

	stored := *res
	r.byID[stored.ID] = &stored
	r.bySlot[key] = stored.ID
	return nil
}

func (r *MemoryRepository) FindBySlot(ctx context.Context, tableNumber int, slotAt time.Time) (*Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.bySlot[slotKey{table: tableNumber, slotAt: slotAt.UnixNano()}]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *r.byID[id]
	return &copied, nil
}

func (r *MemoryRepository) List(ctx context.Context, filter Filter) ([]*Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Reservation
	for _, res := range r.byID {
		if filter.SlotAt != nil && !res.SlotAt.Equal(*filter.SlotAt) {
			continue
		}
		if filter.TableNumber > 0 && res.TableNumber != filter.TableNumber {
			continue
		}
		copied := *res
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SlotAt.Equal(out[j].SlotAt) {
			return out[i].SlotAt.Before(out[j].SlotAt)
		}
		return out[i].TableNumber < out[j].TableNumber
	})
	return out, nil
}

func (r *MemoryRepository) UpdateDelivery(ctx context.Context, id string, delivery DeliveryRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	res.Delivery = delivery
	return nil
}
