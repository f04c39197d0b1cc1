package reservations

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rahmanrestaurant/tablebook/internal/messaging"
)

type stubNotifier struct {
	enabled bool
	calls   int
	record  DeliveryRecord
}

func (s *stubNotifier) NotifyReservation(ctx context.Context, res *Reservation) DeliveryRecord {
	s.calls++
	return s.record
}

func (s *stubNotifier) Enabled() bool { return s.enabled }

func validRequest() BookingRequest {
	return BookingRequest{
		Name:          "Asha",
		Email:         "asha@example.com",
		Phone:         "9876543210",
		Slot:          "2026-09-12T19:00:00Z",
		Guests:        2,
		TableNumber:   4,
		WhatsAppOptIn: true,
	}
}

func TestBookPersistsAndNotifies(t *testing.T) {
	repo := NewMemoryRepository()
	notifier := &stubNotifier{
		enabled: true,
		record: DeliveryRecord{
			Admin:    messaging.Receipt{Sent: true, Provider: "cloud-api", MessageID: "wamid.1"},
			Customer: messaging.Receipt{Sent: true, Provider: "cloud-api", MessageID: "wamid.2"},
		},
	}
	svc := NewService(repo, notifier, "+917858062571", time.Second, nil)

	result, err := svc.Book(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if notifier.calls != 1 {
		t.Errorf("notifier calls = %d", notifier.calls)
	}
	if !result.Delivery.Admin.Sent || !result.Delivery.Customer.Sent {
		t.Errorf("delivery = %+v", result.Delivery)
	}
	if result.ProviderHint != "" {
		t.Errorf("providerHint = %q", result.ProviderHint)
	}
	if !strings.HasPrefix(result.WhatsAppLink, "https://wa.me/917858062571?text=") {
		t.Errorf("whatsappLink = %q", result.WhatsAppLink)
	}
	if !strings.Contains(result.WhatsAppLink, "New+reservation") {
		t.Errorf("whatsappLink missing summary: %q", result.WhatsAppLink)
	}

	// The receipts reach storage too.
	stored, err := repo.FindBySlot(context.Background(), 4, result.Reservation.SlotAt)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if stored.Delivery.Admin.MessageID != "wamid.1" {
		t.Errorf("stored delivery = %+v", stored.Delivery)
	}
}

func TestBookValidationRejectsBeforeAnySideEffect(t *testing.T) {
	repo := NewMemoryRepository()
	notifier := &stubNotifier{enabled: true}
	svc := NewService(repo, notifier, "+917858062571", time.Second, nil)

	req := validRequest()
	req.Guests = 11
	_, err := svc.Book(context.Background(), req)

	ve, ok := IsValidation(err)
	if !ok {
		t.Fatalf("expected validation error, got %v", err)
	}
	if ve.Field != "guests" {
		t.Errorf("field = %q", ve.Field)
	}
	if notifier.calls != 0 {
		t.Errorf("notifier ran %d times", notifier.calls)
	}
	all, _ := repo.List(context.Background(), Filter{})
	if len(all) != 0 {
		t.Errorf("reservation persisted despite validation failure")
	}
}

func TestBookSecondAttemptConflicts(t *testing.T) {
	repo := NewMemoryRepository()
	notifier := &stubNotifier{enabled: true, record: NotAttemptedDelivery()}
	svc := NewService(repo, notifier, "", time.Second, nil)

	if _, err := svc.Book(context.Background(), validRequest()); err != nil {
		t.Fatalf("first book: %v", err)
	}

	req := validRequest()
	req.Name = "Ravi"
	_, err := svc.Book(context.Background(), req)
	if !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}
	if notifier.calls != 1 {
		t.Errorf("notifier ran for the conflicting attempt")
	}
}

func TestBookDisabledProviderSkipsDispatch(t *testing.T) {
	repo := NewMemoryRepository()
	notifier := &stubNotifier{enabled: false}
	svc := NewService(repo, notifier, "+917858062571", time.Second, nil)

	result, err := svc.Book(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if notifier.calls != 0 {
		t.Errorf("notifier ran despite being disabled")
	}
	if result.ProviderHint == "" {
		t.Error("expected provider hint")
	}
	if result.Delivery.Admin.Reason != messaging.ReasonNotAttempted {
		t.Errorf("admin receipt = %+v", result.Delivery.Admin)
	}
	if result.WhatsAppLink == "" {
		t.Error("manual wa.me link should still be offered")
	}
}

func TestBookAcceptsMinuteGranularitySlot(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo, nil, "", time.Second, nil)

	req := validRequest()
	req.Slot = "2026-09-12T19:00"
	result, err := svc.Book(context.Background(), req)
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	want := time.Date(2026, 9, 12, 19, 0, 0, 0, time.UTC)
	if !result.Reservation.SlotAt.Equal(want) {
		t.Errorf("slotAt = %v", result.Reservation.SlotAt)
	}
}

func TestBookSameTableDifferentSlot(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo, nil, "", time.Second, nil)

	if _, err := svc.Book(context.Background(), validRequest()); err != nil {
		t.Fatalf("first book: %v", err)
	}
	req := validRequest()
	req.Slot = "2026-09-12T21:00:00Z"
	if _, err := svc.Book(context.Background(), req); err != nil {
		t.Fatalf("second slot: %v", err)
	}
}
