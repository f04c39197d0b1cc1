package reservations

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/rahmanrestaurant/tablebook/internal/messaging"
	"github.com/rahmanrestaurant/tablebook/pkg/logging"
)

var tracer = otel.Tracer("internal/reservations")

// Notifier dispatches booking notifications and reports per-recipient
// receipts. Enabled tells callers whether automated sends are configured.
type Notifier interface {
	NotifyReservation(ctx context.Context, res *Reservation) DeliveryRecord
	Enabled() bool
}

// BookingResult is the full outcome of a booking attempt, including the
// manual-send fallback link and delivery receipts.
type BookingResult struct {
	Reservation  *Reservation   `json:"reservation"`
	WhatsAppLink string         `json:"whatsappLink"`
	Delivery     DeliveryRecord `json:"whatsappDelivery"`
	ProviderHint string         `json:"providerHint"`
}

const disabledProviderHint = "Set WHATSAPP_PROVIDER=cloud-api or bridge in the environment to enable automated sends."

// Service books slots and lists reservations. Slot uniqueness is enforced
// twice: a read before insert for the common case, and the storage-level
// unique index as the authoritative answer under concurrency.
type Service struct {
	repo        Repository
	notifier    Notifier
	logger      *logging.Logger
	adminNumber string
	sendTimeout time.Duration
}

// NewService wires the booking service. repo must not be nil; notifier may be
// nil, in which case deliveries stay not-attempted.
func NewService(repo Repository, notifier Notifier, adminNumber string, sendTimeout time.Duration, logger *logging.Logger) *Service {
	if repo == nil {
		panic("reservations: repo is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if sendTimeout <= 0 {
		sendTimeout = 10 * time.Second
	}
	return &Service{
		repo:        repo,
		notifier:    notifier,
		logger:      logger,
		adminNumber: adminNumber,
		sendTimeout: sendTimeout,
	}
}

// Book validates the request, claims the slot, and dispatches notifications.
// Returns ErrSlotTaken when the (table, slot) pair is already booked and a
// ValidationError for malformed input.
func (s *Service) Book(ctx context.Context, req BookingRequest) (*BookingResult, error) {
	ctx, span := tracer.Start(ctx, "reservations.Book")
	defer span.End()

	slotAt, err := req.Validate()
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("reservation.table", req.TableNumber),
		attribute.String("reservation.slot", slotAt.Format(time.RFC3339)),
	)

	// Fast path: a booked slot answers without burning an insert.
	if _, err := s.repo.FindBySlot(ctx, req.TableNumber, slotAt); err == nil {
		return nil, ErrSlotTaken
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("reservations: check slot: %w", err)
	}

	res := &Reservation{
		UserID:        req.UserID,
		UserEmail:     req.UserEmail,
		Name:          req.Name,
		Email:         req.Email,
		Phone:         req.Phone,
		SlotAt:        slotAt,
		Guests:        req.Guests,
		TableNumber:   req.TableNumber,
		WhatsAppOptIn: req.WhatsAppOptIn,
		Delivery:      NotAttemptedDelivery(),
		Status:        StatusBooked,
	}
	if err := s.repo.Create(ctx, res); err != nil {
		if errors.Is(err, ErrSlotTaken) {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("reservations: create: %w", err)
	}

	result := &BookingResult{
		Reservation:  res,
		WhatsAppLink: s.whatsAppLink(res),
		Delivery:     res.Delivery,
	}
	if s.notifier == nil || !s.notifier.Enabled() {
		// No automated sends; receipts stay not-attempted, the caller gets the
		// manual wa.me link plus a hint about enabling a provider.
		result.ProviderHint = disabledProviderHint
		return result, nil
	}

	result.Delivery = s.dispatch(ctx, span, res)
	return result, nil
}

// dispatch runs the notification attempt under a bounded budget. A client
// disconnect cancels in-flight sends but never unwinds the committed
// reservation, so the receipt write uses a detached context.
func (s *Service) dispatch(ctx context.Context, span trace.Span, res *Reservation) DeliveryRecord {
	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()

	delivery := s.notifier.NotifyReservation(sendCtx, res)
	res.Delivery = delivery
	span.SetAttributes(
		attribute.Bool("notify.admin_sent", delivery.Admin.Sent),
		attribute.Bool("notify.customer_sent", delivery.Customer.Sent),
	)

	updateCtx, cancelUpdate := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancelUpdate()
	if err := s.repo.UpdateDelivery(updateCtx, res.ID, delivery); err != nil {
		s.logger.Error("failed to persist delivery receipts",
			"reservation_id", res.ID,
			"error", err,
		)
	}
	return delivery
}

// List returns reservations matching the filter, ordered by slot then table.
func (s *Service) List(ctx context.Context, filter Filter) ([]*Reservation, error) {
	ctx, span := tracer.Start(ctx, "reservations.List")
	defer span.End()

	out, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("reservations: list: %w", err)
	}
	return out, nil
}

func (s *Service) whatsAppLink(res *Reservation) string {
	digits := messaging.WaID(s.adminNumber)
	if digits == "" {
		return ""
	}
	message := fmt.Sprintf(
		"New reservation: Table %d by %s at %s. Guests: %d, Phone: %s",
		res.TableNumber, res.Name, res.SlotAt.Format(time.RFC3339), res.Guests, res.Phone,
	)
	return fmt.Sprintf("https://wa.me/%s?text=%s", digits, url.QueryEscape(message))
}
