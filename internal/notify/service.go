// Package notify dispatches reservation WhatsApp notifications to the
// restaurant admin and the booking customer, producing one receipt per
// recipient. Attempts are independent: an admin failure never blocks the
// customer confirmation and vice versa.
package notify

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/rahmanrestaurant/tablebook/internal/messaging"
	"github.com/rahmanrestaurant/tablebook/internal/observability/metrics"
	"github.com/rahmanrestaurant/tablebook/internal/reservations"
	"github.com/rahmanrestaurant/tablebook/pkg/logging"
)

var tracer = otel.Tracer("internal/notify")

const slotLayout = time.RFC3339

// Service orchestrates reservation notifications over the configured sender.
type Service struct {
	sender             messaging.Sender
	adminNumber        string
	defaultCountryCode string
	templateName       string
	metrics            *metrics.BookingMetrics
	logger             *logging.Logger
}

// Config carries the notification wiring.
type Config struct {
	AdminNumber        string
	DefaultCountryCode string
	TemplateName       string
}

// NewService builds the orchestrator. sender must not be nil; metrics may be.
func NewService(sender messaging.Sender, cfg Config, m *metrics.BookingMetrics, logger *logging.Logger) *Service {
	if sender == nil {
		panic("notify: sender is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		sender:             sender,
		adminNumber:        cfg.AdminNumber,
		defaultCountryCode: cfg.DefaultCountryCode,
		templateName:       cfg.TemplateName,
		metrics:            m,
		logger:             logger,
	}
}

// Enabled reports whether automated sends can reach a vendor.
func (s *Service) Enabled() bool {
	return s.sender.Enabled()
}

// NotifyReservation attempts the admin alert and the customer confirmation
// and returns both receipts. Failures are captured in the receipts, never
// returned as errors.
func (s *Service) NotifyReservation(ctx context.Context, res *reservations.Reservation) reservations.DeliveryRecord {
	ctx, span := tracer.Start(ctx, "notify.NotifyReservation")
	defer span.End()

	record := reservations.DeliveryRecord{
		Admin:    s.notifyAdmin(ctx, res),
		Customer: s.notifyCustomer(ctx, res),
	}
	span.SetAttributes(
		attribute.Bool("notify.admin_sent", record.Admin.Sent),
		attribute.Bool("notify.customer_sent", record.Customer.Sent),
	)
	s.observe("admin", record.Admin)
	s.observe("customer", record.Customer)
	return record
}

func (s *Service) notifyAdmin(ctx context.Context, res *reservations.Reservation) messaging.Receipt {
	if s.adminNumber == "" {
		return messaging.Receipt{Sent: false, Reason: messaging.ReasonMissingAdminNumber}
	}
	receipt, err := s.sender.SendText(ctx, s.adminNumber, reservationText(res))
	if err != nil {
		s.logger.Error("admin whatsapp notification failed",
			"reservation_id", res.ID,
			"error", err,
		)
		return messaging.Failed(messaging.ReasonSendFailed, err)
	}
	return receipt
}

func (s *Service) notifyCustomer(ctx context.Context, res *reservations.Reservation) messaging.Receipt {
	if !res.WhatsAppOptIn {
		return messaging.Receipt{Sent: false, Reason: messaging.ReasonNotOptedIn}
	}
	target := messaging.NormalizePhone(res.Phone, s.defaultCountryCode)
	if target == "" {
		return messaging.Receipt{Sent: false, Reason: messaging.ReasonInvalidCustomerPhone}
	}

	if s.sender.Provider() == messaging.ProviderCloudAPI && s.templateName != "" {
		receipt, err := s.sender.SendTemplate(ctx, target, s.templateName, []string{
			res.Name,
			fmt.Sprintf("%d", res.TableNumber),
			res.SlotAt.Format(slotLayout),
			fmt.Sprintf("%d", res.Guests),
		})
		if err == nil {
			return receipt
		}
		// One free-text fallback; if that fails too, the template error is
		// the recorded detail.
		s.logger.Warn("template confirmation failed, falling back to text",
			"reservation_id", res.ID,
			"template", s.templateName,
			"error", err,
		)
		fallback, textErr := s.sender.SendText(ctx, target, confirmationText(res))
		if textErr != nil {
			return messaging.Failed(messaging.ReasonTemplateSendFailed, err)
		}
		return fallback
	}

	receipt, err := s.sender.SendText(ctx, target, confirmationText(res))
	if err != nil {
		s.logger.Error("customer whatsapp confirmation failed",
			"reservation_id", res.ID,
			"error", err,
		)
		return messaging.Failed(messaging.ReasonSendFailed, err)
	}
	return receipt
}

func (s *Service) observe(recipient string, receipt messaging.Receipt) {
	status := "sent"
	if !receipt.Sent {
		status = receipt.Reason
	}
	s.metrics.ObserveOutbound(s.sender.Provider(), recipient+":"+status)
}

func reservationText(res *reservations.Reservation) string {
	return fmt.Sprintf(
		"New reservation: Table %d by %s at %s. Guests: %d, Phone: %s",
		res.TableNumber, res.Name, res.SlotAt.Format(slotLayout), res.Guests, res.Phone,
	)
}

func confirmationText(res *reservations.Reservation) string {
	return fmt.Sprintf(
		"Hi %s, your reservation is confirmed at RAHMAN Restaurant. Table %d, %s, Guests: %d. Reply HELP for support.",
		res.Name, res.TableNumber, res.SlotAt.Format(slotLayout), res.Guests,
	)
}
