package messaging

import "context"

// DisabledSender is the no-op variant used when no WhatsApp provider is
// configured. Sends report provider-disabled without reaching any network;
// signature checks pass so webhook handling stays inert rather than broken.
type DisabledSender struct {
	defaultCountryCode string
}

// NewDisabledSender builds the no-op sender.
func NewDisabledSender(defaultCountryCode string) *DisabledSender {
	return &DisabledSender{defaultCountryCode: defaultCountryCode}
}

var _ Sender = (*DisabledSender)(nil)

func (s *DisabledSender) Provider() string { return ProviderNone }

func (s *DisabledSender) Enabled() bool { return false }

func (s *DisabledSender) SendText(ctx context.Context, to, body string) (Receipt, error) {
	normalized := NormalizePhone(to, s.defaultCountryCode)
	if normalized == "" {
		return Receipt{Sent: false, Reason: ReasonMissingRecipient}, nil
	}
	return Receipt{Sent: false, Reason: ReasonProviderDisabled, Recipient: normalized}, nil
}

func (s *DisabledSender) SendTemplate(ctx context.Context, to, templateName string, variables []string) (Receipt, error) {
	normalized := NormalizePhone(to, s.defaultCountryCode)
	if normalized == "" {
		return Receipt{Sent: false, Reason: ReasonMissingRecipient}, nil
	}
	return Receipt{Sent: false, Reason: ReasonProviderDisabled, Recipient: normalized}, nil
}

func (s *DisabledSender) VerifySignature(rawBody []byte, signatureHeader string) bool {
	return true
}
