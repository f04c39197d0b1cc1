package messaging

// Provider identifiers, fixed at startup.
const (
	ProviderNone     = "none"
	ProviderCloudAPI = "cloud-api"
	ProviderBridge   = "bridge"
)

// Delivery failure reasons recorded on a reservation.
const (
	ReasonNotAttempted         = "not-attempted"
	ReasonMissingRecipient     = "missing-recipient"
	ReasonProviderDisabled     = "provider-disabled"
	ReasonMissingAdminNumber   = "missing-admin-number"
	ReasonNotOptedIn           = "customer-not-opted-in"
	ReasonInvalidCustomerPhone = "invalid-customer-phone"
	ReasonSendFailed           = "send-failed"
	ReasonTemplateSendFailed   = "template-send-failed"
	ReasonTemplateUnsupported  = "template-only-supported-on-cloud-api"
)

// Receipt is the per-attempt outcome of one outbound WhatsApp message.
// Written once into the reservation's delivery record, never mutated.
type Receipt struct {
	Sent      bool   `json:"sent"`
	Provider  string `json:"provider,omitempty"`
	Recipient string `json:"recipient,omitempty"`
	MessageID string `json:"messageId,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

// NotAttempted is the placeholder receipt persisted before any send runs.
func NotAttempted() Receipt {
	return Receipt{Sent: false, Reason: ReasonNotAttempted}
}

// Failed builds a failure receipt from a send error.
func Failed(reason string, err error) Receipt {
	r := Receipt{Sent: false, Reason: reason}
	if err != nil {
		r.Detail = err.Error()
	}
	return r
}
