package messaging

import (
	"context"
	"strings"
	"time"

	"github.com/rahmanrestaurant/tablebook/pkg/logging"
)

// Sender is the uniform send/verify surface over the configured WhatsApp
// backend. Exactly one variant (disabled, cloud API, or telephony bridge) is
// selected at startup; request paths never branch on provider strings.
type Sender interface {
	// Provider returns the backend identifier.
	Provider() string
	// Enabled reports whether outbound sends can actually reach a vendor.
	Enabled() bool
	// SendText normalizes the recipient and dispatches a free-text message.
	// A Receipt with Sent=false and a reason is returned for statically
	// unsendable input; transport and vendor failures surface as errors.
	SendText(ctx context.Context, to, body string) (Receipt, error)
	// SendTemplate dispatches a pre-approved template with ordered body
	// variables. Only the cloud API backend supports templates.
	SendTemplate(ctx context.Context, to, templateName string, variables []string) (Receipt, error)
	// VerifySignature checks an inbound webhook signature against the raw,
	// unparsed request body. Backends without a signature scheme pass.
	VerifySignature(rawBody []byte, signatureHeader string) bool
}

// ProviderSelectionConfig carries the credentials each backend requires.
type ProviderSelectionConfig struct {
	Provider           string
	DefaultCountryCode string
	SendTimeout        time.Duration

	CloudAccessToken   string
	CloudPhoneNumberID string
	CloudAPIVersion    string
	CloudAppSecret     string

	BridgeAccountSID string
	BridgeAuthToken  string
	BridgeFromNumber string
}

// BuildSender instantiates the Sender for the configured provider. Incomplete
// credentials degrade to the disabled variant with a logged reason; booking
// must keep working when chat is misconfigured.
func BuildSender(cfg ProviderSelectionConfig, logger *logging.Logger) Sender {
	if logger == nil {
		logger = logging.Default()
	}
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))

	switch provider {
	case ProviderCloudAPI:
		var missing []string
		if cfg.CloudAccessToken == "" {
			missing = append(missing, "WHATSAPP_CLOUD_ACCESS_TOKEN")
		}
		if cfg.CloudPhoneNumberID == "" {
			missing = append(missing, "WHATSAPP_CLOUD_PHONE_NUMBER_ID")
		}
		if len(missing) > 0 {
			logger.Warn("whatsapp cloud api selected but not configured, sends disabled",
				"missing", strings.Join(missing, ", "))
			return NewDisabledSender(cfg.DefaultCountryCode)
		}
		return NewCloudAPISender(CloudAPIConfig{
			AccessToken:        cfg.CloudAccessToken,
			PhoneNumberID:      cfg.CloudPhoneNumberID,
			APIVersion:         cfg.CloudAPIVersion,
			AppSecret:          cfg.CloudAppSecret,
			DefaultCountryCode: cfg.DefaultCountryCode,
			SendTimeout:        cfg.SendTimeout,
		}, logger)
	case ProviderBridge:
		var missing []string
		if cfg.BridgeAccountSID == "" {
			missing = append(missing, "WHATSAPP_BRIDGE_ACCOUNT_SID")
		}
		if cfg.BridgeAuthToken == "" {
			missing = append(missing, "WHATSAPP_BRIDGE_AUTH_TOKEN")
		}
		if cfg.BridgeFromNumber == "" {
			missing = append(missing, "WHATSAPP_BRIDGE_FROM")
		}
		if len(missing) > 0 {
			logger.Warn("whatsapp bridge selected but not configured, sends disabled",
				"missing", strings.Join(missing, ", "))
			return NewDisabledSender(cfg.DefaultCountryCode)
		}
		return NewBridgeSender(BridgeConfig{
			AccountSID:         cfg.BridgeAccountSID,
			AuthToken:          cfg.BridgeAuthToken,
			FromNumber:         cfg.BridgeFromNumber,
			DefaultCountryCode: cfg.DefaultCountryCode,
			SendTimeout:        cfg.SendTimeout,
		}, logger)
	case "", ProviderNone:
		return NewDisabledSender(cfg.DefaultCountryCode)
	default:
		logger.Warn("unknown whatsapp provider, sends disabled", "provider", provider)
		return NewDisabledSender(cfg.DefaultCountryCode)
	}
}
