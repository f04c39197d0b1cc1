package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/rahmanrestaurant/tablebook/pkg/logging"
)

var bridgeTracer = otel.Tracer("tablebook.internal.messaging.bridge")

const defaultBridgeBaseURL = "https://api.twilio.com"

// BridgeConfig carries the telephony-bridge credentials.
type BridgeConfig struct {
	AccountSID         string
	AuthToken          string
	FromNumber         string
	DefaultCountryCode string
	SendTimeout        time.Duration
	// BaseURL overrides the bridge API host, for tests.
	BaseURL string
}

// BridgeSender posts WhatsApp messages through the telephony-bridge REST API
// using Basic-authenticated form POSTs with whatsapp:-prefixed addresses.
type BridgeSender struct {
	accountSID         string
	authToken          string
	from               string
	defaultCountryCode string
	baseURL            string
	httpClient         *http.Client
	logger             *logging.Logger
}

// NewBridgeSender builds a sender with sane defaults.
func NewBridgeSender(cfg BridgeConfig, logger *logging.Logger) *BridgeSender {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBridgeBaseURL
	}
	return &BridgeSender{
		accountSID:         cfg.AccountSID,
		authToken:          cfg.AuthToken,
		from:               cfg.FromNumber,
		defaultCountryCode: cfg.DefaultCountryCode,
		baseURL:            strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.SendTimeout,
		},
		logger: logger,
	}
}

var _ Sender = (*BridgeSender)(nil)

func (s *BridgeSender) Provider() string { return ProviderBridge }

func (s *BridgeSender) Enabled() bool { return true }

// SendText dispatches a single free-text message.
func (s *BridgeSender) SendText(ctx context.Context, to, body string) (Receipt, error) {
	normalized := NormalizePhone(to, s.defaultCountryCode)
	if normalized == "" {
		return Receipt{Sent: false, Reason: ReasonMissingRecipient}, nil
	}

	ctx, span := bridgeTracer.Start(ctx, "bridge.send_text")
	defer span.End()
	span.SetAttributes(attribute.String("tablebook.recipient", normalized))

	form := url.Values{}
	form.Set("From", "whatsapp:"+NormalizePhone(s.from, s.defaultCountryCode))
	form.Set("To", "whatsapp:"+normalized)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", s.baseURL, s.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		span.RecordError(err)
		return Receipt{}, fmt.Errorf("messaging: build bridge request: %w", err)
	}
	req.SetBasicAuth(s.accountSID, s.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return Receipt{}, fmt.Errorf("messaging: bridge request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("messaging: bridge send failed: %s", formatBridgeError(resp.StatusCode, respBody))
		span.RecordError(err)
		return Receipt{}, err
	}

	var parsed struct {
		SID string `json:"sid"`
	}
	_ = json.Unmarshal(respBody, &parsed)

	s.logger.Info("whatsapp bridge message sent", "to", normalized, "message_id", parsed.SID)
	return Receipt{
		Sent:      true,
		Provider:  ProviderBridge,
		Recipient: normalized,
		MessageID: parsed.SID,
	}, nil
}

// SendTemplate is unsupported on the bridge backend.
func (s *BridgeSender) SendTemplate(ctx context.Context, to, templateName string, variables []string) (Receipt, error) {
	normalized := NormalizePhone(to, s.defaultCountryCode)
	if normalized == "" {
		return Receipt{Sent: false, Reason: ReasonMissingRecipient}, nil
	}
	return Receipt{Sent: false, Reason: ReasonTemplateUnsupported, Recipient: normalized}, nil
}

// VerifySignature always passes: the bridge has no signature scheme.
func (s *BridgeSender) VerifySignature(rawBody []byte, signatureHeader string) bool {
	return true
}

type bridgeAPIError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
}

func formatBridgeError(status int, body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return fmt.Sprintf("status %d", status)
	}
	var parsed bridgeAPIError
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Message != "" {
		if parsed.Code != 0 {
			return fmt.Sprintf("status %d code %d: %s", status, parsed.Code, parsed.Message)
		}
		return fmt.Sprintf("status %d: %s", status, parsed.Message)
	}
	return fmt.Sprintf("status %d: %s", status, trimmed)
}
