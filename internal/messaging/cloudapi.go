package messaging

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/rahmanrestaurant/tablebook/pkg/logging"
)

var cloudAPITracer = otel.Tracer("tablebook.internal.messaging.cloudapi")

const defaultGraphBaseURL = "https://graph.facebook.com"

// CloudAPIConfig carries the WhatsApp Business Cloud API credentials.
type CloudAPIConfig struct {
	AccessToken        string
	PhoneNumberID      string
	APIVersion         string
	AppSecret          string
	DefaultCountryCode string
	SendTimeout        time.Duration
	// BaseURL overrides the Graph API host, for tests.
	BaseURL string
}

// CloudAPISender posts WhatsApp messages through the Business Cloud API and
// verifies inbound webhook signatures with the app secret.
type CloudAPISender struct {
	accessToken        string
	phoneNumberID      string
	apiVersion         string
	appSecret          string
	defaultCountryCode string
	baseURL            string
	httpClient         *http.Client
	logger             *logging.Logger
}

// NewCloudAPISender builds a sender with sane defaults.
func NewCloudAPISender(cfg CloudAPIConfig, logger *logging.Logger) *CloudAPISender {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "v20.0"
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultGraphBaseURL
	}
	return &CloudAPISender{
		accessToken:        cfg.AccessToken,
		phoneNumberID:      cfg.PhoneNumberID,
		apiVersion:         cfg.APIVersion,
		appSecret:          cfg.AppSecret,
		defaultCountryCode: cfg.DefaultCountryCode,
		baseURL:            strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.SendTimeout,
		},
		logger: logger,
	}
}

var _ Sender = (*CloudAPISender)(nil)

func (s *CloudAPISender) Provider() string { return ProviderCloudAPI }

func (s *CloudAPISender) Enabled() bool { return true }

// SendText dispatches a single free-text message.
func (s *CloudAPISender) SendText(ctx context.Context, to, body string) (Receipt, error) {
	normalized := NormalizePhone(to, s.defaultCountryCode)
	if normalized == "" {
		return Receipt{Sent: false, Reason: ReasonMissingRecipient}, nil
	}

	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                WaID(normalized),
		"type":              "text",
		"text":              map[string]any{"body": body},
	}
	return s.post(ctx, "cloudapi.send_text", normalized, payload)
}

// SendTemplate dispatches a pre-approved template with ordered body variables.
func (s *CloudAPISender) SendTemplate(ctx context.Context, to, templateName string, variables []string) (Receipt, error) {
	normalized := NormalizePhone(to, s.defaultCountryCode)
	if normalized == "" {
		return Receipt{Sent: false, Reason: ReasonMissingRecipient}, nil
	}

	parameters := make([]map[string]any, 0, len(variables))
	for _, value := range variables {
		parameters = append(parameters, map[string]any{"type": "text", "text": value})
	}
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                WaID(normalized),
		"type":              "template",
		"template": map[string]any{
			"name":     templateName,
			"language": map[string]any{"code": "en_US"},
			"components": []map[string]any{
				{"type": "body", "parameters": parameters},
			},
		},
	}
	return s.post(ctx, "cloudapi.send_template", normalized, payload)
}

func (s *CloudAPISender) post(ctx context.Context, spanName, recipient string, payload map[string]any) (Receipt, error) {
	ctx, span := cloudAPITracer.Start(ctx, spanName)
	defer span.End()
	span.SetAttributes(attribute.String("tablebook.recipient", recipient))

	body, err := json.Marshal(payload)
	if err != nil {
		span.RecordError(err)
		return Receipt{}, fmt.Errorf("messaging: marshal cloud api payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/%s/messages", s.baseURL, s.apiVersion, s.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		span.RecordError(err)
		return Receipt{}, fmt.Errorf("messaging: build cloud api request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return Receipt{}, fmt.Errorf("messaging: cloud api request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("messaging: cloud api send failed: %s", formatGraphError(resp.StatusCode, respBody))
		span.RecordError(err)
		return Receipt{}, err
	}

	var parsed struct {
		Messages []struct {
			ID string `json:"id"`
		} `json:"messages"`
	}
	var messageID string
	if err := json.Unmarshal(respBody, &parsed); err == nil && len(parsed.Messages) > 0 {
		messageID = parsed.Messages[0].ID
	}

	s.logger.Info("whatsapp cloud api message sent", "to", recipient, "message_id", messageID)
	return Receipt{
		Sent:      true,
		Provider:  ProviderCloudAPI,
		Recipient: recipient,
		MessageID: messageID,
	}, nil
}

// VerifySignature checks the X-Hub-Signature-256 header against an
// HMAC-SHA256 digest of the raw body. With no app secret configured the check
// passes; with a secret, missing body or header fails closed.
func (s *CloudAPISender) VerifySignature(rawBody []byte, signatureHeader string) bool {
	if s.appSecret == "" {
		return true
	}
	if len(rawBody) == 0 || signatureHeader == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(s.appSecret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))

	provided := strings.TrimSpace(strings.TrimPrefix(signatureHeader, "sha256="))
	return hmac.Equal([]byte(expected), []byte(provided))
}

type graphAPIError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func formatGraphError(status int, body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return fmt.Sprintf("status %d", status)
	}
	var parsed graphAPIError
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		if parsed.Error.Code != 0 {
			return fmt.Sprintf("status %d code %d: %s", status, parsed.Error.Code, parsed.Error.Message)
		}
		return fmt.Sprintf("status %d: %s", status, parsed.Error.Message)
	}
	return fmt.Sprintf("status %d: %s", status, trimmed)
}
