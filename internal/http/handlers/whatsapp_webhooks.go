package handlers

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rahmanrestaurant/tablebook/internal/conversation"
	"github.com/rahmanrestaurant/tablebook/internal/messaging"
	"github.com/rahmanrestaurant/tablebook/internal/observability/metrics"
	"github.com/rahmanrestaurant/tablebook/pkg/logging"
)

const (
	bridgeEmptyResponse = `<Response></Response>`
	bridgeErrorResponse = `<Response><Message>Temporary issue. Please retry later.</Message></Response>`
)

// WhatsAppWebhookHandler processes inbound WhatsApp traffic: the cloud API
// verification handshake and message deliveries, plus the form-encoded
// telephony bridge callback.
type WhatsAppWebhookHandler struct {
	sender             messaging.Sender
	bot                *conversation.Bot
	verifyToken        string
	defaultCountryCode string
	metrics            *metrics.BookingMetrics
	logger             *logging.Logger
}

// WhatsAppWebhookConfig carries the webhook wiring.
type WhatsAppWebhookConfig struct {
	Sender             messaging.Sender
	Bot                *conversation.Bot
	VerifyToken        string
	DefaultCountryCode string
	Metrics            *metrics.BookingMetrics
	Logger             *logging.Logger
}

func NewWhatsAppWebhookHandler(cfg WhatsAppWebhookConfig) *WhatsAppWebhookHandler {
	if cfg.Sender == nil {
		panic("handlers: sender is required")
	}
	if cfg.Bot == nil {
		panic("handlers: bot is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &WhatsAppWebhookHandler{
		sender:             cfg.Sender,
		bot:                cfg.Bot,
		verifyToken:        cfg.VerifyToken,
		defaultCountryCode: cfg.DefaultCountryCode,
		metrics:            cfg.Metrics,
		logger:             cfg.Logger,
	}
}

// Verify answers the cloud API subscription handshake.
// GET /api/whatsapp/webhook
func (h *WhatsAppWebhookHandler) Verify(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	mode := query.Get("hub.mode")
	token := query.Get("hub.verify_token")
	challenge := query.Get("hub.challenge")

	if mode == "subscribe" && h.verifyToken != "" && token == h.verifyToken {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(challenge))
		return
	}
	h.metrics.ObserveInbound(messaging.ProviderCloudAPI, "verify-rejected")
	jsonError(w, "Webhook verification failed", http.StatusForbidden)
}

// HandleCloudAPI processes cloud API message deliveries. The signature is
// checked against the raw body before any parsing.
// POST /api/whatsapp/webhook
func (h *WhatsAppWebhookHandler) HandleCloudAPI(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		jsonError(w, "failed to read body", http.StatusBadRequest)
		return
	}

	if !h.sender.VerifySignature(rawBody, r.Header.Get("X-Hub-Signature-256")) {
		h.metrics.ObserveInbound(messaging.ProviderCloudAPI, "rejected")
		jsonError(w, "Invalid webhook signature", http.StatusUnauthorized)
		return
	}

	payload, err := messaging.ParseCloudWebhook(rawBody)
	if err != nil {
		h.metrics.ObserveInbound(messaging.ProviderCloudAPI, "malformed")
		jsonError(w, "invalid webhook payload", http.StatusBadRequest)
		return
	}

	processed := 0
	for _, msg := range payload.Flatten() {
		from := messaging.NormalizePhone(msg.From, h.defaultCountryCode)
		text := msg.Body()
		if from == "" || text == "" {
			continue
		}
		if err := h.respond(r, from, text); err != nil {
			h.logger.Error("cloud api reply failed", "error", err)
			continue
		}
		processed++
	}

	h.metrics.ObserveInbound(messaging.ProviderCloudAPI, "processed")
	h.metrics.ObserveWebhookLatency(messaging.ProviderCloudAPI, time.Since(start).Seconds())
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "processedMessages": processed})
}

// HandleBridge processes the telephony bridge form callback. The reply to the
// customer goes out through the sender; the HTTP response is always the empty
// XML envelope so the vendor does not echo a second message.
// POST /api/whatsapp/bridge
func (h *WhatsAppWebhookHandler) HandleBridge(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if err := r.ParseForm(); err != nil {
		h.metrics.ObserveInbound(messaging.ProviderBridge, "malformed")
		writeBridgeXML(w, http.StatusInternalServerError, bridgeErrorResponse)
		return
	}

	fromRaw := strings.TrimPrefix(strings.TrimSpace(r.PostFormValue("From")), "whatsapp:")
	from := messaging.NormalizePhone(fromRaw, h.defaultCountryCode)
	text := strings.TrimSpace(r.PostFormValue("Body"))

	if from != "" && text != "" {
		if err := h.respond(r, from, text); err != nil {
			h.logger.Error("bridge reply failed", "error", err)
			h.metrics.ObserveInbound(messaging.ProviderBridge, "error")
			writeBridgeXML(w, http.StatusInternalServerError, bridgeErrorResponse)
			return
		}
	}

	h.metrics.ObserveInbound(messaging.ProviderBridge, "processed")
	h.metrics.ObserveWebhookLatency(messaging.ProviderBridge, time.Since(start).Seconds())
	writeBridgeXML(w, http.StatusOK, bridgeEmptyResponse)
}

func (h *WhatsAppWebhookHandler) respond(r *http.Request, from, text string) error {
	reply, _ := h.bot.Reply(r.Context(), from, text)
	_, err := h.sender.SendText(r.Context(), from, reply)
	return err
}

func writeBridgeXML(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
