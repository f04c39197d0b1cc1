package messaging

import (
	"encoding/json"
	"fmt"
	"strings"
)

// CloudWebhookPayload is the envelope the cloud API delivers to the webhook:
// entry -> changes -> value -> messages.
type CloudWebhookPayload struct {
	Entry []CloudWebhookEntry `json:"entry"`
}

type CloudWebhookEntry struct {
	Changes []CloudWebhookChange `json:"changes"`
}

type CloudWebhookChange struct {
	Value CloudWebhookValue `json:"value"`
}

type CloudWebhookValue struct {
	Messages []CloudInboundMessage `json:"messages"`
}

// CloudInboundMessage is one inbound message, discriminated by Type.
type CloudInboundMessage struct {
	From        string `json:"from"`
	Type        string `json:"type"`
	Text        *struct {
		Body string `json:"body"`
	} `json:"text,omitempty"`
	Button      *struct {
		Text string `json:"text"`
	} `json:"button,omitempty"`
	Interactive *struct {
		ButtonReply *struct {
			Title string `json:"title"`
		} `json:"button_reply,omitempty"`
		ListReply *struct {
			Title string `json:"title"`
		} `json:"list_reply,omitempty"`
	} `json:"interactive,omitempty"`
}

// ParseCloudWebhook decodes a raw cloud API webhook body.
func ParseCloudWebhook(rawBody []byte) (*CloudWebhookPayload, error) {
	var payload CloudWebhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return nil, fmt.Errorf("messaging: parse cloud webhook: %w", err)
	}
	return &payload, nil
}

// Flatten returns every inbound message across all entries and changes.
func (p *CloudWebhookPayload) Flatten() []CloudInboundMessage {
	var out []CloudInboundMessage
	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			out = append(out, change.Value.Messages...)
		}
	}
	return out
}

// Body extracts the human-readable text by the message's type discriminator.
// Unknown types yield "".
func (m CloudInboundMessage) Body() string {
	switch m.Type {
	case "text":
		if m.Text != nil {
			return strings.TrimSpace(m.Text.Body)
		}
	case "button":
		if m.Button != nil {
			return strings.TrimSpace(m.Button.Text)
		}
	case "interactive":
		if m.Interactive != nil {
			if m.Interactive.ButtonReply != nil {
				return strings.TrimSpace(m.Interactive.ButtonReply.Title)
			}
			if m.Interactive.ListReply != nil {
				return strings.TrimSpace(m.Interactive.ListReply.Title)
			}
		}
	}
	return ""
}
