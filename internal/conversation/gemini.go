package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// ReplyClient produces a short generative reply for an inbound message. The
// bot treats it as best-effort decoration: any error falls through to the
// fixed per-intent template.
type ReplyClient interface {
	Reply(ctx context.Context, intent Intent, userText string) (string, error)
}

// GeminiReplyClient implements ReplyClient using Google's Gemini API.
type GeminiReplyClient struct {
	client  *genai.Client
	modelID string
}

// NewGeminiReplyClient creates a new Gemini reply client.
func NewGeminiReplyClient(ctx context.Context, apiKey, modelID string) (*GeminiReplyClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("conversation: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("conversation: failed to create gemini client: %w", err)
	}

	return &GeminiReplyClient{
		client:  client,
		modelID: modelID,
	}, nil
}

var _ ReplyClient = (*GeminiReplyClient)(nil)

// Close releases the underlying API client.
func (c *GeminiReplyClient) Close() error {
	return c.client.Close()
}

// Reply asks the model for a short, on-topic WhatsApp reply. The detected
// intent is passed in the prompt so the model stays on rails.
func (c *GeminiReplyClient) Reply(ctx context.Context, intent Intent, userText string) (string, error) {
	model := c.client.GenerativeModel(c.modelID)
	model.SetTemperature(0.3)
	model.SetMaxOutputTokens(120)
	model.SystemInstruction = genai.NewUserContent(genai.Text(strings.Join([]string{
		"You are a concise WhatsApp assistant for RAHMAN Restaurant.",
		"Reply in under 2 short sentences.",
		"If booking related, direct the user to the website reservation form or ask for date/time and guests.",
	}, "\n")))

	prompt := fmt.Sprintf("Detected intent: %s\nUser message: %s", intent, userText)
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("conversation: gemini completion failed: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return "", errors.New("conversation: gemini returned no candidates")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", errors.New("conversation: gemini returned empty content")
	}

	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	reply := strings.TrimSpace(b.String())
	if reply == "" {
		return "", errors.New("conversation: gemini returned no text parts")
	}
	return reply, nil
}
