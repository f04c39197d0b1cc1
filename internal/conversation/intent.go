package conversation

import "regexp"

// Intent is the coarse category assigned to an inbound message.
type Intent string

const (
	IntentReservation  Intent = "reservation"
	IntentMenu         Intent = "menu"
	IntentGreeting     Intent = "greeting"
	IntentConfirmation Intent = "confirmation"
	IntentHelp         Intent = "help"
	IntentFallback     Intent = "fallback"
)

// Patterns are evaluated in order; the first match wins. Order matters
// because keywords overlap ("check my reservation status" matches both
// reservation and confirmation).
var intentPatterns = []struct {
	intent  Intent
	pattern *regexp.Regexp
}{
	{IntentReservation, regexp.MustCompile(`(?i)book|reserve|reservation|table`)},
	{IntentMenu, regexp.MustCompile(`(?i)menu|dish|food|item|price`)},
	{IntentGreeting, regexp.MustCompile(`(?i)hello|hi|hey|start`)},
	{IntentConfirmation, regexp.MustCompile(`(?i)confirm|status|check`)},
	{IntentHelp, regexp.MustCompile(`(?i)help|support`)},
}

// DetectIntent classifies free text into a fixed intent, deterministically
// and case-insensitively.
func DetectIntent(text string) Intent {
	for _, candidate := range intentPatterns {
		if candidate.pattern.MatchString(text) {
			return candidate.intent
		}
	}
	return IntentFallback
}

// DefaultReply returns the fixed template reply for an intent. Used whenever
// the generative path is disabled or fails.
func DefaultReply(intent Intent) string {
	switch intent {
	case IntentGreeting:
		return "Welcome to RAHMAN Restaurant! You can book a table, ask for menu highlights, or check a reservation."
	case IntentReservation:
		return "For instant booking, use our website reservation form. Share your preferred date/time, guests, and we can guide you."
	case IntentMenu:
		return "Today's popular items include Butter Chicken, Tandoori Chicken, and Chana Masala. Want veg or non-veg suggestions?"
	case IntentConfirmation:
		return "Please share your name and reservation date/time, and our team will confirm availability."
	case IntentHelp:
		return "Type BOOK TABLE, MENU, or STATUS. You can also call us directly for urgent support."
	default:
		return "I can help with table bookings, menu queries, and reservation confirmations. Type HELP to see options."
	}
}
