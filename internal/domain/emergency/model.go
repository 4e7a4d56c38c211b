// Package emergency composes ambulance dispatch requests as WhatsApp
// deep links. Nothing is persisted and no session is required: the link is
// handed to the caller, who opens it in a messaging client.
package emergency

import (
	"net/url"
	"strings"
)

// DefaultRecipient is the dispatch desk's WhatsApp number in international
// digits-only format.
const DefaultRecipient = "919395072164"

// FallbackLocation is substituted when dispatch is allowed without a
// pick-up location.
const FallbackLocation = "Location not specified"

// Request carries the dispatch form's values. Location may be a picked
// address, raw coordinates, or free text.
type Request struct {
	Name     string `json:"name"`
	Contact  string `json:"contact"`
	Location string `json:"location"`
	Notes    string `json:"notes"`
}

// DispatchLink is a ready-to-open WhatsApp deep link plus its parts, so a
// client can render the message before opening it.
type DispatchLink struct {
	Recipient string `json:"recipient"`
	Message   string `json:"message"`
	URL       string `json:"url"`
}

// encodeComponent percent-encodes a message fragment the way a browser's
// encodeURIComponent does: spaces become %20, never +.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
