package emergency

import (
	"strings"

	"github.com/medicare/hms/pkg/draft"
)

// Composer builds dispatch links. requireLocation selects between the
// strict variant, which rejects a dispatch without any location, and the
// permissive one, which substitutes FallbackLocation.
type Composer struct {
	recipient       string
	requireLocation bool
}

func NewComposer(recipient string, requireLocation bool) *Composer {
	if recipient == "" {
		recipient = DefaultRecipient
	}
	return &Composer{recipient: recipient, requireLocation: requireLocation}
}

// Compose validates the request and renders the WhatsApp deep link. The
// message body carries %0A line separators and per-field percent-encoding;
// the notes line appears only when notes were given.
func (c *Composer) Compose(req Request) (DispatchLink, error) {
	if strings.TrimSpace(req.Name) == "" {
		return DispatchLink{}, &draft.ValidationError{Field: "name"}
	}
	if strings.TrimSpace(req.Contact) == "" {
		return DispatchLink{}, &draft.ValidationError{Field: "contact"}
	}

	location := req.Location
	if location == "" {
		if c.requireLocation {
			return DispatchLink{}, &draft.ValidationError{Field: "location"}
		}
		location = FallbackLocation
	}

	var b strings.Builder
	b.WriteString("🚨 EMERGENCY AMBULANCE REQUEST 🚨%0A%0A")
	b.WriteString("Patient Name: " + encodeComponent(req.Name) + "%0A")
	b.WriteString("Contact Number: " + encodeComponent(req.Contact) + "%0A")
	b.WriteString("Pick-up Location: " + encodeComponent(location) + "%0A")
	if req.Notes != "" {
		b.WriteString("Additional Notes: " + encodeComponent(req.Notes))
	}
	b.WriteString("%0A%0APlease dispatch ambulance immediately!")

	message := b.String()
	return DispatchLink{
		Recipient: c.recipient,
		Message:   message,
		URL:       "https://wa.me/" + c.recipient + "?text=" + message,
	}, nil
}
