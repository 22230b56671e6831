// Package telegram models the Telegram Mini App host: the optional capabilities
// a host SDK may expose, initData signature checks and the verification
// endpoint the Mini App posts shared contacts to.
package telegram

import "context"

// ContactStatusSent marks a contact event that carries delivered phone data.
const ContactStatusSent = "sent"

// ContactAuthData is the payload delivered with a shared contact. Response is
// the signed query string returned by the host, when available.
type ContactAuthData struct {
	PhoneNumber string `json:"phone_number"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	UserID      int64  `json:"user_id,omitempty"`
	Response    string `json:"response,omitempty"`
}

// ContactEvent is emitted by the host after a contact request was accepted.
type ContactEvent struct {
	Status   string          `json:"status"`
	AuthData ContactAuthData `json:"auth_data"`
}

// Host is any host SDK handle. Its capabilities are discovered through the
// optional interfaces below.
type Host any

// ContactRequester asks the user to share their contact. RequestContact
// blocks until the user accepts or declines; the phone number itself arrives
// later as a ContactEvent. The returned release func unregisters the handler.
type ContactRequester interface {
	RequestContact(ctx context.Context) (shared bool, err error)
	SubscribeContact(handler func(ContactEvent)) (release func())
}

// PhoneSharer returns the phone number directly.
type PhoneSharer interface {
	SharePhone(ctx context.Context) (string, error)
}

// DataSender forwards a serialized payload to the bot backend.
type DataSender interface {
	SendData(ctx context.Context, payload []byte) error
}

// InitDataProvider exposes a phone number pre-shared through initData.
type InitDataProvider interface {
	InitDataPhone() string
}

// Capability is the phone acquisition route a host supports.
type Capability int

const (
	CapabilityUnavailable Capability = iota
	CapabilityContactRequest
	CapabilityDirectShare
	CapabilityUnsupported
)

func (c Capability) String() string {
	switch c {
	case CapabilityContactRequest:
		return "contact_request"
	case CapabilityDirectShare:
		return "direct_share"
	case CapabilityUnsupported:
		return "unsupported"
	default:
		return "unavailable"
	}
}

// Detect picks the phone acquisition route once, in priority order: contact
// request, then direct share. A nil host is unavailable.
func Detect(host Host) Capability {
	if host == nil {
		return CapabilityUnavailable
	}
	if _, ok := host.(ContactRequester); ok {
		return CapabilityContactRequest
	}
	if _, ok := host.(PhoneSharer); ok {
		return CapabilityDirectShare
	}
	return CapabilityUnsupported
}
