package umessage

import (
	"fmt"

	errspkg "github.com/sachinkum0009/upgo/internal/runtime/errors"
	idspkg "github.com/sachinkum0009/upgo/internal/runtime/ids"
	"github.com/sachinkum0009/upgo/internal/runtime/uri"
)

// Kind distinguishes how a message is routed and what its envelope must
// carry.
type Kind int

const (
	KindUnspecified Kind = iota

	// KindPublish is broadcast by topic: no sink, delivered to whoever
	// subscribed to the source address.
	KindPublish

	// KindNotification is point-to-point: the sink names the target entity.
	KindNotification

	// KindDisconnect is the distinguished transport notice broadcast to
	// local listeners when the network session is lost.
	KindDisconnect
)

func (k Kind) String() string {
	switch k {
	case KindPublish:
		return "publish"
	case KindNotification:
		return "notification"
	case KindDisconnect:
		return "disconnect"
	default:
		return "unspecified"
	}
}

func kindFromString(s string) (Kind, bool) {
	switch s {
	case "publish":
		return KindPublish, true
	case "notification":
		return KindNotification, true
	case "disconnect":
		return KindDisconnect, true
	default:
		return KindUnspecified, false
	}
}

// Message is the envelope handed to Transport.Send and delivered to
// listeners. IDs are monotonic ULIDs, unique per send.
type Message struct {
	ID      string
	Source  uri.UUri
	Sink    *uri.UUri
	Payload Payload
	Kind    Kind
}

// NewPublish builds a broadcast message originating at source.
func NewPublish(source uri.UUri, payload Payload) Message {
	return Message{
		ID:      idspkg.New(),
		Source:  source,
		Payload: payload,
		Kind:    KindPublish,
	}
}

// NewNotification builds a point-to-point message from source to sink.
func NewNotification(source, sink uri.UUri, payload Payload) Message {
	s := sink
	return Message{
		ID:      idspkg.New(),
		Source:  source,
		Sink:    &s,
		Payload: payload,
		Kind:    KindNotification,
	}
}

// NewDisconnect builds the session-loss notice for an authority. It never
// crosses the wire; transports broadcast it locally.
func NewDisconnect(authority string) Message {
	return Message{
		ID:     idspkg.New(),
		Source: uri.UUri{Authority: authority},
		Kind:   KindDisconnect,
	}
}

// Validate applies the envelope invariants before a message enters any
// delivery path.
func (m Message) Validate() error {
	if m.Source == (uri.UUri{}) {
		return fmt.Errorf("%w: missing source", errspkg.ErrTransport)
	}
	if err := m.Source.Validate(); err != nil {
		return fmt.Errorf("%w: %v", errspkg.ErrTransport, err)
	}
	if m.Source.HasWildcard() {
		return fmt.Errorf("%w: source must be concrete", errspkg.ErrTransport)
	}

	switch m.Kind {
	case KindPublish:
		if m.Sink != nil {
			return fmt.Errorf("%w: publish must not carry a sink", errspkg.ErrTransport)
		}
	case KindNotification:
		if m.Sink == nil {
			return fmt.Errorf("%w: notification requires a sink", errspkg.ErrTransport)
		}
		if m.Sink.HasWildcard() {
			return fmt.Errorf("%w: sink must be concrete", errspkg.ErrTransport)
		}
	case KindDisconnect:
		// Local notice, no further envelope constraints.
	default:
		return fmt.Errorf("%w: unspecified kind", errspkg.ErrTransport)
	}
	return nil
}

// RoutingKey is the address listener patterns are matched against. It is
// the source for every kind: subscribers address the topic a message
// originates from, while the sink only identifies the target entity inside
// the envelope.
func (m Message) RoutingKey() uri.UUri { return m.Source }
