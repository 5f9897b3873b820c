package umessage

import (
	"fmt"

	errspkg "github.com/sachinkum0009/upgo/internal/runtime/errors"
	"github.com/sachinkum0009/upgo/internal/runtime/jsoncodec"
	"github.com/sachinkum0009/upgo/internal/runtime/uri"
)

// wireEnvelope is the substrate byte representation of a Message. The
// substrate itself only sees opaque bytes; this envelope is what a paired
// receiving transport inverts losslessly.
type wireEnvelope struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Sink   string `json:"sink,omitempty"`
	Kind   string `json:"kind"`
	Format string `json:"format"`
	Data   []byte `json:"data,omitempty"`
}

// MarshalWire serializes a validated message for substrate publication.
func MarshalWire(m Message) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	source, err := m.Source.TopicKey()
	if err != nil {
		return nil, err
	}

	env := wireEnvelope{
		ID:     m.ID,
		Source: source,
		Kind:   m.Kind.String(),
		Format: m.Payload.Format().String(),
		Data:   m.Payload.data,
	}
	if m.Sink != nil {
		sink, err := m.Sink.TopicKey()
		if err != nil {
			return nil, err
		}
		env.Sink = sink
	}

	return jsoncodec.Marshal(env)
}

// UnmarshalWire inverts MarshalWire. The reconstructed message carries the
// original envelope fields and payload variant.
func UnmarshalWire(data []byte) (Message, error) {
	var env wireEnvelope
	if err := jsoncodec.Unmarshal(data, &env); err != nil {
		return Message{}, fmt.Errorf("%w: undecodable envelope: %v", errspkg.ErrTransport, err)
	}

	kind, ok := kindFromString(env.Kind)
	if !ok {
		return Message{}, fmt.Errorf("%w: unknown kind %q", errspkg.ErrTransport, env.Kind)
	}
	format, ok := payloadFormatFromString(env.Format)
	if !ok {
		return Message{}, fmt.Errorf("%w: unknown payload format %q", errspkg.ErrTransport, env.Format)
	}

	source, err := uri.ParseTopicKey(env.Source)
	if err != nil {
		return Message{}, err
	}

	m := Message{
		ID:      env.ID,
		Source:  source,
		Payload: newPayload(format, env.Data),
		Kind:    kind,
	}
	if env.Sink != "" {
		sink, err := uri.ParseTopicKey(env.Sink)
		if err != nil {
			return Message{}, err
		}
		m.Sink = &sink
	}

	if err := m.Validate(); err != nil {
		return Message{}, err
	}
	return m, nil
}
