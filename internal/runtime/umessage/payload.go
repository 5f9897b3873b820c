// Package umessage defines the message envelope moved by the transports:
// a tagged payload plus the routing metadata (source, sink, kind, id).
// Values are immutable once constructed and freely shared.
package umessage

import (
	"slices"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// PayloadFormat tags what a payload's bytes contain, so a receiver can
// attempt extraction and get a defined miss instead of an error.
type PayloadFormat int

const (
	// FormatEmpty marks a payload with no data.
	FormatEmpty PayloadFormat = iota

	// FormatText marks a protobuf StringValue carrying text.
	FormatText

	// FormatRaw marks opaque application bytes.
	FormatRaw
)

func (f PayloadFormat) String() string {
	switch f {
	case FormatText:
		return "text"
	case FormatRaw:
		return "raw"
	default:
		return "empty"
	}
}

func payloadFormatFromString(s string) (PayloadFormat, bool) {
	switch s {
	case "empty", "":
		return FormatEmpty, true
	case "text":
		return FormatText, true
	case "raw":
		return FormatRaw, true
	default:
		return FormatEmpty, false
	}
}

// Payload is the immutable tagged union carried by a Message.
type Payload struct {
	format PayloadFormat
	data   []byte
}

// FromString wraps text in a protobuf StringValue so the text variant has a
// self-describing byte form on the wire.
func FromString(value string) Payload {
	data, err := proto.Marshal(wrapperspb.String(value))
	if err != nil {
		// A StringValue cannot fail to marshal; keep the tagged contract
		// intact if it ever does.
		return Payload{format: FormatRaw}
	}
	return Payload{format: FormatText, data: data}
}

// FromBytes wraps opaque bytes. The input is copied so later mutation by
// the caller cannot leak into a constructed payload.
func FromBytes(data []byte) Payload {
	return Payload{format: FormatRaw, data: slices.Clone(data)}
}

// Empty returns the payload used by messages with no data.
func Empty() Payload { return Payload{} }

func newPayload(format PayloadFormat, data []byte) Payload {
	return Payload{format: format, data: slices.Clone(data)}
}

// Format returns the payload's tag.
func (p Payload) Format() PayloadFormat { return p.format }

// IsEmpty reports whether the payload carries no data.
func (p Payload) IsEmpty() bool { return p.format == FormatEmpty }

// Data returns a copy of the payload bytes.
func (p Payload) Data() []byte { return slices.Clone(p.data) }

// ExtractString returns the text of a text-tagged payload. The second
// return is false when the payload is not text-tagged or cannot be decoded;
// a mismatch is a defined miss, never an error.
func (p Payload) ExtractString() (string, bool) {
	if p.format != FormatText {
		return "", false
	}
	var sv wrapperspb.StringValue
	if err := proto.Unmarshal(p.data, &sv); err != nil {
		return "", false
	}
	return sv.Value, true
}
