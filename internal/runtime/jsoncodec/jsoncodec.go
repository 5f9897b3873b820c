// Package jsoncodec centralises JSON encoding for upgo. The wire envelope
// and any caller-facing helpers go through sonic configured for standard
// library compatibility.
package jsoncodec

import (
	"io"

	"github.com/bytedance/sonic"
)

var codec = sonic.ConfigStd

func Marshal(v any) ([]byte, error) {
	return codec.Marshal(v)
}

func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return codec.MarshalIndent(v, prefix, indent)
}

func Unmarshal(data []byte, v any) error {
	return codec.Unmarshal(data, v)
}

func Encode(w io.Writer, v any) error {
	return codec.NewEncoder(w).Encode(v)
}

func Decode(r io.Reader, v any) error {
	return codec.NewDecoder(r).Decode(v)
}
