package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelMessages(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{"ErrInvalidAddress", ErrInvalidAddress, "upgo: invalid address"},
		{"ErrRegistration", ErrRegistration, "upgo: listener registration failed"},
		{"ErrNotFound", ErrNotFound, "upgo: listener not found"},
		{"ErrTransport", ErrTransport, "upgo: invalid message for transport"},
		{"ErrSend", ErrSend, "upgo: send failed"},
		{"ErrNotConnected", ErrNotConnected, "upgo: transport not connected"},
		{"ErrBuild", ErrBuild, "upgo: transport build failed"},
		{"ErrSubstrate", ErrSubstrate, "upgo: substrate failure"},
		{"ErrInvalidConfig", ErrInvalidConfig, "upgo: invalid configuration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestSubstrateErrorWrapping(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewSubstrateError("publish", cause)

	if !errors.Is(err, ErrSubstrate) {
		t.Fatal("expected SubstrateError to match ErrSubstrate")
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected SubstrateError to unwrap to the cause")
	}

	var se SubstrateError
	if !errors.As(err, &se) {
		t.Fatal("expected errors.As to extract SubstrateError")
	}
	if se.Op != "publish" {
		t.Fatalf("expected op %q, got %q", "publish", se.Op)
	}

	want := "upgo: substrate publish: connection refused"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestNewSubstrateErrorNil(t *testing.T) {
	if err := NewSubstrateError("subscribe", nil); err != nil {
		t.Fatalf("expected nil for nil cause, got %v", err)
	}
}

func TestSentinelsSurviveWrapping(t *testing.T) {
	wrapped := fmt.Errorf("%w: authority %q", ErrInvalidAddress, "")
	if !errors.Is(wrapped, ErrInvalidAddress) {
		t.Fatal("expected wrapped error to match sentinel")
	}
}
