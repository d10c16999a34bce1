package slackfs

import (
	"errors"
	"fmt"
	"testing"
)

func TestValidationError(t *testing.T) {
	tests := []struct {
		name    string
		err     *ValidationError
		wantMsg string
	}{
		{
			name: "with field",
			err: &ValidationError{
				Field:   "min_idle_days",
				Value:   -1,
				Message: "cannot be negative",
			},
			wantMsg: "validation error: min_idle_days: cannot be negative",
		},
		{
			name: "without field",
			err: &ValidationError{
				Message: "invalid configuration",
			},
			wantMsg: "validation error: invalid configuration",
		},
		{
			name: "with wrapped error",
			err: &ValidationError{
				Field:   "nonce",
				Message: "invalid nonce",
				Err:     ErrInvalidNonce,
			},
			wantMsg: "validation error: nonce: invalid nonce",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("ValidationError.Error() = %q, want %q", got, tt.wantMsg)
			}
			if tt.err.Err != nil && !errors.Is(tt.err, tt.err.Err) {
				t.Errorf("ValidationError should unwrap to %v", tt.err.Err)
			}
		})
	}
}

func TestCapacityError(t *testing.T) {
	err := &CapacityError{Slot: "/c", Remaining: 12, Message: "no unused slot left"}
	if got := err.Error(); got != "capacity error: /c: no unused slot left (12 bytes unplaced)" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, ErrInsufficientCapacity) {
		t.Error("CapacityError should match ErrInsufficientCapacity")
	}
	if errors.Is(err, ErrStoreUnavailable) {
		t.Error("only an unavailable store matches ErrStoreUnavailable")
	}

	unavailable := &CapacityError{Message: "index has no usable slots", Unavailable: true}
	if !errors.Is(unavailable, ErrStoreUnavailable) || !errors.Is(unavailable, ErrInsufficientCapacity) {
		t.Error("unavailable store should match both sentinels")
	}
	if got := unavailable.Error(); got != "capacity error: index has no usable slots" {
		t.Errorf("Error() = %q", got)
	}
}

func TestChainError(t *testing.T) {
	tests := []struct {
		err     *ChainError
		wantMsg string
	}{
		{&ChainError{Slot: "/a", Pointer: "42", Message: "pointer not in index"}, `chain error: /a -> "42": pointer not in index`},
		{&ChainError{Slot: "/a", Message: "chain revisits slot"}, "chain error: /a: chain revisits slot"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.wantMsg {
			t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
		}
		if !IsBrokenChain(tt.err) {
			t.Error("ChainError should match ErrBrokenChain")
		}
	}
}

func TestDecodeError(t *testing.T) {
	base := errors.New("zlib: invalid header")
	err := newDecodeError("decompress", base)

	if got := err.Error(); got != "decode error: decompress: zlib: invalid header" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, base) {
		t.Error("DecodeError should unwrap to the underlying error")
	}
	if !IsDecodeFailed(fmt.Errorf("load: %w", err)) {
		t.Error("wrapped DecodeError should match ErrDecodeFailed")
	}
}

func TestAccessorError(t *testing.T) {
	base := errors.New("exit status 1")

	err := NewAccessorError("write", "/bin/ls", base)
	if got := err.Error(); got != "accessor error: write /bin/ls: exit status 1" {
		t.Errorf("Error() = %q", got)
	}
	if !IsAccessorFailure(err) || !errors.Is(err, base) {
		t.Error("AccessorError should match ErrAccessorFailure and its cause")
	}

	// already an accessor failure: returned as is
	if again := NewAccessorError("capacity", "/other", err); again != err {
		t.Errorf("NewAccessorError rewrapped an accessor error: %v", again)
	}

	notFound := &AccessorError{Operation: "stat", Path: "/gone", Err: ErrNotFound}
	if !errors.Is(notFound, ErrNotFound) {
		t.Error("missing slot should match ErrNotFound")
	}

	noPath := &AccessorError{Operation: "enumerate", Err: base}
	if got := noPath.Error(); got != "accessor error: enumerate: exit status 1" {
		t.Errorf("Error() = %q", got)
	}
}

func TestErrorCheckers(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		want  bool
	}{
		{"validation", NewValidationError("f", 1, "bad"), IsValidationError, true},
		{"validation plain", errors.New("x"), IsValidationError, false},
		{"capacity", &CapacityError{Message: "full"}, IsInsufficientCapacity, true},
		{"capacity plain", ErrBrokenChain, IsInsufficientCapacity, false},
		{"chain", &ChainError{Slot: "/a"}, IsBrokenChain, true},
		{"decode", &DecodeError{Stage: "decrypt"}, IsDecodeFailed, true},
		{"decode plain", ErrAccessorFailure, IsDecodeFailed, false},
		{"accessor", &AccessorError{Operation: "read"}, IsAccessorFailure, true},
		{"nil", nil, IsAccessorFailure, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.check(tt.err); got != tt.want {
				t.Errorf("checker(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
