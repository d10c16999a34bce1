package slackfs

import (
	"errors"
	"fmt"
)

// Error types represent the failure categories of the slack store

// Sentinel errors. The structured error types below report errors.Is
// against the matching sentinel.
var (
	ErrInsufficientCapacity = errors.New("insufficient slack capacity")
	ErrStoreUnavailable     = errors.New("slack store unavailable: index has no usable slots")
	ErrBrokenChain          = errors.New("broken slot chain")
	ErrDecodeFailed         = errors.New("decode failed - wrong password or corrupted chain")
	ErrNotFound             = errors.New("slot not found")
	ErrAccessorFailure      = errors.New("slot accessor failure")

	ErrNotDir   = errors.New("not a directory")
	ErrIsDir    = errors.New("is a directory")
	ErrNotEmpty = errors.New("directory not empty")

	ErrAuthFailed    = errors.New("authentication failed")
	ErrInvalidKey    = errors.New("invalid encryption key")
	ErrInvalidNonce  = errors.New("invalid nonce")
	ErrNilConfig     = errors.New("config cannot be nil")
	ErrNilAccessor   = errors.New("slot accessor cannot be nil")
	ErrNilIndex      = errors.New("slot index cannot be nil")
	ErrEmptyPassword = errors.New("password cannot be empty")

	ErrUnsupportedCipher      = errors.New("unsupported cipher suite")
	ErrUnsupportedCompression = errors.New("unsupported compression")
	ErrUnsupportedKDF         = errors.New("unsupported key derivation function")
)

// ValidationError represents a configuration or parameter validation error
type ValidationError struct {
	Field   string // The field or parameter that failed validation
	Value   any    // The invalid value
	Message string // Human-readable error message
	Err     error  // Underlying error, if any
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// CapacityError reports that a stream does not fit in the slots that are
// left. Slot is the slot the chain stopped at.
type CapacityError struct {
	Slot      string // Slot path where the chain could not continue
	Remaining int    // Bytes of the stream still unplaced
	Message   string // Human-readable error message

	// Unavailable is set when the index had no usable slots at all.
	Unavailable bool
}

func (e *CapacityError) Error() string {
	if e.Slot != "" {
		return fmt.Sprintf("capacity error: %s: %s (%d bytes unplaced)", e.Slot, e.Message, e.Remaining)
	}
	return fmt.Sprintf("capacity error: %s", e.Message)
}

func (e *CapacityError) Is(target error) bool {
	if e.Unavailable && target == ErrStoreUnavailable {
		return true
	}
	return target == ErrInsufficientCapacity
}

// ChainError reports a chain that cannot be followed: a pointer missing from
// the index, a fragment without separator, or a revisited slot.
type ChainError struct {
	Slot    string // Slot path whose fragment was being processed
	Pointer string // Offending pointer, if any
	Message string // Human-readable error message
}

func (e *ChainError) Error() string {
	if e.Pointer != "" {
		return fmt.Sprintf("chain error: %s -> %q: %s", e.Slot, e.Pointer, e.Message)
	}
	return fmt.Sprintf("chain error: %s: %s", e.Slot, e.Message)
}

func (e *ChainError) Is(target error) bool {
	return target == ErrBrokenChain
}

// DecodeError represents a failure to turn a stored stream back into a
// payload. It cannot tell a wrong password from a corrupted chain.
type DecodeError struct {
	Stage string // "transport", "decrypt", "decompress" or "deserialize"
	Err   error  // Underlying error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode error: %s: %v", e.Stage, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func (e *DecodeError) Is(target error) bool {
	return target == ErrDecodeFailed
}

// AccessorError represents an I/O failure reported by a SlotAccessor
type AccessorError struct {
	Operation string // "enumerate", "metadata", "capacity", "read", "write" or "wipe"
	Path      string // Slot path, if applicable
	Err       error  // Underlying error
}

func (e *AccessorError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("accessor error: %s %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("accessor error: %s: %v", e.Operation, e.Err)
}

func (e *AccessorError) Unwrap() error {
	return e.Err
}

func (e *AccessorError) Is(target error) bool {
	return target == ErrAccessorFailure
}

// Helper functions for creating structured errors

// NewValidationError creates a new validation error
func NewValidationError(field string, value any, message string) error {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// NewAccessorError wraps err as an accessor failure. Errors that already are
// accessor failures are returned unchanged.
func NewAccessorError(operation, path string, err error) error {
	var ae *AccessorError
	if errors.As(err, &ae) {
		return err
	}
	return &AccessorError{
		Operation: operation,
		Path:      path,
		Err:       err,
	}
}

func newDecodeError(stage string, err error) error {
	return &DecodeError{Stage: stage, Err: err}
}

// Error checking helpers

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsInsufficientCapacity checks if an error reports an exhausted slot pool
func IsInsufficientCapacity(err error) bool {
	return errors.Is(err, ErrInsufficientCapacity)
}

// IsBrokenChain checks if an error reports an unreadable chain
func IsBrokenChain(err error) bool {
	return errors.Is(err, ErrBrokenChain)
}

// IsDecodeFailed checks if an error is a decode failure
func IsDecodeFailed(err error) bool {
	return errors.Is(err, ErrDecodeFailed)
}

// IsAccessorFailure checks if an error came from the slot accessor
func IsAccessorFailure(err error) bool {
	return errors.Is(err, ErrAccessorFailure)
}
