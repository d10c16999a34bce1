package slackfs

import (
	"fmt"
)

// Input validation helpers

// ValidateNonce checks if a nonce has the correct size for a cipher
func ValidateNonce(nonce []byte, cipher CipherSuite) error {
	if nonce == nil {
		return &ValidationError{
			Field:   "nonce",
			Message: "nonce cannot be nil",
			Err:     ErrInvalidNonce,
		}
	}

	expectedSize := cipher.NonceSize()
	if expectedSize == 0 {
		return &ValidationError{
			Field:   "cipher",
			Value:   cipher,
			Message: "unsupported cipher suite for nonce validation",
			Err:     ErrUnsupportedCipher,
		}
	}

	if len(nonce) != expectedSize {
		return &ValidationError{
			Field:   "nonce",
			Value:   len(nonce),
			Message: fmt.Sprintf("invalid nonce size: got %d bytes, expected %d bytes for %s", len(nonce), expectedSize, cipher.String()),
			Err:     ErrInvalidNonce,
		}
	}

	return nil
}

// ValidateKey checks if a key has the correct size
func ValidateKey(key []byte, expectedSize int) error {
	if key == nil {
		return &ValidationError{
			Field:   "key",
			Message: "key cannot be nil",
			Err:     ErrInvalidKey,
		}
	}

	if len(key) != expectedSize {
		return &ValidationError{
			Field:   "key",
			Value:   len(key),
			Message: fmt.Sprintf("invalid key size: got %d bytes, expected %d bytes", len(key), expectedSize),
			Err:     ErrInvalidKey,
		}
	}

	return nil
}

// ValidateFilePath checks if a file path is valid (not empty)
func ValidateFilePath(path string) error {
	if path == "" {
		return &ValidationError{
			Field:   "path",
			Message: "file path cannot be empty",
		}
	}
	return nil
}

// ValidatePassword rejects empty passwords
func ValidatePassword(password string) error {
	if password == "" {
		return &ValidationError{
			Field:   "password",
			Message: "password cannot be empty",
			Err:     ErrEmptyPassword,
		}
	}
	return nil
}

// ValidateSlotID checks that an identifier can be stored as a chain pointer
func ValidateSlotID(id string) error {
	if id == "" {
		return &ValidationError{
			Field:   "slot_id",
			Message: "slot identifier cannot be empty",
		}
	}
	for i := 0; i < len(id); i++ {
		if id[i] == FragmentSeparator {
			return &ValidationError{
				Field:   "slot_id",
				Value:   id,
				Message: "slot identifier cannot contain the fragment separator",
			}
		}
	}
	return nil
}
