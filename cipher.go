package slackfs

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/chacha20"
)

// CipherEngine encrypts with a key and nonce fixed at construction. The
// stream ciphers are unauthenticated and Decrypt is the same keystream XOR;
// AES-SIV authenticates and may fail to decrypt.
type CipherEngine interface {
	// Encrypt encrypts plaintext with the engine's nonce
	Encrypt(plaintext []byte) ([]byte, error)

	// Decrypt decrypts ciphertext with the engine's nonce
	Decrypt(ciphertext []byte) ([]byte, error)

	// NonceSize returns the size of nonces in bytes
	NonceSize() int
}

// AESCTREngine implements CipherEngine using AES-256 in counter mode. The
// nonce is the full 128-bit initial counter block, incremented big-endian.
type AESCTREngine struct {
	block cipher.Block
	iv    []byte
}

// NewAESCTREngine creates a new AES-256-CTR cipher engine
func NewAESCTREngine(key, iv []byte) (*AESCTREngine, error) {
	if err := ValidateKey(key, KeySize); err != nil {
		return nil, err
	}
	if err := ValidateNonce(iv, CipherAES256CTR); err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	return &AESCTREngine{block: block, iv: append([]byte(nil), iv...)}, nil
}

// Encrypt encrypts plaintext using AES-256-CTR
func (e *AESCTREngine) Encrypt(plaintext []byte) ([]byte, error) {
	out := make([]byte, len(plaintext))
	cipher.NewCTR(e.block, e.iv).XORKeyStream(out, plaintext)
	return out, nil
}

// Decrypt decrypts ciphertext using AES-256-CTR
func (e *AESCTREngine) Decrypt(ciphertext []byte) ([]byte, error) {
	return e.Encrypt(ciphertext)
}

// NonceSize returns the counter block size for AES-CTR (16 bytes)
func (e *AESCTREngine) NonceSize() int {
	return aes.BlockSize
}

// ChaCha20Engine implements CipherEngine using the ChaCha20 stream cipher
type ChaCha20Engine struct {
	key   []byte
	nonce []byte
}

// NewChaCha20Engine creates a new ChaCha20 cipher engine
func NewChaCha20Engine(key, nonce []byte) (*ChaCha20Engine, error) {
	if err := ValidateKey(key, chacha20.KeySize); err != nil {
		return nil, err
	}
	if err := ValidateNonce(nonce, CipherChaCha20); err != nil {
		return nil, err
	}

	return &ChaCha20Engine{
		key:   append([]byte(nil), key...),
		nonce: append([]byte(nil), nonce...),
	}, nil
}

// Encrypt encrypts plaintext using ChaCha20
func (e *ChaCha20Engine) Encrypt(plaintext []byte) ([]byte, error) {
	stream, err := chacha20.NewUnauthenticatedCipher(e.key, e.nonce)
	if err != nil {
		return nil, fmt.Errorf("failed to create ChaCha20 cipher: %w", err)
	}
	out := make([]byte, len(plaintext))
	stream.XORKeyStream(out, plaintext)
	return out, nil
}

// Decrypt decrypts ciphertext using ChaCha20
func (e *ChaCha20Engine) Decrypt(ciphertext []byte) ([]byte, error) {
	return e.Encrypt(ciphertext)
}

// NonceSize returns the nonce size for ChaCha20 (12 bytes)
func (e *ChaCha20Engine) NonceSize() int {
	return chacha20.NonceSize
}

// NewCipherEngine creates a new cipher engine based on the cipher suite
func NewCipherEngine(suite CipherSuite, key, nonce []byte) (CipherEngine, error) {
	switch suite {
	case CipherAES256CTR:
		return NewAESCTREngine(key, nonce)
	case CipherChaCha20:
		return NewChaCha20Engine(key, nonce)
	case CipherAES256SIV:
		return NewAESSIVEngine(key, nonce)
	default:
		return nil, ErrUnsupportedCipher
	}
}

// GenerateNonce generates a random nonce for the given cipher
func GenerateNonce(suite CipherSuite) ([]byte, error) {
	nonceSize := suite.NonceSize()
	if nonceSize == 0 {
		return nil, ErrUnsupportedCipher
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return nonce, nil
}
