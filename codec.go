package slackfs

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// Legacy key material of slackdisk stores. A codec built from these values
// reuses one nonce for every encryption under a given password, so two saves
// leak the XOR of their compressed plaintexts. Use GenerateCodecSecrets for a
// new deployment.
const (
	LegacySalt  = "378597a6c7ff3a099fbf4803624ee3051acdbf40"
	LegacyNonce = "6dbc100320476d4fc752289b136ba62b"
)

// DefaultCodecConfig returns the codec settings compatible with legacy
// slackdisk stores: PBKDF2-HMAC-SHA1 with 1000 iterations, zlib level 9 and
// AES-256-CTR under the legacy salt and nonce.
func DefaultCodecConfig() CodecConfig {
	return CodecConfig{
		Cipher:      CipherAES256CTR,
		Compression: CompressionZlib,
		KDF:         KDFPBKDF2,
		PBKDF2: PBKDF2Params{
			Iterations: LegacyPBKDF2Iterations,
			HashFunc:   SHA1,
			SaltSize:   32,
			KeySize:    KeySize,
		},
		Argon2id: Argon2idParams{
			Memory:      64 * 1024,
			Iterations:  3,
			Parallelism: 4,
			SaltSize:    32,
			KeySize:     KeySize,
		},
		Salt:  LegacySalt,
		Nonce: LegacyNonce,
	}
}

func (c *CodecConfig) nonceBytes() ([]byte, error) {
	nonce, err := hex.DecodeString(c.Nonce)
	if err != nil {
		return nil, &ValidationError{
			Field:   "nonce",
			Value:   c.Nonce,
			Message: "nonce must be hex encoded",
			Err:     err,
		}
	}
	return nonce, nil
}

// Codec turns payloads into the text-safe byte stream stored in a chain:
//
//	transportEncode(encrypt(deriveKey(password), compress(serialize(payload))))
//
// and back.
type Codec struct {
	config CodecConfig
	salt   []byte
	nonce  []byte
}

// NewCodec validates config and returns a codec bound to it
func NewCodec(config CodecConfig) (*Codec, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid codec config: %w", err)
	}
	nonce, err := config.nonceBytes()
	if err != nil {
		return nil, err
	}
	return &Codec{
		config: config,
		salt:   []byte(config.Salt),
		nonce:  nonce,
	}, nil
}

// Config returns the configuration the codec was built with
func (c *Codec) Config() CodecConfig {
	return c.config
}

// DeriveKey derives the cipher key for password, 256 bits for the stream
// ciphers and 512 for AES-SIV
func (c *Codec) DeriveKey(password string) ([]byte, error) {
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}
	provider, err := NewKeyProvider([]byte(password), c.config)
	if err != nil {
		return nil, err
	}
	key, err := provider.DeriveKey(c.salt)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	return key, nil
}

// Encrypt encrypts plaintext with key and the configured nonce
func (c *Codec) Encrypt(key, plaintext []byte) ([]byte, error) {
	engine, err := NewCipherEngine(c.config.Cipher, key, c.nonce)
	if err != nil {
		return nil, err
	}
	return engine.Encrypt(plaintext)
}

// Decrypt reverses Encrypt for the same key
func (c *Codec) Decrypt(key, ciphertext []byte) ([]byte, error) {
	engine, err := NewCipherEngine(c.config.Cipher, key, c.nonce)
	if err != nil {
		return nil, err
	}
	return engine.Decrypt(ciphertext)
}

// Compress compresses data with the configured algorithm
func (c *Codec) Compress(data []byte) ([]byte, error) {
	return Compress(data, c.config.Compression)
}

// Decompress reverses Compress
func (c *Codec) Decompress(data []byte) ([]byte, error) {
	return Decompress(data, c.config.Compression)
}

// TransportEncode encodes binary data as standard base64. Encoded streams
// hold no NUL, newline or ':' bytes.
func TransportEncode(data []byte) []byte {
	out := make([]byte, base64.StdEncoding.EncodedLen(len(data)))
	base64.StdEncoding.Encode(out, data)
	return out
}

// TransportDecode reverses TransportEncode
func TransportDecode(data []byte) ([]byte, error) {
	out := make([]byte, base64.StdEncoding.DecodedLen(len(data)))
	n, err := base64.StdEncoding.Decode(out, data)
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}

// EncodeBytes compresses, encrypts and transport-encodes a raw stream
func (c *Codec) EncodeBytes(stream []byte, password string) ([]byte, error) {
	key, err := c.DeriveKey(password)
	if err != nil {
		return nil, err
	}
	compressed, err := c.Compress(stream)
	if err != nil {
		return nil, err
	}
	ciphertext, err := c.Encrypt(key, compressed)
	if err != nil {
		return nil, err
	}
	return TransportEncode(ciphertext), nil
}

// DecodeBytes reverses EncodeBytes. A wrong password surfaces as
// ErrDecodeFailed from decryption under AES-SIV and from decompression
// otherwise; a stream cipher with CompressionNone cannot detect it here.
func (c *Codec) DecodeBytes(encoded []byte, password string) ([]byte, error) {
	key, err := c.DeriveKey(password)
	if err != nil {
		return nil, err
	}
	ciphertext, err := TransportDecode(encoded)
	if err != nil {
		return nil, newDecodeError("transport", err)
	}
	compressed, err := c.Decrypt(key, ciphertext)
	if err != nil {
		return nil, newDecodeError("decrypt", err)
	}
	stream, err := c.Decompress(compressed)
	if err != nil {
		return nil, newDecodeError("decompress", err)
	}
	return stream, nil
}

// Encode serializes payload and encodes it for storage
func (c *Codec) Encode(payload any, password string) ([]byte, error) {
	serialized, err := Serialize(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize payload: %w", err)
	}
	return c.EncodeBytes(serialized, password)
}

// Decode reverses Encode, deserializing into v
func (c *Codec) Decode(encoded []byte, password string, v any) error {
	serialized, err := c.DecodeBytes(encoded, password)
	if err != nil {
		return err
	}
	if err := Deserialize(serialized, v); err != nil {
		return newDecodeError("deserialize", err)
	}
	return nil
}
