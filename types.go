package slackfs

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"

	"github.com/sirupsen/logrus"
)

// CipherSuite represents the stream cipher used to encrypt the payload
type CipherSuite uint8

const (
	// CipherAES256CTR uses AES-256 in counter mode with a 16-byte initial counter
	CipherAES256CTR CipherSuite = iota
	// CipherChaCha20 uses the ChaCha20 stream cipher with a 12-byte nonce
	CipherChaCha20
	// CipherAES256SIV uses AES-SIV with a 64-byte key, authenticating a
	// 16-byte nonce as associated data
	CipherAES256SIV
)

// String returns the string representation of the cipher suite
func (c CipherSuite) String() string {
	switch c {
	case CipherAES256CTR:
		return "aes-256-ctr"
	case CipherChaCha20:
		return "chacha20"
	case CipherAES256SIV:
		return "aes-256-siv"
	default:
		return "unknown"
	}
}

// NonceSize returns the nonce length the cipher expects
func (c CipherSuite) NonceSize() int {
	switch c {
	case CipherAES256CTR, CipherAES256SIV:
		return 16
	case CipherChaCha20:
		return 12
	default:
		return 0
	}
}

// KeySize returns the key length the cipher expects
func (c CipherSuite) KeySize() int {
	if c == CipherAES256SIV {
		return 2 * KeySize
	}
	return KeySize
}

// ParseCipherSuite parses a cipher suite from its string representation
func ParseCipherSuite(name string) (CipherSuite, error) {
	switch name {
	case "aes-256-ctr", "aes":
		return CipherAES256CTR, nil
	case "chacha20":
		return CipherChaCha20, nil
	case "aes-256-siv", "siv":
		return CipherAES256SIV, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedCipher, name)
	}
}

func (c CipherSuite) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *CipherSuite) UnmarshalText(text []byte) error {
	parsed, err := ParseCipherSuite(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// HashFunc represents hash function types for PBKDF2
type HashFunc uint8

const (
	// SHA256 hash function
	SHA256 HashFunc = iota
	// SHA512 hash function
	SHA512
	// SHA1 hash function, the PBKDF2 default of the legacy slackdisk format
	SHA1
)

func (h HashFunc) String() string {
	switch h {
	case SHA256:
		return "sha256"
	case SHA512:
		return "sha512"
	case SHA1:
		return "sha1"
	default:
		return "unknown"
	}
}

// ParseHashFunc parses a hash function name
func ParseHashFunc(name string) (HashFunc, error) {
	switch name {
	case "sha256":
		return SHA256, nil
	case "sha512":
		return SHA512, nil
	case "sha1":
		return SHA1, nil
	default:
		return 0, fmt.Errorf("unsupported hash function: %q", name)
	}
}

func (h HashFunc) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *HashFunc) UnmarshalText(text []byte) error {
	parsed, err := ParseHashFunc(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// HashFuncToHash converts HashFunc to a hash constructor
func HashFuncToHash(hf HashFunc) (func() hash.Hash, error) {
	switch hf {
	case SHA256:
		return sha256.New, nil
	case SHA512:
		return sha512.New, nil
	case SHA1:
		return sha1.New, nil
	default:
		return nil, fmt.Errorf("unsupported hash function: %v", hf)
	}
}

// KDF selects the password-based key derivation function
type KDF uint8

const (
	// KDFPBKDF2 derives keys with PBKDF2
	KDFPBKDF2 KDF = iota
	// KDFArgon2id derives keys with Argon2id
	KDFArgon2id
)

func (k KDF) String() string {
	switch k {
	case KDFPBKDF2:
		return "pbkdf2"
	case KDFArgon2id:
		return "argon2id"
	default:
		return "unknown"
	}
}

// ParseKDF parses a key derivation function name
func ParseKDF(name string) (KDF, error) {
	switch name {
	case "pbkdf2":
		return KDFPBKDF2, nil
	case "argon2id":
		return KDFArgon2id, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedKDF, name)
	}
}

func (k KDF) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *KDF) UnmarshalText(text []byte) error {
	parsed, err := ParseKDF(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// PBKDF2Params contains parameters for PBKDF2 key derivation
type PBKDF2Params struct {
	Iterations int      `yaml:"iterations"` // Number of iterations
	HashFunc   HashFunc `yaml:"hash"`       // Hash function to use
	SaltSize   int      `yaml:"salt_size"`  // Size of generated salts in bytes (default 32)
	KeySize    int      `yaml:"key_size"`   // Derived key size in bytes (default 32 for AES-256)
}

// Argon2idParams contains parameters for Argon2id key derivation
type Argon2idParams struct {
	Memory      uint32 `yaml:"memory"`      // Memory in KiB (e.g., 64*1024 for 64MB)
	Iterations  uint32 `yaml:"iterations"`  // Number of iterations (time parameter)
	Parallelism uint8  `yaml:"parallelism"` // Degree of parallelism
	SaltSize    int    `yaml:"salt_size"`   // Size of generated salts in bytes (default 32)
	KeySize     int    `yaml:"key_size"`    // Derived key size in bytes (default 32 for AES-256)
}

// CodecConfig carries every parameter of the encode pipeline. The salt and
// nonce are fixed per deployment: the same payload, password and config always
// encode to the same bytes.
type CodecConfig struct {
	Cipher      CipherSuite    `yaml:"cipher"`
	Compression CompressionTag `yaml:"compression"`
	KDF         KDF            `yaml:"kdf"`
	PBKDF2      PBKDF2Params   `yaml:"pbkdf2"`
	Argon2id    Argon2idParams `yaml:"argon2id"`

	// Salt is used verbatim as key derivation salt bytes.
	Salt string `yaml:"salt"`

	// Nonce is the hex-encoded cipher nonce (initial counter block for AES-CTR).
	Nonce string `yaml:"nonce"`
}

// Config contains configuration for a slack store
type Config struct {
	// CandidateRoots are the directories scanned for usable slots
	CandidateRoots []string `yaml:"candidate_roots"`

	// MinIdleDays skips files modified more recently than this many days.
	// Zero indexes every file.
	MinIdleDays int `yaml:"min_idle_days"`

	// RootSlot is the host file holding the first fragment of the chain
	RootSlot string `yaml:"root_slot"`

	// BmapPath is the bmap executable used by BmapAccessor
	BmapPath string `yaml:"bmap_path"`

	// BlockSize is the block size EmulatedAccessor assumes. The CLI uses it
	// with --emulate; 0 means DefaultBlockSize.
	BlockSize int `yaml:"block_size"`

	// Codec configures compression, encryption and key derivation
	Codec CodecConfig `yaml:"codec"`

	// Parallel controls concurrent probing of candidate files
	Parallel ParallelConfig `yaml:"parallel"`

	// Logger receives progress and diagnostics. Nil uses the logrus standard logger.
	Logger logrus.FieldLogger `yaml:"-"`
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if c.MinIdleDays < 0 {
		return NewValidationError("min_idle_days", c.MinIdleDays, "cannot be negative")
	}
	if err := ValidateFilePath(c.RootSlot); err != nil {
		return err
	}
	if c.BlockSize < 0 {
		return NewValidationError("block_size", c.BlockSize, "cannot be negative")
	}
	if err := c.Parallel.Validate(); err != nil {
		return &ValidationError{Field: "parallel", Message: err.Error(), Err: err}
	}
	return c.Codec.Validate()
}

// Validate checks the codec parameters without deriving any key
func (c *CodecConfig) Validate() error {
	if c.Cipher.NonceSize() == 0 {
		return ErrUnsupportedCipher
	}
	if err := c.Compression.validate(); err != nil {
		return err
	}
	if c.KDF != KDFPBKDF2 && c.KDF != KDFArgon2id {
		return ErrUnsupportedKDF
	}
	if c.Salt == "" {
		return NewValidationError("salt", c.Salt, "salt cannot be empty")
	}
	nonce, err := c.nonceBytes()
	if err != nil {
		return err
	}
	return ValidateNonce(nonce, c.Cipher)
}

func (c *Config) logger() logrus.FieldLogger {
	if c.Logger == nil {
		return logrus.StandardLogger()
	}
	return c.Logger
}
