package slackfs

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"
)

// LegacyPBKDF2Iterations is the iteration count slackdisk stores were
// written with.
const LegacyPBKDF2Iterations = 1000

// KeySize is the derived key size for the stream ciphers. AES-SIV takes two.
const KeySize = 32

// KeyProvider derives encryption keys from a salt
type KeyProvider interface {
	// DeriveKey derives an encryption key from the given salt
	DeriveKey(salt []byte) ([]byte, error)

	// GenerateSalt generates a new random salt
	GenerateSalt() ([]byte, error)
}

// PasswordKeyProvider implements KeyProvider using password-based key derivation
type PasswordKeyProvider struct {
	password     []byte
	useArgon2id  bool
	pbkdf2Params PBKDF2Params
	argon2Params Argon2idParams
}

// NewPasswordKeyProviderPBKDF2 creates a new password-based key provider using PBKDF2
func NewPasswordKeyProviderPBKDF2(password []byte, params PBKDF2Params) *PasswordKeyProvider {
	if params.Iterations == 0 {
		params.Iterations = LegacyPBKDF2Iterations
	}
	if params.SaltSize == 0 {
		params.SaltSize = 32
	}
	if params.KeySize == 0 {
		params.KeySize = KeySize
	}

	return &PasswordKeyProvider{
		password:     password,
		useArgon2id:  false,
		pbkdf2Params: params,
	}
}

// NewPasswordKeyProvider creates a new password-based key provider using Argon2id
func NewPasswordKeyProvider(password []byte, params Argon2idParams) *PasswordKeyProvider {
	if params.Memory == 0 {
		params.Memory = 64 * 1024 // 64 MB
	}
	if params.Iterations == 0 {
		params.Iterations = 3
	}
	if params.Parallelism == 0 {
		params.Parallelism = 4
	}
	if params.SaltSize == 0 {
		params.SaltSize = 32
	}
	if params.KeySize == 0 {
		params.KeySize = KeySize
	}

	return &PasswordKeyProvider{
		password:     password,
		useArgon2id:  true,
		argon2Params: params,
	}
}

// NewKeyProvider builds the provider selected by a codec config. Keys are
// derived at the length the configured cipher needs.
func NewKeyProvider(password []byte, config CodecConfig) (KeyProvider, error) {
	switch config.KDF {
	case KDFPBKDF2:
		params := config.PBKDF2
		params.KeySize = config.Cipher.KeySize()
		return NewPasswordKeyProviderPBKDF2(password, params), nil
	case KDFArgon2id:
		params := config.Argon2id
		params.KeySize = config.Cipher.KeySize()
		return NewPasswordKeyProvider(password, params), nil
	default:
		return nil, ErrUnsupportedKDF
	}
}

// DeriveKey derives an encryption key from the password and salt
func (p *PasswordKeyProvider) DeriveKey(salt []byte) ([]byte, error) {
	if len(p.password) == 0 {
		return nil, ErrEmptyPassword
	}
	if len(salt) == 0 {
		return nil, errors.New("salt cannot be empty")
	}

	if p.useArgon2id {
		key := argon2.IDKey(
			p.password,
			salt,
			p.argon2Params.Iterations,
			p.argon2Params.Memory,
			p.argon2Params.Parallelism,
			uint32(p.argon2Params.KeySize),
		)
		return key, nil
	}

	hashFunc, err := HashFuncToHash(p.pbkdf2Params.HashFunc)
	if err != nil {
		return nil, err
	}

	key := pbkdf2.Key(
		p.password,
		salt,
		p.pbkdf2Params.Iterations,
		p.pbkdf2Params.KeySize,
		hashFunc,
	)
	return key, nil
}

// GenerateSalt generates a new random salt
func (p *PasswordKeyProvider) GenerateSalt() ([]byte, error) {
	var saltSize int
	if p.useArgon2id {
		saltSize = p.argon2Params.SaltSize
	} else {
		saltSize = p.pbkdf2Params.SaltSize
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

// GenerateCodecSecrets fills config with a fresh random salt and nonce,
// replacing the legacy constants for a new deployment.
func GenerateCodecSecrets(config *CodecConfig) error {
	provider, err := NewKeyProvider([]byte("unused"), *config)
	if err != nil {
		return err
	}
	salt, err := provider.GenerateSalt()
	if err != nil {
		return err
	}
	nonce, err := GenerateNonce(config.Cipher)
	if err != nil {
		return err
	}
	config.Salt = hex.EncodeToString(salt)
	config.Nonce = hex.EncodeToString(nonce)
	return nil
}
