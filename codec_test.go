package slackfs

import (
	"bytes"
	"errors"
	"testing"
)

func newTestCodec(t testing.TB, mutate func(*CodecConfig)) *Codec {
	t.Helper()
	cfg := fastCodecConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	codec, err := NewCodec(cfg)
	if err != nil {
		t.Fatalf("NewCodec failed: %v", err)
	}
	return codec
}

func TestCodec_LegacyVector(t *testing.T) {
	codec := newTestCodec(t, nil)

	got, err := codec.DecodeBytes([]byte("5dFjXZ282DEV3hcerJftGwgPbjBdANmFwYF4"), "slackdisk")
	if err != nil {
		t.Fatalf("DecodeBytes failed: %v", err)
	}
	if string(got) != "hidden in the slack" {
		t.Errorf("DecodeBytes = %q", got)
	}
}

func TestCodec_LegacyKey(t *testing.T) {
	codec := newTestCodec(t, nil)

	key, err := codec.DeriveKey("slackdisk")
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}
	want := "02c270e4846b0baa4e0a5bc8e3dbe57e39e72431720127cb88e4a87613a43bed"
	if got := bytesToHex(key); got != want {
		t.Errorf("DeriveKey = %s, want %s", got, want)
	}
}

func bytesToHex(b []byte) string {
	const digits = "0123456789abcdef"
	out := make([]byte, 0, len(b)*2)
	for _, c := range b {
		out = append(out, digits[c>>4], digits[c&0x0f])
	}
	return string(out)
}

func TestCodec_RoundTrip(t *testing.T) {
	inputs := [][]byte{
		nil,
		[]byte("x"),
		[]byte("hidden in the slack"),
		bytes.Repeat([]byte("abc:\x00\n"), 500),
	}

	ciphers := []CipherSuite{CipherAES256CTR, CipherChaCha20, CipherAES256SIV}
	compressions := []CompressionTag{CompressionZlib, CompressionZstd, CompressionLZ4, CompressionXZ, CompressionNone}
	kdfs := []KDF{KDFPBKDF2, KDFArgon2id}

	for _, cipher := range ciphers {
		for _, compression := range compressions {
			for _, kdf := range kdfs {
				name := cipher.String() + "/" + compression.String() + "/" + kdf.String()
				t.Run(name, func(t *testing.T) {
					codec := newTestCodec(t, func(c *CodecConfig) {
						c.Cipher = cipher
						c.Compression = compression
						c.KDF = kdf
						if cipher == CipherChaCha20 {
							c.Nonce = "000102030405060708090a0b"
						}
					})
					for _, in := range inputs {
						encoded, err := codec.EncodeBytes(in, "test-password")
						if err != nil {
							t.Fatalf("EncodeBytes failed: %v", err)
						}
						if bytes.IndexByte(encoded, FragmentSeparator) >= 0 {
							t.Error("encoded stream contains the fragment separator")
						}
						got, err := codec.DecodeBytes(encoded, "test-password")
						if err != nil {
							t.Fatalf("DecodeBytes failed: %v", err)
						}
						if !bytes.Equal(got, in) {
							t.Errorf("round trip mismatch for %d-byte input", len(in))
						}
					}
				})
			}
		}
	}
}

func TestCodec_Deterministic(t *testing.T) {
	codec := newTestCodec(t, nil)
	payload := map[string]any{"b": []byte("two"), "a": "one", "c": uint64(3)}

	first, err := codec.Encode(payload, "pw")
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	second, err := codec.Encode(payload, "pw")
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("encoding the same payload twice should give identical bytes")
	}
}

func TestCodec_WrongPassword(t *testing.T) {
	for _, compression := range []CompressionTag{CompressionZlib, CompressionZstd, CompressionLZ4, CompressionXZ} {
		t.Run(compression.String(), func(t *testing.T) {
			codec := newTestCodec(t, func(c *CodecConfig) { c.Compression = compression })

			encoded, err := codec.EncodeBytes([]byte("the quick brown fox jumps over the lazy dog"), "right")
			if err != nil {
				t.Fatalf("EncodeBytes failed: %v", err)
			}
			_, err = codec.DecodeBytes(encoded, "wrong")
			if !IsDecodeFailed(err) {
				t.Errorf("expected decode failure, got %v", err)
			}
		})
	}
}

func TestCodec_WrongPasswordAuthenticated(t *testing.T) {
	codec := newTestCodec(t, func(c *CodecConfig) {
		c.Cipher = CipherAES256SIV
		c.Compression = CompressionNone
	})

	encoded, err := codec.EncodeBytes([]byte("no compression to trip over"), "right")
	if err != nil {
		t.Fatalf("EncodeBytes failed: %v", err)
	}
	_, err = codec.DecodeBytes(encoded, "wrong")
	var de *DecodeError
	if !errors.As(err, &de) || de.Stage != "decrypt" {
		t.Fatalf("expected decrypt stage failure, got %v", err)
	}
	if !errors.Is(err, ErrAuthFailed) {
		t.Errorf("expected ErrAuthFailed, got %v", err)
	}
}

func TestCodec_PayloadRoundTrip(t *testing.T) {
	codec := newTestCodec(t, nil)

	tree := NewTree()
	if err := tree.Mkdir("/docs"); err != nil {
		t.Fatal(err)
	}
	if err := tree.WriteFile("/docs/a.txt", []byte("alpha")); err != nil {
		t.Fatal(err)
	}

	encoded, err := codec.Encode(tree.Root, "pw")
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	var root Node
	if err := codec.Decode(encoded, "pw", &root); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	got := treeFromRoot(&root)
	data, err := got.ReadFile("/docs/a.txt")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "alpha" {
		t.Errorf("ReadFile = %q", data)
	}
	if got.Root.ID != tree.Root.ID {
		t.Error("node identity lost in round trip")
	}
}

func TestCodec_DecodeErrors(t *testing.T) {
	codec := newTestCodec(t, nil)

	_, err := codec.DecodeBytes([]byte("not base64!"), "pw")
	var de *DecodeError
	if !errors.As(err, &de) || de.Stage != "transport" {
		t.Errorf("expected transport decode error, got %v", err)
	}

	encoded, err := codec.EncodeBytes([]byte("\xff\xfe"), "pw")
	if err != nil {
		t.Fatal(err)
	}
	var v map[string]any
	err = codec.Decode(encoded, "pw", &v)
	if !errors.As(err, &de) || de.Stage != "deserialize" {
		t.Errorf("expected deserialize decode error, got %v", err)
	}
}

func TestCodec_EmptyPassword(t *testing.T) {
	codec := newTestCodec(t, nil)
	if _, err := codec.EncodeBytes([]byte("x"), ""); !errors.Is(err, ErrEmptyPassword) {
		t.Errorf("expected ErrEmptyPassword, got %v", err)
	}
}

func TestNewCodec_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CodecConfig)
	}{
		{"non-hex nonce", func(c *CodecConfig) { c.Nonce = "zz" }},
		{"short nonce", func(c *CodecConfig) { c.Nonce = "00ff" }},
		{"chacha with aes nonce", func(c *CodecConfig) { c.Cipher = CipherChaCha20 }},
		{"empty salt", func(c *CodecConfig) { c.Salt = "" }},
		{"unknown cipher", func(c *CodecConfig) { c.Cipher = CipherSuite(99) }},
		{"unknown compression", func(c *CodecConfig) { c.Compression = CompressionTag(99) }},
		{"unknown kdf", func(c *CodecConfig) { c.KDF = KDF(99) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultCodecConfig()
			tt.mutate(&cfg)
			if _, err := NewCodec(cfg); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestNewKeyProvider(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*CodecConfig)
		keySize int
	}{
		{"pbkdf2 stream cipher", func(c *CodecConfig) {}, 32},
		{"pbkdf2 siv", func(c *CodecConfig) { c.Cipher = CipherAES256SIV }, 64},
		{"argon2id stream cipher", func(c *CodecConfig) { c.KDF = KDFArgon2id }, 32},
		{"argon2id siv", func(c *CodecConfig) { c.KDF = KDFArgon2id; c.Cipher = CipherAES256SIV }, 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := fastCodecConfig()
			tt.mutate(&cfg)

			provider, err := NewKeyProvider([]byte("pw"), cfg)
			if err != nil {
				t.Fatalf("NewKeyProvider failed: %v", err)
			}
			key, err := provider.DeriveKey([]byte(cfg.Salt))
			if err != nil {
				t.Fatalf("DeriveKey failed: %v", err)
			}
			if len(key) != tt.keySize {
				t.Errorf("key size = %d, want %d", len(key), tt.keySize)
			}
			salt, err := provider.GenerateSalt()
			if err != nil || len(salt) == 0 {
				t.Errorf("GenerateSalt = %x, %v", salt, err)
			}
		})
	}

	cfg := fastCodecConfig()
	cfg.KDF = KDF(99)
	if _, err := NewKeyProvider([]byte("pw"), cfg); !errors.Is(err, ErrUnsupportedKDF) {
		t.Errorf("unknown kdf: %v", err)
	}
}

func TestGenerateCodecSecrets(t *testing.T) {
	a := DefaultCodecConfig()
	b := DefaultCodecConfig()
	if err := GenerateCodecSecrets(&a); err != nil {
		t.Fatal(err)
	}
	if err := GenerateCodecSecrets(&b); err != nil {
		t.Fatal(err)
	}
	if a.Salt == LegacySalt || a.Nonce == LegacyNonce {
		t.Error("secrets should replace the legacy values")
	}
	if a.Salt == b.Salt || a.Nonce == b.Nonce {
		t.Error("generated secrets should differ")
	}
	if err := a.Validate(); err != nil {
		t.Errorf("generated config invalid: %v", err)
	}
}
