package slackfs

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/subtle"
	"encoding/binary"
	"fmt"
)

// sivSize is the length of the synthetic IV prepended to every ciphertext
const sivSize = aes.BlockSize

// AESSIVEngine implements CipherEngine with AES-SIV (RFC 5297): deterministic
// authenticated encryption. The configured nonce is not used as an IV but
// authenticated as associated data, so a ciphertext only decrypts under the
// key and nonce it was produced with.
//
// Unlike the stream ciphers it detects a wrong password on its own, at the
// cost of 16 bytes of slack per stored stream.
type AESSIVEngine struct {
	mac   cipher.Block // S2V key
	ctr   cipher.Block // CTR key
	sub1  []byte       // CMAC subkeys
	sub2  []byte
	nonce []byte
}

// NewAESSIVEngine creates an AES-SIV engine. The 64-byte key is split into
// the S2V and CTR halves.
func NewAESSIVEngine(key, nonce []byte) (*AESSIVEngine, error) {
	if err := ValidateKey(key, CipherAES256SIV.KeySize()); err != nil {
		return nil, err
	}
	if err := ValidateNonce(nonce, CipherAES256SIV); err != nil {
		return nil, err
	}

	mac, err := aes.NewCipher(key[:32])
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	ctr, err := aes.NewCipher(key[32:])
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	e := &AESSIVEngine{mac: mac, ctr: ctr, nonce: append([]byte(nil), nonce...)}
	l := make([]byte, aes.BlockSize)
	mac.Encrypt(l, l)
	e.sub1 = dbl(l)
	e.sub2 = dbl(e.sub1)
	return e, nil
}

// Encrypt returns SIV || CTR(plaintext)
func (e *AESSIVEngine) Encrypt(plaintext []byte) ([]byte, error) {
	v := e.s2v(plaintext)
	out := make([]byte, sivSize+len(plaintext))
	copy(out, v)
	e.xorKeyStream(v, out[sivSize:], plaintext)
	return out, nil
}

// Decrypt verifies and strips the SIV. Any mismatch, including a wrong key,
// is ErrAuthFailed.
func (e *AESSIVEngine) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < sivSize {
		return nil, fmt.Errorf("%w: ciphertext shorter than the synthetic IV", ErrAuthFailed)
	}
	v := ciphertext[:sivSize]
	plaintext := make([]byte, len(ciphertext)-sivSize)
	e.xorKeyStream(v, plaintext, ciphertext[sivSize:])

	if subtle.ConstantTimeCompare(v, e.s2v(plaintext)) != 1 {
		return nil, ErrAuthFailed
	}
	return plaintext, nil
}

// NonceSize returns the size of the associated nonce (16 bytes)
func (e *AESSIVEngine) NonceSize() int {
	return CipherAES256SIV.NonceSize()
}

// s2v derives the synthetic IV over the nonce and the plaintext
func (e *AESSIVEngine) s2v(plaintext []byte) []byte {
	d := e.cmac(make([]byte, aes.BlockSize))
	d = dbl(d)
	xorBytes(d, e.cmac(e.nonce))

	var t []byte
	if len(plaintext) >= aes.BlockSize {
		t = append([]byte(nil), plaintext...)
		xorBytes(t[len(t)-aes.BlockSize:], d)
	} else {
		t = dbl(d)
		xorBytes(t, pad(plaintext))
	}
	return e.cmac(t)
}

// cmac computes AES-CMAC (RFC 4493) with the S2V key
func (e *AESSIVEngine) cmac(data []byte) []byte {
	n := (len(data) + aes.BlockSize - 1) / aes.BlockSize
	if n == 0 {
		n = 1
	}

	last := make([]byte, aes.BlockSize)
	if rest := data[(n-1)*aes.BlockSize:]; len(rest) == aes.BlockSize {
		copy(last, rest)
		xorBytes(last, e.sub1)
	} else {
		last = pad(rest)
		xorBytes(last, e.sub2)
	}

	mac := make([]byte, aes.BlockSize)
	for i := 0; i < n-1; i++ {
		xorBytes(mac, data[i*aes.BlockSize:(i+1)*aes.BlockSize])
		e.mac.Encrypt(mac, mac)
	}
	xorBytes(mac, last)
	e.mac.Encrypt(mac, mac)
	return mac
}

// xorKeyStream runs CTR mode from the SIV with bits 31 and 63 cleared
func (e *AESSIVEngine) xorKeyStream(v, dst, src []byte) {
	iv := make([]byte, aes.BlockSize)
	copy(iv, v)
	iv[8] &= 0x7f
	iv[12] &= 0x7f
	cipher.NewCTR(e.ctr, iv).XORKeyStream(dst, src)
}

// dbl multiplies by x in GF(2^128)
func dbl(block []byte) []byte {
	hi := binary.BigEndian.Uint64(block[:8])
	lo := binary.BigEndian.Uint64(block[8:])

	out := make([]byte, aes.BlockSize)
	binary.BigEndian.PutUint64(out[:8], hi<<1|lo>>63)
	binary.BigEndian.PutUint64(out[8:], lo<<1)
	if hi>>63 != 0 {
		out[15] ^= 0x87
	}
	return out
}

// pad applies the 10* padding to a partial block
func pad(data []byte) []byte {
	out := make([]byte, aes.BlockSize)
	copy(out, data)
	out[len(data)] = 0x80
	return out
}

func xorBytes(dst, src []byte) {
	for i := 0; i < len(dst) && i < len(src); i++ {
		dst[i] ^= src[i]
	}
}
