package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

const (
	// SaltSize is the per-envelope PBKDF2 salt (128 bits)
	SaltSize = 16

	// IVSize is the AES-GCM nonce (96 bits)
	IVSize = 12

	// Nonce size for XChaCha20-Poly1305 (session cache)
	NonceSizeX = chacha20poly1305.NonceSizeX
)

var (
	// ErrAuthentication means the AEAD tag did not verify: wrong key,
	// corrupted data or tampering.
	ErrAuthentication = errors.New("authentication failed")

	// ErrMalformedInput means the input is not a structurally valid envelope.
	ErrMalformedInput = errors.New("malformed input")
)

// RandomBytes returns n bytes from the system CSPRNG
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}
	return b, nil
}

// GenerateSalt generates a random salt
func GenerateSalt() ([]byte, error) {
	return RandomBytes(SaltSize)
}

// GenerateKey generates a random 256-bit key
func GenerateKey() ([]byte, error) {
	return RandomBytes(KeySize)
}

// EncryptX encrypts data under a raw key using XChaCha20-Poly1305
func EncryptX(plaintext []byte, key []byte) ([]byte, []byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	nonce, err := RandomBytes(NonceSizeX)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := aead.Seal(nil, nonce, plaintext, nil)
	return ciphertext, nonce, nil
}

// DecryptX decrypts data sealed by EncryptX
func DecryptX(ciphertext []byte, nonce []byte, key []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	if len(nonce) != NonceSizeX {
		return nil, fmt.Errorf("%w: invalid nonce size", ErrMalformedInput)
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrAuthentication
	}

	return plaintext, nil
}

// EncodeBase64 encodes bytes to base64 string
func EncodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeBase64 decodes base64 string to bytes
func DecodeBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

// ConstantTimeCompare performs constant-time comparison
func ConstantTimeCompare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// Zeroize overwrites a byte slice with zeros to clear sensitive data from memory
func Zeroize(data []byte) {
	for i := range data {
		data[i] = 0
	}
}
