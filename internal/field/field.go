// Package field encrypts and decrypts individual journal fields for storage.
//
// A stored field is either the JSON form of a crypto.Envelope or a legacy
// plaintext string written before encryption existed. Values that do not
// parse as an envelope are always returned unchanged.
package field

import (
	"errors"
	"fmt"

	"github.com/jotvault/jotvault/internal/crypto"
)

// Codec wraps the envelope codec with the stored-field representation.
type Codec struct {
	envelopes *crypto.Codec
}

// NewCodec returns a field codec backed by the given envelope codec
func NewCodec(envelopes *crypto.Codec) *Codec {
	if envelopes == nil {
		envelopes = crypto.DefaultCodec()
	}
	return &Codec{envelopes: envelopes}
}

// EncryptField encrypts value into its stored representation.
// The empty string stays empty so "no value" remains distinguishable.
func (c *Codec) EncryptField(value, password string) (string, error) {
	if value == "" {
		return "", nil
	}

	env, err := c.envelopes.Encrypt(value, password)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt field: %w", err)
	}
	return env.Marshal()
}

// DecryptField returns the plaintext of a stored field.
//
// Stored values that are not envelopes are legacy plaintext and are returned
// as-is. An envelope that fails authentication returns crypto.ErrAuthentication.
func (c *Codec) DecryptField(stored, password string) (string, error) {
	if stored == "" {
		return "", nil
	}

	env, err := crypto.ParseEnvelope(stored)
	if err != nil {
		return stored, nil
	}

	plaintext, err := c.envelopes.Decrypt(env, password)
	if err != nil {
		if errors.Is(err, crypto.ErrMalformedInput) {
			// Envelope-shaped JSON whose members are not valid base64 or a
			// valid IV could never have come from EncryptField.
			return stored, nil
		}
		return "", fmt.Errorf("failed to decrypt field: %w", err)
	}
	return plaintext, nil
}

// IsEncrypted reports whether stored is in the envelope representation
func (c *Codec) IsEncrypted(stored string) bool {
	_, err := crypto.ParseEnvelope(stored)
	return err == nil
}
