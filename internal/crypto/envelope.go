package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/json"
	"fmt"
)

// Envelope is the self-contained unit of password-encrypted data.
// Every member is standard base64.
type Envelope struct {
	Ciphertext string `json:"ciphertext"` // includes the GCM tag
	IV         string `json:"iv"`
	Salt       string `json:"salt"`
}

// Sealed is the raw output of one AES-256-GCM sealing under a
// password-derived key.
type Sealed struct {
	Ciphertext []byte
	IV         []byte
	Salt       []byte
}

// Codec performs password-based AES-256-GCM encryption with a fixed KDF
// parameter set. It holds no mutable state and is safe for concurrent use.
type Codec struct {
	params KDFParams
}

// NewCodec returns a codec using the given KDF parameters
func NewCodec(params KDFParams) (*Codec, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Codec{params: params}, nil
}

// DefaultCodec returns a codec using DefaultKDFParams
func DefaultCodec() *Codec {
	return &Codec{params: DefaultKDFParams()}
}

// Params returns the codec's KDF parameters
func (c *Codec) Params() KDFParams {
	return c.params
}

// Seal encrypts plaintext under a key derived from password and a fresh salt,
// using a fresh IV. aad is authenticated but not encrypted; Open must be
// given the same aad.
func (c *Codec) Seal(plaintext []byte, password string, aad []byte) (*Sealed, error) {
	salt, err := GenerateSalt()
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	iv, err := RandomBytes(IVSize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate iv: %w", err)
	}

	key, err := DeriveKey([]byte(password), salt, c.params)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	defer Zeroize(key)

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	return &Sealed{
		Ciphertext: gcm.Seal(nil, iv, plaintext, aad),
		IV:         iv,
		Salt:       salt,
	}, nil
}

// Open reverses Seal. A tag mismatch, including one caused by different
// aad, yields ErrAuthentication.
func (c *Codec) Open(s *Sealed, password string, aad []byte) ([]byte, error) {
	if s == nil || len(s.Salt) == 0 || len(s.Ciphertext) == 0 {
		return nil, fmt.Errorf("%w: missing ciphertext or salt", ErrMalformedInput)
	}
	if len(s.IV) != IVSize {
		return nil, fmt.Errorf("%w: iv must be %d bytes, got %d", ErrMalformedInput, IVSize, len(s.IV))
	}

	key, err := DeriveKey([]byte(password), s.Salt, c.params)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	defer Zeroize(key)

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	plaintext, err := gcm.Open(nil, s.IV, s.Ciphertext, aad)
	if err != nil {
		return nil, ErrAuthentication
	}
	return plaintext, nil
}

// Encrypt encrypts a string into a fresh Envelope
func (c *Codec) Encrypt(plaintext, password string) (*Envelope, error) {
	s, err := c.Seal([]byte(plaintext), password, nil)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		Ciphertext: EncodeBase64(s.Ciphertext),
		IV:         EncodeBase64(s.IV),
		Salt:       EncodeBase64(s.Salt),
	}, nil
}

// Decrypt decrypts an Envelope produced by Encrypt with the same password
func (c *Codec) Decrypt(env *Envelope, password string) (string, error) {
	s, err := env.decode()
	if err != nil {
		return "", err
	}
	plaintext, err := c.Open(s, password, nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// Encrypt encrypts with the default KDF parameters
func Encrypt(plaintext, password string) (*Envelope, error) {
	return DefaultCodec().Encrypt(plaintext, password)
}

// Decrypt decrypts with the default KDF parameters
func Decrypt(env *Envelope, password string) (string, error) {
	return DefaultCodec().Decrypt(env, password)
}

// Marshal serializes the envelope to its JSON string form
func (e *Envelope) Marshal() (string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("failed to serialize envelope: %w", err)
	}
	return string(data), nil
}

// ParseEnvelope parses the JSON string form of an envelope. Anything that is
// not a JSON object with string ciphertext, iv and salt members yields
// ErrMalformedInput.
func ParseEnvelope(s string) (*Envelope, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, fmt.Errorf("%w: not a json object", ErrMalformedInput)
	}

	var env Envelope
	for name, dst := range map[string]*string{
		"ciphertext": &env.Ciphertext,
		"iv":         &env.IV,
		"salt":       &env.Salt,
	} {
		v, ok := raw[name]
		if !ok {
			return nil, fmt.Errorf("%w: missing %s", ErrMalformedInput, name)
		}
		if err := json.Unmarshal(v, dst); err != nil {
			return nil, fmt.Errorf("%w: %s is not a string", ErrMalformedInput, name)
		}
		if *dst == "" {
			return nil, fmt.Errorf("%w: empty %s", ErrMalformedInput, name)
		}
	}
	return &env, nil
}

func (e *Envelope) decode() (*Sealed, error) {
	if e == nil {
		return nil, fmt.Errorf("%w: nil envelope", ErrMalformedInput)
	}
	ciphertext, err := DecodeBase64(e.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: ciphertext: %v", ErrMalformedInput, err)
	}
	iv, err := DecodeBase64(e.IV)
	if err != nil {
		return nil, fmt.Errorf("%w: iv: %v", ErrMalformedInput, err)
	}
	salt, err := DecodeBase64(e.Salt)
	if err != nil {
		return nil, fmt.Errorf("%w: salt: %v", ErrMalformedInput, err)
	}
	return &Sealed{Ciphertext: ciphertext, IV: iv, Salt: salt}, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}
