package vault

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jotvault/jotvault/internal/crypto"
)

// FormatVersion tags every vault file this package writes
const FormatVersion = "jotvault-vault/1"

var (
	ErrMalformedVaultFile  = errors.New("malformed vault file")
	ErrWrongMasterPassword = errors.New("wrong master password")
	ErrCorruptVaultFile    = errors.New("corrupt vault file")
)

// File is the portable encrypted form of a CredentialsBundle.
// The version tag and KDF parameters are bound to the ciphertext as GCM
// additional data, so a vault file never opens as a field crypto.Envelope.
type File struct {
	Version    string            `json:"version"`
	KDF        *crypto.KDFParams `json:"kdf,omitempty"` // nil means the reading codec's parameters
	Ciphertext string            `json:"ciphertext"`    // base64
	IV         string            `json:"iv"`            // base64
	Salt       string            `json:"salt"`          // base64
}

// Marshal serializes the vault file to JSON
func (f *File) Marshal() ([]byte, error) {
	return json.MarshalIndent(f, "", "  ")
}

// ParseFile parses and structurally validates a vault file
func ParseFile(data []byte) (*File, error) {
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedVaultFile, err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *File) validate() error {
	if f == nil {
		return fmt.Errorf("%w: empty file", ErrMalformedVaultFile)
	}
	for name, v := range map[string]string{
		"version":    f.Version,
		"ciphertext": f.Ciphertext,
		"iv":         f.IV,
		"salt":       f.Salt,
	} {
		if v == "" {
			return fmt.Errorf("%w: missing %s", ErrMalformedVaultFile, name)
		}
	}
	if f.Version != FormatVersion {
		return fmt.Errorf("%w: unsupported version %q", ErrMalformedVaultFile, f.Version)
	}
	if f.KDF != nil && f.KDF.Algo == "" {
		return fmt.Errorf("%w: kdf without algorithm", ErrMalformedVaultFile)
	}
	return nil
}

// additionalData is what the ciphertext is bound to besides the password
func additionalData(version string, p crypto.KDFParams) []byte {
	return []byte(fmt.Sprintf("%s;%s;%d;%d;%d", version, p.Algo, p.Iterations, p.Memory, p.Parallelism))
}

// Codec exports and imports vault files under a master password
type Codec struct {
	aead *crypto.Codec
}

// NewCodec returns a vault codec. Export writes aead's KDF parameters into
// every file; Import derives with whatever parameters the file records.
func NewCodec(aead *crypto.Codec) *Codec {
	if aead == nil {
		aead = crypto.DefaultCodec()
	}
	return &Codec{aead: aead}
}

// Export encrypts a complete bundle into a vault file
func (c *Codec) Export(bundle *CredentialsBundle, masterPassword string) (*File, error) {
	if err := bundle.Validate(); err != nil {
		return nil, err
	}

	plaintext, err := bundle.ToJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize credentials: %w", err)
	}
	defer crypto.Zeroize(plaintext)

	params := c.aead.Params()
	sealed, err := c.aead.Seal(plaintext, masterPassword, additionalData(FormatVersion, params))
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt credentials: %w", err)
	}

	return &File{
		Version:    FormatVersion,
		KDF:        &params,
		Ciphertext: crypto.EncodeBase64(sealed.Ciphertext),
		IV:         crypto.EncodeBase64(sealed.IV),
		Salt:       crypto.EncodeBase64(sealed.Salt),
	}, nil
}

// Import decrypts a vault file and validates the bundle inside it
func (c *Codec) Import(file *File, masterPassword string) (*CredentialsBundle, error) {
	if err := file.validate(); err != nil {
		return nil, err
	}

	sealed := &crypto.Sealed{}
	for _, part := range []struct {
		name string
		in   string
		out  *[]byte
	}{
		{"ciphertext", file.Ciphertext, &sealed.Ciphertext},
		{"iv", file.IV, &sealed.IV},
		{"salt", file.Salt, &sealed.Salt},
	} {
		b, err := crypto.DecodeBase64(part.in)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to decode %s: %v", ErrMalformedVaultFile, part.name, err)
		}
		*part.out = b
	}

	aead, err := c.codecFor(file)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(sealed, masterPassword, additionalData(file.Version, aead.Params()))
	if err != nil {
		switch {
		case errors.Is(err, crypto.ErrAuthentication):
			return nil, ErrWrongMasterPassword
		case errors.Is(err, crypto.ErrMalformedInput):
			return nil, fmt.Errorf("%w: %v", ErrMalformedVaultFile, err)
		}
		return nil, fmt.Errorf("failed to decrypt vault file: %w", err)
	}
	defer crypto.Zeroize(plaintext)

	bundle, err := FromJSON(plaintext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptVaultFile, err)
	}
	if err := bundle.Validate(); err != nil {
		return nil, err
	}
	return bundle, nil
}

// codecFor returns a codec deriving keys the way file was written
func (c *Codec) codecFor(file *File) (*crypto.Codec, error) {
	if file.KDF == nil || file.KDF.Equal(c.aead.Params()) {
		return c.aead, nil
	}
	aead, err := crypto.NewCodec(*file.KDF)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedVaultFile, err)
	}
	return aead, nil
}
