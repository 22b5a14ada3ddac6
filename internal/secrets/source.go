// Package secrets resolves where the field encryption key comes from.
//
// The key is looked up once at startup and handed to the codecs
// explicitly; nothing below the CLI reads ambient process state.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jotvault/jotvault/internal/crypto"
	"github.com/jotvault/jotvault/internal/vault"
)

// EnvFieldKey is the environment variable read by EnvSource
const EnvFieldKey = "JOTVAULT_FIELD_KEY"

// Key source kinds accepted by Resolve
const (
	SourceEnv            = "env"
	SourceBundle         = "bundle"
	SourceSecretsManager = "secretsmanager"
)

var ErrNoFieldKey = errors.New("field encryption key not configured")

// KeySource supplies the field encryption key
type KeySource interface {
	FieldKey(ctx context.Context) (string, error)
}

// EnvSource reads the field key from an environment variable
type EnvSource struct {
	Var    string
	lookup func(string) (string, bool)
}

// NewEnvSource reads JOTVAULT_FIELD_KEY
func NewEnvSource() *EnvSource {
	return &EnvSource{Var: EnvFieldKey, lookup: os.LookupEnv}
}

// FieldKey returns the variable's value
func (s *EnvSource) FieldKey(_ context.Context) (string, error) {
	v, ok := s.lookup(s.Var)
	if !ok || strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("%w: %s is not set", ErrNoFieldKey, s.Var)
	}
	return v, nil
}

// BundleSource takes the field key from an unlocked credentials bundle
type BundleSource struct {
	Bundle *vault.CredentialsBundle
}

// FieldKey returns the bundle's encryption key
func (s *BundleSource) FieldKey(_ context.Context) (string, error) {
	if s.Bundle == nil || strings.TrimSpace(s.Bundle.EncryptionKey) == "" {
		return "", fmt.Errorf("%w: credentials bundle has no encryption key", ErrNoFieldKey)
	}
	return s.Bundle.EncryptionKey, nil
}

// Options carries what Resolve may need for each kind of source
type Options struct {
	SecretName string
	Region     string
	Bundle     *vault.CredentialsBundle
}

// Resolve builds the KeySource named by kind. An empty kind means "bundle".
func Resolve(ctx context.Context, kind string, opts Options) (KeySource, error) {
	switch kind {
	case SourceEnv:
		return NewEnvSource(), nil
	case SourceBundle, "":
		return &BundleSource{Bundle: opts.Bundle}, nil
	case SourceSecretsManager:
		if opts.SecretName == "" {
			return nil, fmt.Errorf("key source %q requires a secret name", kind)
		}
		return NewSecretsManagerSourceFromConfig(ctx, opts.SecretName, opts.Region)
	default:
		return nil, fmt.Errorf("unknown key source %q", kind)
	}
}

// GenerateFieldKey returns a random 256-bit key, base64 encoded
func GenerateFieldKey() (string, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return "", err
	}
	return crypto.EncodeBase64(key), nil
}
