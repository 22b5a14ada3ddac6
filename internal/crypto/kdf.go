package crypto

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// Supported KDF algorithms
	AlgoPBKDF2SHA256 = "pbkdf2-sha256"
	AlgoArgon2id     = "argon2id"

	// KeySize is the size of every derived key (AES-256)
	KeySize = 32

	// PBKDF2 defaults. Both the field codec and the vault codec use this count.
	DefaultIterations = 310000
	MinIterations     = 100000

	// Argon2id parameters
	DefaultArgonMemory      = 64 * 1024 // 64 MB
	DefaultArgonIterations  = 3
	DefaultArgonParallelism = 1
	MinArgonMemory          = 19 * 1024
)

var ErrWeakKDFParams = errors.New("kdf parameters below minimum strength")

// KDFParams holds key derivation parameters
type KDFParams struct {
	Algo        string `json:"algo"`
	Iterations  uint32 `json:"iterations"`
	Memory      uint32 `json:"memory,omitempty"`
	Parallelism uint8  `json:"parallelism,omitempty"`

	insecure bool
}

// DefaultKDFParams returns PBKDF2-SHA256 with 310,000 iterations
func DefaultKDFParams() KDFParams {
	return KDFParams{
		Algo:       AlgoPBKDF2SHA256,
		Iterations: DefaultIterations,
	}
}

// DefaultArgon2idParams returns sensible Argon2id parameters
func DefaultArgon2idParams() KDFParams {
	return KDFParams{
		Algo:        AlgoArgon2id,
		Iterations:  DefaultArgonIterations,
		Memory:      DefaultArgonMemory,
		Parallelism: DefaultArgonParallelism,
	}
}

// InsecureKDFParams returns cheap PBKDF2 parameters that skip the strength
// floor. Only for tests.
func InsecureKDFParams() KDFParams {
	return KDFParams{
		Algo:       AlgoPBKDF2SHA256,
		Iterations: 1000,
		insecure:   true,
	}
}

// InsecureArgon2idParams is the Argon2id counterpart of InsecureKDFParams
func InsecureArgon2idParams() KDFParams {
	return KDFParams{
		Algo:        AlgoArgon2id,
		Iterations:  1,
		Memory:      1024,
		Parallelism: 1,
		insecure:    true,
	}
}

// Equal reports whether p and o derive the same keys
func (p KDFParams) Equal(o KDFParams) bool {
	return p.Algo == o.Algo && p.Iterations == o.Iterations &&
		p.Memory == o.Memory && p.Parallelism == o.Parallelism
}

// Validate checks the parameters against the strength floor
func (p KDFParams) Validate() error {
	switch p.Algo {
	case AlgoPBKDF2SHA256:
		if p.Iterations == 0 {
			return fmt.Errorf("%w: zero iterations", ErrWeakKDFParams)
		}
		if !p.insecure && p.Iterations < MinIterations {
			return fmt.Errorf("%w: %d pbkdf2 iterations, need at least %d", ErrWeakKDFParams, p.Iterations, MinIterations)
		}
	case AlgoArgon2id:
		if p.Iterations == 0 || p.Parallelism == 0 {
			return fmt.Errorf("%w: zero argon2id time or parallelism", ErrWeakKDFParams)
		}
		if !p.insecure && p.Memory < MinArgonMemory {
			return fmt.Errorf("%w: %d KiB argon2id memory, need at least %d", ErrWeakKDFParams, p.Memory, MinArgonMemory)
		}
	default:
		return fmt.Errorf("unsupported kdf algorithm %q", p.Algo)
	}
	return nil
}

// DeriveKey derives a KeySize-byte key from a password and salt
func DeriveKey(password, salt []byte, params KDFParams) ([]byte, error) {
	return Derive(password, salt, params, KeySize*8)
}

// Derive derives exactly outputBits of key material. The same inputs always
// yield the same bytes; nothing is cached between calls.
func Derive(password, salt []byte, params KDFParams, outputBits int) ([]byte, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if len(salt) == 0 {
		return nil, errors.New("empty salt")
	}
	if outputBits <= 0 || outputBits%8 != 0 {
		return nil, fmt.Errorf("invalid key size %d bits", outputBits)
	}
	n := outputBits / 8

	switch params.Algo {
	case AlgoArgon2id:
		return argon2.IDKey(password, salt, params.Iterations, params.Memory, params.Parallelism, uint32(n)), nil
	default:
		return pbkdf2.Key(password, salt, int(params.Iterations), n, sha256.New), nil
	}
}
