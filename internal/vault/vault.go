package vault

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// BundleVersion is the schema version written into new credentials bundles
const BundleVersion = "1"

var ErrIncompleteCredentials = errors.New("incomplete credentials")

// IncompleteCredentialsError lists the bundle fields that are missing
type IncompleteCredentialsError struct {
	Missing []string
}

func (e *IncompleteCredentialsError) Error() string {
	return fmt.Sprintf("incomplete credentials: missing %s", strings.Join(e.Missing, ", "))
}

func (e *IncompleteCredentialsError) Unwrap() error {
	return ErrIncompleteCredentials
}

// CredentialsBundle holds everything needed to reach and decrypt a journal
type CredentialsBundle struct {
	StoreURL      string    `json:"store_url"`
	StoreKey      string    `json:"store_key"`
	EncryptionKey string    `json:"encryption_key"`
	APIKey        string    `json:"api_key"`
	Version       string    `json:"version"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewBundle creates a bundle stamped with the current version and time
func NewBundle(storeURL, storeKey, encryptionKey, apiKey string) *CredentialsBundle {
	return &CredentialsBundle{
		StoreURL:      storeURL,
		StoreKey:      storeKey,
		EncryptionKey: encryptionKey,
		APIKey:        apiKey,
		Version:       BundleVersion,
		CreatedAt:     time.Now().UTC().Truncate(time.Second),
	}
}

// Validate reports every required field that is empty
func (b *CredentialsBundle) Validate() error {
	if b == nil {
		return &IncompleteCredentialsError{Missing: []string{"bundle"}}
	}

	var missing []string
	for _, f := range []struct {
		name  string
		empty bool
	}{
		{"store_url", strings.TrimSpace(b.StoreURL) == ""},
		{"store_key", strings.TrimSpace(b.StoreKey) == ""},
		{"encryption_key", strings.TrimSpace(b.EncryptionKey) == ""},
		{"api_key", strings.TrimSpace(b.APIKey) == ""},
		{"version", strings.TrimSpace(b.Version) == ""},
		{"created_at", b.CreatedAt.IsZero()},
	} {
		if f.empty {
			missing = append(missing, f.name)
		}
	}

	if len(missing) > 0 {
		return &IncompleteCredentialsError{Missing: missing}
	}
	return nil
}

// ToJSON serializes the bundle to its canonical JSON form
func (b *CredentialsBundle) ToJSON() ([]byte, error) {
	return json.Marshal(b)
}

// FromJSON deserializes a bundle from JSON
func FromJSON(data []byte) (*CredentialsBundle, error) {
	var b CredentialsBundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, err
	}
	return &b, nil
}
