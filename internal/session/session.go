package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jotvault/jotvault/internal/crypto"
	"github.com/jotvault/jotvault/internal/vault"
)

const (
	// Default session timeout (30 minutes)
	DefaultSessionTimeout = 30 * time.Minute
	// Session file permissions (read/write for user only)
	SessionFileMode = 0600
)

var ErrNoSession = errors.New("no active session")

// hostKeyParams is derived on every command; memory stays above the Argon2id floor
var hostKeyParams = crypto.KDFParams{
	Algo:        crypto.AlgoArgon2id,
	Memory:      32 * 1024, // 32 MB
	Iterations:  2,
	Parallelism: 1,
}

// SessionData is the on-disk session file
type SessionData struct {
	EncryptedBundle string    `json:"encrypted_bundle"`  // base64
	Nonce           string    `json:"nonce"`             // base64
	SessionKey      string    `json:"session_key"`       // base64, wrapped by the host key
	SessionKeyNonce string    `json:"session_key_nonce"` // base64
	CreatedAt       time.Time `json:"created_at"`
	ExpiresAt       time.Time `json:"expires_at"`
}

// Manager caches an unlocked credentials bundle between CLI invocations
type Manager struct {
	sessionPath string
	timeout     time.Duration
	logger      *slog.Logger

	now     func() time.Time
	hostKey func() ([]byte, error)
}

// NewManager creates a session manager. A zero timeout means
// DefaultSessionTimeout.
func NewManager(sessionPath string, timeout time.Duration, logger *slog.Logger) *Manager {
	if timeout <= 0 {
		timeout = DefaultSessionTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		sessionPath: sessionPath,
		timeout:     timeout,
		logger:      logger,
		now:         time.Now,
		hostKey:     deriveHostKey,
	}
}

// deriveHostKey derives a key from user-specific data for wrapping session keys
func deriveHostKey() ([]byte, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	username := os.Getenv("USER")
	if username == "" {
		username = os.Getenv("USERNAME")
	}
	hostname, _ := os.Hostname()

	salt := []byte(fmt.Sprintf("%s:%s:jotvault-session", homeDir, username))
	return crypto.DeriveKey([]byte(hostname+homeDir+username), salt, hostKeyParams)
}

// Save encrypts the bundle under a fresh session key and writes the session file
func (m *Manager) Save(bundle *vault.CredentialsBundle) error {
	if err := bundle.Validate(); err != nil {
		return err
	}
	plaintext, err := bundle.ToJSON()
	if err != nil {
		return err
	}
	defer crypto.Zeroize(plaintext)

	sessionKey, err := crypto.GenerateKey()
	if err != nil {
		return fmt.Errorf("failed to generate session key: %w", err)
	}
	defer crypto.Zeroize(sessionKey)

	encrypted, nonce, err := crypto.EncryptX(plaintext, sessionKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt bundle: %w", err)
	}

	hostKey, err := m.hostKey()
	if err != nil {
		return fmt.Errorf("failed to get host key: %w", err)
	}
	defer crypto.Zeroize(hostKey)

	wrapped, wrappedNonce, err := crypto.EncryptX(sessionKey, hostKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt session key: %w", err)
	}

	now := m.now().UTC()
	data, err := json.Marshal(SessionData{
		EncryptedBundle: crypto.EncodeBase64(encrypted),
		Nonce:           crypto.EncodeBase64(nonce),
		SessionKey:      crypto.EncodeBase64(wrapped),
		SessionKeyNonce: crypto.EncodeBase64(wrappedNonce),
		CreatedAt:       now,
		ExpiresAt:       now.Add(m.timeout),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal session data: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(m.sessionPath), 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	if err := os.WriteFile(m.sessionPath, data, SessionFileMode); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}

	m.logger.Debug("session saved", "expires_at", now.Add(m.timeout))
	return nil
}

// Load returns the cached bundle. A missing, expired or unreadable
// session is ErrNoSession; expired and unreadable files are removed.
func (m *Manager) Load() (*vault.CredentialsBundle, error) {
	data, err := os.ReadFile(m.sessionPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var sd SessionData
	if err := json.Unmarshal(data, &sd); err != nil {
		m.discard("unparseable session file")
		return nil, ErrNoSession
	}

	if !m.now().Before(sd.ExpiresAt) {
		m.discard("session expired")
		return nil, fmt.Errorf("%w: session expired", ErrNoSession)
	}

	bundle, err := m.open(&sd)
	if err != nil {
		m.logger.Warn("discarding unreadable session", "error", err)
		m.discard("unreadable session")
		return nil, ErrNoSession
	}
	return bundle, nil
}

func (m *Manager) open(sd *SessionData) (*vault.CredentialsBundle, error) {
	hostKey, err := m.hostKey()
	if err != nil {
		return nil, fmt.Errorf("failed to get host key: %w", err)
	}
	defer crypto.Zeroize(hostKey)

	wrapped, err := crypto.DecodeBase64(sd.SessionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode session key: %w", err)
	}
	wrappedNonce, err := crypto.DecodeBase64(sd.SessionKeyNonce)
	if err != nil {
		return nil, fmt.Errorf("failed to decode session key nonce: %w", err)
	}
	sessionKey, err := crypto.DecryptX(wrapped, wrappedNonce, hostKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt session key: %w", err)
	}
	defer crypto.Zeroize(sessionKey)

	encrypted, err := crypto.DecodeBase64(sd.EncryptedBundle)
	if err != nil {
		return nil, fmt.Errorf("failed to decode bundle: %w", err)
	}
	nonce, err := crypto.DecodeBase64(sd.Nonce)
	if err != nil {
		return nil, fmt.Errorf("failed to decode nonce: %w", err)
	}
	plaintext, err := crypto.DecryptX(encrypted, nonce, sessionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt bundle: %w", err)
	}
	defer crypto.Zeroize(plaintext)

	return vault.FromJSON(plaintext)
}

func (m *Manager) discard(reason string) {
	m.logger.Debug("clearing session", "reason", reason)
	if err := m.Clear(); err != nil {
		m.logger.Warn("failed to clear session", "error", err)
	}
}

// Clear removes the session file
func (m *Manager) Clear() error {
	if err := os.Remove(m.sessionPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

// Active reports whether a usable session exists
func (m *Manager) Active() bool {
	_, err := m.Load()
	return err == nil
}

// Path returns the session file path
func (m *Manager) Path() string {
	return m.sessionPath
}
