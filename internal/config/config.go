package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/jotvault/jotvault/internal/crypto"
	"github.com/jotvault/jotvault/internal/secrets"
	"github.com/jotvault/jotvault/internal/session"
)

// Record store kinds
const (
	StoreDynamoDB = "dynamodb"
	StoreFile     = "file"
	StoreMemory   = "memory"
)

// Config holds application configuration
type Config struct {
	AWSRegion          string           `json:"aws_region"`
	TableName          string           `json:"table_name"`
	VaultPath          string           `json:"vault_path"`
	BackupDir          string           `json:"backup_dir"`
	VaultKDF           crypto.KDFParams `json:"vault_kdf"`                       // used when writing vault files; each file records its own
	KeySource          string           `json:"key_source"`                      // env, bundle or secretsmanager
	FieldKeySecretName string           `json:"field_key_secret_name,omitempty"` // AWS Secrets Manager secret holding the field key
	Store              string           `json:"store"`                           // default backend offered by init
	StorePath          string           `json:"store_path,omitempty"`
	LogLevel           string           `json:"log_level"`
	SessionTimeout     string           `json:"session_timeout"`
	ConfigPath         string           `json:"-"` // Not stored, just for reference
}

// HomeDir returns the jotvault state directory, ~/.jotvault unless
// JOTVAULT_HOME is set
func HomeDir() string {
	if dir := os.Getenv("JOTVAULT_HOME"); dir != "" {
		return dir
	}
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".jotvault")
}

// GetSessionPath returns the path to the session file
func (c *Config) GetSessionPath() string {
	return filepath.Join(filepath.Dir(c.ConfigPath), "session.json")
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	dir := HomeDir()
	return &Config{
		AWSRegion:          "us-west-2",
		TableName:          "jotvault_records",
		VaultPath:          filepath.Join(dir, "vault.json"),
		BackupDir:          filepath.Join(dir, "backups"),
		VaultKDF:           crypto.DefaultKDFParams(),
		KeySource:          secrets.SourceBundle,
		FieldKeySecretName: "jotvault/field-key",
		Store:              StoreFile,
		StorePath:          filepath.Join(dir, "records.json"),
		LogLevel:           "warn",
		SessionTimeout:     session.DefaultSessionTimeout.String(),
		ConfigPath:         filepath.Join(dir, "config.json"),
	}
}

// LoadConfig loads the optional .env file, the JSON config file and then
// JOTVAULT_* environment overrides, in that order
func LoadConfig() (*Config, error) {
	if err := LoadDotEnv(); err != nil {
		return nil, err
	}
	return Load(DefaultConfig().ConfigPath)
}

// Load reads the config file at path over the defaults and applies
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.ConfigPath = path

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads JOTVAULT_ENV_FILE, or .env in the jotvault home. Values
// already present in the environment win. A missing file is ignored.
func LoadDotEnv() error {
	path := os.Getenv("JOTVAULT_ENV_FILE")
	if path == "" {
		path = filepath.Join(HomeDir(), ".env")
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	for env, dst := range map[string]*string{
		"JOTVAULT_AWS_REGION":            &c.AWSRegion,
		"JOTVAULT_TABLE_NAME":            &c.TableName,
		"JOTVAULT_VAULT_PATH":            &c.VaultPath,
		"JOTVAULT_BACKUP_DIR":            &c.BackupDir,
		"JOTVAULT_KEY_SOURCE":            &c.KeySource,
		"JOTVAULT_FIELD_KEY_SECRET_NAME": &c.FieldKeySecretName,
		"JOTVAULT_STORE":                 &c.Store,
		"JOTVAULT_STORE_PATH":            &c.StorePath,
		"JOTVAULT_LOG_LEVEL":             &c.LogLevel,
		"JOTVAULT_SESSION_TIMEOUT":       &c.SessionTimeout,
	} {
		if v, ok := os.LookupEnv(env); ok && v != "" {
			*dst = v
		}
	}

	switch v := os.Getenv("JOTVAULT_VAULT_KDF"); v {
	case "":
	case crypto.AlgoPBKDF2SHA256:
		c.VaultKDF = crypto.DefaultKDFParams()
	case crypto.AlgoArgon2id:
		c.VaultKDF = crypto.DefaultArgon2idParams()
	default:
		return fmt.Errorf("invalid JOTVAULT_VAULT_KDF %q", v)
	}
	if v := os.Getenv("JOTVAULT_VAULT_KDF_ITERATIONS"); v != "" {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return fmt.Errorf("invalid JOTVAULT_VAULT_KDF_ITERATIONS: %w", err)
		}
		c.VaultKDF.Iterations = uint32(n)
	}
	return nil
}

// Validate checks enumerated settings and KDF strength
func (c *Config) Validate() error {
	switch c.KeySource {
	case secrets.SourceEnv, secrets.SourceBundle, secrets.SourceSecretsManager:
	default:
		return fmt.Errorf("invalid key_source %q", c.KeySource)
	}
	switch c.Store {
	case StoreDynamoDB, StoreFile, StoreMemory:
	default:
		return fmt.Errorf("invalid store %q", c.Store)
	}
	if err := c.VaultKDF.Validate(); err != nil {
		return fmt.Errorf("invalid vault_kdf: %w", err)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if _, err := c.Timeout(); err != nil {
		return err
	}
	return nil
}

// Timeout returns the parsed session timeout
func (c *Config) Timeout() (time.Duration, error) {
	if c.SessionTimeout == "" {
		return session.DefaultSessionTimeout, nil
	}
	d, err := time.ParseDuration(c.SessionTimeout)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid session_timeout %q", c.SessionTimeout)
	}
	return d, nil
}

// DefaultStoreURL builds the store URL offered during init
func (c *Config) DefaultStoreURL() string {
	switch c.Store {
	case StoreDynamoDB:
		u := url.URL{Scheme: "dynamodb", Host: c.TableName}
		if c.AWSRegion != "" {
			u.RawQuery = url.Values{"region": {c.AWSRegion}}.Encode()
		}
		return u.String()
	case StoreMemory:
		return "memory://"
	default:
		return (&url.URL{Scheme: "file", Path: filepath.ToSlash(c.StorePath)}).String()
	}
}

// SaveConfig saves configuration to file
func (c *Config) SaveConfig() error {
	dir := filepath.Dir(c.ConfigPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(c.ConfigPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
