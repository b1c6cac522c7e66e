package config

import (
	"encoding/json"
	"strings"
	"time"

	"queue-maintenance/internal/shared/errors"

	"github.com/caarlos0/env/v6"
)

// Document store backends
const (
	StoreFirestore = "firestore"
	StoreMongoDB   = "mongodb"
	StoreMemory    = "memory"
)

// ServerConfig holds the static server configuration
type ServerConfig struct {
	Host      string `env:"SERVER_HOST" envDefault:""`
	Port      string `env:"PORT" envDefault:"3000"`
	StaticDir string `env:"STATIC_DIR" envDefault:"dist"`
	IndexFile string `env:"STATIC_INDEX" envDefault:"index.html"`
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// ScheduleConfig holds the reset job schedule.
//
// Cron and Description disagree by default (11:15 vs 12:00 AM); both are kept
// configurable until the intended time is confirmed.
type ScheduleConfig struct {
	Cron        string        `env:"RESET_CRON" envDefault:"15 11 * * *"`
	Timezone    string        `env:"RESET_TIMEZONE" envDefault:"Asia/Kolkata"`
	Description string        `env:"RESET_SCHEDULE_DESCRIPTION" envDefault:"12:00 AM India Standard Time"`
	RunOnStart  bool          `env:"RESET_RUN_ON_START" envDefault:"false"`
	LockTTL     time.Duration `env:"RESET_LOCK_TTL" envDefault:"30m"`

	location *time.Location
}

// Location returns the loaded timezone
func (s ScheduleConfig) Location() *time.Location {
	if s.location == nil {
		return time.UTC
	}
	return s.location
}

// StoreConfig selects and configures the document store
type StoreConfig struct {
	Backend         string `env:"DOCUMENT_STORE" envDefault:"firestore"`
	MongoDBURI      string `env:"MONGODB_URI" envDefault:"mongodb://localhost:27017"`
	MongoDBDatabase string `env:"MONGODB_DATABASE" envDefault:"queue_maintenance"`
}

// FirebaseCredentials is a service-account credential assembled from the
// environment. The JSON tags follow the Google credential file format.
type FirebaseCredentials struct {
	Type                    string `env:"FIREBASE_TYPE" envDefault:"service_account" json:"type"`
	ProjectID               string `env:"FIREBASE_PROJECT_ID,required,notEmpty" json:"project_id"`
	PrivateKeyID            string `env:"FIREBASE_PRIVATE_KEY_ID" json:"private_key_id"`
	PrivateKey              string `env:"FIREBASE_PRIVATE_KEY,required,notEmpty" json:"private_key"`
	ClientEmail             string `env:"FIREBASE_CLIENT_EMAIL,required,notEmpty" json:"client_email"`
	ClientID                string `env:"FIREBASE_CLIENT_ID" json:"client_id"`
	AuthURI                 string `env:"FIREBASE_AUTH_URI" envDefault:"https://accounts.google.com/o/oauth2/auth" json:"auth_uri"`
	TokenURI                string `env:"FIREBASE_TOKEN_URI" envDefault:"https://oauth2.googleapis.com/token" json:"token_uri"`
	AuthProviderX509CertURL string `env:"FIREBASE_AUTH_PROVIDER_X509_CERT_URL" envDefault:"https://www.googleapis.com/oauth2/v1/certs" json:"auth_provider_x509_cert_url"`
	ClientX509CertURL       string `env:"FIREBASE_CLIENT_X509_CERT_URL" json:"client_x509_cert_url"`
}

// JSON renders the credential file contents
func (c FirebaseCredentials) JSON() ([]byte, error) {
	return json.Marshal(c)
}

// RedisConfig configures the optional distributed run lock
type RedisConfig struct {
	Addr      string `env:"REDIS_ADDR" envDefault:""`
	Password  string `env:"REDIS_PASSWORD" envDefault:""`
	Database  int    `env:"REDIS_DB" envDefault:"0"`
	EnableTLS bool   `env:"REDIS_TLS" envDefault:"false"`
	// empty uses lock.DefaultLockKey
	LockKey   string `env:"RESET_LOCK_KEY"`
}

// Enabled reports whether a Redis address was configured
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// Config holds all configuration for the service
type Config struct {
	Server   ServerConfig
	Schedule ScheduleConfig
	Store    StoreConfig
	Redis    RedisConfig
	Firebase *FirebaseCredentials
}

// LoadConfig loads configuration from environment variables and applies defaults.
func LoadConfig() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(&cfg.Server); err != nil {
		return nil, configError("failed to load server configuration", err)
	}
	if err := env.Parse(&cfg.Schedule); err != nil {
		return nil, configError("failed to load schedule configuration", err)
	}
	if err := env.Parse(&cfg.Store); err != nil {
		return nil, configError("failed to load store configuration", err)
	}
	if err := env.Parse(&cfg.Redis); err != nil {
		return nil, configError("failed to load redis configuration", err)
	}

	cfg.Store.Backend = strings.ToLower(strings.TrimSpace(cfg.Store.Backend))
	switch cfg.Store.Backend {
	case StoreFirestore:
		creds := &FirebaseCredentials{}
		if err := env.Parse(creds); err != nil {
			return nil, configError("failed to load firebase credentials", err)
		}
		creds.PrivateKey = normalizePrivateKey(creds.PrivateKey)
		cfg.Firebase = creds
	case StoreMongoDB:
		if cfg.Store.MongoDBURI == "" {
			return nil, errors.NewConfigurationError("MONGODB_URI is required for the mongodb store").
				WithCause(errors.ErrMissingSetting)
		}
	case StoreMemory:
	default:
		return nil, errors.NewConfigurationError("DOCUMENT_STORE must be one of 'firestore', 'mongodb' or 'memory'").
			WithDetail("document_store", cfg.Store.Backend)
	}

	if err := cfg.Schedule.load(); err != nil {
		return nil, err
	}
	if cfg.Server.Port == "" {
		return nil, errors.NewConfigurationError("PORT cannot be empty").WithCause(errors.ErrMissingSetting)
	}

	return cfg, nil
}

func (s *ScheduleConfig) load() error {
	if len(strings.Fields(s.Cron)) != 5 {
		return errors.NewConfigurationError("RESET_CRON must have five fields").
			WithDetail("cron", s.Cron)
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return errors.NewConfigurationError("invalid RESET_TIMEZONE").WithCause(err).
			WithDetail("timezone", s.Timezone)
	}
	s.location = loc
	if s.LockTTL <= 0 {
		s.LockTTL = 30 * time.Minute
	}
	return nil
}

// normalizePrivateKey turns escaped "\n" sequences from single-line env values into newlines
func normalizePrivateKey(key string) string {
	return strings.ReplaceAll(key, `\n`, "\n")
}

func configError(message string, err error) error {
	return errors.NewConfigurationError(message).WithCause(err)
}
