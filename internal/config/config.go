package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/llopes04/fieldsync/internal/records"
)

const (
	envPrefix           = "FIELDSYNC"
	defaultHTTPAddress  = "0.0.0.0:8080"
	defaultDatabasePath = "fieldsync.db"
	defaultOfflinePath  = "fieldsync-offline.db"
	defaultLogLevel     = "info"
	defaultTokenIssuer  = "fieldsync-auth"
	defaultAudience     = "fieldsync-api"
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress         string
	DatabasePath        string
	OfflineDatabasePath string
	LogLevel            string

	SessionSigningKey string
	TokenIssuer       string
	TokenAudience     string

	FirestoreProjectID  string
	FirestoreCredential string

	OrderMatchFields []string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("database.offline_path", defaultOfflinePath)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("session.issuer", defaultTokenIssuer)
	configViper.SetDefault("session.audience", defaultAudience)
	configViper.SetDefault("sync.order_match_fields", []string{
		string(records.OrderFieldClient),
		string(records.OrderFieldDate),
		string(records.OrderFieldTechnician),
		string(records.OrderFieldVisitCount),
	})
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:         configViper.GetString("http.address"),
		DatabasePath:        configViper.GetString("database.path"),
		OfflineDatabasePath: configViper.GetString("database.offline_path"),
		LogLevel:            configViper.GetString("log.level"),
		SessionSigningKey:   configViper.GetString("session.signing_secret"),
		TokenIssuer:         configViper.GetString("session.issuer"),
		TokenAudience:       configViper.GetString("session.audience"),
		FirestoreProjectID:  configViper.GetString("firestore.project_id"),
		FirestoreCredential: configViper.GetString("firestore.credentials_path"),
		OrderMatchFields:    configViper.GetStringSlice("sync.order_match_fields"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

// MatchPolicy converts the configured field list into the policy the
// reconciliation engine applies to service orders.
func (c AppConfig) MatchPolicy() records.MatchPolicy {
	fields := make([]records.OrderKeyField, 0, len(c.OrderMatchFields))
	for _, field := range c.OrderMatchFields {
		fields = append(fields, records.OrderKeyField(field))
	}
	return records.MatchPolicy{Fields: fields}
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.SessionSigningKey) == "" {
		return fmt.Errorf("session.signing_secret is required")
	}
	if strings.TrimSpace(c.DatabasePath) == "" {
		return fmt.Errorf("database.path is required")
	}
	if strings.TrimSpace(c.OfflineDatabasePath) == "" {
		return fmt.Errorf("database.offline_path is required")
	}
	if c.OfflineDatabasePath == c.DatabasePath {
		return fmt.Errorf("database.offline_path must differ from database.path")
	}
	for _, field := range c.OrderMatchFields {
		switch records.OrderKeyField(field) {
		case records.OrderFieldClient, records.OrderFieldDate, records.OrderFieldTechnician, records.OrderFieldVisitCount:
		default:
			return fmt.Errorf("sync.order_match_fields: unknown field %q", field)
		}
	}
	return nil
}
