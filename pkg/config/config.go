package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Keycloak      KeycloakConfig
	TenantManager TenantManagerConfig
	ControlPlane  ControlPlaneConfig
	IdentityHub   IdentityHubConfig
	DataPlane     DataPlaneConfig
	Vault         VaultConfig
	JWT           JWTConfig
	Log           LogConfig
	Metrics       MetricsConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port string
	Env  string
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	LogLevel        string
}

// KeycloakConfig holds the token endpoint used for the client-credentials
// grant and the administrative client used for admin-scoped management calls.
type KeycloakConfig struct {
	TokenURL          string
	AdminClientID     string
	AdminClientSecret string
}

// TenantManagerConfig holds the base URL of the fleet/tenant manager API
type TenantManagerConfig struct {
	URL string
}

// ControlPlaneConfig holds the base URL of the connector management API
type ControlPlaneConfig struct {
	URL string
}

// IdentityHubConfig holds the base URL of the identity hub API
type IdentityHubConfig struct {
	URL string
}

// DataPlaneConfig holds the public (download) and internal (upload) base URLs
type DataPlaneConfig struct {
	PublicURL   string
	InternalURL string
}

// VaultConfig holds the secret store configuration
type VaultConfig struct {
	Address   string
	Token     string
	MountPath string
}

// JWTConfig holds the signing key used to validate inbound bearer tokens
type JWTConfig struct {
	SigningKey string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
}

// MetricsConfig holds metrics-related configuration
type MetricsConfig struct {
	Prefix string
}

// Load loads the application configuration from environment variables
func Load() (*Config, error) {
	// Load environment variables from .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Env:  getEnv("APP_ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Name:            getEnv("DB_NAME", "redline_db"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 1*time.Hour),
			LogLevel:        getEnv("DB_LOG_LEVEL", "info"),
		},
		Keycloak: KeycloakConfig{
			TokenURL:          getEnv("KEYCLOAK_TOKEN_URL", "http://keycloak.localhost/realms/edcv/protocol/openid-connect/token"),
			AdminClientID:     getEnv("CONTROLPLANE_ADMIN_CLIENT_ID", "admin"),
			AdminClientSecret: getEnv("CONTROLPLANE_ADMIN_CLIENT_SECRET", "edc-v-admin-secret"),
		},
		TenantManager: TenantManagerConfig{
			URL: getEnv("TENANT_MANAGER_URL", "http://tm.localhost"),
		},
		ControlPlane: ControlPlaneConfig{
			URL: getEnv("CONTROLPLANE_URL", "http://cp.localhost/api/mgmt/v4alpha"),
		},
		IdentityHub: IdentityHubConfig{
			URL: getEnv("IDENTITYHUB_URL", "http://ih.localhost/cs"),
		},
		DataPlane: DataPlaneConfig{
			PublicURL:   getEnv("DATAPLANE_URL", "http://dp.localhost/app/public/api/data"),
			InternalURL: getEnv("DATAPLANE_INTERNAL_URL", "http://dp.localhost/app/internal/api/control"),
		},
		Vault: VaultConfig{
			Address:   getEnv("VAULT_ADDR", "http://vault.localhost:8200"),
			Token:     getEnv("VAULT_TOKEN", ""),
			MountPath: getEnv("VAULT_MOUNT_PATH", "secret"),
		},
		JWT: JWTConfig{
			SigningKey: getEnv("JWT_SIGNING_KEY", "redlineservicesecretkey"),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Metrics: MetricsConfig{
			Prefix: getEnv("METRICS_PREFIX", "redline"),
		},
	}, nil
}

// Helper functions to get environment variables with defaults
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
