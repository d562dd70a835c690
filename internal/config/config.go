package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	ServerAddress  string      `json:"serverAddress"`
	DatabasePath   string      `json:"databasePath"`
	DatabaseURL    string      `json:"databaseUrl"`
	ServiceRoleKey string      `json:"serviceRoleKey"`
	Drive          Drive       `json:"drive"`
	ObjectStore    ObjectStore `json:"objectStore"`
	Sync           Sync        `json:"sync"`
	Telemetry      Telemetry   `json:"telemetry"`
}

// Drive configures access to the external file provider
type Drive struct {
	ServiceAccountJSON string `json:"serviceAccountJson"`
	ServiceAccountFile string `json:"serviceAccountFile"`
	RootFolderID       string `json:"rootFolderId"`
	APIEndpoint        string `json:"apiEndpoint"`
}

// Object store providers
const (
	ObjectStoreMinio = "minio"
	ObjectStoreS3    = "s3"
	ObjectStoreLocal = "local"
)

// ObjectStore configures where image bytes are uploaded
type ObjectStore struct {
	Provider  string `json:"provider"`
	Endpoint  string `json:"endpoint"`
	Bucket    string `json:"bucket"`
	AccessKey string `json:"accessKey"`
	SecretKey string `json:"secretKey"`
	Region    string `json:"region"`
	UseSSL    bool   `json:"useSsl"`
	PublicURL string `json:"publicUrl"`
	LocalPath string `json:"localPath"`
}

const maxFilesPerFolder = 1000

// Sync tunes the media sync job
type Sync struct {
	MaxFilesPerFolder  int `json:"maxFilesPerFolder"`
	Workers            int `json:"workers"`
	FileTimeoutSeconds int `json:"fileTimeoutSeconds"`
	RunTimeoutSeconds  int `json:"runTimeoutSeconds"`
}

// FileTimeout returns the per-file transfer budget
func (s Sync) FileTimeout() time.Duration {
	return time.Duration(s.FileTimeoutSeconds) * time.Second
}

// RunTimeout returns the whole-run deadline
func (s Sync) RunTimeout() time.Duration {
	return time.Duration(s.RunTimeoutSeconds) * time.Second
}

// Telemetry configures OpenTelemetry export
type Telemetry struct {
	Enabled      bool   `json:"enabled"`
	OTLPEndpoint string `json:"otlpEndpoint"`
	Environment  string `json:"environment"`
}

// UsePostgres returns true if PostgreSQL should be used
func (c *Config) UsePostgres() bool {
	return c.DatabaseURL != ""
}

// ServiceAccountKey returns the inline service-account key, or the contents of the key file.
// An empty result with a nil error means no credential is configured.
func (d Drive) ServiceAccountKey() ([]byte, error) {
	if strings.TrimSpace(d.ServiceAccountJSON) != "" {
		return []byte(d.ServiceAccountJSON), nil
	}
	if d.ServiceAccountFile == "" {
		return nil, nil
	}
	data, err := os.ReadFile(d.ServiceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return data, nil
}

func defaultConfig() *Config {
	return &Config{
		ServerAddress: ":8080",
		DatabasePath:  "mediasync.db",
		ObjectStore: ObjectStore{
			Provider:  ObjectStoreLocal,
			Bucket:    "gallery",
			Region:    "us-east-1",
			LocalPath: "./gallery",
		},
		Sync: Sync{
			MaxFilesPerFolder:  100,
			Workers:            1,
			FileTimeoutSeconds: 60,
			RunTimeoutSeconds:  900,
		},
		Telemetry: Telemetry{
			OTLPEndpoint: "localhost:4317",
			Environment:  "development",
		},
	}
}

// Load loads configuration from defaults, an optional JSON file, then the environment
func Load() (*Config, error) {
	cfg := defaultConfig()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.json"
	}

	if data, err := os.ReadFile(configPath); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", configPath, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.ObjectStore.Provider == ObjectStoreLocal {
		absPath, err := filepath.Abs(cfg.ObjectStore.LocalPath)
		if err != nil {
			return nil, err
		}
		cfg.ObjectStore.LocalPath = absPath
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.ServerAddress, "SERVER_ADDRESS")
	setString(&cfg.DatabasePath, "DATABASE_PATH")
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.ServiceRoleKey, "SERVICE_ROLE_KEY")

	setString(&cfg.Drive.ServiceAccountJSON, "GOOGLE_SERVICE_ACCOUNT_JSON")
	setString(&cfg.Drive.ServiceAccountFile, "GOOGLE_SERVICE_ACCOUNT_FILE")
	setString(&cfg.Drive.RootFolderID, "DRIVE_ROOT_FOLDER_ID")
	setString(&cfg.Drive.APIEndpoint, "DRIVE_API_ENDPOINT")

	setString(&cfg.ObjectStore.Provider, "OBJECT_STORE_PROVIDER")
	setString(&cfg.ObjectStore.Endpoint, "OBJECT_STORE_ENDPOINT")
	setString(&cfg.ObjectStore.Bucket, "OBJECT_STORE_BUCKET")
	setString(&cfg.ObjectStore.AccessKey, "OBJECT_STORE_ACCESS_KEY")
	setString(&cfg.ObjectStore.SecretKey, "OBJECT_STORE_SECRET_KEY")
	setString(&cfg.ObjectStore.Region, "OBJECT_STORE_REGION")
	setString(&cfg.ObjectStore.PublicURL, "OBJECT_STORE_PUBLIC_URL")
	setString(&cfg.ObjectStore.LocalPath, "OBJECT_STORE_LOCAL_PATH")
	setBool(&cfg.ObjectStore.UseSSL, "OBJECT_STORE_USE_SSL")

	setPositiveInt(&cfg.Sync.MaxFilesPerFolder, "SYNC_MAX_FILES_PER_FOLDER")
	setPositiveInt(&cfg.Sync.Workers, "SYNC_WORKERS")
	setPositiveInt(&cfg.Sync.FileTimeoutSeconds, "SYNC_FILE_TIMEOUT_SECONDS")
	setPositiveInt(&cfg.Sync.RunTimeoutSeconds, "SYNC_RUN_TIMEOUT_SECONDS")

	setBool(&cfg.Telemetry.Enabled, "OTEL_ENABLED")
	setString(&cfg.Telemetry.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	setString(&cfg.Telemetry.Environment, "ENVIRONMENT")
}

// validate rejects settings the process cannot start with. Missing Drive credentials
// are not checked here: they fail the sync run instead.
func (c *Config) validate() error {
	switch c.ObjectStore.Provider {
	case ObjectStoreMinio, ObjectStoreS3:
		if c.ObjectStore.Bucket == "" {
			return fmt.Errorf("object store %q requires OBJECT_STORE_BUCKET", c.ObjectStore.Provider)
		}
	case ObjectStoreLocal:
		if c.ObjectStore.LocalPath == "" {
			return fmt.Errorf("object store %q requires OBJECT_STORE_LOCAL_PATH", c.ObjectStore.Provider)
		}
	default:
		return fmt.Errorf("unknown OBJECT_STORE_PROVIDER %q", c.ObjectStore.Provider)
	}
	if c.ObjectStore.Provider == ObjectStoreMinio && c.ObjectStore.Endpoint == "" {
		return fmt.Errorf("object store %q requires OBJECT_STORE_ENDPOINT", c.ObjectStore.Provider)
	}

	// Each folder is listed with a single Drive page
	if c.Sync.MaxFilesPerFolder > maxFilesPerFolder {
		return fmt.Errorf("SYNC_MAX_FILES_PER_FOLDER %d exceeds the %d file listing page", c.Sync.MaxFilesPerFolder, maxFilesPerFolder)
	}
	if c.Sync.RunTimeoutSeconds <= 0 {
		return fmt.Errorf("SYNC_RUN_TIMEOUT_SECONDS must be positive, got %d", c.Sync.RunTimeoutSeconds)
	}
	if c.Sync.FileTimeoutSeconds <= 0 {
		return fmt.Errorf("SYNC_FILE_TIMEOUT_SECONDS must be positive, got %d", c.Sync.FileTimeoutSeconds)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v == "true" || v == "1"
	}
}

func setPositiveInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			*dst = n
		}
	}
}
