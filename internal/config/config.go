package config

import (
	"github.com/kelseyhightower/envconfig"
)

var singleConfig *Config = nil

type Config struct {
	Database *dbConfig
	Storage  *storageConfig
	Sync     *syncConfig
}

type dbConfig struct {
	Type     string `envconfig:"CLOSET_SYNC_DB_TYPE" default:"sqlite"`
	Hostname string `envconfig:"CLOSET_SYNC_DB_HOST" default:"localhost"`
	Port     string `envconfig:"CLOSET_SYNC_DB_PORT" default:"5432"`
	Name     string `envconfig:"CLOSET_SYNC_DB_NAME" default:"closet"`
	User     string `envconfig:"CLOSET_SYNC_DB_USER" default:"admin"`
	Password string `envconfig:"CLOSET_SYNC_DB_PASS" default:"adminpass"`
	DataDir  string `envconfig:"CLOSET_SYNC_DB_DATA_DIR" default:""`

	Supabase supabaseConfig
}

type storageConfig struct {
	Provider       string `envconfig:"CLOSET_SYNC_STORAGE_PROVIDER" default:"minio"`
	WardrobeBucket string `envconfig:"CLOSET_SYNC_WARDROBE_BUCKET" default:"wardrobe-images"`
	ScanBucket     string `envconfig:"CLOSET_SYNC_SCAN_BUCKET" default:"scan-images"`

	S3       s3Config
	Gcs      gcsConfig
	Supabase supabaseConfig
}

type s3Config struct {
	Endpoint  string `envconfig:"CLOSET_SYNC_S3_ENDPOINT" default:"localhost:9000"`
	AccessKey string `envconfig:"CLOSET_SYNC_S3_ACCESS_KEY" default:""`
	SecretKey string `envconfig:"CLOSET_SYNC_S3_SECRET_KEY" default:""`
	UseSSL    bool   `envconfig:"CLOSET_SYNC_S3_USE_SSL" default:"false"`
}

type gcsConfig struct {
	CredentialsFile string `envconfig:"CLOSET_SYNC_GCS_CREDENTIALS_FILE" default:""`
}

type supabaseConfig struct {
	Url string `envconfig:"CLOSET_SYNC_SUPABASE_URL" default:""`
	Key string `envconfig:"CLOSET_SYNC_SUPABASE_KEY" default:""`
}

type syncConfig struct {
	DataDir         string `envconfig:"CLOSET_SYNC_DATA_DIR" default:"/var/lib/closet-sync"`
	OwnerID         string `envconfig:"CLOSET_SYNC_OWNER_ID" default:""`
	Address         string `envconfig:"CLOSET_SYNC_ADDRESS" default:":8077"`
	LogLevel        string `envconfig:"CLOSET_SYNC_LOG_LEVEL" default:"info"`
	DrainInterval   int64  `envconfig:"CLOSET_SYNC_DRAIN_INTERVAL_SECONDS" default:"60"`
	SweepSchedule   string `envconfig:"CLOSET_SYNC_SWEEP_SCHEDULE" default:"@daily"`
	MaxImageEdge    int    `envconfig:"CLOSET_SYNC_MAX_IMAGE_EDGE" default:"1600"`
	NormalizeImages bool   `envconfig:"CLOSET_SYNC_NORMALIZE_IMAGES" default:"true"`
}

func New() (*Config, error) {
	if singleConfig == nil {
		singleConfig = new(Config)
		if err := envconfig.Process("", singleConfig); err != nil {
			return nil, err
		}
	}
	return singleConfig, nil
}

// NewDefault returns a fresh configuration without touching the process
// wide singleton, useful for tests
func NewDefault() *Config {
	cfg := new(Config)
	if err := envconfig.Process("", cfg); err != nil {
		panic(err)
	}
	return cfg
}
