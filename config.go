package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// Storage backends names.
const (
	MemoryBackend = "memory"
	SQLiteBackend = "sqlite"
	BoltBackend   = "bolt"
	RedisBackend  = "redis"
)

const (
	DefaultConfigFile    = "./config.yml"
	DefaultConfigEnvFile = "./config.env"
	ConfigEnvPrefix      = "BSHF"
)

// Config defines the structure of the configuration file.
type Config struct {
	GitCommit          string        `yaml:"git_commit" envconfig:"BSHF_GIT_COMMIT" json:"git_commit"`
	GitTag             string        `yaml:"git_tag" envconfig:"BSHF_GIT_TAG" json:"git_tag"`
	BuildTime          string        `yaml:"build_time" envconfig:"BSHF_BUILD_TIME" json:"build_time"`
	IsProduction       bool          `yaml:"is_production" envconfig:"BSHF_IS_PRODUCTION" json:"is_production"`
	LogLevel           zapcore.Level `yaml:"log_level" envconfig:"BSHF_LOG_LEVEL" json:"log_level"`
	LogFolder          string        `yaml:"log_folder" envconfig:"BSHF_LOG_FOLDER" json:"log_folder"`
	LogMaxSize         int           `yaml:"log_max_size" envconfig:"BSHF_LOG_MAX_SIZE" json:"log_max_size"`
	ProfilerEnable     bool          `yaml:"profiler_enable" envconfig:"BSHF_PROFILER_ENABLE" json:"profiler_enable"`
	OpsEndpointsEnable bool          `yaml:"ops_endpoints_enable" envconfig:"BSHF_OPS_ENDPOINTS_ENABLE" json:"ops_endpoints_enable"`
	Server             ServerConfig  `yaml:"server" json:"server"`
	Storage            StorageConfig `yaml:"storage" json:"storage"`
	Catalog            CatalogConfig `yaml:"catalog" json:"catalog"`
	Users              UsersConfig   `yaml:"users" json:"users"`
	Mirror             MirrorConfig  `yaml:"mirror" json:"mirror"`
	Redis              RedisConfig   `yaml:"redis" json:"redis"`
	BoltDB             BoltDBConfig  `yaml:"boltdb" json:"boltdb"`
	SQLite             SQLiteConfig  `yaml:"sqlite" json:"sqlite"`
}

type ServerConfig struct {
	Host                    string        `yaml:"host" envconfig:"BSHF_SERVER_HOST" json:"host"`
	Port                    string        `yaml:"port" envconfig:"BSHF_SERVER_PORT" json:"port"`
	ReadTimeout             time.Duration `yaml:"read_timeout" envconfig:"BSHF_SERVER_READ_TIMEOUT" json:"read_timeout"`
	WriteTimeout            time.Duration `yaml:"write_timeout" envconfig:"BSHF_SERVER_WRITE_TIMEOUT" json:"write_timeout"`
	LongRequestWriteTimeout time.Duration `yaml:"long_request_write_timeout" envconfig:"BSHF_SERVER_LONG_REQUEST_WRITE_TIMEOUT" json:"long_request_write_timeout"`
	RequestTimeout          time.Duration `yaml:"request_timeout" envconfig:"BSHF_SERVER_REQUEST_TIMEOUT" json:"request_timeout"` // Time to wait for a request to finish
	ShutdownTimeout         time.Duration `yaml:"shutdown_timeout" envconfig:"BSHF_SERVER_SHUTDOWN_TIMEOUT" json:"shutdown_timeout"`
	RateLimit               float64       `yaml:"rate_limit" envconfig:"BSHF_SERVER_RATE_LIMIT" json:"rate_limit"` // requests per second and per client, 0 disables
	RateBurst               int           `yaml:"rate_burst" envconfig:"BSHF_SERVER_RATE_BURST" json:"rate_burst"`
}

type StorageConfig struct {
	Backend string `yaml:"backend" envconfig:"BSHF_STORAGE_BACKEND" json:"backend"`
}

type CatalogConfig struct {
	DefaultUserID int64 `yaml:"default_user_id" envconfig:"BSHF_CATALOG_DEFAULT_USER_ID" json:"default_user_id"`
	SeedOnStart   bool  `yaml:"seed_on_start" envconfig:"BSHF_CATALOG_SEED_ON_START" json:"seed_on_start"`
}

type UsersConfig struct {
	PasswordCost int `yaml:"password_cost" envconfig:"BSHF_USERS_PASSWORD_COST" json:"password_cost"`
}

type MirrorConfig struct {
	Enable bool `yaml:"enable" envconfig:"BSHF_MIRROR_ENABLE" json:"enable"`
}

type RedisConfig struct {
	Host          string        `yaml:"host" envconfig:"BSHF_REDIS_HOST" json:"host"`
	Port          string        `yaml:"port" envconfig:"BSHF_REDIS_PORT" json:"port"`
	DialTimeout   time.Duration `yaml:"dial_timeout" envconfig:"BSHF_REDIS_DIAL_TIMEOUT" json:"dial_timeout"`
	ReadTimeout   time.Duration `yaml:"read_timeout" envconfig:"BSHF_REDIS_READ_TIMEOUT" json:"read_timeout"`
	WriteTimeout  time.Duration `yaml:"write_timeout" envconfig:"BSHF_REDIS_WRITE_TIMEOUT" json:"write_timeout"`
	PoolSize      int           `yaml:"pool_size" envconfig:"BSHF_REDIS_POOL_SIZE" json:"pool_size"`
	PoolTimeout   time.Duration `yaml:"pool_timeout" envconfig:"BSHF_REDIS_POOL_TIMEOUT" json:"pool_timeout"`
	Username      string        `yaml:"username" envconfig:"BSHF_REDIS_USERNAME" json:"-"`
	Password      string        `yaml:"password" envconfig:"BSHF_REDIS_PASSWORD" json:"-"`
	DatabaseIndex int           `yaml:"db_index" envconfig:"BSHF_REDIS_DATABASE_INDEX" json:"db_index"`
}

type BoltDBConfig struct {
	FilePath        string        `yaml:"filepath" envconfig:"BSHF_BOLTDB_FILE_PATH" json:"filepath"`
	MirrorFilePath  string        `yaml:"mirror_filepath" envconfig:"BSHF_BOLTDB_MIRROR_FILE_PATH" json:"mirror_filepath"`
	Timeout         time.Duration `yaml:"timeout" envconfig:"BSHF_BOLTDB_TIMEOUT" json:"timeout"`
	BooksBucketName string        `yaml:"books_bucket_name" envconfig:"BSHF_BOLTDB_BOOKS_BUCKET_NAME" json:"books_bucket_name"`
	UsersBucketName string        `yaml:"users_bucket_name" envconfig:"BSHF_BOLTDB_USERS_BUCKET_NAME" json:"users_bucket_name"`
}

type SQLiteConfig struct {
	FilePath string `yaml:"filepath" envconfig:"BSHF_SQLITE_FILE_PATH" json:"filepath"`
	LogQuery bool   `yaml:"log_query" envconfig:"BSHF_SQLITE_LOG_QUERY" json:"log_query"`
}

// LoadConfigFile provides an instance of config structure for the all application.
func LoadConfigFile(configFile string) (*Config, error) {
	file, err := os.Open(configFile)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	cfg := &Config{}
	yd := yaml.NewDecoder(file)
	err = yd.Decode(cfg)

	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigEnvs reads the environments variables and provides an instance of the App config.
func LoadConfigEnvs(prefix string, config *Config) error {
	return envconfig.Process(prefix, config)
}

// InitConfig setup defaults values for non provided parameters
// and configures build tags values to be used if provided.
func InitConfig(config *Config, gitCommit, gitTag, buildTime string) error {
	if len(gitCommit) != 0 {
		config.GitCommit = gitCommit
	}

	if len(gitTag) != 0 {
		config.GitTag = gitTag
	}

	if len(buildTime) != 0 {
		config.BuildTime = buildTime
	}

	if len(config.Server.Host) == 0 || len(config.Server.Port) == 0 {
		return errors.New("make sure to set valid server address and port in configuration file")
	}

	if config.Storage.Backend == "" {
		config.Storage.Backend = MemoryBackend
	}

	switch config.Storage.Backend {
	case MemoryBackend, SQLiteBackend, BoltBackend, RedisBackend:
	default:
		return fmt.Errorf("unknown storage backend %q", config.Storage.Backend)
	}

	if (config.Storage.Backend == RedisBackend || config.Mirror.Enable) &&
		(len(config.Redis.Host) == 0 || len(config.Redis.Port) == 0) {
		return errors.New("make sure to set valid redis address and port in configuration file")
	}

	if config.Storage.Backend == SQLiteBackend && config.SQLite.FilePath == "" {
		return errors.New("make sure to set the sqlite database file path in configuration file")
	}

	if config.Storage.Backend == BoltBackend && config.BoltDB.FilePath == "" {
		return errors.New("make sure to set the boltdb file path in configuration file")
	}

	if config.Mirror.Enable && config.BoltDB.MirrorFilePath == "" {
		return errors.New("make sure to set the boltdb mirror file path in configuration file")
	}

	if config.Catalog.DefaultUserID <= 0 {
		config.Catalog.DefaultUserID = 1
	}

	if config.Users.PasswordCost == 0 {
		config.Users.PasswordCost = bcrypt.DefaultCost
	}

	if config.Users.PasswordCost < bcrypt.MinCost || config.Users.PasswordCost > bcrypt.MaxCost {
		return fmt.Errorf("password cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}

	if config.BoltDB.BooksBucketName == "" {
		config.BoltDB.BooksBucketName = "books"
	}

	if config.BoltDB.UsersBucketName == "" {
		config.BoltDB.UsersBucketName = "users"
	}

	if config.LogFolder == "" {
		config.LogFolder = "./logs"
	}

	if config.LogMaxSize <= 0 {
		config.LogMaxSize = 10
	}

	if config.Server.RateBurst <= 0 {
		config.Server.RateBurst = 1
	}

	if config.Server.RequestTimeout <= 0 {
		config.Server.RequestTimeout = 10 * time.Second
	}

	if config.Server.ShutdownTimeout <= 0 {
		config.Server.ShutdownTimeout = 30 * time.Second
	}

	return nil
}

// LoadAndInitConfigs loads in order the configs from various predefined sources
// then build the App configuration data. The env file is optional.
func LoadAndInitConfigs(configFile, envFile, gitCommit, gitTag, buildTime string) (*Config, error) {
	// Setup the yaml configuration from file.
	config, err := LoadConfigFile(configFile)
	if err != nil {
		return config, fmt.Errorf("failed to load configurations from file: %w", err)
	}

	// Set the environment configuration.
	err = godotenv.Load(envFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return config, fmt.Errorf("failed to set environment configurations: %w", err)
	}

	// Use environment variables with prefix `BSHF`.
	err = LoadConfigEnvs(ConfigEnvPrefix, config)
	if err != nil {
		return config, fmt.Errorf("failed to load configurations from environment: %w", err)
	}

	err = InitConfig(config, gitCommit, gitTag, buildTime)
	if err != nil {
		return config, fmt.Errorf("failed to initialize configurations: %w", err)
	}
	return config, nil
}
