package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"server"`

	Storage struct {
		UploadDir    string        `yaml:"upload_dir"`
		ConvertedDir string        `yaml:"converted_dir"`
		KeepLocal    bool          `yaml:"keep_local"`
		LocalTTL     time.Duration `yaml:"local_ttl"`
	} `yaml:"storage"`

	Converter struct {
		SofficePath string        `yaml:"soffice_path"`
		Workers     int           `yaml:"workers"`
		QueueSize   int           `yaml:"queue_size"`
		Timeout     time.Duration `yaml:"timeout"`
	} `yaml:"converter"`

	Minio struct {
		Endpoint  string `yaml:"endpoint"`
		AccessKey string `yaml:"access_key"`
		SecretKey string `yaml:"secret_key"`
		Bucket    string `yaml:"bucket"`
		Secure    bool   `yaml:"secure"`
	} `yaml:"minio"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Logging struct {
		Dir    string `yaml:"dir"`
		AppLog string `yaml:"app_log"`
		Level  string `yaml:"level"`
	} `yaml:"logging"`

	Sweeper struct {
		Interval      time.Duration `yaml:"interval"`
		ShutdownGrace time.Duration `yaml:"shutdown_grace"`
	} `yaml:"sweeper"`
}

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a configuration with all defaults applied, for running
// without a config file.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.UploadDir == "" {
		cfg.Storage.UploadDir = "./uploads"
	}
	if cfg.Storage.ConvertedDir == "" {
		cfg.Storage.ConvertedDir = "./converted"
	}
	if cfg.Storage.LocalTTL == 0 {
		cfg.Storage.LocalTTL = 24 * time.Hour
	}
	if cfg.Converter.SofficePath == "" {
		cfg.Converter.SofficePath = "soffice"
	}
	if cfg.Converter.Workers == 0 {
		cfg.Converter.Workers = 3
	}
	if cfg.Converter.QueueSize == 0 {
		cfg.Converter.QueueSize = 64
	}
	if cfg.Converter.Timeout == 0 {
		cfg.Converter.Timeout = 5 * time.Minute
	}
	if cfg.Minio.Endpoint == "" {
		cfg.Minio.Endpoint = "localhost:9000"
	}
	if cfg.Minio.AccessKey == "" {
		cfg.Minio.AccessKey = "minio"
	}
	if cfg.Minio.SecretKey == "" {
		cfg.Minio.SecretKey = "minio"
	}
	if cfg.Minio.Bucket == "" {
		cfg.Minio.Bucket = "converted-files"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./data/docconvert.db"
	}
	if cfg.Logging.Dir == "" {
		cfg.Logging.Dir = "./logs"
	}
	if cfg.Logging.AppLog == "" {
		cfg.Logging.AppLog = "./logs/converter.log"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Sweeper.Interval == 0 {
		cfg.Sweeper.Interval = time.Hour
	}
	if cfg.Sweeper.ShutdownGrace == 0 {
		cfg.Sweeper.ShutdownGrace = 5 * time.Second
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// A missing config file is not an error: the service can run entirely
// env-driven, so defaults are used and the overrides still apply.
func LoadFromEnv(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		cfg = Default()
	}

	// Override with environment variables if set
	if soffice := os.Getenv("LIBRE_OFFICE_PATH"); soffice != "" {
		cfg.Converter.SofficePath = soffice
	}
	if workers := os.Getenv("MAX_LIBREOFFICE_PROCESSES"); workers != "" {
		if val, err := strconv.Atoi(workers); err == nil && val > 0 {
			cfg.Converter.Workers = val
		}
	}
	if endpoint := os.Getenv("MINIO_ENDPOINT"); endpoint != "" {
		cfg.Minio.Endpoint = endpoint
	}
	if accessKey := os.Getenv("MINIO_ACCESS_KEY"); accessKey != "" {
		cfg.Minio.AccessKey = accessKey
	}
	if secretKey := os.Getenv("MINIO_SECRET_KEY"); secretKey != "" {
		cfg.Minio.SecretKey = secretKey
	}
	if dbPath := os.Getenv("DB_PATH"); dbPath != "" {
		cfg.Database.Path = dbPath
	}
	if logDir := os.Getenv("LOG_DIR"); logDir != "" {
		cfg.Logging.Dir = logDir
		cfg.Logging.AppLog = logDir + "/converter.log"
	}

	return cfg, nil
}
