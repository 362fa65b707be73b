package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Storage     StorageConfig     `mapstructure:"storage"`
	AWS         AWSConfig         `mapstructure:"aws"`
	Queue       QueueConfig       `mapstructure:"queue"`
	Recognition RecognitionConfig `mapstructure:"recognition"`
	Detector    DetectorConfig    `mapstructure:"detector"`
	Ingest      IngestConfig      `mapstructure:"ingest"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

type StorageConfig struct {
	Type      string `mapstructure:"type"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
}

// AWSConfig is shared by the queue and recognition clients. Empty keys fall
// back to the SDK's default credential chain.
type AWSConfig struct {
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Endpoint        string `mapstructure:"endpoint"`
}

type QueueConfig struct {
	URL               string `mapstructure:"url"`
	BatchSize         int    `mapstructure:"batch_size"`
	DelaySeconds      int32  `mapstructure:"delay_seconds"`
	WaitTimeSeconds   int32  `mapstructure:"wait_time_seconds"`
	VisibilityTimeout int32  `mapstructure:"visibility_timeout"`
	MaxMessages       int32  `mapstructure:"max_messages"`
}

type RecognitionConfig struct {
	Collection     string        `mapstructure:"collection"`
	MatchThreshold float32       `mapstructure:"match_threshold"`
	MaxFaces       int32         `mapstructure:"max_faces"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

type DetectorConfig struct {
	Provider string        `mapstructure:"provider"`
	URL      string        `mapstructure:"url"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type IngestConfig struct {
	MaxImageBytes int64         `mapstructure:"max_image_bytes"`
	FetchTimeout  time.Duration `mapstructure:"fetch_timeout"`
	ExcludedSites []string      `mapstructure:"excluded_sites"`
	Workers       int           `mapstructure:"workers"`
	UserAgent     string        `mapstructure:"user_agent"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Names used by the deployed functions' environment
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.name", "DB_NAME")
	v.BindEnv("database.dsn", "DATABASE_URL")
	v.BindEnv("queue.url", "QUEUE_URL")
	v.BindEnv("storage.bucket", "BUCKET")
	v.BindEnv("storage.access_key", "STORAGE_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "STORAGE_SECRET_KEY")
	v.BindEnv("detector.url", "DETECT_FACES_URL")
	v.BindEnv("aws.region", "AWS_REGION")
	v.BindEnv("aws.access_key_id", "AWS_ACCESS_KEY_ID")
	v.BindEnv("aws.secret_access_key", "AWS_SECRET_ACCESS_KEY")
	v.BindEnv("aws.endpoint", "AWS_ENDPOINT_URL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.name", "faces")
	v.SetDefault("database.path", "./data/faces.db")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("storage.type", "s3")
	v.SetDefault("storage.endpoint", "s3.amazonaws.com")
	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("storage.bucket", "faces")

	v.SetDefault("aws.region", "us-east-1")

	v.SetDefault("queue.batch_size", 10)
	v.SetDefault("queue.delay_seconds", 1)
	v.SetDefault("queue.wait_time_seconds", 20)
	v.SetDefault("queue.visibility_timeout", 60)
	v.SetDefault("queue.max_messages", 10)

	v.SetDefault("recognition.collection", "faces")
	v.SetDefault("recognition.match_threshold", 95.0)
	v.SetDefault("recognition.max_faces", 100)
	v.SetDefault("recognition.timeout", 30*time.Second)

	v.SetDefault("detector.provider", "http")
	v.SetDefault("detector.timeout", 10*time.Second)

	v.SetDefault("ingest.max_image_bytes", 5242880)
	v.SetDefault("ingest.fetch_timeout", 15*time.Second)
	v.SetDefault("ingest.excluded_sites", []string{"cdn"})
	v.SetDefault("ingest.workers", 1)
	v.SetDefault("ingest.user_agent", "facefinder/1.0")
}

// Validate checks the cross-field constraints viper cannot express.
// Returns an error describing the first validation failure, or nil if valid.
func (c *Config) Validate() error {
	if c.Queue.BatchSize < 1 || c.Queue.BatchSize > 10 {
		return fmt.Errorf("queue.batch_size must be between 1 and 10, got %d", c.Queue.BatchSize)
	}
	if c.Queue.DelaySeconds < 0 || c.Queue.DelaySeconds > 900 {
		return fmt.Errorf("queue.delay_seconds must be between 0 and 900, got %d", c.Queue.DelaySeconds)
	}
	if c.Recognition.Collection == "" {
		return fmt.Errorf("recognition.collection is required")
	}
	if c.Recognition.MatchThreshold < 0 || c.Recognition.MatchThreshold > 100 {
		return fmt.Errorf("recognition.match_threshold must be between 0 and 100, got %v", c.Recognition.MatchThreshold)
	}
	if c.Recognition.MaxFaces < 1 || c.Recognition.MaxFaces > 4096 {
		return fmt.Errorf("recognition.max_faces must be between 1 and 4096, got %d", c.Recognition.MaxFaces)
	}
	switch c.Detector.Provider {
	case "http":
		if c.Detector.URL == "" {
			return fmt.Errorf("detector.url is required for the http detector (set DETECT_FACES_URL)")
		}
	case "rekognition":
	default:
		return fmt.Errorf("unknown detector.provider %q", c.Detector.Provider)
	}
	if c.Ingest.MaxImageBytes <= 0 {
		return fmt.Errorf("ingest.max_image_bytes must be positive, got %d", c.Ingest.MaxImageBytes)
	}
	if c.Ingest.Workers < 1 {
		return fmt.Errorf("ingest.workers must be at least 1, got %d", c.Ingest.Workers)
	}
	return c.Database.Validate()
}
