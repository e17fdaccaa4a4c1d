package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Renderer  RendererConfig
	Storage   StorageConfig
	Publisher PublisherConfig
	Scheduler SchedulerConfig
	Jobs      JobsConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type DatabaseConfig struct {
	URL string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RendererConfig struct {
	BaseURL    string
	ScratchDir string
	// TimeoutMinutes bounds a single render round trip.
	TimeoutMinutes int
}

type StorageConfig struct {
	// Provider selects the adapter: localfs, gdrive or s3.
	Provider string
	// PublicBaseURL is the fallback when the provider cannot sign URLs.
	PublicBaseURL string
	LocalRoot     string
	GDrive        GDriveConfig
	S3            S3Config
}

type GDriveConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	FolderID     string
}

type S3Config struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
}

type PublisherConfig struct {
	GraphBaseURL    string
	PollIntervalSec int
	MaxPollSec      int
}

type SchedulerConfig struct {
	Enabled     bool
	Timezone    string
	MorningTime string // HH:MM
	EveningTime string // HH:MM
}

type JobsConfig struct {
	Concurrency    int
	MaxAttempts    int
	BaseDelayMs    int
	RetentionHours int
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("DATABASE_URL")
	readSecret("REDIS_PASSWORD")
	readSecret("GDRIVE_CLIENT_SECRET")
	readSecret("GDRIVE_REFRESH_TOKEN")
	readSecret("S3_ACCESS_KEY_ID")
	readSecret("S3_SECRET_ACCESS_KEY")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("database.url", "DATABASE_URL")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("renderer.base_url", "RENDERER_BASE_URL")
	_ = viper.BindEnv("renderer.scratch_dir", "RENDERER_SCRATCH_DIR")
	_ = viper.BindEnv("renderer.timeout_minutes", "RENDERER_TIMEOUT_MINUTES")
	_ = viper.BindEnv("storage.provider", "STORAGE_PROVIDER")
	_ = viper.BindEnv("storage.public_base_url", "STORAGE_PUBLIC_BASE_URL")
	_ = viper.BindEnv("storage.local_root", "STORAGE_LOCAL_ROOT")
	_ = viper.BindEnv("storage.gdrive.client_id", "GDRIVE_CLIENT_ID")
	_ = viper.BindEnv("storage.gdrive.client_secret", "GDRIVE_CLIENT_SECRET")
	_ = viper.BindEnv("storage.gdrive.refresh_token", "GDRIVE_REFRESH_TOKEN")
	_ = viper.BindEnv("storage.gdrive.folder_id", "GDRIVE_FOLDER_ID")
	_ = viper.BindEnv("storage.s3.endpoint", "S3_ENDPOINT")
	_ = viper.BindEnv("storage.s3.region", "S3_REGION")
	_ = viper.BindEnv("storage.s3.access_key_id", "S3_ACCESS_KEY_ID")
	_ = viper.BindEnv("storage.s3.secret_access_key", "S3_SECRET_ACCESS_KEY")
	_ = viper.BindEnv("storage.s3.bucket", "S3_BUCKET")
	_ = viper.BindEnv("publisher.graph_base_url", "PUBLISHER_GRAPH_BASE_URL")
	_ = viper.BindEnv("publisher.poll_interval_sec", "PUBLISHER_POLL_INTERVAL_SEC")
	_ = viper.BindEnv("publisher.max_poll_sec", "PUBLISHER_MAX_POLL_SEC")
	_ = viper.BindEnv("scheduler.enabled", "SCHEDULER_ENABLED")
	_ = viper.BindEnv("scheduler.timezone", "SCHEDULER_TIMEZONE")
	_ = viper.BindEnv("scheduler.morning_time", "SCHEDULER_MORNING_TIME")
	_ = viper.BindEnv("scheduler.evening_time", "SCHEDULER_EVENING_TIME")
	_ = viper.BindEnv("jobs.concurrency", "JOBS_CONCURRENCY")
	_ = viper.BindEnv("jobs.max_attempts", "JOBS_MAX_ATTEMPTS")
	_ = viper.BindEnv("jobs.base_delay_ms", "JOBS_BASE_DELAY_MS")
	_ = viper.BindEnv("jobs.retention_hours", "JOBS_RETENTION_HOURS")

	// Defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("renderer.base_url", "http://localhost:3333")
	viper.SetDefault("renderer.scratch_dir", "/tmp/reelforge")
	viper.SetDefault("renderer.timeout_minutes", 10)
	viper.SetDefault("storage.provider", "localfs")
	viper.SetDefault("storage.local_root", "./data/storage")
	viper.SetDefault("publisher.graph_base_url", "https://graph.facebook.com/v21.0")
	viper.SetDefault("publisher.poll_interval_sec", 5)
	viper.SetDefault("publisher.max_poll_sec", 300)
	viper.SetDefault("scheduler.enabled", true)
	viper.SetDefault("scheduler.timezone", "UTC")
	viper.SetDefault("scheduler.morning_time", "10:00")
	viper.SetDefault("scheduler.evening_time", "18:00")
	viper.SetDefault("jobs.concurrency", 2)
	viper.SetDefault("jobs.max_attempts", 3)
	viper.SetDefault("jobs.base_delay_ms", 5000)
	viper.SetDefault("jobs.retention_hours", 168)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:     viper.GetString("server.port"),
			Env:      viper.GetString("server.env"),
			LogLevel: viper.GetString("server.log_level"),
		},
		Database: DatabaseConfig{
			URL: viper.GetString("database.url"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		Renderer: RendererConfig{
			BaseURL:        viper.GetString("renderer.base_url"),
			ScratchDir:     viper.GetString("renderer.scratch_dir"),
			TimeoutMinutes: viper.GetInt("renderer.timeout_minutes"),
		},
		Storage: StorageConfig{
			Provider:      viper.GetString("storage.provider"),
			PublicBaseURL: viper.GetString("storage.public_base_url"),
			LocalRoot:     viper.GetString("storage.local_root"),
			GDrive: GDriveConfig{
				ClientID:     viper.GetString("storage.gdrive.client_id"),
				ClientSecret: viper.GetString("storage.gdrive.client_secret"),
				RefreshToken: viper.GetString("storage.gdrive.refresh_token"),
				FolderID:     viper.GetString("storage.gdrive.folder_id"),
			},
			S3: S3Config{
				Endpoint:        viper.GetString("storage.s3.endpoint"),
				Region:          viper.GetString("storage.s3.region"),
				AccessKeyID:     viper.GetString("storage.s3.access_key_id"),
				SecretAccessKey: viper.GetString("storage.s3.secret_access_key"),
				Bucket:          viper.GetString("storage.s3.bucket"),
			},
		},
		Publisher: PublisherConfig{
			GraphBaseURL:    viper.GetString("publisher.graph_base_url"),
			PollIntervalSec: viper.GetInt("publisher.poll_interval_sec"),
			MaxPollSec:      viper.GetInt("publisher.max_poll_sec"),
		},
		Scheduler: SchedulerConfig{
			Enabled:     viper.GetBool("scheduler.enabled"),
			Timezone:    viper.GetString("scheduler.timezone"),
			MorningTime: viper.GetString("scheduler.morning_time"),
			EveningTime: viper.GetString("scheduler.evening_time"),
		},
		Jobs: JobsConfig{
			Concurrency:    viper.GetInt("jobs.concurrency"),
			MaxAttempts:    viper.GetInt("jobs.max_attempts"),
			BaseDelayMs:    viper.GetInt("jobs.base_delay_ms"),
			RetentionHours: viper.GetInt("jobs.retention_hours"),
		},
	}

	return cfg, nil
}
