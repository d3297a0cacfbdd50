package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Logging
	LogLevel  string
	LogFormat string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Admin API
	JWTSecret         string
	AdminPasswordHash string
	CORSOrigin        string

	// Scheduler
	SchedulerInterval time.Duration
	StageTimeout      time.Duration

	// Gemini AI
	GeminiAPIKey         string
	GeminiModel          string
	GeminiConcurrentReqs int
	NumScenes            int

	// Volcengine Ark (image + video generation)
	ArkAPIKey         string
	ArkBaseURL        string
	ArkImageModel     string
	ArkVideoModel     string
	VideoPollInterval time.Duration
	VideoPollAttempts int

	// Storage
	StorageType   string
	StoragePath   string
	PublicBaseURL string

	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool

	// Publishing
	PublishEnabled   bool
	PublishPlatforms []string

	InstagramAccountID   string
	InstagramAccessToken string

	YouTubeClientID     string
	YouTubeClientSecret string
	YouTubeRefreshToken string

	// Pipeline tuning file (YAML)
	SettingsFile string
	Settings     *Settings

	// Warnings collected while loading; logged once the logger exists.
	Warnings []string
}

// Load reads the environment (and an optional .env file) into a Config.
// Every missing required variable is reported in a single error.
func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:      getEnvOrDefault("PORT", "8080"),
		Env:       getEnvOrDefault("ENV", "development"),
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "json"),

		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisURL:          os.Getenv("REDIS_URL"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		CORSOrigin:        getEnvOrDefault("CORS_ORIGIN", "*"),

		SchedulerInterval: getEnvAsDurationOrDefault("SCHEDULER_INTERVAL", time.Minute),
		StageTimeout:      getEnvAsDurationOrDefault("STAGE_TIMEOUT", 30*time.Minute),

		GeminiAPIKey:         os.Getenv("GEMINI_API_KEY"),
		GeminiModel:          getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiConcurrentReqs: getEnvAsIntOrDefault("GEMINI_CONCURRENT_REQUESTS", 2),
		NumScenes:            getEnvAsIntOrDefault("NUM_SCENES", 3),

		ArkAPIKey:         os.Getenv("ARK_API_KEY"),
		ArkBaseURL:        getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		ArkImageModel:     getEnvOrDefault("ARK_IMAGE_MODEL", "doubao-seedream-4-0-250828"),
		ArkVideoModel:     getEnvOrDefault("ARK_VIDEO_MODEL", "doubao-seedance-1-0-pro-250528"),
		VideoPollInterval: getEnvAsDurationOrDefault("VIDEO_POLL_INTERVAL", 10*time.Second),
		VideoPollAttempts: getEnvAsIntOrDefault("VIDEO_POLL_ATTEMPTS", 60),

		StorageType:   getEnvOrDefault("STORAGE_TYPE", "local"),
		StoragePath:   getEnvOrDefault("STORAGE_PATH", "./assets"),
		PublicBaseURL: strings.TrimRight(os.Getenv("PUBLIC_BASE_URL"), "/"),

		MinIOEndpoint:  os.Getenv("MINIO_ENDPOINT"),
		MinIOAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinIOSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinIOBucket:    getEnvOrDefault("MINIO_BUCKET", "shortforge-assets"),
		MinIOUseSSL:    getEnvAsBoolOrDefault("MINIO_USE_SSL", false),

		PublishEnabled:   getEnvAsBoolOrDefault("PUBLISH_ENABLED", false),
		PublishPlatforms: getEnvAsListOrDefault("PUBLISH_PLATFORMS", []string{"youtube", "instagram"}),

		InstagramAccountID:   os.Getenv("INSTAGRAM_ACCOUNT_ID"),
		InstagramAccessToken: os.Getenv("INSTAGRAM_ACCESS_TOKEN"),

		YouTubeClientID:     os.Getenv("YOUTUBE_CLIENT_ID"),
		YouTubeClientSecret: os.Getenv("YOUTUBE_CLIENT_SECRET"),
		YouTubeRefreshToken: os.Getenv("YOUTUBE_REFRESH_TOKEN"),

		SettingsFile: getEnvOrDefault("PIPELINE_SETTINGS_FILE", "pipeline.yaml"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	settings, err := LoadSettings(cfg.SettingsFile)
	if err != nil {
		return nil, err
	}
	cfg.Settings = settings

	return cfg, nil
}

func (c *Config) validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"DATABASE_URL", c.DatabaseURL},
		{"REDIS_URL", c.RedisURL},
		{"JWT_SECRET", c.JWTSecret},
		{"GEMINI_API_KEY", c.GeminiAPIKey},
		{"ARK_API_KEY", c.ArkAPIKey},
	}

	var missing []string
	for _, r := range required {
		if r.value == "" {
			missing = append(missing, r.name)
		}
	}

	if c.StorageType == "minio" {
		for _, r := range []struct {
			name  string
			value string
		}{
			{"MINIO_ENDPOINT", c.MinIOEndpoint},
			{"MINIO_ACCESS_KEY", c.MinIOAccessKey},
			{"MINIO_SECRET_KEY", c.MinIOSecretKey},
		} {
			if r.value == "" {
				missing = append(missing, r.name)
			}
		}
	} else if c.StorageType != "local" {
		return fmt.Errorf("unsupported STORAGE_TYPE %q (expected local or minio)", c.StorageType)
	}

	if len(missing) > 0 {
		return fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}

	if c.NumScenes < 1 {
		return fmt.Errorf("NUM_SCENES must be at least 1, got %d", c.NumScenes)
	}

	if c.InstagramAccountID == "" || c.InstagramAccessToken == "" {
		c.Warnings = append(c.Warnings, "INSTAGRAM_ACCOUNT_ID / INSTAGRAM_ACCESS_TOKEN not set; Instagram publishing will fail")
	}
	if c.AdminPasswordHash == "" {
		c.Warnings = append(c.Warnings, "ADMIN_PASSWORD_HASH not set; admin login is disabled")
	}

	return nil
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func getEnvAsBoolOrDefault(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvAsListOrDefault(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
