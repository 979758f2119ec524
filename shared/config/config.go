package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	YouTube    YouTubeConfig    `yaml:"youtube"`
	AI         AIConfig         `yaml:"ai"`
	Comments   CommentsConfig   `yaml:"comments"`
	Server     ServerConfig     `yaml:"server"`
	Digest     DigestConfig     `yaml:"digest"`
	Email      EmailConfig      `yaml:"email"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Log        LogConfig        `yaml:"log"`
}

// YouTubeConfig holds the Data API credential. APIKey is the normal path; an
// OAuth client plus a cached token file is accepted instead.
type YouTubeConfig struct {
	APIKey       string `yaml:"api_key" env:"YOUTUBE_API_KEY"`
	ClientID     string `yaml:"client_id" env:"GOOGLE_CLIENT_ID"`
	ClientSecret string `yaml:"client_secret" env:"GOOGLE_CLIENT_SECRET"`
	TokenFile    string `yaml:"token_file"`
}

// UsesOAuth reports whether the OAuth token file should be used instead of the API key.
func (y YouTubeConfig) UsesOAuth() bool {
	return y.APIKey == "" && y.ClientID != "" && y.ClientSecret != ""
}

type AIConfig struct {
	GeminiAPIKey string `yaml:"gemini_api_key" env:"GEMINI_API_KEY"`
	Model        string `yaml:"model"`
	ChartModel   string `yaml:"chart_model"`

	AnalysisTemperature float32 `yaml:"analysis_temperature"`
	AnalysisMaxTokens   int32   `yaml:"analysis_max_tokens"`
	ChartTemperature    float32 `yaml:"chart_temperature"`
	ChartMaxTokens      int32   `yaml:"chart_max_tokens"`

	SampleSize       int   `yaml:"sample_size"`
	MaxCommentLength int   `yaml:"max_comment_length"`
	Seed             int64 `yaml:"seed"` // 0 picks a time-based seed

	PromptsFile string `yaml:"prompts_file"` // empty uses the built-in catalogue
}

type CommentsConfig struct {
	MaxPerVideo     int           `yaml:"max_per_video"`
	SweepDelay      time.Duration `yaml:"sweep_delay"`
	SweepVideoLimit int           `yaml:"sweep_video_limit"` // 0 sweeps every upload
}

type ServerConfig struct {
	Port               int    `yaml:"port"`
	CORSOrigins        string `yaml:"cors_origins"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute"` // 0 disables the limiter
}

type DigestConfig struct {
	Schedule  string        `yaml:"schedule"`
	Channels  []string      `yaml:"channels"`
	MaxVideos int           `yaml:"max_videos"`
	DataDir   string        `yaml:"data_dir"`
	Retention time.Duration `yaml:"retention"`
	SendEmail bool          `yaml:"send_email"`
}

type EmailConfig struct {
	SMTPServer string `yaml:"smtp_server"`
	SMTPPort   int    `yaml:"smtp_port"`
	Username   string `yaml:"username" env:"EMAIL_USERNAME"`
	Password   string `yaml:"password" env:"EMAIL_PASSWORD"`
	FromEmail  string `yaml:"from_email"`
	ToEmail    string `yaml:"to_email"`
}

type MonitoringConfig struct {
	HealthPort int `yaml:"health_port"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// DefaultPath is the config file named by CONFIG_FILE, or config.yaml.
func DefaultPath() string {
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		return path
	}
	return "config.yaml"
}

// LoadFile reads .env, then the YAML file at configFile, fills secrets from
// the environment and applies defaults. A missing config file is not an error:
// environment variables alone are enough to run the API.
func LoadFile(configFile string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(configFile)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configFile, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyEnv() {
	setFromEnv(&c.YouTube.APIKey, "YOUTUBE_API_KEY")
	setFromEnv(&c.YouTube.ClientID, "GOOGLE_CLIENT_ID")
	setFromEnv(&c.YouTube.ClientSecret, "GOOGLE_CLIENT_SECRET")
	setFromEnv(&c.AI.GeminiAPIKey, "GEMINI_API_KEY")
	setFromEnv(&c.Email.Username, "EMAIL_USERNAME")
	setFromEnv(&c.Email.Password, "EMAIL_PASSWORD")
	setFromEnv(&c.Log.Level, "LOG_LEVEL")
}

func setFromEnv(field *string, key string) {
	if *field == "" {
		*field = os.Getenv(key)
	}
}

func (c *Config) applyDefaults() {
	if c.YouTube.TokenFile == "" {
		c.YouTube.TokenFile = "youtube_token.json"
	}

	if c.AI.Model == "" {
		c.AI.Model = "gemini-2.5-flash"
	}
	if c.AI.ChartModel == "" {
		c.AI.ChartModel = c.AI.Model
	}
	if c.AI.AnalysisTemperature == 0 {
		c.AI.AnalysisTemperature = 0.5
	}
	if c.AI.AnalysisMaxTokens == 0 {
		c.AI.AnalysisMaxTokens = 4000
	}
	if c.AI.ChartTemperature == 0 {
		c.AI.ChartTemperature = 0.7
	}
	if c.AI.ChartMaxTokens == 0 {
		c.AI.ChartMaxTokens = 100
	}
	if c.AI.SampleSize == 0 {
		c.AI.SampleSize = 100
	}
	if c.AI.MaxCommentLength == 0 {
		c.AI.MaxCommentLength = 200
	}

	if c.Comments.MaxPerVideo == 0 {
		c.Comments.MaxPerVideo = 100
	}
	if c.Comments.SweepDelay == 0 {
		c.Comments.SweepDelay = 100 * time.Millisecond
	}

	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Server.CORSOrigins == "" {
		c.Server.CORSOrigins = "http://localhost:3000"
	}

	if c.Digest.Schedule == "" {
		c.Digest.Schedule = "0 0 9 * * *" // Daily at 9 AM
	}
	if c.Digest.MaxVideos == 0 {
		c.Digest.MaxVideos = 50
	}
	if c.Digest.DataDir == "" {
		c.Digest.DataDir = "data"
	}
	if c.Digest.Retention == 0 {
		c.Digest.Retention = 30 * 24 * time.Hour
	}

	if c.Email.SMTPPort == 0 {
		c.Email.SMTPPort = 587
	}

	if c.Monitoring.HealthPort == 0 {
		c.Monitoring.HealthPort = 8080
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks what every entrypoint needs: a YouTube credential and a Gemini key.
func (c *Config) Validate() error {
	if c.YouTube.APIKey == "" && !c.YouTube.UsesOAuth() {
		return fmt.Errorf("YouTube API key is required (set YOUTUBE_API_KEY or youtube.api_key)")
	}
	if c.AI.GeminiAPIKey == "" {
		return fmt.Errorf("Gemini API key is required (set GEMINI_API_KEY or ai.gemini_api_key)")
	}
	return nil
}

// ValidateDigest checks the settings only the scheduled digest uses.
func (c *Config) ValidateDigest() error {
	if len(c.Digest.Channels) == 0 {
		return fmt.Errorf("at least one channel is required (digest.channels)")
	}
	if c.Digest.SendEmail {
		if c.Email.SMTPServer == "" {
			return fmt.Errorf("SMTP server is required when digest.send_email is set (email.smtp_server)")
		}
		if c.Email.Username == "" {
			return fmt.Errorf("Email username is required (set EMAIL_USERNAME or email.username)")
		}
		if c.Email.Password == "" {
			return fmt.Errorf("Email password is required (set EMAIL_PASSWORD or email.password)")
		}
		if c.Email.ToEmail == "" {
			return fmt.Errorf("recipient is required (email.to_email)")
		}
	}
	return nil
}
