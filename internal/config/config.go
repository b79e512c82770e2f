package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port           int      `yaml:"port"`
		MaxUploadMB    int64    `yaml:"maxUploadMB"`
		AllowedOrigins []string `yaml:"allowedOrigins"`
		APIKeys        []string `yaml:"apiKeys"`
		RateLimit      struct {
			Capacity   int `yaml:"capacity"`
			RefillRate int `yaml:"refillRate"`
		} `yaml:"rateLimit"`
	} `yaml:"server"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	Locker struct {
		Root   string `yaml:"root"`
		Retain bool   `yaml:"retain"`
	} `yaml:"locker"`

	Database struct {
		Driver   string `yaml:"driver"` // memory | mysql | postgres
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
		Capacity int    `yaml:"capacity"`
	} `yaml:"database"`

	Minio struct {
		Enabled    bool   `yaml:"enabled"`
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	AI struct {
		Provider       string        `yaml:"provider"` // auto | openai | gemini | offline
		OpenAIKey      string        `yaml:"openaiKey"`
		OpenAIModel    string        `yaml:"openaiModel"`
		OpenAIBaseURL  string        `yaml:"openaiBaseURL"`
		GeminiKey      string        `yaml:"geminiKey"`
		GeminiModel    string        `yaml:"geminiModel"`
		GeminiBaseURL  string        `yaml:"geminiBaseURL"`
		BatchSize      int           `yaml:"batchSize"`
		MaxBatchChars  int           `yaml:"maxBatchChars"`
		MaxPromptChars int           `yaml:"maxPromptChars"`
		Timeout        time.Duration `yaml:"timeout"`
	} `yaml:"ai"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	var c Config
	c.applyDefaults()
	return &c
}

// Load reads .env (if any) into the environment, then the yaml file at path.
// A missing file is not an error. Environment variables win over the file.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, err
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.AI.OpenAIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.AI.GeminiKey = v
	}
	if v := os.Getenv("FORENSIQ_DB_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv("FORENSIQ_AI_PROVIDER"); v != "" {
		c.AI.Provider = v
	}
	if v := os.Getenv("FORENSIQ_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 5000
	}
	if c.Server.MaxUploadMB == 0 {
		c.Server.MaxUploadMB = 64
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}
	if c.Server.RateLimit.Capacity == 0 {
		c.Server.RateLimit.Capacity = 10
	}
	if c.Server.RateLimit.RefillRate == 0 {
		c.Server.RateLimit.RefillRate = 1
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Locker.Root == "" {
		c.Locker.Root = "Evidence"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "memory"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.AI.Provider == "" {
		c.AI.Provider = "auto"
	}
	if c.AI.Timeout == 0 {
		c.AI.Timeout = 60 * time.Second
	}
}

// MaxUploadBytes is the multipart body limit of /analyze.
func (c *Config) MaxUploadBytes() int64 {
	return c.Server.MaxUploadMB << 20
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}
