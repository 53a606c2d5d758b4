package models

import (
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

type ThumbnailSize struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

type UploadConfig struct {
	MaxFileSize       int64    `yaml:"max_file_size"`
	AllowedMimeTypes  []string `yaml:"allowed_mime_types"`
	MaxImageDimension int      `yaml:"max_image_dimension"`
	Quality           int      `yaml:"quality"`
	FetchTimeoutSec   int      `yaml:"fetch_timeout_sec"`

	ThumbnailSmall  ThumbnailSize `yaml:"thumbnail_small"`
	ThumbnailMedium ThumbnailSize `yaml:"thumbnail_medium"`
	ThumbnailLarge  ThumbnailSize `yaml:"thumbnail_large"`
}

// FetchTimeout is the hard bound on a single remote image download.
func (u *UploadConfig) FetchTimeout() time.Duration {
	return time.Duration(u.FetchTimeoutSec) * time.Second
}

type Config struct {
	ServerAddr  string `yaml:"server_addr"`
	DatabaseURL string `yaml:"database_url"`
	KafkaBroker string `yaml:"kafka_broker"`
	KafkaTopic  string `yaml:"kafka_topic"`
	StoragePath string `yaml:"storage_path"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`

	Upload UploadConfig `yaml:"upload"`
}

func LoadConfig(path string) (*Config, error) {
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

func (c *Config) applyDefaults() {
	if c.ServerAddr == "" {
		c.ServerAddr = ":8080"
	}
	if c.StoragePath == "" {
		c.StoragePath = "./uploads"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
	u := &c.Upload
	if u.MaxFileSize <= 0 {
		u.MaxFileSize = 10 << 20 // 10MB
	}
	if len(u.AllowedMimeTypes) == 0 {
		u.AllowedMimeTypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}
	}
	if u.MaxImageDimension <= 0 {
		u.MaxImageDimension = 2560
	}
	if u.Quality <= 0 {
		u.Quality = 85
	}
	if u.FetchTimeoutSec <= 0 {
		u.FetchTimeoutSec = 30
	}
	if u.ThumbnailSmall.Width <= 0 {
		u.ThumbnailSmall = ThumbnailSize{Width: 150, Height: 150}
	}
	if u.ThumbnailMedium.Width <= 0 {
		u.ThumbnailMedium = ThumbnailSize{Width: 400, Height: 400}
	}
	if u.ThumbnailLarge.Width <= 0 {
		u.ThumbnailLarge = ThumbnailSize{Width: 800, Height: 800}
	}
}
