package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults for optional settings.
const (
	DefaultDownloadDir = "downloads"
	DefaultYtdlp       = "yt-dlp"
	DefaultGalleryDl   = "gallery-dl"
	DefaultFfmpeg      = "ffmpeg"
	DefaultMongoURI    = "mongodb://localhost:27017"
	DefaultDatabase    = "yuklab"
	DefaultLogLevel    = "info"

	// DefaultMaxFileSize is the delivery ceiling for one artifact (2GB).
	DefaultMaxFileSize = 2 * 1024 * 1024 * 1024
)

// Config is the read-only runtime configuration. Values come from an
// optional YAML file with environment variables taking precedence.
type Config struct {
	BotToken string `yaml:"bot_token"`

	Mongo struct {
		URI      string `yaml:"uri"`
		Database string `yaml:"database"`
	} `yaml:"mongo"`

	DownloadDir string `yaml:"download_dir"`
	MaxFileSize int64  `yaml:"max_file_size"`

	Tools struct {
		Ytdlp     string `yaml:"ytdlp"`
		GalleryDl string `yaml:"gallery_dl"`
		Ffmpeg    string `yaml:"ffmpeg"`
	} `yaml:"tools"`

	// TiktokProxy is required in regions where TikTok is blocked, e.g.
	// "http://proxy:port" or "socks5://proxy:port".
	TiktokProxy string `yaml:"tiktok_proxy"`

	// InstagramCookies is the path to a Netscape cookies file; gallery-dl
	// cannot fetch Instagram content without it.
	InstagramCookies string `yaml:"instagram_cookies"`

	ProcessTimeout time.Duration `yaml:"process_timeout"`
	LogLevel       string        `yaml:"log_level"`
}

// Load reads the configuration from path (may be empty for env-only
// operation), applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if cfg.BotToken == "" {
		return nil, fmt.Errorf("bot token is required (BOT_TOKEN)")
	}
	return cfg, nil
}

// applyEnv lets environment variables override file values.
func (c *Config) applyEnv() {
	setString(&c.BotToken, "BOT_TOKEN")
	setString(&c.Mongo.URI, "MONGO_URI")
	setString(&c.Mongo.Database, "MONGO_DATABASE")
	setString(&c.DownloadDir, "DOWNLOAD_DIR")
	setString(&c.Tools.Ytdlp, "YTDLP_PATH")
	setString(&c.Tools.GalleryDl, "GALLERY_DL_PATH")
	setString(&c.Tools.Ffmpeg, "FFMPEG_PATH")
	setString(&c.TiktokProxy, "TIKTOK_PROXY")
	setString(&c.InstagramCookies, "INSTAGRAM_COOKIES_PATH")
	setString(&c.LogLevel, "LOG_LEVEL")

	if v := os.Getenv("MAX_FILE_SIZE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			c.MaxFileSize = n
		}
	}
	if v := os.Getenv("PROCESS_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.ProcessTimeout = d
		}
	}
}

// applyDefaults fills unset values.
func (c *Config) applyDefaults() {
	if c.Mongo.URI == "" {
		c.Mongo.URI = DefaultMongoURI
	}
	if c.Mongo.Database == "" {
		c.Mongo.Database = DefaultDatabase
	}
	if c.DownloadDir == "" {
		c.DownloadDir = DefaultDownloadDir
	}
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = DefaultMaxFileSize
	}
	if c.Tools.Ytdlp == "" {
		c.Tools.Ytdlp = DefaultYtdlp
	}
	if c.Tools.GalleryDl == "" {
		c.Tools.GalleryDl = DefaultGalleryDl
	}
	if c.Tools.Ffmpeg == "" {
		c.Tools.Ffmpeg = DefaultFfmpeg
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
}

// setString overrides dst when the environment variable is set.
func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
