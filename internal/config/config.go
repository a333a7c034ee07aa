// Package config loads application configuration from the environment.
package config

import (
	"net"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig holds everything the server reads from the environment.
type AppConfig struct {
	Host         string `envconfig:"HOST" default:"0.0.0.0"`
	Port         string `envconfig:"PORT" default:"5173"`
	DatabasePath string `envconfig:"DATABASE_PATH" default:"platebook.db"`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`

	// Relay. The bot token and chat id are both required for relaying to
	// work; the sharing code is optional and, when set, must match the
	// client-supplied share code exactly.
	TelegramBotToken    string `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID      string `envconfig:"TELEGRAM_CHAT_ID"`
	TelegramSharingCode string `envconfig:"TELEGRAM_SHARING_CODE"`

	// Offline asset cache. Static assets are mirrored from AssetOrigin;
	// an empty origin disables the cache and the static routes.
	AssetOrigin          string `envconfig:"ASSET_ORIGIN"`
	AssetCacheDir        string `envconfig:"ASSET_CACHE_DIR" default:"asset-cache"`
	AssetCacheGeneration string `envconfig:"ASSET_CACHE_GENERATION" default:"platebook-assets-v1"`

	// Image normalizer.
	HEIFConverter string `envconfig:"HEIF_CONVERTER"`

	// Request body ceiling for the JSON API; base64 image payloads are big.
	APIBodyLimit string `envconfig:"API_BODY_LIMIT" default:"20M"`
}

// Load reads the configuration from the environment.
func Load() (*AppConfig, error) {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ListenAddr returns the host:port the HTTP server binds to.
func (c *AppConfig) ListenAddr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// AssetManifest is the fixed list of static assets the offline cache
// pre-populates on install.
func AssetManifest() []string {
	return []string{
		"/",
		"/index.html",
		"/styles.css",
		"/app.js",
		"/manifest.webmanifest",
		"/assets/icons/icon-192.svg",
		"/assets/icons/icon-512.svg",
		"/assets/icons/maskable.svg",
	}
}
