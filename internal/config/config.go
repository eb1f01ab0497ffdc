// Package config loads server and client settings.
// Values come from defaults, then an optional TOML file, then environment variables.
// A .env file in the working directory is loaded into the environment first.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	defaultAPIAddr      = ":8080"                  // server listen address
	defaultRoomTTLSec   = 60 * 60                  // room registry TTL (1h)
	defaultPingInterval = 30                       // websocket keepalive (seconds)
	defaultWSBaseURL    = "ws://localhost:8080/ws" // client endpoint when unset
)

// defaultAllowedOrigins are the CORS origins used when none are configured.
var defaultAllowedOrigins = []string{
	"http://localhost:3000",
	"http://localhost:3001",
}

// Config holds the chat server settings.
type Config struct {
	APIAddr         string   `toml:"api_addr"`          // listen address
	RedisAddr       string   `toml:"redis_addr"`        // empty: in-memory registry, no cross-instance relay
	RoomTTL         int      `toml:"room_ttl_sec"`      // room registry TTL (seconds)
	PingIntervalSec int      `toml:"ping_interval_sec"` // keepalive ping period (seconds)
	AllowedOrigin   []string `toml:"allowed_origins"`   // CORS origins
}

// PingInterval returns the keepalive period.
func (c Config) PingInterval() time.Duration {
	return time.Duration(c.PingIntervalSec) * time.Second
}

// ClientConfig holds the chat client settings.
type ClientConfig struct {
	WSBaseURL        string        // base streaming endpoint; the room ID is appended
	User             string        // default display name
	HandshakeTimeout time.Duration // zero: no handshake timeout
}

// Load reads the server configuration.
func Load() Config {
	loadDotEnv()
	cfg := Config{
		APIAddr:         defaultAPIAddr,
		RoomTTL:         defaultRoomTTLSec,
		PingIntervalSec: defaultPingInterval,
		AllowedOrigin:   append([]string(nil), defaultAllowedOrigins...),
	}
	if path := os.Getenv("CHAT_CONFIG_FILE"); path != "" {
		if err := LoadTOML(&cfg, path); err != nil {
			log.Printf("ignoring config file %s: %v", path, err)
		}
	}
	cfg.APIAddr = envOr("API_ADDR", cfg.APIAddr)
	cfg.RedisAddr = envOr("REDIS_ADDR", cfg.RedisAddr)
	cfg.RoomTTL = envInt("ROOM_TTL_SEC", cfg.RoomTTL)
	cfg.PingIntervalSec = envInt("PING_INTERVAL_SEC", cfg.PingIntervalSec)
	cfg.AllowedOrigin = envCSV("CORS_ALLOWED_ORIGINS", cfg.AllowedOrigin)
	return cfg
}

// LoadClient reads the chat client configuration.
func LoadClient() ClientConfig {
	loadDotEnv()
	return ClientConfig{
		WSBaseURL:        envOr("CHAT_WS_URL", defaultWSBaseURL),
		User:             os.Getenv("CHAT_USER"),
		HandshakeTimeout: time.Duration(envInt("CHAT_HANDSHAKE_TIMEOUT_SEC", 0)) * time.Second,
	}
}

// LoadTOML overlays the settings found in a TOML file onto cfg.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("failed to load .env: %v", err)
	}
}

// envOr returns the environment value for key, or def when unset.
func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envInt returns the integer value for key, or def when unset or invalid.
func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			log.Printf("invalid %s=%s, fallback to default (%d)", key, v, def)
			return def
		}
		return i
	}
	return def
}

// envCSV returns the comma separated list for key, or def when unset or empty.
func envCSV(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return def
}
