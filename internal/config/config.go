// Package config loads runtime settings from the environment, optionally
// seeded by a .env file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/rtm0/pointdata/internal/remote"
)

const (
	defaultRoot           = "/hydrodata"
	defaultURL            = "https://hydro-dev-aj.princeton.edu"
	defaultNetworkDir     = "network_lists"
	defaultRequestTimeout = 180 * time.Second
	defaultLoginTimeout   = 15 * time.Second
	defaultTokenTTL       = 24 * time.Hour
	defaultPort           = "8080"
)

// Mode selects where data is read from.
type Mode string

const (
	ModeAuto   Mode = "auto"   // local when the HydroData root exists
	ModeLocal  Mode = "local"  // catalog and files under Root
	ModeRemote Mode = "remote" // HTTP API at URL
)

// Config holds client and server settings.
type Config struct {
	Root           string
	URL            string
	PINFile        string
	NetworkDir     string
	Mode           Mode
	RequestTimeout time.Duration
	LoginTimeout   time.Duration

	// Server only.
	Port     string
	PINs     map[string]string // email -> PIN
	TokenTTL time.Duration
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Root:           defaultRoot,
		URL:            defaultURL,
		PINFile:        remote.DefaultPINFile(),
		NetworkDir:     defaultNetworkDir,
		Mode:           ModeAuto,
		RequestTimeout: defaultRequestTimeout,
		LoginTimeout:   defaultLoginTimeout,
		Port:           defaultPort,
		PINs:           map[string]string{},
		TokenTTL:       defaultTokenTTL,
	}
}

// CatalogPath returns the location of the metadata catalog under Root.
func (c Config) CatalogPath() string {
	return filepath.Join(c.Root, "national_obs", "point_obs.sqlite")
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	_ = godotenv.Load(".env")

	cfg := Default()
	cfg.Root = getenvDefault("HYDRODATA", cfg.Root)
	cfg.URL = strings.TrimSuffix(getenvDefault("HYDRODATA_URL", cfg.URL), "/")
	cfg.PINFile = getenvDefault("HYDRODATA_PIN_FILE", cfg.PINFile)
	cfg.NetworkDir = getenvDefault("HYDRODATA_NETWORK_DIR", cfg.NetworkDir)
	cfg.Port = getenvDefault("PORT", cfg.Port)

	switch m := Mode(strings.ToLower(getenvDefault("HYDRODATA_MODE", string(cfg.Mode)))); m {
	case ModeAuto, ModeLocal, ModeRemote:
		cfg.Mode = m
	default:
		return cfg, fmt.Errorf("invalid HYDRODATA_MODE %q", m)
	}

	var err error
	if cfg.RequestTimeout, err = getenvDuration("HYDRODATA_REQUEST_TIMEOUT", cfg.RequestTimeout); err != nil {
		return cfg, err
	}
	if cfg.LoginTimeout, err = getenvDuration("HYDRODATA_LOGIN_TIMEOUT", cfg.LoginTimeout); err != nil {
		return cfg, err
	}
	if cfg.TokenTTL, err = getenvDuration("HYDRODATA_TOKEN_TTL", cfg.TokenTTL); err != nil {
		return cfg, err
	}
	if cfg.PINs, err = parsePINs(os.Getenv("HYDRODATA_PINS")); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ResolveMode turns ModeAuto into ModeLocal or ModeRemote depending on
// whether Root exists.
func (c Config) ResolveMode() Mode {
	if c.Mode != ModeAuto && c.Mode != "" {
		return c.Mode
	}
	if _, err := os.Stat(c.Root); err == nil {
		return ModeLocal
	}
	return ModeRemote
}

// parsePINs parses "email:pin,email:pin".
func parsePINs(s string) (map[string]string, error) {
	pins := map[string]string{}
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		email, pin, ok := strings.Cut(pair, ":")
		if !ok || email == "" || pin == "" {
			return nil, fmt.Errorf("invalid HYDRODATA_PINS entry %q, want email:pin", pair)
		}
		pins[strings.TrimSpace(email)] = strings.TrimSpace(pin)
	}
	return pins, nil
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
