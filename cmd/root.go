package cmd

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"restaurantfinder/internal/location"
)

// Location modes accepted by -location.
const (
	LocationIP    = "ip"
	LocationFixed = "fixed"
	LocationOff   = "off"
)

// Config holds CLI configuration.
type Config struct {
	ConfigDir  string
	DBPath     string
	YelpAPIKey string
	LogPath    string
	LogLevel   string
	ServeAddr  string // non-empty runs the JSON API instead of the TUI

	ShowVersion bool

	LocationMode string
	Fixed        location.Coordinate

	// LocationConsent is the user's answer from onboarding.
	LocationConsent bool
}

// ParseFlags parses command-line flags and returns configuration. Onboarding
// runs when it has not completed and stdin is a terminal.
func ParseFlags(args []string) (*Config, error) {
	// Load .env files first so env-based defaults work with existing flag parsing.
	loadDotEnv(".env", ".env.local")

	config, err := parseArgs(args)
	if err != nil || config.ShowVersion {
		return config, err
	}

	if err := os.MkdirAll(config.ConfigDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	settings, err := loadOnboardingSettings(config.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load onboarding settings: %w", err)
	}

	if shouldRunOnboarding(settings) {
		settings, err = runOnboarding(config.ConfigDir, config.YelpAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to run onboarding: %w", err)
		}
	}

	return config.withSettings(settings)
}

func parseArgs(args []string) (*Config, error) {
	config := &Config{}
	flags := flag.NewFlagSet("restaurantfinder", flag.ContinueOnError)

	flags.BoolVar(&config.ShowVersion, "version", false, "Print version and exit")
	flags.StringVar(&config.ConfigDir, "config", "", "Config directory (default: ~/.restaurantfinder)")
	flags.StringVar(&config.DBPath, "db", "", "Path to SQLite database file (default: <config>/restaurantfinder.db)")
	flags.StringVar(&config.YelpAPIKey, "yelp-key", "", "Yelp Fusion API key (or set YELP_API_KEY env var)")
	flags.StringVar(&config.LogPath, "log", "", "Log file (default: <config>/restaurantfinder.log)")
	flags.StringVar(&config.LogLevel, "log-level", envOr("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
	flags.StringVar(&config.ServeAddr, "serve", "", "Serve the JSON API on this address (e.g. :8080) instead of the TUI")
	flags.StringVar(&config.LocationMode, "location", LocationIP, "Location source for nearby search: ip, fixed, off")
	flags.Float64Var(&config.Fixed.Latitude, "lat", location.Default.Latitude, "Latitude for -location=fixed")
	flags.Float64Var(&config.Fixed.Longitude, "lon", location.Default.Longitude, "Longitude for -location=fixed")

	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	if config.ShowVersion {
		return config, nil
	}

	switch config.LocationMode {
	case LocationIP, LocationFixed, LocationOff:
	default:
		return nil, fmt.Errorf("invalid -location %q: want ip, fixed or off", config.LocationMode)
	}
	if config.Fixed.Latitude < -90 || config.Fixed.Latitude > 90 || config.Fixed.Longitude < -180 || config.Fixed.Longitude > 180 {
		return nil, fmt.Errorf("invalid -lat/-lon %v,%v", config.Fixed.Latitude, config.Fixed.Longitude)
	}

	// Get Yelp API key from env if not provided via flag
	if config.YelpAPIKey == "" {
		config.YelpAPIKey = os.Getenv("YELP_API_KEY")
	}

	if config.ConfigDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		config.ConfigDir = filepath.Join(home, ".restaurantfinder")
	}
	if config.DBPath == "" {
		config.DBPath = filepath.Join(config.ConfigDir, "restaurantfinder.db")
	}
	if config.LogPath == "" {
		config.LogPath = filepath.Join(config.ConfigDir, "restaurantfinder.log")
	}

	return config, nil
}

// withSettings applies onboarding results and resolves the stored API key.
func (c *Config) withSettings(settings OnboardingSettings) (*Config, error) {
	c.LocationConsent = settings.LocationConsent

	if c.YelpAPIKey == "" {
		secureKey, err := loadSecureYelpAPIKey(c.ConfigDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load secure Yelp API key: %w", err)
		}
		c.YelpAPIKey = strings.TrimSpace(secureKey)
	}
	return c, nil
}

// loadDotEnv loads each file that exists. Variables already set in the
// environment win.
func loadDotEnv(paths ...string) {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "warning: ignoring %s: %v\n", path, err)
		}
	}
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
