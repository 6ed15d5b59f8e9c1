package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// GameweekWindow is an inclusive range of gameweeks.
type GameweekWindow struct {
	Start int
	End   int
}

// Contains reports whether gw falls inside the window.
func (w GameweekWindow) Contains(gw int) bool {
	return gw >= w.Start && gw <= w.End
}

func (w GameweekWindow) String() string {
	return fmt.Sprintf("GW%d-%d", w.Start, w.End)
}

type Config struct {
	// Server
	Env string `mapstructure:"ENV"`

	// Redis (metrics memoization)
	RedisURL     string `mapstructure:"REDIS_URL"`
	CacheEnabled bool   `mapstructure:"CACHE_ENABLED"`
	CacheTTL     int    `mapstructure:"CACHE_TTL"` // seconds

	// Squad building
	Budget    float64 `mapstructure:"BUDGET"`
	Formation string  `mapstructure:"FORMATION"`
	Strategy  string  `mapstructure:"STRATEGY"`
	ClubCap   int     `mapstructure:"CLUB_CAP"`

	// Optimizer bounds
	RepairIterationCap int `mapstructure:"REPAIR_ITERATION_CAP"`

	// Transfers
	HorizonGameweeks  int     `mapstructure:"HORIZON_GAMEWEEKS"`
	WeeklyPointsScale float64 `mapstructure:"WEEKLY_POINTS_SCALE"`
	TransferHitCost   float64 `mapstructure:"TRANSFER_HIT_COST"`

	// Thresholds
	PremiumThreshold       int     `mapstructure:"PREMIUM_THRESHOLD"` // tenths of a million
	TripleCaptainThreshold float64 `mapstructure:"TRIPLE_CAPTAIN_THRESHOLD"`

	// Chip timing windows, kept as data so they can move season to season
	// without touching planner logic.
	WildcardWindows string `mapstructure:"WILDCARD_WINDOWS"`
	FreeHitWindow   string `mapstructure:"FREE_HIT_WINDOW"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")

	// Set defaults
	viper.SetDefault("ENV", "development")
	viper.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	viper.SetDefault("CACHE_ENABLED", false)
	viper.SetDefault("CACHE_TTL", 3600)
	viper.SetDefault("BUDGET", 100.0)
	viper.SetDefault("FORMATION", "3-4-3")
	viper.SetDefault("STRATEGY", "balanced")
	viper.SetDefault("CLUB_CAP", 3)
	viper.SetDefault("REPAIR_ITERATION_CAP", 50)
	viper.SetDefault("HORIZON_GAMEWEEKS", 5)
	viper.SetDefault("WEEKLY_POINTS_SCALE", 6.0)
	viper.SetDefault("TRANSFER_HIT_COST", 4.0)
	viper.SetDefault("PREMIUM_THRESHOLD", 110) // £11.0m
	viper.SetDefault("TRIPLE_CAPTAIN_THRESHOLD", 40.0)
	viper.SetDefault("WILDCARD_WINDOWS", "8-10,16-18,25-27")
	viper.SetDefault("FREE_HIT_WINDOW", "29-33")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// Config file is optional; env vars and defaults cover everything.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// IsDevelopment returns true when running in a development environment
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ParseWildcardWindows parses the configured wildcard windows.
func (c *Config) ParseWildcardWindows() ([]GameweekWindow, error) {
	return parseWindows(c.WildcardWindows)
}

// ParseFreeHitWindow parses the configured free-hit window.
func (c *Config) ParseFreeHitWindow() (GameweekWindow, error) {
	windows, err := parseWindows(c.FreeHitWindow)
	if err != nil {
		return GameweekWindow{}, err
	}
	if len(windows) != 1 {
		return GameweekWindow{}, fmt.Errorf("expected one free-hit window, got %d", len(windows))
	}
	return windows[0], nil
}

func parseWindows(raw string) ([]GameweekWindow, error) {
	var windows []GameweekWindow
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		bounds := strings.SplitN(part, "-", 2)
		if len(bounds) != 2 {
			return nil, fmt.Errorf("malformed gameweek window %q", part)
		}
		start, err := strconv.Atoi(strings.TrimSpace(bounds[0]))
		if err != nil {
			return nil, fmt.Errorf("malformed gameweek window %q: %w", part, err)
		}
		end, err := strconv.Atoi(strings.TrimSpace(bounds[1]))
		if err != nil {
			return nil, fmt.Errorf("malformed gameweek window %q: %w", part, err)
		}
		if start < 1 || end < start {
			return nil, fmt.Errorf("gameweek window %q out of order", part)
		}
		windows = append(windows, GameweekWindow{Start: start, End: end})
	}
	if len(windows) == 0 {
		return nil, fmt.Errorf("no gameweek windows in %q", raw)
	}
	return windows, nil
}
