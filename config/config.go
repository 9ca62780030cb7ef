// Package config loads server settings from flags, environment, an optional
// config file and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	EnvPrefix   = "FLIGHTSIM"
	DefaultAddr = ":3000"
)

// Snapshot scopes
const (
	ScopeGlobal = "global"
	ScopeRoom   = "room"
)

// Config is the resolved server configuration.
type Config struct {
	Addr           string
	AllowedOrigins []string
	MaxConnsPerIP  int
	MaxConns       int

	TickInterval     time.Duration
	MaxPlayers       int
	HitRadius        float64
	HitDamage        float64
	MaxProjectiles   int
	MaxProjectileTTL time.Duration
	SnapshotScope    string

	ClientRate  float64
	ClientBurst int

	StatusSecret string

	LogLevel  string
	LogPretty bool

	// MintToken asks the binary to print a status token and exit.
	MintToken bool
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.allowedOrigins", "")
	v.SetDefault("server.maxConnsPerIP", 5)
	v.SetDefault("server.maxConns", 1000)

	v.SetDefault("tick.interval", "50ms")
	v.SetDefault("room.maxPlayers", 2)
	v.SetDefault("hit.radius", 1.0)
	v.SetDefault("hit.damage", 1.0)
	v.SetDefault("projectile.max", 500)
	v.SetDefault("projectile.maxTTL", "10s")
	v.SetDefault("snapshot.scope", ScopeGlobal)

	v.SetDefault("client.rate", 60.0)
	v.SetDefault("client.burst", 120)

	v.SetDefault("status.secret", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
}

// Load resolves the configuration for the given command-line arguments
// (without the program name). Flags win over environment, environment over
// the config file, and the file over defaults.
func Load(args []string) (*Config, error) {
	fs := pflag.NewFlagSet("flightsim", pflag.ContinueOnError)
	configFile := fs.String("config", "", "path to a config file (json, yaml or toml)")
	envFile := fs.String("env-file", ".env", "dotenv file loaded before reading the environment")
	fs.String("addr", "", "listen address")
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	fs.Bool("log-pretty", false, "human readable console logs")
	fs.String("snapshot-scope", "", "snapshot scope: global or room")
	mint := fs.Bool("mint-token", false, "print a /status bearer token and exit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := loadEnvFile(*envFile, fs.Changed("env-file")); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("port", "PORT")
	_ = v.BindEnv("server.allowedOrigins", EnvPrefix+"_SERVER_ALLOWEDORIGINS", "ALLOWED_ORIGINS")

	for key, flag := range map[string]string{
		"server.addr":    "addr",
		"log.level":      "log-level",
		"log.pretty":     "log-pretty",
		"snapshot.scope": "snapshot-scope",
	} {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return nil, err
		}
	}

	if *configFile != "" {
		v.SetConfigFile(*configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{
		Addr:             v.GetString("server.addr"),
		AllowedOrigins:   splitList(v.Get("server.allowedOrigins")),
		MaxConnsPerIP:    v.GetInt("server.maxConnsPerIP"),
		MaxConns:         v.GetInt("server.maxConns"),
		TickInterval:     v.GetDuration("tick.interval"),
		MaxPlayers:       v.GetInt("room.maxPlayers"),
		HitRadius:        v.GetFloat64("hit.radius"),
		HitDamage:        v.GetFloat64("hit.damage"),
		MaxProjectiles:   v.GetInt("projectile.max"),
		MaxProjectileTTL: v.GetDuration("projectile.maxTTL"),
		SnapshotScope:    strings.ToLower(v.GetString("snapshot.scope")),
		ClientRate:       v.GetFloat64("client.rate"),
		ClientBurst:      v.GetInt("client.burst"),
		StatusSecret:     v.GetString("status.secret"),
		LogLevel:         v.GetString("log.level"),
		LogPretty:        v.GetBool("log.pretty"),
		MintToken:        *mint,
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
		if port := v.GetString("port"); port != "" {
			cfg.Addr = ":" + port
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first setting that the server cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return errors.New("config: server.addr is empty")
	case c.TickInterval <= 0:
		return fmt.Errorf("config: tick.interval must be positive, got %s", c.TickInterval)
	case c.MaxPlayers < 1:
		return fmt.Errorf("config: room.maxPlayers must be at least 1, got %d", c.MaxPlayers)
	case !finite(c.HitRadius) || c.HitRadius < 0:
		return fmt.Errorf("config: hit.radius must be a finite non-negative number, got %g", c.HitRadius)
	case !finite(c.HitDamage) || c.HitDamage < 0:
		return fmt.Errorf("config: hit.damage must be a finite non-negative number, got %g", c.HitDamage)
	case c.MaxProjectiles < 1:
		return fmt.Errorf("config: projectile.max must be at least 1, got %d", c.MaxProjectiles)
	case c.MaxProjectileTTL <= 0:
		return fmt.Errorf("config: projectile.maxTTL must be positive, got %s", c.MaxProjectileTTL)
	case c.SnapshotScope != ScopeGlobal && c.SnapshotScope != ScopeRoom:
		return fmt.Errorf("config: unknown snapshot.scope %q", c.SnapshotScope)
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func loadEnvFile(path string, required bool) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if err != nil && required {
		return fmt.Errorf("error loading env file: %w", err)
	}
	return nil
}

// splitList accepts either a list from a config file or a comma separated
// string from the environment.
func splitList(raw any) []string {
	var parts []string
	switch val := raw.(type) {
	case []string:
		parts = val
	case []any:
		for _, p := range val {
			parts = append(parts, fmt.Sprint(p))
		}
	case string:
		parts = strings.Split(val, ",")
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
