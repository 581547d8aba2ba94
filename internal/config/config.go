// Package config reads server settings from an optional YAML file and
// command-line flags. Flags given explicitly override the file.
package config

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the server settings.
type Config struct {
	DB              string        `yaml:"db"`
	Addr            string        `yaml:"addr"`
	AdminUser       string        `yaml:"admin_user"`
	Log             string        `yaml:"log"`
	Demo            bool          `yaml:"demo"`
	Checklists      string        `yaml:"checklists"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// SessionIdleTimeout discards inspection sessions left untouched
	// this long.
	SessionIdleTimeout time.Duration `yaml:"session_idle_timeout"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		DB:                 "pregled.sqlite3",
		Addr:               ":8080",
		AdminUser:          "Admin",
		ShutdownTimeout:    5 * time.Second,
		SessionIdleTimeout: 2 * time.Hour,
	}
}

// Load reads a YAML file over the defaults. Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks that required settings are present.
func (c Config) Validate() error {
	if c.DB == "" {
		return errors.New("database path must not be empty")
	}
	if c.Addr == "" {
		return errors.New("listen address must not be empty")
	}
	if c.AdminUser == "" {
		return errors.New("admin user must not be empty")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	if c.SessionIdleTimeout < time.Minute {
		return errors.New("session idle timeout must be at least a minute")
	}
	return nil
}

// Usage is the help text for the flags registered by Parse.
const Usage = `Usage: pregled [flags]

Flags:
  -c, -config <path>      YAML config file; flags override its values
  -d, -db <path>          SQLite database path (default: pregled.sqlite3)
  -a, -addr <host:port>   listen address (default: :8080)
  -u, -user <name>        admin username on first run (default: Admin)
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
      -checklists <path>  YAML file of checklists to load at startup
      -session-idle <dur> discard inspection sessions idle this long (default: 2h)
      -demo               add the demo pending items
  -h, -help               show this help and exit
`

// Parse reads args into a Config. With -config, the file is loaded first
// and only the flags actually given override it.
func Parse(name string, args []string, output io.Writer) (Config, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() { fmt.Fprint(output, Usage) }

	var path string
	fs.StringVar(&path, "config", "", "")
	fs.StringVar(&path, "c", "", "")

	var f Config
	fs.StringVar(&f.DB, "db", "", "")
	fs.StringVar(&f.DB, "d", "", "")
	fs.StringVar(&f.Addr, "addr", "", "")
	fs.StringVar(&f.Addr, "a", "", "")
	fs.StringVar(&f.AdminUser, "user", "", "")
	fs.StringVar(&f.AdminUser, "u", "", "")
	fs.StringVar(&f.Log, "log", "", "")
	fs.StringVar(&f.Log, "l", "", "")
	fs.StringVar(&f.Checklists, "checklists", "", "")
	fs.BoolVar(&f.Demo, "demo", false, "")
	fs.DurationVar(&f.SessionIdleTimeout, "session-idle", 0, "")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if fs.NArg() > 0 {
		return Config{}, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}

	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = Load(path); err != nil {
			return Config{}, err
		}
	}

	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "db", "d":
			cfg.DB = f.DB
		case "addr", "a":
			cfg.Addr = f.Addr
		case "user", "u":
			cfg.AdminUser = f.AdminUser
		case "log", "l":
			cfg.Log = f.Log
		case "checklists":
			cfg.Checklists = f.Checklists
		case "demo":
			cfg.Demo = f.Demo
		case "session-idle":
			cfg.SessionIdleTimeout = f.SessionIdleTimeout
		}
	})

	return cfg, cfg.Validate()
}
