// Package config provides functionality for managing configuration options
// for the server using command-line flags, an optional JSON or YAML config
// file, a .env file and environment variables.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Options holds the configuration values for the server.
type Options struct {
	// Address defines the server's listening address (ip:port).
	Address string `json:"address" yaml:"address"`

	// DatabaseDSN holds the database connection string for the application.
	DatabaseDSN string `json:"database_dsn" yaml:"database_dsn"`

	// DatabaseDriver selects the SQL driver: "postgres" (lib/pq) or "pgx".
	DatabaseDriver string `json:"database_driver" yaml:"database_driver"`

	// JWTSecret signs bearer tokens.
	JWTSecret string `json:"jwt_secret" yaml:"jwt_secret"`

	// TokenTTL is the lifetime of issued tokens.
	TokenTTL Duration `json:"token_ttl" yaml:"token_ttl"`

	// LogLevel is passed to the zap logger.
	LogLevel string `json:"log_level" yaml:"log_level"`

	GeminiAPIKey string `json:"gemini_api_key" yaml:"gemini_api_key"`
	GeminiModel  string `json:"gemini_model" yaml:"gemini_model"`

	// CORSOrigins lists allowed browser origins.
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins"`

	// TLSCert and TLSKey enable HTTPS when both are set.
	TLSCert string `json:"tls_cert" yaml:"tls_cert"`
	TLSKey  string `json:"tls_key" yaml:"tls_key"`

	// Config is the path to the config file.
	Config string `json:"-" yaml:"-"`
}

// Duration is a time.Duration read from strings like "90m" in config files.
type Duration struct {
	time.Duration
}

// UnmarshalJSON accepts a Go duration string.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	return d.Set(s)
}

// UnmarshalYAML accepts a Go duration string.
func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	return d.Set(n.Value)
}

// Set implements flag.Value.
func (d *Duration) Set(s string) error {
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// defaults returns Options with every default applied.
func defaults() *Options {
	return &Options{
		Address:        "localhost:5001",
		DatabaseDriver: "postgres",
		TokenTTL:       Duration{time.Hour},
		LogLevel:       "info",
		GeminiModel:    "gemini-2.5-flash",
		CORSOrigins:    []string{"http://localhost:5173"},
		Config:         "config.json",
	}
}

// Parse parses the command-line flags and environment variables to set
// configuration values. It exits the process on a malformed config file.
func Parse() *Options {
	// A missing .env file is fine.
	_ = godotenv.Load()

	opts, err := parse(flag.CommandLine, os.Args[1:], os.Getenv)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return opts
}

func parse(fs *flag.FlagSet, args []string, getenv func(string) string) (*Options, error) {
	options := defaults()
	var origins string

	fs.StringVar(&options.Address, "a", options.Address, "run on ip:port server")
	fs.StringVar(&options.DatabaseDSN, "d", options.DatabaseDSN, "db address")
	fs.StringVar(&options.DatabaseDriver, "driver", options.DatabaseDriver, "sql driver: postgres or pgx")
	fs.StringVar(&options.JWTSecret, "secret", options.JWTSecret, "jwt signing secret")
	fs.Var(&options.TokenTTL, "ttl", "token lifetime")
	fs.StringVar(&options.LogLevel, "l", options.LogLevel, "log level")
	fs.StringVar(&origins, "cors", "", "comma separated allowed origins")
	fs.StringVar(&options.TLSCert, "tls-cert", "", "TLS certificate file")
	fs.StringVar(&options.TLSKey, "tls-key", "", "TLS key file")
	fs.StringVar(&options.Config, "config", options.Config, "path to config file")
	fs.StringVar(&options.Config, "c", options.Config, "path to config file (shorthand)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if origins != "" {
		options.CORSOrigins = splitList(origins)
	}

	if configPath := getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}
	if err := loadFile(options); err != nil {
		return nil, err
	}

	overrideFromEnv(options, getenv)

	if options.JWTSecret == "" {
		return nil, errors.New("jwt secret is required (SECRET_KEY)")
	}
	if (options.TLSCert == "") != (options.TLSKey == "") {
		return nil, errors.New("tls cert and key must be set together")
	}
	return options, nil
}

// loadFile merges the config file into options when it exists. Files ending
// in .yaml or .yml are read as YAML, anything else as JSON.
func loadFile(options *Options) error {
	if options.Config == "" {
		return nil
	}
	data, err := os.ReadFile(options.Config)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("error while reading config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(options.Config)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, options)
	default:
		err = json.Unmarshal(data, options)
	}
	if err != nil {
		return fmt.Errorf("error while parsing config file: %w", err)
	}
	return nil
}

func overrideFromEnv(options *Options, getenv func(string) string) {
	if v := getenv("SERVER_ADDRESS"); v != "" {
		options.Address = v
	} else if port := getenv("PORT"); port != "" {
		options.Address = ":" + port
	}
	if v := getenv("DATABASE_URL"); v != "" {
		options.DatabaseDSN = v
	}
	if v := getenv("DATABASE_DRIVER"); v != "" {
		options.DatabaseDriver = v
	}
	if v := getenv("SECRET_KEY"); v != "" {
		options.JWTSecret = v
	}
	if v := getenv("TOKEN_TTL"); v != "" {
		if err := options.TokenTTL.Set(v); err != nil {
			log.Printf("config: ignoring TOKEN_TTL: %v", err)
		}
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		options.LogLevel = v
	}
	if v := getenv("GEMINI_API_KEY"); v != "" {
		options.GeminiAPIKey = v
	}
	if v := getenv("GEMINI_MODEL"); v != "" {
		options.GeminiModel = v
	}
	if v := getenv("CORS_ORIGINS"); v != "" {
		options.CORSOrigins = splitList(v)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
