package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the server configuration. Every field has a sensible default, so
// the config file is optional; environment variables override both.
type Config struct {
	Server struct {
		Addr      string `yaml:"addr"`
		StaticDir string `yaml:"static_dir"`
	} `yaml:"server"`
	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`
}

// Default returns the configuration used when no file and no environment
// overrides are present.
func Default() Config {
	var cfg Config
	cfg.Server.Addr = ":3000"
	cfg.Server.StaticDir = "public"
	cfg.CORS.AllowedOrigins = []string{"*"}
	return cfg
}

// Load reads the YAML file at path, falling back to defaults when the file
// does not exist, then applies environment overrides (PORT, ADDR,
// STATIC_DIR).
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// optional file
	case err != nil:
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Addr = ":" + port
	}
	cfg.Server.Addr = getEnv("ADDR", cfg.Server.Addr)
	cfg.Server.StaticDir = getEnv("STATIC_DIR", cfg.Server.StaticDir)

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
