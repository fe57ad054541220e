package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	LogLevel       string        `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPAddr       string        `yaml:"http-addr" env:"HTTP_ADDR" env-default:":8080"`
	SQLitePath     string        `yaml:"sqlite-path" env:"SQLITE_PATH" env-default:"./master.db"`
	GameTTL        time.Duration `yaml:"game-ttl" env:"GAME_TTL" env-default:"24h"`
	SearchParallel bool          `yaml:"search-parallel" env:"SEARCH_PARALLEL" env-default:"false"`
	Redis          Redis         `yaml:"redis"`
	JWT            JWT           `yaml:"jwt"`
	Telemetry      Telemetry     `yaml:"telemetry"`
}

type Redis struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type JWT struct {
	Secret string        `yaml:"secret" env:"JWT_SECRET" env-default:"my_super_secret_key"`
	TTL    time.Duration `yaml:"ttl" env:"JWT_TTL" env-default:"72h"`
}

type Telemetry struct {
	// Endpoint of the OTLP gRPC collector. Empty disables export.
	Endpoint    string `yaml:"endpoint" env:"OTEL_ENDPOINT"`
	Stdout      bool   `yaml:"stdout" env:"OTEL_STDOUT" env-default:"false"`
	ServiceName string `yaml:"service-name" env:"SERVICE_NAME" env-default:"tictactoe-minimax"`
}

// Load reads the YAML file at path, if any, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("unable to load config file: %w", err)
		}
		return cfg, nil
	}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("unable to read config from environment: %w", err)
	}
	return cfg, nil
}

// MustLoad is like Load but panics on error.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}
