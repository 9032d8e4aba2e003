// Package config loads typed configuration structs from environment
// variables, with an optional .env file for local development.
//
// Each concern declares its own config struct with `env` tags and loads it
// independently; the package caches parsed structs by type so repeated loads
// are cheap and consistent:
//
//	type GateConfig struct {
//	    ReadTimeout time.Duration `env:"GATE_READ_TIMEOUT" envDefault:"2s"`
//	    CacheSize   int           `env:"GATE_VERDICT_CACHE_SIZE" envDefault:"10000"`
//	}
//
//	var cfg GateConfig
//	config.MustLoad(&cfg)
//
// Parsing is delegated to github.com/caarlos0/env/v11; .env loading to
// github.com/joho/godotenv.
package config
