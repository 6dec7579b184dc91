package config

import "os"

// Config is the operational server's environment-driven configuration.
// A .env file is honored when present (loaded by cmd before Load runs).
type Config struct {
	// Addr is the HTTP listen address.
	Addr string

	// DatabaseURL selects the postgres store; empty means in-memory.
	DatabaseURL string

	// KafkaBrokers selects the kafka publisher; empty means the
	// in-process broadcaster only.
	KafkaBrokers string

	Verbose bool
}

func Load() Config {
	cfg := Config{
		Addr:         os.Getenv("LEDGER_ADDR"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		KafkaBrokers: os.Getenv("KAFKA_BROKERS"),
		Verbose:      os.Getenv("VERBOSE") != "",
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	return cfg
}
