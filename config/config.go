package config

import "github.com/caarlos0/env/v6"

type Config struct {
	// Server configuration
	Server struct {
		// Port the HTTP API listens on
		Port string `env:"SERVER_PORT" envDefault:"5260"`

		// Path to the sqlite database file
		DatabasePath string `env:"DATABASE_PATH" envDefault:"database/propstack.db"`

		// Path to the saved search-area polygons
		AreasPath string `env:"AREAS_PATH" envDefault:"config/search_areas.json"`
	}

	// Dedup configuration
	Dedup struct {
		// Geohash cell length for the advanced grouping key
		GeohashPrecision uint `env:"DEDUP_GEOHASH_PRECISION" envDefault:"7"`

		// Per-batch detector timeout in seconds; on expiry the batch
		// reports partial results
		TimeoutSeconds int `env:"DEDUP_TIMEOUT_SECONDS" envDefault:"30"`

		// Queue buffer size for listing batches awaiting detection
		QueueSize int `env:"DEDUP_QUEUE_SIZE" envDefault:"100"`

		// Maximum number of retries for failed batches
		MaxRetries int `env:"DEDUP_MAX_RETRIES" envDefault:"3"`

		// Delay between retries in seconds
		RetryDelay int `env:"DEDUP_RETRY_DELAY" envDefault:"5"`
	}

	// Corridor recomputation configuration
	Recompute struct {
		// Debounce window in milliseconds for corridor recomputes
		DebounceMillis int `env:"RECOMPUTE_DEBOUNCE_MS" envDefault:"300"`
	}
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
