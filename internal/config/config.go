// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/farlane/lastmile/internal/legcache"
	"github.com/farlane/lastmile/internal/routing/anneal"
)

type Config struct {
	Environment string `env:"ENV" envDefault:"development"`

	HTTP struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	}

	Logging struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
	}

	Graph struct {
		Path        string  `env:"GRAPH_PATH" envDefault:"data/roadnet.json"`
		SnapRadiusM float64 `env:"GRAPH_SNAP_RADIUS_M" envDefault:"1000"`
		FilterSCC   bool    `env:"GRAPH_FILTER_SCC" envDefault:"true"`
		// QueryRate caps shortest-path queries per second; zero is
		// unlimited.
		QueryRate float64 `env:"GRAPH_QUERY_RATE" envDefault:"0"`
		// Workers bounds concurrent matrix queries; zero means GOMAXPROCS.
		Workers int `env:"GRAPH_WORKERS" envDefault:"0"`
		// TrafficSeed perturbs leg costs deterministically when traffic is
		// enabled.
		TrafficEnabled bool  `env:"GRAPH_TRAFFIC_ENABLED" envDefault:"false"`
		TrafficSeed    int64 `env:"GRAPH_TRAFFIC_SEED" envDefault:"0"`

		Fetch struct {
			Enabled   bool   `env:"GRAPH_FETCH_ENABLED" envDefault:"false"`
			Endpoint  string `env:"GRAPH_FETCH_ENDPOINT"`
			Bucket    string `env:"GRAPH_FETCH_BUCKET"`
			Object    string `env:"GRAPH_FETCH_OBJECT"`
			AccessKey string `env:"GRAPH_FETCH_ACCESS_KEY"`
			SecretKey string `env:"GRAPH_FETCH_SECRET_KEY"`
			UseSSL    bool   `env:"GRAPH_FETCH_USE_SSL" envDefault:"true"`
		}
	}

	Solver struct {
		InitialTemperature float64       `env:"SOLVER_INITIAL_TEMPERATURE" envDefault:"1000"`
		CoolingRate        float64       `env:"SOLVER_COOLING_RATE" envDefault:"0.995"`
		MinTemperature     float64       `env:"SOLVER_MIN_TEMPERATURE" envDefault:"1"`
		MaxIterations      int           `env:"SOLVER_MAX_ITERATIONS" envDefault:"5000"`
		MaxDuration        time.Duration `env:"SOLVER_MAX_DURATION" envDefault:"30s"`
		NeighborStrategy   string        `env:"SOLVER_NEIGHBOR_STRATEGY" envDefault:"swap"`
		RandomSeed         int64         `env:"SOLVER_RANDOM_SEED" envDefault:"0"`
		ClosedTour         bool          `env:"SOLVER_CLOSED_TOUR" envDefault:"true"`
		Restarts           int           `env:"SOLVER_RESTARTS" envDefault:"1"`
		// ReheatTemperature is the starting temperature when re-optimizing
		// an existing route after a stop is added.
		ReheatTemperature float64 `env:"SOLVER_REHEAT_TEMPERATURE" envDefault:"200"`
	}

	Cache struct {
		Kind          string        `env:"CACHE_KIND" envDefault:"memory"`
		Capacity      int           `env:"CACHE_CAPACITY" envDefault:"0"`
		RedisAddr     string        `env:"CACHE_REDIS_ADDR" envDefault:"localhost:6379"`
		RedisPassword string        `env:"CACHE_REDIS_PASSWORD"`
		RedisTTL      time.Duration `env:"CACHE_REDIS_TTL" envDefault:"24h"`
		PostgresDSN   string        `env:"CACHE_POSTGRES_DSN"`
	}
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate catches misconfiguration at startup. Solver parameters get their
// full check in SolverConfig.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP_PORT %d out of range", c.HTTP.Port)
	}
	if c.Graph.Path == "" {
		return fmt.Errorf("GRAPH_PATH must be set")
	}
	if c.Graph.SnapRadiusM <= 0 {
		return fmt.Errorf("GRAPH_SNAP_RADIUS_M must be positive, got %v", c.Graph.SnapRadiusM)
	}
	if c.Graph.QueryRate < 0 {
		return fmt.Errorf("GRAPH_QUERY_RATE must not be negative, got %v", c.Graph.QueryRate)
	}
	if c.Graph.Fetch.Enabled {
		if c.Graph.Fetch.Endpoint == "" || c.Graph.Fetch.Bucket == "" || c.Graph.Fetch.Object == "" {
			return fmt.Errorf("GRAPH_FETCH_ENDPOINT, GRAPH_FETCH_BUCKET and GRAPH_FETCH_OBJECT must be set when fetching is enabled")
		}
	}
	switch legcache.Kind(c.Cache.Kind) {
	case legcache.KindNone, legcache.KindMemory, legcache.KindRedis, legcache.KindPostgres:
	default:
		return fmt.Errorf("unknown CACHE_KIND %q", c.Cache.Kind)
	}
	if legcache.Kind(c.Cache.Kind) == legcache.KindPostgres && c.Cache.PostgresDSN == "" {
		return fmt.Errorf("CACHE_POSTGRES_DSN must be set for the postgres cache")
	}
	if c.Solver.ReheatTemperature <= 0 {
		return fmt.Errorf("SOLVER_REHEAT_TEMPERATURE must be positive, got %v", c.Solver.ReheatTemperature)
	}
	return nil
}

// SolverConfig converts the environment settings into a validated annealing
// configuration. Requests may still override individual fields.
func (c *Config) SolverConfig() (anneal.Config, error) {
	strategy, err := anneal.ParseStrategy(c.Solver.NeighborStrategy)
	if err != nil {
		return anneal.Config{}, err
	}
	cfg := anneal.Config{
		InitialTemperature: c.Solver.InitialTemperature,
		CoolingRate:        c.Solver.CoolingRate,
		MinTemperature:     c.Solver.MinTemperature,
		MaxIterations:      c.Solver.MaxIterations,
		MaxDuration:        c.Solver.MaxDuration,
		NeighborStrategy:   strategy,
		RandomSeed:         c.Solver.RandomSeed,
		ClosedTour:         c.Solver.ClosedTour,
		Restarts:           c.Solver.Restarts,
	}
	if err := cfg.Validate(); err != nil {
		return anneal.Config{}, err
	}
	return cfg, nil
}

// CacheOptions maps the cache settings onto the leg-cache factory options.
// The namespace is the road-network fingerprint, known only after the graph
// is loaded.
func (c *Config) CacheOptions(namespace string) legcache.Options {
	return legcache.Options{
		Kind:          legcache.Kind(c.Cache.Kind),
		Namespace:     namespace,
		Capacity:      c.Cache.Capacity,
		RedisAddr:     c.Cache.RedisAddr,
		RedisPassword: c.Cache.RedisPassword,
		RedisTTL:      c.Cache.RedisTTL,
		PostgresDSN:   c.Cache.PostgresDSN,
	}
}
