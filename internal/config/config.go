package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/vanshika/shelfwise/internal/validation"
)

// Config aggregates application configuration values.
type Config struct {
	HTTP      HTTPConfig      `koanf:"http"`
	Graph     GraphConfig     `koanf:"graph"`
	Store     StoreConfig     `koanf:"store"`
	Breaker   BreakerConfig   `koanf:"breaker"`
	Recommend RecommendConfig `koanf:"recommend"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// HTTPConfig governs HTTP server behaviour.
type HTTPConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	IdleTimeout     time.Duration `koanf:"idle_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	MetricsEnabled  bool          `koanf:"metrics_enabled"`
	AllowedOrigins  []string      `koanf:"allowed_origins"`
	// RateLimit is the per-IP budget for recommendation requests per minute.
	RateLimit int `koanf:"rate_limit" validate:"gte=0"`
}

// GraphConfig describes connectivity to the Neo4j graph database.
type GraphConfig struct {
	URI            string `koanf:"uri"`
	Database       string `koanf:"database"`
	Username       string `koanf:"username"`
	Password       string `koanf:"password"`
	MaxConnections int    `koanf:"max_connections" validate:"gte=0"`
}

// StoreConfig selects the backing store for borrow history.
type StoreConfig struct {
	Driver     string `koanf:"driver" validate:"oneof=neo4j sqlite"`
	SQLitePath string `koanf:"sqlite_path"`
}

// BreakerConfig tunes the circuit breaker around store reads.
type BreakerConfig struct {
	Enabled          bool          `koanf:"enabled"`
	MinRequests      uint32        `koanf:"min_requests"`
	FailureRatio     float64       `koanf:"failure_ratio" validate:"gte=0,lte=1"`
	HalfOpenRequests uint32        `koanf:"half_open_requests"`
	Interval         time.Duration `koanf:"interval" validate:"gte=0"`
	Timeout          time.Duration `koanf:"timeout" validate:"gte=0"`
}

// RecommendConfig holds the construction-time parameters of the recommender.
type RecommendConfig struct {
	Lambda             float64       `koanf:"lambda" validate:"gt=0"`
	BehaviorWeight     float64       `koanf:"behavior_weight" validate:"gt=0"`
	RestartProbability float64       `koanf:"restart_probability" validate:"gt=0,lt=1"`
	MaxIterations      int           `koanf:"max_iterations" validate:"gt=0"`
	TopN               int           `koanf:"top_n" validate:"gt=0"`
	Tolerance          float64       `koanf:"tolerance" validate:"gt=0"`
	MaxDuration        time.Duration `koanf:"max_duration" validate:"gte=0"`
	RequestTimeout     time.Duration `koanf:"request_timeout" validate:"gte=0"`
	MaxCoBorrowers     int           `koanf:"max_co_borrowers" validate:"gte=0"`
	FetchConcurrency   int           `koanf:"fetch_concurrency" validate:"gt=0"`
	BatchWorkers       int           `koanf:"batch_workers" validate:"gt=0"`
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level         string `koanf:"level"`
	Format        string `koanf:"format" validate:"oneof=text json"` // text|json
	IncludeCaller bool   `koanf:"include_caller"`
}

// PathEnvVar names the variable pointing at an optional YAML config file.
const PathEnvVar = "CONFIG_PATH"

// DefaultPaths are searched, in order, when PathEnvVar is unset.
var DefaultPaths = []string{
	"shelfwise.yaml",
	"shelfwise.yml",
	"/etc/shelfwise/config.yaml",
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() Config {
	return Config{
		HTTP: HTTPConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimit:       120,
		},
		Graph: GraphConfig{
			MaxConnections: 10,
		},
		Store: StoreConfig{
			Driver:     "neo4j",
			SQLitePath: "shelfwise.db",
		},
		Breaker: BreakerConfig{
			Enabled:          true,
			MinRequests:      10,
			FailureRatio:     0.6,
			HalfOpenRequests: 3,
			Interval:         time.Minute,
			Timeout:          30 * time.Second,
		},
		Recommend: RecommendConfig{
			Lambda:             0.01,
			BehaviorWeight:     1.0,
			RestartProbability: 0.15,
			MaxIterations:      50,
			TopN:               10,
			Tolerance:          1e-6,
			RequestTimeout:     5 * time.Second,
			FetchConcurrency:   4,
			BatchWorkers:       4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// envKeys maps the supported environment variables onto config paths.
// Anything else in the environment is ignored.
var envKeys = map[string]string{
	"SERVER_HOST":             "http.host",
	"SERVER_PORT":             "http.port",
	"SERVER_READ_TIMEOUT":     "http.read_timeout",
	"SERVER_WRITE_TIMEOUT":    "http.write_timeout",
	"SERVER_IDLE_TIMEOUT":     "http.idle_timeout",
	"SERVER_SHUTDOWN_TIMEOUT": "http.shutdown_timeout",
	"SERVER_METRICS_ENABLED":  "http.metrics_enabled",
	"SERVER_ALLOWED_ORIGINS":  "http.allowed_origins",
	"SERVER_RATE_LIMIT":       "http.rate_limit",

	"GRAPH_URI":             "graph.uri",
	"GRAPH_DATABASE":        "graph.database",
	"GRAPH_USERNAME":        "graph.username",
	"GRAPH_PASSWORD":        "graph.password",
	"GRAPH_MAX_CONNECTIONS": "graph.max_connections",

	"STORE_DRIVER":      "store.driver",
	"STORE_SQLITE_PATH": "store.sqlite_path",

	"BREAKER_ENABLED":            "breaker.enabled",
	"BREAKER_MIN_REQUESTS":       "breaker.min_requests",
	"BREAKER_FAILURE_RATIO":      "breaker.failure_ratio",
	"BREAKER_HALF_OPEN_REQUESTS": "breaker.half_open_requests",
	"BREAKER_INTERVAL":           "breaker.interval",
	"BREAKER_TIMEOUT":            "breaker.timeout",

	"RECOMMEND_LAMBDA":              "recommend.lambda",
	"RECOMMEND_BEHAVIOR_WEIGHT":     "recommend.behavior_weight",
	"RECOMMEND_RESTART_PROBABILITY": "recommend.restart_probability",
	"RECOMMEND_MAX_ITERATIONS":      "recommend.max_iterations",
	"RECOMMEND_TOP_N":               "recommend.top_n",
	"RECOMMEND_TOLERANCE":           "recommend.tolerance",
	"RECOMMEND_MAX_DURATION":        "recommend.max_duration",
	"RECOMMEND_REQUEST_TIMEOUT":     "recommend.request_timeout",
	"RECOMMEND_MAX_CO_BORROWERS":    "recommend.max_co_borrowers",
	"RECOMMEND_FETCH_CONCURRENCY":   "recommend.fetch_concurrency",
	"RECOMMEND_BATCH_WORKERS":       "recommend.batch_workers",

	"LOG_LEVEL":          "logging.level",
	"LOG_FORMAT":         "logging.format",
	"LOG_INCLUDE_CALLER": "logging.include_caller",
}

// Load layers defaults, an optional YAML file and environment variables, in
// increasing priority, then validates the result.
func Load() (Config, error) {
	k := koanf.New(".")

	defaults := Defaults()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path := findFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", func(key string) string {
		return envKeys[key]
	}), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	if err := splitList(k, "http.allowed_origins"); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks field ranges and cross-field requirements.
func (c Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return err
	}
	if c.Store.Driver == "neo4j" && c.Graph.URI == "" {
		return fmt.Errorf("GRAPH_URI is required when the store driver is neo4j")
	}
	if c.Store.Driver == "sqlite" && c.Store.SQLitePath == "" {
		return fmt.Errorf("STORE_SQLITE_PATH is required when the store driver is sqlite")
	}
	return nil
}

func findFile() string {
	if p := os.Getenv(PathEnvVar); p != "" {
		return p
	}
	for _, p := range DefaultPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// splitList turns a comma-separated environment value into a slice. Values that
// came from YAML are already lists and are left alone.
func splitList(k *koanf.Koanf, path string) error {
	raw, ok := k.Get(path).(string)
	if !ok {
		return nil
	}
	var items []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	if err := k.Set(path, items); err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	return nil
}
