package daemon

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/statuskit/statusd/internal/checker"
	"github.com/statuskit/statusd/internal/circuit"
	"github.com/statuskit/statusd/internal/metrics"
)

// Options contains optional configuration for the monitoring service.
// NewOptions should be used to create instances of Options.
type Options struct {
	// APIOptions contains functional options for the API server.
	APIOptions []APIOption

	// CheckInterval specifies how often the scheduled check cycle runs.
	CheckInterval time.Duration

	// PruneInterval specifies how often expired cache entries and old
	// metrics samples are dropped.
	PruneInterval time.Duration

	// MaxConcurrency bounds how many servers a batch cycle probes at once.
	MaxConcurrency int

	// CacheTTL specifies how long a check result stays visible.
	CacheTTL time.Duration

	// MetricsRetention specifies how long metrics samples stay queryable.
	MetricsRetention time.Duration

	// BreakerConfig holds the circuit breaker thresholds.
	BreakerConfig circuit.Config

	// WatchConfig enables hot reload of the config file on change.
	WatchConfig bool

	// MetricsRegisterer receives the Prometheus collectors. Nil selects the
	// default registry; tests supply their own to keep registrations isolated.
	MetricsRegisterer prometheus.Registerer
}

// Option defines a functional option for configuring Options.
// Options are applied in order, with later options overriding earlier ones.
type Option func(*Options) error

// NewOptions creates Options with optional configurations applied on top of
// the defaults.
func NewOptions(opts ...Option) (Options, error) {
	options := defaultOptions()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&options); err != nil {
			return Options{}, err
		}
	}

	return options, nil
}

// WithAPIOptions configures API server options.
func WithAPIOptions(apiOpts ...APIOption) Option {
	return func(o *Options) error {
		o.APIOptions = apiOpts
		return nil
	}
}

// WithCheckInterval configures how often the scheduled check cycle runs.
func WithCheckInterval(interval time.Duration) Option {
	return func(o *Options) error {
		if interval <= 0 {
			return fmt.Errorf("check interval must be positive, got %v", interval)
		}
		o.CheckInterval = interval
		return nil
	}
}

// WithPruneInterval configures how often cache and metrics cleanup runs.
func WithPruneInterval(interval time.Duration) Option {
	return func(o *Options) error {
		if interval <= 0 {
			return fmt.Errorf("prune interval must be positive, got %v", interval)
		}
		o.PruneInterval = interval
		return nil
	}
}

// WithMaxConcurrency bounds how many servers a batch cycle probes at once.
func WithMaxConcurrency(n int) Option {
	return func(o *Options) error {
		if n <= 0 {
			return fmt.Errorf("max concurrency must be positive, got %d", n)
		}
		o.MaxConcurrency = n
		return nil
	}
}

// WithCacheTTL configures how long a check result stays visible.
func WithCacheTTL(ttl time.Duration) Option {
	return func(o *Options) error {
		if ttl <= 0 {
			return fmt.Errorf("cache TTL must be positive, got %v", ttl)
		}
		o.CacheTTL = ttl
		return nil
	}
}

// WithMetricsRetention configures how long metrics samples stay queryable.
func WithMetricsRetention(retention time.Duration) Option {
	return func(o *Options) error {
		if retention <= 0 {
			return fmt.Errorf("metrics retention must be positive, got %v", retention)
		}
		o.MetricsRetention = retention
		return nil
	}
}

// WithBreakerConfig sets the circuit breaker thresholds.
// The configuration is validated when the breaker is constructed.
func WithBreakerConfig(cfg circuit.Config) Option {
	return func(o *Options) error {
		o.BreakerConfig = cfg
		return nil
	}
}

// WithConfigWatching enables or disables hot reload of the config file.
func WithConfigWatching(enabled bool) Option {
	return func(o *Options) error {
		o.WatchConfig = enabled
		return nil
	}
}

// WithMetricsRegisterer directs Prometheus registration at a specific registry.
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(o *Options) error {
		o.MetricsRegisterer = reg
		return nil
	}
}

// DefaultCheckInterval is the default scheduled check cycle period.
func DefaultCheckInterval() time.Duration {
	return 30 * time.Second
}

// DefaultPruneInterval is the default cleanup cadence for the result cache
// and metrics retention.
func DefaultPruneInterval() time.Duration {
	return time.Minute
}

// defaultOptions returns Options with default values.
func defaultOptions() Options {
	return Options{
		CheckInterval:    DefaultCheckInterval(),
		PruneInterval:    DefaultPruneInterval(),
		MaxConcurrency:   checker.DefaultMaxConcurrency,
		CacheTTL:         checker.DefaultCacheTTL,
		MetricsRetention: metrics.DefaultRetention,
		BreakerConfig:    circuit.DefaultConfig(),
		WatchConfig:      true,
	}
}
