// Package circuit implements a dual-path circuit breaker for monitored
// servers. Each server carries two independent state machines, one per probe
// path (MCP and REST), plus a derived overall state used for traffic routing.
package circuit

import (
	"fmt"
	"time"

	apperrors "github.com/statuskit/statusd/internal/errors"
)

// Config holds the breaker thresholds shared by all servers.
// NewConfig should be used to create instances of Config: invalid values are
// rejected at construction, never clamped.
type Config struct {
	// FailureThreshold is the consecutive-failure count that opens a path
	// when no per-path override is set.
	FailureThreshold int

	// MCPFailureThreshold overrides FailureThreshold for the MCP path.
	MCPFailureThreshold int

	// RESTFailureThreshold overrides FailureThreshold for the REST path.
	RESTFailureThreshold int

	// SuccessThreshold is the consecutive-success count in HALF_OPEN that
	// closes a path again.
	SuccessThreshold int

	// RecoveryTimeout is how long an OPEN path waits before trial requests
	// are allowed again.
	RecoveryTimeout time.Duration

	// HalfOpenMaxRequests bounds the number of trial evaluations consumed
	// while a path is HALF_OPEN.
	HalfOpenMaxRequests int

	// RequireBothPathsHealthy derives the overall state as OPEN whenever
	// either path is OPEN, instead of only when both are.
	RequireBothPathsHealthy bool

	// FailureHistoryWindow prunes failure history records older than this.
	FailureHistoryWindow time.Duration

	// MaxHistorySize bounds the per-server failure history ring.
	MaxHistorySize int
}

// DefaultConfig returns the breaker configuration used when no overrides
// are supplied.
func DefaultConfig() Config {
	return Config{
		FailureThreshold:     3,
		MCPFailureThreshold:  3,
		RESTFailureThreshold: 3,
		SuccessThreshold:     2,
		RecoveryTimeout:      60 * time.Second,
		HalfOpenMaxRequests:  3,
		FailureHistoryWindow: 60 * time.Minute,
		MaxHistorySize:       1000,
	}
}

// NewConfig validates and returns a breaker configuration. Zero per-path
// thresholds inherit FailureThreshold.
func NewConfig(cfg Config) (Config, error) {
	if cfg.MCPFailureThreshold == 0 {
		cfg.MCPFailureThreshold = cfg.FailureThreshold
	}
	if cfg.RESTFailureThreshold == 0 {
		cfg.RESTFailureThreshold = cfg.FailureThreshold
	}

	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("%w: %w", apperrors.ErrInvalidBreakerConfig, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.FailureThreshold <= 0 {
		return fmt.Errorf("failure threshold must be positive, got %d", c.FailureThreshold)
	}
	if c.MCPFailureThreshold <= 0 {
		return fmt.Errorf("mcp failure threshold must be positive, got %d", c.MCPFailureThreshold)
	}
	if c.RESTFailureThreshold <= 0 {
		return fmt.Errorf("rest failure threshold must be positive, got %d", c.RESTFailureThreshold)
	}
	if c.SuccessThreshold <= 0 {
		return fmt.Errorf("success threshold must be positive, got %d", c.SuccessThreshold)
	}
	if c.RecoveryTimeout <= 0 {
		return fmt.Errorf("recovery timeout must be positive, got %v", c.RecoveryTimeout)
	}
	if c.HalfOpenMaxRequests <= 0 {
		return fmt.Errorf("half-open max requests must be positive, got %d", c.HalfOpenMaxRequests)
	}
	if c.FailureHistoryWindow <= 0 {
		return fmt.Errorf("failure history window must be positive, got %v", c.FailureHistoryWindow)
	}
	if c.MaxHistorySize <= 0 {
		return fmt.Errorf("max history size must be positive, got %d", c.MaxHistorySize)
	}
	return nil
}

// pathThreshold returns the consecutive-failure threshold for a path.
func (c Config) pathThreshold(isMCP bool) int {
	if isMCP {
		return c.MCPFailureThreshold
	}
	return c.RESTFailureThreshold
}
