package config

import (
	"time"
)

var (
	_ Provider = (*DefaultLoader)(nil)
	_ Modifier = (*Config)(nil)
)

type Loader interface {
	Load(path string) (Modifier, error)
}

type Initializer interface {
	Init(path string) error
}

type Provider interface {
	Initializer
	Loader
}

// Modifier is the mutable view of a loaded configuration.
// All mutation validates first and persists back to the file it was loaded from.
type Modifier interface {
	UpsertServer(entry ServerEntry) error
	RemoveServer(name string) error
	ListServers() []ServerEntry
	GetServer(name string) (ServerEntry, bool)
}

type DefaultLoader struct{}

// Config represents the .statusd.toml file structure.
type Config struct {
	Servers        []ServerEntry `toml:"servers"`
	configFilePath string        `toml:"-"`
}

// ServerEntry is the monitoring configuration for a single server.
// A server can be probed over MCP (JSON-RPC tools/list), over a plain REST
// health endpoint, or both. Entries are immutable during a check cycle and
// only change through explicit config updates.
type ServerEntry struct {
	// Name is the unique key identifying the server across all subsystems.
	Name string `json:"name" toml:"name"`

	// MCPEndpoint is the URL receiving the JSON-RPC tools/list POST.
	MCPEndpoint string `json:"mcp_endpoint_url,omitempty" toml:"mcp_endpoint_url,omitempty"`

	// RESTHealthEndpoint is the URL probed with a plain HTTP GET.
	RESTHealthEndpoint string `json:"rest_health_endpoint_url,omitempty" toml:"rest_health_endpoint_url,omitempty"`

	// MCPEnabled gates the MCP probe path for this server.
	MCPEnabled bool `json:"mcp_enabled" toml:"mcp_enabled"`

	// RESTEnabled gates the REST probe path for this server.
	RESTEnabled bool `json:"rest_enabled" toml:"rest_enabled"`

	// MCPTimeoutSeconds bounds a single MCP probe. Zero means the default.
	MCPTimeoutSeconds int `json:"mcp_timeout_seconds,omitempty" toml:"mcp_timeout_seconds,omitempty"`

	// RESTTimeoutSeconds bounds a single REST probe. Zero means the default.
	RESTTimeoutSeconds int `json:"rest_timeout_seconds,omitempty" toml:"rest_timeout_seconds,omitempty"`

	// ExpectedTools lists tool names the MCP server must expose.
	// A successful tools/list response missing any of them fails the probe.
	ExpectedTools []string `json:"mcp_expected_tools,omitempty" toml:"mcp_expected_tools,omitempty"`

	// AuthToken is an opaque bearer token attached to both probe paths when set.
	AuthToken string `json:"-" toml:"auth_token,omitempty"`

	// RESTBodySchema holds an optional JSON Schema document used to validate
	// the REST health response body.
	RESTBodySchema string `json:"rest_body_schema,omitempty" toml:"rest_body_schema,omitempty"`
}

const (
	DefaultMCPTimeout  = 10 * time.Second
	DefaultRESTTimeout = 8 * time.Second
)

// MCPTimeout returns the configured MCP probe timeout, falling back to the default.
func (e *ServerEntry) MCPTimeout() time.Duration {
	if e.MCPTimeoutSeconds > 0 {
		return time.Duration(e.MCPTimeoutSeconds) * time.Second
	}
	return DefaultMCPTimeout
}

// RESTTimeout returns the configured REST probe timeout, falling back to the default.
func (e *ServerEntry) RESTTimeout() time.Duration {
	if e.RESTTimeoutSeconds > 0 {
		return time.Duration(e.RESTTimeoutSeconds) * time.Second
	}
	return DefaultRESTTimeout
}

// Redacted returns a copy safe for API responses, with the auth token masked.
func (e ServerEntry) Redacted() ServerEntry {
	if e.AuthToken != "" {
		e.AuthToken = "***"
	}
	return e
}
