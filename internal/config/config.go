package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/statuskit/statusd/internal/perms"
)

// Init creates the base skeleton configuration file for the statusd project.
func (d *DefaultLoader) Init(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	// The config file can carry auth tokens, so both the file and any
	// directory created for it stay owner-only.
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, perms.SecureDir); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	content := `servers = []`

	if err := os.WriteFile(path, []byte(content), perms.SecureFile); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}

// Load reads, decodes and validates the configuration file at path.
func (d *DefaultLoader) Load(path string) (Modifier, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("%w: path cannot be empty", ErrConfigLoadFailed)
	}

	_, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: config file cannot be found, run: 'statusd init'", ErrConfigLoadFailed)
		}
		return nil, fmt.Errorf("%w: failed to stat config file (%s): %w", ErrConfigLoadFailed, path, err)
	}

	var cfg *Config
	_, err = toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode config from file (%s): %w", ErrConfigLoadFailed, path, err)
	}
	if cfg == nil {
		return nil, fmt.Errorf("%w: config file is empty (%s)", ErrConfigLoadFailed, path)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%w: failed to validate existing config (%s): %w", ErrConfigLoadFailed, path, err)
	}

	// Track the path that loaded this file so mutations can persist.
	cfg.configFilePath = path

	return cfg, nil
}

// UpsertServer adds a new server entry or replaces an existing one by name,
// then persists the updated configuration file.
func (c *Config) UpsertServer(entry ServerEntry) error {
	if err := validateEntry(entry); err != nil {
		return err
	}

	idx := slices.IndexFunc(c.Servers, func(e ServerEntry) bool {
		return e.Name == entry.Name
	})
	if idx >= 0 {
		c.Servers[idx] = entry
	} else {
		c.Servers = append(c.Servers, entry)
	}

	if err := c.validate(); err != nil {
		return err
	}

	if err := c.saveConfig(); err != nil {
		return fmt.Errorf("%w: %w", ErrConfigSaveFailed, err)
	}

	return nil
}

// RemoveServer removes a server entry by name and persists the configuration file.
func (c *Config) RemoveServer(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return NewErrInvalidEntry(name, "name cannot be empty")
	}

	before := len(c.Servers)
	c.Servers = slices.DeleteFunc(c.Servers, func(e ServerEntry) bool {
		return e.Name == name
	})
	if len(c.Servers) == before {
		return fmt.Errorf("server '%s' not found in config", name)
	}

	if err := c.saveConfig(); err != nil {
		return fmt.Errorf("%w: %w", ErrConfigSaveFailed, err)
	}

	return nil
}

// ListServers returns a copy of all configured server entries.
func (c *Config) ListServers() []ServerEntry {
	out := make([]ServerEntry, len(c.Servers))
	copy(out, c.Servers)
	return out
}

// GetServer returns the entry for the named server.
func (c *Config) GetServer(name string) (ServerEntry, bool) {
	for _, e := range c.Servers {
		if e.Name == name {
			return e, true
		}
	}
	return ServerEntry{}, false
}

func (c *Config) saveConfig() error {
	if c.configFilePath == "" {
		return fmt.Errorf("config file path is not set")
	}

	f, err := os.OpenFile(c.configFilePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perms.SecureFile)
	if err != nil {
		return fmt.Errorf("failed to open config file for writing: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

func (c *Config) validate() error {
	seen := make(map[string]struct{}, len(c.Servers))
	for _, e := range c.Servers {
		if err := validateEntry(e); err != nil {
			return err
		}
		if _, dup := seen[e.Name]; dup {
			return NewErrInvalidEntry(e.Name, "duplicate server name")
		}
		seen[e.Name] = struct{}{}
	}
	return nil
}

func validateEntry(e ServerEntry) error {
	name := strings.TrimSpace(e.Name)
	if name == "" {
		return NewErrInvalidEntry(e.Name, "name cannot be empty")
	}
	if !e.MCPEnabled && !e.RESTEnabled {
		// Allowed: such a server always aggregates to UNKNOWN, but it must
		// still carry no unusable endpoint requirements.
		return nil
	}
	if e.MCPEnabled {
		if err := validateURL(e.MCPEndpoint); err != nil {
			return NewErrInvalidEntry(name, fmt.Sprintf("mcp_endpoint_url: %v", err))
		}
	}
	if e.RESTEnabled {
		if err := validateURL(e.RESTHealthEndpoint); err != nil {
			return NewErrInvalidEntry(name, fmt.Sprintf("rest_health_endpoint_url: %v", err))
		}
	}
	if e.MCPTimeoutSeconds < 0 {
		return NewErrInvalidEntry(name, "mcp_timeout_seconds cannot be negative")
	}
	if e.RESTTimeoutSeconds < 0 {
		return NewErrInvalidEntry(name, "rest_timeout_seconds cannot be negative")
	}
	if s := strings.TrimSpace(e.RESTBodySchema); s != "" {
		if !json.Valid([]byte(s)) {
			return NewErrInvalidEntry(name, "rest_body_schema must be valid JSON")
		}
	}
	return nil
}

func validateURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("cannot be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got '%s'", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host cannot be empty")
	}
	return nil
}
