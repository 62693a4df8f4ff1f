package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNoConfig is returned when an explicitly requested config file does not exist.
var ErrNoConfig = errors.New("config file not found")

// Config represents the main configuration structure
type Config struct {
	OutputDir       string `json:"outputDir" yaml:"outputDir"`
	InterfacePrefix *bool  `json:"interfacePrefix,omitempty" yaml:"interfacePrefix,omitempty"`
	ReferenceImport string `json:"referenceImport,omitempty" yaml:"referenceImport,omitempty"`
	GeneratedImport string `json:"generatedImport,omitempty" yaml:"generatedImport,omitempty"`
	Concurrency     int    `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`
	LogLevel        string `json:"logLevel,omitempty" yaml:"logLevel,omitempty"`
	LogFormat       string `json:"logFormat,omitempty" yaml:"logFormat,omitempty"` // "text" or "json"

	ModelSource ModelSourceConfig          `json:"modelSource" yaml:"modelSource"`
	McpServers  map[string]McpServerConfig `json:"mcpServers,omitempty" yaml:"mcpServers,omitempty"`
}

// ModelSourceConfig selects the upstream MCP server that serves Builder.io models.
type ModelSourceConfig struct {
	Server string `json:"server,omitempty" yaml:"server,omitempty"`
	Tool   string `json:"tool,omitempty" yaml:"tool,omitempty"` // defaults to list_models
}

// McpServerConfig describes how to reach an upstream MCP server
type McpServerConfig struct {
	Type string `json:"type" yaml:"type"` // "stdio", "http", or "sse"

	// Stdio fields
	Command string            `json:"command,omitempty" yaml:"command,omitempty"`
	Args    []string          `json:"args,omitempty" yaml:"args,omitempty"`
	Cwd     string            `json:"cwd,omitempty" yaml:"cwd,omitempty"`
	Env     map[string]string `json:"env,omitempty" yaml:"env,omitempty"`

	// HTTP/SSE fields
	URL     string            `json:"url,omitempty" yaml:"url,omitempty"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// DefaultModelsTool is the upstream tool returning Builder.io models.
const DefaultModelsTool = "list_models"

// Default returns the configuration used when no file is found.
func Default() *Config {
	return &Config{
		OutputDir:       filepath.Join("src", "types", "generated"),
		ReferenceImport: "@/types",
		GeneratedImport: "@/types/generated",
		Concurrency:     4,
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// UseInterfacePrefix reports whether interface names get the "I" prefix. Defaults to true.
func (c *Config) UseInterfacePrefix() bool {
	return c.InterfacePrefix == nil || *c.InterfacePrefix
}

// ModelsTool returns the upstream tool name used to fetch models.
func (c *Config) ModelsTool() string {
	if c.ModelSource.Tool != "" {
		return c.ModelSource.Tool
	}
	return DefaultModelsTool
}

// LoadOptions controls where configuration is read from.
type LoadOptions struct {
	// ConfigPath is an explicit file; it must exist when set.
	ConfigPath string
	// SearchPaths are tried in order when ConfigPath is empty. Missing files are skipped.
	SearchPaths []string
	// AllowEnvOverrides applies TYPEGEN_* environment variables on top of the file.
	AllowEnvOverrides bool
}

// DefaultSearchPaths returns the config locations checked when none is given.
func DefaultSearchPaths() []string {
	paths := []string{
		"typegen.yaml",
		"typegen.yml",
		"typegen.json",
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "builder-typegen", "config.yaml"),
			filepath.Join(home, ".config", "builder-typegen", "config.json"),
		)
	}
	return paths
}

// Load reads and parses the configuration file
func Load(configPath string) (*Config, error) {
	return LoadWithOptions(LoadOptions{ConfigPath: configPath})
}

// LoadWithOptions resolves, parses and validates the configuration.
func LoadWithOptions(opts LoadOptions) (*Config, error) {
	cfg := Default()

	path, err := resolvePath(opts)
	if err != nil {
		return nil, err
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := decode(path, data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if opts.AllowEnvOverrides {
		if err := applyEnv(cfg); err != nil {
			return nil, err
		}
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func resolvePath(opts LoadOptions) (string, error) {
	if opts.ConfigPath != "" {
		if _, err := os.Stat(opts.ConfigPath); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return "", fmt.Errorf("%w: %s", ErrNoConfig, opts.ConfigPath)
			}
			return "", fmt.Errorf("failed to stat config file: %w", err)
		}
		return opts.ConfigPath, nil
	}

	for _, candidate := range opts.SearchPaths {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		return json.Unmarshal(data, cfg)
	}
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("TYPEGEN_OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}
	if v := os.Getenv("TYPEGEN_INTERFACE_PREFIX"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid TYPEGEN_INTERFACE_PREFIX %q: %w", v, err)
		}
		cfg.InterfacePrefix = &b
	}
	if v := os.Getenv("TYPEGEN_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid TYPEGEN_CONCURRENCY %q: %w", v, err)
		}
		cfg.Concurrency = n
	}
	if v := os.Getenv("TYPEGEN_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("TYPEGEN_MODEL_SERVER"); v != "" {
		cfg.ModelSource.Server = v
	}
	return nil
}

// validate checks if the configuration is valid
func validate(config *Config) error {
	if config.OutputDir == "" {
		return fmt.Errorf("outputDir is required")
	}
	if config.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", config.Concurrency)
	}
	switch config.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid logFormat %q (must be text or json)", config.LogFormat)
	}

	for name, server := range config.McpServers {
		switch server.Type {
		case "stdio":
			if server.Command == "" {
				return fmt.Errorf("server %q: command is required for stdio type", name)
			}
		case "http", "sse":
			if server.URL == "" {
				return fmt.Errorf("server %q: url is required for %s type", name, server.Type)
			}
		default:
			return fmt.Errorf("server %q: invalid type %q (must be stdio, http, or sse)", name, server.Type)
		}
	}

	if src := config.ModelSource.Server; src != "" {
		if _, ok := config.McpServers[src]; !ok {
			return fmt.Errorf("modelSource.server %q is not defined in mcpServers", src)
		}
	}

	return nil
}
