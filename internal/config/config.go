// Package config loads the kaizen configuration from YAML with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all kaizen configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Storage  StorageConfig  `yaml:"storage"`
	Server   ServerConfig   `yaml:"server"`
	Editor   EditorConfig   `yaml:"editor"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type AuthConfig struct {
	JWTSecret   string `yaml:"jwt_secret"`
	SessionTTL  string `yaml:"session_ttl"`
	SessionFile string `yaml:"session_file"`
	Issuer      string `yaml:"issuer"`
}

type StorageConfig struct {
	Dir          string `yaml:"dir"`
	BaseURL      string `yaml:"base_url"` // prefix of public and signed URLs
	SignedURLTTL string `yaml:"signed_url_ttl"`
}

type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	ShutdownGrace  string   `yaml:"shutdown_grace"`
}

// EditorConfig configures the diagram editor.
type EditorConfig struct {
	AutosaveWindow string  `yaml:"autosave_window"`
	GridSize       float64 `yaml:"grid_size"`
	FrameInterval  string  `yaml:"frame_interval"`
	SeedExample    bool    `yaml:"seed_example"` // new diagrams start from the worked example
	ExportDir      string  `yaml:"export_dir"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"` // used while the editor owns the terminal
}

// Dir is the per-user state directory, ~/.kaizen.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".kaizen"
	}
	return filepath.Join(home, ".kaizen")
}

// DefaultPath is where the config file lives unless --config says otherwise.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

func DefaultConfig() *Config {
	dir := Dir()
	return &Config{
		Database: DatabaseConfig{
			Path: filepath.Join(dir, "kaizen.db"),
		},
		Auth: AuthConfig{
			SessionTTL:  "24h",
			SessionFile: filepath.Join(dir, "session"),
			Issuer:      "kaizen",
		},
		Storage: StorageConfig{
			Dir:          filepath.Join(dir, "storage"),
			BaseURL:      "http://localhost:8080/storage",
			SignedURLTTL: "1h",
		},
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"*"},
			ShutdownGrace:  "10s",
		},
		Editor: EditorConfig{
			AutosaveWindow: "1s",
			GridSize:       10,
			FrameInterval:  "16ms",
			SeedExample:    false,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  filepath.Join(dir, "kaizen.log"),
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	cfg.expandPaths()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("KAIZEN_DB"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("KAIZEN_JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("KAIZEN_STORAGE_DIR"); v != "" {
		c.Storage.Dir = v
	}
	if v := os.Getenv("KAIZEN_ADDR"); v != "" {
		c.Server.Addr = v
	}
}

func (c *Config) expandPaths() {
	for _, p := range []*string{
		&c.Database.Path, &c.Auth.SessionFile, &c.Storage.Dir, &c.Editor.ExportDir, &c.Logging.File,
	} {
		*p = expandHome(*p)
	}
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// Validate reports settings the backend cannot run without.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret not configured (set KAIZEN_JWT_SECRET)")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("auth.jwt_secret must be at least 16 characters")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path not configured")
	}
	return nil
}

// ExportPath resolves a file name against the export directory, if one is set.
func (c *Config) ExportPath(name string) string {
	if c.Editor.ExportDir == "" || filepath.IsAbs(name) {
		return name
	}
	_ = os.MkdirAll(c.Editor.ExportDir, 0755)
	return filepath.Join(c.Editor.ExportDir, name)
}

// AutosaveWindow returns the diagram autosave quiet window.
func (c *Config) AutosaveWindow() time.Duration {
	return parseDuration(c.Editor.AutosaveWindow, time.Second)
}

// FrameInterval returns the minimum spacing of drag and resize updates.
func (c *Config) FrameInterval() time.Duration {
	return parseDuration(c.Editor.FrameInterval, 16*time.Millisecond)
}

func (c *Config) SessionTTL() time.Duration {
	return parseDuration(c.Auth.SessionTTL, 24*time.Hour)
}

func (c *Config) SignedURLTTL() time.Duration {
	return parseDuration(c.Storage.SignedURLTTL, time.Hour)
}

func (c *Config) ShutdownGrace() time.Duration {
	return parseDuration(c.Server.ShutdownGrace, 10*time.Second)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
