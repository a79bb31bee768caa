// Package config loads the project-level sxo.yaml file, following the same
// load/save/default pattern the teacher project uses for its own
// vango.json, but backed by YAML since that's the format the teacher
// already carries a dependency for.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the root of sxo.yaml.
type Config struct {
	// RoutesDir is the page source tree the manifest builder walks.
	RoutesDir string `yaml:"routesDir,omitempty"`
	// ClientOutputDir is where the bundler emits client bundles and where
	// generated HTML and the manifest live.
	ClientOutputDir string `yaml:"clientOutputDir,omitempty"`
	// PublicPath is the URL prefix injected assets are served under.
	PublicPath string `yaml:"publicPath,omitempty"`
	// Minify toggles HTML minification during static generation.
	Minify bool `yaml:"minify,omitempty"`
	// RenderCommand is the external process invoked to render a page
	// source into HTML (and its head export); see internal/renderbridge.
	RenderCommand []string `yaml:"renderCommand,omitempty"`
	// BundlerCommand is the external process invoked to (re)build client
	// bundles; see pkg/devserver's bundler supervisor.
	BundlerCommand []string `yaml:"bundlerCommand,omitempty"`

	Dev *DevConfig `yaml:"dev,omitempty"`
}

// DevConfig configures the development server.
type DevConfig struct {
	Host string `yaml:"host,omitempty"`
	Port int    `yaml:"port,omitempty"`
}

// candidateNames are tried in order when no explicit path is given.
var candidateNames = []string{"sxo.yaml", "sxo.yml", "sxo.json"}

// Load reads the project config from projectPath, falling back to
// DefaultConfig when no config file is present.
func Load(projectPath string) (*Config, error) {
	for _, name := range candidateNames {
		path := filepath.Join(projectPath, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		cfg := DefaultConfig()
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
		applyDefaults(cfg)
		return cfg, nil
	}
	return DefaultConfig(), nil
}

// Save writes cfg to sxo.yaml under projectPath.
func Save(cfg *Config, projectPath string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(projectPath, "sxo.yaml"), data, 0644)
}

// DefaultConfig returns the configuration used when no sxo.yaml is present.
func DefaultConfig() *Config {
	return &Config{
		RoutesDir:       "app/pages",
		ClientOutputDir: "dist/client",
		PublicPath:      "/",
		Dev: &DevConfig{
			Host: "localhost",
			Port: 5173,
		},
	}
}

func applyDefaults(cfg *Config) {
	def := DefaultConfig()
	if cfg.RoutesDir == "" {
		cfg.RoutesDir = def.RoutesDir
	}
	if cfg.ClientOutputDir == "" {
		cfg.ClientOutputDir = def.ClientOutputDir
	}
	if cfg.PublicPath == "" {
		cfg.PublicPath = def.PublicPath
	}
	if cfg.Dev == nil {
		cfg.Dev = def.Dev
		return
	}
	if cfg.Dev.Host == "" {
		cfg.Dev.Host = def.Dev.Host
	}
	if cfg.Dev.Port == 0 {
		cfg.Dev.Port = def.Dev.Port
	}
}
