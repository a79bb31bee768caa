package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_DefaultsWhenAbsent(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RoutesDir != "app/pages" || cfg.Dev.Port != 5173 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoad_PartialOverride(t *testing.T) {
	dir := t.TempDir()
	content := "publicPath: /static/\ndev:\n  port: 4000\n"
	if err := os.WriteFile(filepath.Join(dir, "sxo.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.PublicPath != "/static/" {
		t.Errorf("publicPath = %q", cfg.PublicPath)
	}
	if cfg.Dev.Port != 4000 {
		t.Errorf("port = %d, want 4000", cfg.Dev.Port)
	}
	if cfg.Dev.Host != "localhost" {
		t.Errorf("expected default host to survive partial override, got %q", cfg.Dev.Host)
	}
	if cfg.RoutesDir != "app/pages" {
		t.Errorf("expected default routesDir to survive partial override, got %q", cfg.RoutesDir)
	}
}

func TestSave_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.PublicPath = "/assets/"
	cfg.RenderCommand = []string{"node", "render.mjs"}
	cfg.BundlerCommand = []string{"npm", "run", "build"}

	if err := Save(cfg, dir); err != nil {
		t.Fatal(err)
	}
	reloaded, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.PublicPath != "/assets/" {
		t.Errorf("got %q", reloaded.PublicPath)
	}
	if len(reloaded.RenderCommand) != 2 || reloaded.RenderCommand[0] != "node" {
		t.Errorf("renderCommand = %v", reloaded.RenderCommand)
	}
	if len(reloaded.BundlerCommand) != 3 || reloaded.BundlerCommand[1] != "run" {
		t.Errorf("bundlerCommand = %v", reloaded.BundlerCommand)
	}
}
