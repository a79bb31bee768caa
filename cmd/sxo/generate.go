package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/html"

	"github.com/sxo-dev/sxo/internal/config"
	"github.com/sxo-dev/sxo/internal/renderbridge"
	"github.com/sxo-dev/sxo/pkg/generator"
	"github.com/sxo-dev/sxo/pkg/loader"
	"github.com/sxo-dev/sxo/pkg/manifest"
)

func newGenerateCommand() *cobra.Command {
	var cwd string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Statically generate every route that has no dynamic segments",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cwd != "" {
				if err := os.Chdir(cwd); err != nil {
					return fmt.Errorf("failed to change directory: %w", err)
				}
			}

			logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

			cfg, err := config.Load(".")
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			manifestPath := filepath.Join(cfg.ClientOutputDir, "manifest.json")
			m, err := manifest.Build(cfg.RoutesDir)
			if err != nil {
				return fmt.Errorf("failed to build route manifest: %w", err)
			}
			if err := os.MkdirAll(cfg.ClientOutputDir, 0755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
			if err := manifest.Save(manifestPath, m); err != nil {
				return fmt.Errorf("failed to write manifest: %w", err)
			}

			bridge := renderbridge.New(cfg.RenderCommand, ".")
			ld := loader.New(bridge.Resolver())

			var minifyFn generator.Minifier
			if cfg.Minify {
				minifyFn = minifyHTML
			}

			result, err := generator.Generate(context.Background(), generator.Options{
				ManifestPath:     manifestPath,
				ClientOutputDir:  cfg.ClientOutputDir,
				PublicPath:       cfg.PublicPath,
				Minify:           cfg.Minify,
				Logger:           logger,
			}, ld, minifyFn)
			if err != nil {
				return fmt.Errorf("generate failed: %w", err)
			}

			logger.Info("✅ generate complete",
				"generated", result.Summary.Generated,
				"skipped", result.Summary.Skipped,
				"failed", result.Summary.Failed,
			)
			if result.Summary.Failed > 0 {
				for _, f := range result.Failed {
					logger.Error("route failed", "path", f.Path, "error", f.Err)
				}
				return fmt.Errorf("%d route(s) failed to generate", result.Summary.Failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&cwd, "cwd", "", "change to this directory before starting")
	return cmd
}

func minifyHTML(in string) (string, error) {
	m := minify.New()
	m.AddFunc("text/html", html.Minify)
	out, err := m.String("text/html", in)
	if err != nil {
		return "", fmt.Errorf("minify: %w", err)
	}
	return out, nil
}
