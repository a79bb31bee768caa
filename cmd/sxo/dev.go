package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sxo-dev/sxo/internal/config"
	"github.com/sxo-dev/sxo/internal/renderbridge"
	"github.com/sxo-dev/sxo/pkg/devserver"
	"github.com/sxo-dev/sxo/pkg/manifest"
)

func newDevCommand() *cobra.Command {
	var port int
	var host string
	var cwd string

	cmd := &cobra.Command{
		Use:   "dev",
		Short: "Start the development server",
		Long:  `Starts a development server with file watching, hot reload, and on-demand rendering.`,
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
			if port != 0 {
				cfg.Dev.Port = port
			}
			if host != "" {
				cfg.Dev.Host = host
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

			srv, err := devserver.New(devserver.Config{
				Addr:            fmt.Sprintf("%s:%d", cfg.Dev.Host, cfg.Dev.Port),
				RoutesDir:       cfg.RoutesDir,
				ClientOutputDir: cfg.ClientOutputDir,
				ManifestPath:    manifestPath,
				PublicPath:      cfg.PublicPath,
				BundlerCommand:  cfg.BundlerCommand,
				Logger:          logger,
				Resolve:         bridge.Resolver(),
			})
			if err != nil {
				return fmt.Errorf("failed to start dev server: %w", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()

			logger.Info("🚀 dev server ready", "addr", fmt.Sprintf("http://%s:%d", cfg.Dev.Host, cfg.Dev.Port))

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				logger.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			}
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides sxo.yaml)")
	cmd.Flags().StringVar(&host, "host", "", "host to listen on (overrides sxo.yaml)")
	cmd.Flags().StringVar(&cwd, "cwd", "", "change to this directory before starting")

	return cmd
}
