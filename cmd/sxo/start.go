package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sxo-dev/sxo/internal/config"
	"github.com/sxo-dev/sxo/internal/renderbridge"
	"github.com/sxo-dev/sxo/pkg/prodserver"
)

func newStartCommand() *cobra.Command {
	var port int
	var host string
	var cwd string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Serve the generated site and render remaining routes on demand",
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

			bridge := renderbridge.New(cfg.RenderCommand, ".")

			h, err := prodserver.New(prodserver.Config{
				ManifestPath:    filepath.Join(cfg.ClientOutputDir, "manifest.json"),
				GeneratedDir:    cfg.ClientOutputDir,
				ClientOutputDir: cfg.ClientOutputDir,
				PublicPath:      cfg.PublicPath,
				Logger:          logger,
				Resolve:         bridge.Resolver(),
			})
			if err != nil {
				return fmt.Errorf("failed to start server: %w", err)
			}

			mux := http.NewServeMux()
			mux.Handle("/", httpAdapter{h})

			addr := fmt.Sprintf("%s:%d", cfg.Dev.Host, cfg.Dev.Port)
			srv := &http.Server{Addr: addr, Handler: mux}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()

			logger.Info("🚀 prod server ready", "addr", fmt.Sprintf("http://%s", addr))

			select {
			case err := <-errCh:
				if err == http.ErrServerClosed {
					return nil
				}
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

// httpAdapter bridges net/http onto the runtime-agnostic prodserver.Handler.
type httpAdapter struct {
	h *prodserver.Handler
}

func (a httpAdapter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := a.h.Handle(prodserver.Request{
		Method:  r.Method,
		Path:    r.URL.Path,
		Headers: r.Header,
		Context: r.Context(),
	})

	for k, values := range resp.Headers {
		for _, v := range values {
			w.Header().Add(k, v)
		}
	}
	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if len(resp.Body) > 0 {
		w.Write(resp.Body)
	}
}
