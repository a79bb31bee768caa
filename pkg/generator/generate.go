// Package generator performs the one-shot static generation pass: for every
// static route in the manifest it loads the page module, renders it, applies
// the managed head block and injected assets, and writes the resulting HTML
// to disk — marking the manifest entry generated so a second run is a no-op.
package generator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/sxo-dev/sxo/pkg/assets"
	"github.com/sxo-dev/sxo/pkg/head"
	"github.com/sxo-dev/sxo/pkg/loader"
	"github.com/sxo-dev/sxo/pkg/manifest"
)

// Options configures a single generation pass.
type Options struct {
	ManifestPath    string
	ClientOutputDir string
	PublicPath      string
	// Minify, when set, runs generated HTML through the configured
	// minifier before it is written to disk.
	Minify bool
	Logger *slog.Logger
}

// Summary reports how many routes were generated, skipped (already current),
// or failed during the pass.
type Summary struct {
	Generated int
	Skipped   int
	Failed    int
}

// FailedRoute describes a single route's failure so callers can report it.
type FailedRoute struct {
	Path string
	Err  error
}

// Result is the full outcome of a Generate call.
type Result struct {
	Summary Summary
	Failed  []FailedRoute
}

// Minifier minifies an HTML document before it is written to disk. A nil
// Minifier (or Options.Minify == false) skips this step.
type Minifier func(html string) (string, error)

// Generate runs the static generation pass described in spec.md §4.G.
func Generate(ctx context.Context, opts Options, ld *loader.Loader, minify Minifier) (Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	m, err := manifest.Load(opts.ManifestPath)
	if err != nil {
		return Result{}, fmt.Errorf("generator: %w", err)
	}

	var static []int
	for i, r := range m.Routes {
		if !r.Dynamic() {
			static = append(static, i)
		}
	}
	if len(static) == 0 {
		logger.Info("no static routes to generate")
		return Result{}, nil
	}

	var result Result
	for _, i := range static {
		route := &m.Routes[i]
		outPath := filepath.Join(opts.ClientOutputDir, filepath.FromSlash(route.Filename))

		if route.Generated {
			if _, err := os.Stat(outPath); err == nil {
				result.Summary.Skipped++
				continue
			}
		}

		if err := generateRoute(ctx, route, outPath, opts, ld, minify); err != nil {
			result.Summary.Failed++
			result.Failed = append(result.Failed, FailedRoute{Path: route.Path, Err: err})
			logger.Error("route generation failed", "path", route.Path, "error", err)
			continue
		}

		route.Generated = true
		result.Summary.Generated++
	}

	if err := manifest.Save(opts.ManifestPath, m); err != nil {
		return result, fmt.Errorf("generator: failed to write manifest: %w", err)
	}
	return result, nil
}

func generateRoute(ctx context.Context, route *manifest.RouteDescriptor, outPath string, opts Options, ld *loader.Loader, minify Minifier) error {
	mod, err := ld.Load(route.Source, loader.Options{})
	if err != nil {
		return fmt.Errorf("load module: %w", err)
	}
	if mod.Render == nil {
		return fmt.Errorf("module %s exports no render function", route.Source)
	}

	body, err := mod.Render(ctx, map[string]string{})
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if !strings.Contains(body, "<html") {
		return fmt.Errorf("render output does not contain an <html> tag")
	}

	body = head.Apply(body, mod.Head, head.Params{})
	body = assets.Inject(body, route.Assets.CSS, route.Assets.JS, opts.PublicPath)
	if !strings.HasPrefix(strings.TrimSpace(body), "<!doctype") && !strings.HasPrefix(strings.TrimSpace(body), "<!DOCTYPE") {
		body = "<!doctype html>\n" + body
	}

	if opts.Minify && minify != nil {
		minified, err := minify(body)
		if err != nil {
			return fmt.Errorf("minify: %w", err)
		}
		body = minified
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	return writeAtomic(outPath, []byte(body))
}

// writeAtomic writes to a temp file in the same directory and renames it
// into place, so a reader never observes a partially written document.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".sxo-tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
