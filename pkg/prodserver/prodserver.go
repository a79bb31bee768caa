// Package prodserver implements the production request/response contract:
// a runtime-agnostic Handler that the net/http adapter in cmd/sxo (or any
// other transport) can drive without depending on net/http directly.
package prodserver

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aofei/mimesniffer"

	"github.com/sxo-dev/sxo/pkg/assets"
	"github.com/sxo-dev/sxo/pkg/head"
	"github.com/sxo-dev/sxo/pkg/loader"
	"github.com/sxo-dev/sxo/pkg/manifest"
	"github.com/sxo-dev/sxo/pkg/middleware"
	"github.com/sxo-dev/sxo/pkg/router"
)

// Request is the transport-independent view of an inbound request.
type Request struct {
	Method  string
	Path    string
	Headers map[string][]string
	Context context.Context
}

// Response is the transport-independent result a Handler produces; an
// adapter writes it onto whatever concrete transport it owns.
type Response struct {
	Status  int
	Headers map[string][]string
	Body    []byte
}

func (r *Response) setHeader(key, value string) {
	if r.Headers == nil {
		r.Headers = map[string][]string{}
	}
	r.Headers[key] = []string{value}
}

func (r *Response) hasHeader(key string) bool {
	_, ok := r.Headers[key]
	return ok
}

// defaultSecurityHeaders are merged into every response that doesn't already
// set them, matching the hardening a reverse proxy would otherwise have to
// add back in.
var defaultSecurityHeaders = map[string]string{
	"X-Content-Type-Options": "nosniff",
	"X-Frame-Options":        "DENY",
	"Referrer-Policy":        "strict-origin-when-cross-origin",
}

// Config configures a Handler.
type Config struct {
	ManifestPath      string
	GeneratedDir      string // directory holding pre-generated HTML files (RouteDescriptor.Filename is relative to this)
	ClientOutputDir   string // directory holding built static assets (JS/CSS/etc.), served for any request path with an extension
	PublicPath        string
	Middleware        []middleware.WebFunc
	NotFoundPage      string
	ErrorPage         string // optional user-provided 500 HTML; falls back to a minimal HTML page when empty
	SecurityHeaders   map[string]string // overrides defaultSecurityHeaders where set
	Logger            *slog.Logger
	Resolve           loader.Resolver
}

// Handler serves production traffic: pre-generated HTML where available,
// render-on-request for everything else, with no file watching, no bundler
// subprocess, and no SSE.
type Handler struct {
	cfg      Config
	logger   *slog.Logger
	manifest manifest.Manifest
	loader   *loader.Loader
	security map[string]string
}

// New loads the manifest once and returns a ready Handler. The manifest is
// immutable for the handler's lifetime; a new process is started to pick up
// a freshly generated manifest.
func New(cfg Config) (*Handler, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	m, err := manifest.Load(cfg.ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("prodserver: %w", err)
	}

	security := make(map[string]string, len(defaultSecurityHeaders))
	for k, v := range defaultSecurityHeaders {
		security[k] = v
	}
	for k, v := range cfg.SecurityHeaders {
		security[k] = v
	}

	return &Handler{
		cfg:      cfg,
		logger:   cfg.Logger,
		manifest: m,
		loader:   loader.New(cfg.Resolve),
		security: security,
	}, nil
}

// Handle runs the full production pipeline for a single request.
func (h *Handler) Handle(req Request) Response {
	mwReq := &middleware.Request{Method: req.Method, Path: req.Path, Headers: req.Headers, Context: req.Context}
	mwResp, err := middleware.RunWeb(h.cfg.Middleware, mwReq)
	if err != nil {
		return h.withSecurity(h.errorResponse(err))
	}
	if mwResp != nil {
		return h.withSecurity(Response{Status: mwResp.Status, Headers: mwResp.Headers, Body: mwResp.Body})
	}

	if req.Method != "GET" && req.Method != "HEAD" {
		resp := Response{Status: 405, Body: []byte("405 Method Not Allowed")}
		resp.setHeader("Allow", "GET, HEAD")
		return h.withSecurity(resp)
	}

	pathname := trimSlash(req.Path)

	if filepath.Ext(pathname) != "" {
		if resp, ok := h.serveStatic(pathname); ok {
			if req.Method == "HEAD" {
				resp.Body = nil
			}
			return h.withSecurity(resp)
		}
	}

	match, ok := router.Find(h.manifest, pathname)
	if !ok {
		return h.withSecurity(h.notFound(req))
	}

	var resp Response
	if match.Route.Generated {
		resp = h.serveGenerated(match.Route)
	} else {
		resp = h.render(req.Context, match)
	}

	if req.Method == "HEAD" {
		resp.Body = nil
	}
	return h.withSecurity(resp)
}

func (h *Handler) serveGenerated(route manifest.RouteDescriptor) Response {
	path := filepath.Join(h.cfg.GeneratedDir, route.Filename)
	data, err := os.ReadFile(path)
	if err != nil {
		h.logger.Error("generated file missing", "path", path, "error", err)
		return h.render(context.Background(), router.Match{Route: route, Params: map[string]string{}})
	}

	resp := Response{Status: 200, Body: data}
	resp.setHeader("Content-Type", "text/html; charset=utf-8")
	resp.setHeader("Cache-Control", "public, max-age=300")
	return resp
}

func (h *Handler) render(ctx context.Context, match router.Match) Response {
	mod, err := h.loader.Load(match.Route.Source, loader.Options{})
	if err != nil {
		return h.errorResponse(err)
	}
	if mod.Render == nil {
		return h.errorResponse(fmt.Errorf("module %s exports no render function", match.Route.Source))
	}

	body, err := mod.Render(ctx, match.Params)
	if err != nil {
		return h.errorResponse(err)
	}

	body = head.Apply(body, mod.Head, head.Params(match.Params))
	body = assets.Inject(body, match.Route.Assets.CSS, match.Route.Assets.JS, h.cfg.PublicPath)
	if !hasDoctype(body) {
		body = "<!doctype html>\n" + body
	}

	resp := Response{Status: 200, Body: []byte(body)}
	resp.setHeader("Content-Type", "text/html; charset=utf-8")
	resp.setHeader("Cache-Control", "public, max-age=0, must-revalidate")
	return resp
}

// serveStatic serves a built client asset from ClientOutputDir with
// path-traversal protection, the same join-and-prefix-check
// pkg/devserver.serveStatic uses, but with production cache policy instead
// of dev's no-cache: hashed filenames (e.g. index.A1.css) are served
// immutable for a year, everything else gets a short cache lifetime. The
// bool result is false when the file doesn't exist, so the caller falls
// through to route matching.
func (h *Handler) serveStatic(pathname string) (Response, bool) {
	base, err := filepath.Abs(h.cfg.ClientOutputDir)
	if err != nil {
		return Response{}, false
	}
	full := filepath.Join(base, filepath.FromSlash(pathname))
	absFull, err := filepath.Abs(full)
	if err != nil || (absFull != base && !strings.HasPrefix(absFull, base+string(filepath.Separator))) {
		resp := Response{Status: 403, Body: []byte("403 Forbidden")}
		resp.setHeader("Content-Type", "text/plain; charset=utf-8")
		return resp, true
	}

	data, err := os.ReadFile(absFull)
	if err != nil {
		return Response{}, false
	}

	resp := Response{Status: 200, Body: data}
	resp.setHeader("Content-Type", mimeType(absFull, data))
	if isHashedAsset(absFull) {
		resp.setHeader("Cache-Control", "public, max-age=31536000, immutable")
	} else {
		resp.setHeader("Cache-Control", "public, max-age=3600")
	}
	return resp, true
}

func mimeType(path string, data []byte) string {
	if t := mimesniffer.Sniff(data); t != "" {
		return t
	}
	switch filepath.Ext(path) {
	case ".js":
		return "text/javascript; charset=utf-8"
	case ".css":
		return "text/css; charset=utf-8"
	case ".map":
		return "application/json; charset=utf-8"
	case ".html":
		return "text/html; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

// isHashedAsset reports whether a filename carries a build hash segment,
// e.g. index.A1.css — three or more dot-separated segments, the middle one
// being the hash. Plain names like main.css (two segments) are not hashed.
func isHashedAsset(path string) bool {
	name := filepath.Base(path)
	return strings.Count(name, ".") >= 2
}

func (h *Handler) notFound(req Request) Response {
	var resp Response
	if h.cfg.NotFoundPage != "" {
		resp = Response{Status: 404, Body: []byte(h.cfg.NotFoundPage)}
		resp.setHeader("Content-Type", "text/html; charset=utf-8")
	} else {
		resp = Response{Status: 404, Body: []byte("404 Not Found")}
		resp.setHeader("Content-Type", "text/plain; charset=utf-8")
	}
	resp.setHeader("Cache-Control", "public, max-age=0, must-revalidate")
	return resp
}

const fallbackErrorPage = `<!doctype html><html><head><title>500</title></head><body><h1>Internal Server Error</h1></body></html>`

func (h *Handler) errorResponse(err error) Response {
	h.logger.Error("request failed", "error", err)
	body := fallbackErrorPage
	if h.cfg.ErrorPage != "" {
		body = h.cfg.ErrorPage
	}
	resp := Response{Status: 500, Body: []byte(body)}
	resp.setHeader("Content-Type", "text/html; charset=utf-8")
	resp.setHeader("Cache-Control", "no-store")
	return resp
}

// withSecurity merges the configured security headers into resp, never
// overwriting a header the handler (or a middleware) already set.
func (h *Handler) withSecurity(resp Response) Response {
	for k, v := range h.security {
		if !resp.hasHeader(k) {
			resp.setHeader(k, v)
		}
	}
	return resp
}

func trimSlash(path string) string {
	if len(path) > 0 && path[0] == '/' {
		path = path[1:]
	}
	return path
}

func hasDoctype(body string) bool {
	for i := 0; i < len(body) && i < 32; i++ {
		if body[i] == '<' {
			return len(body) >= i+9 && equalFoldPrefix(body[i:i+9], "<!doctype")
		}
		if body[i] != ' ' && body[i] != '\n' && body[i] != '\t' && body[i] != '\r' {
			return false
		}
	}
	return false
}

func equalFoldPrefix(s, prefix string) bool {
	if len(s) < len(prefix) {
		return false
	}
	for i := 0; i < len(prefix); i++ {
		a, b := s[i], prefix[i]
		if 'A' <= a && a <= 'Z' {
			a += 'a' - 'A'
		}
		if a != b {
			return false
		}
	}
	return true
}
