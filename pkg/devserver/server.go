// Package devserver implements the development HTTP server: per-request
// rendering, a debounced bundler supervisor, recursive source/output
// watchers, and an SSE hub that tells connected browsers to refetch a page
// after a rebuild.
package devserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/aofei/mimesniffer"

	"github.com/sxo-dev/sxo/pkg/assets"
	"github.com/sxo-dev/sxo/pkg/head"
	"github.com/sxo-dev/sxo/pkg/loader"
	"github.com/sxo-dev/sxo/pkg/manifest"
	"github.com/sxo-dev/sxo/pkg/middleware"
	"github.com/sxo-dev/sxo/pkg/router"
)

const ssePath = "/hot-replace"

// Config configures the dev server.
type Config struct {
	Addr            string
	RoutesDir       string
	ClientOutputDir string
	ManifestPath    string
	PublicPath      string
	BundlerCommand  []string
	Middleware      []middleware.Func
	NotFoundPage    string // optional user-provided 404 HTML
	Logger          *slog.Logger
	Resolve         loader.Resolver
}

// Server is the composed dev server: components B, C, D, E, F wired behind
// an HTTP handler, plus the watcher/bundler/SSE machinery component H adds.
type Server struct {
	cfg      Config
	logger   *slog.Logger
	manifest atomic.Pointer[manifest.Manifest]
	loader   *loader.Loader
	bundler  *bundlerSupervisor
	hub      *sseHub
	watchers *watcherPair
	http     *http.Server
}

// New constructs a Server and performs the initial manifest load, but does
// not start listening — call ListenAndServe for that.
func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	m, err := manifest.Load(cfg.ManifestPath)
	if err != nil {
		return nil, fmt.Errorf("devserver: %w", err)
	}

	s := &Server{
		cfg:     cfg,
		logger:  cfg.Logger,
		loader:  loader.New(cfg.Resolve),
		bundler: newBundlerSupervisor(cfg.BundlerCommand, ".", cfg.Logger),
		hub:     newSSEHub(),
	}
	s.manifest.Store(&m)

	s.watchers = newWatcherPair(cfg.RoutesDir, cfg.ClientOutputDir, cfg.Logger,
		s.bundler.RequestRebuild,
		s.onOutputChanged,
	)

	s.http = &http.Server{Addr: cfg.Addr, Handler: s}
	return s, nil
}

// onOutputChanged runs when the client output directory changes: it clears
// the module cache, reloads the manifest, and broadcasts to every connected
// browser.
func (s *Server) onOutputChanged() {
	s.loader.Clear()

	if m, err := manifest.Load(s.cfg.ManifestPath); err != nil {
		s.logger.Warn("manifest reload failed", "error", err)
	} else {
		s.manifest.Store(&m)
	}

	s.hub.Broadcast([]string{"*"})
}

// ListenAndServe starts the HTTP listener. It blocks until Shutdown is
// called or the listener fails.
func (s *Server) ListenAndServe() error {
	s.logger.Info("dev server listening", "addr", s.cfg.Addr)
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown closes the listener, cancels the watchers, and drains every SSE
// client, in that order.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)
	if s.watchers != nil {
		s.watchers.Close()
	}
	s.hub.Close()
	return err
}

func (s *Server) currentManifest() manifest.Manifest {
	if m := s.manifest.Load(); m != nil {
		return *m
	}
	return manifest.Manifest{}
}

// ServeHTTP implements the per-request pipeline from spec.md §4.H.4.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mwResp := middleware.NewResponse()
	mwReq := &middleware.Request{Method: r.Method, Path: r.URL.Path, Headers: r.Header, Context: r.Context()}

	result := middleware.Run(s.cfg.Middleware, mwReq, mwResp)
	if result.Err != nil {
		s.renderError(w, r, result.Err)
		return
	}
	if result.Handled {
		flushMiddlewareResponse(w, mwResp)
		return
	}

	pathname := strings.TrimPrefix(r.URL.Path, "/")

	if ext := filepath.Ext(pathname); ext != "" {
		if s.serveStatic(w, r, pathname) {
			return
		}
	}

	if r.URL.Path == ssePath {
		s.serveSSE(w, r)
		return
	}

	s.serveRoute(w, r, pathname)
}

func flushMiddlewareResponse(w http.ResponseWriter, resp *middleware.Response) {
	if resp.Status() != 0 {
		w.WriteHeader(resp.Status())
	}
	if len(resp.Body()) > 0 {
		w.Write(resp.Body())
	}
}

// serveStatic serves a hashed client asset from the output directory with
// path-traversal protection. It returns false (doing nothing) when the
// requested file does not exist, so the caller can fall through to route
// matching.
func (s *Server) serveStatic(w http.ResponseWriter, r *http.Request, pathname string) bool {
	base, err := filepath.Abs(s.cfg.ClientOutputDir)
	if err != nil {
		return false
	}
	full := filepath.Join(base, filepath.FromSlash(pathname))
	absFull, err := filepath.Abs(full)
	if err != nil || (absFull != base && !strings.HasPrefix(absFull, base+string(filepath.Separator))) {
		http.Error(w, "403 Forbidden", http.StatusForbidden)
		return true
	}

	data, err := os.ReadFile(absFull)
	if err != nil {
		return false
	}

	w.Header().Set("Content-Type", mimeType(absFull, data))
	w.Header().Set("Cache-Control", "no-cache")
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return true
	}
	w.Write(data)
	return true
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

func (s *Server) serveSSE(w http.ResponseWriter, r *http.Request) {
	client, err := s.hub.Register(w, r)
	if err != nil {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}
	defer s.hub.Remove(client)
	<-r.Context().Done()
}

func (s *Server) serveRoute(w http.ResponseWriter, r *http.Request, pathname string) {
	match, ok := router.Find(s.currentManifest(), pathname)
	if !ok {
		s.renderNotFound(w, r)
		return
	}

	mod, err := s.loader.Load(match.Route.Source, loader.Options{BustCache: false, ReturnErrorStub: true})
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	if mod.Render == nil {
		s.renderError(w, r, fmt.Errorf("module %s exports no render function", match.Route.Source))
		return
	}

	body, err := mod.Render(r.Context(), match.Params)
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	body = head.Apply(body, mod.Head, head.Params(match.Params))
	body = assets.Inject(body, match.Route.Assets.CSS, match.Route.Assets.JS, s.cfg.PublicPath)
	body = injectHotReloadScript(body, pathname)
	if !strings.HasPrefix(strings.TrimSpace(body), "<!doctype") {
		body = "<!doctype html>\n" + body
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	w.Write([]byte(body))
}

func injectHotReloadScript(doc, pathname string) string {
	script := fmt.Sprintf(`<script type="module">
const es = new EventSource(%q);
es.onmessage = () => location.reload();
</script>`, ssePath+"?href=/"+pathname)

	idx := strings.Index(doc, "</head>")
	if idx == -1 {
		return doc + "\n" + script
	}
	return doc[:idx] + script + "\n" + doc[idx:]
}

func (s *Server) renderNotFound(w http.ResponseWriter, r *http.Request) {
	if s.cfg.NotFoundPage != "" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		if r.Method != http.MethodHead {
			w.Write([]byte(s.cfg.NotFoundPage))
		}
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	if r.Method != http.MethodHead {
		w.Write([]byte("404 Not Found"))
	}
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	if r.Method == http.MethodHead {
		return
	}
	fmt.Fprintf(w, `<!doctype html><html><head><title>500</title></head><body><h1>Internal Server Error</h1><pre>%s</pre></body></html>`, err)
}
