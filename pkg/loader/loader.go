// Package loader resolves a route descriptor's source reference to a
// rendering module, memoising loaded modules the way the dev server keeps
// its build cache warm between requests until a source change invalidates
// it.
package loader

import (
	"context"
	"fmt"
	"html"
	"sync"
)

// RenderFunc renders a page for the given route parameters.
type RenderFunc func(ctx context.Context, params map[string]string) (string, error)

// Module is what a page source resolves to: a render function and an
// optional head export (see package head for the accepted shapes).
type Module struct {
	Render RenderFunc
	Head   any
}

// Resolver loads a Module from a source reference. Production code plugs in
// whatever the external JSX compiler/bundler exposes (e.g. dynamically
// loaded Go plugins, a subprocess bridge, or compiled-in registrations);
// tests supply a fake.
type Resolver func(source string) (Module, error)

// Options configure a single Load call.
type Options struct {
	// BustCache forces a reload even if source is already cached (dev use).
	BustCache bool
	// ReturnErrorStub causes Load to substitute a dev-friendly error page
	// renderer instead of propagating a resolve failure.
	ReturnErrorStub bool
}

// Loader caches modules by source reference.
type Loader struct {
	resolve Resolver
	mu      sync.RWMutex
	cache   map[string]Module
}

// New creates a Loader that resolves cache misses with resolve.
func New(resolve Resolver) *Loader {
	return &Loader{
		resolve: resolve,
		cache:   make(map[string]Module),
	}
}

// Load resolves source to a Module, consulting the cache first unless
// opts.BustCache is set. On resolve failure, it returns the error unless
// opts.ReturnErrorStub is set, in which case it returns an error-stub module
// whose Render produces a dev-friendly HTML error page.
func (l *Loader) Load(source string, opts Options) (Module, error) {
	if !opts.BustCache {
		l.mu.RLock()
		m, ok := l.cache[source]
		l.mu.RUnlock()
		if ok {
			return m, nil
		}
	}

	m, err := l.resolve(source)
	if err != nil {
		if opts.ReturnErrorStub {
			return errorStub(source, err), nil
		}
		return Module{}, fmt.Errorf("loader: failed to resolve %s: %w", source, err)
	}

	l.mu.Lock()
	l.cache[source] = m
	l.mu.Unlock()

	return m, nil
}

// Clear empties the module cache, used when the dev server's output
// directory watcher observes a rebuild.
func (l *Loader) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache = make(map[string]Module)
}

// errorStub builds a Module whose render function formats a failure as an
// HTML page, rather than surfacing a raw Go error to the browser.
func errorStub(source string, cause error) Module {
	return Module{
		Render: func(ctx context.Context, params map[string]string) (string, error) {
			return fmt.Sprintf(`<!doctype html>
<html>
<head><title>Module load error</title></head>
<body>
<h1>Failed to load module</h1>
<p><code>%s</code></p>
<pre>%s</pre>
</body>
</html>`, html.EscapeString(source), html.EscapeString(cause.Error())), nil
		},
	}
}
