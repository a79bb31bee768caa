package devserver

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// sseClient is one connected browser's push channel.
type sseClient struct {
	w           http.ResponseWriter
	flusher     http.Flusher
	origin      string
	href        string
	connectedAt time.Time
}

// sseHub fans out file-change notifications to every connected browser. It
// is the SSE analogue of a WebSocket session registry: a mutex-guarded
// set (map) of per-connection writer handles, with broadcasts iterating a
// snapshot copy so a slow or dead client can't hold the lock during a
// network write.
type sseHub struct {
	mu      sync.Mutex
	clients map[*sseClient]struct{}
}

func newSSEHub() *sseHub {
	return &sseHub{clients: make(map[*sseClient]struct{})}
}

// Register upgrades w/r into an SSE stream, writes an initial comment to
// open the pipe, adds the client to the hub, and returns without blocking;
// the caller keeps the request open and calls Remove when it ends.
func (h *sseHub) Register(w http.ResponseWriter, r *http.Request) (*sseClient, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("sse: response writer does not support flushing")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	if origin := r.Header.Get("Origin"); origin != "" {
		w.Header().Set("Access-Control-Allow-Origin", origin)
	}
	w.WriteHeader(http.StatusOK)

	client := &sseClient{
		w:           w,
		flusher:     flusher,
		origin:      r.Header.Get("Origin"),
		href:        r.URL.Query().Get("href"),
		connectedAt: time.Now(),
	}

	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()

	return client, nil
}

// Remove unregisters a client, e.g. when its request context is done.
func (h *sseHub) Remove(c *sseClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// Broadcast sends a "paths changed" event to every registered client. Writes
// are per-client and not serialised against each other; a failing client is
// removed rather than allowed to wedge the broadcast.
func (h *sseHub) Broadcast(paths []string) {
	h.mu.Lock()
	snapshot := make([]*sseClient, 0, len(h.clients))
	for c := range h.clients {
		snapshot = append(snapshot, c)
	}
	h.mu.Unlock()

	payload := encodeChangedPaths(paths)
	for _, c := range snapshot {
		if err := writeEvent(c, payload); err != nil {
			h.Remove(c)
		}
	}
}

func writeEvent(c *sseClient, payload string) error {
	id := uuid.NewString()
	_, err := fmt.Fprintf(c.w, "id: %s\nretry: 250\ndata: %s\n\n", id, payload)
	if err != nil {
		return err
	}
	c.flusher.Flush()
	return nil
}

func encodeChangedPaths(paths []string) string {
	if len(paths) == 0 {
		return "{}"
	}
	out := `{"changed":[`
	for i, p := range paths {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf("%q", p)
	}
	out += "]}"
	return out
}

// Count reports the number of currently connected clients (test/diagnostic
// use).
func (h *sseHub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close drains every connected client, used during server shutdown.
func (h *sseHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
	}
}
