package bridge

import (
	_ "embed"
	"net/http"
)

// Paths served by NewMux.
const (
	PagePath   = "/"
	SocketPath = "/ws"
)

//go:embed relay.html
var relayPage []byte

// RelayPage serves the browser page that forwards calls to wallet globals.
func RelayPage() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != PagePath {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write(relayPage)
	})
}

// NewMux mounts the relay page and the hub socket.
func NewMux(h *Hub) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle(PagePath, RelayPage())
	mux.Handle(SocketPath, h)
	return mux
}
