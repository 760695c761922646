// Package httpserver builds the process's http.Server. Construction is
// separated from cmd/server so the timeouts stay in one place.
package httpserver

import (
	"net/http"
	"time"
)

const (
	readHeaderTimeout = 5 * time.Second
	// idleTimeout bounds how long keep-alive connections linger; token
	// endpoints see bursty clients that otherwise hold sockets open.
	idleTimeout = 120 * time.Second
)

// New returns a server for the given router. Shutdown is the caller's job;
// cmd/server drives it from the signal context.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
	}
}
