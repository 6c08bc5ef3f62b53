// Package httpserver builds the HTTP server with the timeouts metafed runs
// with.
package httpserver

import (
	"net/http"
	"time"
)

// Server timeouts. Aggregates can be large, so writes get more room than
// reads.
const (
	ReadHeaderTimeout = 5 * time.Second
	ReadTimeout       = 15 * time.Second
	WriteTimeout      = 2 * time.Minute
	IdleTimeout       = time.Minute
)

// New builds an HTTP server serving handler on addr.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}
}
