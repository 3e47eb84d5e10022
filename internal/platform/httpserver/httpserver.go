package httpserver

import (
	"net/http"
	"time"

	"mintpress/internal/platform/config"
)

// New builds the HTTP server. The write deadline leaves headroom over the
// per-request timeout so handlers can still write their timeout response.
func New(cfg config.Server, handler http.Handler) *http.Server {
	write := cfg.RequestTimeout + 5*time.Second
	if cfg.RequestTimeout <= 0 {
		write = 30 * time.Second
	}
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      write,
		IdleTimeout:       60 * time.Second,
	}
}
