package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server for either Nexus binary. The write timeout must
// sit above the 10 second budget of the user service's synchronous challenge
// validation call, or AI registrations get cut off mid-response when the
// verification service is slow.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
