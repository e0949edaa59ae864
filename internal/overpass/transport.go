package overpass

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// LoggingTransport logs every request sent to the boundary service.
type LoggingTransport struct {
	Next http.RoundTripper
}

// NewLoggingTransport wraps next, or http.DefaultTransport when next is nil.
func NewLoggingTransport(next http.RoundTripper) *LoggingTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	return &LoggingTransport{Next: next}
}

// RoundTrip sends the request and records method, host, status and duration.
func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	resp, err := t.Next.RoundTrip(req)
	if err != nil {
		log.Debug().
			Err(err).
			Str("method", req.Method).
			Str("host", req.URL.Host).
			Dur("duration", time.Since(start)).
			Msg("Request failed")
		return nil, err
	}

	log.Debug().
		Str("method", req.Method).
		Str("host", req.URL.Host).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Request processed")

	return resp, nil
}
