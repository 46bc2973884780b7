package refetch

import (
	"net/http"

	"github.com/rs/zerolog"
)

// Transport is the injected capability a Resource issues requests
// through. *http.Client satisfies it, as does mock.Transport.
type Transport interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option configures a Resource.
type Option func(*Resource)

// WithTransport overrides the transport used to issue requests. The
// default is a timeout-bounded http.Client.
func WithTransport(t Transport) Option {
	return func(r *Resource) {
		if t != nil {
			r.transport = t
		}
	}
}

// WithLogger attaches a structured logger. Lifecycle events (issuance,
// settlement, stale discards, timer arming, teardown) are logged at debug
// level. The default logger discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Resource) {
		r.logger = logger
	}
}
