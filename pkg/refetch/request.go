package refetch

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/civicsource/refetch/internal/httpx"
)

// Request is the canonical, immutable description of one HTTP fetch.
// A new descriptor is built whenever caller input changes; structural
// inequality between the previous and next descriptor is what triggers
// an automatic refetch on an eager Resource.
type Request struct {
	URL    string
	Method string // defaults to GET
	Header http.Header
	Body   []byte

	// BearerToken injects "Authorization: Bearer <token>" into Header.
	// A caller-supplied Authorization header takes precedence.
	BearerToken string

	// RefreshInterval re-issues the fetch this long after each
	// settlement. Zero disables polling.
	RefreshInterval time.Duration

	// ResetDelay clears the fetched flag and data this long after a
	// successful fetch. Zero disables the reset.
	ResetDelay time.Duration
}

// Normalize turns caller input into a canonical descriptor. Input may be
// nil, a URL string, a Request or a *Request. It returns (nil, nil) when
// the input is absent, an empty string, or a descriptor whose URL
// resolves empty: a nil descriptor means "no request", which is how
// conditional fetching is suppressed. Normalize has no side effects.
func Normalize(input any) (*Request, error) {
	switch v := input.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		return &Request{
			URL:    v,
			Method: http.MethodGet,
			Header: make(http.Header),
		}, nil
	case Request:
		return normalizeRequest(&v), nil
	case *Request:
		if v == nil {
			return nil, nil
		}
		return normalizeRequest(v), nil
	default:
		return nil, fmt.Errorf("refetch: unsupported input type %T", input)
	}
}

func normalizeRequest(in *Request) *Request {
	if strings.TrimSpace(in.URL) == "" {
		return nil
	}
	out := in.clone()
	if out.Method == "" {
		out.Method = http.MethodGet
	}
	if out.BearerToken != "" && out.Header.Get("Authorization") == "" {
		out.Header.Set("Authorization", "Bearer "+out.BearerToken)
	}
	return out
}

// Equal reports structural value equality between two descriptors.
func (r *Request) Equal(other *Request) bool {
	if r == nil || other == nil {
		return r == other
	}
	if r.URL != other.URL ||
		r.Method != other.Method ||
		r.BearerToken != other.BearerToken ||
		r.RefreshInterval != other.RefreshInterval ||
		r.ResetDelay != other.ResetDelay {
		return false
	}
	if !bytes.Equal(r.Body, other.Body) {
		return false
	}
	return headerEqual(r.Header, other.Header)
}

func headerEqual(a, b http.Header) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
	}
	return true
}

// clone deep-copies the descriptor so the returned value owns its header
// and body storage.
func (r *Request) clone() *Request {
	if r == nil {
		return nil
	}
	out := *r
	out.Header = httpx.CloneHeader(r.Header)
	if r.Body != nil {
		out.Body = append([]byte(nil), r.Body...)
	}
	return &out
}
