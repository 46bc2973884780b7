// Package mock implements an in-memory, scriptable transport for tests
// and sandboxing. Responses are served from a FIFO queue first, then from
// per-URL routes; requests can be delayed or failed artificially and
// every call is recorded for later inspection.
package mock

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

// Response describes one scripted reply.
type Response struct {
	Status int
	Header http.Header
	Body   string

	// Delay is slept before the reply is produced, on top of any
	// transport-wide latency. It models a slow upstream.
	Delay time.Duration
}

// Call records one request seen by the transport.
type Call struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// SeedEntry is the JSON shape accepted by Seed and LoadSeed.
type SeedEntry struct {
	URL    string            `json:"url"`
	Status int               `json:"status"`
	Header map[string]string `json:"header,omitempty"`
	Body   string            `json:"body"`
}

// Transport is a scripted in-memory stand-in for an HTTP client.
type Transport struct {
	mu          sync.Mutex
	routes      map[string]Response
	queue       []Response
	latency     time.Duration
	failRate    float64
	failCode    int // 0 means fail at the transport level
	rand        *rand.Rand
	calls       []Call
	inFlight    int
	maxInFlight int
}

// New creates an empty transport. Unmatched requests get a 404.
func New() *Transport {
	return &Transport{
		routes: make(map[string]Response),
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Respond installs the reply served for every request to url (after the
// queue is drained).
func (t *Transport) Respond(url string, res Response) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.routes[url] = res
}

// Enqueue appends a reply served to the next request regardless of URL.
func (t *Transport) Enqueue(res Response) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.queue = append(t.queue, res)
}

// SetLatency injects a fixed delay into every request.
func (t *Transport) SetLatency(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.latency = d
}

// FailWith makes a fraction of requests fail. With code > 0 the failure
// is an HTTP response carrying that status; with code 0 the transport
// itself errors without producing a response.
func (t *Transport) FailWith(rate float64, code int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if rate < 0 {
		rate = 0
	}
	if rate > 1 {
		rate = 1
	}
	t.failRate = rate
	t.failCode = code
}

// Seed installs canned routes.
func (t *Transport) Seed(entries []SeedEntry) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range entries {
		if strings.TrimSpace(e.URL) == "" {
			return fmt.Errorf("mock transport: seed entry missing url")
		}
		res := Response{Status: e.Status, Body: e.Body}
		if res.Status == 0 {
			res.Status = http.StatusOK
		}
		if len(e.Header) > 0 {
			res.Header = make(http.Header, len(e.Header))
			for k, v := range e.Header {
				res.Header.Set(k, v)
			}
		}
		t.routes[e.URL] = res
	}
	return nil
}

// LoadSeed reads a JSON array of seed entries from path.
func (t *Transport) LoadSeed(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("mock transport: read seed: %w", err)
	}
	var entries []SeedEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("mock transport: decode seed: %w", err)
	}
	return t.Seed(entries)
}

// Calls returns a copy of every recorded request, in order.
func (t *Transport) Calls() []Call {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Call(nil), t.calls...)
}

// CallCount returns how many requests the transport has seen.
func (t *Transport) CallCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.calls)
}

// MaxInFlight reports the highest number of concurrently outstanding
// requests observed so far.
func (t *Transport) MaxInFlight() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.maxInFlight
}

// Do implements the transport capability.
func (t *Transport) Do(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
		_ = req.Body.Close()
	}

	t.mu.Lock()
	t.calls = append(t.calls, Call{
		Method: req.Method,
		URL:    req.URL.String(),
		Header: req.Header.Clone(),
		Body:   body,
	})
	t.inFlight++
	if t.inFlight > t.maxInFlight {
		t.maxInFlight = t.inFlight
	}

	res, ok := t.nextLocked(req.URL.String())
	fail := t.failRate > 0 && t.rand.Float64() < t.failRate
	failCode := t.failCode
	delay := t.latency + res.Delay
	t.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	t.mu.Lock()
	t.inFlight--
	t.mu.Unlock()

	if fail {
		if failCode > 0 {
			return newHTTPResponse(req, Response{Status: failCode, Body: "injected failure"}), nil
		}
		return nil, errors.New("mock transport: injected failure")
	}
	if !ok {
		return newHTTPResponse(req, Response{Status: http.StatusNotFound, Body: "not found"}), nil
	}
	return newHTTPResponse(req, res), nil
}

func (t *Transport) nextLocked(url string) (Response, bool) {
	if len(t.queue) > 0 {
		res := t.queue[0]
		t.queue = t.queue[1:]
		return res, true
	}
	res, ok := t.routes[url]
	return res, ok
}

func newHTTPResponse(req *http.Request, res Response) *http.Response {
	status := res.Status
	if status == 0 {
		status = http.StatusOK
	}
	header := res.Header
	if header == nil {
		header = make(http.Header)
	}
	return &http.Response{
		StatusCode: status,
		Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(res.Body)),
		Request:    req,
	}
}
