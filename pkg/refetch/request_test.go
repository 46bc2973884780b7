package refetch_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/civicsource/refetch/pkg/refetch"
)

func TestNormalizeSuppression(t *testing.T) {
	tests := []struct {
		name  string
		input any
	}{
		{name: "absent input", input: nil},
		{name: "empty string", input: ""},
		{name: "whitespace string", input: "   "},
		{name: "nil pointer", input: (*refetch.Request)(nil)},
		{
			name:  "descriptor without address",
			input: refetch.Request{Header: http.Header{"Accept": {"application/json"}}},
		},
		{
			name:  "descriptor with blank address",
			input: refetch.Request{URL: "  "},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			req, err := refetch.Normalize(tc.input)
			if err != nil {
				t.Fatalf("Normalize returned error: %v", err)
			}
			if req != nil {
				t.Fatalf("expected no request, got %+v", req)
			}
		})
	}
}

func TestNormalizeString(t *testing.T) {
	req, err := refetch.Normalize("https://api.test/widgets")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if req == nil {
		t.Fatal("expected a descriptor")
	}
	if req.URL != "https://api.test/widgets" {
		t.Fatalf("unexpected URL: %q", req.URL)
	}
	if req.Method != http.MethodGet {
		t.Fatalf("expected GET default, got %q", req.Method)
	}
	if req.Header == nil {
		t.Fatal("expected initialized header map")
	}
}

func TestNormalizeDescriptor(t *testing.T) {
	tests := []struct {
		name       string
		input      refetch.Request
		wantMethod string
		wantHeader http.Header
	}{
		{
			name:       "method default",
			input:      refetch.Request{URL: "https://x/"},
			wantMethod: http.MethodGet,
			wantHeader: http.Header{},
		},
		{
			name:       "explicit method preserved",
			input:      refetch.Request{URL: "https://x/", Method: http.MethodPost},
			wantMethod: http.MethodPost,
			wantHeader: http.Header{},
		},
		{
			name:       "bearer token injected",
			input:      refetch.Request{URL: "https://x/", BearerToken: "tok"},
			wantMethod: http.MethodGet,
			wantHeader: http.Header{"Authorization": {"Bearer tok"}},
		},
		{
			name: "caller authorization wins over bearer token",
			input: refetch.Request{
				URL:         "https://x/",
				BearerToken: "tok",
				Header:      http.Header{"Authorization": {"Basic abc"}},
			},
			wantMethod: http.MethodGet,
			wantHeader: http.Header{"Authorization": {"Basic abc"}},
		},
		{
			name: "other headers untouched by bearer injection",
			input: refetch.Request{
				URL:         "https://x/",
				BearerToken: "tok",
				Header:      http.Header{"Accept": {"application/json"}},
			},
			wantMethod: http.MethodGet,
			wantHeader: http.Header{
				"Accept":        {"application/json"},
				"Authorization": {"Bearer tok"},
			},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			req, err := refetch.Normalize(tc.input)
			if err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			if req == nil {
				t.Fatal("expected a descriptor")
			}
			if req.Method != tc.wantMethod {
				t.Fatalf("method mismatch: expected %q, got %q", tc.wantMethod, req.Method)
			}
			if diff := cmp.Diff(tc.wantHeader, req.Header); diff != "" {
				t.Fatalf("header mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNormalizeClonesInput(t *testing.T) {
	in := refetch.Request{
		URL:    "https://x/",
		Header: http.Header{"Accept": {"application/json"}},
		Body:   []byte(`{"a":1}`),
	}
	req, err := refetch.Normalize(in)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	in.Header.Set("Accept", "text/plain")
	in.Body[0] = 'X'

	if got := req.Header.Get("Accept"); got != "application/json" {
		t.Fatalf("descriptor shares header storage with input: %q", got)
	}
	if req.Body[0] != '{' {
		t.Fatalf("descriptor shares body storage with input: %q", req.Body)
	}
}

func TestNormalizeUnsupportedType(t *testing.T) {
	if _, err := refetch.Normalize(42); err == nil {
		t.Fatal("expected error for unsupported input type")
	}
}

func TestRequestEqual(t *testing.T) {
	base := func() refetch.Request {
		return refetch.Request{
			URL:             "https://x/",
			Header:          http.Header{"Accept": {"application/json"}},
			Body:            []byte("payload"),
			RefreshInterval: 10 * time.Second,
		}
	}

	tests := []struct {
		name   string
		mutate func(*refetch.Request)
		equal  bool
	}{
		{name: "identical", mutate: func(r *refetch.Request) {}, equal: true},
		{name: "url differs", mutate: func(r *refetch.Request) { r.URL = "https://y/" }, equal: false},
		{name: "method differs", mutate: func(r *refetch.Request) { r.Method = http.MethodPost }, equal: false},
		{name: "header value differs", mutate: func(r *refetch.Request) { r.Header.Set("Accept", "text/plain") }, equal: false},
		{name: "header added", mutate: func(r *refetch.Request) { r.Header.Set("X-Extra", "1") }, equal: false},
		{name: "body differs", mutate: func(r *refetch.Request) { r.Body = []byte("other") }, equal: false},
		{name: "refresh interval differs", mutate: func(r *refetch.Request) { r.RefreshInterval = time.Minute }, equal: false},
		{name: "reset delay differs", mutate: func(r *refetch.Request) { r.ResetDelay = time.Second }, equal: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			a, err := refetch.Normalize(base())
			if err != nil {
				t.Fatalf("Normalize a: %v", err)
			}
			in := base()
			tc.mutate(&in)
			b, err := refetch.Normalize(in)
			if err != nil {
				t.Fatalf("Normalize b: %v", err)
			}
			if got := a.Equal(b); got != tc.equal {
				t.Fatalf("Equal = %v, expected %v", got, tc.equal)
			}
		})
	}
}

func TestRequestEqualAcrossInputShapes(t *testing.T) {
	fromString, err := refetch.Normalize("https://x/")
	if err != nil {
		t.Fatalf("Normalize string: %v", err)
	}
	fromStruct, err := refetch.Normalize(refetch.Request{URL: "https://x/"})
	if err != nil {
		t.Fatalf("Normalize struct: %v", err)
	}
	if !fromString.Equal(fromStruct) {
		t.Fatal("equivalent inputs normalized to unequal descriptors")
	}
}
