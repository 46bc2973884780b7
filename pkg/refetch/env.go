package refetch

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/civicsource/refetch/internal/httpx"
	"github.com/civicsource/refetch/pkg/refetch/mock"
)

const (
	envMode      = "REFETCH_MODE"
	envTimeoutMS = "REFETCH_TIMEOUT_MS"
	envMockSeed  = "REFETCH_MOCK_SEED"

	modeAuto = "auto"
	modeHTTP = "http"
	modeMock = "mock"
)

// TransportFromEnv initialises a Transport based on environment variables
// and returns the resolved mode ("http" or "mock"). Auto mode picks the
// mock transport when REFETCH_MOCK_SEED points at a seed file and the
// real HTTP transport otherwise.
func TransportFromEnv() (transport Transport, mode string, err error) {
	mode = strings.ToLower(strings.TrimSpace(os.Getenv(envMode)))
	seed := strings.TrimSpace(os.Getenv(envMockSeed))

	switch mode {
	case "", modeAuto:
		if seed != "" {
			return newMockTransport(seed)
		}
		return newHTTPTransport()
	case modeHTTP:
		return newHTTPTransport()
	case modeMock:
		return newMockTransport(seed)
	default:
		return nil, "", fmt.Errorf("refetch: unsupported %s value %q", envMode, mode)
	}
}

func newHTTPTransport() (Transport, string, error) {
	var opts []httpx.Option
	if raw := strings.TrimSpace(os.Getenv(envTimeoutMS)); raw != "" {
		ms, err := strconv.Atoi(raw)
		if err != nil || ms <= 0 {
			return nil, "", fmt.Errorf("refetch: invalid %s value %q", envTimeoutMS, raw)
		}
		opts = append(opts, httpx.WithTimeout(time.Duration(ms)*time.Millisecond))
	}
	return httpx.NewClient(opts...), modeHTTP, nil
}

func newMockTransport(seedPath string) (Transport, string, error) {
	tr := mock.New()
	if seedPath != "" {
		if err := tr.LoadSeed(seedPath); err != nil {
			return nil, "", fmt.Errorf("refetch: load mock seed: %w", err)
		}
	}
	return tr, modeMock, nil
}
