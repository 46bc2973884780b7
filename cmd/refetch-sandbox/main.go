// Command refetch-sandbox drives a single Resource from the command line
// against either a real HTTP endpoint or the scripted mock transport,
// logging every state transition. Useful for poking at polling, reset and
// failure behaviour without writing a program.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/civicsource/refetch/pkg/refetch"
	"github.com/civicsource/refetch/pkg/refetch/mock"
)

type failConfig struct {
	rate float64
	code int
}

func main() {
	url := flag.String("url", "", "address to fetch (required)")
	method := flag.String("method", "GET", "HTTP method")
	bearer := flag.String("bearer", "", "bearer token injected as Authorization header")
	interval := flag.Duration("interval", 0, "poll interval after each settlement (0 disables)")
	reset := flag.Duration("reset", 0, "delay after which a success expires (0 disables)")
	lazy := flag.Bool("lazy", false, "do not auto-fetch; press ENTER to trigger")
	seed := flag.String("seed", "", "path to JSON seed for the mock transport (implies mock mode)")
	latency := flag.Duration("latency", 0, "artificial latency injected per mock request")
	fail := flag.String("fail", "", "failure injection for the mock transport (rate=<float>,code=<status>; code 0 fails the transport itself)")
	runFor := flag.Duration("for", 30*time.Second, "how long to run before tearing down")
	debug := flag.Bool("debug", false, "log controller internals")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger()
	if !*debug {
		logger = logger.Level(zerolog.InfoLevel)
	}

	if strings.TrimSpace(*url) == "" {
		logger.Fatal().Msg("-url is required")
	}

	transport, mode, err := buildTransport(*seed, *latency, *fail)
	if err != nil {
		logger.Fatal().Err(err).Msg("build transport")
	}
	logger.Info().Str("mode", mode).Msg("transport ready")

	input := refetch.Request{
		URL:             *url,
		Method:          *method,
		BearerToken:     *bearer,
		RefreshInterval: *interval,
		ResetDelay:      *reset,
	}

	opts := []refetch.Option{
		refetch.WithTransport(transport),
		refetch.WithLogger(logger),
	}

	var resource *refetch.Resource
	if *lazy {
		resource, err = refetch.NewLazy(input, opts...)
	} else {
		resource, err = refetch.NewEager(input, opts...)
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("create resource")
	}
	defer resource.Close()

	unsubscribe := resource.Subscribe(func(st refetch.State) {
		evt := logger.Info().
			Bool("fetching", st.IsFetching).
			Bool("fetched", st.IsFetched)
		if st.Err != nil {
			evt = evt.Str("error", st.Err.Message).Str("status", st.Err.StatusText)
		}
		if st.Data != nil {
			evt = evt.Interface("data", st.Data)
		}
		evt.Msg("state")
	})
	defer unsubscribe()

	if *lazy {
		go func() {
			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				resource.Trigger()
			}
		}()
		fmt.Fprintln(os.Stderr, "lazy mode: press ENTER to trigger a fetch")
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case <-stop:
		logger.Info().Msg("interrupted")
	case <-time.After(*runFor):
		logger.Info().Dur("after", *runFor).Msg("run window elapsed")
	}
}

func buildTransport(seed string, latency time.Duration, fail string) (refetch.Transport, string, error) {
	failCfg, err := parseFailConfig(fail)
	if err != nil {
		return nil, "", err
	}

	if seed == "" && latency == 0 && failCfg == nil {
		return refetch.TransportFromEnv()
	}

	tr := mock.New()
	if seed != "" {
		if err := tr.LoadSeed(seed); err != nil {
			return nil, "", err
		}
	}
	if latency > 0 {
		tr.SetLatency(latency)
	}
	if failCfg != nil {
		tr.FailWith(failCfg.rate, failCfg.code)
	}
	return tr, "mock", nil
}

func parseFailConfig(raw string) (*failConfig, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	cfg := &failConfig{}
	for _, part := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("invalid fail segment %q", part)
		}
		switch strings.TrimSpace(key) {
		case "rate":
			rate, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
			if err != nil || rate < 0 || rate > 1 {
				return nil, fmt.Errorf("invalid fail rate %q", value)
			}
			cfg.rate = rate
		case "code":
			code, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil || code < 0 {
				return nil, fmt.Errorf("invalid fail code %q", value)
			}
			cfg.code = code
		default:
			return nil, fmt.Errorf("unknown fail option %q", key)
		}
	}
	if cfg.rate == 0 {
		return nil, fmt.Errorf("fail requires rate=<float> between 0 and 1")
	}
	return cfg, nil
}
