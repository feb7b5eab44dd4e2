// Package commands implements CLI command handlers for statfang.
package commands

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/Sumatoshi-tech/statfang/internal/config"
	intobs "github.com/Sumatoshi-tech/statfang/internal/observability"
	"github.com/Sumatoshi-tech/statfang/pkg/observability"
	"github.com/Sumatoshi-tech/statfang/pkg/version"
)

// workerBinaryName is the extraction subprocess looked up next to the
// running binary, then on PATH, when worker.binary is not configured.
const workerBinaryName = "statworker"

// metricsReadTimeout bounds header reads on the scrape endpoint.
const metricsReadTimeout = 10 * time.Second

// ErrWorkerBinaryNotFound indicates the extraction subprocess could not be
// located.
var ErrWorkerBinaryNotFound = errors.New("statworker binary not found")

// engine bundles the shared runtime of the scan and parse commands.
type engine struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *intobs.EngineMetrics
	sched   *intobs.SchedulerMetrics

	shutdown func(ctx context.Context) error
}

// newEngine loads configuration and initializes telemetry. The verbose and
// quiet flags adjust the log level around the configured format.
func newEngine(configPath string, verbose, quiet bool) (*engine, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceName = "statfang"
	obsCfg.ServiceVersion = version.Version
	obsCfg.Mode = observability.ModeCLI
	obsCfg.OTLPEndpoint = cfg.Observability.OTLPEndpoint
	obsCfg.MetricsAddr = cfg.Observability.MetricsAddr
	obsCfg.LogJSON = cfg.Observability.LogFormat == config.LogFormatJSON

	switch {
	case quiet:
		obsCfg.LogLevel = slog.LevelError
	case verbose:
		obsCfg.LogLevel = slog.LevelDebug
	default:
		obsCfg.LogLevel = slog.LevelInfo
	}

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return nil, err
	}

	metrics, err := intobs.NewEngineMetrics(providers.Meter)
	if err != nil {
		shutdownErr := providers.Shutdown(context.Background())

		return nil, errors.Join(err, shutdownErr)
	}

	sched, err := intobs.NewSchedulerMetrics(providers.Meter)
	if err != nil {
		shutdownErr := providers.Shutdown(context.Background())

		return nil, errors.Join(err, shutdownErr)
	}

	eng := &engine{
		cfg:      cfg,
		logger:   providers.Logger,
		metrics:  metrics,
		sched:    sched,
		shutdown: providers.Shutdown,
	}

	if providers.MetricsHandler != nil {
		eng.serveMetrics(cfg.Observability.MetricsAddr, providers.MetricsHandler)
	}

	return eng, nil
}

// serveMetrics exposes the Prometheus scrape endpoint for the lifetime of
// the command.
func (e *engine) serveMetrics(addr string, handler http.Handler) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)

	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: metricsReadTimeout}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.logger.Warn("metrics endpoint stopped", "addr", addr, "error", err)
		}
	}()
}

func (e *engine) close(ctx context.Context) {
	if err := e.shutdown(ctx); err != nil {
		e.logger.Warn("telemetry shutdown incomplete", "error", err)
	}
}

// workerBinary resolves the extraction subprocess: the configured path wins,
// then a statworker sitting next to the running binary, then PATH.
func (e *engine) workerBinary() (string, error) {
	if e.cfg.Worker.Binary != "" {
		return e.cfg.Worker.Binary, nil
	}

	if self, err := os.Executable(); err == nil {
		sibling := filepath.Join(filepath.Dir(self), workerBinaryName)
		if _, statErr := os.Stat(sibling); statErr == nil {
			return sibling, nil
		}
	}

	if found, err := exec.LookPath(workerBinaryName); err == nil {
		return found, nil
	}

	return "", ErrWorkerBinaryNotFound
}

// outputDir resolves the table output directory, defaulting to a statfang
// directory under the system temp dir.
func (e *engine) outputDir(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}

	if e.cfg.Parse.OutputDir != "" {
		return e.cfg.Parse.OutputDir
	}

	return filepath.Join(os.TempDir(), "statfang")
}
