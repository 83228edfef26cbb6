// Command reportserver optionally serves the latest report JSON written by
// axiomrun, plus a Prometheus metrics endpoint, over HTTP (spec.md §6.1).
// It is a thin external-facing convenience, adapted from the teacher's
// cmd/api/main.go: same mid middleware chain, same graceful-shutdown
// pattern, trading the RAG chat/manuals handlers for a single report-file
// reader.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/AcidicSwords/AxiomicAgent/pkg/metrics"
	"github.com/AcidicSwords/AxiomicAgent/pkg/mid"
)

var met = metrics.New()

var mReportRequests = met.Counter("axiom_reportserver_requests_total", "Requests served for the latest report")

// Config holds reportserver's environment-based configuration.
type Config struct {
	Port       string
	ReportPath string
	CORSOrigin string
}

func loadConfig() Config {
	return Config{
		Port:       envOr("PORT", "8090"),
		ReportPath: envOr("AXIOM_REPORT_PATH", "report.json"),
		CORSOrigin: envOr("CORS_ORIGIN", "*"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := loadConfig()
	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

// reportStore rereads the report file from disk on each request, so a
// running axiomrun process that overwrites the file is picked up without a
// restart (the reporter writes it atomically via rename, so readers never
// observe a partial file).
type reportStore struct {
	mu   sync.Mutex
	path string
}

func (s *reportStore) read() (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	var report map[string]any
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("parse report: %w", err)
	}
	return report, nil
}

func run(cfg Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := &reportStore{path: cfg.ReportPath}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /report", handleReport(store, logger))
	mux.Handle("GET /metrics", met.Handler())

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.Logger(logger),
		mid.CORS(cfg.CORSOrigin),
		mid.OTel("axiom-reportserver"),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("reportserver starting", "port", cfg.Port, "report_path", cfg.ReportPath)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func handleReport(store *reportStore, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		mReportRequests.Inc()
		report, err := store.read()
		if err != nil {
			if os.IsNotExist(err) {
				http.Error(w, `{"error":"no report available yet"}`, http.StatusNotFound)
				return
			}
			logger.Error("read report", "err", err)
			http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(report)
	}
}
