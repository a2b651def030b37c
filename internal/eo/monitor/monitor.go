// Package monitor serves recorded pipeline results over HTTP.
package monitor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/eo-data/vegetation.report/internal/eo/render"
	"github.com/eo-data/vegetation.report/internal/eo/store"
	"github.com/eo-data/vegetation.report/internal/httputil"
	"github.com/eo-data/vegetation.report/internal/version"
)

// WebServer handles the HTTP interface for browsing pipeline runs.
// It provides endpoints for health checks, run listings and charts.
type WebServer struct {
	address string
	store   *store.Store
	server  *http.Server
	dbPath  string
}

// WebServerConfig contains configuration options for the web server
type WebServerConfig struct {
	Address string
	Store   *store.Store
	DBPath  string
}

// NewWebServer creates a new web server with the provided configuration
func NewWebServer(config WebServerConfig) *WebServer {
	ws := &WebServer{
		address: config.Address,
		store:   config.Store,
		dbPath:  config.DBPath,
	}

	ws.server = &http.Server{
		Addr:    ws.address,
		Handler: ws.setupRoutes(),
	}

	return ws
}

// Start begins the HTTP server in a goroutine and handles graceful shutdown
func (ws *WebServer) Start(ctx context.Context) error {
	go func() {
		log.Printf("Starting HTTP server on %s", ws.address)
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := ws.server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}

	log.Printf("HTTP server routine stopped")
	return nil
}

// ServeMux exposes the configured routes, for tests.
func (ws *WebServer) ServeMux() *http.ServeMux {
	return ws.setupRoutes()
}

func (ws *WebServer) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", ws.handleHealth)
	mux.HandleFunc("/runs", ws.handleRuns)
	mux.HandleFunc("/series", ws.handleSeries)
	mux.HandleFunc("/quality", ws.handleQuality)
	mux.HandleFunc("/chart", ws.handleChart)

	ws.attachAdminRoutes(mux)

	return mux
}

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, map[string]string{
		"status":    "ok",
		"service":   "vegetation",
		"version":   version.Version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (ws *WebServer) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	runs, err := ws.store.Runs()
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to retrieve runs: %v", err))
		return
	}

	httputil.WriteJSONOK(w, runs)
}

// runID resolves the run query parameter, falling back to the most
// recent run when it is absent.
func (ws *WebServer) runID(r *http.Request) (string, error) {
	if id := r.URL.Query().Get("run"); id != "" {
		return id, nil
	}
	return ws.store.LatestRunID()
}

func (ws *WebServer) handleSeries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	runID, err := ws.runID(r)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			httputil.NotFound(w, "no runs recorded")
			return
		}
		httputil.InternalServerError(w, fmt.Sprintf("failed to resolve run: %v", err))
		return
	}

	series, err := ws.store.TimeSeries(runID)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to retrieve series: %v", err))
		return
	}

	httputil.WriteJSONOK(w, series)
}

func (ws *WebServer) handleQuality(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	runID, err := ws.runID(r)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			httputil.NotFound(w, "no runs recorded")
			return
		}
		httputil.InternalServerError(w, fmt.Sprintf("failed to resolve run: %v", err))
		return
	}

	records, err := ws.store.QualityReport(runID)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to retrieve quality report: %v", err))
		return
	}

	httputil.WriteJSONOK(w, records)
}

func (ws *WebServer) handleChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	runID, err := ws.runID(r)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			httputil.NotFound(w, "no runs recorded")
			return
		}
		httputil.InternalServerError(w, fmt.Sprintf("failed to resolve run: %v", err))
		return
	}

	series, err := ws.store.TimeSeries(runID)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to retrieve series: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html")
	chart := render.TimeSeriesChart(series, false)
	if err := chart.Render(w); err != nil {
		log.Printf("Failed to render chart for run %s: %v", runID, err)
	}
}
