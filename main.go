package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	_ "modernc.org/sqlite"

	"github.com/eo-data/vegetation.report/internal/config"
	"github.com/eo-data/vegetation.report/internal/eo"
	"github.com/eo-data/vegetation.report/internal/eo/loader"
	"github.com/eo-data/vegetation.report/internal/eo/monitor"
	"github.com/eo-data/vegetation.report/internal/eo/stac"
	"github.com/eo-data/vegetation.report/internal/eo/store"
	"github.com/eo-data/vegetation.report/internal/pipeline"
	"github.com/eo-data/vegetation.report/internal/timeutil"
	"github.com/eo-data/vegetation.report/internal/version"
)

var (
	configDir = flag.String("config", "config", "Directory holding the pipeline configuration files")
	dbFile    = flag.String("db", "vegetation.db", "Path to the results database")
	outDir    = flag.String("out", "out", "Directory for rendered plots and maps")
	serve     = flag.Bool("serve", false, "Serve recorded results instead of running the pipeline")
	listen    = flag.String("listen", ":8080", "Listen address")
	showVer   = flag.Bool("version", false, "Print version and exit")
)

// Main
func main() {
	flag.Parse()

	if *showVer {
		fmt.Println(version.String())
		return
	}

	s, err := store.Open(*dbFile)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer s.Close()

	if *serve {
		if *listen == "" {
			log.Fatal("Listen address is required")
		}
		runServer(s)
		return
	}

	runPipeline(s)
}

func runServer(s *store.Store) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ws := monitor.NewWebServer(monitor.WebServerConfig{
		Address: *listen,
		Store:   s,
		DBPath:  *dbFile,
	})
	if err := ws.Start(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runPipeline(s *store.Store) {
	cfg, err := config.LoadDir(*configDir)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	catalog, err := stac.NewClient(cfg.Search.CatalogURL)
	if err != nil {
		log.Fatalf("Failed to create catalog client: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p := &pipeline.Pipeline{
		Config:  cfg,
		Catalog: catalog,
		Reader:  loader.NewGDALReader(cfg.Load.Chunks["x"], cfg.Load.Chunks["y"]),
		Store:   s,
		OutDir:  *outDir,
		Report:  log.Default(),
	}

	res, err := p.Run(ctx)
	if err != nil {
		if errors.Is(err, eo.ErrNoScenesKept) {
			log.Fatalf("All scenes rejected by the quality thresholds; relax filter_parameters.yml and retry")
		}
		log.Fatalf("Pipeline failed: %v", err)
	}

	for _, tp := range res.Series {
		log.Printf("%s: %d vegetation pixels (%.2f km2)",
			timeutil.SceneLabel(tp.Time, res.Cube.Aggregated), tp.Pixels, tp.AreaKm2)
	}
	log.Printf("Run %s complete: %d of %d scenes kept", res.RunID, len(res.Kept), len(res.Quality))
}
