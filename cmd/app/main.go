package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/local/pdfworkbench/internal/api"
	"github.com/local/pdfworkbench/internal/batch"
	cfgpkg "github.com/local/pdfworkbench/internal/config"
	"github.com/local/pdfworkbench/internal/docops"
	"github.com/local/pdfworkbench/internal/ingest"
	logpkg "github.com/local/pdfworkbench/internal/logger"
	"github.com/local/pdfworkbench/internal/metrics"
	"github.com/local/pdfworkbench/internal/pdfengine"
	"github.com/local/pdfworkbench/internal/storage"
	"github.com/local/pdfworkbench/internal/store"
	web "github.com/local/pdfworkbench/internal/web"
	"github.com/local/pdfworkbench/internal/workspace"
)

func main() {
	cfg := cfgpkg.FromEnv()

	// Init logging
	_ = logpkg.Init(logpkg.Options{
		Level:        cfg.Logging.Level,
		Pretty:       cfg.Logging.Pretty,
		File:         cfg.Logging.File,
		MaxSizeMB:    cfg.Logging.MaxSizeMB,
		MaxBackups:   cfg.Logging.MaxBackups,
		MaxAgeDays:   cfg.Logging.MaxAgeDays,
		Compress:     cfg.Logging.Compress,
		SendToAxiom:  cfg.Axiom.Send && cfg.Axiom.APIKey != "",
		AxiomAPIKey:  cfg.Axiom.APIKey,
		AxiomOrgID:   cfg.Axiom.OrgID,
		AxiomDataset: cfg.Axiom.Dataset,
		AxiomFlush:   cfg.Axiom.FlushInterval,
	})
	defer logpkg.Close()

	metrics.Init()

	// Batch job status: redis when configured, in-memory otherwise
	var status store.StatusStore
	if cfg.Status.RedisURL != "" {
		rs, err := store.NewRedisStatus(cfg.Status.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to init redis status store")
		}
		defer rs.Close()
		status = rs
	} else {
		status = store.NewMemoryStatus()
	}

	engine := pdfengine.NewPDFCPU()
	ws := workspace.NewStore()
	ops := docops.New(engine)
	ingestor := ingest.New(engine, ingest.Options{
		MaxBytes:       cfg.Upload.MaxBytes,
		ProbeThreshold: cfg.Upload.ProbeThreshold,
	})

	runner := batch.New(batch.Config{
		Concurrency: cfg.Batch.Concurrency,
		JobTimeout:  cfg.Batch.JobTimeout,
	}, ws, ops, status)
	runner.Start()
	defer runner.Stop(context.Background())

	// Optional S3 export
	var export *storage.S3Client
	if cfg.Export.S3Bucket != "" {
		var err error
		export, err = storage.NewS3Client(context.Background(), cfg.Export.S3Bucket)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to init s3 export client")
		}
	}

	mux := http.NewServeMux()
	a := api.New(api.Dependencies{
		Workspace: ws,
		Ingest:    ingestor,
		Batch:     runner,
		Status:    status,
		Export:    export,
		Render: api.RenderSettings{
			BufferPages: cfg.Render.BufferPages,
			DPI:         cfg.Render.DPI,
			Quality:     cfg.Render.Quality,
			ColorMode:   cfg.Render.ColorMode,
		},
	})
	a.RegisterRoutes(mux)
	mux.Handle("/metrics", metrics.Handler())

	// Dashboard
	dash := web.New()
	dash.RegisterRoutes(mux)

	srv := &http.Server{Addr: ":" + cfg.Server.Port, Handler: mux}

	go func() {
		log.Info().Msgf("HTTP server listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	_ = srv.Shutdown(ctx)
	fmt.Println("shutdown complete")
}
