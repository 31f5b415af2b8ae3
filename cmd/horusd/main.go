// Command horusd is the orchestrator daemon: loads configuration, wires
// every component through a service.Context, and serves the HTTP facade
// until an interrupt or terminate signal requests a graceful shutdown.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"horus/internal/hostmonitor"
	"horus/internal/httpapi"
	"horus/internal/logging"
	"horus/internal/metrics"
	"horus/internal/service"
)

func main() {
	baseDir := flag.String("base-dir", ".", "root directory containing configs/ and artifacts/")
	addr := flag.String("addr", ":8080", "HTTP listen address")
	ffmpegPath := flag.String("ffmpeg-path", "ffmpeg", "path to the ffmpeg binary used for thumbnail generation")
	pretty := flag.Bool("pretty-log", false, "use human-readable console logging instead of JSON")
	flag.Parse()

	log := logging.New(*pretty)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()
	svc := service.New(*baseDir, *ffmpegPath, log, m)
	if err := svc.Load(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to load service context")
	}

	hostMon := hostmonitor.New()
	router := httpapi.NewRouter(svc, hostMon, log)

	server := &http.Server{
		Addr:    *addr,
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", *addr).Msg("horusd listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server error")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutting down")
	svc.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown error")
	}
}
