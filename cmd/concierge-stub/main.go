// concierge-stub serves canned responses for every concierge backend
// endpoint so the client can be run without the real service.
//
// Usage:
//
//	concierge-stub [-addr :8000] [-verbose]
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

	"github.com/hammamikhairi/concierge/internal/logger"
	"github.com/hammamikhairi/concierge/internal/stub"
)

func main() {
	addr := flag.String("addr", ":8000", "listen address")
	verbose := flag.Bool("verbose", false, "log every request with its fields")
	flag.Parse()

	level := logger.LevelNormal
	if *verbose {
		level = logger.LevelVerbose
	}
	log := logger.New(level, os.Stderr)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           stub.NewRouter(stub.NewServer(log.Named("stub"))),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info("stub backend listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("serve: %v", err)
		os.Exit(1)
	}
	log.Info("stub backend stopped")
}
