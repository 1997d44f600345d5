// Command mockbackend serves a stand-in for the Smart Agri prediction API so
// the dashboard can be run and demonstrated without the real models. Answers
// follow the same thresholds the dashboard's simulation mode uses.
//
// Usage:
//
//	go run ./cmd/mockbackend -addr :8000 -seed 42
//	go run ./cmd/mockbackend -fail /stress/predict,/chatbot/message
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	addr := flag.String("addr", ":8000", "listen address")
	seed := flag.Int64("seed", 42, "seed for randomized answers (0 = time based)")
	fail := flag.String("fail", "", "comma-separated paths that answer 500, to exercise degraded pages")
	latency := flag.Duration("latency", 0, "delay added to every answer")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var failing []string
	for _, p := range strings.Split(*fail, ",") {
		if p = strings.TrimSpace(p); p != "" {
			failing = append(failing, p)
		}
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           newRouter(newMock(*seed, failing, *latency), logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("mock backend listening", "addr", *addr, "failing", failing)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
