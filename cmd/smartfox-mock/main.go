package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/smartfox/smartfox/internal/lib/slogcustom"
	"github.com/smartfox/smartfox/internal/mockapi"
)

func main() {
	flagAddr := pflag.String("addr", envOr("SMARTFOX_MOCK_ADDR", ":3002"), "listen address")
	flagSecret := pflag.String("secret", envOr("SMARTFOX_MOCK_SECRET", "dev-secret"), "HMAC secret for tokens")
	flagSeed := pflag.Bool("seed", true, "create demo users, group and experiment")
	flagLogLevel := pflag.String("log-level", "info", "log level: debug, info, warn, error")
	pflag.Parse()

	level, err := slogcustom.ParseLevel(*flagLogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log := slogcustom.New(os.Stderr, slogcustom.FormatColor, level)
	slog.SetDefault(log)

	store := mockapi.NewStore(time.Now)
	if *flagSeed {
		if err = mockapi.Seed(store); err != nil {
			log.Error("failed to seed", slog.Any("error", err))
			os.Exit(1)
		}
		log.Info("seeded demo data",
			slog.String("teacher", mockapi.SeedTeacher+"/"+mockapi.SeedTeacherPassword),
			slog.String("student", mockapi.SeedStudent+"/"+mockapi.SeedStudentPassword),
		)
	}

	srv := &http.Server{
		Addr:              *flagAddr,
		Handler:           mockapi.NewServer(store, mockapi.NewAuthService(*flagSecret), log).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("mock api listening", slog.String("addr", *flagAddr), slog.String("base", "/api"))
	if err = srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
