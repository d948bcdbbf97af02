package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/smartfox/smartfox/internal/auth"
	"github.com/smartfox/smartfox/internal/client"
	"github.com/smartfox/smartfox/internal/config"
	"github.com/smartfox/smartfox/internal/console"
	"github.com/smartfox/smartfox/internal/lib/slogcustom"
	"github.com/smartfox/smartfox/internal/storage"
	"github.com/smartfox/smartfox/internal/storage/postgres"
	"github.com/smartfox/smartfox/internal/storage/sqlite"
)

func main() {
	cfg, err := config.Parse(os.Args[0], os.Args[1:], os.LookupEnv)
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log := setupLogger(cfg)
	slog.SetDefault(log)
	slog.Info("starting smartfox client...", slog.String("api", cfg.APIURL), slog.String("storage", cfg.Storage.Driver))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err = run(ctx, cfg, log); err != nil {
		log.Error("smartfox stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	st, err := openStorage(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Warn("failed to close storage", slog.Any("error", err))
		}
	}()

	mgr := auth.NewManager(st, nil, log)
	if _, err = mgr.Restore(ctx); err != nil {
		return err
	}

	api := client.NewHTTPClient(cfg.APIURL, mgr,
		client.WithTimeout(cfg.Timeout),
		client.WithUnauthorizedHandler(mgr.HandleUnauthorized),
		client.WithLogger(log),
	)

	con := console.New(api, mgr, os.Stdout, console.Options{
		AutosaveInterval:     cfg.AutosaveInterval,
		NotificationInterval: cfg.NotificationInterval,
		Logger:               log,
	})

	return con.Run(ctx, os.Stdin)
}

func openStorage(ctx context.Context, cfg config.Storage) (storage.Storage, error) {
	switch cfg.Driver {
	case config.StorageSQLite:
		return sqlite.Open(ctx, cfg.DSN)
	case config.StoragePostgres:
		return postgres.NewStorage(ctx, cfg.DSN, cfg.Namespace)
	default:
		return storage.NewMemoryStorage(), nil
	}
}

func setupLogger(cfg config.Config) *slog.Logger {
	// Уровень уже проверен в config.Parse
	level, _ := slogcustom.ParseLevel(cfg.Log.Level)
	return slogcustom.New(os.Stderr, cfg.Log.Format, level)
}
