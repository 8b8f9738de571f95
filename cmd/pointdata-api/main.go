package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rtm0/pointdata"
	"github.com/rtm0/pointdata/internal/config"
	"github.com/rtm0/pointdata/internal/server"
)

var addr = flag.String("addr", "", "listen address. Default: :$PORT")

func main() {
	flag.Parse()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Could not load configuration", "err", err)
		os.Exit(1)
	}
	cfg.Mode = config.ModeLocal
	if len(cfg.PINs) == 0 {
		logger.Warn("HYDRODATA_PINS is empty, every login will be rejected")
	}

	c, err := pointdata.New(cfg, logger)
	if err != nil {
		logger.Error("Could not open the HydroData tree", "root", cfg.Root, "err", err)
		os.Exit(1)
	}
	defer c.Close()

	srv := server.New(logger, c, server.Config{
		PINs:           cfg.PINs,
		TokenTTL:       cfg.TokenTTL,
		RequestTimeout: cfg.RequestTimeout,
	})

	listen := *addr
	if listen == "" {
		listen = ":" + cfg.Port
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := srv.Run(ctx, listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server stopped", "err", err)
		os.Exit(1)
	}
}
