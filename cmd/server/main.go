package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/astromechza/toggle-rooms/pkg/room"
	"github.com/astromechza/toggle-rooms/pkg/store"
	"github.com/astromechza/toggle-rooms/pkg/transport"
)

func main() {
	if err := mainInner(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func mainInner() error {
	envFileVar := flag.String("env-file", ".env", "dotenv file to load before reading the environment, skipped when missing")
	flag.Parse()

	if err := godotenv.Load(*envFileVar); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	config, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(config)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	logger.Info("Opening store", "driver", config.StoreDriver, "path", config.StorePath)
	s, err := store.Open(config.StoreDriver, config.StorePath, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			logger.Error("failed to close store", "err", err)
		}
	}()

	counters := &room.Counters{}
	hub := room.NewHub(s, logger, room.WithObserver(counters))
	srv := transport.NewServer(hub, counters, logger, config.transportOptions())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// connections inherit ctx so hijacked websockets end on shutdown too
	httpServer := &http.Server{
		Addr:        config.Addr,
		Handler:     srv.Handler(),
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Listening", "addr", config.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	exit := make(chan os.Signal, 1) // we need to reserve to buffer size 1, so the notifier are not blocked
	signal.Notify(exit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-exit:
		logger.Info("Signal caught", "sig", sig)
	case err := <-serveErr:
		return fmt.Errorf("server listen failed: %w", err)
	}
	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shut down cleanly", "err", err)
	}
	<-serveErr
	if err := srv.Wait(shutdownCtx); err != nil {
		logger.Error("connections still open after shutdown timeout", "err", err)
	}

	for _, id := range hub.Rooms() {
		c, _ := hub.Lookup(id)
		if state, ok, err := c.Snapshot(shutdownCtx); err != nil {
			logger.Error("failed to read final state", "room", id, "err", err)
		} else if ok {
			logger.Info("final state", "room", id, "isToggled", state.IsToggled, "updatedAt", state.UpdatedAt, "connections", c.Connections())
		}
	}
	return nil
}
