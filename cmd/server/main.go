package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gmackie/roomengine/internal/examplegame"
	"github.com/gmackie/roomengine/internal/httpapi"
	"github.com/gmackie/roomengine/internal/logging"
	"github.com/gmackie/roomengine/internal/registry"
)

func newRootCmd() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:   "roomengine <bind-address>",
		Short: "Serve the generic room engine over WebSocket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0], debug)
		},
	}
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug-level logging")
	return cmd
}

func run(bindAddr string, debug bool) error {
	log := logging.New(debug)
	entry := log.WithField("component", "server")

	reg := registry.New[examplegame.State, int, examplegame.Action, examplegame.Config, examplegame.PlayerID](
		examplegame.Game{}, entry,
	)
	router := httpapi.NewRouter(reg, entry)

	srv := &http.Server{
		Addr:         bindAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		entry.WithField("addr", bindAddr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			entry.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	entry.WithField("signal", sig.String()).Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		entry.WithError(err).Warn("forced shutdown")
	}
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
