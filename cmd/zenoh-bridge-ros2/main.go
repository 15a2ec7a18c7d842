// zenoh-bridge-ros2 bridges a robotics middleware's entity graph onto an
// overlay pub/sub fabric routed by hierarchical key expressions.
//
// This binary runs the bridge core in zero-config, in-process mode: the
// native middleware and overlay fabric collaborators are the package's own
// in-memory fakes rather than a real DDS participant and zenoh session.
// Wiring real bindings for those two collaborators is outside this
// module's scope (see SPEC_FULL.md §1); swap pkg/native and pkg/overlay's
// Fake constructors below for real ones to run against an actual fleet.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ZettaScaleLabs/zplugin-ros2/internal/bridge"
	"github.com/ZettaScaleLabs/zplugin-ros2/pkg/native"
	"github.com/ZettaScaleLabs/zplugin-ros2/pkg/overlay"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	log.Info().Msg("zenoh-bridge-ros2 starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	nativeFake := native.NewFake()
	br, err := bridge.New(ctx, bridge.Collaborators{
		Stream:  nativeFake,
		Poller:  nativeFake,
		Native:  nativeFake,
		Overlay: overlay.NewFake(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize bridge")
	}
	br.Run(ctx)

	httpServer := &http.Server{
		Addr:         ":8000",
		Handler:      br.AdminHTTP,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = br.Shutdown(shutdownCtx)
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", httpServer.Addr).Msg("admin HTTP surface ready")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("admin server failed")
	}
}
