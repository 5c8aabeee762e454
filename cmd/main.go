package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"peerlink/connection"
	"peerlink/internal"
	"peerlink/messaging"
	"peerlink/moderation"
	"peerlink/observability"
	"peerlink/repositories"
	"peerlink/runtime/workers"
	"peerlink/sink"
	"peerlink/transport"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the session lifecycle, and centralizes error reporting.
// This pattern is preferred over calling os.Exit or panic directly because:
// 1. It ensures all 'defer' statements (like database cleanup) are executed before the program exits.
// 2. It improves testability by decoupling the initialization logic from the main entry point.
// 3. It provides a structured way to handle graceful shutdowns for background workers.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Session stores. Both in-memory: history and search live exactly as
	// long as the process, nothing survives a restart.
	db, err := badger.Open(badger.DefaultOptions("").
		WithInMemory(true).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("history store opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing session history...")
		_ = db.Close()
	}()

	blugeWriter, err := bluge.OpenWriter(bluge.InMemoryOnlyConfig())
	if err != nil {
		return fmt.Errorf("search index opening failed: %w", err)
	}
	defer func() {
		_ = blugeWriter.Close()
	}()

	// 3. Moderation
	censorRune, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return err
	}
	moderator, err := moderation.NewModerator(config.Words(), censorRune, log)
	if err != nil {
		return fmt.Errorf("moderator setup failed: %w", err)
	}

	// 4. Components
	stats := observability.NewSessionStats()
	sup := workers.NewSupervisor(log, config.RestartInterval)
	historyRepo := repositories.NewHistoryRepository(db, log, config.LimitMessages)
	searchRepo := repositories.NewSearchRepository(blugeWriter, log)

	adapter := transport.NewSimulated(log, config.ScanDelay, config.HandshakeDelay, nil)
	manager := connection.NewManager(log, adapter, sup, stats,
		config.DriftInterval, config.DriftAmplitude, config.SinkTimeout)
	core := messaging.NewCore(log, sup, stats, moderator, historyRepo, searchRepo,
		config.SentDelay, config.DeliveredDelay, config.SinkTimeout, config.BufferSize)
	core.RegisterSinks(
		sink.NewHistorySink(historyRepo, log),
		sink.NewSearchSink(searchRepo, log),
	)

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	core.Start(ctx)
	sup.Start(ctx, workers.NewTelemetryWorker(log, config.TelemetryInterval, stats))

	// 6. Terminal rendering of every snapshot notification
	renderer := newRenderer(os.Stdout)
	defer manager.OnDevicesChanged(renderer)()
	defer manager.OnUsersChanged(renderer)()
	defer core.OnRoomsChanged(renderer)()

	// 7. Demo session: discover the neighborhood, connect to the first peer
	// and open the conversation.
	if err := manager.StartDiscovery(ctx); err != nil {
		return fmt.Errorf("discovery failed to start: %w", err)
	}

	if devices := manager.AvailableDevices(); len(devices) > 0 {
		first := devices[0]
		if err := manager.ConnectToDevice(ctx, first.ID); err != nil {
			log.Warn("Could not connect to peer", "device", first.ID, "err", err)
		} else {
			_, err = core.SendMessage(ctx, messaging.DraftTo(string(first.ID), "Hey! Are you there?"))
			if err != nil {
				log.Warn("Could not send greeting", "err", err)
			}
		}
	}

	// 8. Wait for Stop
	<-ctx.Done()
	log.Info("Shutting down gracefully...")

	manager.StopDiscovery()
	sup.Wait()
	log.Info("Program stopped cleanly")

	return nil
}
