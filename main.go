// fly runs the flying-ball sandbox in the local terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fly/internal/config"
	"fly/internal/game"
	"fly/internal/logging"
	"fly/internal/stream"

	"github.com/gdamore/tcell/v2"
	"github.com/google/uuid"
	"github.com/pkg/profile"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	os.Exit(realMain())
}

// realMain returns the exit code so deferred cleanup, including the CPU
// profile, runs before the process exits.
func realMain() int {
	cfgPath := flag.String("config", "", "YAML config overlay")
	profDir := flag.String("profile", "", "write a CPU profile into this directory")
	spectate := flag.String("spectate", "", "serve a websocket spectator feed on this address, e.g. :8080")
	level := flag.String("log-level", "", "override log_level from the config")
	flag.Parse()

	cfg, err := loadConfig(*cfgPath, *level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 2
	}
	// The terminal belongs to tcell, so logs go to a file.
	logFile := cfg.LogFile
	if logFile == "" {
		logFile = "fly.log"
	}
	logger, err := logging.New(cfg.LogLevel, logFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		return 2
	}
	defer logger.Sync()

	if *profDir != "" {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(*profDir), profile.NoShutdownHook, profile.Quiet).Stop()
	}

	if err := run(cfg, *spectate, logger); err != nil {
		logger.Error("run failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// loadConfig reads the overlay at path and applies a log level override.
func loadConfig(path, level string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if level != "" {
		cfg.LogLevel = level
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func run(cfg *config.Config, spectate string, logger *zap.Logger) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("init screen: %w", err)
	}

	opts := game.Options{Session: uuid.NewString(), SaveRunLog: true}
	var hub *stream.Hub
	if spectate != "" {
		hub = stream.NewHub(stream.DefaultBuffer, logger)
		opts.Spectator = hub.Surface(cfg.Window.Width, cfg.Window.Height)
	}

	g, err := game.New(screen, cfg, logger, opts)
	if err != nil {
		screen.Fini()
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	eg, ctx := errgroup.WithContext(ctx)
	// The game decides when the process ends; the feed follows it.
	gameCtx, gameDone := context.WithCancel(ctx)

	eg.Go(func() error {
		defer gameDone()
		return g.Run(gameCtx)
	})

	if hub != nil {
		srv := &http.Server{Addr: spectate, Handler: hub, ReadHeaderTimeout: 5 * time.Second}
		eg.Go(func() error {
			logger.Info("spectator feed listening", zap.String("addr", spectate))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("spectator feed: %w", err)
			}
			return nil
		})
		eg.Go(func() error {
			<-gameCtx.Done()
			hub.Close()
			shutdown, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return srv.Shutdown(shutdown)
		})
	}
	return eg.Wait()
}
