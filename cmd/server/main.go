// fly-server serves the flying-ball sandbox over SSH. Every connection gets
// its own world and physics engine. Build:
//
//	go build -o fly-server ./cmd/server
//
// Usage:
//
//	./fly-server [-port 2222] [-key server_host_key] [-config fly.yaml]
//
// Connect with:
//
//	ssh -t -p 2222 localhost
package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"
	"unicode"

	"fly/internal/config"
	"fly/internal/game"
	"fly/internal/logging"
	internalssh "fly/internal/ssh"

	gossh "github.com/gliderlabs/ssh"
	"github.com/google/uuid"
	"go.uber.org/zap"
	xssh "golang.org/x/crypto/ssh"
)

func main() {
	port := flag.Int("port", 2222, "SSH server port")
	keyFile := flag.String("key", "server_host_key", "Path to the PEM-encoded host key (generated if absent)")
	cfgPath := flag.String("config", "", "YAML config overlay")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}
	defer logger.Sync()

	if err := run(cfg, *port, *keyFile, logger); err != nil {
		logger.Error("server stopped", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, port int, keyFile string, logger *zap.Logger) error {
	signer, err := loadOrCreateHostKey(keyFile, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h := &handler{cfg: cfg, logger: logger, ctx: ctx}
	srv := &gossh.Server{
		Addr:        fmt.Sprintf(":%d", port),
		Handler:     h.handleSession,
		PtyCallback: func(_ gossh.Context, _ gossh.Pty) bool { return true },
		HostSigners: []gossh.Signer{signer},
	}

	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdown); err != nil {
			logger.Warn("shutdown", zap.Error(err))
		}
	}()

	logger.Info("listening", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, gossh.ErrServerClosed) {
		return err
	}
	h.drain()
	return nil
}

type handler struct {
	cfg    *config.Config
	logger *zap.Logger
	ctx    context.Context

	mu      sync.Mutex
	closing bool
	wg      sync.WaitGroup
}

// begin registers a session. It fails once drain has started, so Add never
// runs concurrently with Wait.
func (h *handler) begin() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closing {
		return false
	}
	h.wg.Add(1)
	return true
}

// drain refuses new sessions and waits for running ones to end.
func (h *handler) drain() {
	h.mu.Lock()
	h.closing = true
	h.mu.Unlock()
	h.wg.Wait()
}

// handleSession runs one game for the lifetime of the connection.
func (h *handler) handleSession(s gossh.Session) {
	if !h.begin() {
		fmt.Fprintln(s, "Server is shutting down.")
		return
	}
	defer h.wg.Done()

	id := uuid.NewString()
	log := h.logger.With(
		zap.String("session", id),
		zap.String("user", sanitizeName(s.User())),
		zap.String("remote", s.RemoteAddr().String()))

	tty, err := internalssh.FromSession(s)
	if err != nil {
		fmt.Fprintln(s, "This game requires a PTY. Connect with: ssh -t -p <port> <host>")
		log.Info("rejected session", zap.Error(err))
		return
	}

	// TERM must be set in the process environment while the terminfo
	// screen is created.
	termMu.Lock()
	_ = os.Setenv("TERM", internalssh.Term(s.Environ()))
	screen, err := tty.Screen()
	termMu.Unlock()
	if err != nil {
		fmt.Fprintf(s, "Terminal setup failed: %v\n", err)
		log.Warn("screen setup failed", zap.Error(err))
		return
	}

	g, err := game.New(screen, h.cfg, log, game.Options{Session: id})
	if err != nil {
		screen.Fini()
		fmt.Fprintf(s, "Game setup failed: %v\n", err)
		log.Error("game setup failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithCancel(h.ctx)
	defer cancel()
	go func() {
		select {
		case <-s.Context().Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	log.Info("session started")
	if err := g.Run(ctx); err != nil {
		log.Error("game ended with error", zap.Error(err))
	}
	log.Info("session ended")
}

// termMu protects os.Setenv("TERM") around screen creation.
var termMu sync.Mutex

// sanitizeName strips control characters from a client-supplied name and
// caps it at 16 bytes without splitting a rune.
func sanitizeName(s string) string {
	const limit = 16
	var b strings.Builder
	for _, r := range s {
		if unicode.IsControl(r) {
			continue
		}
		if b.Len()+len(string(r)) > limit {
			break
		}
		b.WriteRune(r)
	}
	return b.String()
}

// loadOrCreateHostKey loads a PEM private key from path, or generates and
// persists a new ed25519 key if the file is absent or unreadable.
func loadOrCreateHostKey(path string, logger *zap.Logger) (gossh.Signer, error) {
	if data, err := os.ReadFile(path); err == nil {
		if signer, err := xssh.ParsePrivateKey(data); err == nil {
			logger.Info("loaded host key", zap.String("path", path))
			return signer, nil
		}
	}

	logger.Info("generating ed25519 host key", zap.String("path", path))
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate host key: %w", err)
	}
	signer, err := xssh.NewSignerFromKey(key)
	if err != nil {
		return nil, fmt.Errorf("create signer: %w", err)
	}
	block, err := xssh.MarshalPrivateKey(key, "fly server")
	if err != nil {
		return nil, fmt.Errorf("marshal host key: %w", err)
	}
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0o600); err != nil {
		logger.Warn("host key not persisted", zap.Error(err))
	}
	return signer, nil
}
