package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/bridge"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/logging"
	"github.com/ayusman/mudra/internal/particle"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/tray"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "mudra: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !cfg.Tray {
		if err := run(ctx, cfg, logger, nil); err != nil {
			logger.Error("mudra stopped", "err", err)
			os.Exit(1)
		}
		return
	}

	// The tray loop must own the main thread, so everything else runs
	// beside it and each side stops the other.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	t := tray.New()
	t.OnQuit(cancel)

	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx, cfg, logger, t)
		t.Quit()
	}()
	t.Run()
	cancel()

	if err := <-errCh; err != nil {
		logger.Error("mudra stopped", "err", err)
		os.Exit(1)
	}
}

// run wires the pipeline and blocks until ctx is done or a component fails.
func run(ctx context.Context, cfg config.Config, logger *slog.Logger, t *tray.Tray) error {
	worker := particle.NewWorker(cfg.Particles, cfg.InboxSize, logger)
	hub := server.NewHub(cfg.BroadcastFPS, logger)
	br := bridge.New(worker, hub, bridge.Config{ParticleCount: cfg.Particles.ParticleCount}, logger)

	a := app.New(app.Config{
		RenderFPS:    cfg.RenderFPS,
		Gate:         cfg.Gate,
		Thresholds:   cfg.Thresholds,
		Stabilizer:   cfg.Stabilizer,
		Manipulation: cfg.Manipulation,
	}, capture.NewCamera(cfg.Camera), newDetector(cfg, logger), br, logger)

	webDir := cfg.WebDir
	if webDir == "" {
		webDir = findWebDir()
	}
	if webDir != "" {
		logger.Info("serving static files", "dir", webDir)
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		State:     a,
		Groups:    br,
		Detection: a,
		Hub:       hub,
		Logger:    logger,
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return worker.Run(ctx) })
	g.Go(func() error { return hub.Run(ctx) })
	g.Go(func() error { return runPipeline(ctx, a, logger) })
	g.Go(func() error { return srv.ListenAndServe(ctx, cfg.Addr) })
	if t != nil {
		wireTray(t, a, br, cfg.Addr, logger)
		g.Go(func() error { return syncTray(ctx, t, a) })
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// runPipeline runs detection without failing the errgroup: without a camera
// the viewer and API keep serving the groups that exist.
func runPipeline(ctx context.Context, a *app.App, logger *slog.Logger) error {
	if err := a.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("detection pipeline stopped, rendering continues", "err", err)
	}
	return nil
}

// newDetector prefers MediaPipe and falls back to a detector that never
// sees a hand, so the viewer and API still work without Python.
func newDetector(cfg config.Config, logger *slog.Logger) detector.Detector {
	if !cfg.MockDetector {
		d, err := detector.NewMediaPipeDetector(cfg.Detector, logger)
		if err == nil {
			return d
		}
		logger.Warn("mediapipe unavailable, using mock detector", "err", err)
	}
	return detector.NewMockDetector()
}

func wireTray(t *tray.Tray, a *app.App, br *bridge.Bridge, addr string, logger *slog.Logger) {
	t.OnToggle(a.SetEnabled)
	t.OnCreate(func() {
		if _, err := br.CreateGroup(); err != nil {
			logger.Warn("tray create group", "err", err)
		}
	})
	t.OnClear(func() {
		if err := br.DestroyAll(); err != nil {
			logger.Warn("tray clear groups", "err", err)
		}
	})
	t.OnOpen(func() {
		if err := openBrowser(viewerURL(addr)); err != nil {
			logger.Warn("open viewer", "err", err)
		}
	})
}

// syncTray mirrors the pipeline state into the tray menu.
func syncTray(ctx context.Context, t *tray.Tray, a *app.App) error {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s := a.Snapshot()
			t.SetEnabled(s.Enabled)
			t.SetStatus(s.State, len(s.Groups))
		}
	}
}

func viewerURL(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.mudra/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".mudra", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
