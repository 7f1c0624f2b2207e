package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/ayusman/fingercount/internal/app"
	"github.com/ayusman/fingercount/internal/config"
	"github.com/ayusman/fingercount/internal/logging"
	"github.com/ayusman/fingercount/internal/server"
	"github.com/ayusman/fingercount/internal/store"
	"github.com/ayusman/fingercount/internal/tray"
)

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "fingercount: %v\n", err)
		os.Exit(2)
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fingercount: %v\n", err)
		os.Exit(2)
	}
	logger := logging.New(os.Stderr, level)
	slog.SetDefault(logger)

	var disabled bool
	if cfg, disabled = windowForPlatform(cfg, runtime.GOOS); disabled {
		logger.Warn("preview window disabled while the tray owns the main thread", "os", runtime.GOOS)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("fingercount failed", "error", err)
		os.Exit(1)
	}
}

// loadConfig reads the optional YAML file and applies explicitly set flags
// on top of it.
func loadConfig(args []string) (config.Config, error) {
	fs := flag.NewFlagSet("fingercount", flag.ContinueOnError)

	def := config.Default()
	path := fs.String("config", "", "path to a YAML config file")
	camera := fs.Int("camera", def.CameraID, "camera device ID")
	video := fs.String("video", "", "replay a recorded clip instead of the camera")
	addr := fs.String("addr", def.Addr, "HTTP listen address, empty to disable")
	db := fs.String("db", "", "journal database path (default ~/.fingercount/fingercount.db)")
	level := fs.String("log-level", def.LogLevel, "log level: debug, info, warn, error")
	window := fs.Bool("window", def.Window, "show the OpenCV preview windows")
	useTray := fs.Bool("tray", def.Tray, "show the count in the system tray")
	threshold := fs.Float64("threshold", float64(def.Threshold), "foreground difference threshold")
	calibration := fs.Int("calibration", def.CalibrationFrames, "frames averaged into the background")

	if err := fs.Parse(args); err != nil {
		return config.Config{}, err
	}

	cfg, err := config.Load(*path)
	if err != nil {
		return config.Config{}, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "camera":
			cfg.CameraID = *camera
		case "video":
			cfg.Video = *video
		case "addr":
			cfg.Addr = *addr
		case "db":
			cfg.DBPath = *db
		case "log-level":
			cfg.LogLevel = *level
		case "window":
			cfg.Window = *window
		case "tray":
			cfg.Tray = *useTray
		case "threshold":
			cfg.Threshold = float32(*threshold)
		case "calibration":
			cfg.CalibrationFrames = *calibration
		}
	})

	if cfg.DBPath == "" {
		dir, err := dataDir()
		if err != nil {
			return config.Config{}, err
		}
		cfg.DBPath = filepath.Join(dir, "fingercount.db")
	}

	return cfg, cfg.Validate()
}

// windowForPlatform turns the preview window off when the tray is enabled on
// platforms whose window system only works from the main thread.
func windowForPlatform(cfg config.Config, goos string) (config.Config, bool) {
	if cfg.Tray && cfg.Window && goos == "darwin" {
		cfg.Window = false
		return cfg, true
	}
	return cfg, false
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	st, err := store.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer st.Close()

	broadcaster := server.NewBroadcaster()

	serverDone := make(chan error, 1)
	if cfg.Addr != "" {
		webDir := findWebDir()
		if webDir != "" {
			logger.Info("serving static files", "dir", webDir)
		}

		srv := server.New(server.Config{
			StaticDir:   webDir,
			Store:       st,
			Broadcaster: broadcaster,
			Logger:      logger,
		})
		go func() { serverDone <- srv.Run(ctx, cfg.Addr) }()
	} else {
		close(serverDone)
	}

	opts := app.Options{
		Config:      cfg,
		Logger:      logger,
		Store:       st,
		Broadcaster: broadcaster,
	}

	var t *tray.Tray
	if cfg.Tray {
		t = tray.New(cfg.CalibrationFrames)
		t.OnQuit(cancel)
		t.OnOpen(func() { openBrowser(logger, dashboardURL(cfg.Addr)) })
		opts.Tray = t
	}

	application := app.New(opts)

	var runErr error
	if t == nil {
		runErr = application.Run(ctx)
	} else {
		// The tray owns the main thread; the session runs beside it.
		done := make(chan struct{})
		go func() {
			defer close(done)
			runErr = application.Run(ctx)
			t.Quit()
		}()
		t.Run()
		cancel()
		<-done
	}
	cancel()

	if err := <-serverDone; err != nil && runErr == nil {
		runErr = fmt.Errorf("http server: %w", err)
	}
	return runErr
}

// dataDir returns ~/.fingercount, creating it if needed.
func dataDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}

	dir := filepath.Join(homeDir, ".fingercount")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}
	return dir, nil
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.fingercount/web.
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

	homeWebDir := filepath.Join(homeDir, ".fingercount", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}

func dashboardURL(addr string) string {
	if addr == "" {
		return ""
	}
	if addr[0] == ':' {
		return "http://localhost" + addr + "/"
	}
	return "http://" + addr + "/"
}

func openBrowser(logger *slog.Logger, url string) {
	if url == "" {
		logger.Warn("HTTP server disabled, nothing to open")
		return
	}

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		logger.Warn("could not open browser", "url", url, "error", err)
	}
}
