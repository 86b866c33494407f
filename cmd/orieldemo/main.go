package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/odvcencio/oriel/pkg/config"
	"github.com/odvcencio/oriel/pkg/layout"
	appruntime "github.com/odvcencio/oriel/pkg/runtime"
	"github.com/odvcencio/oriel/pkg/telemetry"
	"github.com/odvcencio/oriel/pkg/term"
	"github.com/odvcencio/oriel/pkg/theme"
)

// Version information - set via ldflags during build
var (
	version   = "1.0.0-dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// Styles for the plain-terminal surface (usage, errors). Everything
// inside the session renders through the compositor instead.
var (
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#D00000", Dark: "#FF5555"}).
			Bold(true)
	boldStyle = lipgloss.NewStyle().Bold(true)
	dimStyle  = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#666666", Dark: "#888888"})
)

func main() {
	configPath := flag.String("config", "", "config file (default ~/.oriel/config.yaml)")
	session := flag.String("session", "", "layout session to restore and save (overrides config)")
	logPath := flag.String("log", "", "structured log file (overrides config)")
	metricsAddr := flag.String("metrics-addr", "localhost:2112", "address serving /metrics when telemetry.metrics is on")
	trace := flag.Bool("trace", false, "export spans regardless of config")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Usage = printUsage
	flag.Parse()

	if *showVersion {
		printVersion()
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("Error:"), err)
		os.Exit(2)
	}
	if *session != "" {
		cfg.Layout.Session = *session
	}
	if *logPath != "" {
		cfg.Logging.Path = *logPath
	}
	if *trace {
		cfg.Telemetry.Trace = true
	}

	if err := run(cfg, *configPath, *metricsAddr); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("Error:"), err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, configPath, metricsAddr string) error {
	logLevel := new(slog.LevelVar)
	logLevel.Set(telemetry.ParseLevel(cfg.Logging.Level))

	var logSink io.Writer
	if cfg.Logging.Path != "" {
		f, err := telemetry.FileSink(cfg.Logging.Path)
		if err != nil {
			return err
		}
		defer f.Close()
		logSink = f
	}
	logger := telemetry.NewLogger("orieldemo", logLevel, logSink).WithSession(cfg.Layout.Session)

	hub := telemetry.NewHub()
	defer hub.Close()

	if cfg.Telemetry.Trace {
		var traceW io.Writer = os.Stderr
		if cfg.Telemetry.TracePath != "" {
			f, err := telemetry.FileSink(cfg.Telemetry.TracePath)
			if err != nil {
				return err
			}
			defer f.Close()
			traceW = f
		}
		tp, err := telemetry.NewTracerProvider("oriel", version, traceW)
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			tp.Shutdown(ctx)
		}()
	}

	if cfg.Telemetry.Metrics {
		go serveMetrics(metricsAddr, logger)
	}

	var store *layout.Store
	if cfg.Layout.StorePath != "" {
		s, err := layout.Open(cfg.Layout.StorePath)
		if err != nil {
			return fmt.Errorf("opening layout store: %w", err)
		}
		defer s.Close()
		store = s
	}

	d := &demo{hub: hub, session: cfg.Layout.Session, version: version}
	app := appruntime.NewApp(appruntime.AppConfig{
		Backend:    term.NewTTY(),
		Config:     cfg,
		ConfigPath: configPath,
		Theme:      theme.DefaultTheme(),
		Update:     d.handleEvent,
		Logger:     logger,
		LogLevel:   logLevel,
		Hub:        hub,
	})
	d.app = app

	ctx := context.Background()
	if err := d.setup(ctx, store); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		app.Quit()
	}()

	runErr := app.Run(ctx)

	if store != nil {
		if err := store.Save(ctx, cfg.Layout.Session, layout.Snapshot(app.Compositor())); err != nil {
			logger.Error("layout save failed", slog.String("error", err.Error()))
		}
	}
	return runErr
}

// serveMetrics exposes the render-pipeline metrics for scraping. The
// demo has no other network surface, so a bare mux is enough.
func serveMetrics(addr string, logger *telemetry.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logger.Info("metrics listening", slog.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server stopped", slog.String("error", err.Error()))
	}
}

func printVersion() {
	fmt.Printf("orieldemo %s\n", version)
	if commit != "unknown" {
		fmt.Printf("  Commit:     %s\n", commit)
	}
	if buildDate != "unknown" {
		fmt.Printf("  Built:      %s\n", buildDate)
	}
	fmt.Printf("  Go version: %s\n", runtime.Version())
}

func printUsage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "%s\n\n", boldStyle.Render("orieldemo - windowed terminal UI demo"))
	fmt.Fprintf(out, "%s\n", dimStyle.Render("Arrow keys move the focused window, shift+arrows resize it,"))
	fmt.Fprintf(out, "%s\n\n", dimStyle.Render("tab cycles focus, ctrl-l forces a repaint, q quits."))
	fmt.Fprintln(out, "Flags:")
	flag.PrintDefaults()
}
