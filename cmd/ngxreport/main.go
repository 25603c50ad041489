package main

import (
	"context"
	"io/fs"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"ngxreport/internal/api"
	"ngxreport/internal/api/handlers"
	"ngxreport/internal/banner"
	"ngxreport/internal/config"
	"ngxreport/internal/discovery"
	"ngxreport/internal/ingestion"
	"ngxreport/internal/parser/nginx"
	"ngxreport/internal/report"
	"ngxreport/internal/stats"
	"ngxreport/web"

	"github.com/pterm/pterm"
)

// summaryRows is the number of slowest URLs echoed to the console after a run
const summaryRows = 10

func main() {
	os.Exit(run())
}

func run() int {
	// Start at INFO and switch to LOG_LEVEL once the configuration is loaded
	logger := pterm.DefaultLogger.WithLevel(pterm.LogLevelInfo)

	banner.Print()

	cfg, err := config.Load()
	if err != nil {
		logger.WithCaller().Error("Failed to load configuration", logger.Args("error", err))
		return 1
	}

	logger = pterm.DefaultLogger.WithLevel(parseLevel(cfg.LogLevel))
	logger.Debug("Configuration loaded",
		logger.Args(
			"log_dir", cfg.Analyzer.LogDir,
			"report_dir", cfg.Analyzer.ReportDir,
			"report_size", cfg.Analyzer.ReportSize,
			"watch", cfg.Watch.Enabled,
			"server", cfg.Server.Enabled,
		))

	var assets fs.FS = web.ReportFS()
	if cfg.Analyzer.TemplateDir != "" {
		logger.Info("Using report template directory", logger.Args("dir", cfg.Analyzer.TemplateDir))
		assets = os.DirFS(cfg.Analyzer.TemplateDir)
	}

	locator := discovery.NewLocator(cfg.Analyzer.LogPattern, logger)
	parser := nginx.NewParser(logger)
	aggregator := stats.NewAggregator(cfg.Analyzer.MaxErrorRate, logger)
	logger.Debug("Pipeline initialized",
		logger.Args(
			"pattern", locator.Pattern(),
			"parser", parser.Name(),
			"max_error_rate", aggregator.MaxErrorRate(),
		))

	coordinator := ingestion.NewCoordinator(
		ingestion.Options{
			LogDir:     cfg.Analyzer.LogDir,
			ReportDir:  cfg.Analyzer.ReportDir,
			ReportSize: cfg.Analyzer.ReportSize,
		},
		locator,
		parser,
		aggregator,
		report.NewReporter(assets, logger),
		logger,
	)

	result, err := coordinator.Run()
	if err != nil {
		logger.WithCaller().Error("Report run failed", logger.Args("error", err))
		return 1
	}
	logResult(logger, result)

	if !cfg.Watch.Enabled && !cfg.Server.Enabled {
		return 0
	}
	return serve(cfg, coordinator, logger)
}

// serve keeps the process alive for the watcher and the report server until a signal arrives
func serve(cfg *config.Config, coordinator *ingestion.Coordinator, logger *pterm.Logger) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	exitCode := 0

	if cfg.Watch.Enabled {
		watcher := ingestion.NewWatcher(cfg.Analyzer.LogDir, coordinator.Locator().Matches, coordinator, cfg.Watch.Debounce, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := watcher.Watch(ctx); err != nil {
				logger.WithCaller().Error("Log watcher stopped", logger.Args("error", err))
				exitCode = 1
				stop()
			}
		}()
	}

	var webServer *api.Server
	if cfg.Server.Enabled {
		reportsHandler := handlers.NewReportsHandler(cfg.Analyzer.ReportDir, coordinator, logger)
		webServer = api.NewServer(&api.Config{
			Host:       cfg.Server.Host,
			Port:       cfg.Server.Port,
			Production: cfg.Server.Production,
			ReportDir:  cfg.Analyzer.ReportDir,
		}, reportsHandler, logger)

		go func() {
			if err := webServer.Run(); err != nil {
				stop()
			}
		}()

		logger.Info("ngxreport is serving reports",
			logger.Args("url", "http://"+net.JoinHostPort(displayHost(cfg.Server.Host), strconv.Itoa(cfg.Server.Port))))
	}

	<-ctx.Done()
	logger.Info("Shutdown signal received, stopping services...")

	if webServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := webServer.Shutdown(shutdownCtx); err != nil {
			logger.WithCaller().Error("Web server shutdown error", logger.Args("error", err))
		} else {
			logger.Info("Web server stopped successfully")
		}
	}

	wg.Wait()
	logger.Info("ngxreport stopped gracefully")
	return exitCode
}

func logResult(logger *pterm.Logger, result *ingestion.Result) {
	args := []any{"status", result.Status.String(), "duration", result.Duration}
	if result.LogFile != nil {
		args = append(args, "log", result.LogFile.Path)
	}

	switch result.Status {
	case ingestion.StatusReportWritten:
		logger.Info("Report written", logger.Args(append(args,
			"report", result.ReportPath,
			"rows", result.Rows,
			"error_rate", result.ErrorRate)...))
		if summary := result.Summary(); summary != nil {
			if err := report.PrintSummary(summary.Rows, summaryRows); err != nil {
				logger.Warn("Failed to print summary", logger.Args("error", err))
			}
		}
	case ingestion.StatusErrorRateExceeded:
		logger.Error("Too many unparseable lines, report skipped", logger.Args(append(args,
			"lines_seen", result.LinesSeen,
			"lines_parsed", result.LinesParsed,
			"error_rate", result.ErrorRate)...))
	case ingestion.StatusNoRows:
		logger.Warn("No parsed requests, report skipped", logger.Args(append(args,
			"lines_seen", result.LinesSeen)...))
	default:
		logger.Info("Nothing to do", logger.Args(args...))
	}
}

// displayHost turns a wildcard listen address into one a browser can open
func displayHost(host string) string {
	if host == "" || host == "0.0.0.0" || host == "::" {
		return "localhost"
	}
	return host
}

// parseLevel maps LOG_LEVEL to a pterm level, defaulting to info
func parseLevel(level string) pterm.LogLevel {
	switch strings.ToLower(level) {
	case "trace":
		return pterm.LogLevelTrace
	case "debug":
		return pterm.LogLevelDebug
	case "warn", "warning":
		return pterm.LogLevelWarn
	case "error":
		return pterm.LogLevelError
	case "fatal":
		return pterm.LogLevelFatal
	default:
		return pterm.LogLevelInfo
	}
}
