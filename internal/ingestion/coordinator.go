package ingestion

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"ngxreport/internal/discovery"
	"ngxreport/internal/parser/nginx"
	"ngxreport/internal/report"
	"ngxreport/internal/stats"

	"github.com/pterm/pterm"
)

// Status is the outcome of a single pipeline run
type Status int

const (
	// StatusReportWritten means a new report was rendered
	StatusReportWritten Status = iota
	// StatusNoLogFound means no rotated log with a parseable date exists
	StatusNoLogFound
	// StatusReportExists means the report for the latest log was already rendered
	StatusReportExists
	// StatusEmptyLog means the latest log had no non-blank lines
	StatusEmptyLog
	// StatusErrorRateExceeded means too many lines of the latest log failed to parse
	StatusErrorRateExceeded
	// StatusNoRows means the log passed the error-rate gate without a single parsed line
	StatusNoRows
)

func (s Status) String() string {
	switch s {
	case StatusReportWritten:
		return "report_written"
	case StatusNoLogFound:
		return "no_log_found"
	case StatusReportExists:
		return "report_exists"
	case StatusEmptyLog:
		return "empty_log"
	case StatusErrorRateExceeded:
		return "error_rate_exceeded"
	case StatusNoRows:
		return "no_rows"
	default:
		return "unknown"
	}
}

// MarshalText lets Status render by name in JSON responses
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Result describes one pipeline run
type Result struct {
	Status      Status             `json:"status"`
	LogFile     *discovery.LogFile `json:"log_file,omitempty"`
	ReportPath  string             `json:"report_path,omitempty"`
	LinesSeen   int                `json:"lines_seen"`
	LinesParsed int                `json:"lines_parsed"`
	ErrorRate   float64            `json:"error_rate"`
	Rows        int                `json:"rows"` // rows rendered into the report
	StartedAt   time.Time          `json:"started_at"`
	Duration    time.Duration      `json:"duration"`

	summary *stats.Summary
}

// Summary returns the aggregation behind the run, nil when the log was never read
func (r *Result) Summary() *stats.Summary {
	return r.summary
}

// Options configures a Coordinator
type Options struct {
	LogDir     string
	ReportDir  string
	ReportSize int
}

// Coordinator runs the locate, read, aggregate and report stages for the latest log
type Coordinator struct {
	opts       Options
	locator    *discovery.Locator
	parser     *nginx.Parser
	aggregator *stats.Aggregator
	reporter   *report.Reporter
	logger     *pterm.Logger

	mu         sync.Mutex // serializes runs
	lastMu     sync.RWMutex
	lastResult *Result
}

// NewCoordinator creates a new pipeline coordinator
func NewCoordinator(
	opts Options,
	locator *discovery.Locator,
	parser *nginx.Parser,
	aggregator *stats.Aggregator,
	reporter *report.Reporter,
	logger *pterm.Logger,
) *Coordinator {
	return &Coordinator{
		opts:       opts,
		locator:    locator,
		parser:     parser,
		aggregator: aggregator,
		reporter:   reporter,
		logger:     logger,
	}
}

// Locator returns the locator used to select logs
func (c *Coordinator) Locator() *discovery.Locator {
	return c.locator
}

// LastResult returns the result of the most recent completed run, or nil
func (c *Coordinator) LastResult() *Result {
	c.lastMu.RLock()
	defer c.lastMu.RUnlock()
	return c.lastResult
}

// Run processes the latest log once. Every controlled stop (no log, existing
// report, empty log, error budget exceeded) is reported through Result.Status
// with a nil error; the error is reserved for unexpected failures, in which
// case no report is left behind.
func (c *Coordinator) Run() (*Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := &Result{StartedAt: time.Now()}
	if err := c.run(result); err != nil {
		return nil, err
	}
	result.Duration = time.Since(result.StartedAt)

	c.lastMu.Lock()
	c.lastResult = result
	c.lastMu.Unlock()

	return result, nil
}

func (c *Coordinator) run(result *Result) error {
	logFile, err := c.locator.Latest(c.opts.LogDir)
	if errors.Is(err, discovery.ErrNoLogFound) {
		c.logger.Warn("Nginx log file not found", c.logger.Args("dir", c.opts.LogDir))
		result.Status = StatusNoLogFound
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to locate log: %w", err)
	}
	result.LogFile = logFile

	c.logger.Info("Log located", c.logger.Args("path", logFile.Path))

	reportPath := filepath.Join(c.opts.ReportDir, report.FileName(logFile.Date))
	if _, err := os.Stat(reportPath); err == nil {
		c.logger.Warn("Report already exists", c.logger.Args("path", reportPath))
		result.Status = StatusReportExists
		result.ReportPath = reportPath
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to check report %s: %w", reportPath, err)
	}

	c.logger.Info("Collecting statistics")

	reader, err := OpenLogFile(logFile, c.parser, c.logger)
	if err != nil {
		return err
	}
	summary, err := c.aggregator.Aggregate(reader)
	if cerr := reader.Close(); cerr != nil {
		c.logger.Warn("Failed to close log file", c.logger.Args("path", logFile.Path, "error", cerr))
	}
	if err != nil {
		return err
	}

	result.summary = summary
	result.LinesSeen = summary.LinesSeen
	result.LinesParsed = summary.LinesParsed
	result.ErrorRate = summary.ErrorRate

	switch summary.Outcome {
	case stats.OutcomeEmptyLog:
		result.Status = StatusEmptyLog
		return nil
	case stats.OutcomeErrorRateExceeded:
		result.Status = StatusErrorRateExceeded
		return nil
	}
	if len(summary.Rows) == 0 {
		c.logger.Warn("No parsed requests, report skipped",
			c.logger.Args("path", logFile.Path, "lines_seen", summary.LinesSeen))
		result.Status = StatusNoRows
		return nil
	}

	c.logger.Info("Generating report")

	path, err := c.reporter.Render(summary.Rows, c.opts.ReportSize, c.opts.ReportDir, filepath.Base(reportPath))
	if err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}

	result.Status = StatusReportWritten
	result.ReportPath = path
	result.Rows = min(len(summary.Rows), c.opts.ReportSize)

	c.logger.Info("Report saved", c.logger.Args("path", path, "rows", result.Rows))
	return nil
}
