package ingestion

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"ngxreport/internal/discovery"
	"ngxreport/internal/parser/nginx"
	"ngxreport/internal/report"
	"ngxreport/internal/stats"
	"ngxreport/web"
)

func newTestCoordinator(logDir, reportDir string, size int) *Coordinator {
	return newTestCoordinatorWithErrorRate(logDir, reportDir, size, stats.DefaultMaxErrorRate)
}

func newTestCoordinatorWithErrorRate(logDir, reportDir string, size int, maxErrorRate float64) *Coordinator {
	logger := testLogger()
	return NewCoordinator(
		Options{LogDir: logDir, ReportDir: reportDir, ReportSize: size},
		discovery.NewLocator("", logger),
		nginx.NewParser(logger),
		stats.NewAggregator(maxErrorRate, logger),
		report.NewReporter(web.ReportFS(), logger),
		logger,
	)
}

var rowsPattern = regexp.MustCompile(`var rows = (\[.*\]);`)

func reportRows(t *testing.T, path string) []stats.Row {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read report: %v", err)
	}
	m := rowsPattern.FindSubmatch(content)
	if m == nil {
		t.Fatalf("report has no rows payload")
	}
	var rows []stats.Row
	if err := json.Unmarshal(m[1], &rows); err != nil {
		t.Fatalf("failed to decode rows: %v", err)
	}
	return rows
}

func TestCoordinator_Run_WritesReport(t *testing.T) {
	logDir, reportDir := t.TempDir(), filepath.Join(t.TempDir(), "reports")
	writeLog(t, logDir, "nginx-access-ui.log-20170629", dirtyLog)
	writeLog(t, logDir, "nginx-access-ui.log-20170630.gz", cleanLog)

	coordinator := newTestCoordinator(logDir, reportDir, 1000)
	if coordinator.LastResult() != nil {
		t.Fatal("Expected no result before the first run")
	}

	result, err := coordinator.Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Status != StatusReportWritten {
		t.Fatalf("Expected StatusReportWritten, got %s", result.Status)
	}

	expectedPath := filepath.Join(reportDir, "report-2017.06.30.html")
	if result.ReportPath != expectedPath {
		t.Errorf("Expected report at %s, got %s", expectedPath, result.ReportPath)
	}
	if result.LinesSeen != 2 || result.LinesParsed != 2 || result.Rows != 2 {
		t.Errorf("Unexpected counters: %+v", result)
	}
	if _, err := os.Stat(filepath.Join(reportDir, report.AssetName)); err != nil {
		t.Errorf("Sorter asset missing: %v", err)
	}

	rows := reportRows(t, result.ReportPath)
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows in report, got %d", len(rows))
	}
	if rows[0].TimeSum != 0.147 || rows[1].TimeSum != 0.083 {
		t.Errorf("Rows not ranked by time_sum: %+v", rows)
	}
	for _, row := range rows {
		if row.Count != 1 || row.CountPerc != 50 {
			t.Errorf("Unexpected row %+v", row)
		}
		if row.TimeAvg != row.TimeSum || row.TimeMax != row.TimeSum || row.TimeMed != row.TimeSum {
			t.Errorf("Single observation stats differ: %+v", row)
		}
	}

	if coordinator.LastResult() != result {
		t.Error("LastResult should return the latest run")
	}
	if result.Summary() == nil || len(result.Summary().Rows) != 2 {
		t.Error("Expected summary to be attached to the result")
	}
}

func TestCoordinator_Run_ReportExists(t *testing.T) {
	logDir, reportDir := t.TempDir(), t.TempDir()
	writeLog(t, logDir, "nginx-access-ui.log-20170630", cleanLog)

	coordinator := newTestCoordinator(logDir, reportDir, 1000)
	if _, err := coordinator.Run(); err != nil {
		t.Fatalf("first Run failed: %v", err)
	}

	path := filepath.Join(reportDir, "report-2017.06.30.html")
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	result, err := coordinator.Run()
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if result.Status != StatusReportExists {
		t.Errorf("Expected StatusReportExists, got %s", result.Status)
	}
	if result.Summary() != nil {
		t.Error("Log should not be read when the report exists")
	}

	after, _ := os.ReadFile(path)
	if string(before) != string(after) {
		t.Error("Existing report was modified")
	}
}

func TestCoordinator_Run_Truncates(t *testing.T) {
	logDir, reportDir := t.TempDir(), t.TempDir()
	writeLog(t, logDir, "nginx-access-ui.log-20170630", cleanLog)

	result, err := newTestCoordinator(logDir, reportDir, 1).Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Rows != 1 {
		t.Errorf("Expected 1 rendered row, got %d", result.Rows)
	}

	rows := reportRows(t, result.ReportPath)
	if len(rows) != 1 || rows[0].Request != `"GET /api/v2/banner/5960595 HTTP/1.1"` {
		t.Errorf("Unexpected truncated rows: %+v", rows)
	}
}

func TestCoordinator_Run_ControlledStops(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  Status
	}{
		{"no log", nil, StatusNoLogFound},
		{"empty log", []string{"", "  "}, StatusEmptyLog},
		{"dirty log", dirtyLog, StatusErrorRateExceeded},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			logDir, reportDir := t.TempDir(), t.TempDir()
			if tc.lines != nil {
				writeLog(t, logDir, "nginx-access-ui.log-20170630", tc.lines)
			}

			result, err := newTestCoordinator(logDir, reportDir, 1000).Run()
			if err != nil {
				t.Fatalf("Run failed: %v", err)
			}
			if result.Status != tc.want {
				t.Errorf("Expected %s, got %s", tc.want, result.Status)
			}

			entries, _ := os.ReadDir(reportDir)
			if len(entries) != 0 {
				t.Errorf("Expected no report output, found %d files", len(entries))
			}
		})
	}
}

func TestCoordinator_Run_NoParsedLines(t *testing.T) {
	logDir, reportDir := t.TempDir(), t.TempDir()
	writeLog(t, logDir, "nginx-access-ui.log-20170630", dirtyLog[1:])

	coordinator := newTestCoordinatorWithErrorRate(logDir, reportDir, 1000, 100)
	result, err := coordinator.Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Status != StatusNoRows {
		t.Errorf("Expected %s, got %s", StatusNoRows, result.Status)
	}
	if result.LinesSeen != 2 || result.LinesParsed != 0 {
		t.Errorf("Expected 0/2 lines, got %d/%d", result.LinesParsed, result.LinesSeen)
	}
	if result.ReportPath != "" || result.Rows != 0 {
		t.Errorf("Expected no report, got %q with %d rows", result.ReportPath, result.Rows)
	}

	entries, _ := os.ReadDir(reportDir)
	if len(entries) != 0 {
		t.Errorf("Expected no report output, found %d files", len(entries))
	}
}

func TestCoordinator_Run_CorruptGzipIsError(t *testing.T) {
	logDir, reportDir := t.TempDir(), t.TempDir()
	if err := os.WriteFile(filepath.Join(logDir, "nginx-access-ui.log-20170630.gz"), []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}

	coordinator := newTestCoordinator(logDir, reportDir, 1000)
	if _, err := coordinator.Run(); err == nil {
		t.Fatal("Expected an error for a corrupt gzip log")
	}
	if coordinator.LastResult() != nil {
		t.Error("Failed runs should not replace the last result")
	}

	entries, _ := os.ReadDir(reportDir)
	if len(entries) != 0 {
		t.Errorf("Expected no report output, found %d files", len(entries))
	}
}
