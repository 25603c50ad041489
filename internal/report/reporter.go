package report

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"ngxreport/internal/stats"

	"github.com/pterm/pterm"
	"github.com/valyala/fasttemplate"
)

const (
	// TemplateName is the report template inside the assets filesystem
	TemplateName = "report.html"
	// AssetName is the table sorter copied next to every report
	AssetName = "tablesort.js"
	// Placeholder is the template tag replaced by the JSON rows: ${table_json}
	Placeholder = "table_json"

	tagStart = "${"
	tagEnd   = "}"
)

// ErrMissingPlaceholder is returned when the template has no ${table_json} tag
var ErrMissingPlaceholder = errors.New("report template has no " + tagStart + Placeholder + tagEnd + " placeholder")

// Reporter renders statistic rows into an HTML report
type Reporter struct {
	assets fs.FS
	logger *pterm.Logger
}

// NewReporter creates a reporter reading its template and sorter script from assets
func NewReporter(assets fs.FS, logger *pterm.Logger) *Reporter {
	return &Reporter{
		assets: assets,
		logger: logger,
	}
}

// FileName returns the report file name for a log date: report-YYYY.MM.DD.html
func FileName(date time.Time) string {
	return "report-" + date.Format(fileDateLayout) + ".html"
}

// Rank orders rows by total request time, largest first, and keeps at most size rows.
// Rows with equal totals keep their input order.
func Rank(rows []stats.Row, size int) []stats.Row {
	ranked := make([]stats.Row, len(rows))
	copy(ranked, rows)
	slices.SortStableFunc(ranked, func(a, b stats.Row) int {
		return cmp.Compare(b.TimeSum, a.TimeSum)
	})
	if size >= 0 && len(ranked) > size {
		ranked = ranked[:size]
	}
	return ranked
}

// Render ranks and truncates rows, writes the report to dir/name and copies
// the sorter script next to it. The report file only appears once it is
// completely written.
func (r *Reporter) Render(rows []stats.Row, size int, dir, name string) (string, error) {
	tpl, err := fs.ReadFile(r.assets, TemplateName)
	if err != nil {
		return "", fmt.Errorf("failed to read report template: %w", err)
	}
	template := string(tpl)
	if !strings.Contains(template, tagStart+Placeholder+tagEnd) {
		return "", ErrMissingPlaceholder
	}

	ranked := Rank(rows, size)
	payload, err := json.Marshal(ranked)
	if err != nil {
		return "", fmt.Errorf("failed to encode report rows: %w", err)
	}

	content := fasttemplate.ExecuteStringStd(template, tagStart, tagEnd, map[string]interface{}{
		Placeholder: string(payload),
	})

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	path := filepath.Join(dir, name)
	if err := writeFileAtomic(path, []byte(content)); err != nil {
		return "", err
	}

	if err := r.copyAsset(AssetName, filepath.Join(dir, AssetName)); err != nil {
		os.Remove(path)
		return "", err
	}

	r.logger.Debug("Report rendered",
		r.logger.Args("path", path, "rows", len(ranked), "total_rows", len(rows)))
	return path, nil
}

func (r *Reporter) copyAsset(name, dst string) error {
	src, err := r.assets.Open(name)
	if err != nil {
		return fmt.Errorf("failed to open report asset %s: %w", name, err)
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create report asset %s: %w", dst, err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy report asset %s: %w", name, err)
	}
	return out.Close()
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".report-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary report: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set report permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to move report into place: %w", err)
	}
	return nil
}
