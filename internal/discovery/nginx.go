package discovery

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pterm/pterm"
)

// DefaultPattern matches rotated nginx ui access logs: nginx-access-ui.log-<YYYYMMDD>[.gz]
const DefaultPattern = "nginx-access-ui.log-*"

// DateLayout is the layout of the date embedded in rotated log file names
const DateLayout = "20060102"

const gzipSuffix = ".gz"

// ErrNoLogFound is returned when the directory holds no log with a parseable date.
// It is a normal stop condition, not a fault.
var ErrNoLogFound = errors.New("no nginx log file found")

// LogFile describes a rotated access log on disk
type LogFile struct {
	Path       string    `json:"path"`
	RawDate    string    `json:"raw_date"`   // token after the last '-' in the file name
	Date       time.Time `json:"date"`       // zero when RawDate is not a YYYYMMDD date
	Compressed bool      `json:"compressed"` // gzip, inferred from the .gz extension
}

// HasDate reports whether the file name carried a parseable date
func (f *LogFile) HasDate() bool {
	return !f.Date.IsZero()
}

// Locator finds the most recent rotated access log in a directory
type Locator struct {
	logger  *pterm.Logger
	pattern string
}

// NewLocator creates a locator for the given glob pattern (DefaultPattern when empty)
func NewLocator(pattern string, logger *pterm.Logger) *Locator {
	if pattern == "" {
		pattern = DefaultPattern
	}
	return &Locator{
		logger:  logger,
		pattern: pattern,
	}
}

// Pattern returns the glob used to select candidate files
func (l *Locator) Pattern() string {
	return l.pattern
}

// Matches reports whether a base file name is a candidate for this locator
func (l *Locator) Matches(name string) bool {
	ok, err := filepath.Match(l.pattern, name)
	return err == nil && ok
}

// Describe builds a LogFile from a path, extracting the embedded date
func (l *Locator) Describe(path string) *LogFile {
	name := filepath.Base(path)
	compressed := strings.HasSuffix(name, gzipSuffix)
	stem := strings.TrimSuffix(name, gzipSuffix)

	rawDate := stem
	if idx := strings.LastIndex(stem, "-"); idx != -1 {
		rawDate = stem[idx+1:]
	}

	file := &LogFile{
		Path:       path,
		RawDate:    rawDate,
		Compressed: compressed,
	}

	date, err := time.Parse(DateLayout, rawDate)
	if err != nil {
		l.logger.Warn("Incorrect date format in log file name",
			l.logger.Args("path", path, "raw_date", rawDate))
		return file
	}
	file.Date = date
	return file
}

// Latest returns the candidate with the most recent embedded date.
// Files sharing the same date are ordered by file name, the lexicographically
// largest one wins.
func (l *Locator) Latest(dir string) (*LogFile, error) {
	l.logger.Trace("Searching for nginx logs", l.logger.Args("dir", dir, "pattern", l.pattern))

	paths, err := filepath.Glob(filepath.Join(dir, l.pattern))
	if err != nil {
		return nil, fmt.Errorf("invalid log file pattern %q: %w", l.pattern, err)
	}

	var latest *LogFile
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			l.logger.Trace("File not accessible", l.logger.Args("path", path, "error", err.Error()))
			continue
		}
		if info.IsDir() {
			l.logger.Trace("Skipping directory", l.logger.Args("path", path))
			continue
		}

		candidate := l.Describe(path)
		if !candidate.HasDate() {
			continue
		}

		if latest == nil || newer(candidate, latest) {
			latest = candidate
		}
	}

	if latest == nil {
		return nil, ErrNoLogFound
	}

	l.logger.Debug("Latest nginx log located",
		l.logger.Args("path", latest.Path, "date", latest.Date.Format("2006-01-02"), "compressed", latest.Compressed))
	return latest, nil
}

func newer(a, b *LogFile) bool {
	if !a.Date.Equal(b.Date) {
		return a.Date.After(b.Date)
	}
	return filepath.Base(a.Path) > filepath.Base(b.Path)
}
