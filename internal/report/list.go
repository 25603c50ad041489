package report

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"
	"time"
)

const fileDateLayout = "2006.01.02"

// Entry describes a rendered report on disk
type Entry struct {
	Name    string    `json:"name"`
	Date    time.Time `json:"date"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// List returns the reports found in dir, newest log date first.
// A missing directory yields an empty list.
func List(dir string) ([]Entry, error) {
	items, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read report directory: %w", err)
	}

	entries := []Entry{}
	for _, item := range items {
		if item.IsDir() {
			continue
		}
		date, ok := parseFileName(item.Name())
		if !ok {
			continue
		}
		info, err := item.Info()
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			Name:    item.Name(),
			Date:    date,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	slices.SortFunc(entries, func(a, b Entry) int {
		return b.Date.Compare(a.Date)
	})
	return entries, nil
}

func parseFileName(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, "report-") || !strings.HasSuffix(name, ".html") {
		return time.Time{}, false
	}
	raw := strings.TrimSuffix(strings.TrimPrefix(name, "report-"), ".html")
	date, err := time.Parse(fileDateLayout, raw)
	if err != nil {
		return time.Time{}, false
	}
	return date, true
}
