package discovery

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pterm/pterm"
)

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("failed to create %s: %v", name, err)
	}
	return path
}

func TestLocator_Latest(t *testing.T) {
	logger := pterm.DefaultLogger.WithLevel(pterm.LogLevelTrace)
	dir := t.TempDir()

	touch(t, dir, "ddsadsdas.log")
	touch(t, dir, "nginx-access-ui.log-20170630.gz")
	expected := touch(t, dir, "nginx-access-ui.log-20180630")
	touch(t, dir, "nginx-access-ui.log-063020180630")

	locator := NewLocator("", logger)
	latest, err := locator.Latest(dir)
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}

	if latest.Path != expected {
		t.Errorf("Expected %s, got %s", expected, latest.Path)
	}
	if latest.Compressed {
		t.Error("Expected plain log file")
	}
	if !latest.Date.Equal(time.Date(2018, 6, 30, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Unexpected date: %v", latest.Date)
	}
}

func TestLocator_Latest_PrefersNewerCompressed(t *testing.T) {
	logger := pterm.DefaultLogger.WithLevel(pterm.LogLevelTrace)
	dir := t.TempDir()

	touch(t, dir, "nginx-access-ui.log-20170629")
	expected := touch(t, dir, "nginx-access-ui.log-20170630.gz")

	latest, err := NewLocator(DefaultPattern, logger).Latest(dir)
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if latest.Path != expected {
		t.Errorf("Expected %s, got %s", expected, latest.Path)
	}
	if !latest.Compressed {
		t.Error("Expected compressed log file")
	}
	if latest.RawDate != "20170630" {
		t.Errorf("Expected raw date 20170630, got %s", latest.RawDate)
	}
}

func TestLocator_Latest_SameDateTieBreak(t *testing.T) {
	logger := pterm.DefaultLogger.WithLevel(pterm.LogLevelTrace)
	dir := t.TempDir()

	touch(t, dir, "nginx-access-ui.log-20180630")
	expected := touch(t, dir, "nginx-access-ui.log-20180630.gz")

	locator := NewLocator("", logger)
	for i := 0; i < 3; i++ {
		latest, err := locator.Latest(dir)
		if err != nil {
			t.Fatalf("Latest failed: %v", err)
		}
		if latest.Path != expected {
			t.Errorf("Expected %s, got %s", expected, latest.Path)
		}
	}
}

func TestLocator_Latest_NoLog(t *testing.T) {
	logger := pterm.DefaultLogger.WithLevel(pterm.LogLevelTrace)

	tests := map[string]func(t *testing.T, dir string){
		"empty directory": func(t *testing.T, dir string) {},
		"unparseable dates": func(t *testing.T, dir string) {
			touch(t, dir, "nginx-access-ui.log-063020180630")
			touch(t, dir, "nginx-access-ui.log-yesterday.gz")
		},
		"foreign files": func(t *testing.T, dir string) {
			touch(t, dir, "access.log")
			touch(t, dir, "nginx-error.log-20180630")
		},
		"directory with date": func(t *testing.T, dir string) {
			if err := os.Mkdir(filepath.Join(dir, "nginx-access-ui.log-20180630"), 0o755); err != nil {
				t.Fatal(err)
			}
		},
	}

	for name, setup := range tests {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			setup(t, dir)

			latest, err := NewLocator("", logger).Latest(dir)
			if !errors.Is(err, ErrNoLogFound) {
				t.Fatalf("Expected ErrNoLogFound, got %v (%v)", err, latest)
			}
		})
	}

	t.Run("missing directory", func(t *testing.T) {
		_, err := NewLocator("", logger).Latest(filepath.Join(t.TempDir(), "missing"))
		if !errors.Is(err, ErrNoLogFound) {
			t.Fatalf("Expected ErrNoLogFound, got %v", err)
		}
	})
}

func TestLocator_Describe(t *testing.T) {
	logger := pterm.DefaultLogger.WithLevel(pterm.LogLevelTrace)
	locator := NewLocator("", logger)

	file := locator.Describe("/var/log/nginx/nginx-access-ui.log-20170630.gz")
	if !file.Compressed || file.RawDate != "20170630" || !file.HasDate() {
		t.Errorf("Unexpected descriptor: %+v", file)
	}

	file = locator.Describe("/var/log/nginx/nginx-access-ui.log-2017-06-30")
	if file.RawDate != "30" || file.HasDate() {
		t.Errorf("Expected unparseable date, got %+v", file)
	}
}

func TestLocator_Matches(t *testing.T) {
	logger := pterm.DefaultLogger.WithLevel(pterm.LogLevelTrace)
	locator := NewLocator("", logger)

	if !locator.Matches("nginx-access-ui.log-20170630.gz") {
		t.Error("Expected rotated log name to match")
	}
	if locator.Matches("nginx-access-ui.log") {
		t.Error("Expected active log name not to match")
	}
}
