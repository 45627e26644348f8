package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadStateMissingFile(t *testing.T) {
	st, err := LoadState(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Expected no error for missing file, got %v", err)
	}
	if len(st.Watchlist) != 0 {
		t.Errorf("Expected empty watchlist, got %v", st.Watchlist)
	}
}

func TestLoadStateCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	st, err := LoadState(path)
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("Expected ErrCorrupt, got %v", err)
	}
	if len(st.Watchlist) != 0 {
		t.Errorf("Expected empty watchlist after corrupt load, got %v", st.Watchlist)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	want := &State{Watchlist: []string{"AAPL", "NVDA"}}

	if err := SaveState(path, want); err != nil {
		t.Fatalf("SaveState failed: %v", err)
	}

	got, err := LoadState(path)
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if len(got.Watchlist) != 2 || got.Watchlist[0] != "AAPL" || got.Watchlist[1] != "NVDA" {
		t.Errorf("Expected watchlist [AAPL NVDA], got %v", got.Watchlist)
	}
}

func TestConfigDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("mode: DRY_RUN\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.PollSeconds != 5 {
		t.Errorf("Expected poll_seconds default 5, got %d", cfg.PollSeconds)
	}
	if cfg.Margin.Minimum != 25000 {
		t.Errorf("Expected margin minimum default 25000, got %.2f", cfg.Margin.Minimum)
	}
	if cfg.Margin.Buffer != 100 {
		t.Errorf("Expected margin buffer default 100, got %.2f", cfg.Margin.Buffer)
	}
	if cfg.Session.LiquidateAt != "15:58" {
		t.Errorf("Expected liquidate_at default 15:58, got %s", cfg.Session.LiquidateAt)
	}
	h, m, err := cfg.LiquidateHourMinute()
	if err != nil || h != 15 || m != 58 {
		t.Errorf("Expected cutoff 15:58, got %d:%d err=%v", h, m, err)
	}
}

func TestConfigRejectsBadMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("mode: YOLO\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("Expected validation error for bad mode")
	}
}

func TestConfigRejectsBadCutoff(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "mode: DRY_RUN\nsession:\n  liquidate_at: \"25:99\"\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("Expected validation error for out-of-range cutoff")
	}
}
