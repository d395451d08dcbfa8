package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmingtv/epg/internal/epgtime"
)

func TestPathLayout(t *testing.T) {
	s := NewStore("epg_files")
	want := filepath.Join("epg_files", "tvb", "tvb_20250617.xml")
	if got := s.Path("tvb", "20250617"); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
	wantGzip := filepath.Join("epg_files", "all", "all_20250617.xml.gz")
	if got := s.GzipPath("all", "20250617"); got != wantGzip {
		t.Errorf("expected %s, got %s", wantGzip, got)
	}
}

func TestWriteRead(t *testing.T) {
	s := NewStore(t.TempDir())
	content := []byte(`<?xml version="1.0"?><tv></tv>`)

	if err := s.Write("tvb", content); err != nil {
		t.Fatal(err)
	}

	got, err := s.ReadToday("tvb")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Errorf("read back %q, want %q", got, content)
	}

	if !s.HasToday("tvb") {
		t.Error("expected HasToday after a write")
	}
	if s.HasToday("nowtv") {
		t.Error("expected no document for an unwritten platform")
	}
}

func TestReadNotFound(t *testing.T) {
	s := NewStore(t.TempDir())
	if _, err := s.ReadToday("tvb"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.ReadTodayGzip("all"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for gzip, got %v", err)
	}
}

func TestWriteGzipRoundTrip(t *testing.T) {
	s := NewStore(t.TempDir())
	compressed := []byte{0x1f, 0x8b, 0x08, 0x00}

	if err := s.WriteGzip("all", compressed); err != nil {
		t.Fatal(err)
	}
	got, err := s.ReadTodayGzip("all")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(compressed) {
		t.Errorf("read back %v, want %v", got, compressed)
	}
}

func TestDeleteStale(t *testing.T) {
	s := NewStore(t.TempDir())

	if err := s.Write("tvb", []byte("<tv/>")); err != nil {
		t.Fatal(err)
	}

	yesterday := epgtime.DateString(time.Now().AddDate(0, 0, -1))
	stalePath := s.Path("tvb", yesterday)
	if err := os.WriteFile(stalePath, []byte("<tv/>"), 0o644); err != nil {
		t.Fatal(err)
	}
	staleGzip := s.GzipPath("tvb", yesterday)
	if err := os.WriteFile(staleGzip, []byte{0x1f, 0x8b}, 0o644); err != nil {
		t.Fatal(err)
	}
	unrelated := filepath.Join(s.BaseDir, "tvb", "notes.txt")
	if err := os.WriteFile(unrelated, []byte("keep"), 0o644); err != nil {
		t.Fatal(err)
	}

	deleted, err := s.DeleteStale("tvb")
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 2 {
		t.Errorf("expected 2 stale files deleted, got %d", deleted)
	}

	if _, statErr := os.Stat(stalePath); !os.IsNotExist(statErr) {
		t.Error("expected yesterday's document to be gone")
	}
	if !s.HasToday("tvb") {
		t.Error("expected today's document to survive")
	}
	if _, statErr := os.Stat(unrelated); statErr != nil {
		t.Error("expected non-EPG files to survive")
	}
}

func TestDeleteStaleMissingDirectory(t *testing.T) {
	s := NewStore(t.TempDir())
	deleted, err := s.DeleteStale("never-written")
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 0 {
		t.Errorf("expected no deletions, got %d", deleted)
	}
}
