// Package storage is the on-disk cache of serialized EPG documents, one
// authoritative file per (platform, calendar day). The presence of today's
// file is the cache-hit signal that suppresses refetching.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/charmingtv/epg/internal/epgtime"
)

// ErrNotFound is returned when the requested document is not cached.
var ErrNotFound = errors.New("EPG file not found")

var log = &logrus.Logger{
	Out: os.Stderr,
	Formatter: &logrus.TextFormatter{
		FullTimestamp: true,
	},
	Hooks: make(logrus.LevelHooks),
	Level: logrus.InfoLevel,
}

// Store reads and writes per-platform EPG documents under a base directory,
// following the {base}/{platform}/{platform}_{YYYYMMDD}.xml layout.
type Store struct {
	BaseDir string
}

// NewStore returns a Store rooted at baseDir.
func NewStore(baseDir string) *Store {
	return &Store{BaseDir: baseDir}
}

// Path returns the document path for a platform and YYYYMMDD date string.
func (s *Store) Path(platform, date string) string {
	return filepath.Join(s.BaseDir, platform, fmt.Sprintf("%s_%s.xml", platform, date))
}

// GzipPath returns the path of the gzip-compressed variant of a document.
func (s *Store) GzipPath(platform, date string) string {
	return s.Path(platform, date) + ".gz"
}

func today() string {
	return epgtime.DateString(time.Now())
}

// ReadToday returns today's cached document for a platform, or ErrNotFound.
func (s *Store) ReadToday(platform string) ([]byte, error) {
	return s.Read(platform, today())
}

// Read returns the cached document for a platform and date, or ErrNotFound.
func (s *Store) Read(platform, date string) ([]byte, error) {
	content, err := os.ReadFile(s.Path(platform, date))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading EPG file for %s", platform)
	}
	return content, nil
}

// HasToday reports whether today's document exists for a platform.
func (s *Store) HasToday(platform string) bool {
	_, err := os.Stat(s.Path(platform, today()))
	return err == nil
}

// Write stores content as today's document for a platform. The write goes
// through a temp file and a rename so an HTTP read arriving mid-write never
// observes a partial document.
func (s *Store) Write(platform string, content []byte) error {
	return s.writeFile(s.Path(platform, today()), content)
}

// WriteGzip stores the gzip-compressed variant of today's document.
func (s *Store) WriteGzip(platform string, compressed []byte) error {
	return s.writeFile(s.GzipPath(platform, today()), compressed)
}

// ReadTodayGzip returns today's compressed document, or ErrNotFound.
func (s *Store) ReadTodayGzip(platform string) ([]byte, error) {
	content, err := os.ReadFile(s.GzipPath(platform, today()))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading compressed EPG file for %s", platform)
	}
	return content, nil
}

func (s *Store) writeFile(path string, content []byte) error {
	directory := filepath.Dir(path)
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return errors.Wrapf(err, "creating directory %s", directory)
	}

	tmp, tmpErr := os.CreateTemp(directory, filepath.Base(path)+".tmp-*")
	if tmpErr != nil {
		return errors.Wrap(tmpErr, "creating temp file")
	}

	if _, writeErr := tmp.Write(content); writeErr != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.Wrapf(writeErr, "writing %s", path)
	}
	if closeErr := tmp.Close(); closeErr != nil {
		os.Remove(tmp.Name())
		return errors.Wrapf(closeErr, "closing %s", path)
	}

	if renameErr := os.Rename(tmp.Name(), path); renameErr != nil {
		os.Remove(tmp.Name())
		return errors.Wrapf(renameErr, "replacing %s", path)
	}

	log.Infof("saved EPG file: %s (%d bytes)", path, len(content))
	return nil
}

// DeleteStale removes every cached file for a platform dated other than
// today, returning the number of files deleted.
func (s *Store) DeleteStale(platform string) (int, error) {
	date := today()
	keep := map[string]struct{}{
		filepath.Base(s.Path(platform, date)):     {},
		filepath.Base(s.GzipPath(platform, date)): {},
	}

	directory := filepath.Join(s.BaseDir, platform)
	entries, readErr := os.ReadDir(directory)
	if os.IsNotExist(readErr) {
		return 0, nil
	}
	if readErr != nil {
		return 0, errors.Wrapf(readErr, "listing %s", directory)
	}

	deleted := 0
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".xml") && !strings.HasSuffix(name, ".xml.gz") {
			continue
		}
		if _, ok := keep[name]; ok {
			continue
		}

		if err := os.Remove(filepath.Join(directory, name)); err != nil {
			log.WithError(err).Errorf("failed to delete old EPG file %s", name)
			continue
		}
		deleted++
		log.Debugf("deleted old EPG file: %s", name)
	}

	if deleted > 0 {
		log.Infof("cleaned up %d old EPG files for %s", deleted, platform)
	}

	return deleted, nil
}
