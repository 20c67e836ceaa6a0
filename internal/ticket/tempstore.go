package ticket

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	tempDirName = "reservas-temp"
	dayLayout   = "2006-01-02"
	dirMode     = 0o750
	fileMode    = 0o640
)

// ErrOutsideStore is returned when a path does not belong to the store.
var ErrOutsideStore = errors.New("path outside temp store")

var unsafeKey = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// TempStore keeps short-lived artifacts under
// {root}/reservas-temp/{YYYY-MM-DD}/.
type TempStore struct {
	root string
	loc  *time.Location
	now  func() time.Time
}

// NewTempStore roots the store at uploadsRoot. Day directories are named
// in loc.
func NewTempStore(uploadsRoot string, loc *time.Location) *TempStore {
	if loc == nil {
		loc = time.UTC
	}
	return &TempStore{
		root: filepath.Join(filepath.Clean(uploadsRoot), tempDirName),
		loc:  loc,
		now:  time.Now,
	}
}

// Root is the directory that holds the day directories.
func (s *TempStore) Root() string { return s.root }

// DayDir ensures the directory for now's day exists and returns it.
func (s *TempStore) DayDir(now time.Time) (string, error) {
	dir := filepath.Join(s.root, now.In(s.loc).Format(dayLayout))
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	return dir, nil
}

// Create writes data to a new, uniquely named file and returns its path.
// The name is {prefix}_{key}_{YYYYmmddHHMMSS}_{8 hex}.{ext}.
func (s *TempStore) Create(prefix, key, ext string, data []byte) (string, error) {
	now := s.now()
	dir, err := s.DayDir(now)
	if err != nil {
		return "", err
	}

	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	name := fmt.Sprintf("%s_%s_%s_%s.%s",
		prefix, unsafeKey.ReplaceAllString(key, ""), now.In(s.loc).Format("20060102150405"), suffix, ext)
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, fileMode)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(path)
		}
	}()

	if _, err := f.Write(data); err != nil {
		f.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}
	committed = true
	return path, nil
}

// Remove deletes a file previously returned by Create.
func (s *TempStore) Remove(path string) error {
	rel, err := filepath.Rel(s.root, filepath.Clean(path))
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") || filepath.IsAbs(rel) {
		return fmt.Errorf("%w: %s", ErrOutsideStore, path)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// PruneBefore removes every day directory older than day and returns how
// many were removed. Entries that are not day directories are left alone.
func (s *TempStore) PruneBefore(day time.Time) (int, error) {
	entries, err := os.ReadDir(s.root)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	cutoff := day.In(s.loc).Format(dayLayout)
	removed := 0
	var errs []error
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := time.Parse(dayLayout, e.Name()); err != nil {
			continue
		}
		// the layout sorts lexically
		if e.Name() >= cutoff {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.root, e.Name())); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

// RemoveOlderThan deletes files whose modification time is more than age
// before now.
func (s *TempStore) RemoveOlderThan(age time.Duration, now time.Time) (int, error) {
	cutoff := now.Add(-age)
	removed := 0
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err == nil {
				removed++
			}
		}
		return nil
	})
	return removed, err
}
