// Package keyword implements the persistent keyword-phrase store and the
// whole-word matcher the watch pipeline evaluates messages against.
package keyword

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// ErrEmptyPhrase is returned when a phrase is empty after normalization.
// Callers should re-prompt the user rather than treat this as fatal.
var ErrEmptyPhrase = errors.New("keyword: phrase is empty")

// AddResult is the outcome of Store.Add.
type AddResult int

// Add outcomes. The zero value means no outcome (error case).
const (
	Added AddResult = iota + 1
	AlreadyExists
)

// RemoveResult is the outcome of Store.Remove.
type RemoveResult int

// Remove outcomes. The zero value means no outcome (error case).
const (
	Removed RemoveResult = iota + 1
	NotFound
)

// Store is the durable keyword-phrase set. Phrases are kept in insertion
// order in a flat UTF-8 file, one normalized phrase per line, rewritten
// wholesale on every mutation.
//
// All mutations go through a single mutex, so concurrent Add/Remove calls
// never interleave partial writes. Readers take copy-on-read snapshots and
// never block writers for longer than the copy.
type Store struct {
	mu      sync.Mutex
	path    string
	phrases []string
	logger  *slog.Logger
}

// Open loads the keyword set from path. A missing file yields an empty set,
// not an error. Blank lines are skipped. Phrases are stored pre-normalized,
// so no normalization happens on load.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{path: path, logger: logger}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Info("keyword file absent, starting with empty set", "path", path)
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("keyword: open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		s.phrases = append(s.phrases, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("keyword: read %s: %w", path, err)
	}

	logger.Info("keywords loaded", "path", path, "count", len(s.phrases))
	return s, nil
}

// Normalize trims surrounding whitespace and lower-cases a phrase.
// This is the only normalization applied anywhere; stored phrases and
// match lookups both go through it.
func Normalize(phrase string) string {
	return strings.ToLower(strings.TrimSpace(phrase))
}

// Add normalizes phrase and appends it to the set. It returns ErrEmptyPhrase
// for input that is blank after trimming, and AlreadyExists (without saving)
// when the phrase is already present.
//
// On a persistence failure the in-memory set keeps the new phrase and stays
// authoritative; the returned error reports the write failure so the caller
// can log it. The result is valid even when err is non-nil.
func (s *Store) Add(phrase string) (AddResult, error) {
	p := Normalize(phrase)
	if p == "" {
		return 0, ErrEmptyPhrase
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if slices.Contains(s.phrases, p) {
		return AlreadyExists, nil
	}

	s.phrases = append(s.phrases, p)
	if err := s.save(); err != nil {
		return Added, err
	}
	return Added, nil
}

// Remove normalizes phrase and deletes it from the set. It returns NotFound
// (without saving) when the phrase is absent. Persistence failures behave as
// in Add: the in-memory removal stands and the error is reported.
func (s *Store) Remove(phrase string) (RemoveResult, error) {
	p := Normalize(phrase)

	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.Index(s.phrases, p)
	if i < 0 {
		return NotFound, nil
	}

	s.phrases = slices.Delete(s.phrases, i, i+1)
	if err := s.save(); err != nil {
		return Removed, err
	}
	return Removed, nil
}

// Reload re-reads the keyword file and replaces the in-memory set. A missing
// file yields an empty set. Used to pick up edits made to the file by hand
// while the application is running.
func (s *Store) Reload() error {
	var phrases []string

	f, err := os.Open(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("keyword: open %s: %w", s.path, err)
	}
	if err == nil {
		defer func() { _ = f.Close() }()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := Normalize(scanner.Text())
			if line == "" || slices.Contains(phrases, line) {
				continue
			}
			phrases = append(phrases, line)
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("keyword: read %s: %w", s.path, err)
		}
	}

	s.mu.Lock()
	s.phrases = phrases
	s.mu.Unlock()

	s.logger.Info("keywords reloaded", "path", s.path, "count", len(phrases))
	return nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Snapshot returns an immutable copy of the set in insertion order.
// The pipeline scans this copy, so mutations during a scan never crash it.
func (s *Store) Snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.phrases)
}

// List returns a lexicographically sorted copy for display.
func (s *Store) List() []string {
	s.mu.Lock()
	out := slices.Clone(s.phrases)
	s.mu.Unlock()

	slices.Sort(out)
	return out
}

// Len returns the number of stored phrases.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.phrases)
}

// save rewrites the keyword file with the current set, one phrase per line.
// The write goes to a temp file in the same directory followed by a rename,
// so readers never observe a partially written file. Callers must hold s.mu.
func (s *Store) save() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("keyword: create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("keyword: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	w := bufio.NewWriter(tmp)
	for _, p := range s.phrases {
		if _, err := w.WriteString(p + "\n"); err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
			return fmt.Errorf("keyword: write temp file: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("keyword: flush temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("keyword: close temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("keyword: replace %s: %w", s.path, err)
	}
	return nil
}
