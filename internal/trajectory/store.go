package trajectory

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrUnavailable matches every LoadError: the caller has no trajectory to fly.
	ErrUnavailable = errors.New("trajectory unavailable")

	ErrUnknownManeuver = errors.New("unknown maneuver")
	ErrEmpty           = errors.New("no samples")
)

// LoadError reports why a maneuver's trajectory could not be loaded.
type LoadError struct {
	Maneuver Maneuver
	Path     string
	Err      error
}

func (e *LoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("trajectory: load %s: %v", e.Maneuver, e.Err)
	}
	return fmt.Sprintf("trajectory: load %s from %s: %v", e.Maneuver, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

func (e *LoadError) Is(target error) bool { return target == ErrUnavailable }

type StoreConfig struct {
	// Dir holds the catalog files.
	Dir string
	// Files overrides the path for individual maneuvers. Relative paths are
	// resolved against Dir.
	Files map[Maneuver]string
}

type cached struct {
	traj *Trajectory
	err  error
	// stopped is set when the file ended in a malformed row.
	stopped *RowError
}

// Store resolves maneuver ids to files and caches the parsed result.
//
// Not safe for concurrent use; it is owned by the commander's cycle.
type Store struct {
	cfg   StoreConfig
	cache map[Maneuver]cached
}

func NewStore(cfg StoreConfig) *Store {
	if cfg.Dir == "" {
		cfg.Dir = "."
	}
	return &Store{cfg: cfg, cache: make(map[Maneuver]cached)}
}

// Path returns the canonical file path for m, or "" if m is not in the catalog.
func (s *Store) Path(m Maneuver) string {
	if s == nil || !m.Known() {
		return ""
	}
	p := strings.TrimSpace(s.cfg.Files[m])
	if p == "" {
		p = m.FileName()
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(s.cfg.Dir, p)
}

// Load returns the trajectory for m, reading the file on first use.
// Later calls return the cached result (including a cached failure) until
// Invalidate. Failures are *LoadError.
func (s *Store) Load(m Maneuver) (*Trajectory, error) {
	if s == nil {
		return nil, &LoadError{Maneuver: m, Err: errors.New("store is nil")}
	}
	if c, ok := s.cache[m]; ok {
		return c.traj, c.err
	}
	c := s.load(m)
	s.cache[m] = c
	return c.traj, c.err
}

// Truncated reports the malformed row that ended the cached read of m, if any.
func (s *Store) Truncated(m Maneuver) *RowError {
	if s == nil {
		return nil
	}
	return s.cache[m].stopped
}

// Invalidate drops every cached trajectory so the next Load rereads from disk.
func (s *Store) Invalidate() {
	if s == nil {
		return
	}
	for k := range s.cache {
		delete(s.cache, k)
	}
}

func (s *Store) load(m Maneuver) cached {
	if !m.Known() {
		return cached{err: &LoadError{Maneuver: m, Err: ErrUnknownManeuver}}
	}
	path := s.Path(m)
	f, err := os.Open(path)
	if err != nil {
		return cached{err: &LoadError{Maneuver: m, Path: path, Err: err}}
	}
	defer f.Close()

	rr := NewReader(f)
	samples, err := rr.ReadAll()
	if err != nil {
		return cached{err: &LoadError{Maneuver: m, Path: path, Err: err}}
	}
	if len(samples) == 0 {
		return cached{err: &LoadError{Maneuver: m, Path: path, Err: ErrEmpty}, stopped: rr.Stopped()}
	}
	return cached{traj: &Trajectory{Maneuver: m, Samples: samples}, stopped: rr.Stopped()}
}
