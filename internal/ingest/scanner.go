package ingest

import (
	"fmt"
	"path/filepath"
	"sort"
)

// filePatterns are the two accepted declaration naming conventions.
var filePatterns = []string{"signal_*.json", "mission_*.json"}

// Scanner lists the signal source directory and remembers every
// filename it has handed out, so a file is parsed at most once per
// process lifetime.
type Scanner struct {
	dir  string
	seen map[string]struct{}
}

// NewScanner creates a Scanner over dir.
func NewScanner(dir string) *Scanner {
	return &Scanner{
		dir:  dir,
		seen: make(map[string]struct{}),
	}
}

// Next returns the declaration files that appeared since the last call,
// in name order. Files already handed out are never returned again.
func (s *Scanner) Next() ([]string, error) {
	var fresh []string
	for _, pattern := range filePatterns {
		matches, err := filepath.Glob(filepath.Join(s.dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("list signal source %s: %w", s.dir, err)
		}
		for _, path := range matches {
			if _, ok := s.seen[path]; ok {
				continue
			}
			s.seen[path] = struct{}{}
			fresh = append(fresh, path)
		}
	}
	sort.Strings(fresh)
	return fresh, nil
}
