package library

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Options controls file discovery.
type Options struct {
	// Recursive descends into subdirectories of directory arguments.
	Recursive bool
	// Extensions is the lowercase, dot-prefixed allow-list applied to files
	// found inside directories. Files named directly are always accepted.
	Extensions []string
}

// Discover expands the given paths into a deduplicated, sorted list of
// candidate audio files. Directory arguments are walked (one level deep
// unless Recursive); file arguments are taken as-is. A path that does not
// exist is an error: discovery runs before scanning and bad input should
// stop the run.
func Discover(paths []string, opts Options) ([]string, error) {
	allowed := make(map[string]struct{}, len(opts.Extensions))
	for _, ext := range opts.Extensions {
		allowed[ext] = struct{}{}
	}

	seen := make(map[string]struct{})
	var files []string
	add := func(path string) error {
		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", path, err)
		}
		if _, dup := seen[abs]; dup {
			return nil
		}
		seen[abs] = struct{}{}
		files = append(files, abs)
		return nil
	}
	accepted := func(name string) bool {
		_, ok := allowed[strings.ToLower(filepath.Ext(name))]
		return ok
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}

		if !info.IsDir() {
			if err := add(path); err != nil {
				return nil, err
			}
			continue
		}

		if opts.Recursive {
			err = filepath.WalkDir(path, func(entry string, d fs.DirEntry, walkErr error) error {
				if walkErr != nil {
					return walkErr
				}
				if d.IsDir() || !accepted(entry) {
					return nil
				}
				return add(entry)
			})
			if err != nil {
				return nil, fmt.Errorf("walk %s: %w", path, err)
			}
			continue
		}

		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		for _, entry := range entries {
			if entry.IsDir() || !accepted(entry.Name()) {
				continue
			}
			if err := add(filepath.Join(path, entry.Name())); err != nil {
				return nil, err
			}
		}
	}

	sort.Strings(files)
	return files, nil
}
