// Package discover finds auxiliary files next to a main file.
package discover

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// DefaultMaxDirs is the number of directory levels tried by default.
const DefaultMaxDirs = 10

// Options of a search.
type Options struct {
	// Deep searches sub-directories when true and parent directories when false.
	Deep bool
	// MaxDirs is the number of directory levels tried (0 = DefaultMaxDirs).
	MaxDirs int
	// Filter is a regular expression preferring some of several hits. When no
	// hit matches, all hits are kept.
	Filter string
}

// Search globs pattern in basedir. When nothing matches it retries one level
// deeper ("*/pattern") or higher ("../pattern") until MaxDirs levels were
// tried. The hits of the first level with any hit are returned, cleaned and
// sorted. Directories are skipped.
func Search(fs afero.Fs, pattern, basedir string, opts Options) ([]string, error) {
	maxDirs := opts.MaxDirs
	if maxDirs <= 0 {
		maxDirs = DefaultMaxDirs
	}

	var filter *regexp.Regexp

	if opts.Filter != "" {
		re, err := regexp.Compile(opts.Filter)
		if err != nil {
			return nil, fmt.Errorf("invalid filter %q: %w", opts.Filter, err)
		}

		filter = re
	}

	step := "*"
	if !opts.Deep {
		step = ".."
	}

	var hits []string

	for range maxDirs {
		matches, err := afero.Glob(fs, filepath.Join(basedir, pattern))
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}

		hits = files(fs, matches)
		if len(hits) > 0 {
			break
		}

		pattern = filepath.Join(step, pattern)
	}

	if len(hits) > 1 && filter != nil {
		var preferred []string

		for _, h := range hits {
			if filter.MatchString(h) {
				preferred = append(preferred, h)
			}
		}

		if len(preferred) > 0 {
			hits = preferred
		}
	}

	return hits, nil
}

// First returns the first hit of Search, or "" when there is none.
func First(fs afero.Fs, pattern, basedir string, opts Options) string {
	hits, err := Search(fs, pattern, basedir, opts)
	if err != nil || len(hits) == 0 {
		return ""
	}

	return hits[0]
}

func files(fs afero.Fs, matches []string) []string {
	seen := make(map[string]bool, len(matches))
	out := make([]string, 0, len(matches))

	for _, m := range matches {
		m = filepath.Clean(m)
		if seen[m] || strings.TrimSpace(m) == "" {
			continue
		}

		info, err := fs.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}

		seen[m] = true
		out = append(out, m)
	}

	sort.Strings(out)

	return out
}
