package source

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// SupportedExtensions lists the file extensions a Files stream accepts.
var SupportedExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".gif", ".tif", ".tiff", ".webp", ".pdf"}

// DiscoverOptions controls how directories are expanded.
type DiscoverOptions struct {
	Recursive bool
	Include   []string // glob patterns matched against the base name
	Exclude   []string
}

// IsSupported reports whether the path has a supported extension.
func IsSupported(path string) bool {
	return slices.Contains(SupportedExtensions, strings.ToLower(filepath.Ext(path)))
}

func isPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// Discover expands files and directories into a sorted-per-directory list of
// supported input files. Explicit file arguments are kept in argument order.
func Discover(args []string, opts DiscoverOptions) ([]string, error) {
	var files []string

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}

		if info.IsDir() {
			found, err := discoverInDirectory(arg, opts)
			if err != nil {
				return nil, err
			}
			files = append(files, found...)
		} else if shouldInclude(arg, opts) {
			files = append(files, arg)
		}
	}

	return files, nil
}

func discoverInDirectory(dir string, opts DiscoverOptions) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if !opts.Recursive && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if IsSupported(path) && shouldInclude(path, opts) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// shouldInclude checks exclude patterns first, then include patterns.
func shouldInclude(path string, opts DiscoverOptions) bool {
	if matchesAny(path, opts.Exclude) {
		return false
	}
	if len(opts.Include) == 0 {
		return true
	}
	return matchesAny(path, opts.Include)
}

func matchesAny(path string, patterns []string) bool {
	base := filepath.Base(path)
	for _, pattern := range patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}
	return false
}
