package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// Discover walks root and returns every matching document, sorted by path.
// Files whose bytes repeat an earlier match are returned with Deduplicated
// set. Unreadable files are reported in the second return value and do not
// stop the walk.
func Discover(ctx context.Context, root string, opts Options) ([]Source, []FileError, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, nil, DirStats{}, errors.New("root path is required")
	}
	exts := opts.extSet()

	var (
		paths  []string
		failed []FileError
		stats  DirStats
	)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			failed = append(failed, FileError{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil // continue walking
		}
		if opts.SkipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !matchesExt(path, exts) {
			return nil
		}
		stats.Matched++
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, failed, stats, fmt.Errorf("walk: %w", err)
	}
	sort.Strings(paths)

	seen := map[string]struct{}{}
	out := make([]Source, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return out, failed, stats, err
		}
		src, err := hashFile(path, opts.MaxBytes)
		if err != nil {
			failed = append(failed, FileError{Path: path, Err: err.Error()})
			stats.Failed++
			continue
		}
		if _, dup := seen[src.HashHex]; dup {
			src.Deduplicated = true
			stats.Deduplicated++
		}
		seen[src.HashHex] = struct{}{}
		stats.Succeeded++
		out = append(out, src)
	}
	return out, failed, stats, nil
}

func hashFile(path string, maxBytes int64) (Source, error) {
	_, src, err := LoadFile(path, maxBytes)
	return src, err
}
