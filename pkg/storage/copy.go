package storage

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gobwas/glob"
)

// Copy mirrors src to dest, overwriting existing files. Both resolve against
// the storage root unless absolute. A missing src is a no-op.
//
// Exclusion patterns use shell wildcard syntax where '*' also spans path
// separators. When src is a directory they match each entry's slash-separated
// path relative to src; when src is a file they match its base name. An
// excluded directory entry is skipped without creating it at dest, but its
// children are still considered individually.
func (s *Storage) Copy(src, dest string, exceptions ...string) (err error) {
	defer s.observe("copy", time.Now(), &err)
	cfg := s.provider()
	srcPath := resolve(cfg, src)
	destPath := resolve(cfg, dest)

	globs, err := compileGlobs(exceptions)
	if err != nil {
		return err
	}

	info, err := os.Stat(srcPath)
	if err != nil {
		return nil
	}

	if info.IsDir() {
		walkStart := time.Now()
		if err := copyDir(srcPath, destPath, globs); err != nil {
			return fmt.Errorf("failed to copy %s: %w", src, err)
		}
		s.metrics.RecordStage(context.Background(), "copy", "walk", time.Since(walkStart).Milliseconds())
		s.logger.Debug("copied directory", "src", src, "dest", dest)
		s.record("copy", src, map[string]any{"dest": dest})
		return nil
	}

	if !info.Mode().IsRegular() || matchAny(globs, filepath.Base(srcPath)) {
		return nil
	}
	if destInfo, statErr := os.Stat(destPath); statErr == nil && destInfo.IsDir() {
		destPath = filepath.Join(destPath, filepath.Base(srcPath))
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("failed to create parent directory for %s: %w", dest, err)
	}
	if err := copyFile(srcPath, destPath); err != nil {
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	s.logger.Debug("copied file", "src", src, "dest", dest)
	s.record("copy", src, map[string]any{"dest": dest})
	return nil
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid exclusion pattern %q: %w", pattern, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

func matchAny(globs []glob.Glob, path string) bool {
	for _, g := range globs {
		if g.Match(path) {
			return true
		}
	}
	return false
}

// copyDir mirrors the tree under src into dest, skipping excluded entries.
func copyDir(src, dest string, globs []glob.Glob) error {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if path == src {
			return nil
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if matchAny(globs, filepath.ToSlash(rel)) {
			return nil
		}
		target := filepath.Join(dest, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		return copyFile(path, target)
	})
}

// copyFile copies content, permissions and modification time.
func copyFile(src, dest string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	// The open mode is masked by umask; restore the source permissions.
	if err := os.Chmod(dest, info.Mode().Perm()); err != nil {
		return err
	}
	return os.Chtimes(dest, info.ModTime(), info.ModTime())
}
