// Package security validates operator-supplied file paths: configuration,
// label lists, sample batches and report outputs.
package security

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/banshee-data/paddy.report/internal/monitoring"
)

// MaxInputFileSize caps config and label files.
const MaxInputFileSize int64 = 1 << 20

// ErrUnsafePath is wrapped by every rejection in this package.
var ErrUnsafePath = errors.New("unsafe path")

// CheckInputFile validates a file that will be read at startup. The path
// must name a regular file with one of exts (case-insensitive, including the
// dot) no larger than maxSize bytes. A world-writable file is accepted with
// a warning. It returns the cleaned path.
func CheckInputFile(path string, exts []string, maxSize int64) (string, error) {
	cleanPath := filepath.Clean(path)
	if len(exts) > 0 && !hasExtension(cleanPath, exts) {
		return "", fmt.Errorf("%w: %s must have one of the extensions %v", ErrUnsafePath, path, exts)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s is not a regular file", ErrUnsafePath, path)
	}
	if maxSize > 0 && info.Size() > maxSize {
		return "", fmt.Errorf("%w: %s too large: %d bytes (max %d)", ErrUnsafePath, path, info.Size(), maxSize)
	}
	if info.Mode().Perm()&0o002 != 0 {
		monitoring.Logf("[Security] Warning: %s is world-writable", cleanPath)
	}
	return cleanPath, nil
}

func hasExtension(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

// ValidatePathWithinDirectory rejects filePath when its canonical location,
// after resolving symlinks, lies outside safeDir. Paths that do not exist yet
// are resolved through their nearest existing parent.
func ValidatePathWithinDirectory(filePath, safeDir string) error {
	absPath, err := filepath.Abs(filepath.Clean(filePath))
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	absSafeDir, err := filepath.Abs(safeDir)
	if err != nil {
		return fmt.Errorf("failed to resolve safe directory path: %w", err)
	}

	canonicalPath := canonicalize(absPath)
	canonicalSafeDir, err := filepath.EvalSymlinks(absSafeDir)
	if err != nil {
		return fmt.Errorf("failed to resolve safe directory symlinks: %w", err)
	}

	rel, err := filepath.Rel(canonicalSafeDir, canonicalPath)
	if err != nil {
		return fmt.Errorf("%w: %s is outside %s: %v", ErrUnsafePath, filePath, safeDir, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("%w: %s escapes %s", ErrUnsafePath, filePath, safeDir)
	}
	return nil
}

// canonicalize resolves symlinks in absPath, or in its deepest existing
// parent when absPath does not exist.
func canonicalize(absPath string) string {
	if resolved, err := filepath.EvalSymlinks(absPath); err == nil {
		return resolved
	}
	for dir := filepath.Dir(absPath); ; dir = filepath.Dir(dir) {
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			rel, _ := filepath.Rel(dir, absPath)
			return filepath.Join(resolved, rel)
		}
		if filepath.Dir(dir) == dir {
			return absPath
		}
	}
}

// SanitizeFilename makes a safe file name component from s: anything other
// than ASCII letters, digits, '.', '_' or '-' becomes a single underscore,
// the result is capped at 128 bytes and leading or trailing dots and
// underscores are trimmed. An empty result becomes "unknown".
func SanitizeFilename(s string) string {
	const maxLen = 128
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxLen {
			break
		}
		switch {
		case r < 0x80 && (r == '.' || r == '_' || r == '-' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')):
			b.WriteRune(r)
			lastUnderscore = r == '_'
		case !lastUnderscore:
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}
