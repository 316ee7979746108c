package ccsessions

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DecodeProjectPath reconstructs the original project path from the encoded
// directory the session file lives in. The tool encodes
// /Users/x/proj as -Users-x-proj; anything that does not follow that
// convention falls back to the directory itself. The result is sanitized:
// "." and ".." components are stripped so an untrusted directory name can
// never point outside the expected root.
func DecodeProjectPath(sessionPath string) string {
	dir := filepath.Dir(sessionPath)
	base := filepath.Base(dir)

	if !strings.HasPrefix(base, "-") {
		return sanitizePath(dir)
	}

	decoded := strings.ReplaceAll(base[1:], "-", "/")
	return sanitizePath("/" + decoded)
}

// sanitizePath normalizes a decoded path, dropping traversal components.
func sanitizePath(path string) string {
	parts := strings.Split(filepath.ToSlash(path), "/")
	clean := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" || p == "." || p == ".." {
			continue
		}
		clean = append(clean, p)
	}
	if filepath.IsAbs(path) {
		return "/" + strings.Join(clean, "/")
	}
	return strings.Join(clean, "/")
}

// ValidateSessionDir rejects session directories that escape the projects
// root or are reachable only through a symlink. Both are signs of a
// tampered or misconfigured tree and must not be scanned.
func ValidateSessionDir(root, dir string) error {
	rel, err := filepath.Rel(root, dir)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("session directory %s is outside the projects root", dir)
	}
	info, err := os.Lstat(dir)
	if err != nil {
		return fmt.Errorf("failed to stat session directory: %w", err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return fmt.Errorf("session directory %s is a symlink", dir)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}
