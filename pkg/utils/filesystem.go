package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SafeCreateFile creates the file at path after validating that the path does
// not escape the working tree or land in a system directory. Parent
// directories are created as needed.
func SafeCreateFile(path string) (*os.File, error) {
	cleaned, err := validateFilePath(path)
	if err != nil {
		return nil, err
	}

	if dir := filepath.Dir(cleaned); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	file, err := os.Create(cleaned)
	if err != nil {
		return nil, fmt.Errorf("failed to create file %s: %w", cleaned, err)
	}
	return file, nil
}

// validateFilePath rejects traversal sequences and writes into sensitive
// system locations, returning the cleaned path when it is acceptable.
func validateFilePath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("file path cannot be empty")
	}

	cleaned := filepath.Clean(path)

	if strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("file path contains directory traversal: %s", path)
	}

	if filepath.IsAbs(cleaned) {
		sensitiveDirs := []string{"/etc", "/usr", "/bin", "/sbin", "/boot", "/sys", "/proc", "/dev"}
		for _, dir := range sensitiveDirs {
			if strings.HasPrefix(cleaned, dir+string(filepath.Separator)) || cleaned == dir {
				return "", fmt.Errorf("file path targets a system directory: %s", path)
			}
		}
	}

	return cleaned, nil
}

// FileExists reports whether path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}
