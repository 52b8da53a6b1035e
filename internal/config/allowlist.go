package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// AllowlistEntry is one path read from an allow-list file.
type AllowlistEntry struct {
	Path string
	Line int
}

// LoadAllowlistFile reads a line-based allow-list file: one absolute path
// per line, blank lines and # comments skipped. If the file does not exist
// an empty list is returned without an error. Relative paths are reported
// as an error naming the line.
func LoadAllowlistFile(path string) ([]AllowlistEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var entries []AllowlistEntry
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		// Skip blank lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !filepath.IsAbs(line) {
			return nil, fmt.Errorf("%s:%d: path %q is not absolute", path, lineNo, line)
		}

		cleaned := filepath.Clean(line)
		if seen[cleaned] {
			continue
		}
		seen[cleaned] = true
		entries = append(entries, AllowlistEntry{Path: cleaned, Line: lineNo})
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}
