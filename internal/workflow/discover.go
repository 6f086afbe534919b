package workflow

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"promap/internal/sample"
)

// Discover lists the reads files in dir in lexical order.
func Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list reads directory: %w", err)
	}
	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, sample.ReadsSuffix) || name == sample.ReadsSuffix {
			continue
		}
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		files = append(files, path)
	}
	sort.Strings(files)
	return files, nil
}
