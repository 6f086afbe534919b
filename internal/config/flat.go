package config

import (
	"bufio"
	"io"
	"strings"
)

type flatEntry struct {
	line  int
	key   string
	value string
}

// parseFlat reads newline-delimited key=value pairs. The first "=" splits key
// from value; both sides are trimmed. Lines without "=", blank lines, and
// lines starting with "#" are skipped. Entries are returned in file order so
// later duplicates overwrite earlier ones when applied.
func parseFlat(r io.Reader) ([]flatEntry, error) {
	var entries []flatEntry
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		entries = append(entries, flatEntry{line: lineNo, key: key, value: strings.TrimSpace(value)})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
