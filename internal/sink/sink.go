// Package sink persists the crawl's visited URL list.
//
// The file format is one URL per line joined with "\n" and no trailing
// newline, so a crawl that visited nothing produces an empty file.
package sink

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// fileSuffix is appended to the start host to name the result file.
const fileSuffix = "-urls.txt"

// Filename returns the result file name for a crawl of host,
// e.g. "example.com-urls.txt". Characters that are not valid in file names
// (such as the ":" of a port) are replaced with "_".
func Filename(host string) string {
	r := strings.NewReplacer(":", "_", "/", "_", `\`, "_")
	return r.Replace(host) + fileSuffix
}

// Save writes urls to path, creating or truncating it.
// The error is returned to the caller as is; Save never retries.
func Save(urls []string, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(strings.Join(urls, "\n")), 0o600); err != nil {
		return fmt.Errorf("failed to write URL list: %w", err)
	}
	return nil
}

// Load reads a file written by Save. Lines are trimmed and blank lines
// are skipped.
func Load(path string) ([]string, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open URL list: %w", err)
	}
	defer file.Close()

	urls := make([]string, 0)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			urls = append(urls, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read URL list: %w", err)
	}
	return urls, nil
}
