// Package journal persists a capped line journal of connection
// lifecycle events (registrations, disconnects, protocol errors,
// probe outcomes) under the data directory.
package journal

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const maxEntries = 500

const fileName = "events.txt"

// Journal keeps entries newest-first in memory and mirrors them to
// disk on every append. The file stores oldest-first.
type Journal struct {
	mu      sync.Mutex
	dataDir string
	entries []string
}

// Open loads the journal for a data directory. A missing file yields
// an empty journal.
func Open(dataDir string) (*Journal, error) {
	j := &Journal{dataDir: dataDir}

	lines, err := readLines(filepath.Join(dataDir, fileName))
	if err != nil {
		if os.IsNotExist(err) {
			return j, nil
		}
		return nil, err
	}
	j.entries = reverse(lines)
	return j, nil
}

// Record timestamps and appends an entry, trimming to capacity, and
// saves the journal.
func (j *Journal) Record(accountID, event string) error {
	stamp := time.Now().UTC().Format("Mon Jan 02, 2006 15:04:05 GMT")
	entry := fmt.Sprintf("[%s] [%s] %s", stamp, accountID, event)

	j.mu.Lock()
	defer j.mu.Unlock()

	j.entries = append([]string{entry}, j.entries...)
	if len(j.entries) > maxEntries {
		j.entries = j.entries[:maxEntries]
	}
	return j.saveLocked()
}

// Recent returns up to n entries, newest first.
func (j *Journal) Recent(n int) []string {
	j.mu.Lock()
	defer j.mu.Unlock()

	if n > len(j.entries) {
		n = len(j.entries)
	}
	out := make([]string, n)
	copy(out, j.entries[:n])
	return out
}

func (j *Journal) saveLocked() error {
	return writeLines(filepath.Join(j.dataDir, fileName), reverse(j.entries))
}

func readLines(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}

func writeLines(path string, lines []string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	for _, line := range lines {
		if _, err := fmt.Fprintln(file, line); err != nil {
			return err
		}
	}
	return nil
}

func reverse(s []string) []string {
	out := make([]string, len(s))
	for i, v := range s {
		out[len(s)-1-i] = v
	}
	return out
}
