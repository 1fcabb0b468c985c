package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ProcessedEntry records one successfully summarized video.
type ProcessedEntry struct {
	BVID        string    `json:"bvid"`
	Title       string    `json:"title"`
	Scenario    string    `json:"scenario"`
	ReportPath  string    `json:"report_path,omitempty"`
	ProcessedAt time.Time `json:"processed_at"`
}

// ProcessedIndex tracks which videos have already been summarized so reruns
// and watch loops stay idempotent. The index is a single JSON file; all
// mutation goes through the mutex and saves are atomic.
type ProcessedIndex struct {
	path    string
	mu      sync.Mutex
	entries map[string]ProcessedEntry
}

// LoadProcessedIndex opens the index at path, starting empty when the file
// does not exist yet.
func LoadProcessedIndex(path string) (*ProcessedIndex, error) {
	idx := &ProcessedIndex{
		path:    path,
		entries: make(map[string]ProcessedEntry),
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return idx, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading processed index: %w", err)
	}
	if err := json.Unmarshal(data, &idx.entries); err != nil {
		return nil, fmt.Errorf("parsing processed index %s: %w", path, err)
	}
	return idx, nil
}

// Contains reports whether the video was already processed.
func (idx *ProcessedIndex) Contains(bvid string) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	_, ok := idx.entries[bvid]
	return ok
}

// Get returns the entry for a video, if any.
func (idx *ProcessedIndex) Get(bvid string) (ProcessedEntry, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	entry, ok := idx.entries[bvid]
	return entry, ok
}

// Record adds an entry and persists the index. The entry is only visible
// after the save succeeds.
func (idx *ProcessedIndex) Record(entry ProcessedEntry) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	previous, existed := idx.entries[entry.BVID]
	idx.entries[entry.BVID] = entry
	if err := idx.save(); err != nil {
		if existed {
			idx.entries[entry.BVID] = previous
		} else {
			delete(idx.entries, entry.BVID)
		}
		return err
	}
	return nil
}

// Entries returns a copy of all recorded entries.
func (idx *ProcessedIndex) Entries() []ProcessedEntry {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	out := make([]ProcessedEntry, 0, len(idx.entries))
	for _, entry := range idx.entries {
		out = append(out, entry)
	}
	return out
}

// save writes the index to a temp file and renames it into place, so a
// crash mid-write never corrupts the existing file.
func (idx *ProcessedIndex) save() error {
	if err := os.MkdirAll(filepath.Dir(idx.path), 0o755); err != nil {
		return fmt.Errorf("creating index dir: %w", err)
	}

	data, err := json.MarshalIndent(idx.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding processed index: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(idx.path), ".index-*.json")
	if err != nil {
		return fmt.Errorf("creating temp index: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp index: %w", err)
	}
	if err := os.Rename(tmpName, idx.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing processed index: %w", err)
	}
	return nil
}
