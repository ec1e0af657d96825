package history

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gazo/parser"

	"github.com/google/uuid"
)

const (
	historyFileName = "history.json"
	MaxEntries      = 200
)

// Entry is one search the user ran
type Entry struct {
	ID         string    `json:"id"`
	Query      string    `json:"query"`
	Engine     string    `json:"engine"`
	Count      int       `json:"count"`
	SearchedAt time.Time `json:"searched_at"`
	ResultURLs []string  `json:"result_urls,omitempty"`
}

// History is the root structure of history.json, most recent first
type History struct {
	Entries []Entry `json:"entries"`
}

// ImportResult holds statistics about an import
type ImportResult struct {
	Added      int
	Duplicates int
}

// serialises load-modify-save cycles from the UI and the search callback
var fileMu sync.Mutex

// Path returns ~/.config/gazo/history.json
func Path() (string, error) {
	dir, err := parser.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, historyFileName), nil
}

// Load reads the history file, creating an empty one on first use
func Load() (History, error) {
	fileMu.Lock()
	defer fileMu.Unlock()
	return load()
}

func load() (History, error) {
	path, err := Path()
	if err != nil {
		return History{}, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		log.Printf("[History] History file not found, creating %s", path)
		h := History{Entries: []Entry{}}
		return h, save(h)
	}
	if err != nil {
		return History{}, fmt.Errorf("error reading history file: %w", err)
	}

	return Parse(data)
}

// Save writes h to the history file
func Save(h History) error {
	fileMu.Lock()
	defer fileMu.Unlock()
	return save(h)
}

func save(h History) error {
	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}
	if h.Entries == nil {
		h.Entries = []Entry{}
	}

	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Record appends a search to the persisted history
func Record(query, engine string, count int, resultURLs []string) (Entry, error) {
	fileMu.Lock()
	defer fileMu.Unlock()

	h, err := load()
	if err != nil {
		return Entry{}, err
	}
	entry := h.Add(Entry{Query: query, Engine: engine, Count: count, ResultURLs: resultURLs})
	return entry, save(h)
}

// Delete removes one entry from the persisted history
func Delete(id string) error {
	fileMu.Lock()
	defer fileMu.Unlock()

	h, err := load()
	if err != nil {
		return err
	}
	if !h.Remove(id) {
		return fmt.Errorf("history entry not found: %s", id)
	}
	return save(h)
}

// Import merges imported entries into the persisted history
func Import(imported History) (ImportResult, error) {
	fileMu.Lock()
	defer fileMu.Unlock()

	h, err := load()
	if err != nil {
		return ImportResult{}, err
	}
	result := h.Merge(imported)
	log.Printf("[History] Imported %d entries, %d duplicates skipped", result.Added, result.Duplicates)
	return result, save(h)
}

// Parse validates and decodes exported history data
func Parse(data []byte) (History, error) {
	var h History
	if err := json.Unmarshal(data, &h); err != nil {
		return History{}, fmt.Errorf("invalid history file: %w", err)
	}
	if h.Entries == nil {
		h.Entries = []Entry{}
	}
	return h, nil
}

// Export writes h as indented JSON
func Export(w io.Writer, h History) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(h)
}

// Add puts e at the top, replacing an older entry for the same query and engine.
// Missing IDs and timestamps are filled in. The list is capped at MaxEntries.
func (h *History) Add(e Entry) Entry {
	e.Query = strings.TrimSpace(e.Query)
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.SearchedAt.IsZero() {
		e.SearchedAt = time.Now()
	}

	kept := make([]Entry, 0, len(h.Entries)+1)
	kept = append(kept, e)
	for _, existing := range h.Entries {
		if sameSearch(existing, e) {
			continue
		}
		kept = append(kept, existing)
	}
	if len(kept) > MaxEntries {
		kept = kept[:MaxEntries]
	}
	h.Entries = kept
	return e
}

// Remove deletes the entry with the given ID and reports whether it existed
func (h *History) Remove(id string) bool {
	for i, e := range h.Entries {
		if e.ID == id {
			h.Entries = append(h.Entries[:i], h.Entries[i+1:]...)
			return true
		}
	}
	return false
}

// Merge folds imported entries into h. An entry with a known ID, or the same
// query and engine at the same time, counts as a duplicate.
func (h *History) Merge(imported History) ImportResult {
	result := ImportResult{}

	for _, e := range imported.Entries {
		if strings.TrimSpace(e.Query) == "" {
			continue
		}
		if h.contains(e) {
			result.Duplicates++
			continue
		}
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		h.Entries = append(h.Entries, e)
		result.Added++
	}

	sort.SliceStable(h.Entries, func(i, j int) bool {
		return h.Entries[i].SearchedAt.After(h.Entries[j].SearchedAt)
	})
	if len(h.Entries) > MaxEntries {
		h.Entries = h.Entries[:MaxEntries]
	}
	return result
}

func (h *History) contains(e Entry) bool {
	for _, existing := range h.Entries {
		if e.ID != "" && existing.ID == e.ID {
			return true
		}
		if sameSearch(existing, e) && existing.SearchedAt.Equal(e.SearchedAt) {
			return true
		}
	}
	return false
}

func sameSearch(a, b Entry) bool {
	return strings.EqualFold(strings.TrimSpace(a.Query), strings.TrimSpace(b.Query)) && a.Engine == b.Engine
}
