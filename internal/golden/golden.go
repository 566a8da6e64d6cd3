// Package golden persists individual scenario results as pinned snapshots,
// distinct from a full baseline: a golden file captures one tool's exact
// response shape for one scenario so a user can detect a change in that
// single call without re-baselining the whole server.
package golden

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/dotsetlabs/bellwether/internal/schema"
)

// timeNow is a test seam.
var timeNow = time.Now

// Entry is one pinned scenario result.
type Entry struct {
	ToolName     string    `json:"toolName"`
	ScenarioID   string    `json:"scenarioId"`
	Description  string    `json:"description"`
	Args         any       `json:"args"`
	Response     any       `json:"response"`
	IsError      bool      `json:"isError"`
	SavedAt      time.Time `json:"savedAt"`
	ResponseHash string    `json:"responseHash"`
}

// ScenarioID derives a stable id for a (tool, description, args) triple by
// canonicalizing and hashing the args the same way the Schema Canonicalizer
// does for schemas, so two scenarios with identical args never collide
// under different description punctuation.
func ScenarioID(toolName, description string, args any) string {
	doc := schema.Canonicalize(map[string]any{
		"tool":        toolName,
		"description": description,
		"args":        args,
	})
	return schema.Hash(doc)
}

// Store persists Entry values under a root directory, one JSON file per
// entry, named by tool and scenario id so `golden list` can walk the
// directory without an index file.
type Store struct {
	root string
}

// NewStore returns a Store rooted at dir. The directory is created lazily
// on first Save.
func NewStore(dir string) *Store {
	return &Store{root: dir}
}

func (s *Store) path(toolName, scenarioID string) string {
	return filepath.Join(s.root, toolName, scenarioID+".json")
}

// Save writes entry to disk, overwriting any prior entry for the same
// tool/scenario id.
func (s *Store) Save(entry Entry) error {
	if entry.ScenarioID == "" {
		return fmt.Errorf("golden: entry has no scenario id")
	}
	entry.ResponseHash = schema.Hash(schema.Canonicalize(entry.Response))
	if entry.SavedAt.IsZero() {
		entry.SavedAt = timeNow()
	}

	path := s.path(entry.ToolName, entry.ScenarioID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("golden: create directory: %w", err)
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("golden: encode entry: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("golden: write entry: %w", err)
	}
	return nil
}

// Load reads back a previously saved entry. The second return value is
// false when no such entry exists.
func (s *Store) Load(toolName, scenarioID string) (Entry, bool, error) {
	data, err := os.ReadFile(s.path(toolName, scenarioID))
	if err != nil {
		if os.IsNotExist(err) {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("golden: read entry: %w", err)
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return Entry{}, false, fmt.Errorf("golden: decode entry: %w", err)
	}
	return entry, true, nil
}

// Delete removes a previously saved entry. Deleting a nonexistent entry is
// not an error.
func (s *Store) Delete(toolName, scenarioID string) error {
	err := os.Remove(s.path(toolName, scenarioID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("golden: delete entry: %w", err)
	}
	return nil
}

// List returns every saved entry for toolName, sorted by scenario id. An
// empty toolName lists every tool's entries.
func (s *Store) List(toolName string) ([]Entry, error) {
	var dirs []string
	if toolName != "" {
		dirs = []string{filepath.Join(s.root, toolName)}
	} else {
		root, err := os.ReadDir(s.root)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, nil
			}
			return nil, fmt.Errorf("golden: list tools: %w", err)
		}
		for _, d := range root {
			if d.IsDir() {
				dirs = append(dirs, filepath.Join(s.root, d.Name()))
			}
		}
	}

	var entries []Entry
	for _, dir := range dirs {
		files, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("golden: list entries in %s: %w", dir, err)
		}
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			data, err := os.ReadFile(filepath.Join(dir, f.Name()))
			if err != nil {
				return nil, fmt.Errorf("golden: read %s: %w", f.Name(), err)
			}
			var entry Entry
			if err := json.Unmarshal(data, &entry); err != nil {
				return nil, fmt.Errorf("golden: decode %s: %w", f.Name(), err)
			}
			entries = append(entries, entry)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].ToolName != entries[j].ToolName {
			return entries[i].ToolName < entries[j].ToolName
		}
		return entries[i].ScenarioID < entries[j].ScenarioID
	})
	return entries, nil
}

// CompareResult is the outcome of comparing a fresh response against a
// saved golden entry.
type CompareResult struct {
	Entry     Entry
	Matches   bool
	NewHash   string
}

// Compare hashes response the same way Save does and reports whether it
// matches the saved entry.
func (s *Store) Compare(toolName, scenarioID string, response any) (CompareResult, error) {
	entry, ok, err := s.Load(toolName, scenarioID)
	if err != nil {
		return CompareResult{}, err
	}
	if !ok {
		return CompareResult{}, fmt.Errorf("golden: no saved entry for %s/%s", toolName, scenarioID)
	}
	newHash := schema.Hash(schema.Canonicalize(response))
	return CompareResult{Entry: entry, Matches: newHash == entry.ResponseHash, NewHash: newHash}, nil
}
