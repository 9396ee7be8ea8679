package analyses

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned for an unknown analysis id.
var ErrNotFound = errors.New("analysis not found")

// createdLayout has fixed width so creation times sort as strings.
const createdLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Analysis is a saved document with an id and title.
type Analysis struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"createdAt"`
	Document
}

// Store keeps saved analyses as one JSON file each under a data directory.
type Store struct {
	dir    string
	logger *slog.Logger
}

// NewStore creates the analyses directory under dataDir if needed.
func NewStore(dataDir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dir := filepath.Join(dataDir, "analyses")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create analyses directory: %w", err)
	}
	return &Store{dir: dir, logger: logger.With("component", "analyses")}, nil
}

// List returns all saved analyses, newest first. Unreadable files are
// skipped.
func (s *Store) List() ([]*Analysis, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read analyses directory: %w", err)
	}

	out := []*Analysis{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		a, err := s.load(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			s.logger.Warn("skipping unreadable analysis", "file", entry.Name(), "error", err)
			continue
		}
		out = append(out, a)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt > out[j].CreatedAt
	})
	return out, nil
}

// Get loads one analysis.
func (s *Store) Get(id string) (*Analysis, error) {
	path, err := s.path(id)
	if err != nil {
		return nil, err
	}
	return s.load(path)
}

// Create saves a document under a new id.
func (s *Store) Create(title string, doc Document) (*Analysis, error) {
	if doc.Scenario == nil {
		return nil, ErrMissingScenario
	}
	now := time.Now().UTC().Format(createdLayout)
	if doc.Timestamp == "" {
		doc.Timestamp = now
	}
	if title == "" {
		title = fmt.Sprintf("%s vs %s", doc.Scenario.OptionA.Label, doc.Scenario.OptionB.Label)
	}
	a := &Analysis{
		ID:        uuid.New().String(),
		Title:     title,
		CreatedAt: now,
		Document:  doc,
	}

	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal analysis: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, a.ID+".json"), data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write analysis file: %w", err)
	}
	return a, nil
}

// Delete removes an analysis.
func (s *Store) Delete(id string) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete analysis: %w", err)
	}
	return nil
}

// path maps an id to its file. Only UUIDs are accepted so ids can never
// escape the directory.
func (s *Store) path(id string) (string, error) {
	if u, err := uuid.Parse(id); err != nil || u.String() != id {
		return "", ErrNotFound
	}
	return filepath.Join(s.dir, id+".json"), nil
}

func (s *Store) load(path string) (*Analysis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read analysis file: %w", err)
	}
	var a Analysis
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to parse analysis: %w", err)
	}
	return &a, nil
}
