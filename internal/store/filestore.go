package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/materialscodegraph/materialscodegraph/internal/asset"
)

// ledgerDocument is the persisted wire form of the file backend.
type ledgerDocument struct {
	Assets map[string]asset.Asset `json:"assets"`
	Edges  []asset.Edge           `json:"edges"`
	Runs   map[string]asset.Run   `json:"runs,omitempty"`
}

// FileStore keeps the graph in memory and persists every mutation as one
// JSON document, rewritten whole via write-temp-then-rename. A crash
// mid-write leaves the previous document intact; incremental patching is
// deliberately not attempted.
type FileStore struct {
	mu     sync.Mutex
	path   string
	assets map[string]asset.Asset
	edges  []asset.Edge
	runs   map[string]asset.Run
}

// OpenFile opens or creates a file-backed store at path. An existing
// document is loaded; a missing file starts an empty graph.
func OpenFile(path string) (*FileStore, error) {
	s := &FileStore{
		path:   path,
		assets: make(map[string]asset.Asset),
		runs:   make(map[string]asset.Run),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}

	var doc ledgerDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode ledger %s: %w", path, err)
	}
	if doc.Assets != nil {
		s.assets = doc.Assets
	}
	s.edges = doc.Edges
	if doc.Runs != nil {
		s.runs = doc.Runs
	}
	return s, nil
}

func (s *FileStore) Put(ctx context.Context, a asset.Asset) (string, error) {
	if a.ID == "" {
		return "", fmt.Errorf("put asset: empty id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.assets[a.ID]; exists {
		// Content-addressed: same ID means same payload. Idempotent.
		return a.ID, nil
	}
	s.assets[a.ID] = a
	if err := s.save(); err != nil {
		delete(s.assets, a.ID)
		return "", err
	}
	return a.ID, nil
}

func (s *FileStore) Get(ctx context.Context, id string) (asset.Asset, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assets[id]
	return a, ok, nil
}

func (s *FileStore) GetMany(ctx context.Context, ids []string) ([]asset.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]asset.Asset, 0, len(ids))
	for _, id := range ids {
		if a, ok := s.assets[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *FileStore) Append(ctx context.Context, edges []asset.Edge) (int, error) {
	if len(edges) == 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := len(s.edges)
	s.edges = append(s.edges, edges...)
	if err := s.save(); err != nil {
		s.edges = s.edges[:prev]
		return 0, err
	}
	return len(edges), nil
}

func (s *FileStore) Query(ctx context.Context, f EdgeFilter) ([]asset.Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []asset.Edge{}
	for _, e := range s.edges {
		if f.matches(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *FileStore) PutRun(ctx context.Context, r asset.Run) error {
	if r.ID == "" {
		return fmt.Errorf("put run: empty id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.runs[r.ID]
	s.runs[r.ID] = r
	if err := s.save(); err != nil {
		if had {
			s.runs[r.ID] = prev
		} else {
			delete(s.runs, r.ID)
		}
		return err
	}
	return nil
}

func (s *FileStore) GetRun(ctx context.Context, id string) (asset.Run, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[id]
	return r, ok, nil
}

func (s *FileStore) Close() error { return nil }

// save rewrites the whole document atomically. The temp file lands in the
// ledger's directory so the rename never crosses filesystems.
func (s *FileStore) save() error {
	doc := ledgerDocument{Assets: s.assets, Edges: s.edges, Runs: s.runs}
	if doc.Edges == nil {
		doc.Edges = []asset.Edge{}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create ledger dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".ledger-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp ledger: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write ledger: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp ledger: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace ledger: %w", err)
	}
	return nil
}
