package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Registry holds the job definitions loaded from a configuration
// directory. Definitions are matched by normalized name, so "Materials
// Calculator", "materials_calculator" and "materials  calculator" all
// resolve to the same definition. The file stem works as a lookup
// alias when it differs from the declared name.
type Registry struct {
	dir    string
	logger *zap.Logger

	mu   sync.RWMutex
	defs map[string]*Definition // normalized name -> definition
	list []*Definition          // load order, for Names()
}

// Open loads every definition document under dir. Supported extensions
// are .json, .yaml, .yml and .cue; other files are skipped. A malformed
// document fails the whole load.
func Open(dir string, logger *zap.Logger) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{dir: dir, logger: logger}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-reads the configuration directory, replacing the loaded
// definitions atomically. On error the previous definitions stay live.
func (r *Registry) Reload() error {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf("read config dir: %w", err)
	}

	defs := map[string]*Definition{}
	primary := map[string]bool{}
	var list []*Definition
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(r.dir, entry.Name())
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		stem := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))

		var def *Definition
		switch ext {
		case ".json", ".yaml", ".yml":
			def, err = loadDocumentFile(path, stem)
		case ".cue":
			def, err = loadCueFile(path, stem)
		default:
			continue
		}
		if err != nil {
			return err
		}

		key := normalizeName(def.Name)
		if primary[key] {
			return fmt.Errorf("%s: definition %q already declared in %s", path, def.Name, defs[key].Source)
		}
		defs[key] = def
		primary[key] = true
		// The file stem is a lookup alias alongside the declared name.
		// Declared names always win over another file's stem.
		if stemKey := normalizeName(stem); stemKey != key {
			if _, taken := defs[stemKey]; !taken {
				defs[stemKey] = def
			}
		}
		list = append(list, def)
		r.logger.Debug("loaded definition",
			zap.String("name", def.Name),
			zap.String("source", def.Source),
			zap.Int("methods", len(def.Methods)))
	}

	r.mu.Lock()
	r.defs = defs
	r.list = list
	r.mu.Unlock()

	r.logger.Info("registry loaded", zap.String("dir", r.dir), zap.Int("definitions", len(list)))
	return nil
}

// Find returns the definition whose normalized name matches name.
func (r *Registry) Find(name string) (*Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.defs[normalizeName(name)]
	if !ok {
		known := make([]string, 0, len(r.list))
		for _, d := range r.list {
			known = append(known, d.Name)
		}
		sort.Strings(known)
		return nil, fmt.Errorf("unknown job %q (known: %s)", name, strings.Join(known, ", "))
	}
	return def, nil
}

// Names returns the declared definition names in load order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.list))
	for i, d := range r.list {
		names[i] = d.Name
	}
	return names
}

func loadDocumentFile(path, stem string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	doc, err := decodeDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return normalizeDefinition(stem, path, doc)
}

// normalizeName lowercases and collapses runs of spaces, underscores
// and hyphens so user-facing job names match loosely.
func normalizeName(name string) string {
	var b strings.Builder
	lastSep := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch r {
		case ' ', '_', '-', '\t':
			if !lastSep {
				b.WriteByte(' ')
				lastSep = true
			}
		default:
			b.WriteRune(r)
			lastSep = false
		}
	}
	return strings.TrimRight(b.String(), " ")
}
