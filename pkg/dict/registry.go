package dict

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ErrUnknownTable is returned when a rule table id is not loaded.
var ErrUnknownTable = errors.New("unknown rule table")

// Registry holds the rule tables used for canonicalization: the built-in
// tables plus any YAML manifests found in rulesDir, which override built-ins
// with the same id.
type Registry struct {
	mu       sync.RWMutex
	sets     map[string]*RuleSet
	rulesDir string
}

// NewRegistry creates a registry seeded with the built-in tables.
func NewRegistry(rulesDir string) *Registry {
	r := &Registry{rulesDir: rulesDir}
	r.sets = seed()
	return r
}

func seed() map[string]*RuleSet {
	sets := make(map[string]*RuleSet)
	for _, rs := range builtinSets() {
		sets[rs.ID()] = rs
	}
	return sets
}

// Load rebuilds the registry from the built-ins and the manifests in the rules
// directory. A missing directory is not an error.
func (r *Registry) Load() error {
	sets := seed()

	if r.rulesDir != "" {
		entries, err := os.ReadDir(r.rulesDir)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("read rules dir %s: %w", r.rulesDir, err)
		}
		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || !(strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")) {
				continue
			}
			m, err := LoadManifest(filepath.Join(r.rulesDir, name))
			if err != nil {
				return err
			}
			rs, err := m.RuleSet()
			if err != nil {
				return fmt.Errorf("compile %s: %w", name, err)
			}
			sets[rs.ID()] = rs
		}
	}

	r.mu.Lock()
	r.sets = sets
	r.mu.Unlock()
	return nil
}

// Reload reloads all rule tables from disk (hot reload).
func (r *Registry) Reload() error {
	return r.Load()
}

// Get returns the rule table with the given id.
func (r *Registry) Get(id string) (*RuleSet, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rs, ok := r.sets[id]
	return rs, ok
}

// CanonicalizeResult is the response for a single term.
type CanonicalizeResult struct {
	Term       string `json:"term"`
	Normalized string `json:"normalized"`
	Table      string `json:"table"`
	Label      string `json:"label"`
	Matched    bool   `json:"matched"`
}

// Canonicalize maps term through the named table. Label falls back to the
// normalized term when no rule matches.
func (r *Registry) Canonicalize(table, term string) (*CanonicalizeResult, error) {
	if table == "" {
		table = TableLabels
	}
	rs, ok := r.Get(table)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownTable, table)
	}
	n := Normalize(term)
	res := &CanonicalizeResult{Term: term, Normalized: n, Table: table, Label: n}
	if label, ok := rs.MatchNormalized(n); ok {
		res.Label = label
		res.Matched = true
	}
	return res, nil
}

// TableInfo is the public metadata for a loaded rule table.
type TableInfo struct {
	ID     string   `json:"id"`
	Rules  int      `json:"rules"`
	Labels []string `json:"labels"`
}

// ListTables returns metadata for all loaded tables, sorted by ID.
func (r *Registry) ListTables() []TableInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]TableInfo, 0, len(r.sets))
	for _, rs := range r.sets {
		infos = append(infos, TableInfo{ID: rs.ID(), Rules: rs.Len(), Labels: rs.Labels()})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// Count returns the number of loaded tables.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sets)
}
