package importer

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/hazyhaar/accent-atlas/pkg/mentalmap"
	"github.com/hazyhaar/accent-atlas/pkg/survey"
)

// Dataset kinds.
const (
	KindSurvey     = "survey"
	KindMentalMaps = "mentalmaps"
)

// Dataset is the decoded content of one imported file. Exactly one of
// Records and Features is set, according to Kind.
type Dataset struct {
	Kind     string
	Records  []survey.ParticipantRecord
	Features []mentalmap.Feature
}

// Len returns the number of records or features.
func (d *Dataset) Len() int {
	if d.Kind == KindMentalMaps {
		return len(d.Features)
	}
	return len(d.Records)
}

// DecodeOptions carry the settings shared by all formats.
type DecodeOptions struct {
	Builder *survey.Builder // nil means survey.NewBuilder()
	CSV     CSVOptions
}

func (o DecodeOptions) builder() *survey.Builder {
	if o.Builder != nil {
		return o.Builder
	}
	return survey.NewBuilder()
}

// Adapter decodes one input file format into a Dataset.
type Adapter interface {
	// ID returns the unique identifier of this adapter (e.g. "survey-csv").
	ID() string
	// Kind returns the dataset kind it produces.
	Kind() string
	// Description returns a human-readable description.
	Description() string
	// Extensions lists the lowercase file extensions it claims, dot included.
	Extensions() []string
	// Decode reads a whole document. Structural failures are returned as
	// the survey or mentalmap *ValidationError.
	Decode(ctx context.Context, r io.Reader, opts DecodeOptions) (*Dataset, error)
}

var (
	registryMu sync.RWMutex
	adapters   = make(map[string]Adapter)
)

// Register adds an adapter to the global registry.
func Register(a Adapter) {
	registryMu.Lock()
	defer registryMu.Unlock()
	adapters[a.ID()] = a
}

// Get returns a registered adapter by ID, or an error if not found.
func Get(id string) (Adapter, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	a, ok := adapters[id]
	if !ok {
		return nil, fmt.Errorf("unknown import format: %q", id)
	}
	return a, nil
}

// All returns all registered adapters sorted by ID.
func All() []Adapter {
	registryMu.RLock()
	defer registryMu.RUnlock()
	result := make([]Adapter, 0, len(adapters))
	for _, a := range adapters {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID() < result[j].ID() })
	return result
}

// ForPath picks the adapter claiming the file's extension.
func ForPath(path string) (Adapter, error) {
	ext := strings.ToLower(filepath.Ext(path))
	for _, a := range All() {
		for _, e := range a.Extensions() {
			if e == ext {
				return a, nil
			}
		}
	}
	return nil, fmt.Errorf("no import format for %q", filepath.Base(path))
}
