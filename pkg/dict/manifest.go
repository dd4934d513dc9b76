// CLAUDE:SUMMARY Manifest YAML schema for user-supplied rule tables that extend or override the built-in ones.
package dict

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest describes one rule table file.
type Manifest struct {
	ID          string `yaml:"id" json:"id"`
	Description string `yaml:"description" json:"description,omitempty"`
	Rules       []Rule `yaml:"rules" json:"rules"`
}

// LoadManifest reads and parses a rule table manifest.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if m.ID == "" {
		return nil, fmt.Errorf("manifest %s: missing id", path)
	}
	if len(m.Rules) == 0 {
		return nil, fmt.Errorf("manifest %s: no rules", path)
	}
	return &m, nil
}

// RuleSet compiles the manifest's rules.
func (m *Manifest) RuleSet() (*RuleSet, error) {
	return NewRuleSet(m.ID, m.Rules)
}

// WriteManifest writes m as YAML to path.
func WriteManifest(path string, m *Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
