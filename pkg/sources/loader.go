package sources

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// rulesFile is the on-disk layout of an extra publisher table.
type rulesFile struct {
	Sources []Rule `yaml:"sources"`
}

// LoadRules reads a YAML rule file.
func LoadRules(path string) ([]Rule, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sources file path is empty")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}

	var f rulesFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode sources file: %w", err)
	}

	for i, r := range f.Sources {
		if strings.TrimSpace(r.Prefix) == "" {
			return nil, fmt.Errorf("sources[%d]: prefix is required", i)
		}
		if strings.TrimSpace(r.Label) == "" {
			return nil, fmt.Errorf("sources[%d]: label is required for prefix %q", i, r.Prefix)
		}
	}
	return f.Sources, nil
}

// NewResolverFromFile returns a resolver over the built-in table merged with
// the rules from path. File rules replace built-in rules with the same prefix.
// An empty path yields the built-in table.
func NewResolverFromFile(path string) (*Resolver, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}

	extra, err := LoadRules(path)
	if err != nil {
		return nil, err
	}
	return NewResolver(append(BuiltinRules(), extra...)), nil
}
