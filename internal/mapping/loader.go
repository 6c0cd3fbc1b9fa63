package mapping

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile loads, parses and compiles a YAML rule file from the given path.
func LoadFile(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule file %s: %w", path, err)
	}

	return Load(data)
}

// Load parses and compiles YAML rule data.
func Load(data []byte) (*RuleSet, error) {
	rf, err := Parse(data)
	if err != nil {
		return nil, err
	}

	return Compile(rf)
}

// MustLoad is like Load but panics on error. Meant for embedded rule files.
func MustLoad(data []byte) *RuleSet {
	rs, err := Load(data)
	if err != nil {
		panic(err)
	}

	return rs
}

// Parse parses YAML data into a RuleFile without compiling expressions.
func Parse(data []byte) (*RuleFile, error) {
	var rf RuleFile

	err := yaml.Unmarshal(data, &rf)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rule YAML: %w", err)
	}

	applyDefaults(&rf)

	return &rf, nil
}

// applyDefaults fills in default values for optional fields.
func applyDefaults(rf *RuleFile) {
	if rf.Version == "" {
		rf.Version = "1"
	}

	if rf.Tags == nil {
		rf.Tags = map[string]TagRules{}
	}
}

// Marshal serializes a RuleFile to YAML.
func Marshal(rf *RuleFile) ([]byte, error) {
	return yaml.Marshal(rf)
}
