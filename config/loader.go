package config

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Parse decodes a YAML or JSON definition document. yaml handles JSON too,
// so a single decode path covers both.
func Parse(data []byte) (Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return def, err
	}
	return def, def.Validate()
}

// Load reads and parses a definition file.
func Load(path string) (Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, fmt.Errorf("read definition %s: %w", path, err)
	}
	def, err := Parse(data)
	if err != nil {
		return def, fmt.Errorf("parse definition %s: %w", path, err)
	}
	return def, nil
}

// Marshal renders a definition as JSON, useful for fixtures.
func Marshal(def Definition) ([]byte, error) {
	return json.Marshal(def)
}
