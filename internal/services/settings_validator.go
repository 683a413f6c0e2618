package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrValidation wraps schema violations so handlers can map them to 422.
var ErrValidation = errors.New("validation error")

// SettingsValidator checks platform-settings documents against the JSON
// schema shipped in the schemas directory.
type SettingsValidator struct {
	schema *jsonschema.Schema
}

// NewSettingsValidator compiles schemas/settings.json from schemaDir.
func NewSettingsValidator(schemaDir string) (*SettingsValidator, error) {
	path := filepath.Join(schemaDir, "settings.json")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings schema %q: %w", path, err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("settings.json", bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("add settings schema: %w", err)
	}
	schema, err := compiler.Compile("settings.json")
	if err != nil {
		return nil, fmt.Errorf("compile settings schema: %w", err)
	}
	return &SettingsValidator{schema: schema}, nil
}

// Validate returns ErrValidation (wrapped) when doc violates the schema.
func (v *SettingsValidator) Validate(doc json.RawMessage) error {
	var inst any
	if err := json.Unmarshal(doc, &inst); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", ErrValidation, err)
	}
	if err := v.schema.Validate(inst); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}
