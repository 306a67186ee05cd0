package fieldmap

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/actimeta/pkg/types"
)

//go:embed default.yaml
var defaultYAML []byte

// DefaultDocument returns the embedded field-map document.
func DefaultDocument() []byte {
	return bytes.Clone(defaultYAML)
}

// Parse decodes a field-map document and validates it. Unknown keys are
// rejected so that a misspelled table name fails instead of silently
// producing an empty mapping.
func Parse(data []byte) (types.Config, error) {
	var cfg types.Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return types.Config{}, types.ConfigurationError.Wrap(fmt.Errorf("decode field map: %w", err))
	}
	if err := cfg.Validate(); err != nil {
		return types.Config{}, err
	}
	return cfg, nil
}

// Load reads the field-map document at path. An empty path selects the
// embedded default.
func Load(path string) (types.Config, error) {
	if path == "" {
		return Parse(defaultYAML)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Config{}, types.ConfigurationError.Wrap(fmt.Errorf("read field map: %w", err))
	}
	return Parse(data)
}
