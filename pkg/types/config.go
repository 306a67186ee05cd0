package types

import "fmt"

// Config is the field-map document. It is loaded once per session and never
// modified afterwards.
type Config struct {
	Metadata MetadataConfig `yaml:"metadata"`
}

// MetadataConfig holds the tables that translate logical fields to
// physical keys.
type MetadataConfig struct {
	HandednessMapping map[string]HandPlacement `yaml:"handedness_mapping"`
	Defaults          Defaults                 `yaml:"defaults"`
	AGDFields         map[string]string        `yaml:"agd_fields"`
	GT3XFields        map[string]string        `yaml:"gt3x_fields"`
	GT3XAnchors       Anchors                  `yaml:"gt3x_anchors"`
}

// HandPlacement is the wrist side and dominance derived from a handedness token.
type HandPlacement struct {
	Side      string `yaml:"side"`
	Dominance string `yaml:"dominance"`
}

// Defaults holds values written when the caller leaves a field unset.
type Defaults struct {
	Limb string `yaml:"limb"`
}

// Anchors names the info.txt keys that newly inserted fields follow.
// Empty values fall back to DefaultDemographicsAnchor and the configured
// gt3x dominance key.
type Anchors struct {
	Demographics string `yaml:"demographics"`
	DateOfBirth  string `yaml:"date_of_birth"`
}

// DefaultDemographicsAnchor is the info.txt key that sex, height, mass and
// age are inserted after.
const DefaultDemographicsAnchor = "Acceleration Max"

// Validate reports the first missing mapping or default as a
// ConfigurationError.
func (c Config) Validate() error {
	m := c.Metadata
	if len(m.HandednessMapping) != 2 {
		return ConfigurationError.Wrap(fmt.Errorf("%w: got %d", ErrHandednessTable, len(m.HandednessMapping)))
	}
	for token, p := range m.HandednessMapping {
		if token == "" || p.Side == "" || p.Dominance == "" {
			return ConfigurationError.Wrap(fmt.Errorf("%w: token %q", ErrHandednessTable, token))
		}
	}
	if m.Defaults.Limb == "" {
		return ConfigurationError.Wrap(fmt.Errorf("%w: defaults.limb", ErrMissingDefault))
	}
	tables := []struct {
		name   string
		fields map[string]string
	}{
		{"agd_fields", m.AGDFields},
		{"gt3x_fields", m.GT3XFields},
	}
	for _, tbl := range tables {
		for _, field := range LogicalFields {
			if tbl.fields[field] == "" {
				return ConfigurationError.Wrap(fmt.Errorf("%w: %s.%s", ErrMissingMapping, tbl.name, field))
			}
		}
	}
	return nil
}
