package curate

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/kgcurator/internal/model"
)

// TypeLookup resolves an entity to its type; nil means unknown
type TypeLookup interface {
	TypeOf(entity string) *string
}

// StaticTypes is a fixed entity-to-type table keyed by canonical entity text
type StaticTypes map[string]string

// NewStaticTypes canonicalizes the keys of m
func NewStaticTypes(m map[string]string) StaticTypes {
	out := make(StaticTypes, len(m))
	for entity, typ := range m {
		if typ != "" {
			out[model.Canonical(entity)] = typ
		}
	}
	return out
}

// TypeOf implements TypeLookup
func (s StaticTypes) TypeOf(entity string) *string {
	return model.StringPtr(s[model.Canonical(entity)])
}

// LoadTypes reads a YAML map of entity: type
func LoadTypes(path string) (StaticTypes, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read types: %w", err)
	}
	var m map[string]string
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse types: %w", err)
	}
	return NewStaticTypes(m), nil
}
