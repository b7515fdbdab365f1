package fs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/furrow/pkg/core"
)

// Serializer defines how to read and write a document file.
type Serializer interface {
	// Parse reads a tagged record from r.
	Parse(r io.Reader) (map[string]core.Field, error)
	// Serialize converts a tagged record to bytes.
	Serialize(fields map[string]core.Field) ([]byte, error)
}

// DefaultSerializers returns the standard set of serializers keyed by extension.
func DefaultSerializers() map[string]Serializer {
	return map[string]Serializer{
		".json": JSONSerializer{},
		".yaml": YAMLSerializer{},
		".yml":  YAMLSerializer{},
	}
}

// --- JSON Serializer ---

// JSONSerializer handles reading and writing JSON files.
type JSONSerializer struct{}

func (JSONSerializer) Parse(r io.Reader) (map[string]core.Field, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var fields map[string]core.Field
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&fields); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}
	return fields, nil
}

func (JSONSerializer) Serialize(fields map[string]core.Field) ([]byte, error) {
	return json.MarshalIndent(fields, "", "  ")
}

// --- YAML Serializer ---

// YAMLSerializer handles reading and writing YAML files.
type YAMLSerializer struct{}

func (YAMLSerializer) Parse(r io.Reader) (map[string]core.Field, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var fields map[string]core.Field
	if err := yaml.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("invalid yaml: %w", err)
	}
	return fields, nil
}

func (YAMLSerializer) Serialize(fields map[string]core.Field) ([]byte, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(fields); err != nil {
		return nil, err
	}
	if err := encoder.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
