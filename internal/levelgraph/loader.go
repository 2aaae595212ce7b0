package levelgraph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// catalogFile is the on-disk YAML layout of a level catalog.
type catalogFile struct {
	Levels []catalogLevel `yaml:"levels"`
}

type catalogLevel struct {
	ID            int    `yaml:"id"`
	Order         int    `yaml:"order"`
	Name          string `yaml:"name,omitempty"`
	Theme         string `yaml:"theme,omitempty"`
	VideoID       string `yaml:"video_id,omitempty"`
	PassThreshold int    `yaml:"pass_threshold,omitempty"`
	Prerequisites []int  `yaml:"prerequisites,omitempty"`
}

// Load reads and validates a YAML level catalog from path.
func Load(path string) (*Graph, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("read %s: %w", path, err)}
	}
	g, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return g, nil
}

// Parse validates a YAML level catalog against the catalog schema and builds
// the Graph. Every failure is reported as a *ConfigError.
func Parse(data []byte) (*Graph, error) {
	if err := validateDocument(data); err != nil {
		return nil, err
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("decode catalog: %w", err)}
	}

	levels := make([]Level, len(file.Levels))
	for i, cl := range file.Levels {
		levels[i] = Level{
			ID:            cl.ID,
			Order:         cl.Order,
			Name:          cl.Name,
			Theme:         cl.Theme,
			VideoID:       cl.VideoID,
			PassThreshold: cl.PassThreshold,
			Prerequisites: cl.Prerequisites,
		}
	}
	return New(levels)
}

// validateDocument checks the raw YAML against the catalog schema.
func validateDocument(data []byte) error {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return &ConfigError{Err: fmt.Errorf("parse yaml: %w", err)}
	}

	// The schema library wants JSON values, so round-trip through JSON.
	b, err := json.Marshal(raw)
	if err != nil {
		return &ConfigError{Err: fmt.Errorf("convert yaml to json: %w", err)}
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(b))
	if err != nil {
		return &ConfigError{Err: fmt.Errorf("parse json: %w", err)}
	}

	schema, err := catalogSchema()
	if err != nil {
		return &ConfigError{Err: err}
	}
	if err := schema.Validate(inst); err != nil {
		return &ConfigError{Err: fmt.Errorf("schema validation failed: %w", err)}
	}
	return nil
}

// Marshal renders the graph as a YAML catalog that Parse accepts.
func Marshal(g *Graph) ([]byte, error) {
	var file catalogFile
	for _, l := range g.Levels() {
		file.Levels = append(file.Levels, catalogLevel{
			ID:            l.ID,
			Order:         l.Order,
			Name:          l.Name,
			Theme:         l.Theme,
			VideoID:       l.VideoID,
			PassThreshold: l.PassThreshold,
			Prerequisites: l.Prerequisites,
		})
	}
	return yaml.Marshal(file)
}
