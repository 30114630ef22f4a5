package eval

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Example is one dataset row: the prompt sent to the agent and, optionally,
// the answer it is graded against.
type Example struct {
	Input     string `yaml:"input"`
	Reference string `yaml:"reference,omitempty"`
}

// Dataset is a named list of examples.
type Dataset struct {
	Name     string    `yaml:"name"`
	Examples []Example `yaml:"examples"`
}

// LoadDataset reads <dir>/<name>.yaml, falling back to <name>.yml.
func LoadDataset(dir, name string) (Dataset, error) {
	if name == "" {
		return Dataset{}, errors.New("eval: dataset name is required")
	}
	var (
		data []byte
		err  error
	)
	for _, ext := range []string{".yaml", ".yml"} {
		data, err = os.ReadFile(filepath.Join(dir, name+ext))
		if err == nil || !errors.Is(err, os.ErrNotExist) {
			break
		}
	}
	if err != nil {
		return Dataset{}, fmt.Errorf("eval: read dataset %q: %w", name, err)
	}
	ds, err := ParseDataset(data)
	if err != nil {
		return Dataset{}, fmt.Errorf("eval: dataset %q: %w", name, err)
	}
	if ds.Name == "" {
		ds.Name = name
	}
	return ds, nil
}

// ParseDataset decodes and validates a YAML dataset.
func ParseDataset(data []byte) (Dataset, error) {
	var ds Dataset
	if err := yaml.Unmarshal(data, &ds); err != nil {
		return Dataset{}, fmt.Errorf("parse yaml: %w", err)
	}
	if len(ds.Examples) == 0 {
		return Dataset{}, errors.New("no examples")
	}
	for i, ex := range ds.Examples {
		if ex.Input == "" {
			return Dataset{}, fmt.Errorf("example %d: input is empty", i)
		}
	}
	return ds, nil
}
