package scoring

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// weightsFile is the on-disk shape of a weight override file.
type weightsFile struct {
	Weights Weights `yaml:"weights"`
}

// LoadWeights reads criterion-weight overrides from a YAML file. A missing
// file is not an error: deployments that never tune weights simply get the
// defaults. An unparseable or invalid file is an error, because silently
// scoring with wrong weights corrupts the whole corpus triage.
func LoadWeights(path string) (Weights, error) {
	if path == "" {
		return DefaultWeights(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultWeights(), nil
		}
		return Weights{}, fmt.Errorf("failed to read weights file: %w", err)
	}

	var file weightsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Weights{}, fmt.Errorf("failed to parse weights file %s: %w", path, err)
	}

	if err := file.Weights.Validate(); err != nil {
		return Weights{}, fmt.Errorf("invalid weights in %s: %w", path, err)
	}
	return file.Weights, nil
}
