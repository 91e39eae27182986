// Package scene loads the YAML scene scripts driven by recompose-sim.
//
// A scene declares an initial keyed item list plus a sequence of steps;
// each step replaces the list, and the simulator reports the effects
// the engine derives from the change.
package scene

import (
	"fmt"
	"os"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

// Scene is one simulation script.
type Scene struct {
	// Version is the scene format version, a semver string with major v1.
	Version string `yaml:"version"`
	// Name labels the scene in log output.
	Name string `yaml:"name,omitempty"`
	// Items is the initial item list.
	Items []Item `yaml:"items"`
	// Steps are applied one per simulation step, replacing the list.
	Steps []Step `yaml:"steps"`
}

// Item is one keyed entry in the simulated list.
type Item struct {
	Key   string `yaml:"key"`
	Label string `yaml:"label"`
}

// Step is one scripted list replacement.
type Step struct {
	// Name labels the step in log output.
	Name string `yaml:"name,omitempty"`
	// Items is the full item list after this step.
	Items []Item `yaml:"items"`
}

// Load reads and validates a scene file.
func Load(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene: %w", err)
	}

	var sc Scene
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to parse scene: %w", err)
	}
	if err := sc.validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

func (sc *Scene) validate() error {
	if !semver.IsValid(sc.Version) {
		return fmt.Errorf("scene version %q is not a valid semver", sc.Version)
	}
	if major := semver.Major(sc.Version); major != "v1" {
		return fmt.Errorf("unsupported scene version %s (want v1)", sc.Version)
	}
	if err := validateItems("items", sc.Items); err != nil {
		return err
	}
	for i, step := range sc.Steps {
		if err := validateItems(fmt.Sprintf("steps[%d]", i), step.Items); err != nil {
			return err
		}
	}
	return nil
}

func validateItems(where string, items []Item) error {
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		if item.Key == "" {
			return fmt.Errorf("%s: item %q has no key", where, item.Label)
		}
		if seen[item.Key] {
			return fmt.Errorf("%s: duplicate key %q", where, item.Key)
		}
		seen[item.Key] = true
	}
	return nil
}
