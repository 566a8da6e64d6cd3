package workflow

import (
	"errors"
	"fmt"
	"io"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/dotsetlabs/bellwether/internal/scenario"
)

// argMappingPattern is the exact shape §6 requires for every argMapping
// value: a reference into a previously recorded step's result.
var argMappingPattern = regexp.MustCompile(`^\$steps\[\d+\]\.result\.[A-Za-z0-9_.\[\]]+$`)

type yamlAssertion struct {
	Path      string `yaml:"path"`
	Condition string `yaml:"condition"`
	Value     any    `yaml:"value"`
	Message   string `yaml:"message"`
}

type yamlStep struct {
	Tool        string            `yaml:"tool"`
	Description string            `yaml:"description"`
	Args        map[string]any    `yaml:"args"`
	ArgMapping  map[string]string `yaml:"argMapping"`
	Optional    bool              `yaml:"optional"`
	Assertions  []yamlAssertion   `yaml:"assertions"`
}

type yamlDefinition struct {
	ID              string     `yaml:"id"`
	Name            string     `yaml:"name"`
	Description     string     `yaml:"description"`
	ExpectedOutcome string     `yaml:"expectedOutcome"`
	Steps           []yamlStep `yaml:"steps"`
}

// LoadAll parses a single- or multi-document YAML workflow file (§6) into
// Definitions, validating each document's shape as it goes.
func LoadAll(r io.Reader) ([]Definition, error) {
	dec := yaml.NewDecoder(r)
	var defs []Definition
	for {
		var doc yamlDefinition
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("workflow: parse yaml document: %w", err)
		}
		def, err := toDefinition(doc)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func toDefinition(doc yamlDefinition) (Definition, error) {
	if doc.ID == "" {
		return Definition{}, errors.New("workflow: document missing required \"id\"")
	}
	if len(doc.Steps) == 0 {
		return Definition{}, fmt.Errorf("workflow %q: must have at least one step", doc.ID)
	}

	steps := make([]Step, len(doc.Steps))
	for i, ys := range doc.Steps {
		if ys.Tool == "" {
			return Definition{}, fmt.Errorf("workflow %q: step %d missing required \"tool\"", doc.ID, i)
		}
		for key, ref := range ys.ArgMapping {
			if !argMappingPattern.MatchString(ref) {
				return Definition{}, fmt.Errorf("workflow %q: step %d argMapping[%q] = %q does not match the required $steps[i].result.<path> shape", doc.ID, i, key, ref)
			}
		}
		assertions := make([]scenario.Assertion, len(ys.Assertions))
		for j, ya := range ys.Assertions {
			assertions[j] = scenario.Assertion{
				Path:      ya.Path,
				Condition: scenario.Condition(ya.Condition),
				Value:     ya.Value,
				Message:   ya.Message,
			}
		}
		steps[i] = Step{
			Tool:        ys.Tool,
			Description: ys.Description,
			Args:        ys.Args,
			ArgMapping:  ys.ArgMapping,
			Optional:    ys.Optional,
			Assertions:  assertions,
		}
	}

	return Definition{
		ID:              doc.ID,
		Name:            doc.Name,
		Description:     doc.Description,
		ExpectedOutcome: doc.ExpectedOutcome,
		Steps:           steps,
	}, nil
}
