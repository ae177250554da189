/**
 * Copyright 2025 ByteDance Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package chain compiles declarative YAML chain definitions into executable
// prompt pipelines: each step renders a prompt from the accumulated context,
// calls the model, and stores the output under its own key for later steps.
package chain

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Definition is the typed view over a parsed chain document. Step order is
// execution order; there is no reordering and no parallel branches.
type Definition struct {
	Name        string           `yaml:"name"`
	Description string           `yaml:"description,omitempty"`
	Model       *ModelConfig     `yaml:"model,omitempty"`
	Steps       []StepDefinition `yaml:"steps"`
}

// StepDefinition is one render-generate-store unit.
type StepDefinition struct {
	Name           string            `yaml:"name"`
	PromptFile     string            `yaml:"prompt_file"`
	InputVariables []string          `yaml:"input_variables"`
	OutputKey      string            `yaml:"output_key"`
	Snippets       map[string]string `yaml:"snippets,omitempty"`
}

// ModelConfig selects the model shared by every step of a chain. One chain,
// one model instance.
type ModelConfig struct {
	Provider    string   `yaml:"provider"`
	Name        string   `yaml:"name"`
	Temperature *float32 `yaml:"temperature,omitempty"`
	// Timeout is the per-request timeout in seconds.
	Timeout    int    `yaml:"timeout,omitempty"`
	MaxRetries int    `yaml:"max_retries,omitempty"`
	MaxTokens  int    `yaml:"max_tokens,omitempty"`
	BaseURL    string `yaml:"base_url,omitempty"`
}

// ParseDefinition unmarshals and validates a chain document.
func ParseDefinition(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, &DefinitionError{Reason: fmt.Sprintf("malformed YAML: %v", err)}
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// Validate checks the invariants the compiler relies on:
//   - at least one step, each with a prompt file and an output key,
//   - output keys unique across steps,
//   - every input variable of step i is an external input (declared by the
//     first step) or the output key of some step j < i.
//
// Forward or dangling references fail here, before any model call.
func (d *Definition) Validate() error {
	if len(d.Steps) == 0 {
		return &DefinitionError{Chain: d.Name, Reason: "no steps defined"}
	}

	seen := make(map[string]int, len(d.Steps))
	for i, step := range d.Steps {
		label := step.label(i)
		if step.PromptFile == "" {
			return &DefinitionError{Chain: d.Name, Reason: fmt.Sprintf("%s has no prompt_file", label)}
		}
		if step.OutputKey == "" {
			return &DefinitionError{Chain: d.Name, Reason: fmt.Sprintf("%s has no output_key", label)}
		}
		if j, dup := seen[step.OutputKey]; dup {
			return &DefinitionError{
				Chain:  d.Name,
				Reason: fmt.Sprintf("duplicate output_key %q in %s and %s", step.OutputKey, d.Steps[j].label(j), label),
			}
		}
		seen[step.OutputKey] = i
	}

	// The first step can only read caller inputs, so its declaration defines
	// the chain's external-input set.
	available := make(map[string]bool, len(d.Steps[0].InputVariables)+len(d.Steps))
	for _, v := range d.Steps[0].InputVariables {
		available[v] = true
	}
	available[d.Steps[0].OutputKey] = true
	for i, step := range d.Steps[1:] {
		for _, v := range step.InputVariables {
			if !available[v] {
				return &DefinitionError{
					Chain: d.Name,
					Reason: fmt.Sprintf("%s references %q, which is neither an external input nor an earlier step's output_key",
						step.label(i+1), v),
				}
			}
		}
		available[step.OutputKey] = true
	}
	return nil
}

// OutputKeys returns the step output keys in execution order.
func (d *Definition) OutputKeys() []string {
	keys := make([]string, 0, len(d.Steps))
	for _, step := range d.Steps {
		keys = append(keys, step.OutputKey)
	}
	return keys
}

func (s *StepDefinition) label(i int) string {
	if s.Name != "" {
		return fmt.Sprintf("step %q", s.Name)
	}
	return fmt.Sprintf("step %d", i+1)
}
