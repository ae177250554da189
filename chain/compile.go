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

package chain

import (
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/cloudwego/promptchain/llm"
)

// Chain-level model defaults, matching the original service's singleton
// ChatOpenAI(model="gpt-4o", temperature=0.7).
const (
	DefaultProvider  = "openai"
	DefaultModelName = "gpt-4o"
)

var defaultTemperature float32 = 0.7

// GeneratorFactory builds the model generator shared by all steps of one
// chain. Tests swap in a mock; production uses llm.NewGenerator.
type GeneratorFactory func(cfg llm.ModelConfig) (llm.Generator, error)

// boundStep is a step with its prompt template fully resolved: snippet
// bodies are substituted at compile time, so only the declared input
// variables remain to be rendered per invocation.
type boundStep struct {
	name      string
	template  Template
	inputVars []string
	outputKey string
}

// Compile turns a validated definition into an executable Chain. All prompt
// and snippet resources are loaded here, once; a compile error means nothing
// is cached and no model is ever called.
func Compile(def *Definition, res Resolver, factory GeneratorFactory) (*Chain, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	if factory == nil {
		factory = llm.NewGenerator
	}

	gen, err := factory(modelConfig(def))
	if err != nil {
		return nil, errors.Wrapf(err, "chain %q", def.Name)
	}

	steps := make([]boundStep, 0, len(def.Steps))
	for i, sd := range def.Steps {
		body, err := res.Load(sd.PromptFile)
		if err != nil {
			return nil, errors.Wrapf(err, "chain %q: %s", def.Name, sd.label(i))
		}
		// Snippets are fixed text: substitute them now so each invocation
		// only renders the input variables.
		for _, key := range sortedKeys(sd.Snippets) {
			snippet, err := res.Load(sd.Snippets[key])
			if err != nil {
				return nil, errors.Wrapf(err, "chain %q: %s snippet %q", def.Name, sd.label(i), key)
			}
			body = strings.ReplaceAll(body, placeholder(key), snippet)
		}
		steps = append(steps, boundStep{
			name:      sd.label(i),
			template:  Template(body),
			inputVars: sd.InputVariables,
			outputKey: sd.OutputKey,
		})
	}

	return &Chain{
		name:  def.Name,
		gen:   gen,
		steps: steps,
	}, nil
}

// modelConfig maps the definition's model block onto the adapter config,
// applying chain-level defaults when the block is absent.
func modelConfig(def *Definition) llm.ModelConfig {
	m := def.Model
	if m == nil {
		m = &ModelConfig{}
	}
	provider := m.Provider
	if provider == "" {
		provider = DefaultProvider
	}
	name := m.Name
	if name == "" {
		name = DefaultModelName
	}
	temperature := m.Temperature
	if temperature == nil {
		temperature = &defaultTemperature
	}
	return llm.ModelConfig{
		APIType:     llm.NewModelType(provider),
		ModelName:   name,
		Temperature: temperature,
		Timeout:     time.Duration(m.Timeout) * time.Second,
		Retries:     m.MaxRetries,
		MaxTokens:   m.MaxTokens,
		BaseURL:     m.BaseURL,
	}
}

// sortedKeys keeps snippet substitution order deterministic.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
