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
	"errors"
	"strings"
	"testing"
)

const sampleDoc = `
name: summarize_analyze
description: "summarize a text, then analyze the tone of the summary"
model:
  provider: openai
  name: gpt-4o
  temperature: 0.7
steps:
  - name: summarize
    prompt_file: prompts/summarize.md
    input_variables: [text]
    output_key: summary
    snippets:
      style_snippet: snippets/style.md
  - name: analyze
    prompt_file: prompts/analyze.md
    input_variables: [summary]
    output_key: analysis
`

func TestParseDefinition(t *testing.T) {
	def, err := ParseDefinition([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("ParseDefinition: %v", err)
	}
	if def.Name != "summarize_analyze" {
		t.Errorf("name: got %q", def.Name)
	}
	if len(def.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(def.Steps))
	}
	if def.Model == nil || def.Model.Provider != "openai" {
		t.Errorf("model block not parsed: %+v", def.Model)
	}
	if def.Steps[0].Snippets["style_snippet"] != "snippets/style.md" {
		t.Errorf("snippets: got %v", def.Steps[0].Snippets)
	}
	if got := def.OutputKeys(); len(got) != 2 || got[0] != "summary" || got[1] != "analysis" {
		t.Errorf("output keys: got %v", got)
	}
}

func TestParseDefinition_Malformed(t *testing.T) {
	_, err := ParseDefinition([]byte("steps: [not: [valid"))
	var de *DefinitionError
	if !errors.As(err, &de) {
		t.Fatalf("expected DefinitionError, got %v", err)
	}
}

func TestValidate_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		def    Definition
		reason string
	}{
		{
			name:   "no steps",
			def:    Definition{Name: "empty"},
			reason: "no steps",
		},
		{
			name: "missing prompt file",
			def: Definition{Name: "x", Steps: []StepDefinition{
				{OutputKey: "out"},
			}},
			reason: "no prompt_file",
		},
		{
			name: "missing output key",
			def: Definition{Name: "x", Steps: []StepDefinition{
				{PromptFile: "p.md"},
			}},
			reason: "no output_key",
		},
		{
			name: "duplicate output key",
			def: Definition{Name: "x", Steps: []StepDefinition{
				{PromptFile: "a.md", OutputKey: "out"},
				{PromptFile: "b.md", InputVariables: []string{"out"}, OutputKey: "out"},
			}},
			reason: "duplicate output_key",
		},
		{
			name: "unknown input variable",
			def: Definition{Name: "x", Steps: []StepDefinition{
				{PromptFile: "a.md", InputVariables: []string{"text"}, OutputKey: "summary"},
				{PromptFile: "b.md", InputVariables: []string{"nonexistent"}, OutputKey: "analysis"},
			}},
			reason: "neither an external input",
		},
		{
			name: "forward reference",
			def: Definition{Name: "x", Steps: []StepDefinition{
				{PromptFile: "a.md", InputVariables: []string{"text"}, OutputKey: "first"},
				{PromptFile: "b.md", InputVariables: []string{"third"}, OutputKey: "second"},
				{PromptFile: "c.md", InputVariables: []string{"second"}, OutputKey: "third"},
			}},
			reason: "neither an external input",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.def.Validate()
			var de *DefinitionError
			if !errors.As(err, &de) {
				t.Fatalf("expected DefinitionError, got %v", err)
			}
			if !strings.Contains(de.Reason, tc.reason) {
				t.Errorf("reason %q does not mention %q", de.Reason, tc.reason)
			}
		})
	}
}

func TestValidate_LaterStepMayUseExternalInput(t *testing.T) {
	def := Definition{Name: "x", Steps: []StepDefinition{
		{PromptFile: "a.md", InputVariables: []string{"text", "audience"}, OutputKey: "summary"},
		{PromptFile: "b.md", InputVariables: []string{"summary", "audience"}, OutputKey: "analysis"},
	}}
	if err := def.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}
