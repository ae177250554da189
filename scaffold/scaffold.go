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

// Package scaffold generates chain definition, prompt, and snippet files and
// walks the author through editing them. It is the only component that ever
// creates resources; the runtime resolver stays read-only.
package scaffold

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"

	"github.com/cloudwego/promptchain/chain"
)

const definitionTemplate = `name: %[1]s
description: "Describe what this chain does"
steps:
  - name: step1
    prompt_file: prompts/%[1]s_step1.md
    input_variables: [input1]
    output_key: step1_output

    snippets:
      style_snippet: snippets/style.md
      # tone_snippet: snippets/tone.md

  # Add a second step if the chain needs one:
  # - name: step2
  #   prompt_file: prompts/%[1]s_step2.md
  #   input_variables: [step1_output]
  #   output_key: step2_output
`

const snippetPlaceholder = "Replace this text with the fragment to inject.\n"

// Wizard scaffolds one chain under Root.
type Wizard struct {
	Root   string
	Editor string // editor command; resolved from $EDITOR when empty
	Force  bool   // overwrite an existing definition without asking
	In     io.Reader
	Out    io.Writer
}

// Run writes the definition template, hands it to the editor, then creates
// and opens every referenced prompt and snippet file that does not exist
// yet. Existing files are kept as-is.
func (w *Wizard) Run(name string) error {
	if name == "" {
		return errors.New("chain name must not be empty")
	}
	defPath := filepath.Join(w.Root, chain.ChainsDir, name+".yaml")
	if _, err := os.Stat(defPath); err == nil && !w.Force {
		return fmt.Errorf("%s already exists (use -force to overwrite)", defPath)
	}

	if err := writeFile(defPath, fmt.Sprintf(definitionTemplate, name)); err != nil {
		return err
	}
	fmt.Fprintf(w.Out, "Step 1: edit the chain definition %s\n", defPath)
	if err := w.edit(defPath); err != nil {
		return err
	}
	w.waitEnter("Press Enter when the definition is ready...")

	data, err := os.ReadFile(defPath)
	if err != nil {
		return errors.Wrap(err, "re-read definition")
	}
	def, err := chain.ParseDefinition(data)
	if err != nil {
		return err
	}

	created, err := w.materialize(def)
	if err != nil {
		return err
	}
	for i, path := range created {
		fmt.Fprintf(w.Out, "Step %d: edit %s\n", i+2, path)
		if err := w.edit(path); err != nil {
			return err
		}
		if i < len(created)-1 {
			w.waitEnter("Press Enter when this file is ready...")
		}
	}

	fmt.Fprintf(w.Out, "Finished generating chain %q.\n", name)
	return nil
}

// materialize creates every missing snippet and prompt file referenced by
// def. A prompt body starts as one {placeholder} line per snippet key and
// input variable, so the author sees exactly what will be substituted.
func (w *Wizard) materialize(def *chain.Definition) ([]string, error) {
	var created []string

	for _, step := range def.Steps {
		for _, key := range sortedKeys(step.Snippets) {
			ref := step.Snippets[key]
			path := filepath.Join(w.Root, filepath.FromSlash(ref))
			ok, err := ensureFile(path, snippetPlaceholder)
			if err != nil {
				return nil, err
			}
			if ok {
				fmt.Fprintf(w.Out, "Created snippet file: %s\n", ref)
				created = append(created, path)
			}
		}
	}

	for _, step := range def.Steps {
		path := filepath.Join(w.Root, filepath.FromSlash(step.PromptFile))
		ok, err := ensureFile(path, promptBody(step))
		if err != nil {
			return nil, err
		}
		if ok {
			fmt.Fprintf(w.Out, "Created prompt file: %s\n", step.PromptFile)
			created = append(created, path)
		}
	}
	return created, nil
}

func promptBody(step chain.StepDefinition) string {
	var body string
	if len(step.Snippets) == 0 {
		body += "Write the prompt here.\n"
	} else {
		for _, key := range sortedKeys(step.Snippets) {
			body += "{" + key + "}\n"
		}
	}
	body += "\n"
	if len(step.InputVariables) == 0 {
		body += "No input variables declared.\n"
	} else {
		for _, v := range step.InputVariables {
			body += "{" + v + "}\n"
		}
	}
	return body
}

// ensureFile writes content to path unless it already exists. Reports
// whether the file was created.
func ensureFile(path, content string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := writeFile(path, content); err != nil {
		return false, err
	}
	return true, nil
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "create directory for %s", path)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}

func (w *Wizard) edit(path string) error {
	editor := w.Editor
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		editor = "code"
	}
	cmd := exec.Command(editor, path)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return errors.Wrapf(cmd.Run(), "launch editor %q", editor)
}

func (w *Wizard) waitEnter(prompt string) {
	if w.In == nil {
		return
	}
	fmt.Fprintln(w.Out, prompt)
	reader := bufio.NewReader(w.In)
	_, _ = reader.ReadString('\n')
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
