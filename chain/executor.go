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
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/cloudwego/promptchain/llm"
	"github.com/cloudwego/promptchain/llm/log"
)

// originalInputKey preserves the caller's input set inside the execution
// context for the lifetime of one Invoke. It is stripped before the result
// is returned and must never leak.
const originalInputKey = "original_input"

// Chain is a compiled pipeline: the ordered bound steps plus the one model
// generator they share. Immutable after Compile and safe for concurrent
// Invoke calls; all per-invocation state lives in the context map allocated
// inside Invoke.
type Chain struct {
	name  string
	gen   llm.Generator
	steps []boundStep
}

// Name returns the chain's declared name.
func (c *Chain) Name() string { return c.name }

// Invoke runs every step in declared order over one accumulating context.
// Step k sees the caller inputs plus the outputs of steps 1..k-1; the result
// holds exactly the step output keys. Invoke is atomic: on any step failure
// the partial context is discarded and the error returned. Nothing survives
// between calls.
func (c *Chain) Invoke(ctx context.Context, inputs map[string]string) (map[string]string, error) {
	ec := make(map[string]string, len(inputs)+len(c.steps)+1)
	for k, v := range inputs {
		ec[k] = v
	}
	seed, err := json.Marshal(inputs)
	if err != nil {
		return nil, errors.Wrapf(err, "chain %q: seed context", c.name)
	}
	ec[originalInputKey] = string(seed)

	for _, step := range c.steps {
		prompt, err := step.template.Render(step.inputVars, ec)
		if err != nil {
			return nil, errors.Wrapf(err, "chain %q: render %s", c.name, step.name)
		}
		log.Debug("chain %q: %s prompt rendered (%d bytes)", c.name, step.name, len(prompt))
		out, err := c.gen.Call(ctx, prompt)
		if err != nil {
			return nil, errors.Wrapf(err, "chain %q: %s", c.name, step.name)
		}
		ec[step.outputKey] = out
	}

	delete(ec, originalInputKey)
	result := make(map[string]string, len(c.steps))
	for _, step := range c.steps {
		result[step.outputKey] = ec[step.outputKey]
	}
	return result, nil
}
