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

import "strings"

// Template is a prompt body with {name} placeholders. Rendering is plain
// substitution: no conditionals, no loops, no escaping.
type Template string

// Render substitutes each name in vars with its value from values. Every
// name must be present: the chain contract is that a declared variable is
// always bound by the time its step runs.
func (t Template) Render(vars []string, values map[string]string) (string, error) {
	if len(vars) == 0 {
		return string(t), nil
	}
	pairs := make([]string, 0, 2*len(vars))
	for _, v := range vars {
		value, ok := values[v]
		if !ok {
			return "", &missingInputError{variable: v}
		}
		pairs = append(pairs, placeholder(v), value)
	}
	return strings.NewReplacer(pairs...).Replace(string(t)), nil
}

func placeholder(name string) string {
	return "{" + name + "}"
}

type missingInputError struct {
	variable string
}

func (e *missingInputError) Error() string {
	return "missing input variable " + e.variable
}

func (e *missingInputError) Unwrap() error { return ErrMissingInput }
