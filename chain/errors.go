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
	"fmt"

	"github.com/pkg/errors"
)

// ErrMissingInput marks a declared input variable absent from the invocation
// context. Compile-time validation guarantees this can only happen when the
// caller omits one of the chain's external inputs.
var ErrMissingInput = errors.New("missing input variable")

// DefinitionError reports a malformed or inconsistent chain definition.
// Fatal: the chain is never compiled, never cached, never retried.
type DefinitionError struct {
	Chain  string
	Reason string
}

func (e *DefinitionError) Error() string {
	if e.Chain == "" {
		return fmt.Sprintf("invalid chain definition: %s", e.Reason)
	}
	return fmt.Sprintf("invalid chain definition %q: %s", e.Chain, e.Reason)
}

// ResourceNotFoundError reports a prompt or snippet body that could not be
// loaded at compile time.
type ResourceNotFoundError struct {
	Ref string
	Err error
}

func (e *ResourceNotFoundError) Error() string {
	return fmt.Sprintf("resource %q not found: %v", e.Ref, e.Err)
}

func (e *ResourceNotFoundError) Unwrap() error { return e.Err }

// PipelineNotFoundError reports an unknown chain name at the registry.
type PipelineNotFoundError struct {
	Name string
}

func (e *PipelineNotFoundError) Error() string {
	return fmt.Sprintf("chain %q not found", e.Name)
}
