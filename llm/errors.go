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

package llm

import "fmt"

// UnsupportedProviderError reports a provider string outside the closed
// ModelType set. Always a configuration mistake, never retried.
type UnsupportedProviderError struct {
	Provider string
}

func (e *UnsupportedProviderError) Error() string {
	return fmt.Sprintf("unsupported model provider %q", e.Provider)
}

// CredentialError reports a missing provider secret. Absence is a hard
// failure, not a retryable condition.
type CredentialError struct {
	Provider ModelType
	EnvVar   string
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("missing credential for provider %q: environment variable %s is not set", e.Provider, e.EnvVar)
}

// InvocationError wraps a provider call failure after the adapter's own
// retries are exhausted. Callers treat it as terminal for the current run.
type InvocationError struct {
	Model    string
	Attempts int
	Err      error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("model %s invocation failed after %d attempt(s): %v", e.Model, e.Attempts, e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }
