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
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Resolver loads prompt and snippet bodies by reference. Strictly read-only:
// creating missing resources is the scaffolder's business, never the
// compiler's.
type Resolver interface {
	Load(ref string) (string, error)
}

// DirResolver resolves references as slash-separated paths relative to a
// root directory.
type DirResolver struct {
	Root string
}

func NewDirResolver(root string) *DirResolver {
	return &DirResolver{Root: root}
}

func (r *DirResolver) Load(ref string) (string, error) {
	path := filepath.Join(r.Root, filepath.FromSlash(ref))
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &ResourceNotFoundError{Ref: ref, Err: err}
		}
		return "", errors.Wrapf(err, "load resource %q", ref)
	}
	return string(data), nil
}
