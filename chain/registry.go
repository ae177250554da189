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
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"github.com/cloudwego/promptchain/llm/log"
)

// ChainsDir is the directory (under the registry root) holding one
// <name>.yaml definition per chain.
const ChainsDir = "chains"

// RegistryOptions configures a Registry. Root is the project directory:
// definitions live in Root/chains, prompt and snippet references resolve
// relative to Root. Resolver and Factory default to DirResolver and
// llm.NewGenerator.
type RegistryOptions struct {
	Root     string
	Resolver Resolver
	Factory  GeneratorFactory
}

// Registry maps chain names to compiled chains, compiling each name at most
// once per process. Compilation failures are not cached; a later Resolve
// retries. Cached entries survive until Invalidate or process exit —
// rewriting a definition file has no effect on an already-resolved name
// unless the file watcher is running.
type Registry struct {
	root     string
	resolver Resolver
	factory  GeneratorFactory

	mu     sync.RWMutex
	chains map[string]*Chain
	// generation is bumped by every invalidation; an in-flight compilation
	// that started before the bump must not repopulate the cache.
	generation uint64
	group      singleflight.Group
}

func NewRegistry(opts RegistryOptions) *Registry {
	resolver := opts.Resolver
	if resolver == nil {
		resolver = NewDirResolver(opts.Root)
	}
	return &Registry{
		root:     opts.Root,
		resolver: resolver,
		factory:  opts.Factory,
		chains:   make(map[string]*Chain),
	}
}

// Resolve returns the compiled chain for name, compiling on first use.
// Concurrent callers for the same cold name share a single compilation and
// receive the same instance; cached reads take only the read lock.
func (r *Registry) Resolve(name string) (*Chain, error) {
	r.mu.RLock()
	c := r.chains[name]
	r.mu.RUnlock()
	if c != nil {
		return c, nil
	}

	v, err, _ := r.group.Do(name, func() (any, error) {
		// A previous flight may have populated the cache between the
		// lock-free miss and entering the group.
		r.mu.RLock()
		c := r.chains[name]
		gen := r.generation
		r.mu.RUnlock()
		if c != nil {
			return c, nil
		}

		c, err := r.compile(name)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		// An Invalidate that landed while we were compiling wins: the
		// caller still gets this chain, but the next Resolve recompiles.
		if r.generation == gen {
			r.chains[name] = c
		}
		r.mu.Unlock()
		log.Info("compiled chain %q (%d steps)", name, len(c.steps))
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Chain), nil
}

func (r *Registry) compile(name string) (*Chain, error) {
	data, err := os.ReadFile(r.definitionPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &PipelineNotFoundError{Name: name}
		}
		return nil, errors.Wrapf(err, "read definition for chain %q", name)
	}
	def, err := ParseDefinition(data)
	if err != nil {
		return nil, err
	}
	return Compile(def, r.resolver, r.factory)
}

// Invalidate drops the cached chain for name, if any. The next Resolve
// recompiles from the current definition file.
func (r *Registry) Invalidate(name string) {
	r.mu.Lock()
	delete(r.chains, name)
	r.generation++
	r.mu.Unlock()
}

// InvalidateAll drops every cached chain.
func (r *Registry) InvalidateAll() {
	r.mu.Lock()
	r.chains = make(map[string]*Chain)
	r.generation++
	r.mu.Unlock()
}

// List returns the names of all chains with a definition file, compiled or
// not, in lexical order.
func (r *Registry) List() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(r.root, ChainsDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "list chain definitions")
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	return names, nil
}

// Watch invalidates cache entries whose definition file changes on disk, so
// edits take effect without a restart. It blocks until ctx is done or the
// watcher fails. Invoke callers holding an already-resolved *Chain keep
// using the old compilation; only subsequent Resolve calls see the new one.
func (r *Registry) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create definition watcher")
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Join(r.root, ChainsDir)); err != nil {
		return errors.Wrap(err, "watch chain definitions")
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(event.Name, ".yaml") {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			name := strings.TrimSuffix(filepath.Base(event.Name), ".yaml")
			log.Info("definition for chain %q changed (%s), invalidating", name, event.Op)
			r.Invalidate(name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("definition watcher: %v", err)
		}
	}
}

func (r *Registry) definitionPath(name string) string {
	return filepath.Join(r.root, ChainsDir, name+".yaml")
}
