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

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudwego/promptchain/chain"
	"github.com/cloudwego/promptchain/llm"
)

type scriptedGenerator struct {
	replies []string
	err     error
}

func (g *scriptedGenerator) Call(ctx context.Context, input string) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	reply := g.replies[0]
	g.replies = g.replies[1:]
	return reply, nil
}

func newTestHandler(t *testing.T, gen llm.Generator) (*Handler, string) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, chain.ChainsDir), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "prompts"), 0o755))

	doc := `
name: summarize_analyze
steps:
  - name: summarize
    prompt_file: prompts/summarize.md
    input_variables: [text]
    output_key: summary
  - name: analyze
    prompt_file: prompts/analyze.md
    input_variables: [summary]
    output_key: analysis
`
	require.NoError(t, os.WriteFile(filepath.Join(root, chain.ChainsDir, "summarize_analyze.yaml"), []byte(doc), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "prompts", "summarize.md"), []byte("Summarize: {text}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "prompts", "analyze.md"), []byte("Analyze tone of: {summary}"), 0o644))

	reg := chain.NewRegistry(chain.RegistryOptions{
		Root:    root,
		Factory: func(cfg llm.ModelConfig) (llm.Generator, error) { return gen, nil },
	})
	return New(reg), root
}

func decodeBody(t *testing.T, resp Response) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &body))
	return body
}

func TestHandle_Success(t *testing.T) {
	h, _ := newTestHandler(t, &scriptedGenerator{replies: []string{"S", "A"}})
	resp := h.Handle(context.Background(), Request{
		ChainName: "summarize_analyze",
		Inputs:    map[string]string{"text": "long article..."},
	})

	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, map[string]string{"summary": "S", "analysis": "A"}, decodeBody(t, resp))
}

func TestHandle_MissingChainName(t *testing.T) {
	h, _ := newTestHandler(t, &scriptedGenerator{})
	resp := h.Handle(context.Background(), Request{Inputs: map[string]string{"text": "x"}})

	assert.Equal(t, 400, resp.StatusCode)
	assert.Equal(t, KindBadRequest, decodeBody(t, resp)["kind"])
}

func TestHandle_EmptyInputs(t *testing.T) {
	h, _ := newTestHandler(t, &scriptedGenerator{})
	resp := h.Handle(context.Background(), Request{ChainName: "summarize_analyze"})

	assert.Equal(t, 400, resp.StatusCode)
	assert.Equal(t, KindBadRequest, decodeBody(t, resp)["kind"])
}

func TestHandle_UnknownChain(t *testing.T) {
	h, _ := newTestHandler(t, &scriptedGenerator{})
	resp := h.Handle(context.Background(), Request{
		ChainName: "nonexistent",
		Inputs:    map[string]string{"text": "x"},
	})

	assert.Equal(t, 404, resp.StatusCode)
	assert.Equal(t, KindPipelineNotFound, decodeBody(t, resp)["kind"])
}

func TestHandle_InvocationFailure(t *testing.T) {
	gen := &scriptedGenerator{err: &llm.InvocationError{Model: "mock", Attempts: 3, Err: errors.New("rate limit")}}
	h, _ := newTestHandler(t, gen)
	resp := h.Handle(context.Background(), Request{
		ChainName: "summarize_analyze",
		Inputs:    map[string]string{"text": "x"},
	})

	assert.Equal(t, 500, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, KindInvocation, body["kind"])
	assert.Contains(t, body["error"], "rate limit")
}

func TestHandle_DefinitionError(t *testing.T) {
	h, root := newTestHandler(t, &scriptedGenerator{})
	doc := `
name: broken
steps:
  - prompt_file: prompts/summarize.md
    input_variables: [text]
    output_key: summary
  - prompt_file: prompts/analyze.md
    input_variables: [summary]
    output_key: summary
`
	require.NoError(t, os.WriteFile(filepath.Join(root, chain.ChainsDir, "broken.yaml"), []byte(doc), 0o644))

	resp := h.Handle(context.Background(), Request{
		ChainName: "broken",
		Inputs:    map[string]string{"text": "x"},
	})

	// A broken definition is the service's fault, not the caller's.
	assert.Equal(t, 500, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, KindDefinition, body["kind"])
	assert.Contains(t, body["error"], "output_key")
}

func TestHandle_MissingPromptResource(t *testing.T) {
	h, root := newTestHandler(t, &scriptedGenerator{})
	doc := `
name: no_prompt
steps:
  - prompt_file: prompts/absent.md
    input_variables: [text]
    output_key: out
`
	require.NoError(t, os.WriteFile(filepath.Join(root, chain.ChainsDir, "no_prompt.yaml"), []byte(doc), 0o644))

	resp := h.Handle(context.Background(), Request{
		ChainName: "no_prompt",
		Inputs:    map[string]string{"text": "x"},
	})

	assert.Equal(t, 500, resp.StatusCode)
	assert.Equal(t, KindResourceNotFound, decodeBody(t, resp)["kind"])
}

func TestHandle_MissingInputVariable(t *testing.T) {
	h, _ := newTestHandler(t, &scriptedGenerator{replies: []string{"S", "A"}})
	resp := h.Handle(context.Background(), Request{
		ChainName: "summarize_analyze",
		Inputs:    map[string]string{"wrong_key": "x"},
	})

	assert.Equal(t, 400, resp.StatusCode)
	assert.Equal(t, KindBadRequest, decodeBody(t, resp)["kind"])
}
