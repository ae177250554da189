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

package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/cloudwego/promptchain/chain"
	"github.com/cloudwego/promptchain/llm"
)

type staticGenerator struct {
	reply string
}

func (g *staticGenerator) Call(ctx context.Context, input string) (string, error) {
	return g.reply, nil
}

func newTestRegistry(t *testing.T) *chain.Registry {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, chain.ChainsDir), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(root, "prompts"), 0o755); err != nil {
		t.Fatal(err)
	}
	doc := `
name: echo
steps:
  - name: echo
    prompt_file: prompts/echo.md
    input_variables: [text]
    output_key: echoed
`
	if err := os.WriteFile(filepath.Join(root, chain.ChainsDir, "echo.yaml"), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "prompts", "echo.md"), []byte("Echo: {text}"), 0o644); err != nil {
		t.Fatal(err)
	}
	return chain.NewRegistry(chain.RegistryOptions{
		Root: root,
		Factory: func(cfg llm.ModelConfig) (llm.Generator, error) {
			return &staticGenerator{reply: "echoed text"}, nil
		},
	})
}

func sendAndRecv(t *testing.T, request any, stdinWriter *io.PipeWriter, scanner *bufio.Scanner) map[string]any {
	t.Helper()
	requestBytes, err := json.Marshal(request)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := stdinWriter.Write(append(requestBytes, '\n')); err != nil {
		t.Fatal(err)
	}
	if !scanner.Scan() {
		t.Fatal("failed to read response")
	}
	var response map[string]any
	if err := json.Unmarshal(scanner.Bytes(), &response); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return response
}

func TestChainServer(t *testing.T) {
	svr := NewServer(ServerOptions{
		ServerName:    "promptchain",
		ServerVersion: "1.0.0",
		Registry:      newTestRegistry(t),
	})

	stdinReader, stdinWriter := io.Pipe()
	stdoutReader, stdoutWriter := io.Pipe()

	stdioServer := server.NewStdioServer(svr.Server)
	stdioServer.SetErrorLogger(log.New(io.Discard, "", 0))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverErrCh := make(chan error, 1)
	go func() {
		err := stdioServer.Listen(ctx, stdinReader, stdoutWriter)
		if err != nil && err != io.EOF && err != context.Canceled {
			serverErrCh <- err
		}
		stdoutWriter.Close()
		close(serverErrCh)
	}()

	time.Sleep(100 * time.Millisecond)
	scanner := bufio.NewScanner(stdoutReader)

	initRequest := map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "initialize",
		"params": map[string]any{
			"protocolVersion": "2024-11-05",
			"clientInfo": map[string]any{
				"name":    "test-client",
				"version": "1.0.0",
			},
		},
	}
	resp := sendAndRecv(t, initRequest, stdinWriter, scanner)
	if resp["error"] != nil {
		t.Fatalf("initialize failed: %v", resp["error"])
	}

	listRequest := map[string]any{
		"jsonrpc": "2.0",
		"id":      2,
		"method":  "tools/call",
		"params": map[string]any{
			"name":      ToolListChains,
			"arguments": map[string]any{},
		},
	}
	resp = sendAndRecv(t, listRequest, stdinWriter, scanner)
	if text := toolText(t, resp); text != `{"chains":["echo"]}` {
		t.Errorf("list_chains: got %s", text)
	}

	invokeRequest := map[string]any{
		"jsonrpc": "2.0",
		"id":      3,
		"method":  "tools/call",
		"params": map[string]any{
			"name": ToolInvokeChain,
			"arguments": map[string]any{
				"chain":  "echo",
				"inputs": map[string]any{"text": "hello"},
			},
		},
	}
	resp = sendAndRecv(t, invokeRequest, stdinWriter, scanner)
	if text := toolText(t, resp); text != `{"outputs":{"echoed":"echoed text"}}` {
		t.Errorf("invoke_chain: got %s", text)
	}

	cancel()
	stdinWriter.Close()
	if err := <-serverErrCh; err != nil {
		t.Errorf("unexpected server error: %v", err)
	}
}

// toolText digs the text content out of a tools/call response.
func toolText(t *testing.T, resp map[string]any) string {
	t.Helper()
	result, ok := resp["result"].(map[string]any)
	if !ok {
		t.Fatalf("no result in response: %v", resp)
	}
	content, ok := result["content"].([]any)
	if !ok || len(content) == 0 {
		t.Fatalf("no content in result: %v", result)
	}
	first, ok := content[0].(map[string]any)
	if !ok {
		t.Fatalf("unexpected content shape: %v", content)
	}
	text, _ := first["text"].(string)
	return text
}
