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

// Package mcp exposes the chain registry over the Model Context Protocol so
// MCP clients can list and invoke chains without going through the envelope
// transport.
package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/cloudwego/promptchain/chain"
)

const (
	ToolListChains  = "list_chains"
	DescListChains  = "List the names of all prompt chains available in this registry."
	ToolInvokeChain = "invoke_chain"
	DescInvokeChain = "Invoke a prompt chain by name with a flat string-to-string input mapping; returns the chain's output mapping."
)

var SchemaListChains = json.RawMessage(`{
	"type": "object",
	"properties": {}
}`)

var SchemaInvokeChain = json.RawMessage(`{
	"type": "object",
	"properties": {
		"chain": {
			"type": "string",
			"description": "Name of the chain to invoke."
		},
		"inputs": {
			"type": "object",
			"additionalProperties": {"type": "string"},
			"description": "Input variables for the chain's first step."
		}
	},
	"required": ["chain", "inputs"]
}`)

type Tool struct {
	mcp.Tool
	Handler server.ToolHandlerFunc
}

func NewTool[R any, T any](name string, desc string, schema json.RawMessage, handler func(ctx context.Context, req R) (*T, error)) Tool {
	return Tool{
		Tool: mcp.NewToolWithRawSchema(name, desc, schema),
		Handler: func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var req R
			if err := request.BindArguments(&req); err != nil {
				return nil, err
			}
			var final string
			var isError bool
			if resp, err := handler(ctx, req); err != nil {
				isError = true
				final = err.Error()
			} else if js, err := json.Marshal(resp); err != nil {
				isError = true
				final = err.Error()
			} else {
				final = string(js)
			}
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.NewTextContent(final),
				},
				IsError: isError,
			}, nil
		},
	}
}

type ServerOptions struct {
	ServerName    string
	ServerVersion string
	Registry      *chain.Registry
}

type Server struct {
	Server   *server.MCPServer
	registry *chain.Registry
}

func NewServer(opts ServerOptions) *Server {
	s := &Server{
		Server:   server.NewMCPServer(opts.ServerName, opts.ServerVersion),
		registry: opts.Registry,
	}
	for _, t := range s.tools() {
		s.Server.AddTool(t.Tool, t.Handler)
	}
	return s
}

func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.Server)
}

type listChainsRequest struct{}

type listChainsResponse struct {
	Chains []string `json:"chains"`
}

type invokeChainRequest struct {
	Chain  string            `json:"chain"`
	Inputs map[string]string `json:"inputs"`
}

type invokeChainResponse struct {
	Outputs map[string]string `json:"outputs"`
}

func (s *Server) tools() []Tool {
	return []Tool{
		NewTool(ToolListChains, DescListChains, SchemaListChains, s.listChains),
		NewTool(ToolInvokeChain, DescInvokeChain, SchemaInvokeChain, s.invokeChain),
	}
}

func (s *Server) listChains(ctx context.Context, req listChainsRequest) (*listChainsResponse, error) {
	names, err := s.registry.List()
	if err != nil {
		return nil, err
	}
	return &listChainsResponse{Chains: names}, nil
}

func (s *Server) invokeChain(ctx context.Context, req invokeChainRequest) (*invokeChainResponse, error) {
	c, err := s.registry.Resolve(req.Chain)
	if err != nil {
		return nil, err
	}
	outputs, err := c.Invoke(ctx, req.Inputs)
	if err != nil {
		return nil, err
	}
	return &invokeChainResponse{Outputs: outputs}, nil
}
