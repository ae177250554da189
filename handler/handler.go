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

// Package handler is the request/response envelope around the chain
// registry: a transport-agnostic entry point that a serverless wrapper, an
// HTTP server, or the local CLI can call with the same semantics.
package handler

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/cloudwego/promptchain/chain"
	"github.com/cloudwego/promptchain/llm"
	"github.com/cloudwego/promptchain/llm/log"
)

type Request struct {
	ChainName string            `json:"chain_name"`
	Inputs    map[string]string `json:"inputs"`
}

// Response carries an HTTP-equivalent status code and a JSON body: the flat
// output mapping on success, {"error","kind"} on failure.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// Error kinds reported in failure bodies, one per taxonomy entry.
const (
	KindBadRequest          = "bad_request"
	KindPipelineNotFound    = "pipeline_not_found"
	KindDefinition          = "definition"
	KindResourceNotFound    = "resource_not_found"
	KindUnsupportedProvider = "unsupported_provider"
	KindCredential          = "credential"
	KindInvocation          = "invocation"
	KindInternal            = "internal"
)

type Handler struct {
	registry *chain.Registry
}

func New(registry *chain.Registry) *Handler {
	return &Handler{registry: registry}
}

// Handle resolves the named chain and invokes it with the request inputs.
// Missing chain_name and empty inputs are caller errors; everything else is
// classified via the error taxonomy so no failure is ever silent or
// ambiguous.
func (h *Handler) Handle(ctx context.Context, req Request) Response {
	log.Info("received request for chain %q", req.ChainName)

	if req.ChainName == "" {
		return fail(400, KindBadRequest, "missing 'chain_name' in request")
	}
	if len(req.Inputs) == 0 {
		return fail(400, KindBadRequest, "missing or empty 'inputs' in request")
	}

	c, err := h.registry.Resolve(req.ChainName)
	if err != nil {
		status, kind := classify(err)
		log.Error("resolve chain %q: %v", req.ChainName, err)
		return fail(status, kind, err.Error())
	}

	outputs, err := c.Invoke(ctx, req.Inputs)
	if err != nil {
		status, kind := classify(err)
		log.Error("chain %q execution failed: %v", req.ChainName, err)
		return fail(status, kind, err.Error())
	}

	body, err := json.Marshal(outputs)
	if err != nil {
		return fail(500, KindInternal, err.Error())
	}
	return Response{StatusCode: 200, Body: string(body)}
}

// classify maps a taxonomy error onto an HTTP-equivalent status and kind.
func classify(err error) (int, string) {
	var (
		pnf *chain.PipelineNotFoundError
		de  *chain.DefinitionError
		rnf *chain.ResourceNotFoundError
		upe *llm.UnsupportedProviderError
		ce  *llm.CredentialError
		ie  *llm.InvocationError
	)
	switch {
	case errors.As(err, &pnf):
		return 404, KindPipelineNotFound
	case errors.As(err, &de):
		return 500, KindDefinition
	case errors.As(err, &rnf):
		return 500, KindResourceNotFound
	case errors.As(err, &upe):
		return 500, KindUnsupportedProvider
	case errors.As(err, &ce):
		return 500, KindCredential
	case errors.Is(err, chain.ErrMissingInput):
		return 400, KindBadRequest
	case errors.As(err, &ie):
		return 500, KindInvocation
	}
	return 500, KindInternal
}

func fail(status int, kind, message string) Response {
	body, _ := json.Marshal(map[string]string{"error": message, "kind": kind})
	return Response{StatusCode: status, Body: string(body)}
}
