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

// Package llm provides a uniform adapter over chat-model providers. A chain
// compiles against the Generator interface only; everything provider-specific
// stays behind NewGenerator.
package llm

import (
	"context"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
)

type ModelConfig struct {
	APIType     ModelType     `json:"type"`
	BaseURL     string        `json:"base_url"`
	APIKey      string        `json:"api_key"` // read from the provider env var when empty
	ModelName   string        `json:"model_name"`
	Temperature *float32      `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Timeout     time.Duration `json:"timeout"` // HTTP request timeout, default: 600s
	Retries     int           `json:"retries"` // Number of retries on failure, default: 3
}

// withDefaults fills unset transport fields. Which model and temperature a
// chain gets by default is decided one level up, in the chain package.
func (m ModelConfig) withDefaults() ModelConfig {
	if m.MaxTokens == 0 {
		m.MaxTokens = 16 * 1024
	}
	if m.Timeout == 0 {
		m.Timeout = 600 * time.Second
	}
	if m.Retries == 0 {
		m.Retries = 3
	}
	return m
}

type ModelType string

func NewModelType(t string) ModelType {
	switch strings.ToLower(t) {
	case "ollama":
		return ModelTypeOllama
	case "ark", "doubao":
		return ModelTypeARK
	case "openai", "gpt":
		return ModelTypeOpenAI
	case "claude", "anthropic":
		return ModelTypeClaude
	case "dashscope", "qwen", "tongyi":
		return ModelTypeDashScope
	case "deepseek":
		return ModelTypeDeepSeek
	}
	return ModelTypeUnknown
}

const (
	ModelTypeUnknown   ModelType = ""
	ModelTypeOllama    ModelType = "ollama"
	ModelTypeARK       ModelType = "ark"
	ModelTypeOpenAI    ModelType = "openai"
	ModelTypeClaude    ModelType = "claude"
	ModelTypeDashScope ModelType = "dashscope"
	ModelTypeDeepSeek  ModelType = "deepseek"
)

// credentialEnv maps each provider to the single environment variable holding
// its secret. Ollama is local and needs none.
func credentialEnv(t ModelType) string {
	switch t {
	case ModelTypeOpenAI:
		return "OPENAI_API_KEY"
	case ModelTypeClaude:
		return "ANTHROPIC_API_KEY"
	case ModelTypeARK:
		return "ARK_API_KEY"
	case ModelTypeDashScope:
		return "DASHSCOPE_API_KEY"
	case ModelTypeDeepSeek:
		return "DEEPSEEK_API_KEY"
	}
	return ""
}

// Generator is the interface for calling
type Generator interface {
	// Call calls the LLM with the input.
	Call(ctx context.Context, input string) (string, error)
}

// ChatModel is the interface for making LLM backend.
type ChatModel interface {
	model.ToolCallingChatModel
}
