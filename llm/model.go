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

import (
	"context"
	"os"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino-ext/components/model/qwen"
	"github.com/pkg/errors"
)

// NewChatModel builds the provider-specific backend for m. The provider set
// is closed: anything outside the ModelType constants fails with
// *UnsupportedProviderError before any network traffic happens.
func NewChatModel(m ModelConfig) (ChatModel, error) {
	m = m.withDefaults()

	apiKey, err := resolveCredential(m)
	if err != nil {
		return nil, err
	}
	m.APIKey = apiKey

	switch m.APIType {
	case ModelTypeARK:
		model, err := ark.NewChatModel(context.Background(), &ark.ChatModelConfig{
			BaseURL:     m.BaseURL,
			APIKey:      m.APIKey,
			Model:       m.ModelName,
			Temperature: m.Temperature,
			MaxTokens:   &m.MaxTokens,
		})
		if err != nil {
			return nil, errors.Wrap(err, "init ark chat model")
		}
		return model, nil
	case ModelTypeOpenAI:
		model, err := openai.NewChatModel(context.Background(), &openai.ChatModelConfig{
			BaseURL:     m.BaseURL,
			APIKey:      m.APIKey,
			Model:       m.ModelName,
			Temperature: m.Temperature,
			MaxTokens:   &m.MaxTokens,
			Timeout:     m.Timeout,
		})
		if err != nil {
			return nil, errors.Wrap(err, "init openai chat model")
		}
		return model, nil
	case ModelTypeDashScope:
		// DashScope (Qwen) uses OpenAI-compatible API
		baseURL := m.BaseURL
		if baseURL == "" {
			baseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"
		}
		model, err := qwen.NewChatModel(context.Background(), &qwen.ChatModelConfig{
			BaseURL:     baseURL,
			APIKey:      m.APIKey,
			Model:       m.ModelName,
			Temperature: m.Temperature,
			MaxTokens:   &m.MaxTokens,
			Timeout:     m.Timeout,
		})
		if err != nil {
			return nil, errors.Wrap(err, "init dashscope chat model")
		}
		return model, nil
	case ModelTypeDeepSeek:
		// DeepSeek uses OpenAI-compatible API
		baseURL := m.BaseURL
		if baseURL == "" {
			baseURL = "https://api.deepseek.com"
		}
		model, err := openai.NewChatModel(context.Background(), &openai.ChatModelConfig{
			BaseURL:     baseURL,
			APIKey:      m.APIKey,
			Model:       m.ModelName,
			Temperature: m.Temperature,
			MaxTokens:   &m.MaxTokens,
			Timeout:     m.Timeout,
		})
		if err != nil {
			return nil, errors.Wrap(err, "init deepseek chat model")
		}
		return model, nil
	case ModelTypeOllama:
		model, err := ollama.NewChatModel(context.Background(), &ollama.ChatModelConfig{
			BaseURL: m.BaseURL,
			Model:   m.ModelName,
		})
		if err != nil {
			return nil, errors.Wrap(err, "init ollama chat model")
		}
		return model, nil
	case ModelTypeClaude:
		model, err := claude.NewChatModel(context.Background(), &claude.Config{
			BaseURL:     &m.BaseURL,
			APIKey:      m.APIKey,
			Model:       m.ModelName,
			Temperature: m.Temperature,
			MaxTokens:   m.MaxTokens,
		})
		if err != nil {
			return nil, errors.Wrap(err, "init claude chat model")
		}
		return model, nil
	default:
		return nil, &UnsupportedProviderError{Provider: string(m.APIType)}
	}
}

// resolveCredential returns the secret for m, preferring an explicit APIKey
// over the provider environment variable. Read once at construction.
func resolveCredential(m ModelConfig) (string, error) {
	if m.APIKey != "" {
		return m.APIKey, nil
	}
	env := credentialEnv(m.APIType)
	if env == "" {
		// provider needs no credential (ollama) or is unknown; the latter is
		// rejected by the provider switch.
		return "", nil
	}
	key := os.Getenv(env)
	if key == "" {
		return "", &CredentialError{Provider: m.APIType, EnvVar: env}
	}
	return key, nil
}
