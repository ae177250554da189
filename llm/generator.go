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
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/cloudwego/promptchain/llm/log"
)

var _ Generator = (*chatGenerator)(nil)

// chatGenerator turns one ChatModel into a plain prompt-in/text-out Generator
// with bounded retries. Retry policy is internal: callers only ever see the
// final result or an *InvocationError.
type chatGenerator struct {
	chat    ChatModel
	name    string
	retries int
	timeout time.Duration
}

// NewGenerator builds the production Generator for cfg.
func NewGenerator(cfg ModelConfig) (Generator, error) {
	cfg = cfg.withDefaults()
	chat, err := NewChatModel(cfg)
	if err != nil {
		return nil, err
	}
	return &chatGenerator{
		chat:    chat,
		name:    cfg.ModelName,
		retries: cfg.Retries,
		timeout: cfg.Timeout,
	}, nil
}

func (g *chatGenerator) Call(ctx context.Context, input string) (string, error) {
	inputMsgs := []*schema.Message{schema.UserMessage(input)}
	log.Debug("[User] %s", input)

	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= g.retries; attempt++ {
		if attempt > 0 {
			log.Info("Retrying LLM call (attempt %d/%d)...", attempt+1, g.retries+1)
			// Exponential backoff: wait 1s, 2s, 4s...
			waitTime := time.Duration(1<<uint(attempt-1)) * time.Second
			if waitTime > 10*time.Second {
				waitTime = 10 * time.Second // Cap at 10 seconds
			}
			select {
			case <-time.After(waitTime):
			case <-ctx.Done():
				return "", &InvocationError{Model: g.name, Attempts: attempts, Err: ctx.Err()}
			}
		}
		attempts++

		attemptCtx, cancel := context.WithTimeout(ctx, g.timeout)
		out, err := g.chat.Generate(attemptCtx, inputMsgs)
		cancel()
		if err == nil {
			log.Debug("[Assistant] %s", out.Content)
			return out.Content, nil
		}

		lastErr = err
		if !isRetryable(err) {
			log.Error("Non-retryable error occurred: %v", err)
			break
		}
		// Stop retrying once the caller is gone.
		if ctx.Err() != nil {
			lastErr = ctx.Err()
			break
		}
	}
	return "", &InvocationError{Model: g.name, Attempts: attempts, Err: lastErr}
}

// isRetryable reports whether err looks like a transient transport failure
// (timeout, connection reset, etc.).
func isRetryable(err error) bool {
	errStr := err.Error()
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "operation timed out") ||
		strings.Contains(errStr, "context deadline exceeded") ||
		strings.Contains(errStr, "read tcp") ||
		strings.Contains(errStr, "write tcp") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "429")
}
