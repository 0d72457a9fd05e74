// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tmc/langchaingo/agents"
	"github.com/tmc/langchaingo/chains"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/memory"

	"github.com/AleutianAI/AleutianAdvisor/services/advisor/datatypes"
	"github.com/AleutianAI/AleutianAdvisor/services/advisor/observability"
)

// =============================================================================
// Portfolio Agent
// =============================================================================

// defaultMaxIterations bounds the reasoning loop of a single query.
const defaultMaxIterations = 12

// Config holds the LLM provider settings for the agent.
//
// # Description
//
// The primary model handles every query. When the primary provider
// throttles a request and a fallback model is configured, the run is
// retried once against the fallback. BaseURL supports OpenAI-compatible
// endpoints (vLLM, Ollama, proxies).
type Config struct {
	Model   string
	APIKey  string
	BaseURL string

	FallbackModel   string
	FallbackAPIKey  string
	FallbackBaseURL string

	MaxIterations int
}

// Agent runs portfolio queries through a tool-calling LLM with
// per-conversation memory.
type Agent struct {
	primary  llms.Model
	fallback llms.Model
	toolset  *Toolset
	maxIter  int

	mu            sync.Mutex
	conversations map[string]*conversation
}

// conversation is the per-conversation state. Its mutex serializes
// concurrent queries on the same conversation so the memory buffer sees
// a coherent turn order.
type conversation struct {
	mu     sync.Mutex
	buffer *memory.ConversationBuffer
}

// New builds the agent and its LLM clients.
//
// # Inputs
//   - cfg: provider settings. Model and APIKey are required.
//   - toolset: the Ghostfolio tools exposed to the LLM.
//
// # Outputs
//   - *Agent or an error when a client cannot be constructed.
func New(cfg Config, toolset *Toolset) (*Agent, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("agent: model is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("agent: api key is required")
	}
	if toolset == nil {
		return nil, fmt.Errorf("agent: toolset is required")
	}

	primary, err := newLLM(cfg.Model, cfg.APIKey, cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("agent: primary llm: %w", err)
	}

	var fallback llms.Model
	if cfg.FallbackModel != "" {
		key := cfg.FallbackAPIKey
		if key == "" {
			key = cfg.APIKey
		}
		fallback, err = newLLM(cfg.FallbackModel, key, cfg.FallbackBaseURL)
		if err != nil {
			return nil, fmt.Errorf("agent: fallback llm: %w", err)
		}
	}

	maxIter := cfg.MaxIterations
	if maxIter <= 0 {
		maxIter = defaultMaxIterations
	}

	return &Agent{
		primary:       primary,
		fallback:      fallback,
		toolset:       toolset,
		maxIter:       maxIter,
		conversations: make(map[string]*conversation),
	}, nil
}

func newLLM(model, apiKey, baseURL string) (llms.Model, error) {
	opts := []openai.Option{
		openai.WithModel(model),
		openai.WithToken(apiKey),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	return openai.New(opts...)
}

// Run answers one message within a conversation.
//
// # Inputs
//   - ctx: cancellation for the whole reasoning loop.
//   - message: the sanitized user query.
//   - conversationID: memory scope; queries on the same id are serialized.
//
// # Outputs
//   - the final answer text, the tool invocations made while producing
//     it, and an error classifiable via Classify.
func (a *Agent) Run(ctx context.Context, message, conversationID string) (string, []datatypes.ToolInvocationRecord, error) {
	conv := a.conversation(conversationID)
	conv.mu.Lock()
	defer conv.mu.Unlock()

	recorder := NewRecorder()
	answer, err := a.runOnce(ctx, a.primary, conv, recorder, message)
	if err != nil && a.fallback != nil && Classify(err) == KindRateLimited {
		slog.Warn("primary model rate limited, retrying with fallback",
			"conversation_id", conversationID)
		if observability.DefaultMetrics != nil {
			observability.DefaultMetrics.RecordFallback()
		}
		recorder = NewRecorder()
		answer, err = a.runOnce(ctx, a.fallback, conv, recorder, message)
	}
	if err != nil {
		return "", nil, err
	}
	return answer, recorder.Records(), nil
}

func (a *Agent) runOnce(ctx context.Context, llm llms.Model, conv *conversation, recorder *Recorder, message string) (string, error) {
	wrapped := recorder.WrapAll(a.toolset.All())

	conversationalAgent := agents.NewConversationalAgent(llm, wrapped,
		agents.WithPromptPrefix(systemPrompt))
	executor := agents.NewExecutor(conversationalAgent,
		agents.WithMemory(conv.buffer),
		agents.WithMaxIterations(a.maxIter))

	return chains.Run(ctx, executor, message)
}

// conversation returns the state for an id, creating it on first use.
func (a *Agent) conversation(id string) *conversation {
	a.mu.Lock()
	defer a.mu.Unlock()
	conv, ok := a.conversations[id]
	if !ok {
		conv = &conversation{buffer: memory.NewConversationBuffer()}
		a.conversations[id] = conv
	}
	return conv
}

// Reset discards the memory of one conversation.
func (a *Agent) Reset(conversationID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.conversations, conversationID)
}
