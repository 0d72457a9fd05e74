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
	"sync"

	"github.com/tmc/langchaingo/tools"

	"github.com/AleutianAI/AleutianAdvisor/services/advisor/datatypes"
)

// maxResultPreview caps how much of each tool result is retained for
// verification and formatting.
const maxResultPreview = 2000

// =============================================================================
// Tool Invocation Recorder
// =============================================================================

// Recorder captures every tool invocation made during a single query.
// One Recorder lives for exactly one agent run; the orchestrator reads
// its records after the run completes.
//
// # Thread Safety
//
// Safe for concurrent use; the executor may run tool calls from multiple
// goroutines.
type Recorder struct {
	mu      sync.Mutex
	records []datatypes.ToolInvocationRecord
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Wrap decorates a tool so that its calls are recorded.
func (r *Recorder) Wrap(t tools.Tool) tools.Tool {
	return &recordedTool{inner: t, recorder: r}
}

// WrapAll decorates a whole toolset.
func (r *Recorder) WrapAll(ts []tools.Tool) []tools.Tool {
	wrapped := make([]tools.Tool, len(ts))
	for i, t := range ts {
		wrapped[i] = r.Wrap(t)
	}
	return wrapped
}

// Records returns the invocations in call order.
func (r *Recorder) Records() []datatypes.ToolInvocationRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]datatypes.ToolInvocationRecord, len(r.records))
	copy(out, r.records)
	return out
}

// ToolNames returns the invoked tool names in call order.
func (r *Recorder) ToolNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.records))
	for i, rec := range r.records {
		names[i] = rec.ToolName
	}
	return names
}

// ResultPreviews returns the recorded result previews in call order.
func (r *Recorder) ResultPreviews() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	previews := make([]string, len(r.records))
	for i, rec := range r.records {
		previews[i] = rec.ResultPreview
	}
	return previews
}

func (r *Recorder) add(name, result string) {
	if len(result) > maxResultPreview {
		result = result[:maxResultPreview]
	}
	r.mu.Lock()
	r.records = append(r.records, datatypes.ToolInvocationRecord{
		ToolName:      name,
		ResultPreview: result,
	})
	r.mu.Unlock()
}

// =============================================================================
// Recorded Tool
// =============================================================================

type recordedTool struct {
	inner    tools.Tool
	recorder *Recorder
}

func (t *recordedTool) Name() string {
	return t.inner.Name()
}

func (t *recordedTool) Description() string {
	return t.inner.Description()
}

// Call invokes the wrapped tool and records the outcome. Errors abort the
// agent run, so only successful results are recorded.
func (t *recordedTool) Call(ctx context.Context, input string) (string, error) {
	out, err := t.inner.Call(ctx, input)
	if err != nil {
		return "", err
	}
	t.recorder.add(t.inner.Name(), out)
	return out, nil
}
