// Package llmtest provides a scriptable llm.Provider for tests.
package llmtest

import (
	"context"
	"sync"

	"github.com/ppiankov/factlens/internal/llm"
)

// FakeProvider is a Provider whose answers come from CompleteFunc
type FakeProvider struct {
	mu       sync.Mutex
	calls    int
	requests []llm.CompletionRequest

	// CompleteFunc produces the response for each call
	CompleteFunc func(ctx context.Context, req llm.CompletionRequest) (*llm.Completion, error)
}

// NewFakeProvider returns a provider answering with fn
func NewFakeProvider(fn func(ctx context.Context, req llm.CompletionRequest) (*llm.Completion, error)) *FakeProvider {
	return &FakeProvider{CompleteFunc: fn}
}

// Text returns a provider that always answers with text
func Text(text string) *FakeProvider {
	return NewFakeProvider(func(context.Context, llm.CompletionRequest) (*llm.Completion, error) {
		return &llm.Completion{Text: text, TokensUsed: 10}, nil
	})
}

// Name implements llm.Provider
func (f *FakeProvider) Name() string { return "fake" }

// IsAvailable implements llm.Provider
func (f *FakeProvider) IsAvailable(context.Context) bool { return true }

// Complete implements llm.Provider; safe for concurrent use
func (f *FakeProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.Completion, error) {
	f.mu.Lock()
	f.calls++
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.CompleteFunc(ctx, req)
}

// Calls returns how many times Complete ran
func (f *FakeProvider) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// Requests returns a copy of every request received
func (f *FakeProvider) Requests() []llm.CompletionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]llm.CompletionRequest(nil), f.requests...)
}

// Client wraps the provider in a single-attempt client for stage
func (f *FakeProvider) Client(stage llm.Stage) *llm.Client {
	return llm.NewClient(f, llm.ClientOptions{Stage: stage, Model: "fake-model", MaxAttempts: 1}, nil, nil)
}

// Stages returns the same single-attempt provider behind every stage
func (f *FakeProvider) Stages() *llm.Stages {
	return &llm.Stages{
		Tools:      f.Client(llm.StageTools),
		Structured: f.Client(llm.StageStructured),
		Chunk:      f.Client(llm.StageChunk),
	}
}
