package web

import (
	"context"
	"sync"

	"github.com/custodia-labs/bidwright/internal/core/ports/driven"
)

// scriptedLLM answers the four stages in order. An error at a call index
// replaces that reply.
type scriptedLLM struct {
	mu      sync.Mutex
	replies []string
	errs    map[int]error
	calls   int
}

func (m *scriptedLLM) Generate(_ context.Context, _ string, _ driven.GenerateOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.calls
	m.calls++
	if err := m.errs[idx]; err != nil {
		return "", err
	}
	return m.replies[idx%len(m.replies)], nil
}

func (m *scriptedLLM) ModelName() string {
	return "scripted"
}

func (m *scriptedLLM) Ping(context.Context) error {
	return nil
}

func (m *scriptedLLM) Close() error {
	return nil
}

func (m *scriptedLLM) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func stageReplies() []string {
	return []string{
		`Here you go: {"requirements": ["IT consulting"], "deadlines": ["2025-06-01"], ` +
			`"evaluation_criteria": ["price 40%", "experience 60%"]}`,
		"We delivered 40 consulting projects.",
		"## Executive Summary\nWe can help.\n- Proven delivery",
		"- Add pricing detail",
	}
}
