package llm

import (
	"context"
	"sync"

	"genshell/pkg/schema"
)

// MockCall records one call made to a MockGateway.
type MockCall struct {
	Op       string
	Input    string
	Settings Settings
}

// MockGateway is a mock AI gateway for testing.
type MockGateway struct {
	Command     string  // Returned by SynthesizeCommand
	Elapsed     float64 // Returned by SynthesizeCommand
	Explanation string  // Returned by ExplainCommand
	Reply       string  // Returned by Chat
	Error       error   // Error to return (if any)

	// Release, when non-nil, blocks every call until it is closed or receives.
	Release chan struct{}

	// Started, when non-nil, receives the op name as each call begins.
	Started chan string

	mu    sync.Mutex
	calls []MockCall
}

// Calls returns the calls made so far.
func (m *MockGateway) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *MockGateway) record(ctx context.Context, op, input string, s Settings) error {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Op: op, Input: input, Settings: s})
	m.mu.Unlock()

	if m.Started != nil {
		m.Started <- op
	}
	if m.Release != nil {
		select {
		case <-m.Release:
		case <-ctx.Done():
			return NewCanceledError(op, ctx.Err())
		}
	}
	if m.Error != nil {
		return asGatewayError(op, m.Error)
	}
	return nil
}

// SynthesizeCommand mocks command synthesis.
func (m *MockGateway) SynthesizeCommand(ctx context.Context, s Settings, instruction string) (*schema.CommandSynthesisResult, error) {
	if err := m.record(ctx, OpSynthesize, instruction, s); err != nil {
		return nil, err
	}
	return &schema.CommandSynthesisResult{Command: m.Command, ElapsedSeconds: m.Elapsed}, nil
}

// ExplainCommand mocks command explanation.
func (m *MockGateway) ExplainCommand(ctx context.Context, s Settings, partial string) (string, error) {
	if err := m.record(ctx, OpExplain, partial, s); err != nil {
		return "", err
	}
	return m.Explanation, nil
}

// Chat mocks a chat exchange and records it in history like the real gateway.
func (m *MockGateway) Chat(ctx context.Context, s Settings, history *schema.ChatHistory, input string) (string, error) {
	if err := m.record(ctx, OpChat, input, s); err != nil {
		return "", err
	}
	history.Append(
		schema.ChatTurn{Speaker: schema.SpeakerUser, Text: input},
		schema.ChatTurn{Speaker: schema.SpeakerAssistant, Text: m.Reply},
	)
	return m.Reply, nil
}
