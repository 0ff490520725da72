package llm

import (
	"context"
	"sync"
)

// MockClient permite tests sin llamar a un LLM real.
// Si Responses tiene elementos se consumen en orden; después se usa Response.
type MockClient struct {
	mu        sync.Mutex
	Response  string
	Responses []string
	Err       error
	Calls     [][]Message
	Options   []ChatOptions
}

func (m *MockClient) Generate(ctx context.Context, prompt string) (string, error) {
	return m.Chat(ctx, []Message{{Role: "user", Content: prompt}}, ChatOptions{})
}

func (m *MockClient) Chat(_ context.Context, messages []Message, opts ChatOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, append([]Message(nil), messages...))
	m.Options = append(m.Options, opts)
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Responses) > 0 {
		r := m.Responses[0]
		m.Responses = m.Responses[1:]
		return r, nil
	}
	return m.Response, nil
}

// CallCount devuelve cuántas llamadas recibió el mock.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
