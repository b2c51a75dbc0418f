package llm

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"sync"

	"github.com/PabloGalante/tabula/internal/domain"
)

// MockLLM answers without a network call. It echoes the last user turn and
// records every request it receives.
type MockLLM struct {
	mu       sync.Mutex
	requests []domain.CompletionRequest

	// Err, when set, is returned by every call.
	Err error
}

func NewMockLLM() *MockLLM {
	return &MockLLM{}
}

func (m *MockLLM) reply(req domain.CompletionRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)
	if m.Err != nil {
		return "", m.Err
	}

	var last string
	for _, msg := range req.Messages {
		if msg.Role == domain.RoleUser {
			last = msg.Content
		}
	}
	if i := strings.Index(last, "\n\n"); i >= 0 {
		last = last[:i]
	}
	return fmt.Sprintf("요청하신 내용을 확인했습니다: %q", last), nil
}

func (m *MockLLM) Complete(_ context.Context, req domain.CompletionRequest) (string, error) {
	return m.reply(req)
}

// Stream yields the reply one word at a time.
func (m *MockLLM) Stream(_ context.Context, req domain.CompletionRequest) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		text, err := m.reply(req)
		if err != nil {
			yield("", err)
			return
		}
		words := strings.SplitAfter(text, " ")
		for _, w := range words {
			if !yield(w, nil) {
				return
			}
		}
	}
}

// Requests returns the requests received so far.
func (m *MockLLM) Requests() []domain.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.CompletionRequest(nil), m.requests...)
}
