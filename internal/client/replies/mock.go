package replies

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/soullink/internal/models"
)

// MockGenerator answers from fixed rules. Setting Err makes every call
// fail, which exercises the callers' fallbacks.
type MockGenerator struct {
	mu    sync.Mutex
	Err   error
	calls int
}

func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

func (m *MockGenerator) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Err = err
}

func (m *MockGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockGenerator) begin() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.Err
}

func (m *MockGenerator) GenerateReply(ctx context.Context, c models.Companion, text, image string) (Reply, error) {
	if err := m.begin(); err != nil {
		return Reply{}, err
	}
	if c.ConflictState.IsActive {
		return Reply{Text: "..."}, nil
	}
	return Reply{Text: fmt.Sprintf("(%s) I hear you: %q", c.Name, text)}, nil
}

func (m *MockGenerator) AssessHostility(ctx context.Context, history []models.Message) (Assessment, error) {
	if err := m.begin(); err != nil {
		return Assessment{}, err
	}
	for _, msg := range RecentMessages(history, AssessmentWindow) {
		if msg.Role == models.RoleUser && IsHostile(msg.Content) {
			return Assessment{Score: 9, Level: models.ConflictHigh}, nil
		}
	}
	return FallbackAssessment, nil
}

func (m *MockGenerator) MomentComment(ctx context.Context, c models.Companion, momentText string) (string, error) {
	if err := m.begin(); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s likes this.", c.DisplayName()), nil
}

func (m *MockGenerator) MomentReply(ctx context.Context, c models.Companion, momentText, userComment string) (string, error) {
	if err := m.begin(); err != nil {
		return "", err
	}
	return fmt.Sprintf("Thanks for %q!", userComment), nil
}

func (m *MockGenerator) ProactiveMessage(ctx context.Context, c models.Companion, trigger Trigger) (string, error) {
	if err := m.begin(); err != nil {
		return "", err
	}
	return fmt.Sprintf("[%s] thinking of you", trigger), nil
}
