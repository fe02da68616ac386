package webhook

import (
	"context"
	"fmt"
	"sync"

	"plurald/internal/proxy"
)

// DeliveredMessage is one message held by a MemoryExecutor.
type DeliveredMessage struct {
	ChannelID   string
	DisplayName string
	AvatarURL   string
	Content     string
}

// MemoryExecutor is an in-memory implementation of the Executor interface.
// It records delivered messages for inspection, making it useful for testing
// and for running the engine without a Discord connection.
// This implementation is safe for concurrent use.
type MemoryExecutor struct {
	mu       sync.Mutex
	counter  int
	messages map[string]*DeliveredMessage
}

var _ proxy.Executor = (*MemoryExecutor)(nil)

// NewMemoryExecutor creates an empty in-memory executor.
func NewMemoryExecutor() *MemoryExecutor {
	return &MemoryExecutor{messages: make(map[string]*DeliveredMessage)}
}

func (m *MemoryExecutor) Send(_ context.Context, channelID, displayName, avatarURL, content string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	id := fmt.Sprintf("msg-%d", m.counter)
	m.messages[id] = &DeliveredMessage{
		ChannelID:   channelID,
		DisplayName: displayName,
		AvatarURL:   avatarURL,
		Content:     content,
	}
	return id, nil
}

func (m *MemoryExecutor) Edit(_ context.Context, _ string, externalID string, req proxy.EditRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[externalID]
	if !ok {
		return "", proxy.ErrExternalGone
	}
	if req.Content != nil {
		msg.Content = *req.Content
	}
	if req.DisplayName != nil {
		msg.DisplayName = *req.DisplayName
	}
	if req.AvatarURL != nil {
		msg.AvatarURL = *req.AvatarURL
	}
	return externalID, nil
}

func (m *MemoryExecutor) Delete(_ context.Context, _ string, externalID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.messages[externalID]; !ok {
		return proxy.ErrExternalGone
	}
	delete(m.messages, externalID)
	return nil
}

// Message returns a delivered message by id, or nil if it does not exist.
func (m *MemoryExecutor) Message(externalID string) *DeliveredMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[externalID]
	if !ok {
		return nil
	}
	cp := *msg
	return &cp
}

// MessagesIn returns the delivered messages currently held for a channel.
func (m *MemoryExecutor) MessagesIn(channelID string) []*DeliveredMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*DeliveredMessage
	for _, msg := range m.messages {
		if msg.ChannelID == channelID {
			cp := *msg
			out = append(out, &cp)
		}
	}
	return out
}

// Count returns the number of currently delivered messages.
func (m *MemoryExecutor) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}
