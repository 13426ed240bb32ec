package mqtt

import (
	"fmt"
	"sync"
	"time"

	"github.com/gridpool/gridpool/core/quantity"
)

// MockSender is a CommandSender used in tests. Commands are recorded instead
// of published; ids listed in FailIDs fail at publish time, ids in NackIDs
// publish fine but answer with a negative acknowledgment.
type MockSender struct {
	Commands map[string]quantity.Quantity
	FailIDs  map[string]bool
	NackIDs  map[string]bool
	acks     map[string]bool
	mu       sync.Mutex
}

// NewMockSender creates a new MockSender.
func NewMockSender() *MockSender {
	return &MockSender{
		Commands: make(map[string]quantity.Quantity),
		FailIDs:  make(map[string]bool),
		NackIDs:  make(map[string]bool),
		acks:     make(map[string]bool),
	}
}

// SendCommand records the command or returns an error if configured to fail.
func (m *MockSender) SendCommand(componentID string, value quantity.Quantity) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailIDs[componentID] {
		return "", fmt.Errorf("publish failed")
	}
	m.Commands[componentID] = value
	commandID := fmt.Sprintf("cmd-%s", componentID)
	m.acks[commandID] = !m.NackIDs[componentID]
	return commandID, nil
}

// WaitForAck simulates an immediate acknowledgment based on the stored result.
func (m *MockSender) WaitForAck(commandID string, timeout time.Duration) (bool, error) {
	m.mu.Lock()
	ok, exists := m.acks[commandID]
	m.mu.Unlock()
	if !exists {
		return false, fmt.Errorf("unknown command")
	}
	return ok, nil
}

// Sent returns the value last commanded to the component.
func (m *MockSender) Sent(componentID string) (quantity.Quantity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.Commands[componentID]
	return v, ok
}
