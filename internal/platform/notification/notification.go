// Package notification carries user-facing feedback for completed or failed
// flows. The browser client renders these as transient toasts; on the server
// they are emitted as structured log events and, in tests, captured in
// memory.
package notification

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Severity of a feedback message.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// Message is one piece of user-facing feedback.
type Message struct {
	Severity Severity `json:"severity"`
	Flow     string   `json:"flow"`
	Text     string   `json:"text"`
}

// Notifier receives feedback messages from the domain services.
type Notifier interface {
	Success(flow, text string)
	Error(flow, text string)
}

// LogNotifier emits feedback as structured log events.
type LogNotifier struct {
	logger zerolog.Logger
}

func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Success(flow, text string) {
	n.logger.Info().Str("flow", flow).Str("severity", string(SeveritySuccess)).Msg(text)
}

func (n *LogNotifier) Error(flow, text string) {
	n.logger.Warn().Str("flow", flow).Str("severity", string(SeverityError)).Msg(text)
}

// Memory records messages for test assertions.
type Memory struct {
	mu       sync.Mutex
	messages []Message
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Success(flow, text string) {
	m.record(Message{Severity: SeveritySuccess, Flow: flow, Text: text})
}

func (m *Memory) Error(flow, text string) {
	m.record(Message{Severity: SeverityError, Flow: flow, Text: text})
}

func (m *Memory) record(msg Message) {
	m.mu.Lock()
	m.messages = append(m.messages, msg)
	m.mu.Unlock()
}

// Messages returns a copy of everything recorded so far.
func (m *Memory) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// Last returns the most recent message, or false when none were recorded.
func (m *Memory) Last() (Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.messages) == 0 {
		return Message{}, false
	}
	return m.messages[len(m.messages)-1], true
}

// String implements fmt.Stringer for readable test failures.
func (m *Memory) String() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	parts := make([]string, len(m.messages))
	for i, msg := range m.messages {
		parts[i] = fmt.Sprintf("[%s] %s: %s", msg.Severity, msg.Flow, msg.Text)
	}
	return strings.Join(parts, "; ")
}
