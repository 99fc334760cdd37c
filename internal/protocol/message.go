// Package protocol defines the WebSocket message types exchanged with a
// remote Chronos controller
package protocol

import (
	"encoding/json"
	"time"
)

// MessageType represents the type of WebSocket message
type MessageType string

const (
	// Inbound message types (console -> controller)
	TypeCommand MessageType = "command"
	TypePing    MessageType = "ping"

	// Outbound message types (controller -> console)
	TypeStdout MessageType = "stdout"
	TypeStderr MessageType = "stderr"
	TypeStatus MessageType = "status"
	TypeResult MessageType = "result"
	TypeError  MessageType = "error"
	TypePong   MessageType = "pong"
)

// Controller states carried by status messages
const (
	StateRunning = "running"
	StateStopped = "stopped"
)

// InboundMessage represents a message from the console to the controller
type InboundMessage struct {
	Type    MessageType `json:"type"`
	ID      string      `json:"id,omitempty"`
	Command string      `json:"command,omitempty"` // start, stop, create, remove, stop stream
	Args    []string    `json:"args,omitempty"`
}

// OutboundMessage represents a message from the controller to the console
type OutboundMessage struct {
	Type      MessageType `json:"type"`
	Data      string      `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	ReplyTo   string      `json:"reply_to,omitempty"`  // ID of the inbound message this answers
	ExitCode  *int        `json:"exit_code,omitempty"` // For TypeResult
	Error     string      `json:"error,omitempty"`     // For TypeError
}

// NewCommandMessage creates a command message
func NewCommandMessage(id, command string, args []string) InboundMessage {
	return InboundMessage{
		Type:    TypeCommand,
		ID:      id,
		Command: command,
		Args:    args,
	}
}

// NewStdoutMessage creates a stdout message
func NewStdoutMessage(data string) OutboundMessage {
	return OutboundMessage{
		Type:      TypeStdout,
		Data:      data,
		Timestamp: time.Now(),
	}
}

// NewStderrMessage creates a stderr message
func NewStderrMessage(data string) OutboundMessage {
	return OutboundMessage{
		Type:      TypeStderr,
		Data:      data,
		Timestamp: time.Now(),
	}
}

// NewResultMessage creates a controller exit message
func NewResultMessage(exitCode int) OutboundMessage {
	return OutboundMessage{
		Type:      TypeResult,
		ExitCode:  &exitCode,
		Timestamp: time.Now(),
	}
}

// NewErrorMessage creates an error message
func NewErrorMessage(err string) OutboundMessage {
	return OutboundMessage{
		Type:      TypeError,
		Error:     err,
		Timestamp: time.Now(),
	}
}

// NewStatusMessage creates a controller state message
func NewStatusMessage(state string) OutboundMessage {
	return OutboundMessage{
		Type:      TypeStatus,
		Data:      state,
		Timestamp: time.Now(),
	}
}

// ParseInbound parses an inbound WebSocket message
func ParseInbound(data []byte) (*InboundMessage, error) {
	var msg InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ParseOutbound parses an outbound WebSocket message
func ParseOutbound(data []byte) (*OutboundMessage, error) {
	var msg OutboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ToJSON serializes an inbound message to JSON
func (m *InboundMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ToJSON serializes an outbound message to JSON
func (m *OutboundMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}
