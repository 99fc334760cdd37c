package controller

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyCommand is returned for a blank command line
	ErrEmptyCommand = errors.New("empty command")

	// ErrInvalidCommand is returned for text the controller does not accept
	ErrInvalidCommand = errors.New("invalid command")
)

// Request is a structured command forwarded to the controller
type Request struct {
	Command    string `json:"command"`
	AgentGroup string `json:"agent-group,omitempty"`
	ID         string `json:"id,omitempty"`
}

// StopStream asks the controller to stop its media stream before it exits
var StopStream = Request{Command: "stop stream"}

// Args returns the positional arguments of the request
func (r Request) Args() []string {
	if r.AgentGroup == "" && r.ID == "" {
		return nil
	}
	return []string{r.AgentGroup, r.ID}
}

// ParseRequest validates command-line text. create and remove take exactly an
// agent group and an id and yield a request. start, stop and clear are
// accepted and yield nil, since they are handled by their own controls.
func ParseRequest(text string) (*Request, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil, ErrEmptyCommand
	}

	switch fields[0] {
	case "create", "remove":
		if len(fields) != 3 {
			return nil, fmt.Errorf("%w: %s takes an agent group and an id", ErrInvalidCommand, fields[0])
		}
		return &Request{
			Command:    fields[0],
			AgentGroup: fields[1],
			ID:         fields[2],
		}, nil
	case "start", "stop", "clear":
		return nil, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidCommand, fields[0])
}
