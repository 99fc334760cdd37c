// Package agents keeps the roster of agents added from the dashboard's agent
// panel.
package agents

import (
	"errors"
	"fmt"
	"slices"
)

const (
	// MinCount and MaxCount bound the number of agents added at once
	MinCount = 1
	MaxCount = 10
)

// Groups are the agent groups offered by the agent panel
var Groups = []string{"Agent Group 1", "Agent Group 2", "Agent Group 3"}

var (
	// ErrMissingField is returned when the count or the group is empty
	ErrMissingField = errors.New("some of the fields are left empty")

	// ErrCountRange is returned when the count is outside MinCount..MaxCount
	ErrCountRange = errors.New("agent count out of range")

	// ErrUnknownGroup is returned for a group not listed in Groups
	ErrUnknownGroup = errors.New("unknown agent group")
)

// Agent is one roster row
type Agent struct {
	ID    int
	Group string
	Task  string
}

// Roster is an append-only list of agents with sequential IDs starting at 1.
type Roster struct {
	agents []Agent
}

// NewRoster creates an empty roster
func NewRoster() *Roster {
	return &Roster{}
}

// Add appends count agents of group. A zero count or an empty group is a
// missing field.
func (r *Roster) Add(count int, group string) ([]Agent, error) {
	if count == 0 || group == "" {
		return nil, ErrMissingField
	}
	if count < MinCount || count > MaxCount {
		return nil, fmt.Errorf("%w: %d", ErrCountRange, count)
	}
	if !slices.Contains(Groups, group) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGroup, group)
	}

	next := 1
	if n := len(r.agents); n > 0 {
		next = r.agents[n-1].ID + 1
	}

	added := make([]Agent, 0, count)
	for i := 0; i < count; i++ {
		added = append(added, Agent{ID: next + i, Group: group})
	}
	r.agents = append(r.agents, added...)
	return added, nil
}

// Agents returns a copy of the roster
func (r *Roster) Agents() []Agent {
	return slices.Clone(r.agents)
}

// Len returns the number of agents
func (r *Roster) Len() int {
	return len(r.agents)
}
