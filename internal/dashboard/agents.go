package dashboard

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	"github.com/yourusername/chronos-console/internal/agents"
	"github.com/yourusername/chronos-console/internal/metrics"
)

// MissingFieldsMessage is shown under the agent form after an incomplete add
const MissingFieldsMessage = "Some of the fields are left empty!"

// agentPanelWidth is the outer width of the agent panel, borders included
const agentPanelWidth = 42

// agentPanel is the agent control panel: a count field, a group selector and
// the roster table.
type agentPanel struct {
	count   textinput.Model
	group   int // index into agents.Groups, -1 while unset
	roster  *agents.Roster
	table   table.Model
	warning bool
}

func newAgentPanel() *agentPanel {
	count := textinput.New()
	count.Placeholder = fmt.Sprintf("%d-%d", agents.MinCount, agents.MaxCount)
	count.Prompt = ""
	count.CharLimit = 2
	count.Width = 5

	tbl := table.New(
		table.WithColumns([]table.Column{
			{Title: "Agent ID", Width: 8},
			{Title: "Agent Group", Width: 13},
			{Title: "Current Task", Width: 11},
		}),
		table.WithHeight(5),
	)
	styles := table.DefaultStyles()
	styles.Header = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	styles.Cell = lipgloss.NewStyle().Padding(0, 1)
	styles.Selected = lipgloss.NewStyle()
	tbl.SetStyles(styles)

	return &agentPanel{
		count:  count,
		group:  -1,
		roster: agents.NewRoster(),
		table:  tbl,
	}
}

// add is the add-agents control handler. Both fields are cleared afterwards
// whether or not the roster changed.
func (p *agentPanel) add() error {
	defer p.reset()

	count := 0
	if text := strings.TrimSpace(p.count.Value()); text != "" {
		n, err := strconv.Atoi(text)
		if err != nil {
			return fmt.Errorf("invalid agent count %q", text)
		}
		count = n
	}
	group := ""
	if p.group >= 0 {
		group = agents.Groups[p.group]
	}

	_, err := p.roster.Add(count, group)
	p.warning = errors.Is(err, agents.ErrMissingField)
	if p.warning {
		return nil
	}
	if err != nil {
		return err
	}

	rows := make([]table.Row, 0, p.roster.Len())
	for _, a := range p.roster.Agents() {
		rows = append(rows, table.Row{strconv.Itoa(a.ID), a.Group, a.Task})
	}
	p.table.SetRows(rows)
	p.table.GotoBottom()
	metrics.AgentsTotal.Set(float64(p.roster.Len()))
	return nil
}

func (p *agentPanel) reset() {
	p.count.SetValue("")
	p.group = -1
}

// cycleGroup moves the group selection by delta, wrapping around
func (p *agentPanel) cycleGroup(delta int) {
	n := len(agents.Groups)
	if p.group < 0 && delta < 0 {
		p.group = n - 1
		return
	}
	p.group = ((p.group+delta)%n + n) % n
}

func (p *agentPanel) groupName() string {
	if p.group < 0 {
		return ""
	}
	return agents.Groups[p.group]
}

func (p *agentPanel) setHeight(consoleHeight int) {
	// title, count, group, warning and stats lines take 5 rows
	h := consoleHeight - 5
	if h < 2 {
		h = 2
	}
	p.table.SetHeight(h)
}

func (p *agentPanel) view(t theme, focus focusArea, elapsed int) string {
	marker := func(area focusArea) string {
		if focus == area {
			return t.info.Render("›")
		}
		return " "
	}

	group := t.muted.Render("select with ←/→")
	if name := p.groupName(); name != "" {
		group = t.text.Render(name)
	}

	warning := ""
	if p.warning {
		warning = t.danger.Render(MissingFieldsMessage)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		t.subtitle.Render("Agents"),
		marker(focusCount)+" count: "+p.count.View(),
		marker(focusGroup)+" group: "+group,
		warning,
		p.table.View(),
		t.muted.Render(fmt.Sprintf("Current elapsed time of session: %d", elapsed)),
	)
}
