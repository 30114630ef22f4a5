package l3agi

import (
	"fmt"
	"strings"
)

// SystemMessageBuilder renders an agent's configuration into the system
// message given to the engine.
type SystemMessageBuilder struct {
	agent   AgentWithConfigs
	context string
}

// NewSystemMessageBuilder returns a builder for agent. preRetrievedContext is
// appended verbatim when non-empty.
func NewSystemMessageBuilder(agent AgentWithConfigs, preRetrievedContext string) *SystemMessageBuilder {
	return &SystemMessageBuilder{agent: agent, context: preRetrievedContext}
}

// Build returns the system message.
func (b *SystemMessageBuilder) Build() string {
	a, c := b.agent.Agent, b.agent.Configs

	var sb strings.Builder
	if base := strings.TrimSpace(c.Text); base != "" {
		sb.WriteString(base)
		sb.WriteString("\n\n")
	}
	if a.Name != "" {
		fmt.Fprintf(&sb, "YOUR NAME: %s\n", a.Name)
	}
	if a.Role != "" {
		fmt.Fprintf(&sb, "YOUR ROLE: %s\n", a.Role)
	}
	if a.Description != "" {
		fmt.Fprintf(&sb, "DESCRIPTION: %s\n", a.Description)
	}

	writeList(&sb, "GOALS", c.Goals)
	writeList(&sb, "CONSTRAINTS", c.Constraints)
	writeList(&sb, "INSTRUCTIONS", c.Instructions)

	if ctx := strings.TrimSpace(b.context); ctx != "" {
		sb.WriteString("\nCONTEXT DATA:\n")
		sb.WriteString(ctx)
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String())
}

func writeList(sb *strings.Builder, title string, items []string) {
	n := 0
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it == "" {
			continue
		}
		if n == 0 {
			fmt.Fprintf(sb, "\n%s:\n", title)
		}
		n++
		fmt.Fprintf(sb, "%d. %s\n", n, it)
	}
}
