package process

import (
	"fmt"
	"strings"
)

// Direction is the Mermaid flowchart orientation.
type Direction string

const (
	LeftRight Direction = "LR"
	TopDown   Direction = "TD"
	RightLeft Direction = "RL"
	BottomTop Direction = "BT"
)

// RenderOptions controls diagram generation.
type RenderOptions struct {
	Direction Direction
}

const (
	startNode      = "Start[Start]"
	endNode        = "End[End]"
	conditionLabel = "|Condition|"
)

// Render generates a left-to-right Mermaid flowchart from a built graph.
func Render(g *StepGraph) string {
	return RenderWithOptions(g, RenderOptions{})
}

// RenderWithOptions generates a Mermaid flowchart from a built graph.
//
// Steps that no other step points to are linked from the synthetic Start
// node. Edges to a function named "end" (any case) are drawn to End.
// The output depends only on the graph, so repeated calls are identical.
func RenderWithOptions(g *StepGraph, opts RenderOptions) string {
	dir := opts.Direction
	if dir == "" {
		dir = LeftRight
	}

	nodes := nodeNames(g)

	var b strings.Builder
	fmt.Fprintf(&b, "flowchart %s\n", dir)
	b.WriteString(startNode + "\n")
	b.WriteString(endNode + "\n")

	for _, s := range g.steps {
		if !g.HasIncoming(s.ID) {
			fmt.Fprintf(&b, "%s --> %s\n", startNode, nodes[s.ID])
		}
	}

	for _, s := range g.steps {
		ee, ok := g.edges[s.ID]
		if !ok {
			continue
		}
		source := nodes[s.ID]
		for _, ev := range ee.order {
			for _, e := range ee.byName[ev] {
				target := endNode
				if t := e.OutputTarget(); !t.IsEnd() && !t.IsStop() {
					target = nodes[e.TargetStepID()]
				}
				label := ""
				if e.IsConditional() {
					label = conditionLabel
				}
				fmt.Fprintf(&b, "%s -->%s %s\n", source, label, target)
			}
		}
	}

	return b.String()
}

// nodeNames formats every step as a Mermaid node, id[label]. Ids are the
// sanitized display names; when two steps sanitize to the same id, or a step
// would reuse Start or End, the later step falls back to its StepID and then
// to a numeric suffix.
func nodeNames(g *StepGraph) map[StepID]string {
	taken := map[string]bool{"Start": true, "End": true}
	out := make(map[StepID]string, len(g.steps))
	for _, s := range g.steps {
		label := s.DisplayName()
		id := sanitizeID(label)
		if taken[id] {
			id = sanitizeID(string(s.ID))
		}
		for base, n := id, 2; taken[id]; n++ {
			id = fmt.Sprintf("%s_%d", base, n)
		}
		taken[id] = true
		out[s.ID] = id + "[" + label + "]"
	}
	return out
}

func sanitizeID(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
