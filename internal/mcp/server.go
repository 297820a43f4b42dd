// Package mcp exposes the built-in sample processes as MCP tools: list,
// render, resolve and run.
package mcp

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"procgraph/internal/host"
	"procgraph/internal/journal"
	"procgraph/internal/logging"
	"procgraph/internal/samples"
	"procgraph/pkg/process"
)

// Server wraps the MCP SDK server. Runs started through run_sample are
// recorded in Journal.
type Server struct {
	MCPServer *sdkmcp.Server
	Journal   journal.Journal
	Parallel  int
	MaxSteps  int

	mu   sync.Mutex
	runs int
}

// NewServer creates an MCP server with the process tools registered. A nil
// journal selects an in-memory one.
func NewServer(version string, j journal.Journal) *Server {
	if j == nil {
		j = journal.NewMemJournal()
	}
	s := &Server{Journal: j}
	s.MCPServer = sdkmcp.NewServer(
		&sdkmcp.Implementation{Name: "procgraph", Version: version},
		nil,
	)
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "list_samples",
		Description: "List the built-in sample processes with their input events.",
	}, s.handleListSamples)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "render_process",
		Description: "Render a sample process, or a YAML process definition, as a Mermaid flowchart.",
	}, s.handleRender)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "resolve_event",
		Description: "Resolve where an event emitted by a step is routed, given a JSON payload.",
	}, s.handleResolve)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "run_sample",
		Description: "Run a sample process to completion and return the step output and run summary.",
	}, s.handleRun)
}

// --- Tool input/output types ---

type sampleInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputEvent  string `json:"input_event"`
	Steps       int    `json:"steps"`
}

type listSamplesInput struct{}

type listSamplesOutput struct {
	Samples []sampleInfo `json:"samples"`
}

type renderInput struct {
	Sample     string `json:"sample,omitempty" jsonschema:"sample name from list_samples"`
	Definition string `json:"definition,omitempty" jsonschema:"YAML process definition, used when sample is empty"`
	Direction  string `json:"direction,omitempty" jsonschema:"flowchart direction: LR, TD, RL or BT (default LR)"`
}

type renderOutput struct {
	Process string `json:"process"`
	Mermaid string `json:"mermaid"`
}

type resolveInput struct {
	Sample     string `json:"sample,omitempty" jsonschema:"sample name from list_samples"`
	Definition string `json:"definition,omitempty" jsonschema:"YAML process definition, used when sample is empty"`
	Step       string `json:"step,omitempty" jsonschema:"emitting step ID; empty or Start resolves an input event"`
	Event      string `json:"event" jsonschema:"emitted event name"`
	Payload    string `json:"payload,omitempty" jsonschema:"event payload as JSON"`
}

type routeInfo struct {
	Target    string `json:"target"`
	Condition string `json:"condition,omitempty"`
	Stop      bool   `json:"stop,omitempty"`
}

type resolveOutput struct {
	Routes  []routeInfo `json:"routes"`
	Stop    bool        `json:"stop"`
	Dropped bool        `json:"dropped"`
}

type runInput struct {
	Sample  string `json:"sample" jsonschema:"sample name from list_samples"`
	Event   string `json:"event,omitempty" jsonschema:"input event (default: the sample's input event)"`
	Payload string `json:"payload,omitempty" jsonschema:"input payload as JSON (default: the sample's payload)"`
}

type runOutput struct {
	RunID   string   `json:"run_id"`
	Status  string   `json:"status"`
	Steps   int      `json:"steps"`
	Invoked []string `json:"invoked"`
	Output  string   `json:"output"`
	Error   string   `json:"error,omitempty"`
}

// --- Tool handlers ---

func (s *Server) handleListSamples(_ context.Context, _ *sdkmcp.CallToolRequest, _ listSamplesInput) (*sdkmcp.CallToolResult, listSamplesOutput, error) {
	out := listSamplesOutput{Samples: []sampleInfo{}}
	for _, sm := range samples.All() {
		info := sampleInfo{Name: sm.Name, Description: sm.Description, InputEvent: sm.InputEvent}
		if g, err := sm.Build(); err == nil {
			info.Steps = len(g.Steps())
		}
		out.Samples = append(out.Samples, info)
	}
	return nil, out, nil
}

func (s *Server) handleRender(_ context.Context, _ *sdkmcp.CallToolRequest, input renderInput) (*sdkmcp.CallToolResult, renderOutput, error) {
	g, err := loadGraph(input.Sample, input.Definition)
	if err != nil {
		return nil, renderOutput{}, err
	}
	dir, err := ParseDirection(input.Direction)
	if err != nil {
		return nil, renderOutput{}, err
	}
	return nil, renderOutput{
		Process: g.Name(),
		Mermaid: process.RenderWithOptions(g, process.RenderOptions{Direction: dir}),
	}, nil
}

func (s *Server) handleResolve(_ context.Context, _ *sdkmcp.CallToolRequest, input resolveInput) (*sdkmcp.CallToolResult, resolveOutput, error) {
	if input.Event == "" {
		return nil, resolveOutput{}, fmt.Errorf("event is required")
	}
	g, err := loadGraph(input.Sample, input.Definition)
	if err != nil {
		return nil, resolveOutput{}, err
	}
	payload, err := host.DecodePayload(input.Payload)
	if err != nil {
		return nil, resolveOutput{}, err
	}
	step := process.StepID(input.Step)
	if step == "" {
		step = process.StartStepID
	}

	res, err := process.Resolve(g, step, input.Event, payload)
	if err != nil {
		return nil, resolveOutput{}, fmt.Errorf("resolve_event: %w", err)
	}
	out := resolveOutput{Routes: []routeInfo{}, Stop: res.Stop(), Dropped: res.Empty()}
	for _, rt := range res.Routes {
		ri := routeInfo{Target: rt.Target.String(), Stop: rt.Stop}
		if c := rt.Edge.Condition(); c != nil {
			ri.Condition = c.String()
		}
		out.Routes = append(out.Routes, ri)
	}
	return nil, out, nil
}

func (s *Server) handleRun(ctx context.Context, _ *sdkmcp.CallToolRequest, input runInput) (*sdkmcp.CallToolResult, runOutput, error) {
	logger := logging.New("mcp")
	sm, err := samples.Get(input.Sample)
	if err != nil {
		return nil, runOutput{}, err
	}
	g, err := sm.Build()
	if err != nil {
		return nil, runOutput{}, fmt.Errorf("build %s: %w", sm.Name, err)
	}

	event := input.Event
	if event == "" {
		event = sm.InputEvent
	}
	payload := sm.Payload
	if input.Payload != "" {
		if payload, err = host.DecodePayload(input.Payload); err != nil {
			return nil, runOutput{}, err
		}
	}

	var buf bytes.Buffer
	runner := host.NewRunner(g, sm.Steps(&buf, g), host.Config{
		Parallel: s.Parallel,
		MaxSteps: s.MaxSteps,
		Journal:  s.Journal,
		Logger:   logger,
	})
	res, runErr := runner.Run(ctx, event, payload)
	if res == nil {
		return nil, runOutput{}, fmt.Errorf("run_sample: %w", runErr)
	}

	s.mu.Lock()
	s.runs++
	s.mu.Unlock()

	out := runOutput{
		RunID:   res.RunID,
		Status:  res.Status(runErr),
		Steps:   res.Steps,
		Invoked: []string{},
		Output:  buf.String(),
	}
	for _, t := range res.Invoked {
		out.Invoked = append(out.Invoked, t.String())
	}
	if runErr != nil {
		out.Error = runErr.Error()
	}
	logger.Info("sample run", "sample", sm.Name, "run_id", res.RunID, "status", out.Status)
	return nil, out, nil
}

// Runs returns how many run_sample calls completed.
func (s *Server) Runs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

func loadGraph(sample, definition string) (*process.StepGraph, error) {
	switch {
	case sample != "":
		sm, err := samples.Get(sample)
		if err != nil {
			return nil, err
		}
		return sm.Build()
	case definition != "":
		def, err := process.LoadDefinition([]byte(definition))
		if err != nil {
			return nil, err
		}
		return def.Build()
	default:
		return nil, fmt.Errorf("one of sample or definition is required")
	}
}

// ParseDirection validates a flowchart direction. Empty means LR.
func ParseDirection(s string) (process.Direction, error) {
	switch d := process.Direction(s); d {
	case "":
		return process.LeftRight, nil
	case process.LeftRight, process.TopDown, process.RightLeft, process.BottomTop:
		return d, nil
	}
	return "", fmt.Errorf("unknown direction %q (want LR, TD, RL or BT)", s)
}
