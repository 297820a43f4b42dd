package mcp_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"testing"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"procgraph/internal/journal"
	mcpserver "procgraph/internal/mcp"
	"procgraph/internal/samples"
	"procgraph/pkg/process"
)

func TestMain(m *testing.M) {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	})))
	os.Exit(m.Run())
}

func connectInMemory(t *testing.T, ctx context.Context, srv *mcpserver.Server) *sdkmcp.ClientSession {
	t.Helper()
	t1, t2 := sdkmcp.NewInMemoryTransports()
	serverSession, err := srv.MCPServer.Connect(ctx, t1, nil)
	if err != nil {
		t.Fatalf("server.Connect: %v", err)
	}
	t.Cleanup(func() { serverSession.Close() })

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, t2, nil)
	if err != nil {
		t.Fatalf("client.Connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func callTool(t *testing.T, ctx context.Context, session *sdkmcp.ClientSession, name string, args map[string]any) map[string]any {
	t.Helper()
	result, err := callToolE(ctx, session, name, args)
	if err != nil {
		t.Fatal(err)
	}
	return result
}

func callToolE(ctx context.Context, session *sdkmcp.ClientSession, name string, args map[string]any) (map[string]any, error) {
	res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return nil, fmt.Errorf("CallTool(%s): %w", name, err)
	}
	if res.IsError {
		for _, c := range res.Content {
			if tc, ok := c.(*sdkmcp.TextContent); ok {
				return nil, fmt.Errorf("CallTool(%s) error: %s", name, tc.Text)
			}
		}
		return nil, fmt.Errorf("CallTool(%s) returned error", name)
	}
	for _, c := range res.Content {
		if tc, ok := c.(*sdkmcp.TextContent); ok {
			result := make(map[string]any)
			if err := json.Unmarshal([]byte(tc.Text), &result); err != nil {
				return nil, fmt.Errorf("unmarshal %s result: %w", name, err)
			}
			return result, nil
		}
	}
	return nil, fmt.Errorf("no text content in %s result", name)
}

func TestServer_ToolDiscovery(t *testing.T) {
	ctx := context.Background()
	session := connectInMemory(t, ctx, mcpserver.NewServer("test", nil))

	res, err := session.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	names := map[string]bool{}
	for _, tool := range res.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{"list_samples", "render_process", "resolve_event", "run_sample"} {
		if !names[want] {
			t.Errorf("tool %q not registered", want)
		}
	}
	if len(res.Tools) != 4 {
		t.Errorf("got %d tools, want 4", len(res.Tools))
	}
}

func TestServer_ListSamples(t *testing.T) {
	ctx := context.Background()
	session := connectInMemory(t, ctx, mcpserver.NewServer("test", nil))

	out := callTool(t, ctx, session, "list_samples", map[string]any{})
	list, ok := out["samples"].([]any)
	if !ok {
		t.Fatalf("samples = %T", out["samples"])
	}
	if len(list) != len(samples.Names()) {
		t.Fatalf("got %d samples, want %d", len(list), len(samples.Names()))
	}
	first := list[0].(map[string]any)
	if first["name"] != "approval" || first["input_event"] != "Submitted" {
		t.Errorf("first sample = %v", first)
	}
	if first["steps"].(float64) != 5 {
		t.Errorf("approval steps = %v, want 5", first["steps"])
	}
}

func TestServer_RenderSample(t *testing.T) {
	ctx := context.Background()
	session := connectInMemory(t, ctx, mcpserver.NewServer("test", nil))

	out := callTool(t, ctx, session, "render_process", map[string]any{"sample": "simplest"})
	if out["process"] != "SimplestProcess" {
		t.Errorf("process = %v", out["process"])
	}
	g, _ := samples.SimplestProcess()
	if out["mermaid"] != process.Render(g) {
		t.Errorf("mermaid mismatch:\n%v", out["mermaid"])
	}

	out = callTool(t, ctx, session, "render_process", map[string]any{"sample": "conditional", "direction": "TD"})
	if !strings.HasPrefix(out["mermaid"].(string), "flowchart TD\n") {
		t.Errorf("direction not applied:\n%v", out["mermaid"])
	}
}

const tinyDefinition = `process: Tiny
steps:
  - id: A
    events: [Done]
inputs:
  - event: Go
    to: A
edges:
  - from: A
    event: Done
    stop: true
`

func TestServer_RenderDefinition(t *testing.T) {
	ctx := context.Background()
	session := connectInMemory(t, ctx, mcpserver.NewServer("test", nil))

	out := callTool(t, ctx, session, "render_process", map[string]any{"definition": tinyDefinition})
	mermaid := out["mermaid"].(string)
	for _, want := range []string{"Start[Start] --> A[A]\n", "A[A] --> End[End]\n"} {
		if !strings.Contains(mermaid, want) {
			t.Errorf("mermaid missing %q:\n%s", want, mermaid)
		}
	}
}

func TestServer_RenderErrors(t *testing.T) {
	ctx := context.Background()
	session := connectInMemory(t, ctx, mcpserver.NewServer("test", nil))

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"no source", map[string]any{}, "one of sample or definition"},
		{"unknown sample", map[string]any{"sample": "nope"}, "nope"},
		{"bad direction", map[string]any{"sample": "simple", "direction": "XY"}, "unknown direction"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := callToolE(ctx, session, "render_process", tt.args)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestServer_ResolveEvent(t *testing.T) {
	ctx := context.Background()
	session := connectInMemory(t, ctx, mcpserver.NewServer("test", nil))

	out := callTool(t, ctx, session, "resolve_event", map[string]any{
		"sample":  "approval",
		"step":    "Intake",
		"event":   "Received",
		"payload": `{"amount": 500}`,
	})
	routes := out["routes"].([]any)
	if len(routes) != 1 {
		t.Fatalf("routes = %v", routes)
	}
	rt := routes[0].(map[string]any)
	if rt["target"] != "Review.Execute" || rt["condition"] != "payload.amount > 100" {
		t.Errorf("route = %v", rt)
	}

	out = callTool(t, ctx, session, "resolve_event", map[string]any{
		"sample": "approval",
		"step":   "Archive",
		"event":  "Archived",
	})
	if out["stop"] != true {
		t.Errorf("Archived should stop: %v", out)
	}

	out = callTool(t, ctx, session, "resolve_event", map[string]any{
		"sample": "simplest",
		"step":   "StartStep",
		"event":  "Unknown",
	})
	if out["dropped"] != true || len(out["routes"].([]any)) != 0 {
		t.Errorf("unknown event should be dropped: %v", out)
	}
}

func TestServer_ResolveInputEvent(t *testing.T) {
	ctx := context.Background()
	session := connectInMemory(t, ctx, mcpserver.NewServer("test", nil))

	out := callTool(t, ctx, session, "resolve_event", map[string]any{
		"sample": "simple",
		"event":  samples.StartProcess,
	})
	rt := out["routes"].([]any)[0].(map[string]any)
	if rt["target"] != "StartProcessStep.Execute" {
		t.Errorf("route = %v", rt)
	}
}

func TestServer_ResolveErrors(t *testing.T) {
	ctx := context.Background()
	session := connectInMemory(t, ctx, mcpserver.NewServer("test", nil))

	if _, err := callToolE(ctx, session, "resolve_event", map[string]any{"sample": "simple"}); err == nil {
		t.Error("missing event should fail")
	}
	_, err := callToolE(ctx, session, "resolve_event", map[string]any{
		"sample": "simple", "event": samples.StartProcess, "payload": "{not json",
	})
	if err == nil || !strings.Contains(err.Error(), "not valid JSON") {
		t.Errorf("bad payload err = %v", err)
	}
	// The conditional sample's predicates only accept int payloads.
	_, err = callToolE(ctx, session, "resolve_event", map[string]any{
		"sample": "conditional", "step": "CheckValueStep", "event": "CheckValueStep_Executed", "payload": `"text"`,
	})
	if err == nil || !strings.Contains(err.Error(), "condition") {
		t.Errorf("condition error = %v", err)
	}
}

func TestServer_RunSample(t *testing.T) {
	ctx := context.Background()
	j := journal.NewMemJournal()
	srv := mcpserver.NewServer("test", j)
	session := connectInMemory(t, ctx, srv)

	out := callTool(t, ctx, session, "run_sample", map[string]any{"sample": "conditional", "payload": "7"})
	if out["status"] != journal.StatusStopped {
		t.Errorf("status = %v", out["status"])
	}
	if !strings.Contains(out["output"].(string), "Value is positive.") {
		t.Errorf("output = %q", out["output"])
	}
	if out["steps"].(float64) != 2 {
		t.Errorf("steps = %v", out["steps"])
	}

	runID := out["run_id"].(string)
	run, err := j.GetRun(ctx, runID)
	if err != nil {
		t.Fatalf("journal: %v", err)
	}
	if run.Process != "ConditionalProcess" {
		t.Errorf("journaled process = %q", run.Process)
	}
	if srv.Runs() != 1 {
		t.Errorf("Runs = %d", srv.Runs())
	}
}

func TestServer_RunSampleDefaults(t *testing.T) {
	ctx := context.Background()
	session := connectInMemory(t, ctx, mcpserver.NewServer("test", nil))

	out := callTool(t, ctx, session, "run_sample", map[string]any{"sample": "approval"})
	invoked := out["invoked"].([]any)
	if len(invoked) != 4 || invoked[1] != "Review.Execute" {
		t.Errorf("invoked = %v", invoked)
	}

	if _, err := callToolE(ctx, session, "run_sample", map[string]any{"sample": "missing"}); err == nil {
		t.Error("unknown sample should fail")
	}
}

func TestParseDirection(t *testing.T) {
	for in, want := range map[string]process.Direction{
		"":   process.LeftRight,
		"LR": process.LeftRight,
		"TD": process.TopDown,
		"RL": process.RightLeft,
		"BT": process.BottomTop,
	} {
		got, err := mcpserver.ParseDirection(in)
		if err != nil || got != want {
			t.Errorf("ParseDirection(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := mcpserver.ParseDirection("lr"); err == nil {
		t.Error("lowercase direction should be rejected")
	}
}
