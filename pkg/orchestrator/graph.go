// Package orchestrator implements the Workflow Orchestrator (C6): a
// bounded state graph over intent/route/llm/tool/validate/synth/end
// nodes, an append-only checkpoint journal for crash recovery, and
// tool dispatch gated by a circuit-breaker-aware capability router.
package orchestrator

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// Node names the bounded state graph's fixed vertex set.
const (
	NodeIntent   = "intent"
	NodeRoute    = "route"
	NodeLLM      = "llm"
	NodeTool     = "tool"
	NodeValidate = "validate"
	NodeSynth    = "synth"
	NodeEnd      = "end"
)

// Edge is a directed transition with an optional CEL guard evaluated
// against the conversation state snapshot. An empty Guard always
// matches; Edges are tried in the order they were added, and the first
// matching guard wins.
type Edge struct {
	From  string
	To    string
	Guard string
}

// Graph is the compiled bounded state graph.
type Graph struct {
	edges   []Edge
	env     *cel.Env
	program map[string]cel.Program
}

// NewGraph compiles edges' CEL guards against a "state" variable of
// dynamic type, the same binding shape a CEL-based policy evaluator
// uses for authorization rules, reused here for routing guards instead.
func NewGraph(edges []Edge) (*Graph, error) {
	env, err := cel.NewEnv(cel.Variable("state", cel.DynType))
	if err != nil {
		return nil, fmt.Errorf("orchestrator: cel environment: %w", err)
	}

	g := &Graph{edges: edges, env: env, program: make(map[string]cel.Program)}
	for _, e := range edges {
		if e.Guard == "" {
			continue
		}
		ast, issues := env.Compile(e.Guard)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("orchestrator: compiling guard %q: %w", e.Guard, issues.Err())
		}
		prg, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: programming guard %q: %w", e.Guard, err)
		}
		g.program[e.Guard] = prg
	}
	return g, nil
}

// Next evaluates outgoing edges from `from` in order and returns the
// destination of the first edge whose guard matches (or has no guard).
// It errors if no edge matches and `from` is not NodeEnd — a dead end
// in the middle of the graph is a wiring bug, not a normal outcome.
func (g *Graph) Next(from string, state map[string]any) (string, error) {
	for _, e := range g.edges {
		if e.From != from {
			continue
		}
		if e.Guard == "" {
			return e.To, nil
		}
		prg := g.program[e.Guard]
		out, _, err := prg.Eval(map[string]any{"state": state})
		if err != nil {
			return "", fmt.Errorf("orchestrator: evaluating guard %q: %w", e.Guard, err)
		}
		if matched, ok := out.Value().(bool); ok && matched {
			return e.To, nil
		}
	}
	if from == NodeEnd {
		return NodeEnd, nil
	}
	return "", fmt.Errorf("orchestrator: no matching edge from node %q", from)
}

// DefaultEdges is the standard intent -> route -> llm <-> tool ->
// validate -> synth -> end shape: the llm/tool loop continues only
// while pending_tool_calls remain non-empty, matching the
// ConversationState invariant that remaining_hops strictly decreases.
func DefaultEdges() []Edge {
	return []Edge{
		{From: NodeIntent, To: NodeRoute},
		{From: NodeRoute, To: NodeLLM},
		{From: NodeLLM, To: NodeTool, Guard: `size(state.pending_tool_calls) > 0 && state.cycle_count < state.max_cycles`},
		{From: NodeLLM, To: NodeValidate},
		{From: NodeTool, To: NodeLLM},
		{From: NodeValidate, To: NodeSynth},
		{From: NodeSynth, To: NodeEnd},
	}
}
