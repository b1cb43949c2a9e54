// Command evocored is the orchestration core's process entrypoint: it
// wires configuration, observability, the audit sink, the capability
// registry, the checkpoint journal, and the workflow engine, and
// drives one conversation per "start" invocation through to a
// terminal state.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/forgeflow/evocore/pkg/audit"
	"github.com/forgeflow/evocore/pkg/config"
	"github.com/forgeflow/evocore/pkg/contracts"
	"github.com/forgeflow/evocore/pkg/observability"
	"github.com/forgeflow/evocore/pkg/orchestrator"
	"github.com/forgeflow/evocore/pkg/registry"
	"github.com/forgeflow/evocore/pkg/tenancy"
)

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		printUsage(stdout)
		return 2
	}

	switch args[1] {
	case "start":
		return runStart(args[2:], stdout, stderr)
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "evocored: unknown command %q\n", args[1])
		printUsage(stderr)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "evocored — self-evolving agent orchestration core")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "usage: evocored start --org <org_id> --conversation <id> --message <text>")
}

func runStart(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("start", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	var (
		orgID          string
		conversationID string
		message        string
	)
	cmd.StringVar(&orgID, "org", "", "owning org_id (required)")
	cmd.StringVar(&conversationID, "conversation", "", "conversation_id (required)")
	cmd.StringVar(&message, "message", "", "initial user message (required)")
	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if orgID == "" || conversationID == "" || message == "" {
		fmt.Fprintln(stderr, "evocored: --org, --conversation, and --message are required")
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()

	obs, err := observability.New(ctx, &observability.Config{
		ServiceName:  "evocored",
		Environment:  "production",
		OTLPEndpoint: cfg.OTLPEndpoint,
		SampleRate:   1.0,
		Enabled:      cfg.TracingEnabled,
	})
	if err != nil {
		fmt.Fprintf(stderr, "evocored: observability init: %v\n", err)
		return 1
	}
	defer func() { _ = obs.Shutdown(context.Background()) }()
	logger := obs.Logger()

	auditFile, err := os.OpenFile(cfg.AuditLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		logger.ErrorContext(ctx, "opening audit log", "error", err)
		return 1
	}
	defer auditFile.Close()
	auditor := audit.NewLoggerWithWriter(auditFile)
	ctx = audit.WithOrgID(ctx, orgID)

	limiter := tenancy.NewInMemoryLimiter()
	if err := tenancy.Evaluate(ctx, limiter, orgID, tenancy.Policy{RPM: 600, Burst: 20}); err != nil {
		logger.WarnContext(ctx, "rate limited", "org", orgID, "error", err)
		fmt.Fprintln(stderr, err)
		return 1
	}

	reg := registry.New()

	store, err := orchestrator.NewSQLiteCheckpointStore(cfg.CheckpointDSN)
	if err != nil {
		logger.ErrorContext(ctx, "opening checkpoint store", "error", err)
		return 1
	}
	defer store.Close()

	graph, err := orchestrator.NewGraph(orchestrator.DefaultEdges())
	if err != nil {
		logger.ErrorContext(ctx, "compiling workflow graph", "error", err)
		return 1
	}

	handlers := map[string]orchestrator.NodeHandler{
		orchestrator.NodeRoute:    routeHandler(reg),
		orchestrator.NodeValidate: passthroughHandler,
		orchestrator.NodeSynth:    passthroughHandler,
		// NodeLLM and NodeTool require a concrete llmgateway.Client and
		// capability dispatcher respectively — both are deployment-
		// specific and are injected by whatever process configures this
		// engine for a live provider/tool set, not by evocored itself.
	}
	engine := orchestrator.NewEngine(graph, store, handlers)

	initial := &contracts.ConversationState{
		ConversationID: conversationID,
		OrgID:          orgID,
		RemainingHops:  32,
		MaxCycles:      8,
		Messages:       []contracts.ConversationMessage{{Role: contracts.RoleUser, Content: message}},
	}

	final, err := engine.Start(ctx, initial)
	_ = auditor.Record(ctx, audit.EventCheckpoint, "conversation_run", conversationID, map[string]any{"last_node": final.LastCompletedNode})
	if err != nil {
		logger.ErrorContext(ctx, "conversation run failed", "error", err)
		return 1
	}

	out, _ := json.MarshalIndent(final, "", "  ")
	fmt.Fprintln(stdout, string(out))
	return 0
}

// routeHandler asks the registry for its best-scored module for the
// conversation's latest message and records the recommendation on state.
func routeHandler(reg *registry.Registry) orchestrator.NodeHandler {
	return func(ctx context.Context, state *contracts.ConversationState) ([]contracts.ConversationMessage, []contracts.PendingToolCall, error) {
		query := ""
		if len(state.Messages) > 0 {
			query = state.Messages[len(state.Messages)-1].Content
		}
		state.RouterRecommendation = reg.Recommend(query)
		return nil, nil, nil
	}
}

func passthroughHandler(ctx context.Context, state *contracts.ConversationState) ([]contracts.ConversationMessage, []contracts.PendingToolCall, error) {
	return nil, nil, nil
}
