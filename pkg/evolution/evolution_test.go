package evolution

import (
	"context"
	"testing"
	"time"

	"github.com/forgeflow/evocore/pkg/artifacts"
	"github.com/forgeflow/evocore/pkg/contracts"
	"github.com/forgeflow/evocore/pkg/llmgateway"
	"github.com/forgeflow/evocore/pkg/sandbox"
	"github.com/forgeflow/evocore/pkg/validator"
	"github.com/stretchr/testify/require"
)

func TestNewJobIDDeterministic(t *testing.T) {
	a := NewJobID("org-1", "billing/stripe-adapter", `{"stage":"scaffold"}`)
	b := NewJobID("org-1", "billing/stripe-adapter", `{"stage":"scaffold"}`)
	require.Equal(t, a, b)

	c := NewJobID("org-1", "billing/stripe-adapter", `{"stage":"implement"}`)
	require.NotEqual(t, a, c)
}

func TestBuildSessionRecordAttemptAdvancesStage(t *testing.T) {
	session := NewSession("org-1", "mod-1", "{}", time.Now())
	require.Equal(t, StageScaffold, session.Stage)

	validated := &contracts.ValidationReport{Status: contracts.StatusValidated}
	session.RecordAttempt(validated, "sha-1", "fp-1", "v1", time.Now())
	require.Equal(t, StageTest, session.Stage)
	require.Equal(t, contracts.TerminationValidated, session.Termination)
	require.Len(t, session.Attempts, 1)
}

func TestThrashDetectorFlagsRepeatedFingerprint(t *testing.T) {
	d := NewThrashDetector(0) // unset -> defaults to 2, the spec threshold
	require.False(t, d.Observe("fp-a"))
	require.True(t, d.Observe("fp-a"))
}

func TestThrashDetectorResetsOnNewFingerprint(t *testing.T) {
	d := NewThrashDetector(2)
	require.False(t, d.Observe("fp-a"))
	require.False(t, d.Observe("fp-b"))
	require.False(t, d.Observe("fp-a"))
}

func TestBlueprintScoreConfidenceWeighting(t *testing.T) {
	perfect := BlueprintScore{Completeness: 1, Feasibility: 1, EdgeCaseCoverage: 1, Efficiency: 1}
	require.InDelta(t, 1.0, perfect.Confidence(), 1e-9)

	weak := BlueprintScore{Completeness: 0, Feasibility: 0, EdgeCaseCoverage: 1, Efficiency: 1}
	require.Less(t, weak.Confidence(), MinConfidenceToAttempt)
}

func TestInstallModuleRejectsHashMismatch(t *testing.T) {
	files := []artifacts.File{{Path: "main.go", Bytes: []byte("package main")}}
	bundle, err := artifacts.BuildBundle(files)
	require.NoError(t, err)

	install := contracts.AttestedInstall{ModuleID: "m1", BundleSHA256: bundle.BundleSHA256, Status: contracts.StatusValidated}
	tampered := []artifacts.File{{Path: "main.go", Bytes: []byte("package main // tampered")}}

	err = InstallModule(install, tampered)
	require.Error(t, err)
	var rejectErr *InstallRejectError
	require.ErrorAs(t, err, &rejectErr)
	require.Equal(t, contracts.RejectHashMismatch, rejectErr.Reason)
}

func TestInstallModuleRejectsNotValidated(t *testing.T) {
	files := []artifacts.File{{Path: "main.go", Bytes: []byte("package main")}}
	bundle, err := artifacts.BuildBundle(files)
	require.NoError(t, err)

	install := contracts.AttestedInstall{ModuleID: "m1", BundleSHA256: bundle.BundleSHA256, Status: contracts.StatusFailed}
	err = InstallModule(install, files)
	require.Error(t, err)
	var rejectErr *InstallRejectError
	require.ErrorAs(t, err, &rejectErr)
	require.Equal(t, contracts.RejectNotValidated, rejectErr.Reason)
}

func TestInstallModuleAccepts(t *testing.T) {
	files := []artifacts.File{{Path: "main.go", Bytes: []byte("package main")}}
	bundle, err := artifacts.BuildBundle(files)
	require.NoError(t, err)

	install := contracts.AttestedInstall{ModuleID: "m1", BundleSHA256: bundle.BundleSHA256, Status: contracts.StatusValidated}
	require.NoError(t, InstallModule(install, files))
}

// --- repair loop integration ---

type stubGatewayClient struct {
	contents []string
	idx      int
}

func (c *stubGatewayClient) Name() string { return "stub" }

func (c *stubGatewayClient) Chat(ctx context.Context, messages []llmgateway.Message, tools []llmgateway.ToolDefinition, options *llmgateway.SamplingOptions) (*llmgateway.Response, error) {
	content := c.contents[c.idx]
	if c.idx < len(c.contents)-1 {
		c.idx++
	}
	return &llmgateway.Response{Content: content, PromptTokens: 10, OutputTokens: 10}, nil
}

func TestRunRepairLoopSucceedsWhenValidationPasses(t *testing.T) {
	validContract := `{"stage":"implement","module_id":"m1","changed_files":[{"path":"gen.go","content":"package gen\n\nimport \"fmt\"\n\nfunc Run() { fmt.Println(1) }\n"}],"policy_profile":"default"}`
	client := &stubGatewayClient{contents: []string{validContract}}
	gw := llmgateway.New(llmgateway.Lane{Name: "implement", Chain: []llmgateway.Client{client}, Policy: llmgateway.BackoffPolicy{BaseMs: 1, MaxMs: 1, MaxJitterMs: 0, MaxAttempts: 1}})

	v := validator.New(sandbox.NewRunner(nil))
	deps := RepairDeps{
		Gateway:  gw,
		Lane:     "implement",
		Validator: v,
		Compiler: compileFromSource{},
	}
	session := NewSession("org-1", "m1", "{}", time.Now())

	report, err := RunRepairLoop(context.Background(), deps, session, nil, sandbox.DefaultProfile(), nil, 3)
	require.NoError(t, err)
	require.NotNil(t, report)
}

type compileFromSource struct{}

func (compileFromSource) Compile(ctx context.Context, moduleID string, files []artifacts.File) (*sandbox.Module, error) {
	for _, f := range files {
		return &sandbox.Module{Filename: f.Path, Source: string(f.Bytes)}, nil
	}
	return &sandbox.Module{}, nil
}
