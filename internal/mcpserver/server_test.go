package mcpserver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fyrsmithlabs/guidectl/internal/config"
	"github.com/fyrsmithlabs/guidectl/internal/orchestrator"
)

const rulesDoc = `
## Safety

[R001] never commit secrets to the repository @security #auth priority:10 (critical)
`

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Retriever.PoolDir = filepath.Join(t.TempDir(), "pool")
	cfg.Ledger.StoreDir = filepath.Join(t.TempDir(), "ledger")

	orch, err := orchestrator.New(context.Background(), cfg, nil)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "rules.md")
	require.NoError(t, os.WriteFile(path, []byte(rulesDoc), 0o644))
	_, err = orch.Compile(context.Background(), path, "")
	require.NoError(t, err)

	return New(orch)
}

func TestHandleEvaluateCommand_BlocksDestructive(t *testing.T) {
	s := newTestServer(t)
	result, _, err := s.handleEvaluateCommand(context.Background(), &mcpsdk.CallToolRequest{}, &EvaluateCommandParams{Command: "rm -rf /"})
	require.NoError(t, err)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(*mcpsdk.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "BLOCKED")
}

func TestHandleEvaluateToolUse_AllowsCleanParams(t *testing.T) {
	s := newTestServer(t)
	result, _, err := s.handleEvaluateToolUse(context.Background(), &mcpsdk.CallToolRequest{}, &EvaluateToolUseParams{
		ToolName:   "bash.run",
		ParamsJSON: `{"command": "ls"}`,
	})
	require.NoError(t, err)
	text := result.Content[0].(*mcpsdk.TextContent)
	assert.Contains(t, text.Text, "allow")
}

func TestHandleEvaluateEdit_FlagsSecret(t *testing.T) {
	s := newTestServer(t)
	result, _, err := s.handleEvaluateEdit(context.Background(), &mcpsdk.CallToolRequest{}, &EvaluateEditParams{
		Path:      "config.env",
		Content:   `apiKey: "sk-abcdefghijklmnopqrstuvwxyz012345"`,
		DiffLines: 1,
	})
	require.NoError(t, err)
	text := result.Content[0].(*mcpsdk.TextContent)
	assert.Contains(t, text.Text, "BLOCKED")
}

func TestHandleRetrievePolicy_IncludesConstitution(t *testing.T) {
	s := newTestServer(t)
	result, raw, err := s.handleRetrievePolicy(context.Background(), &mcpsdk.CallToolRequest{}, &RetrievePolicyParams{
		TaskDescription: "rotate leaked credentials",
	})
	require.NoError(t, err)
	text := result.Content[0].(*mcpsdk.TextContent)
	assert.Contains(t, text.Text, "never commit secrets")
	assert.NotNil(t, raw)
}
