// Package mcpserver exposes the orchestrator's gate and retrieval
// entry points as MCP tools over stdio, so a host agent runtime can
// call evaluate_command/evaluate_tool_use/evaluate_edit/retrieve_policy
// directly instead of shelling out to the CLI per call.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fyrsmithlabs/guidectl/internal/model"
	"github.com/fyrsmithlabs/guidectl/internal/orchestrator"
)

// Server wraps an Orchestrator behind an MCP stdio transport.
type Server struct {
	mcpServer *mcpsdk.Server
	orch      *orchestrator.Orchestrator
}

// New builds a Server around an already-wired Orchestrator.
func New(orch *orchestrator.Orchestrator) *Server {
	mcpServer := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    "guidectl",
		Version: "0.1.0",
	}, nil)

	s := &Server{mcpServer: mcpServer, orch: orch}
	s.registerTools()
	return s
}

// Run blocks serving MCP requests over stdin/stdout until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	if err := s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{}); err != nil {
		return fmt.Errorf("mcpserver: %w", err)
	}
	return nil
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "evaluate_command",
		Description: "Evaluate a shell command against the destructive-operation and diff-size gates before it runs. Returns allow/warn/require_confirmation/block with the triggered rules.",
	}, s.handleEvaluateCommand)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "evaluate_tool_use",
		Description: "Evaluate a tool invocation (name plus JSON params) against the allowlist and secret-detection gates before it runs.",
	}, s.handleEvaluateToolUse)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "evaluate_edit",
		Description: "Evaluate a file edit's content and diff size against the secret-detection and diff-size gates before it is written.",
	}, s.handleEvaluateEdit)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "retrieve_policy",
		Description: "Retrieve the assembled constitution-plus-shards policy text relevant to a task description, optionally scoped by repo path or risk class.",
	}, s.handleRetrievePolicy)
}

// EvaluateCommandParams is evaluate_command's input.
type EvaluateCommandParams struct {
	Command string `json:"command" jsonschema:"the shell command about to be executed"`
}

// EvaluateToolUseParams is evaluate_tool_use's input.
type EvaluateToolUseParams struct {
	ToolName   string `json:"tool_name" jsonschema:"name of the tool being invoked"`
	ParamsJSON string `json:"params_json" jsonschema:"the tool's call parameters, serialized as JSON"`
}

// EvaluateEditParams is evaluate_edit's input.
type EvaluateEditParams struct {
	Path      string `json:"path" jsonschema:"file path being edited"`
	Content   string `json:"content" jsonschema:"the file's new full content"`
	DiffLines int    `json:"diff_lines" jsonschema:"total added+removed lines in this edit"`
}

// RetrievePolicyParams is retrieve_policy's input.
type RetrievePolicyParams struct {
	TaskDescription string `json:"task_description" jsonschema:"free-text description of the task about to be performed"`
	Intent          string `json:"intent,omitempty" jsonschema:"override the classified intent"`
	RepoPath        string `json:"repo_path,omitempty" jsonschema:"repo path to scope-filter shards against"`
	MinRiskClass    string `json:"min_risk_class,omitempty" jsonschema:"minimum risk class to include"`
	TopK            int    `json:"top_k,omitempty" jsonschema:"maximum shards to return"`
}

func (s *Server) handleEvaluateCommand(ctx context.Context, req *mcpsdk.CallToolRequest, params *EvaluateCommandParams) (*mcpsdk.CallToolResult, any, error) {
	result := s.orch.EvaluateCommand(params.Command)
	return gateToolResult(result)
}

func (s *Server) handleEvaluateToolUse(ctx context.Context, req *mcpsdk.CallToolRequest, params *EvaluateToolUseParams) (*mcpsdk.CallToolResult, any, error) {
	result := s.orch.EvaluateToolUse(params.ToolName, params.ParamsJSON)
	return gateToolResult(result)
}

func (s *Server) handleEvaluateEdit(ctx context.Context, req *mcpsdk.CallToolRequest, params *EvaluateEditParams) (*mcpsdk.CallToolResult, any, error) {
	result := s.orch.EvaluateEdit(params.Path, params.Content, params.DiffLines)
	return gateToolResult(result)
}

func (s *Server) handleRetrievePolicy(ctx context.Context, req *mcpsdk.CallToolRequest, params *RetrievePolicyParams) (*mcpsdk.CallToolResult, any, error) {
	retrieveReq := model.RetrievalRequest{
		TaskDescription: params.TaskDescription,
		RepoPath:        params.RepoPath,
		TopK:            params.TopK,
	}
	if params.Intent != "" {
		intent := model.TaskIntent(params.Intent)
		retrieveReq.Intent = &intent
	}
	if params.MinRiskClass != "" {
		risk := model.RiskClass(params.MinRiskClass)
		retrieveReq.MinRiskClass = &risk
	}

	result, err := s.orch.Retrieve(ctx, retrieveReq)
	if err != nil {
		return nil, nil, fmt.Errorf("retrieve_policy: %w", err)
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: result.PolicyText}},
	}, result, nil
}

// gateToolResult renders a GateResult as both a human-readable summary
// (for the agent's transcript) and the structured value (for callers
// that parse tool output programmatically).
func gateToolResult(result model.GateResult) (*mcpsdk.CallToolResult, any, error) {
	detail, err := json.Marshal(result)
	if err != nil {
		return nil, nil, fmt.Errorf("marshaling gate result: %w", err)
	}

	text := fmt.Sprintf("%s: %s", result.Decision, result.Reason)
	if result.Decision == model.DecisionBlock {
		text = fmt.Sprintf("BLOCKED: %s", result.Reason)
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: text}},
	}, json.RawMessage(detail), nil
}
