// Package probe implements the two protocol probes used to check a server:
// a JSON-RPC 2.0 tools/list call against its MCP endpoint and a plain HTTP
// GET against its REST health endpoint. Probes never return errors for
// expected failure modes; every outcome is captured on the result type.
package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/statuskit/statusd/internal/config"
	"github.com/statuskit/statusd/internal/domain"
)

const methodToolsList = "tools/list"

// maxResponseBytes bounds how much of a probe response is read, so a
// misbehaving server cannot exhaust memory.
const maxResponseBytes = 4 << 20

// MCPProbe checks a server by listing its tools over JSON-RPC 2.0.
// NewMCPProbe should be used to create instances of MCPProbe.
type MCPProbe struct {
	logger hclog.Logger
	client *http.Client
}

// NewMCPProbe creates an MCP probe. The supplied client may be nil, in which
// case a default client is used; per-probe timeouts come from the server
// entry, not the client.
func NewMCPProbe(logger hclog.Logger, client *http.Client) *MCPProbe {
	if client == nil {
		client = &http.Client{}
	}
	return &MCPProbe{
		logger: logger.Named("probe-mcp"),
		client: client,
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	ID      string `json:"id"`
}

type rpcEnvelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Probe performs a single tools/list check against the server's MCP endpoint.
// All failure modes are captured on the returned result.
func (p *MCPProbe) Probe(ctx context.Context, entry config.ServerEntry) domain.MCPHealthCheckResult {
	requestID := uuid.NewString()
	result := domain.MCPHealthCheckResult{
		ServerName: entry.Name,
		Timestamp:  time.Now().UTC(),
		RequestID:  requestID,
	}

	payload, err := json.Marshal(rpcRequest{
		JSONRPC: mcp.JSONRPC_VERSION,
		Method:  methodToolsList,
		ID:      requestID,
	})
	if err != nil {
		result.ConnectionError = fmt.Sprintf("failed to encode request: %v", err)
		return result
	}

	probeCtx, cancel := context.WithTimeout(ctx, entry.MCPTimeout())
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodPost, entry.MCPEndpoint, bytes.NewReader(payload))
	if err != nil {
		result.ConnectionError = fmt.Sprintf("failed to build request: %v", err)
		return result
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if entry.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+entry.AuthToken)
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	result.ResponseTime = time.Since(start)
	if err != nil {
		result.ConnectionError = connectionErrorString(probeCtx, err)
		p.logger.Debug("MCP probe failed", "server", entry.Name, "error", result.ConnectionError)
		return result
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	result.ResponseTime = time.Since(start)
	if err != nil {
		result.ConnectionError = connectionErrorString(probeCtx, err)
		return result
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		result.ConnectionError = fmt.Sprintf("unexpected HTTP status %d from MCP endpoint", resp.StatusCode)
		return result
	}

	p.validateEnvelope(&result, entry, body)
	return result
}

// validateEnvelope checks the JSON-RPC response shape and the expected tool
// set, populating validation errors and the success flag on the result.
func (p *MCPProbe) validateEnvelope(result *domain.MCPHealthCheckResult, entry config.ServerEntry, body []byte) {
	var env rpcEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		result.ValidationErrors = append(result.ValidationErrors, fmt.Sprintf("response is not valid JSON: %v", err))
		return
	}

	result.JSONRPCVersion = env.JSONRPC

	if env.JSONRPC != mcp.JSONRPC_VERSION {
		result.ValidationErrors = append(result.ValidationErrors,
			fmt.Sprintf("invalid jsonrpc version: '%s'", env.JSONRPC))
	}

	if env.Error != nil {
		result.ValidationErrors = append(result.ValidationErrors,
			fmt.Sprintf("server returned JSON-RPC error %d: %s", env.Error.Code, env.Error.Message))
		return
	}

	var echoedID string
	if len(env.ID) > 0 {
		if err := json.Unmarshal(env.ID, &echoedID); err == nil && echoedID != result.RequestID {
			result.ValidationErrors = append(result.ValidationErrors,
				fmt.Sprintf("response id '%s' does not match request id", echoedID))
		}
	}

	if len(env.Result) == 0 {
		result.ValidationErrors = append(result.ValidationErrors, "result is missing")
		return
	}

	var resultObj map[string]json.RawMessage
	if err := json.Unmarshal(env.Result, &resultObj); err != nil {
		result.ValidationErrors = append(result.ValidationErrors, "result is not an object")
		return
	}

	toolsRaw, ok := resultObj["tools"]
	if !ok {
		result.ValidationErrors = append(result.ValidationErrors, "result.tools is missing")
		return
	}

	var tools []mcp.Tool
	if err := json.Unmarshal(toolsRaw, &tools); err != nil {
		result.ValidationErrors = append(result.ValidationErrors, "result.tools is not a list of tools")
		return
	}

	result.ToolsCount = len(tools)

	found := make([]string, 0, len(tools))
	for i, tool := range tools {
		if tool.Name == "" {
			result.ValidationErrors = append(result.ValidationErrors, fmt.Sprintf("tool at index %d has no name", i))
			continue
		}
		if tool.Description == "" {
			result.ValidationErrors = append(result.ValidationErrors,
				fmt.Sprintf("tool '%s' has no description", tool.Name))
		}
		found = append(found, tool.Name)
	}

	for _, expected := range entry.ExpectedTools {
		if slices.Contains(found, expected) {
			result.ExpectedToolsFound = append(result.ExpectedToolsFound, expected)
		} else {
			result.MissingTools = append(result.MissingTools, expected)
		}
	}

	result.Success = len(result.ValidationErrors) == 0 && len(result.MissingTools) == 0
}

// connectionErrorString normalizes transport failures, reporting timeouts
// distinctly from other network errors.
func connectionErrorString(ctx context.Context, err error) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	return err.Error()
}
