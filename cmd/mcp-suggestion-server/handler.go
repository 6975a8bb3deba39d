package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var httpClient = &http.Client{Timeout: 30 * time.Second}

// SuggestionParams identifies the suggestion a tool call operates on.
type SuggestionParams struct {
	ID string `json:"id" jsonschema:"The suggestion ID"`
}

// ListParams carries no fields; list_suggestions takes no arguments.
type ListParams struct{}

// HandleApplySuggestion handles the apply_suggestion tool call.
func HandleApplySuggestion(
	ctx context.Context,
	req *mcp.CallToolRequest,
	params SuggestionParams,
) (*mcp.CallToolResult, any, error) {
	log.Printf("[MCP Suggestion Server] Received apply_suggestion request for %q", params.ID)
	if params.ID == "" {
		return nil, nil, fmt.Errorf("id parameter is required")
	}
	return callService(ctx, http.MethodPost, fmt.Sprintf("/suggestions/%s/apply", params.ID), "apply")
}

// HandleRejectSuggestion handles the reject_suggestion tool call.
func HandleRejectSuggestion(
	ctx context.Context,
	req *mcp.CallToolRequest,
	params SuggestionParams,
) (*mcp.CallToolResult, any, error) {
	log.Printf("[MCP Suggestion Server] Received reject_suggestion request for %q", params.ID)
	if params.ID == "" {
		return nil, nil, fmt.Errorf("id parameter is required")
	}
	return callService(ctx, http.MethodPost, fmt.Sprintf("/suggestions/%s/reject", params.ID), "reject")
}

// HandleListSuggestions handles the list_suggestions tool call.
func HandleListSuggestions(
	ctx context.Context,
	req *mcp.CallToolRequest,
	params ListParams,
) (*mcp.CallToolResult, any, error) {
	log.Printf("[MCP Suggestion Server] Received list_suggestions request")
	return callService(ctx, http.MethodGet, "/suggestions", "list")
}

// callService forwards a tool call to the suggestd HTTP API and wraps the
// JSON response body as the tool result.
func callService(ctx context.Context, method, path, op string) (*mcp.CallToolResult, any, error) {
	base := strings.TrimRight(os.Getenv("SUGGESTD_URL"), "/")
	if base == "" {
		return nil, nil, fmt.Errorf("SUGGESTD_URL is not set")
	}

	req, err := http.NewRequestWithContext(ctx, method, base+path, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("build %s request: %w", op, err)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		log.Printf("[MCP Suggestion Server] %s request failed: %v", op, err)
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Error: %v", err)},
			},
			IsError: true,
		}, nil, nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s response: %w", op, err)
	}

	if resp.StatusCode >= 400 {
		log.Printf("[MCP Suggestion Server] %s returned %d: %s", op, resp.StatusCode, body)
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Error (%d): %s", resp.StatusCode, body)},
			},
			IsError: true,
		}, nil, nil
	}

	log.Printf("[MCP Suggestion Server] %s succeeded with %d", op, resp.StatusCode)
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(body)},
		},
	}, nil, nil
}
