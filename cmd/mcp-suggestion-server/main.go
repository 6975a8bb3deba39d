package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func main() {
	// 1. Validate required environment variables
	if os.Getenv("SUGGESTD_URL") == "" {
		log.Fatalf("[MCP Suggestion Server] Missing required environment variable: SUGGESTD_URL")
	}

	log.Println("[MCP Suggestion Server] Starting Suggestion MCP Server v1.0.0")
	log.Printf("[MCP Suggestion Server] Service URL: %s", os.Getenv("SUGGESTD_URL"))

	// 2. Create MCP server
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "suggestion-server",
		Version: "v1.0.0",
	}, nil)

	// 3. Register suggestion tools
	mcp.AddTool(server, &mcp.Tool{
		Name:        "apply_suggestion",
		Description: "Apply a registered code review suggestion: creates the fix branch, commits the patch and opens a pull request",
	}, HandleApplySuggestion)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "reject_suggestion",
		Description: "Reject a registered code review suggestion without touching the repository",
	}, HandleRejectSuggestion)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_suggestions",
		Description: "List all registered code review suggestions with their current status",
	}, HandleListSuggestions)
	log.Println("[MCP Suggestion Server] Registered tools: apply_suggestion, reject_suggestion, list_suggestions")

	// 4. Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("[MCP Suggestion Server] Received shutdown signal")
		cancel()
	}()

	// 5. Start server with stdio transport
	log.Println("[MCP Suggestion Server] Starting on stdio transport...")
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		log.Fatalf("[MCP Suggestion Server] Server error: %v", err)
	}
	log.Println("[MCP Suggestion Server] Server stopped gracefully")
}
