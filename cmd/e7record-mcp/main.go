// Command e7record-mcp exposes the records API as an MCP tool over stdio.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// recordsRequest mirrors the records API request model.
type recordsRequest struct {
	URL    string `json:"url,omitempty"`
	Format string `json:"format"`
}

// errorResponse is the body the API sends on failure.
type errorResponse struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func main() {
	apiURL := os.Getenv("E7RECORD_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("E7RECORD_API_KEY")

	s := server.NewMCPServer(
		"e7record",
		"0.1.0",
		server.WithToolCapabilities(false),
	)

	tool := mcp.NewTool("battle_records",
		mcp.WithDescription("Render a match-history page in a headless browser and return its battles as CSV, one row per battle: both teams' picks, bans, prebans and the win flag."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The match-history page URL"),
		),
	)
	s.AddTool(tool, handleBattleRecords(strings.TrimRight(apiURL, "/"), apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func handleBattleRecords(apiURL, apiKey string) server.ToolHandlerFunc {
	// A pass includes a full browser render plus the settle delay.
	client := &http.Client{Timeout: 120 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		body, err := json.Marshal(recordsRequest{URL: url, Format: "csv"})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal request: %v", err)), nil
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+"/api/v1/records", bytes.NewReader(body))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to create request: %v", err)), nil
		}
		httpReq.Header.Set("Content-Type", "application/json")
		if apiKey != "" {
			httpReq.Header.Set("X-API-Key", apiKey)
		}

		resp, err := client.Do(httpReq)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("API request failed: %v", err)), nil
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to read response: %v", err)), nil
		}

		if resp.StatusCode != http.StatusOK {
			return mcp.NewToolResultError(apiError(resp.StatusCode, respBody)), nil
		}
		return mcp.NewToolResultText(string(respBody)), nil
	}
}

func apiError(status int, body []byte) string {
	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Error != nil {
		return fmt.Sprintf("[%s] %s", er.Error.Code, er.Error.Message)
	}
	return fmt.Sprintf("records API returned status %d", status)
}
