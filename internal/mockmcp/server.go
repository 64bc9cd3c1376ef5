// Package mockmcp ships a small MCP server and a matching traffic generator.
// Together they form a self-contained workload: the traffic sweep spawns the
// server over stdio and exercises every message family once, giving the
// observer under test a predictable stream to capture.
package mockmcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"spycheck/pkg/logging"
)

const subsystem = "mockmcp"

const (
	serverName    = "spycheck-mock"
	serverVersion = "1.0.0"
)

// Server is a stdio MCP server with a fixed set of tools, resources and
// prompts. Responses are deterministic so captured traffic can be compared
// against committed baselines.
type Server struct {
	mcp      *server.MCPServer
	started  time.Time
	requests atomic.Int64
}

// NewServer creates the mock server and registers its capabilities.
func NewServer() *Server {
	s := &Server{started: time.Now()}

	s.mcp = server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, true),
		server.WithPromptCapabilities(true),
	)

	s.mcp.AddTool(mcp.Tool{
		Name:        "get_weather",
		Description: "Get canned weather information for a city",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"city": map[string]interface{}{
					"type":        "string",
					"description": "Name of the city",
				},
				"units": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"metric", "imperial", "kelvin"},
					"description": "Temperature units",
				},
			},
			Required: []string{"city"},
		},
	}, s.handleGetWeather)

	s.mcp.AddTool(mcp.Tool{
		Name:        "process_data",
		Description: "Transform a list of strings, reporting progress per item",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"items": map[string]interface{}{
					"type": "array",
					"items": map[string]interface{}{
						"type": "string",
					},
					"description": "Items to transform",
				},
				"operation": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"uppercase", "lowercase", "reverse"},
					"description": "Transformation to apply",
				},
			},
			Required: []string{"items", "operation"},
		},
	}, s.handleProcessData)

	s.mcp.AddResource(mcp.Resource{
		URI:         "status://server",
		Name:        "Server status",
		Description: "Health and usage counters of the mock server",
		MIMEType:    "application/json",
	}, s.handleStatusResource)

	s.mcp.AddResourceTemplate(mcp.NewResourceTemplate(
		"logs://{name}",
		"Server logs",
		mcp.WithTemplateDescription("Canned log files by name"),
		mcp.WithTemplateMIMEType("text/plain"),
	), s.handleLogResource)

	s.mcp.AddPrompt(mcp.Prompt{
		Name:        "code_review",
		Description: "Build a review request for a snippet of code",
		Arguments: []mcp.PromptArgument{
			{Name: "code", Description: "Code to review", Required: true},
			{Name: "language", Description: "Language of the snippet"},
		},
	}, s.handleCodeReviewPrompt)

	return s
}

// Serve runs the server on stdin and stdout until the client disconnects.
// Everything written to stdout is protocol traffic, so callers must route
// logging elsewhere first.
func (s *Server) Serve() error {
	logging.Debug(subsystem, "Serving %s %s on stdio", serverName, serverVersion)
	return server.ServeStdio(s.mcp)
}

func (s *Server) handleGetWeather(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.requests.Add(1)

	city, err := request.RequireString("city")
	if err != nil {
		return mcp.NewToolResultError("city parameter is required"), nil
	}

	var temp int
	var unit string
	switch request.GetString("units", "metric") {
	case "imperial":
		temp, unit = 68, "°F"
	case "kelvin":
		temp, unit = 293, "K"
	default:
		temp, unit = 20, "°C"
	}

	return mcp.NewToolResultText(fmt.Sprintf("Weather in %s: %d%s", city, temp, unit)), nil
}

func (s *Server) handleProcessData(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.requests.Add(1)

	args := request.GetArguments()
	rawItems, ok := args["items"].([]interface{})
	if !ok {
		return mcp.NewToolResultError("items must be an array of strings"), nil
	}
	operation, _ := args["operation"].(string)

	results := make([]string, 0, len(rawItems))
	for i, raw := range rawItems {
		item := fmt.Sprintf("%v", raw)
		switch operation {
		case "uppercase":
			item = strings.ToUpper(item)
		case "lowercase":
			item = strings.ToLower(item)
		case "reverse":
			item = reverse(item)
		default:
			return mcp.NewToolResultError(fmt.Sprintf("unknown operation %q", operation)), nil
		}
		results = append(results, item)

		s.reportProgress(ctx, request, i+1, len(rawItems))
	}

	jsonData, err := json.Marshal(results)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format results: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Processed %d items: %s", len(results), jsonData)), nil
}

// reportProgress emits a progress notification when the caller asked for one.
func (s *Server) reportProgress(ctx context.Context, request mcp.CallToolRequest, done, total int) {
	if request.Params.Meta == nil || request.Params.Meta.ProgressToken == nil {
		return
	}

	err := s.mcp.SendNotificationToClient(ctx, "notifications/progress", map[string]any{
		"progressToken": request.Params.Meta.ProgressToken,
		"progress":      done,
		"total":         total,
	})
	if err != nil {
		logging.Warn(subsystem, "Failed to send progress notification: %v", err)
	}
}

func (s *Server) handleStatusResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	status := map[string]interface{}{
		"status":             "healthy",
		"uptime_seconds":     int(time.Since(s.started).Seconds()),
		"requests_processed": s.requests.Load(),
	}

	jsonData, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to format status: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}

// Canned log bodies served through the logs://{name} template.
var cannedLogs = map[string]string{
	"startup":  "listener ready\ncapabilities registered\n",
	"selftest": "selftest passed in 4ms\n",
}

func (s *Server) handleLogResource(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	name := strings.TrimPrefix(request.Params.URI, "logs://")
	body, ok := cannedLogs[name]
	if !ok {
		return nil, fmt.Errorf("unknown log %q", name)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "text/plain",
			Text:     body,
		},
	}, nil
}

func (s *Server) handleCodeReviewPrompt(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	code := request.Params.Arguments["code"]
	if code == "" {
		return nil, fmt.Errorf("code argument is required")
	}
	language := request.Params.Arguments["language"]
	if language == "" {
		language = "go"
	}

	text := fmt.Sprintf("Review the following %s code for correctness, style and performance:\n\n```%s\n%s\n```", language, language, code)

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Code review request (%s)", language),
		Messages: []mcp.PromptMessage{
			mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(text)),
		},
	}, nil
}

func reverse(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}
