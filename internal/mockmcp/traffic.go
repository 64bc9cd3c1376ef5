package mockmcp

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"

	"spycheck/pkg/logging"
)

const callTimeout = 15 * time.Second

// RunTraffic spawns the given MCP server command on stdio and sends one
// request of every message family: initialize, tool listing and calls,
// resource reads, a prompt fetch and a ping. The server process is torn
// down before it returns.
func RunTraffic(ctx context.Context, serverArgv []string) error {
	if len(serverArgv) == 0 {
		return fmt.Errorf("no server command given")
	}

	tr := transport.NewStdio(serverArgv[0], nil, serverArgv[1:]...)
	cli := client.NewClient(tr)

	if err := cli.Start(ctx); err != nil {
		return fmt.Errorf("failed to start MCP server %q: %w", serverArgv[0], err)
	}
	defer cli.Close()

	cli.OnNotification(func(notification mcp.JSONRPCNotification) {
		logging.Debug(subsystem, "Notification: %s", notification.Method)
	})

	if err := initialize(ctx, cli); err != nil {
		return err
	}
	if err := sweepTools(ctx, cli); err != nil {
		return err
	}
	if err := sweepResources(ctx, cli); err != nil {
		return err
	}
	if err := sweepPrompts(ctx, cli); err != nil {
		return err
	}

	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	if err := cli.Ping(callCtx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}

	logging.Info(subsystem, "Traffic sweep completed")
	return nil
}

func initialize(ctx context.Context, cli *client.Client) error {
	initCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	req := mcp.InitializeRequest{
		Params: struct {
			ProtocolVersion string                 `json:"protocolVersion"`
			Capabilities    mcp.ClientCapabilities `json:"capabilities"`
			ClientInfo      mcp.Implementation     `json:"clientInfo"`
		}{
			ProtocolVersion: "2024-11-05",
			ClientInfo: mcp.Implementation{
				Name:    "spycheck-traffic",
				Version: serverVersion,
			},
			Capabilities: mcp.ClientCapabilities{},
		},
	}

	result, err := cli.Initialize(initCtx, req)
	if err != nil {
		return fmt.Errorf("initialize failed: %w", err)
	}

	logging.Debug(subsystem, "Connected to %s %s", result.ServerInfo.Name, result.ServerInfo.Version)
	return nil
}

func sweepTools(ctx context.Context, cli *client.Client) error {
	listCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	list, err := cli.ListTools(listCtx, mcp.ListToolsRequest{})
	if err != nil {
		return fmt.Errorf("tools/list failed: %w", err)
	}
	logging.Debug(subsystem, "Server exposes %d tool(s)", len(list.Tools))

	for _, tool := range list.Tools {
		if err := callTool(ctx, cli, tool.Name); err != nil {
			return err
		}
	}
	return nil
}

// callTool invokes one tool with arguments matched to its name. Unknown
// tools get a generic input so the sweep still covers them.
func callTool(ctx context.Context, cli *client.Client, name string) error {
	var args map[string]interface{}
	switch name {
	case "get_weather":
		args = map[string]interface{}{"city": "New York", "units": "metric"}
	case "process_data":
		args = map[string]interface{}{
			"items":     []string{"alpha", "beta", "gamma"},
			"operation": "uppercase",
		}
	default:
		args = map[string]interface{}{"input": "test input"}
	}

	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	req := mcp.CallToolRequest{
		Params: struct {
			Name      string    `json:"name"`
			Arguments any       `json:"arguments,omitempty"`
			Meta      *mcp.Meta `json:"_meta,omitempty"`
		}{
			Name:      name,
			Arguments: args,
		},
	}

	result, err := cli.CallTool(callCtx, req)
	if err != nil {
		return fmt.Errorf("tools/call %s failed: %w", name, err)
	}
	if result.IsError {
		return fmt.Errorf("tool %s returned an error: %s", name, firstText(result.Content))
	}

	logging.Debug(subsystem, "Tool %s: %s", name, firstText(result.Content))
	return nil
}

func sweepResources(ctx context.Context, cli *client.Client) error {
	listCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	list, err := cli.ListResources(listCtx, mcp.ListResourcesRequest{})
	if err != nil {
		return fmt.Errorf("resources/list failed: %w", err)
	}
	logging.Debug(subsystem, "Server exposes %d resource(s)", len(list.Resources))

	uris := make([]string, 0, len(list.Resources)+1)
	for _, resource := range list.Resources {
		uris = append(uris, resource.URI)
	}
	// Template resources never show up in the listing, so hit one directly.
	uris = append(uris, "logs://startup")

	for _, uri := range uris {
		readCtx, cancel := context.WithTimeout(ctx, callTimeout)
		req := mcp.ReadResourceRequest{
			Params: struct {
				URI       string         `json:"uri"`
				Arguments map[string]any `json:"arguments,omitempty"`
			}{
				URI: uri,
			},
		}
		result, err := cli.ReadResource(readCtx, req)
		cancel()
		if err != nil {
			return fmt.Errorf("resources/read %s failed: %w", uri, err)
		}
		logging.Debug(subsystem, "Resource %s: %d content block(s)", uri, len(result.Contents))
	}
	return nil
}

func sweepPrompts(ctx context.Context, cli *client.Client) error {
	listCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	list, err := cli.ListPrompts(listCtx, mcp.ListPromptsRequest{})
	if err != nil {
		return fmt.Errorf("prompts/list failed: %w", err)
	}
	logging.Debug(subsystem, "Server exposes %d prompt(s)", len(list.Prompts))

	for _, prompt := range list.Prompts {
		var args map[string]string
		if prompt.Name == "code_review" {
			args = map[string]string{
				"code":     "func hello() { fmt.Println(\"hello\") }",
				"language": "go",
			}
		} else {
			args = map[string]string{"input": "test input"}
		}

		getCtx, cancel := context.WithTimeout(ctx, callTimeout)
		req := mcp.GetPromptRequest{
			Params: struct {
				Name      string            `json:"name"`
				Arguments map[string]string `json:"arguments,omitempty"`
			}{
				Name:      prompt.Name,
				Arguments: args,
			},
		}
		result, err := cli.GetPrompt(getCtx, req)
		cancel()
		if err != nil {
			return fmt.Errorf("prompts/get %s failed: %w", prompt.Name, err)
		}
		logging.Debug(subsystem, "Prompt %s: %d message(s)", prompt.Name, len(result.Messages))
	}
	return nil
}

func firstText(contents []mcp.Content) string {
	for _, content := range contents {
		if textContent, ok := mcp.AsTextContent(content); ok {
			return textContent.Text
		}
	}
	return ""
}
