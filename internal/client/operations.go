// ABOUTME: Typed MCP operations: tool calls, resource reads, and prompts.
// ABOUTME: Maps tool failures back onto the dispatcher's structured error kinds.

package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/2389/todo-mcp/internal/dispatch"
	"github.com/2389/todo-mcp/internal/mcp"
	"github.com/2389/todo-mcp/internal/todo"
)

// OperationError is a structured failure reported by the server for a
// tool call or resource read (as opposed to a protocol-level RPC error).
type OperationError struct {
	Kind    string
	Message string
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// IsNotFound reports whether err is an OperationError with kind NotFound.
func IsNotFound(err error) bool {
	var opErr *OperationError
	return errors.As(err, &opErr) && opErr.Kind == dispatch.KindNotFound
}

// ListTools returns the tool definitions the session may call.
func (c *Client) ListTools(ctx context.Context) ([]mcp.MCPToolInfo, error) {
	var result mcp.MCPListToolsResult
	if _, err := c.rpc(ctx, "tools/list", nil, &result); err != nil {
		return nil, err
	}
	return result.Tools, nil
}

// CallTool executes a named tool and returns the raw JSON payload of a
// successful result. Tool failures come back as *OperationError.
func (c *Client) CallTool(ctx context.Context, name string, arguments any) (json.RawMessage, error) {
	params := map[string]any{"name": name}
	if arguments != nil {
		params["arguments"] = arguments
	}

	var result mcp.MCPCallToolResult
	if _, err := c.rpc(ctx, "tools/call", params, &result); err != nil {
		return nil, err
	}
	if len(result.Content) == 0 {
		return nil, errors.New("empty tool result")
	}

	text := result.Content[0].Text
	if result.IsError {
		return nil, decodeOperationError(text)
	}
	return json.RawMessage(text), nil
}

// ReadResource reads a resource URI and returns its text contents.
// A todo://{id} read of a missing item returns *OperationError.
func (c *Client) ReadResource(ctx context.Context, uri string) (string, error) {
	params := map[string]any{"uri": uri}

	var result mcp.MCPReadResourceResult
	if _, err := c.rpc(ctx, "resources/read", params, &result); err != nil {
		return "", err
	}
	if len(result.Contents) == 0 {
		return "", errors.New("empty resource contents")
	}

	text := result.Contents[0].Text
	// Resource reads smuggle failures inside the contents; surface them.
	var opErr dispatch.Error
	if err := json.Unmarshal([]byte(text), &opErr); err == nil && opErr.Kind != "" {
		return "", &OperationError{Kind: opErr.Kind, Message: opErr.Message}
	}
	return text, nil
}

// GetPrompt fetches a prompt and returns the rendered text of its first
// message.
func (c *Client) GetPrompt(ctx context.Context, name string, arguments map[string]string) (string, error) {
	params := map[string]any{"name": name}
	if len(arguments) > 0 {
		params["arguments"] = arguments
	}

	var result mcp.MCPGetPromptResult
	if _, err := c.rpc(ctx, "prompts/get", params, &result); err != nil {
		return "", err
	}
	if len(result.Messages) == 0 {
		return "", errors.New("empty prompt result")
	}
	return result.Messages[0].Content.Text, nil
}

// Todo convenience wrappers over CallTool.

// AddTodo creates a todo with the given title.
func (c *Client) AddTodo(ctx context.Context, title string) (*todo.Todo, error) {
	return c.todoCall(ctx, "add_todo", map[string]string{"title": title})
}

// CompleteTodo marks a todo as completed.
func (c *Client) CompleteTodo(ctx context.Context, id string) (*todo.Todo, error) {
	return c.todoCall(ctx, "complete_todo", map[string]string{"id": id})
}

// GetTodo fetches one todo by id.
func (c *Client) GetTodo(ctx context.Context, id string) (*todo.Todo, error) {
	return c.todoCall(ctx, "get_todo", map[string]string{"id": id})
}

// DeleteTodo removes a todo by id.
func (c *Client) DeleteTodo(ctx context.Context, id string) error {
	_, err := c.CallTool(ctx, "delete_todo", map[string]string{"id": id})
	return err
}

// ListTodos returns all todos in creation order.
func (c *Client) ListTodos(ctx context.Context) ([]*todo.Todo, error) {
	raw, err := c.CallTool(ctx, "list_todos", map[string]string{})
	if err != nil {
		return nil, err
	}

	var listed struct {
		Todos []*todo.Todo `json:"todos"`
	}
	if err := json.Unmarshal(raw, &listed); err != nil {
		return nil, fmt.Errorf("decoding todo list: %w", err)
	}
	return listed.Todos, nil
}

func (c *Client) todoCall(ctx context.Context, tool string, args map[string]string) (*todo.Todo, error) {
	raw, err := c.CallTool(ctx, tool, args)
	if err != nil {
		return nil, err
	}

	var t todo.Todo
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("decoding todo: %w", err)
	}
	return &t, nil
}

func decodeOperationError(text string) error {
	var opErr dispatch.Error
	if err := json.Unmarshal([]byte(text), &opErr); err != nil || opErr.Kind == "" {
		return &OperationError{Kind: "Unknown", Message: text}
	}
	return &OperationError{Kind: opErr.Kind, Message: opErr.Message}
}
