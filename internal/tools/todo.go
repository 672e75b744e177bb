// ABOUTME: Todo pack exposing the todo operations as MCP tools.
// ABOUTME: Requires the "todo" capability when auth is enabled.

package tools

import (
	"context"
	"encoding/json"

	"github.com/2389/todo-mcp/internal/dispatch"
)

// CapabilityTodo gates the todo tools when authentication is enabled.
const CapabilityTodo = "todo"

// TodoPack creates the todo pack backed by the given dispatcher.
func TodoPack(d *dispatch.Dispatcher) *Pack {
	return &Pack{
		ID: "builtin:todo",
		Tools: []*Tool{
			{
				Definition: &Definition{
					Name:                 "add_todo",
					Description:          "Add a new to-do item",
					InputSchema:          json.RawMessage(`{"type":"object","properties":{"title":{"type":"string"}},"required":["title"]}`),
					RequiredCapabilities: []string{CapabilityTodo},
				},
				Handler: opHandler(d, dispatch.OpCreate),
			},
			{
				Definition: &Definition{
					Name:                 "list_todos",
					Description:          "List all to-do items in creation order",
					InputSchema:          json.RawMessage(`{"type":"object","properties":{}}`),
					RequiredCapabilities: []string{CapabilityTodo},
				},
				Handler: opHandler(d, dispatch.OpList),
			},
			{
				Definition: &Definition{
					Name:                 "complete_todo",
					Description:          "Mark a to-do item as completed",
					InputSchema:          json.RawMessage(`{"type":"object","properties":{"id":{"type":"string"}},"required":["id"]}`),
					RequiredCapabilities: []string{CapabilityTodo},
				},
				Handler: opHandler(d, dispatch.OpComplete),
			},
			{
				Definition: &Definition{
					Name:                 "delete_todo",
					Description:          "Delete a to-do item",
					InputSchema:          json.RawMessage(`{"type":"object","properties":{"id":{"type":"string"}},"required":["id"]}`),
					RequiredCapabilities: []string{CapabilityTodo},
				},
				Handler: opHandler(d, dispatch.OpDelete),
			},
			{
				Definition: &Definition{
					Name:                 "get_todo",
					Description:          "Get a specific to-do item",
					InputSchema:          json.RawMessage(`{"type":"object","properties":{"id":{"type":"string"}},"required":["id"]}`),
					RequiredCapabilities: []string{CapabilityTodo},
				},
				Handler: opHandler(d, dispatch.OpGet),
			},
		},
	}
}

// opHandler binds a dispatcher operation as a tool handler.
func opHandler(d *dispatch.Dispatcher, op dispatch.Op) Handler {
	return func(ctx context.Context, input json.RawMessage) dispatch.Response {
		return d.Dispatch(ctx, string(op), input)
	}
}
