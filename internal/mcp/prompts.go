// ABOUTME: MCP prompt handlers for the todo server.
// ABOUTME: Serves a todo_summary prompt built from the live todo list.

package mcp

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/2389/todo-mcp/internal/dispatch"
	"github.com/2389/todo-mcp/internal/todo"
)

const promptTodoSummary = "todo_summary"

// MCPPromptInfo describes an available prompt.
type MCPPromptInfo struct {
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	Arguments   []MCPPromptArgument `json:"arguments,omitempty"`
}

// MCPPromptArgument describes one prompt argument.
type MCPPromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// MCPListPromptsResult is the result for prompts/list.
type MCPListPromptsResult struct {
	Prompts []MCPPromptInfo `json:"prompts"`
}

// MCPGetPromptParams are the params for prompts/get.
type MCPGetPromptParams struct {
	Name      string            `json:"name"`
	Arguments map[string]string `json:"arguments,omitempty"`
}

// MCPPromptMessage is one message in a prompt result.
type MCPPromptMessage struct {
	Role    string     `json:"role"`
	Content MCPContent `json:"content"`
}

// MCPGetPromptResult is the result for prompts/get.
type MCPGetPromptResult struct {
	Description string             `json:"description,omitempty"`
	Messages    []MCPPromptMessage `json:"messages"`
}

// handlePromptsList handles prompts/list requests. Sessions lacking the
// todo capability see an empty list, as with tools/list.
func (s *Server) handlePromptsList(w http.ResponseWriter, req JSONRPCRequest, caps []string) {
	result := MCPListPromptsResult{
		Prompts: []MCPPromptInfo{},
	}
	if len(caps) == 0 || hasRequiredCapabilities(caps, todoCapabilities) {
		result.Prompts = []MCPPromptInfo{
			{
				Name:        promptTodoSummary,
				Description: "Summarize the current todo list and suggest what to do next",
				Arguments: []MCPPromptArgument{
					{Name: "focus", Description: "Optional topic to prioritize in the summary"},
				},
			},
		}
	}
	s.sendJSONRPCResult(w, req.ID, result)
}

// handlePromptsGet handles prompts/get requests.
func (s *Server) handlePromptsGet(w http.ResponseWriter, r *http.Request, req JSONRPCRequest, caps []string) {
	if !hasRequiredCapabilities(caps, todoCapabilities) {
		s.sendJSONRPCError(w, req.ID, JSONRPCInvalidRequest, "insufficient capabilities for this prompt", nil)
		return
	}

	var params MCPGetPromptParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			s.sendJSONRPCError(w, req.ID, JSONRPCInvalidParams, "invalid params", nil)
			return
		}
	}
	if params.Name != promptTodoSummary {
		s.sendJSONRPCError(w, req.ID, JSONRPCInvalidParams, "prompt not found", nil)
		return
	}

	resp := s.dispatcher.Dispatch(r.Context(), string(dispatch.OpList), nil)
	if !resp.OK {
		s.sendJSONRPCError(w, req.ID, JSONRPCInternalError, "failed to read todos", nil)
		return
	}

	var listed struct {
		Todos []*todo.Todo `json:"todos"`
	}
	if err := json.Unmarshal(resp.Result, &listed); err != nil {
		s.sendJSONRPCError(w, req.ID, JSONRPCInternalError, "failed to decode todos", nil)
		return
	}

	text := buildSummaryPrompt(listed.Todos, params.Arguments["focus"])
	result := MCPGetPromptResult{
		Description: "Todo list summary request",
		Messages: []MCPPromptMessage{
			{Role: "user", Content: MCPContent{Type: "text", Text: text}},
		},
	}
	s.sendJSONRPCResult(w, req.ID, result)
}

// buildSummaryPrompt renders the user-facing prompt text.
func buildSummaryPrompt(todos []*todo.Todo, focus string) string {
	var b strings.Builder
	b.WriteString("Please summarize this todo list and suggest what to work on next.\n")
	if focus != "" {
		fmt.Fprintf(&b, "Prioritize anything related to: %s\n", focus)
	}
	b.WriteString("\n")

	if len(todos) == 0 {
		b.WriteString("The list is empty.\n")
		return b.String()
	}

	for _, t := range todos {
		status := "pending"
		if t.Completed {
			status = "completed"
		}
		fmt.Fprintf(&b, "- [%s] %s (id %s)\n", status, t.Title, t.ID)
	}
	return b.String()
}
