// ABOUTME: MCP resource handlers exposing todos as readable URIs.
// ABOUTME: Serves todos://all for the full list and todo://{id} for one item.

package mcp

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/2389/todo-mcp/internal/dispatch"
	"github.com/2389/todo-mcp/internal/tools"
)

// Resource URIs served by this server.
const (
	resourceAllTodos     = "todos://all"
	resourceTodoTemplate = "todo://{id}"
	resourceTodoPrefix   = "todo://"
)

// MCPResourceInfo describes a readable resource.
type MCPResourceInfo struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

// MCPListResourcesResult is the result for resources/list.
type MCPListResourcesResult struct {
	Resources []MCPResourceInfo `json:"resources"`
}

// MCPReadResourceParams are the params for resources/read.
type MCPReadResourceParams struct {
	URI string `json:"uri"`
}

// MCPResourceContents is one entry in a resources/read result.
type MCPResourceContents struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text,omitempty"`
}

// MCPReadResourceResult is the result for resources/read.
type MCPReadResourceResult struct {
	Contents []MCPResourceContents `json:"contents"`
}

// todoCapabilities gates the todo resources and prompts, matching the
// requirement on the equivalent tools.
var todoCapabilities = []string{tools.CapabilityTodo}

// handleResourcesList handles resources/list requests. The single-item
// todo://{id} form is a template, advertised alongside the static list
// resource so clients can discover both. Like tools/list, sessions
// lacking the todo capability see an empty list.
func (s *Server) handleResourcesList(w http.ResponseWriter, req JSONRPCRequest, caps []string) {
	result := MCPListResourcesResult{
		Resources: []MCPResourceInfo{},
	}
	if len(caps) == 0 || hasRequiredCapabilities(caps, todoCapabilities) {
		result.Resources = []MCPResourceInfo{
			{
				URI:         resourceAllTodos,
				Name:        "All todos",
				Description: "Every todo item in creation order",
				MimeType:    "application/json",
			},
			{
				URI:         resourceTodoTemplate,
				Name:        "Single todo",
				Description: "One todo item by id",
				MimeType:    "application/json",
			},
		}
	}
	s.sendJSONRPCResult(w, req.ID, result)
}

// handleResourcesRead handles resources/read requests.
func (s *Server) handleResourcesRead(w http.ResponseWriter, r *http.Request, req JSONRPCRequest, caps []string) {
	if !hasRequiredCapabilities(caps, todoCapabilities) {
		s.sendJSONRPCError(w, req.ID, JSONRPCInvalidRequest, "insufficient capabilities for this resource", nil)
		return
	}

	var params MCPReadResourceParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			s.sendJSONRPCError(w, req.ID, JSONRPCInvalidParams, "invalid params", nil)
			return
		}
	}
	if params.URI == "" {
		s.sendJSONRPCError(w, req.ID, JSONRPCInvalidParams, "resource uri is required", nil)
		return
	}

	var resp dispatch.Response
	switch {
	case params.URI == resourceAllTodos:
		resp = s.dispatcher.Dispatch(r.Context(), string(dispatch.OpList), nil)
	case strings.HasPrefix(params.URI, resourceTodoPrefix):
		id := strings.TrimPrefix(params.URI, resourceTodoPrefix)
		args, err := json.Marshal(map[string]string{"id": id})
		if err != nil {
			s.sendJSONRPCError(w, req.ID, JSONRPCInternalError, "failed to build arguments", nil)
			return
		}
		resp = s.dispatcher.Dispatch(r.Context(), string(dispatch.OpGet), args)
	default:
		s.sendJSONRPCError(w, req.ID, JSONRPCInvalidParams, "unknown resource uri", nil)
		return
	}

	if !resp.OK {
		// Mirror the original server: a read of a missing todo answers with
		// an error payload rather than a protocol failure.
		errJSON, err := json.Marshal(resp.Error)
		if err != nil {
			s.sendJSONRPCError(w, req.ID, JSONRPCInternalError, "resource read failed", nil)
			return
		}
		s.sendJSONRPCResult(w, req.ID, MCPReadResourceResult{
			Contents: []MCPResourceContents{{
				URI:      params.URI,
				MimeType: "application/json",
				Text:     string(errJSON),
			}},
		})
		return
	}

	s.logger.Debug("resources/read", "uri", params.URI)

	s.sendJSONRPCResult(w, req.ID, MCPReadResourceResult{
		Contents: []MCPResourceContents{{
			URI:      params.URI,
			MimeType: "application/json",
			Text:     string(resp.Result),
		}},
	})
}
