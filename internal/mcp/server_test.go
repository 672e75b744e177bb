// ABOUTME: Tests for the MCP HTTP server including tool listing and execution.
// ABOUTME: Validates session handling, auth, resources, prompts, and error responses.

package mcp

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/2389/todo-mcp/internal/dispatch"
	"github.com/2389/todo-mcp/internal/todo"
	"github.com/2389/todo-mcp/internal/tools"
)

// mockTokenVerifier implements auth.TokenVerifier for testing.
type mockTokenVerifier struct {
	principalID string
	err         error
}

func (m *mockTokenVerifier) Verify(token string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.principalID, nil
}

// newTestMux builds a server with the todo pack registered and returns the
// mux it is mounted on.
func newTestMux(t *testing.T, mutate func(*Config)) *http.ServeMux {
	t.Helper()

	registry := tools.NewRegistry(slog.Default())
	dispatcher := dispatch.New(todo.NewStore(), slog.Default())
	if err := registry.RegisterPack(tools.TodoPack(dispatcher)); err != nil {
		t.Fatalf("failed to register todo pack: %v", err)
	}

	cfg := Config{
		Registry:    registry,
		Dispatcher:  dispatcher,
		Logger:      slog.Default(),
		DefaultCaps: []string{tools.CapabilityTodo},
	}
	if mutate != nil {
		mutate(&cfg)
	}

	server, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	mux := http.NewServeMux()
	server.RegisterRoutes(mux)
	return mux
}

// postRPC sends one JSON-RPC request and returns the HTTP recorder.
func postRPC(t *testing.T, mux *http.ServeMux, sessionID, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/mcp", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.Header.Set("Mcp-Session-Id", sessionID)
	}
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

// initialize performs the handshake and returns the session ID.
func initialize(t *testing.T, mux *http.ServeMux) string {
	t.Helper()

	rr := postRPC(t, mux, "", `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("initialize: expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	sessionID := rr.Header().Get("Mcp-Session-Id")
	if sessionID == "" {
		t.Fatal("initialize: missing Mcp-Session-Id header")
	}
	return sessionID
}

func decodeRPC(t *testing.T, rr *httptest.ResponseRecorder) JSONRPCResponse {
	t.Helper()

	var resp JSONRPCResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

func TestInitialize(t *testing.T) {
	mux := newTestMux(t, nil)

	rr := postRPC(t, mux, "", `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr.Header().Get("Mcp-Session-Id") == "" {
		t.Error("expected Mcp-Session-Id header")
	}

	resp := decodeRPC(t, rr)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}

	result, ok := resp.Result.(map[string]any)
	if !ok {
		t.Fatalf("unexpected result type %T", resp.Result)
	}
	if result["protocolVersion"] != latestProtocolVersion {
		t.Errorf("expected protocol version %s, got %v", latestProtocolVersion, result["protocolVersion"])
	}
	info, _ := result["serverInfo"].(map[string]any)
	if info["name"] != "todo-mcp" {
		t.Errorf("unexpected server name: %v", info["name"])
	}
}

func TestPost_RequiresSession(t *testing.T) {
	mux := newTestMux(t, nil)

	rr := postRPC(t, mux, "", `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without session, got %d", rr.Code)
	}

	rr = postRPC(t, mux, "bogus-session", `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown session, got %d", rr.Code)
	}
}

func TestPost_RejectsBadJSON(t *testing.T) {
	mux := newTestMux(t, nil)

	rr := postRPC(t, mux, "", `{not json`)
	resp := decodeRPC(t, rr)
	if resp.Error == nil || resp.Error.Code != JSONRPCParseError {
		t.Errorf("expected parse error, got %+v", resp.Error)
	}

	rr = postRPC(t, mux, "", `{"jsonrpc":"1.0","id":1,"method":"initialize"}`)
	resp = decodeRPC(t, rr)
	if resp.Error == nil || resp.Error.Code != JSONRPCInvalidRequest {
		t.Errorf("expected invalid request, got %+v", resp.Error)
	}
}

func TestPost_UnsupportedProtocolVersion(t *testing.T) {
	mux := newTestMux(t, nil)
	sessionID := initialize(t, mux)

	req := httptest.NewRequest(http.MethodPost, "/mcp",
		strings.NewReader(`{"jsonrpc":"2.0","id":3,"method":"tools/list"}`))
	req.Header.Set("Mcp-Session-Id", sessionID)
	req.Header.Set("Mcp-Protocol-Version", "1999-01-01")
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unsupported version, got %d", rr.Code)
	}
}

func TestNotifications_Accepted(t *testing.T) {
	mux := newTestMux(t, nil)
	sessionID := initialize(t, mux)

	rr := postRPC(t, mux, sessionID, `{"jsonrpc":"2.0","method":"notifications/initialized"}`)
	if rr.Code != http.StatusAccepted {
		t.Errorf("expected 202 for notification, got %d", rr.Code)
	}
}

func TestToolsList(t *testing.T) {
	mux := newTestMux(t, nil)
	sessionID := initialize(t, mux)

	rr := postRPC(t, mux, sessionID, `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)
	resp := decodeRPC(t, rr)
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}

	raw, _ := json.Marshal(resp.Result)
	var result MCPListToolsResult
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	if len(result.Tools) != 5 {
		t.Fatalf("expected 5 tools, got %d", len(result.Tools))
	}
	if result.Tools[0].Name != "add_todo" {
		t.Errorf("expected add_todo first, got %s", result.Tools[0].Name)
	}
}

func TestToolsList_FiltersByCapabilities(t *testing.T) {
	mux := newTestMux(t, func(cfg *Config) {
		cfg.DefaultCaps = []string{"other"}
	})
	sessionID := initialize(t, mux)

	rr := postRPC(t, mux, sessionID, `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)
	resp := decodeRPC(t, rr)

	raw, _ := json.Marshal(resp.Result)
	var result MCPListToolsResult
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	if len(result.Tools) != 0 {
		t.Errorf("expected no tools for mismatched capability, got %d", len(result.Tools))
	}
}

// callTool runs tools/call and decodes the MCP result.
func callTool(t *testing.T, mux *http.ServeMux, sessionID, name, args string) MCPCallToolResult {
	t.Helper()

	body := `{"jsonrpc":"2.0","id":9,"method":"tools/call","params":{"name":"` + name + `","arguments":` + args + `}}`
	rr := postRPC(t, mux, sessionID, body)
	resp := decodeRPC(t, rr)
	if resp.Error != nil {
		t.Fatalf("tools/call %s: unexpected error: %+v", name, resp.Error)
	}

	raw, _ := json.Marshal(resp.Result)
	var result MCPCallToolResult
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	return result
}

func TestToolsCall_Lifecycle(t *testing.T) {
	mux := newTestMux(t, nil)
	sessionID := initialize(t, mux)

	// Create
	result := callTool(t, mux, sessionID, "add_todo", `{"title":"Buy milk"}`)
	if result.IsError {
		t.Fatalf("add_todo failed: %s", result.Content[0].Text)
	}
	var created todo.Todo
	if err := json.Unmarshal([]byte(result.Content[0].Text), &created); err != nil {
		t.Fatalf("failed to decode created todo: %v", err)
	}
	if created.Completed {
		t.Error("new todo should not be completed")
	}

	// Complete
	result = callTool(t, mux, sessionID, "complete_todo", `{"id":"`+created.ID+`"}`)
	if result.IsError {
		t.Fatalf("complete_todo failed: %s", result.Content[0].Text)
	}
	var completed todo.Todo
	if err := json.Unmarshal([]byte(result.Content[0].Text), &completed); err != nil {
		t.Fatalf("failed to decode completed todo: %v", err)
	}
	if !completed.Completed {
		t.Error("todo should be completed")
	}

	// List has exactly one item
	result = callTool(t, mux, sessionID, "list_todos", `{}`)
	var listed struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal([]byte(result.Content[0].Text), &listed); err != nil {
		t.Fatalf("failed to decode list: %v", err)
	}
	if listed.Count != 1 {
		t.Errorf("expected 1 todo, got %d", listed.Count)
	}

	// Delete, then list is empty
	result = callTool(t, mux, sessionID, "delete_todo", `{"id":"`+created.ID+`"}`)
	if result.IsError {
		t.Fatalf("delete_todo failed: %s", result.Content[0].Text)
	}
	result = callTool(t, mux, sessionID, "list_todos", `{}`)
	if err := json.Unmarshal([]byte(result.Content[0].Text), &listed); err != nil {
		t.Fatalf("failed to decode list: %v", err)
	}
	if listed.Count != 0 {
		t.Errorf("expected empty list, got %d", listed.Count)
	}
}

func TestToolsCall_OperationErrors(t *testing.T) {
	mux := newTestMux(t, nil)
	sessionID := initialize(t, mux)

	result := callTool(t, mux, sessionID, "get_todo", `{"id":"missing"}`)
	if !result.IsError {
		t.Fatal("expected isError for missing todo")
	}
	var opErr dispatch.Error
	if err := json.Unmarshal([]byte(result.Content[0].Text), &opErr); err != nil {
		t.Fatalf("failed to decode error payload: %v", err)
	}
	if opErr.Kind != dispatch.KindNotFound {
		t.Errorf("expected NotFound, got %s", opErr.Kind)
	}

	result = callTool(t, mux, sessionID, "add_todo", `{"title":"   "}`)
	if !result.IsError {
		t.Fatal("expected isError for blank title")
	}
	if err := json.Unmarshal([]byte(result.Content[0].Text), &opErr); err != nil {
		t.Fatalf("failed to decode error payload: %v", err)
	}
	if opErr.Kind != dispatch.KindInvalidArgument {
		t.Errorf("expected InvalidArgument, got %s", opErr.Kind)
	}
}

func TestToolsCall_UnknownTool(t *testing.T) {
	mux := newTestMux(t, nil)
	sessionID := initialize(t, mux)

	rr := postRPC(t, mux, sessionID,
		`{"jsonrpc":"2.0","id":9,"method":"tools/call","params":{"name":"explode"}}`)
	resp := decodeRPC(t, rr)
	if resp.Error == nil || resp.Error.Code != JSONRPCInvalidParams {
		t.Errorf("expected invalid params for unknown tool, got %+v", resp.Error)
	}
}

func TestToolsCall_InsufficientCapabilities(t *testing.T) {
	mux := newTestMux(t, func(cfg *Config) {
		cfg.DefaultCaps = []string{"other"}
	})
	sessionID := initialize(t, mux)

	rr := postRPC(t, mux, sessionID,
		`{"jsonrpc":"2.0","id":9,"method":"tools/call","params":{"name":"add_todo","arguments":{"title":"x"}}}`)
	resp := decodeRPC(t, rr)
	if resp.Error == nil || resp.Error.Code != JSONRPCInvalidRequest {
		t.Errorf("expected invalid request for insufficient capabilities, got %+v", resp.Error)
	}
}

func TestResources_InsufficientCapabilities(t *testing.T) {
	mux := newTestMux(t, func(cfg *Config) {
		cfg.DefaultCaps = []string{"other"}
	})
	sessionID := initialize(t, mux)

	// Reads are refused outright
	rr := postRPC(t, mux, sessionID,
		`{"jsonrpc":"2.0","id":5,"method":"resources/read","params":{"uri":"todos://all"}}`)
	resp := decodeRPC(t, rr)
	if resp.Error == nil || resp.Error.Code != JSONRPCInvalidRequest {
		t.Errorf("expected invalid request for resources/read, got %+v", resp.Error)
	}

	// Listing hides the todo resources, like tools/list
	rr = postRPC(t, mux, sessionID, `{"jsonrpc":"2.0","id":6,"method":"resources/list"}`)
	resp = decodeRPC(t, rr)
	raw, _ := json.Marshal(resp.Result)
	var listResult MCPListResourcesResult
	if err := json.Unmarshal(raw, &listResult); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	if len(listResult.Resources) != 0 {
		t.Errorf("expected no resources without the todo capability, got %d", len(listResult.Resources))
	}
}

func TestPrompts_InsufficientCapabilities(t *testing.T) {
	mux := newTestMux(t, func(cfg *Config) {
		cfg.DefaultCaps = []string{"other"}
	})
	sessionID := initialize(t, mux)

	rr := postRPC(t, mux, sessionID,
		`{"jsonrpc":"2.0","id":7,"method":"prompts/get","params":{"name":"todo_summary"}}`)
	resp := decodeRPC(t, rr)
	if resp.Error == nil || resp.Error.Code != JSONRPCInvalidRequest {
		t.Errorf("expected invalid request for prompts/get, got %+v", resp.Error)
	}

	rr = postRPC(t, mux, sessionID, `{"jsonrpc":"2.0","id":8,"method":"prompts/list"}`)
	resp = decodeRPC(t, rr)
	raw, _ := json.Marshal(resp.Result)
	var listResult MCPListPromptsResult
	if err := json.Unmarshal(raw, &listResult); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	if len(listResult.Prompts) != 0 {
		t.Errorf("expected no prompts without the todo capability, got %d", len(listResult.Prompts))
	}
}

func TestMethodNotFound(t *testing.T) {
	mux := newTestMux(t, nil)
	sessionID := initialize(t, mux)

	rr := postRPC(t, mux, sessionID, `{"jsonrpc":"2.0","id":4,"method":"todos/compact"}`)
	resp := decodeRPC(t, rr)
	if resp.Error == nil || resp.Error.Code != JSONRPCMethodNotFound {
		t.Errorf("expected method not found, got %+v", resp.Error)
	}
}

func TestResources(t *testing.T) {
	mux := newTestMux(t, nil)
	sessionID := initialize(t, mux)

	// List resources
	rr := postRPC(t, mux, sessionID, `{"jsonrpc":"2.0","id":5,"method":"resources/list"}`)
	resp := decodeRPC(t, rr)
	raw, _ := json.Marshal(resp.Result)
	var listResult MCPListResourcesResult
	if err := json.Unmarshal(raw, &listResult); err != nil {
		t.Fatalf("failed to decode resources: %v", err)
	}
	if len(listResult.Resources) != 2 {
		t.Fatalf("expected 2 resources, got %d", len(listResult.Resources))
	}

	// Seed one todo via tools/call
	result := callTool(t, mux, sessionID, "add_todo", `{"title":"Walk the dog"}`)
	var created todo.Todo
	if err := json.Unmarshal([]byte(result.Content[0].Text), &created); err != nil {
		t.Fatalf("failed to decode created todo: %v", err)
	}

	// Read the full list
	rr = postRPC(t, mux, sessionID,
		`{"jsonrpc":"2.0","id":6,"method":"resources/read","params":{"uri":"todos://all"}}`)
	resp = decodeRPC(t, rr)
	raw, _ = json.Marshal(resp.Result)
	var readResult MCPReadResourceResult
	if err := json.Unmarshal(raw, &readResult); err != nil {
		t.Fatalf("failed to decode read result: %v", err)
	}
	if len(readResult.Contents) != 1 {
		t.Fatalf("expected 1 contents entry, got %d", len(readResult.Contents))
	}
	var listed struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal([]byte(readResult.Contents[0].Text), &listed); err != nil {
		t.Fatalf("failed to decode list text: %v", err)
	}
	if listed.Count != 1 {
		t.Errorf("expected count 1, got %d", listed.Count)
	}

	// Read a single todo
	rr = postRPC(t, mux, sessionID,
		`{"jsonrpc":"2.0","id":7,"method":"resources/read","params":{"uri":"todo://`+created.ID+`"}}`)
	resp = decodeRPC(t, rr)
	raw, _ = json.Marshal(resp.Result)
	if err := json.Unmarshal(raw, &readResult); err != nil {
		t.Fatalf("failed to decode read result: %v", err)
	}
	var got todo.Todo
	if err := json.Unmarshal([]byte(readResult.Contents[0].Text), &got); err != nil {
		t.Fatalf("failed to decode todo text: %v", err)
	}
	if got.Title != "Walk the dog" {
		t.Errorf("unexpected title: %s", got.Title)
	}

	// Read a missing todo: contents carry the structured error
	rr = postRPC(t, mux, sessionID,
		`{"jsonrpc":"2.0","id":8,"method":"resources/read","params":{"uri":"todo://missing"}}`)
	resp = decodeRPC(t, rr)
	raw, _ = json.Marshal(resp.Result)
	if err := json.Unmarshal(raw, &readResult); err != nil {
		t.Fatalf("failed to decode read result: %v", err)
	}
	var opErr dispatch.Error
	if err := json.Unmarshal([]byte(readResult.Contents[0].Text), &opErr); err != nil {
		t.Fatalf("failed to decode error text: %v", err)
	}
	if opErr.Kind != dispatch.KindNotFound {
		t.Errorf("expected NotFound, got %s", opErr.Kind)
	}

	// Unknown scheme
	rr = postRPC(t, mux, sessionID,
		`{"jsonrpc":"2.0","id":9,"method":"resources/read","params":{"uri":"bbs://threads"}}`)
	resp = decodeRPC(t, rr)
	if resp.Error == nil || resp.Error.Code != JSONRPCInvalidParams {
		t.Errorf("expected invalid params for unknown uri, got %+v", resp.Error)
	}
}

func TestPrompts(t *testing.T) {
	mux := newTestMux(t, nil)
	sessionID := initialize(t, mux)

	rr := postRPC(t, mux, sessionID, `{"jsonrpc":"2.0","id":10,"method":"prompts/list"}`)
	resp := decodeRPC(t, rr)
	raw, _ := json.Marshal(resp.Result)
	var listResult MCPListPromptsResult
	if err := json.Unmarshal(raw, &listResult); err != nil {
		t.Fatalf("failed to decode prompts: %v", err)
	}
	if len(listResult.Prompts) != 1 || listResult.Prompts[0].Name != "todo_summary" {
		t.Fatalf("unexpected prompts: %+v", listResult.Prompts)
	}

	callTool(t, mux, sessionID, "add_todo", `{"title":"File taxes"}`)

	rr = postRPC(t, mux, sessionID,
		`{"jsonrpc":"2.0","id":11,"method":"prompts/get","params":{"name":"todo_summary","arguments":{"focus":"finance"}}}`)
	resp = decodeRPC(t, rr)
	raw, _ = json.Marshal(resp.Result)
	var prompt MCPGetPromptResult
	if err := json.Unmarshal(raw, &prompt); err != nil {
		t.Fatalf("failed to decode prompt: %v", err)
	}
	if len(prompt.Messages) != 1 || prompt.Messages[0].Role != "user" {
		t.Fatalf("unexpected messages: %+v", prompt.Messages)
	}
	text := prompt.Messages[0].Content.Text
	if !strings.Contains(text, "File taxes") || !strings.Contains(text, "finance") {
		t.Errorf("prompt text missing expected content: %q", text)
	}

	// Unknown prompt
	rr = postRPC(t, mux, sessionID,
		`{"jsonrpc":"2.0","id":12,"method":"prompts/get","params":{"name":"debug_error"}}`)
	resp = decodeRPC(t, rr)
	if resp.Error == nil || resp.Error.Code != JSONRPCInvalidParams {
		t.Errorf("expected invalid params for unknown prompt, got %+v", resp.Error)
	}
}

func TestDeleteSession(t *testing.T) {
	mux := newTestMux(t, nil)
	sessionID := initialize(t, mux)

	req := httptest.NewRequest(http.MethodDelete, "/mcp", nil)
	req.Header.Set("Mcp-Session-Id", sessionID)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}

	// Session is gone
	rr2 := postRPC(t, mux, sessionID, `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)
	if rr2.Code != http.StatusNotFound {
		t.Errorf("expected 404 after session delete, got %d", rr2.Code)
	}
}

func TestDeleteSession_OwnershipEnforced(t *testing.T) {
	store := NewTokenStore()
	token := store.CreateToken(tools.CapabilityTodo)

	mux := newTestMux(t, func(cfg *Config) {
		cfg.TokenStore = store
		cfg.RequireAuth = true
	})

	// Initialize with the token in the path
	req := httptest.NewRequest(http.MethodPost, "/mcp/"+token,
		strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("initialize: expected 200, got %d", rr.Code)
	}
	sessionID := rr.Header().Get("Mcp-Session-Id")

	// DELETE without the owning token is forbidden
	req = httptest.NewRequest(http.MethodDelete, "/mcp", nil)
	req.Header.Set("Mcp-Session-Id", sessionID)
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Errorf("expected 403 for non-owner delete, got %d", rr.Code)
	}

	// DELETE with the owning token succeeds
	req = httptest.NewRequest(http.MethodDelete, "/mcp/"+token, nil)
	req.Header.Set("Mcp-Session-Id", sessionID)
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Errorf("expected 204 for owner delete, got %d", rr.Code)
	}
}

func TestAuth_RequireAuth(t *testing.T) {
	store := NewTokenStore()
	token := store.CreateToken(tools.CapabilityTodo)

	mux := newTestMux(t, func(cfg *Config) {
		cfg.TokenStore = store
		cfg.RequireAuth = true
	})

	// Unauthenticated initialize is rejected
	rr := postRPC(t, mux, "", `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`)
	resp := decodeRPC(t, rr)
	if resp.Error == nil || resp.Error.Code != JSONRPCInvalidRequest {
		t.Errorf("expected auth error, got %+v", resp.Error)
	}

	// Invalid token is rejected
	req := httptest.NewRequest(http.MethodPost, "/mcp?token=wrong",
		strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`))
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	resp = decodeRPC(t, rr)
	if resp.Error == nil || !strings.Contains(resp.Error.Message, "invalid or expired token") {
		t.Errorf("expected invalid token error, got %+v", resp.Error)
	}

	// Valid query token works
	req = httptest.NewRequest(http.MethodPost, "/mcp?token="+token,
		strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`))
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || rr.Header().Get("Mcp-Session-Id") == "" {
		t.Errorf("expected successful session with valid token, got %d", rr.Code)
	}
}

func TestAuth_JWTVerifier(t *testing.T) {
	mux := newTestMux(t, func(cfg *Config) {
		cfg.TokenVerifier = &mockTokenVerifier{principalID: tools.CapabilityTodo}
		cfg.RequireAuth = true
	})

	req := httptest.NewRequest(http.MethodPost, "/mcp",
		strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`))
	req.Header.Set("Authorization", "Bearer some-jwt")
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 with bearer token, got %d", rr.Code)
	}
	sessionID := rr.Header().Get("Mcp-Session-Id")

	// The verifier's principal became the capability
	rr2 := postRPC(t, mux, sessionID, `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)
	resp := decodeRPC(t, rr2)
	raw, _ := json.Marshal(resp.Result)
	var result MCPListToolsResult
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	if len(result.Tools) != 5 {
		t.Errorf("expected 5 tools via JWT capability, got %d", len(result.Tools))
	}
}

func TestMethodNotAllowed(t *testing.T) {
	mux := newTestMux(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/mcp", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for GET, got %d", rr.Code)
	}
}
