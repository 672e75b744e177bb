// ABOUTME: MCP client over the Streamable HTTP transport.
// ABOUTME: Manages the session lifecycle and JSON-RPC request plumbing.

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/2389/todo-mcp/internal/mcp"
)

// ErrNotConnected is returned when a request is made before Connect.
var ErrNotConnected = errors.New("client not connected")

// ErrServerStatus wraps non-200 HTTP responses from the server.
var ErrServerStatus = errors.New("unexpected server status")

// RPCError is a JSON-RPC error returned by the server.
type RPCError struct {
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Config holds client configuration.
type Config struct {
	BaseURL    string // e.g. http://localhost:8080
	Token      string // optional bearer token
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client talks to a todo MCP server. It is not safe for concurrent use;
// the facade issues one request at a time.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger

	sessionID  string
	serverName string
	nextID     atomic.Int64
}

// New creates a Client. Connect must be called before any other method.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		token:      cfg.Token,
		httpClient: httpClient,
		logger:     logger,
	}
}

// ServerName reports the name the server advertised during initialize.
func (c *Client) ServerName() string {
	return c.serverName
}

// Connect performs the MCP initialize handshake and stores the session ID.
func (c *Client) Connect(ctx context.Context) error {
	params := map[string]any{
		"protocolVersion": "2025-11-25",
		"capabilities":    map[string]any{},
		"clientInfo": map[string]any{
			"name":    "todo-mcp-client",
			"version": "1.0.0",
		},
	}

	var result struct {
		ProtocolVersion string `json:"protocolVersion"`
		ServerInfo      struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		} `json:"serverInfo"`
	}

	sessionID, err := c.rpc(ctx, "initialize", params, &result)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	if sessionID == "" {
		return errors.New("initialize: server did not return a session id")
	}

	c.sessionID = sessionID
	c.serverName = result.ServerInfo.Name
	c.logger.Debug("MCP session established",
		"session_id", sessionID,
		"server", result.ServerInfo.Name,
		"protocol_version", result.ProtocolVersion,
	)
	return nil
}

// Close terminates the session on the server.
func (c *Client) Close(ctx context.Context) error {
	if c.sessionID == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/mcp", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Mcp-Session-Id", c.sessionID)
	c.setAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("terminating session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("%w: %d", ErrServerStatus, resp.StatusCode)
	}
	c.sessionID = ""
	return nil
}

// rpc sends one JSON-RPC request and decodes the result into out.
// Returns the Mcp-Session-Id header value from the response.
func (c *Client) rpc(ctx context.Context, method string, params any, out any) (string, error) {
	if method != "initialize" && c.sessionID == "" {
		return "", ErrNotConnected
	}

	id := c.nextID.Add(1)
	envelope := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  method,
	}
	if params != nil {
		envelope["params"] = params
	}

	body, err := json.Marshal(envelope)
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/mcp", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.sessionID != "" {
		req.Header.Set("Mcp-Session-Id", c.sessionID)
		req.Header.Set("Mcp-Protocol-Version", "2025-11-25")
	}
	c.setAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%w: %d: %s", ErrServerStatus, resp.StatusCode, string(bytes.TrimSpace(data)))
	}

	var rpcResp struct {
		JSONRPC string            `json:"jsonrpc"`
		ID      json.RawMessage   `json:"id"`
		Result  json.RawMessage   `json:"result"`
		Error   *mcp.JSONRPCError `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	if rpcResp.Error != nil {
		return "", &RPCError{Code: rpcResp.Error.Code, Message: rpcResp.Error.Message}
	}
	if string(rpcResp.ID) != strconv.FormatInt(id, 10) {
		return "", fmt.Errorf("response id mismatch: sent %d, got %s", id, rpcResp.ID)
	}

	if out != nil && len(rpcResp.Result) > 0 {
		if err := json.Unmarshal(rpcResp.Result, out); err != nil {
			return "", fmt.Errorf("decoding result: %w", err)
		}
	}
	return resp.Header.Get("Mcp-Session-Id"), nil
}

func (c *Client) setAuth(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
