// Package mcp implements the Model Context Protocol server for the todo
// manager.
//
// # Protocol
//
// The server speaks JSON-RPC 2.0 over the MCP Streamable HTTP transport:
//
//   - POST /mcp - initialize, tools/list, tools/call, resources/list,
//     resources/read, prompts/list, prompts/get
//   - DELETE /mcp - session termination (Mcp-Session-Id header)
//
// Clients first call initialize and receive an Mcp-Session-Id header that
// must accompany every later request.
//
// # Tools
//
// Tool definitions come from the tools registry. Clients discover them
// with tools/list and execute them with tools/call:
//
//	{
//	  "jsonrpc": "2.0",
//	  "method": "tools/call",
//	  "params": {
//	    "name": "add_todo",
//	    "arguments": {"title": "Buy groceries"}
//	  },
//	  "id": 2
//	}
//
// Operation failures are not protocol errors: the result carries isError
// with a JSON body of the form {"kind": "NotFound", "message": "..."}.
//
// # Resources and Prompts
//
// The todo list is also readable as resources (todos://all, todo://{id})
// and the todo_summary prompt renders the live list into a request an
// agent can act on.
//
// # Authentication
//
// Optional. Tokens arrive as a path segment (/mcp/<token>), a token query
// parameter, or an Authorization: Bearer header (JWT). Tokens map to
// capabilities; only tools matching the session's capabilities are
// exposed. With require_auth off, unauthenticated sessions get the
// configured default capabilities.
package mcp
