// Package client implements an MCP client for the todo server.
//
// A Client connects with the initialize handshake, carries the returned
// Mcp-Session-Id on every request, and terminates the session with an
// HTTP DELETE on Close. Protocol failures surface as *RPCError; tool and
// resource failures the server reports in-band surface as
// *OperationError with the dispatcher's error kinds (InvalidArgument,
// NotFound, UnsupportedOperation).
package client
