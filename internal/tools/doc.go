// Package tools defines in-process tool packs and the registry the MCP
// server lists and calls them through.
//
// A Pack groups tool definitions (name, description, JSON Schema input,
// required capabilities) with handlers. Handlers delegate to the
// operation dispatcher, so the MCP surface and any other caller share one
// request/response contract.
package tools
