// Package auth verifies bearer tokens presented to the MCP server.
//
// JWTVerifier validates HS256-signed tokens and extracts the principal ID
// from the "sub" claim. The server treats the principal ID as a
// capability, so a token minted for "todo" unlocks the todo tools.
package auth
