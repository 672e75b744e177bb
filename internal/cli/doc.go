// Package cli implements the interactive command loop of the todo
// client. Each line is parsed into an operation, sent through the MCP
// client, and rendered. Failures never terminate the loop; the runner
// reports them and waits for the next command.
package cli
