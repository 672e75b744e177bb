// ABOUTME: Client CLI for the todo MCP server.
// ABOUTME: Runs one-shot commands or an interactive session over streamable HTTP.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"

	"github.com/2389/todo-mcp/internal/cli"
	"github.com/2389/todo-mcp/internal/client"
)

const banner = `
 _            _
| |_ ___   __| | ___
| __/ _ \ / _' |/ _ \
| || (_) | (_| | (_) |
 \__\___/ \__,_|\___/
`

func main() {
	serverURL := os.Getenv("TODO_MCP_URL")
	if serverURL == "" {
		if host := os.Getenv("TODO_MCP_HOST"); host != "" {
			serverURL = "http://" + host + ":8080"
		} else {
			serverURL = "http://localhost:8080"
		}
	}
	token := getToken()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	c := client.New(client.Config{
		BaseURL: serverURL,
		Token:   token,
		Logger:  logger,
	})

	if err := c.Connect(ctx); err != nil {
		color.Red("Error: failed to connect to %s: %v", serverURL, err)
		os.Exit(1)
	}
	defer func() {
		if err := c.Close(context.Background()); err != nil {
			color.Red("Error: closing session: %v", err)
		}
	}()

	runner := cli.NewRunner(c, os.Stdout)

	// One-shot mode: arguments form a single command.
	if len(os.Args) > 1 {
		if os.Args[1] == "help" || os.Args[1] == "-h" || os.Args[1] == "--help" {
			printUsage()
			return
		}
		runner.HandleCommand(ctx, strings.Join(os.Args[1:], " "))
		return
	}

	// Interactive mode.
	color.Cyan(banner)
	fmt.Printf("Connected to %s (%s)\n", c.ServerName(), serverURL)
	fmt.Println("Type 'help' for commands, 'quit' to exit.")
	fmt.Println()

	if err := runner.Run(ctx, os.Stdin); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: todo [command]")
	fmt.Println()
	fmt.Println("With no command, starts an interactive session.")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  add <title...>   Create a todo")
	fmt.Println("  list             List todos in creation order")
	fmt.Println("  complete <id>    Mark a todo done")
	fmt.Println("  delete <id>      Remove a todo")
	fmt.Println("  get <id>         Show one todo")
	fmt.Println("  summary [focus]  Render the todo summary prompt")
	fmt.Println("  tools            List tools exposed by the server")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  TODO_MCP_URL     Server base URL (default http://localhost:8080)")
	fmt.Println("  TODO_MCP_HOST    Host shorthand, expands to http://<host>:8080")
	fmt.Println("  TODO_MCP_TOKEN   Bearer token, overrides the token file")
}

func getToken() string {
	if token := os.Getenv("TODO_MCP_TOKEN"); token != "" {
		return token
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	tokenPath := filepath.Join(configDir, "todo-mcp", "token")
	data, err := os.ReadFile(tokenPath)
	if err != nil {
		return ""
	}

	return strings.TrimSpace(string(data))
}
