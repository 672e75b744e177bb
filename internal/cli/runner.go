// ABOUTME: Interactive command runner for the todo MCP client.
// ABOUTME: Parses one command per line, dispatches it, and renders the result.

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/2389/todo-mcp/internal/client"
	"github.com/2389/todo-mcp/internal/todo"
)

// Runner drives the todo client from a line-oriented command stream.
// One command is fully processed before the next line is read; a failed
// command is rendered and the runner keeps accepting input.
type Runner struct {
	client *client.Client
	out    io.Writer
}

// NewRunner creates a Runner writing its output to out.
func NewRunner(c *client.Client, out io.Writer) *Runner {
	return &Runner{client: c, out: out}
}

// Run reads commands from in until a quit command or EOF.
func (r *Runner) Run(ctx context.Context, in io.Reader) error {
	green := color.New(color.FgGreen)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), 1024*1024) // 1MB max input
	for {
		green.Fprint(r.out, "todo> ")
		if !scanner.Scan() {
			// EOF (Ctrl+D) or error
			fmt.Fprintln(r.out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if r.HandleCommand(ctx, line) {
			return nil
		}
	}
}

// HandleCommand executes one command line. It returns true when the
// command asks the runner to quit. Failures are rendered, never returned.
func (r *Runner) HandleCommand(ctx context.Context, line string) (quit bool) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "quit", "exit", "q":
		return true
	case "help":
		r.printHelp()
	case "add":
		r.cmdAdd(ctx, args)
	case "list":
		r.cmdList(ctx)
	case "complete":
		r.cmdComplete(ctx, args)
	case "delete":
		r.cmdDelete(ctx, args)
	case "get":
		r.cmdGet(ctx, args)
	case "summary":
		r.cmdSummary(ctx, args)
	case "tools":
		r.cmdTools(ctx)
	default:
		color.New(color.FgRed).Fprintf(r.out, "Unknown command: %s\n", cmd)
		fmt.Fprintln(r.out, "Type 'help' for available commands")
	}
	return false
}

func (r *Runner) printHelp() {
	yellow := color.New(color.FgYellow)
	yellow.Fprintln(r.out, "Commands:")
	fmt.Fprintln(r.out, "  add <title>       Add a new todo")
	fmt.Fprintln(r.out, "  list              List all todos")
	fmt.Fprintln(r.out, "  complete <id>     Mark a todo as completed")
	fmt.Fprintln(r.out, "  delete <id>       Delete a todo")
	fmt.Fprintln(r.out, "  get <id>          Show one todo")
	fmt.Fprintln(r.out, "  summary [focus]   Render the todo_summary prompt")
	fmt.Fprintln(r.out, "  tools             List server tools")
	fmt.Fprintln(r.out, "  help              Show this help")
	fmt.Fprintln(r.out, "  quit              Exit")
}

func (r *Runner) cmdAdd(ctx context.Context, args []string) {
	if len(args) < 1 {
		r.usage("add <title>")
		return
	}
	title := strings.Join(args, " ")

	t, err := r.client.AddTodo(ctx, title)
	if err != nil {
		r.renderError(err)
		return
	}
	fmt.Fprintf(r.out, "Added %q with id %s\n", t.Title, t.ID)
}

func (r *Runner) cmdList(ctx context.Context) {
	todos, err := r.client.ListTodos(ctx)
	if err != nil {
		r.renderError(err)
		return
	}
	if len(todos) == 0 {
		fmt.Fprintln(r.out, "No todos found")
		return
	}
	for _, t := range todos {
		r.renderTodoLine(t)
	}
}

func (r *Runner) cmdComplete(ctx context.Context, args []string) {
	if len(args) != 1 {
		r.usage("complete <id>")
		return
	}

	t, err := r.client.CompleteTodo(ctx, args[0])
	if err != nil {
		r.renderError(err)
		return
	}
	fmt.Fprintf(r.out, "Completed %q\n", t.Title)
}

func (r *Runner) cmdDelete(ctx context.Context, args []string) {
	if len(args) != 1 {
		r.usage("delete <id>")
		return
	}

	if err := r.client.DeleteTodo(ctx, args[0]); err != nil {
		r.renderError(err)
		return
	}
	fmt.Fprintf(r.out, "Deleted %s\n", args[0])
}

func (r *Runner) cmdGet(ctx context.Context, args []string) {
	if len(args) != 1 {
		r.usage("get <id>")
		return
	}

	t, err := r.client.GetTodo(ctx, args[0])
	if err != nil {
		r.renderError(err)
		return
	}

	status := "pending"
	if t.Completed {
		status = "completed"
	}
	fmt.Fprintf(r.out, "ID:      %s\n", t.ID)
	fmt.Fprintf(r.out, "Title:   %s\n", t.Title)
	fmt.Fprintf(r.out, "Status:  %s\n", status)
	fmt.Fprintf(r.out, "Created: %s\n", t.CreatedAt.Format("2006-01-02 15:04:05"))
}

func (r *Runner) cmdSummary(ctx context.Context, args []string) {
	arguments := map[string]string{}
	if len(args) > 0 {
		arguments["focus"] = strings.Join(args, " ")
	}

	text, err := r.client.GetPrompt(ctx, "todo_summary", arguments)
	if err != nil {
		r.renderError(err)
		return
	}
	fmt.Fprint(r.out, text)
}

func (r *Runner) cmdTools(ctx context.Context) {
	toolInfos, err := r.client.ListTools(ctx)
	if err != nil {
		r.renderError(err)
		return
	}
	for _, info := range toolInfos {
		color.New(color.FgCyan).Fprintf(r.out, "%s", info.Name)
		fmt.Fprintf(r.out, "  %s\n", info.Description)
	}
}

// renderTodoLine prints one todo as a list row.
func (r *Runner) renderTodoLine(t *todo.Todo) {
	if t.Completed {
		color.New(color.FgGreen).Fprint(r.out, "[done] ")
	} else {
		color.New(color.FgYellow).Fprint(r.out, "[    ] ")
	}
	fmt.Fprintf(r.out, "%s  %s\n", t.ID, t.Title)
}

func (r *Runner) renderError(err error) {
	var opErr *client.OperationError
	if errors.As(err, &opErr) {
		color.New(color.FgRed).Fprintf(r.out, "Error (%s): %s\n", opErr.Kind, opErr.Message)
		return
	}
	color.New(color.FgRed).Fprintf(r.out, "Error: %v\n", err)
}

func (r *Runner) usage(u string) {
	fmt.Fprintf(r.out, "Usage: %s\n", u)
}
