// ABOUTME: Maps named operations with JSON argument bundles onto todo store calls.
// ABOUTME: Every failure is recovered into a structured response; nothing is fatal.

package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/2389/todo-mcp/internal/todo"
)

// ErrUnsupportedOperation is returned when the operation name is unknown.
var ErrUnsupportedOperation = errors.New("unsupported operation")

// Op is a supported todo operation.
type Op string

// Supported operations.
const (
	OpCreate   Op = "create"
	OpList     Op = "list"
	OpComplete Op = "complete"
	OpDelete   Op = "delete"
	OpGet      Op = "get"
)

// ParseOp resolves an operation name to an Op.
func ParseOp(name string) (Op, error) {
	switch op := Op(strings.ToLower(strings.TrimSpace(name))); op {
	case OpCreate, OpList, OpComplete, OpDelete, OpGet:
		return op, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedOperation, name)
	}
}

// Error kinds surfaced in failure responses.
const (
	KindInvalidArgument      = "InvalidArgument"
	KindNotFound             = "NotFound"
	KindUnsupportedOperation = "UnsupportedOperation"
)

// Error describes a failed operation.
type Error struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Response is the result of dispatching one operation. Exactly one of
// Result and Error is set.
type Response struct {
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *Error          `json:"error,omitempty"`
}

// Dispatcher translates operation requests into store calls. It owns no
// state beyond the store reference.
type Dispatcher struct {
	store  *todo.Store
	logger *slog.Logger
}

// New creates a Dispatcher backed by the given store.
func New(store *todo.Store, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{store: store, logger: logger}
}

// Dispatch runs the named operation with the given JSON arguments and
// returns a structured response. Errors never propagate to the caller as
// Go errors; they come back as a failure Response.
func (d *Dispatcher) Dispatch(ctx context.Context, operation string, args json.RawMessage) Response {
	op, err := ParseOp(operation)
	if err != nil {
		return failure(KindUnsupportedOperation, err.Error())
	}

	result, err := d.invoke(ctx, op, args)
	if err != nil {
		d.logger.Debug("operation failed", "operation", string(op), "error", err)
		return failureFromError(err)
	}

	d.logger.Debug("operation complete", "operation", string(op))
	return Response{OK: true, Result: result}
}

type createArgs struct {
	Title string `json:"title"`
}

type idArgs struct {
	ID string `json:"id"`
}

// invoke runs one operation. The switch is exhaustive over Op; ParseOp
// guarantees no other value reaches here.
func (d *Dispatcher) invoke(ctx context.Context, op Op, args json.RawMessage) (json.RawMessage, error) {
	switch op {
	case OpCreate:
		var in createArgs
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		t, err := d.store.Create(ctx, in.Title)
		if err != nil {
			return nil, err
		}
		return json.Marshal(t)

	case OpList:
		todos, err := d.store.List(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string]any{"todos": todos, "count": len(todos)})

	case OpComplete:
		var in idArgs
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		if in.ID == "" {
			return nil, fmt.Errorf("%w: id is required", errInvalidArgs)
		}
		t, err := d.store.Complete(ctx, in.ID)
		if err != nil {
			return nil, err
		}
		return json.Marshal(t)

	case OpDelete:
		var in idArgs
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		if in.ID == "" {
			return nil, fmt.Errorf("%w: id is required", errInvalidArgs)
		}
		if err := d.store.Delete(ctx, in.ID); err != nil {
			return nil, err
		}
		return json.Marshal(map[string]string{"id": in.ID, "status": "deleted"})

	case OpGet:
		var in idArgs
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		if in.ID == "" {
			return nil, fmt.Errorf("%w: id is required", errInvalidArgs)
		}
		t, err := d.store.Get(ctx, in.ID)
		if err != nil {
			return nil, err
		}
		return json.Marshal(t)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedOperation, op)
	}
}

// errInvalidArgs marks argument decoding and validation failures.
var errInvalidArgs = errors.New("invalid arguments")

func decodeArgs(args json.RawMessage, dst any) error {
	if len(args) == 0 || string(args) == "null" {
		return nil
	}
	if err := json.Unmarshal(args, dst); err != nil {
		return fmt.Errorf("%w: %v", errInvalidArgs, err)
	}
	return nil
}

// failureFromError maps store and argument errors onto error kinds.
func failureFromError(err error) Response {
	switch {
	case errors.Is(err, todo.ErrNotFound):
		return failure(KindNotFound, err.Error())
	case errors.Is(err, todo.ErrEmptyTitle), errors.Is(err, errInvalidArgs):
		return failure(KindInvalidArgument, err.Error())
	case errors.Is(err, ErrUnsupportedOperation):
		return failure(KindUnsupportedOperation, err.Error())
	default:
		return failure(KindInvalidArgument, err.Error())
	}
}

func failure(kind, message string) Response {
	return Response{OK: false, Error: &Error{Kind: kind, Message: message}}
}
