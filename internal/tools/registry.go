// ABOUTME: Thread-safe registry for in-process tool packs.
// ABOUTME: Manages registration, lookup, and capability-based filtering.

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/2389/todo-mcp/internal/dispatch"
)

// ErrToolCollision indicates a tool name is already registered.
var ErrToolCollision = errors.New("tool name collision")

// ErrToolNotFound indicates the named tool is not registered.
var ErrToolNotFound = errors.New("tool not found")

// Handler executes a tool call and returns a structured response.
type Handler func(ctx context.Context, input json.RawMessage) dispatch.Response

// Definition describes a tool to clients.
type Definition struct {
	Name                 string
	Description          string
	InputSchema          json.RawMessage
	RequiredCapabilities []string
}

// Tool pairs a definition with its handler.
type Tool struct {
	Definition *Definition
	Handler    Handler
}

// Pack is a named group of tools registered together.
type Pack struct {
	ID    string
	Tools []*Tool
}

// Registry holds registered tools by name.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]*Tool
	logger *slog.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		tools:  make(map[string]*Tool),
		logger: logger,
	}
}

// RegisterPack validates and stores a pack's tools.
// Returns ErrToolCollision if any tool name already exists.
func (r *Registry) RegisterPack(pack *Pack) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, tool := range pack.Tools {
		if _, exists := r.tools[tool.Definition.Name]; exists {
			return fmt.Errorf("%w: tool %q already registered", ErrToolCollision, tool.Definition.Name)
		}
	}

	for _, tool := range pack.Tools {
		r.tools[tool.Definition.Name] = tool
	}

	r.logger.Info("tool pack registered",
		"pack_id", pack.ID,
		"tool_count", len(pack.Tools),
		"total_tools", len(r.tools),
	)
	return nil
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (*Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrToolNotFound, name)
	}
	return tool, nil
}

// ListForCapabilities returns definitions for tools where the caller has
// ALL required capabilities. Tools with no required capabilities are
// always included. Results are sorted by name for stable listings.
func (r *Registry) ListForCapabilities(caps []string) []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	capSet := make(map[string]struct{}, len(caps))
	for _, c := range caps {
		capSet[c] = struct{}{}
	}

	var result []*Definition
	for _, tool := range r.tools {
		if hasAllCapabilities(tool.Definition.RequiredCapabilities, capSet) {
			result = append(result, tool.Definition)
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// ListAll returns every registered definition sorted by name.
func (r *Registry) ListAll() []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*Definition, 0, len(r.tools))
	for _, tool := range r.tools {
		result = append(result, tool.Definition)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

func hasAllCapabilities(required []string, capSet map[string]struct{}) bool {
	for _, req := range required {
		if _, has := capSet[req]; !has {
			return false
		}
	}
	return true
}
