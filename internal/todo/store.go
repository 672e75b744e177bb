// ABOUTME: In-memory todo store with create/list/complete/delete/get operations.
// ABOUTME: All state is process-local and discarded on exit; no persistence.

package todo

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when the requested todo does not exist.
var ErrNotFound = errors.New("todo not found")

// ErrEmptyTitle is returned when a todo is created with a blank title.
var ErrEmptyTitle = errors.New("title must not be empty")

// Todo represents a single task.
type Todo struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
}

// Store holds todos in memory. Mutations take the write lock so id
// uniqueness and creation order hold under concurrent callers; list and
// get only take the read lock.
type Store struct {
	mu    sync.RWMutex
	todos map[string]*Todo // keyed by todo ID
	order []string         // ids in creation order
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		todos: make(map[string]*Todo),
	}
}

// Create adds a new todo with the given title. The title is trimmed and
// must be non-empty. Ids are random and never reused, even after delete.
func (s *Store) Create(ctx context.Context, title string) (*Todo, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyTitle
	}

	t := &Todo{
		ID:        uuid.New().String(),
		Title:     title,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.todos[t.ID] = t
	s.order = append(s.order, t.ID)
	s.mu.Unlock()

	result := *t
	return &result, nil
}

// Get retrieves a todo by ID.
func (s *Store) Get(ctx context.Context, id string) (*Todo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.todos[id]
	if !ok {
		return nil, ErrNotFound
	}

	// Return a copy to prevent external modification
	result := *t
	return &result, nil
}

// List returns all todos in creation order. Deleted todos leave no gap.
func (s *Store) List(ctx context.Context) ([]*Todo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Todo, 0, len(s.todos))
	for _, id := range s.order {
		if t, ok := s.todos[id]; ok {
			c := *t
			result = append(result, &c)
		}
	}
	return result, nil
}

// Complete marks a todo as completed and returns the updated todo.
// Completing an already-completed todo is a no-op that still succeeds.
func (s *Store) Complete(ctx context.Context, id string) (*Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.todos[id]
	if !ok {
		return nil, ErrNotFound
	}
	t.Completed = true

	result := *t
	return &result, nil
}

// Delete removes a todo permanently.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.todos[id]; !ok {
		return ErrNotFound
	}
	delete(s.todos, id)

	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Count returns the number of stored todos (for monitoring).
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.todos)
}
