package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

var defaultInputSchema = json.RawMessage(`{"type":"object"}`)

// ErrRegistryClosed is returned when registering into a sealed registry.
var ErrRegistryClosed = errors.New("tool registry is closed")

// ToolDescriptor is a registered tool together with its handler.
type ToolDescriptor struct {
	Name        string
	Description string
	InputSchema json.RawMessage
	Handler     ToolHandler
}

// Tool returns the wire form of the descriptor.
func (d ToolDescriptor) Tool() Tool {
	return Tool{
		Name:        d.Name,
		Description: d.Description,
		InputSchema: d.InputSchema,
	}
}

// ToolRegistry is an ordered set of tools keyed by unique name. It is filled
// at startup and becomes read-only once closed.
type ToolRegistry struct {
	mu     sync.RWMutex
	order  []string
	tools  map[string]ToolDescriptor
	closed bool
}

// NewToolRegistry creates an empty registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		tools: make(map[string]ToolDescriptor),
	}
}

// Register adds a tool. Names must be unique and the input schema, when
// given, must be a valid JSON schema.
func (r *ToolRegistry) Register(name, description string, inputSchema json.RawMessage, handler ToolHandler) error {
	if name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if handler == nil {
		return fmt.Errorf("tool %q: handler cannot be nil", name)
	}

	if len(inputSchema) == 0 {
		inputSchema = defaultInputSchema
	}
	if _, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(inputSchema)); err != nil {
		return fmt.Errorf("tool %q: invalid input schema: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRegistryClosed
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("duplicate tool: %s", name)
	}

	r.tools[name] = ToolDescriptor{
		Name:        name,
		Description: description,
		InputSchema: append(json.RawMessage(nil), inputSchema...),
		Handler:     handler,
	}
	r.order = append(r.order, name)
	return nil
}

// Close seals the registry against further registration.
func (r *ToolRegistry) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
}

// List returns every tool in registration order.
func (r *ToolRegistry) List() []ToolDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ToolDescriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Get looks up a tool by name.
func (r *ToolRegistry) Get(name string) (ToolDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.tools[name]
	return d, ok
}

// Len returns the number of registered tools.
func (r *ToolRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
