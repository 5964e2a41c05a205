package tools

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/chatagent/pkg/llms"
)

// ErrDuplicateTool is returned when a tool is registered under a name that
// already exists.
var ErrDuplicateTool = errors.New("tool already registered")

// Registry holds the tools advertised to the model.
// Registration order is preserved in the advertisement payload.
type Registry struct {
	byName map[string]ITool
	names  []string
	defs   []llms.Tool
}

// NewRegistry creates a registry with the given tools.
func NewRegistry(list ...ITool) (*Registry, error) {
	r := &Registry{
		byName: make(map[string]ITool),
	}
	for _, tool := range list {
		if err := r.Register(tool); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a tool's schema under its name.
// The lookup key is lowercase, tolerating model-produced case drift.
func (r *Registry) Register(tool ITool) error {
	name := tool.Name()
	key := strings.ToLower(name)
	if _, ok := r.byName[key]; ok {
		return errors.WithMessagef(ErrDuplicateTool, "%s", name)
	}
	r.byName[key] = tool
	r.names = append(r.names, name)
	r.defs = append(r.defs, llms.Tool{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name:        name,
			Description: tool.Description(),
			Parameters:  tool.Parameters(),
		},
	})
	return nil
}

// Find returns the tool registered under the given name, or nil.
func (r *Registry) Find(name string) ITool {
	return r.byName[strings.ToLower(name)]
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	return r.names
}

// Definitions returns the ordered tool definitions advertised to the model.
func (r *Registry) Definitions() []llms.Tool {
	return r.defs
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	return len(r.names)
}
