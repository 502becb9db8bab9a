package runtime

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Sarthak-Jadhav-Dev/KYC-AML/pkg/workflow"
)

// Handler implements one node type. It must not modify ec; changes are
// returned as an Update. Expected domain conditions (a failed check, a
// degraded provider) are reported in the Update. A returned error aborts the
// run.
type Handler func(ctx context.Context, node *workflow.CompiledNode, ec *ExecutionContext) (*Update, error)

// Registry maps node types to handlers. It is populated once at startup and
// passed to the interpreter.
type Registry struct {
	mu       sync.RWMutex
	handlers map[workflow.NodeType]Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[workflow.NodeType]Handler)}
}

// Register binds h to t, replacing any previous binding.
func (r *Registry) Register(t workflow.NodeType, h Handler) error {
	if t == "" {
		return fmt.Errorf("node type cannot be empty")
	}
	if h == nil {
		return fmt.Errorf("handler for %s cannot be nil", t)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[t] = h
	return nil
}

// Lookup returns the handler bound to t.
func (r *Registry) Lookup(t workflow.NodeType) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[t]
	return h, ok
}

// Types returns the registered node types in sorted order.
func (r *Registry) Types() []workflow.NodeType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]workflow.NodeType, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
