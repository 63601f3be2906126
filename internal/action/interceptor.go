package action

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/wrenfold/roundtable/internal/game"
)

// Interceptor applies requested actions through a closed registry.
type Interceptor struct {
	registry *Registry
}

// NewInterceptor wraps a registry. A nil registry gets the default set.
func NewInterceptor(registry *Registry) *Interceptor {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Interceptor{registry: registry}
}

// Registry exposes the action set for tool declarations.
func (i *Interceptor) Registry() *Registry {
	return i.registry
}

// Apply resolves the request against the registry and runs its handler.
// Unknown names come back as rejections, never as silent no-ops. The
// returned outcome always carries a usable state: the handler's
// replacement on success, the input otherwise.
func (i *Interceptor) Apply(inv Invocation, state game.GameState, req Request) Outcome {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return reject(state, rejectionCodeUnknownAction, "action name is required")
	}
	def, ok := i.registry.Definition(name)
	if !ok {
		return reject(state, rejectionCodeUnknownAction, fmt.Sprintf("no action named %q; available actions: %s", name, strings.Join(i.names(), ", ")))
	}
	return def.Handler(inv, state, req.Args)
}

func (i *Interceptor) names() []string {
	defs := i.registry.ListDefinitions()
	names := make([]string, 0, len(defs))
	for _, def := range defs {
		names = append(names, def.Name)
	}
	return names
}

// decodeArgs round-trips a decoded JSON map into a typed argument struct.
// Unknown fields are ignored so a chatty model does not break itself.
func decodeArgs(args map[string]any, into any) error {
	if args == nil {
		args = map[string]any{}
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, into)
}
