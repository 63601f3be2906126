package action

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/wrenfold/roundtable/internal/game"
)

var (
	// ErrNameRequired indicates a definition without a name.
	ErrNameRequired = errors.New("action name is required")
	// ErrHandlerRequired indicates a definition without a handler.
	ErrHandlerRequired = errors.New("action handler is required")
)

// Handler validates and applies one action against the current state.
type Handler func(inv Invocation, state game.GameState, args map[string]any) Outcome

// Definition registers one named action: what it does, the JSON schema of
// its arguments for tool declarations, and the handler that applies it.
type Definition struct {
	Name        string
	Description string
	Schema      map[string]any
	Handler     Handler
}

// Registry stores action definitions. The set is closed: names that were
// never registered are rejected at apply time, not silently ignored.
type Registry struct {
	definitions map[string]Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{definitions: make(map[string]Definition)}
}

// Register adds an action definition. Duplicate names are an error.
func (r *Registry) Register(def Definition) error {
	if r == nil {
		return errors.New("registry is required")
	}
	def.Name = strings.TrimSpace(def.Name)
	if def.Name == "" {
		return ErrNameRequired
	}
	if def.Handler == nil {
		return ErrHandlerRequired
	}
	if r.definitions == nil {
		r.definitions = make(map[string]Definition)
	}
	if _, exists := r.definitions[def.Name]; exists {
		return fmt.Errorf("action already registered: %s", def.Name)
	}
	r.definitions[def.Name] = def
	return nil
}

// Definition returns the definition for a given name.
func (r *Registry) Definition(name string) (Definition, bool) {
	if r == nil {
		return Definition{}, false
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Definition{}, false
	}
	def, ok := r.definitions[name]
	return def, ok
}

// ListDefinitions returns a stable, sorted snapshot of registered actions.
func (r *Registry) ListDefinitions() []Definition {
	if r == nil || len(r.definitions) == 0 {
		return nil
	}
	definitions := make([]Definition, 0, len(r.definitions))
	for _, definition := range r.definitions {
		definitions = append(definitions, definition)
	}
	sort.Slice(definitions, func(i, j int) bool {
		return definitions[i].Name < definitions[j].Name
	})
	return definitions
}

// DefaultRegistry returns a registry with every built-in action installed.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, def := range []Definition{
		rollDiceDefinition(),
		updateSheetDefinition(),
		whisperDefinition(),
		revealSecretDefinition(),
		startCombatDefinition(),
		endCombatDefinition(),
	} {
		if err := r.Register(def); err != nil {
			panic(err)
		}
	}
	return r
}
