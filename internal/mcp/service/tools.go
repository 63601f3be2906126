package service

import (
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wrenfold/roundtable/internal/action"
	"github.com/wrenfold/roundtable/internal/mcp/domain"
	"github.com/wrenfold/roundtable/internal/storage/sqlite"
	"github.com/wrenfold/roundtable/internal/telemetry"
)

type mcpRegistrationTarget interface {
	AddTool(*mcp.Tool, any) error
	AddResourceTemplate(*mcp.ResourceTemplate, mcp.ResourceHandler)
	AddResource(*mcp.Resource, mcp.ResourceHandler)
}

// tableDependencies bundles what every table action handler operates on: the
// session store, the action registry, and the telemetry emitter.
type tableDependencies struct {
	store       *sqlite.Store
	interceptor *action.Interceptor
	emitter     *telemetry.Emitter
}

func registerSessionTools(registrar mcpRegistrationTarget, store *sqlite.Store, notify domain.ResourceUpdateNotifier) error {
	if err := registerTool(registrar, domain.SessionCreateTool(), domain.SessionCreateHandler(store, notify)); err != nil {
		return err
	}
	if err := registerTool(registrar, domain.SessionForkTool(), domain.SessionForkHandler(store, notify)); err != nil {
		return err
	}
	return registerTool(registrar, domain.SessionLineageTool(), domain.SessionLineageHandler(store))
}

func registerTableTools(registrar mcpRegistrationTarget, deps tableDependencies, notify domain.ResourceUpdateNotifier) error {
	registrations := []struct {
		tool    *mcp.Tool
		handler any
	}{
		{tool: domain.RollDiceTool(), handler: domain.RollDiceHandler(deps.store, deps.interceptor, deps.emitter, notify)},
		{tool: domain.SheetUpdateTool(), handler: domain.SheetUpdateHandler(deps.store, deps.interceptor, deps.emitter, notify)},
		{tool: domain.WhisperSendTool(), handler: domain.WhisperSendHandler(deps.store, deps.interceptor, deps.emitter, notify)},
		{tool: domain.SecretRevealTool(), handler: domain.SecretRevealHandler(deps.store, deps.interceptor, deps.emitter, notify)},
		{tool: domain.CombatStartTool(), handler: domain.CombatStartHandler(deps.store, deps.interceptor, deps.emitter, notify)},
		{tool: domain.CombatEndTool(), handler: domain.CombatEndHandler(deps.store, deps.interceptor, deps.emitter, notify)},
	}
	for _, registration := range registrations {
		if err := registerTool(registrar, registration.tool, registration.handler); err != nil {
			return err
		}
	}
	return nil
}

func registerTool(registrar mcpRegistrationTarget, tool *mcp.Tool, handler any) error {
	if tool == nil {
		return fmt.Errorf("tool is nil")
	}
	return registrar.AddTool(tool, handler)
}

// registerSessionResources registers readable session MCP resources.
func registerSessionResources(registrar mcpRegistrationTarget, store *sqlite.Store) {
	registrar.AddResource(domain.SessionListResource(), domain.SessionListResourceHandler(store))
	registrar.AddResourceTemplate(domain.SheetsResourceTemplate(), domain.SheetsResourceHandler(store))
	registrar.AddResourceTemplate(domain.LogResourceTemplate(), domain.LogResourceHandler(store))
	registrar.AddResourceTemplate(domain.SecretsResourceTemplate(), domain.SecretsResourceHandler(store))
	registrar.AddResourceTemplate(domain.CombatResourceTemplate(), domain.CombatResourceHandler(store))
}
