// Package llm is the provider boundary. The orchestration loop talks to
// agents only through the Invoker interface; adapters translate the
// exchange into a concrete provider protocol.
package llm

import "context"

// Role identifies the author of an exchange message.
type Role string

const (
	// RoleSystem carries the standing instructions for the agent.
	RoleSystem Role = "system"
	// RoleUser carries the rendered table context for the current turn.
	RoleUser Role = "user"
	// RoleAssistant carries an agent reply, narration and requested
	// actions alike.
	RoleAssistant Role = "assistant"
	// RoleObservation reports the outcome of one requested action back
	// to the agent that asked for it.
	RoleObservation Role = "observation"
)

// ActionDef describes one action an agent may request, in the shape
// providers expect for function tools.
type ActionDef struct {
	Name        string
	Description string
	Schema      map[string]any
}

// ActionRequest is one action an agent asked for. Args hold the decoded
// argument object; ID correlates observations back to the request.
type ActionRequest struct {
	ID   string
	Name string
	Args map[string]any
}

// Message is one entry in an exchange.
type Message struct {
	Role    Role
	Content string
	// Calls are the actions requested by an assistant message.
	Calls []ActionRequest
	// CallID links an observation to the action request it answers.
	CallID string
}

// Observation builds the message reporting one action outcome.
func Observation(callID, content string) Message {
	return Message{Role: RoleObservation, Content: content, CallID: callID}
}

// Request is one prepared exchange: the conversation so far plus the
// actions currently on offer.
type Request struct {
	Messages []Message
	Actions  []ActionDef
}

// Reply is an agent's answer: narration, requested actions, or both.
type Reply struct {
	Narration string
	Calls     []ActionRequest
}

// Message converts the reply into its assistant exchange message.
func (r Reply) Message() Message {
	return Message{Role: RoleAssistant, Content: r.Narration, Calls: r.Calls}
}

// Invoker produces one agent reply for a prepared exchange.
// Implementations honor ctx cancellation; the orchestration loop treats
// every error as recoverable.
type Invoker interface {
	Invoke(ctx context.Context, req Request) (Reply, error)
}
