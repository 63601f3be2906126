package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

var (
	// ErrMissingAPIKey indicates provider configuration without a key.
	ErrMissingAPIKey = errors.New("api key is required")
	// ErrMissingModel indicates provider configuration without a model name.
	ErrMissingModel = errors.New("model name is required")
	// ErrEmptyResponse indicates a completion with no choices to read.
	ErrEmptyResponse = errors.New("provider returned no choices")
)

// Config carries the settings for an OpenAI-compatible provider. BaseURL
// may point at any endpoint speaking the chat-completions protocol.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
}

// OpenAI invokes agents through a chat-completions API, with the table
// actions offered as function tools.
type OpenAI struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

var _ Invoker = (*OpenAI)(nil)

// NewOpenAI builds an invoker for the configured provider.
func NewOpenAI(cfg Config) (*OpenAI, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, ErrMissingModel
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(baseURL, "/")
	}

	return &OpenAI{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Invoke sends the exchange to the provider and decodes the assistant
// reply. The ctx deadline bounds the whole round trip.
func (o *OpenAI) Invoke(ctx context.Context, req Request) (Reply, error) {
	messages, err := toProviderMessages(req.Messages)
	if err != nil {
		return Reply{}, fmt.Errorf("provider request: %w", err)
	}

	response, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    messages,
		Tools:       toProviderTools(req.Actions),
		Temperature: o.temperature,
		MaxTokens:   o.maxTokens,
	})
	if err != nil {
		return Reply{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(response.Choices) == 0 {
		return Reply{}, ErrEmptyResponse
	}

	reply, err := fromProviderMessage(response.Choices[0].Message)
	if err != nil {
		return Reply{}, fmt.Errorf("provider response: %w", err)
	}
	return reply, nil
}

func toProviderMessages(messages []Message) ([]openai.ChatCompletionMessage, error) {
	converted := make([]openai.ChatCompletionMessage, 0, len(messages))
	for i, message := range messages {
		role, err := toProviderRole(message.Role)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		if message.Role == RoleObservation && strings.TrimSpace(message.CallID) == "" {
			return nil, fmt.Errorf("message %d: observation missing call id", i)
		}

		toolCalls := make([]openai.ToolCall, 0, len(message.Calls))
		for _, call := range message.Calls {
			arguments := "{}"
			if len(call.Args) > 0 {
				encoded, err := json.Marshal(call.Args)
				if err != nil {
					return nil, fmt.Errorf("encode arguments for %q: %w", call.Name, err)
				}
				arguments = string(encoded)
			}
			toolCalls = append(toolCalls, openai.ToolCall{
				ID:   call.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      call.Name,
					Arguments: arguments,
				},
			})
		}

		converted = append(converted, openai.ChatCompletionMessage{
			Role:       role,
			Content:    message.Content,
			ToolCallID: message.CallID,
			ToolCalls:  toolCalls,
		})
	}
	return converted, nil
}

func toProviderRole(role Role) (string, error) {
	switch role {
	case RoleSystem:
		return openai.ChatMessageRoleSystem, nil
	case RoleUser:
		return openai.ChatMessageRoleUser, nil
	case RoleAssistant:
		return openai.ChatMessageRoleAssistant, nil
	case RoleObservation:
		return openai.ChatMessageRoleTool, nil
	default:
		return "", fmt.Errorf("unsupported role %q", role)
	}
}

func toProviderTools(actions []ActionDef) []openai.Tool {
	tools := make([]openai.Tool, len(actions))
	for i, action := range actions {
		tools[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: openai.FunctionDefinition{
				Name:        action.Name,
				Description: action.Description,
				Parameters:  action.Schema,
			},
		}
	}
	return tools
}

func fromProviderMessage(message openai.ChatCompletionMessage) (Reply, error) {
	calls := make([]ActionRequest, 0, len(message.ToolCalls))
	for _, call := range message.ToolCalls {
		args := map[string]any{}
		if strings.TrimSpace(call.Function.Arguments) != "" {
			if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
				return Reply{}, fmt.Errorf("decode arguments for %q: %w", call.Function.Name, err)
			}
		}
		calls = append(calls, ActionRequest{
			ID:   call.ID,
			Name: call.Function.Name,
			Args: args,
		})
	}

	return Reply{
		Narration: message.Content,
		Calls:     calls,
	}, nil
}
