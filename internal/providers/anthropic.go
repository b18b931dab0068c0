package providers

import (
	"context"
	"errors"
	"fmt"

	anthropic "github.com/liushuangls/go-anthropic/v2"

	"github.com/ChamsBouzaiene/dreami/internal/engine"
)

const (
	anthropicMaxTokens   = 4096
	anthropicTemperature = float32(0.7)
)

// AnthropicClient implements engine.LLMClient over the Messages API.
type AnthropicClient struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicClient creates a client. An empty baseURL uses the public API.
func NewAnthropicClient(apiKey, modelName, baseURL string) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, errors.New("api key is empty")
	}
	var opts []anthropic.ClientOption
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}
	return &AnthropicClient{
		client: anthropic.NewClient(apiKey, opts...),
		model:  modelName,
	}, nil
}

// request splits the system entry out, since the API takes it separately.
func (c *AnthropicClient) request(modelName string, messages []engine.ChatMessage, opts engine.ChatOptions) anthropic.MessagesRequest {
	if modelName == "" {
		modelName = c.model
	}

	var systemParts []anthropic.MessageSystemPart
	var msgs []anthropic.Message
	for _, msg := range messages {
		switch msg.Role {
		case engine.RoleSystem:
			systemParts = append(systemParts, anthropic.MessageSystemPart{Type: "text", Text: msg.Content})
		case engine.RoleAssistant:
			msgs = append(msgs, anthropic.NewAssistantTextMessage(msg.Content))
		default:
			msgs = append(msgs, anthropic.NewUserTextMessage(msg.Content))
		}
	}

	maxTokens := anthropicMaxTokens
	if opts.MaxOutputTokens > 0 {
		maxTokens = opts.MaxOutputTokens
	}
	temperature := anthropicTemperature
	if opts.Temperature > 0 {
		temperature = opts.Temperature
	}

	req := anthropic.MessagesRequest{
		Model:       anthropic.Model(modelName),
		Messages:    msgs,
		MaxTokens:   maxTokens,
		Temperature: &temperature,
	}
	if len(systemParts) > 0 {
		req.MultiSystem = systemParts
	}
	return req
}

// Chat implements engine.LLMClient.Chat.
func (c *AnthropicClient) Chat(ctx context.Context, modelName string, messages []engine.ChatMessage, opts engine.ChatOptions) (engine.LLMResponse, error) {
	resp, err := c.client.CreateMessages(ctx, c.request(modelName, messages, opts))
	if err != nil {
		httpStatus, retryAfter := extractErrorMetadata(err)
		return engine.LLMResponse{}, engine.WrapLLMError(err, httpStatus, retryAfter)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == anthropic.MessagesContentTypeText && block.Text != nil {
			text += *block.Text
		}
	}

	finishReason := "stop"
	if resp.StopReason == "max_tokens" {
		finishReason = "length"
	}

	return engine.LLMResponse{
		Assistant: engine.ChatMessage{Role: engine.RoleAssistant, Content: text},
		Usage: engine.Usage{
			Prompt:     resp.Usage.InputTokens,
			Completion: resp.Usage.OutputTokens,
			Total:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
		FinishReason: finishReason,
	}, nil
}

// Stream implements engine.LLMClient.Stream. The SDK drives callbacks from
// inside CreateMessagesStream, so the goroutine ends when that call returns.
func (c *AnthropicClient) Stream(ctx context.Context, modelName string, messages []engine.ChatMessage, opts engine.ChatOptions) (<-chan engine.StreamEvent, <-chan error) {
	eventCh := make(chan engine.StreamEvent, 10)
	errCh := make(chan error, 1)

	go func() {
		defer close(errCh)
		defer close(eventCh)

		// errCh holds one value; the first failure wins.
		fail := func(err error) {
			select {
			case errCh <- err:
			default:
			}
		}

		req := anthropic.MessagesStreamRequest{MessagesRequest: c.request(modelName, messages, opts)}
		req.OnError = func(errResp anthropic.ErrorResponse) {
			msg := "unknown error"
			if errResp.Error != nil {
				msg = errResp.Error.Message
			}
			fail(fmt.Errorf("anthropic streaming error: %s", msg))
		}
		req.OnContentBlockDelta = func(delta anthropic.MessagesEventContentBlockDeltaData) {
			if delta.Delta.Type != "text_delta" || delta.Delta.Text == nil {
				return
			}
			select {
			case eventCh <- engine.StreamEvent{Type: engine.EventTextDelta, Text: *delta.Delta.Text}:
			case <-ctx.Done():
			}
		}

		resp, err := c.client.CreateMessagesStream(ctx, req)
		if err != nil {
			httpStatus, retryAfter := extractErrorMetadata(err)
			fail(engine.WrapLLMError(err, httpStatus, retryAfter))
			return
		}
		if err := ctx.Err(); err != nil {
			fail(err)
			return
		}

		if resp.Usage.InputTokens > 0 {
			select {
			case eventCh <- engine.StreamEvent{
				Type: engine.EventUsage,
				Usage: engine.Usage{
					Prompt:     resp.Usage.InputTokens,
					Completion: resp.Usage.OutputTokens,
					Total:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
				},
			}:
			case <-ctx.Done():
				fail(ctx.Err())
				return
			}
		}
		fail(nil)
	}()

	return eventCh, errCh
}
