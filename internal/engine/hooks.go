package engine

import "context"

// Hook observes one exchange with the completion service.
type Hook interface {
	OnBeforeLLM(ctx context.Context, model string, messages []ChatMessage)
	OnStreamDelta(ctx context.Context, delta string)
	OnAfterLLM(ctx context.Context, resp LLMResponse)
	OnError(ctx context.Context, err error)
}

// NopHook lets you implement any hook you need.
type NopHook struct{}

func (NopHook) OnBeforeLLM(context.Context, string, []ChatMessage) {}
func (NopHook) OnStreamDelta(context.Context, string)              {}
func (NopHook) OnAfterLLM(context.Context, LLMResponse)            {}
func (NopHook) OnError(context.Context, error)                     {}
