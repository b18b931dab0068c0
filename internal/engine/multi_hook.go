package engine

import "context"

// Hooks fans every callback out to each hook in order.
type Hooks []Hook

func (hs Hooks) OnBeforeLLM(ctx context.Context, model string, m []ChatMessage) {
	for _, h := range hs {
		h.OnBeforeLLM(ctx, model, m)
	}
}
func (hs Hooks) OnStreamDelta(ctx context.Context, d string) {
	for _, h := range hs {
		h.OnStreamDelta(ctx, d)
	}
}
func (hs Hooks) OnAfterLLM(ctx context.Context, r LLMResponse) {
	for _, h := range hs {
		h.OnAfterLLM(ctx, r)
	}
}
func (hs Hooks) OnError(ctx context.Context, err error) {
	for _, h := range hs {
		h.OnError(ctx, err)
	}
}
