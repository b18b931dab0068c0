package engine

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// LoggerHook writes exchange diagnostics to a logrus entry.
type LoggerHook struct{ L *log.Entry }

func (h LoggerHook) OnBeforeLLM(_ context.Context, model string, msgs []ChatMessage) {
	tokens, _ := CountTokensForMessages(GetTokenizerForModel(model), msgs, model)
	h.L.WithFields(log.Fields{
		"model":  model,
		"msgs":   len(msgs),
		"tokens": tokens,
	}).Debug("sending request")
}

func (h LoggerHook) OnStreamDelta(context.Context, string) {}

func (h LoggerHook) OnAfterLLM(_ context.Context, r LLMResponse) {
	h.L.WithFields(log.Fields{
		"finish":     r.FinishReason,
		"prompt":     r.Usage.Prompt,
		"completion": r.Usage.Completion,
		"total":      r.Usage.Total,
	}).Debug("reply complete")
}

func (h LoggerHook) OnError(_ context.Context, err error) {
	h.L.WithError(err).WithField("class", ClassifyLLMError(err)).Warn("request failed")
}
