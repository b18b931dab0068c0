// This file contains token counting interfaces and implementations.

package engine

import (
	"fmt"
	"strings"
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

// Tokenizer provides token counting for text.
// Different models use different tokenization schemes, so the model name is required.
type Tokenizer interface {
	CountTokens(text string, model string) (int, error)
}

// EstimateTokens provides a rough token count: about four characters per
// token plus a little for whitespace. Non-empty text counts at least 1.
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}

	charCount := len([]rune(text))
	whitespaceCount := strings.Count(text, " ") + strings.Count(text, "\n") + strings.Count(text, "\t")

	estimated := (charCount / 4) + (whitespaceCount / 6)
	if estimated < 1 {
		return 1
	}
	return estimated
}

// DefaultTokenizer uses estimation as a fallback when no specific tokenizer is available.
type DefaultTokenizer struct{}

// CountTokens implements Tokenizer using estimation.
func (t DefaultTokenizer) CountTokens(text string, model string) (int, error) {
	return EstimateTokens(text), nil
}

// TikTokenTokenizer counts with the BPE encoding that matches the model.
type TikTokenTokenizer struct{}

var codecCache sync.Map

// CountTokens implements Tokenizer.
func (TikTokenTokenizer) CountTokens(text string, model string) (int, error) {
	if text == "" {
		return 0, nil
	}
	enc, err := codecFor(model)
	if err != nil {
		return 0, err
	}
	ids, _, err := enc.Encode(text)
	if err != nil {
		return 0, fmt.Errorf("failed to encode text: %w", err)
	}
	return len(ids), nil
}

func codecFor(model string) (tokenizer.Codec, error) {
	if cached, ok := codecCache.Load(model); ok {
		return cached.(tokenizer.Codec), nil
	}

	var (
		enc tokenizer.Codec
		err error
	)
	m := strings.ToLower(strings.TrimSpace(model))
	switch {
	case strings.HasPrefix(m, "gpt-4o"), strings.HasPrefix(m, "gpt-4.1"), strings.HasPrefix(m, "o1"), strings.HasPrefix(m, "o3"):
		enc, err = tokenizer.Get(tokenizer.O200kBase)
	default:
		enc, err = tokenizer.Get(tokenizer.Cl100kBase)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load encoding for %s: %w", model, err)
	}

	actual, _ := codecCache.LoadOrStore(model, enc)
	return actual.(tokenizer.Codec), nil
}

// CountTokensForMessages counts tokens for a slice of messages, including
// about four tokens of formatting overhead per message.
func CountTokensForMessages(tok Tokenizer, messages []ChatMessage, model string) (int, error) {
	total := 0
	for _, msg := range messages {
		roleTokens, err := tok.CountTokens(string(msg.Role), model)
		if err != nil {
			return 0, fmt.Errorf("failed to count role tokens: %w", err)
		}
		contentTokens, err := tok.CountTokens(msg.Content, model)
		if err != nil {
			return 0, fmt.Errorf("failed to count content tokens: %w", err)
		}
		total += roleTokens + contentTokens + 4
	}
	return total, nil
}

// GetTokenizerForModel returns tiktoken for OpenAI-style and DeepSeek model
// names and the estimator for everything else.
func GetTokenizerForModel(model string) Tokenizer {
	m := strings.ToLower(model)
	if strings.HasPrefix(m, "gpt-") || strings.HasPrefix(m, "o1") || strings.HasPrefix(m, "o3") || strings.HasPrefix(m, "deepseek") {
		return TikTokenTokenizer{}
	}
	return DefaultTokenizer{}
}
