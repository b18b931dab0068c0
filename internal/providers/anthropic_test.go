package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChamsBouzaiene/dreami/internal/engine"
)

type sseEvent struct {
	name string
	data string
}

func anthropicServer(t *testing.T, status int, contentType string, write func(w http.ResponseWriter)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/messages"))
		assert.Equal(t, "k", r.Header.Get("X-Api-Key"))
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(status)
		write(w)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeEvents(events []sseEvent) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		for _, ev := range events {
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.name, ev.data)
		}
	}
}

func textDelta(s string) sseEvent {
	return sseEvent{"content_block_delta", fmt.Sprintf(`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":%q}}`, s)}
}

var anthropicPrelude = []sseEvent{
	{"message_start", `{"type":"message_start","message":{"id":"msg_1","type":"message","role":"assistant","model":"claude-test","content":[],"stop_reason":null,"usage":{"input_tokens":12,"output_tokens":1}}}`},
	{"content_block_start", `{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`},
	{"ping", `{"type":"ping"}`},
}

func testMessages() []engine.ChatMessage {
	return []engine.ChatMessage{
		{Role: engine.RoleSystem, Content: "sys"},
		{Role: engine.RoleUser, Content: "hi"},
	}
}

func TestAnthropicClient_Stream(t *testing.T) {
	events := append([]sseEvent{}, anthropicPrelude...)
	events = append(events,
		textDelta("Hel"),
		textDelta("lo"),
		sseEvent{"content_block_stop", `{"type":"content_block_stop","index":0}`},
		sseEvent{"message_delta", `{"type":"message_delta","delta":{"stop_reason":"end_turn","stop_sequence":null},"usage":{"output_tokens":5}}`},
		sseEvent{"message_stop", `{"type":"message_stop"}`},
	)
	srv := anthropicServer(t, http.StatusOK, "text/event-stream", writeEvents(events))

	client, err := NewAnthropicClient("k", "claude-test", srv.URL)
	require.NoError(t, err)

	evCh, errCh := client.Stream(context.Background(), "", testMessages(), engine.ChatOptions{})

	var text strings.Builder
	var usage []engine.Usage
	for ev := range evCh {
		switch ev.Type {
		case engine.EventTextDelta:
			text.WriteString(ev.Text)
		case engine.EventUsage:
			usage = append(usage, ev.Usage)
		}
	}
	require.NoError(t, <-errCh)
	assert.Equal(t, "Hello", text.String())
	require.Len(t, usage, 1)
	assert.Equal(t, 12, usage[0].Prompt)
	assert.Equal(t, 5, usage[0].Completion)
	assert.Equal(t, 17, usage[0].Total)
}

func TestAnthropicClient_StreamErrorEvent(t *testing.T) {
	events := append([]sseEvent{}, anthropicPrelude...)
	events = append(events,
		textDelta("Hel"),
		sseEvent{"error", `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`},
	)
	srv := anthropicServer(t, http.StatusOK, "text/event-stream", writeEvents(events))

	client, err := NewAnthropicClient("k", "claude-test", srv.URL)
	require.NoError(t, err)

	text, err := drain(client.Stream(context.Background(), "", testMessages(), engine.ChatOptions{}))
	assert.Equal(t, "Hel", text)
	assert.Error(t, err)
}

func TestAnthropicClient_StreamHTTPError(t *testing.T) {
	srv := anthropicServer(t, http.StatusUnauthorized, "application/json", func(w http.ResponseWriter) {
		fmt.Fprint(w, `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`)
	})

	client, err := NewAnthropicClient("k", "claude-test", srv.URL)
	require.NoError(t, err)

	text, err := drain(client.Stream(context.Background(), "", testMessages(), engine.ChatOptions{}))
	assert.Empty(t, text)
	var ee *engine.EngineError
	assert.ErrorAs(t, err, &ee)
}

func TestAnthropicClient_Chat(t *testing.T) {
	srv := anthropicServer(t, http.StatusOK, "application/json", func(w http.ResponseWriter) {
		fmt.Fprint(w, `{"id":"msg_1","type":"message","role":"assistant","model":"claude-test",`+
			`"content":[{"type":"text","text":"哼，"},{"type":"text","text":"才不是"}],`+
			`"stop_reason":"max_tokens","usage":{"input_tokens":3,"output_tokens":2}}`)
	})

	client, err := NewAnthropicClient("k", "claude-test", srv.URL)
	require.NoError(t, err)

	resp, err := client.Chat(context.Background(), "", testMessages(), engine.ChatOptions{MaxOutputTokens: 64})
	require.NoError(t, err)
	assert.Equal(t, engine.RoleAssistant, resp.Assistant.Role)
	assert.Equal(t, "哼，才不是", resp.Assistant.Content)
	assert.Equal(t, "length", resp.FinishReason)
	assert.Equal(t, engine.Usage{Prompt: 3, Completion: 2, Total: 5}, resp.Usage)
}

func TestNewAnthropicClient_RequiresKey(t *testing.T) {
	_, err := NewAnthropicClient("", "m", "")
	assert.Error(t, err)
}
