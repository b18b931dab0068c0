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

func sseServer(t *testing.T, chunks []string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		w.Header().Set("Content-Type", "text/event-stream")
		for _, c := range chunks {
			fmt.Fprintf(w, "data: {\"id\":\"1\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", c)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(srv.Close)
	return srv
}

func drain(events <-chan engine.StreamEvent, errs <-chan error) (string, error) {
	var b strings.Builder
	for ev := range events {
		if ev.Type == engine.EventTextDelta {
			b.WriteString(ev.Text)
		}
	}
	return b.String(), <-errs
}

func TestOpenAIClient_Stream(t *testing.T) {
	srv := sseServer(t, []string{"Hel", "lo", "!"})

	client, err := NewOpenAIClient("k", "deepseek-chat", srv.URL)
	require.NoError(t, err)

	events, errs := client.Stream(context.Background(), "", []engine.ChatMessage{
		{Role: engine.RoleSystem, Content: "sys"},
		{Role: engine.RoleUser, Content: "hi"},
	}, engine.ChatOptions{})

	text, err := drain(events, errs)
	require.NoError(t, err)
	assert.Equal(t, "Hello!", text)
}

func TestOpenAIClient_StreamHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	client, err := NewOpenAIClient("k", "m", srv.URL)
	require.NoError(t, err)

	events, errs := client.Stream(context.Background(), "", []engine.ChatMessage{{Role: engine.RoleUser, Content: "hi"}}, engine.ChatOptions{})
	text, err := drain(events, errs)
	assert.Empty(t, text)

	var ee *engine.EngineError
	require.ErrorAs(t, err, &ee)
	assert.True(t, ee.IsAuth)
}

func TestNewOpenAIClient_RequiresKey(t *testing.T) {
	_, err := NewOpenAIClient("", "m", "")
	assert.Error(t, err)
}
