// Package chat runs one conversation turn at a time against a completion
// service, streaming the reply to a sink and recording both sides in memory.
package chat

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/ChamsBouzaiene/dreami/internal/engine"
	"github.com/ChamsBouzaiene/dreami/internal/memory"
)

// Session binds a completion client to a memory manager.
type Session struct {
	ID string

	llm          engine.LLMClient
	mem          *memory.Manager
	model        string
	contextTurns int
	stream       bool
	timeout      time.Duration
	chatOpts     engine.ChatOptions
	hooks        engine.Hooks
	logger       *log.Entry
}

// Option configures a Session.
type Option func(*Session)

// WithModel sets the model identifier sent with every request.
func WithModel(model string) Option {
	return func(s *Session) { s.model = model }
}

// WithContextTurns limits each request to the system entry plus the last n
// turns. n <= 0 sends the whole log.
func WithContextTurns(n int) Option {
	return func(s *Session) { s.contextTurns = n }
}

// WithStreaming toggles incremental delivery. When off, the reply is
// fetched in one call and written as a single fragment.
func WithStreaming(enabled bool) Option {
	return func(s *Session) { s.stream = enabled }
}

// WithTimeout bounds each request. Zero means no limit beyond ctx.
func WithTimeout(d time.Duration) Option {
	return func(s *Session) { s.timeout = d }
}

// WithChatOptions sets the sampling knobs forwarded to the provider.
func WithChatOptions(opts engine.ChatOptions) Option {
	return func(s *Session) { s.chatOpts = opts }
}

// WithHooks adds observers for each exchange.
func WithHooks(hooks ...engine.Hook) Option {
	return func(s *Session) { s.hooks = append(s.hooks, hooks...) }
}

// WithLogger replaces the session logger.
func WithLogger(l *log.Entry) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a session. Streaming is on by default.
func New(llm engine.LLMClient, mem *memory.Manager, opts ...Option) *Session {
	id := uuid.NewString()
	s := &Session{
		ID:     id,
		llm:    llm,
		mem:    mem,
		stream: true,
		logger: log.WithFields(log.Fields{"component": "chat", "session": id}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send records userText, asks the service for a reply with the current log as
// context, writes each fragment to out as it arrives and records the reply.
//
// If the stream fails after it started, the text received so far is still
// recorded and returned together with a *engine.StreamError. Storage failures
// are logged and never fail the turn.
func (s *Session) Send(ctx context.Context, userText string, out io.Writer) (string, error) {
	if err := s.mem.Add(ctx, memory.RoleUser, userText); err != nil {
		s.recordFailure(err)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	msgs := s.snapshot()
	s.hooks.OnBeforeLLM(ctx, s.model, msgs)
	started := time.Now()

	var (
		reply string
		usage engine.Usage
		err   error
	)
	if s.stream {
		reply, usage, err = s.streamReply(ctx, msgs, out)
	} else {
		reply, usage, err = s.chatReply(ctx, msgs, out)
	}

	// Whatever arrived is committed, complete or not.
	if perr := s.mem.Add(context.WithoutCancel(ctx), memory.RoleAssistant, reply); perr != nil {
		s.recordFailure(perr)
	}

	s.logger.WithFields(log.Fields{
		"reply_bytes": len(reply),
		"duration":    time.Since(started).Round(time.Millisecond),
	}).Debug("turn finished")

	if err != nil {
		s.hooks.OnError(ctx, err)
		return reply, &engine.StreamError{Err: err, Partial: reply}
	}
	s.hooks.OnAfterLLM(ctx, engine.LLMResponse{
		Assistant:    engine.ChatMessage{Role: engine.RoleAssistant, Content: reply},
		Usage:        usage,
		FinishReason: "stop",
	})
	return reply, nil
}

// snapshot converts the log into request messages. Content is sanitized again
// since a restored log may predate sanitization; timestamps are not sent.
func (s *Session) snapshot() []engine.ChatMessage {
	window := s.mem.Window(s.contextTurns)
	msgs := make([]engine.ChatMessage, 0, len(window))
	for _, m := range window {
		msgs = append(msgs, engine.ChatMessage{
			Role:    engine.MessageRole(m.Role),
			Content: memory.Sanitize(m.Content),
		})
	}
	return msgs
}

func (s *Session) streamReply(ctx context.Context, msgs []engine.ChatMessage, out io.Writer) (string, engine.Usage, error) {
	events, errs := s.llm.Stream(ctx, s.model, msgs, s.chatOpts)

	var (
		acc   strings.Builder
		usage engine.Usage
		sink  = &fragmentWriter{w: out, logger: s.logger}
	)
	for ev := range events {
		switch ev.Type {
		case engine.EventTextDelta:
			if ev.Text == "" {
				continue
			}
			sink.write(ev.Text)
			acc.WriteString(ev.Text)
			s.hooks.OnStreamDelta(ctx, ev.Text)
		case engine.EventUsage:
			usage = ev.Usage
		}
	}

	return acc.String(), usage, <-errs
}

func (s *Session) chatReply(ctx context.Context, msgs []engine.ChatMessage, out io.Writer) (string, engine.Usage, error) {
	resp, err := s.llm.Chat(ctx, s.model, msgs, s.chatOpts)
	if err != nil {
		return "", engine.Usage{}, err
	}
	reply := resp.Assistant.Content
	if reply != "" {
		(&fragmentWriter{w: out, logger: s.logger}).write(reply)
		s.hooks.OnStreamDelta(ctx, reply)
	}
	return reply, resp.Usage, nil
}

func (s *Session) recordFailure(err error) {
	var perr *memory.PersistError
	if errors.As(err, &perr) {
		s.logger.WithError(perr.Err).Warnf("memory %s failed, continuing in memory only", perr.Op)
		return
	}
	s.logger.WithError(err).Warn("could not record message")
}

// fragmentWriter forwards fragments to the caller's sink. A failing sink is
// reported once; accumulation continues regardless.
type fragmentWriter struct {
	w      io.Writer
	logger *log.Entry
	failed bool
}

func (f *fragmentWriter) write(text string) {
	if f.w == nil || f.failed {
		return
	}
	if _, err := io.WriteString(f.w, text); err != nil {
		f.failed = true
		f.logger.WithError(err).Warn("output sink failed, reply is still recorded")
	}
}
