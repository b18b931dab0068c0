package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/ChamsBouzaiene/dreami/internal/engine"
	"github.com/ChamsBouzaiene/dreami/internal/memory"
)

const (
	assistantLabel = "Dreami: "
	userPrompt     = "我: "
)

var exitTokens = map[string]bool{"退出": true, "exit": true, "e": true}

func isExit(line string) bool {
	return exitTokens[strings.ToLower(strings.TrimSpace(line))]
}

type sender interface {
	Send(ctx context.Context, userText string, out io.Writer) (string, error)
}

type repl struct {
	in          io.Reader
	out         io.Writer
	session     sender
	mem         *memory.Manager
	interactive bool // print banner and prompts
}

// run reads one line per turn until an exit token or end of input. Errors
// are reported and the loop carries on.
func (r *repl) run(ctx context.Context) {
	if r.interactive {
		fmt.Fprintln(r.out, "对话开始")
		fmt.Fprintln(r.out, "输入“退出”/“exit”/“e”退出对话，/clear 清空记忆，/memory 查看摘要，/history 查看轮数")
	}

	scanner := bufio.NewScanner(r.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		if r.interactive {
			fmt.Fprint(r.out, userPrompt)
		}
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if isExit(line) {
			fmt.Fprintln(r.out, "退出对话")
			return
		}
		if r.command(ctx, line) {
			continue
		}
		r.turn(ctx, line)
	}
	if err := scanner.Err(); err != nil {
		log.WithError(err).Warn("reading input failed")
	}
}

func (r *repl) command(ctx context.Context, line string) bool {
	switch strings.ToLower(line) {
	case "/clear":
		if err := r.mem.Clear(ctx); err != nil {
			log.WithError(err).Warn("memory cleared but not saved")
		}
		fmt.Fprintln(r.out, "记忆已清空")
	case "/memory":
		fmt.Fprintln(r.out, r.mem.Summarize())
	case "/history":
		fmt.Fprintln(r.out, r.mem.String())
	default:
		return false
	}
	return true
}

// turn sends one line. Ctrl-C during the request cancels only that request.
func (r *repl) turn(ctx context.Context, line string) {
	turnCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	fmt.Fprint(r.out, assistantLabel)
	_, err := r.session.Send(turnCtx, line, r.out)
	fmt.Fprintln(r.out)

	if err != nil {
		var se *engine.StreamError
		if errors.As(err, &se) && se.Partial != "" {
			log.WithError(se.Err).Warnf("reply interrupted, kept %d bytes", len(se.Partial))
		} else {
			log.WithError(err).Warn("request failed")
		}
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(r.out, "(已取消)")
		} else {
			fmt.Fprintf(r.out, "(%s)\n", engine.Describe(err))
		}
	}
	fmt.Fprintln(r.out)
}
