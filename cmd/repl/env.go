package main

import (
	"context"
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"

	"github.com/ChamsBouzaiene/dreami/internal/chat"
	"github.com/ChamsBouzaiene/dreami/internal/config"
	"github.com/ChamsBouzaiene/dreami/internal/engine"
	"github.com/ChamsBouzaiene/dreami/internal/memory"
	"github.com/ChamsBouzaiene/dreami/internal/project"
	"github.com/ChamsBouzaiene/dreami/internal/prompts"
	"github.com/ChamsBouzaiene/dreami/internal/providers"
	"github.com/ChamsBouzaiene/dreami/internal/session"
)

type runtimeEnv struct {
	Config  *config.Config
	Memory  *memory.Manager
	Session *chat.Session
	Model   string

	closers []io.Closer
}

func (r *runtimeEnv) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil {
			log.WithError(err).Warn("close failed")
		}
	}
}

// openStore opens the configured backend. The closer is nil when the
// backend holds no resources.
func openStore(ctx context.Context, cfg *config.Config, mgr *config.Manager) (memory.Store, io.Closer, error) {
	path := cfg.MemoryFile
	if path == "" {
		path = mgr.DefaultMemoryFile(cfg.StoreKind())
	}

	switch cfg.StoreKind() {
	case config.StoreSQLite:
		s, err := session.OpenSQLite(ctx, path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return s, s, nil
	default:
		return session.NewFileStore(path), nil, nil
	}
}

// applyProject folds the .dreami overrides found in workDir into cfg and
// returns the rules text. Project values only fill settings the user config
// leaves unset.
func applyProject(cfg *config.Config, workDir string) (string, error) {
	if workDir == "" {
		return "", nil
	}
	pc, err := project.LoadConfig(workDir)
	if err != nil {
		return "", err
	}
	if pc != nil {
		if cfg.Persona == "" {
			cfg.Persona = pc.Persona
		}
		if cfg.ContextTurns == 0 {
			cfg.ContextTurns = pc.ContextTurns
		}
	}
	return project.LoadRules(workDir)
}

func prepareRuntimeEnv(ctx context.Context, cfg *config.Config, mgr *config.Manager, workDir string) (*runtimeEnv, error) {
	env := &runtimeEnv{Config: cfg}

	rules, err := applyProject(cfg, workDir)
	if err != nil {
		return nil, err
	}
	systemPrompt, err := prompts.SystemPrompt(cfg.Persona, cfg.SystemPrompt, rules)
	if err != nil {
		return nil, fmt.Errorf("failed to build system prompt: %w", err)
	}

	opts := []memory.Option{
		memory.WithCeiling(cfg.Ceiling()),
		memory.WithTimestamps(cfg.TimestampsEnabled()),
		memory.WithPersistence(cfg.Persistence()),
	}
	if cfg.Persistence() {
		store, closer, err := openStore(ctx, cfg, mgr)
		switch {
		case err != nil:
			log.WithError(err).Warn("conversation store unavailable, this session will not be saved")
		default:
			if closer != nil {
				env.closers = append(env.closers, closer)
			}
			opts = append(opts, memory.WithStore(store))
		}
	}
	env.Memory = memory.New(systemPrompt, opts...)

	applyConfigToEnv(cfg)
	client, model, err := providers.NewLLMClientFromEnv()
	if err != nil {
		env.Close()
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	env.Model = model

	timeout, _ := cfg.Timeout() // validated at load
	env.Session = chat.New(client, env.Memory,
		chat.WithModel(model),
		chat.WithContextTurns(cfg.ContextTurns),
		chat.WithStreaming(cfg.Streaming()),
		chat.WithTimeout(timeout),
		chat.WithHooks(engine.LoggerHook{L: log.WithField("component", "llm")}),
	)

	log.WithFields(log.Fields{
		"model":   model,
		"ceiling": env.Memory.Ceiling(),
		"entries": env.Memory.Len(),
		"persist": cfg.Persistence(),
		"store":   cfg.StoreKind(),
	}).Debug("runtime ready")

	return env, nil
}
