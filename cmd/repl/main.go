package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/ChamsBouzaiene/dreami/internal/config"
	"github.com/ChamsBouzaiene/dreami/internal/logging"
	"github.com/ChamsBouzaiene/dreami/internal/prompts"
)

type cliFlags struct {
	configPath string
	persona    string
	stream     bool
	noSave     bool
	store      string
	memoryFile string
	logLevel   string
}

func parseFlags(args []string) (*pflag.FlagSet, *cliFlags, error) {
	f := &cliFlags{}
	fs := pflag.NewFlagSet("dreami", pflag.ContinueOnError)
	fs.StringVar(&f.configPath, "config", "", "Path to a config file (JSON or YAML)")
	fs.StringVar(&f.persona, "persona", "", "Persona for the system prompt ("+prompts.Available()+"), optionally pinned as name@version")
	fs.BoolVar(&f.stream, "stream", true, "Stream replies as they arrive")
	fs.BoolVar(&f.noSave, "no-save", false, "Keep the conversation in memory only")
	fs.StringVar(&f.store, "store", "", "Persistence backend (json, sqlite)")
	fs.StringVar(&f.memoryFile, "memory-file", "", "Where the conversation is saved")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level (debug, info, warn, error, quiet)")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return fs, f, nil
}

// applyFlags overrides cfg with flags the user actually passed.
func applyFlags(cfg *config.Config, fs *pflag.FlagSet, f *cliFlags) error {
	if fs.Changed("persona") {
		cfg.Persona = f.persona
	}
	if fs.Changed("stream") {
		cfg.Stream = config.Bool(f.stream)
	}
	if f.noSave {
		cfg.SaveToFile = config.Bool(false)
	}
	if fs.Changed("store") {
		cfg.Store = f.store
	}
	if fs.Changed("memory-file") {
		cfg.MemoryFile = f.memoryFile
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	return cfg.Validate()
}

func main() {
	_ = godotenv.Load()

	if err := run(context.Background(), os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "dreami: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs, flags, err := parseFlags(args)
	if err != nil {
		return err
	}

	var mgr *config.Manager
	if flags.configPath != "" {
		mgr = config.NewManagerForFile(flags.configPath)
	} else if mgr, err = config.NewManager(); err != nil {
		return err
	}

	cfg, err := mgr.Load()
	if err != nil {
		return err
	}
	if err := applyFlags(cfg, fs, flags); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	closer := logging.Setup(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	defer closer.Close()

	wd, err := os.Getwd()
	if err != nil {
		log.WithError(err).Warn("cannot resolve working directory, skipping project overrides")
	}
	env, err := prepareRuntimeEnv(ctx, cfg, mgr, wd)
	if err != nil {
		return err
	}
	defer env.Close()

	log.WithField("config", mgr.GetConfigPath()).Debug("configuration loaded")

	r := &repl{
		in:          os.Stdin,
		out:         os.Stdout,
		session:     env.Session,
		mem:         env.Memory,
		interactive: term.IsTerminal(int(os.Stdin.Fd())),
	}
	r.run(ctx)
	return nil
}
