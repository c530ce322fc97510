package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"genshell/internal/core"
	"genshell/internal/llm"
	"genshell/internal/repository"
	"genshell/internal/shell"
	"genshell/internal/terminal"
	"genshell/pkg/schema"
)

type sessionOptions struct {
	configPath string
	shellPath  string
	language   string
	model      string
	offline    bool
	markdown   bool
	debug      bool
}

// loadConfig reads the config file and applies command-line overrides.
func (o *sessionOptions) loadConfig() (*core.Config, error) {
	cfg, err := core.LoadConfig(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.shellPath != "" {
		cfg.Shell.Path = o.shellPath
		cfg.Shell.Args = nil
	}
	if o.offline {
		cfg.AI.Provider = llm.ProviderOffline
		cfg.AI.Models = llm.OfflineModels()
		cfg.AI.Model = ""
	}
	if o.markdown {
		cfg.UI.Markdown = true
	}
	if o.debug {
		cfg.Log.Level = "debug"
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// initialSettings picks the starting language and model. Command-line
// flags win over saved preferences, which win over the config file.
func (o *sessionOptions) initialSettings(cfg *core.Config, prefs *repository.Preferences, logger core.Logger) (schema.Language, schema.Model, error) {
	catalog := cfg.Catalog()

	lang, err := schema.ParseLanguage(cfg.AI.Language)
	if err != nil {
		return schema.Language{}, schema.Model{}, err
	}
	if prefs.Language != "" {
		if saved, err := schema.ParseLanguage(prefs.Language); err == nil {
			lang = saved
		} else {
			logger.Warn("ignoring saved language", "value", prefs.Language)
		}
	}
	if o.language != "" {
		if lang, err = schema.ParseLanguage(o.language); err != nil {
			return schema.Language{}, schema.Model{}, err
		}
	}

	model, err := core.ResolveModel(catalog, cfg.AI.Model)
	if err != nil {
		return schema.Language{}, schema.Model{}, err
	}
	if prefs.Model != "" {
		if i := catalog.IndexOf(prefs.Model); i > 0 {
			model = catalog[i-1]
		} else {
			logger.Warn("ignoring saved model not in the model list", "value", prefs.Model)
		}
	}
	if o.model != "" {
		if model, err = core.ResolveModel(catalog, o.model); err != nil {
			return schema.Language{}, schema.Model{}, err
		}
	}
	return lang, model, nil
}

func runSession(ctx context.Context, opts *sessionOptions) error {
	if !terminal.IsTerminal(os.Stdin) || !terminal.IsTerminal(os.Stdout) {
		return errors.New("genshell needs an interactive terminal")
	}

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}

	logger, logFile, err := core.NewFileLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer logFile.Close()

	if cfg.AI.Provider == llm.ProviderGoogleAI && cfg.AI.APIKey == "" {
		key, err := llm.LookupAPIKey()
		if err != nil {
			logger.Warn("keyring lookup failed", "error", err)
		}
		cfg.AI.APIKey = key
	}

	gateway, err := llm.NewGateway(ctx, cfg.LLMConfig())
	if err != nil {
		return err
	}

	store := repository.NewPreferencesStore(core.DefaultPreferencesPath())
	prefs, err := store.Load()
	if err != nil {
		logger.Warn("failed to load preferences", "error", err)
		prefs = &repository.Preferences{}
	}
	lang, model, err := opts.initialSettings(cfg, prefs, logger)
	if err != nil {
		return err
	}

	bridge, err := shell.Start(ctx, shell.Options{
		Path: cfg.Shell.Path,
		Args: cfg.Shell.Args,
		Cols: cfg.Shell.Cols,
		Rows: cfg.Shell.Rows,
	})
	if err != nil {
		return err
	}
	defer bridge.Close()

	console := terminal.NewConsole(os.Stdout)
	var printerOpts []terminal.PrinterOption
	if cfg.UI.Markdown {
		printerOpts = append(printerOpts, terminal.WithMarkdown(terminal.Width(os.Stdout, cfg.Shell.Cols)))
	}
	printer, err := terminal.NewPrinter(console, os.Stdout, printerOpts...)
	if err != nil {
		return err
	}

	raw, err := terminal.EnableRaw(os.Stdin)
	if err != nil {
		return err
	}
	defer raw.Restore()

	state := core.NewSessionState(lang, model, cfg.AI.HistoryLimit)
	machine := core.NewMachine(state, gateway, bridge, printer, cfg.Catalog(),
		core.WithAutostart(repository.NewAutostart(bashrcPath(), "")),
		core.WithPreferences(store),
		core.WithLogger(logger),
	)
	controller := core.NewController(state, machine, console, bridge, logger)

	logger.Info("session started",
		"session", state.ID,
		"provider", cfg.AI.Provider,
		"model", model.Name,
		"language", lang.Code,
		"shell", cfg.Shell.Path,
	)
	_ = printer.Notice(fmt.Sprintf("genshell %s · model %s · language %s · !<instruction>, <cmd>?, ?, lang?, model?", state.ID, model.Label, lang.Code))

	// Register after the banner so early shell output follows it.
	bridge.OnOutput(func(p []byte) {
		if _, err := console.Write(p); err != nil {
			slog.Debug("terminal write failed", "error", err)
		}
	})

	err = controller.Run(ctx, os.Stdin)
	_ = raw.Restore()

	switch {
	case errors.Is(err, core.ErrInterrupted):
		logger.Info("session interrupted", "session", state.ID)
		return &exitCodeError{code: 130}
	case errors.Is(err, context.Canceled):
		logger.Info("session terminated by signal", "session", state.ID)
		return &exitCodeError{code: 143}
	case err != nil:
		logger.Error("session failed", "session", state.ID, "error", err)
		return err
	}

	select {
	case <-bridge.Done():
		if code := bridge.ExitCode(); code > 0 {
			return &exitCodeError{code: code}
		}
	default:
	}
	logger.Info("session ended", "session", state.ID)
	return nil
}
