package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"genshell/internal/llm"
	"genshell/internal/repository"
	"genshell/internal/terminal"
	"genshell/pkg/schema"
)

// Reserved lines recognized in Normal mode.
const (
	CmdLanguage        = "lang?"
	CmdModel           = "model?"
	CmdAutostartRemove = "autostart-remove"
	CmdChat            = "?"
	CmdExitChat        = "exit"
)

// Gateway is the AI backend used by the Machine.
type Gateway interface {
	SynthesizeCommand(ctx context.Context, s llm.Settings, instruction string) (*schema.CommandSynthesisResult, error)
	ExplainCommand(ctx context.Context, s llm.Settings, partial string) (string, error)
	Chat(ctx context.Context, s llm.Settings, history *schema.ChatHistory, input string) (string, error)
}

// LineWriter forwards a line to the shell.
type LineWriter interface {
	WriteLine(text string) error
}

// AutostartRemover removes the shell startup hook.
type AutostartRemover interface {
	Remove() (bool, error)
}

// PreferencesUpdater persists selections across sessions.
type PreferencesUpdater interface {
	Update(fn func(*repository.Preferences)) error
}

// Machine interprets submitted lines according to the session mode.
type Machine struct {
	state   *SessionState
	gateway Gateway
	shell   LineWriter
	printer *terminal.Printer
	catalog schema.ModelCatalog
	logger  Logger

	autostart AutostartRemover
	prefs     PreferencesUpdater
}

// MachineOption configures optional Machine collaborators.
type MachineOption func(*Machine)

// WithAutostart enables the autostart-remove command.
func WithAutostart(a AutostartRemover) MachineOption {
	return func(m *Machine) { m.autostart = a }
}

// WithPreferences persists language and model selections.
func WithPreferences(p PreferencesUpdater) MachineOption {
	return func(m *Machine) { m.prefs = p }
}

// WithLogger sets the logger. Default: NopLogger.
func WithLogger(l Logger) MachineOption {
	return func(m *Machine) { m.logger = l }
}

// NewMachine creates a Machine operating on state.
func NewMachine(state *SessionState, gateway Gateway, shell LineWriter, printer *terminal.Printer, catalog schema.ModelCatalog, opts ...MachineOption) *Machine {
	m := &Machine{
		state:   state,
		gateway: gateway,
		shell:   shell,
		printer: printer,
		catalog: catalog,
		logger:  NopLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Dispatch handles one submitted line. The returned error is fatal to the
// session; AI and selection failures are rendered and return nil.
// Dispatch must not be called concurrently.
func (m *Machine) Dispatch(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	mode := m.state.Mode
	m.logger.Debug("dispatch", "session", m.state.ID, "mode", mode.String(), "length", len(line))

	var (
		wrote bool
		err   error
	)
	switch mode.Kind {
	case ModeAwaitingLanguage:
		m.selectLanguage(line)
	case ModeAwaitingModel:
		m.selectModel(line)
	case ModeAwaitingConfirmation:
		wrote, err = m.confirm(line, mode.PendingCommand)
	case ModeChat:
		m.chat(ctx, line)
	default:
		wrote, err = m.normal(ctx, line)
	}
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		return nil
	}

	// Let the shell print a fresh prompt below whatever was rendered.
	if !wrote && m.state.Mode.Kind == ModeNormal {
		return m.forward("")
	}
	return nil
}

func (m *Machine) normal(ctx context.Context, line string) (bool, error) {
	switch {
	case line == CmdLanguage:
		m.show(m.printer.Notice("Languages: " + strings.Join(schema.LanguageCodes(), ", ")))
		m.show(m.printer.Prompt("Select a language: "))
		m.state.Mode = AwaitingLanguageMode()
		return false, nil

	case line == CmdModel:
		m.show(m.printer.Notice("Available models:"))
		for i, model := range m.catalog {
			m.show(m.printer.Line(fmt.Sprintf("[%d] %s", i+1, model.Name)))
		}
		m.show(m.printer.Prompt(fmt.Sprintf("Select model [1-%d]: ", len(m.catalog))))
		m.state.Mode = AwaitingModelMode()
		return false, nil

	case line == CmdAutostartRemove:
		m.removeAutostart()
		return false, nil

	case line == CmdChat:
		m.state.Mode = ChatMode()
		m.show(m.printer.Notice(`Chat mode: type "exit" to exit.`))
		return false, nil

	case len([]rune(line)) > 1 && strings.HasSuffix(line, "?"):
		m.explain(ctx, strings.TrimSuffix(line, "?"))
		return false, nil

	case strings.HasPrefix(line, "!"):
		m.synthesize(ctx, strings.TrimSpace(strings.TrimPrefix(line, "!")))
		return false, nil
	}

	return true, m.forward(line)
}

func (m *Machine) explain(ctx context.Context, partial string) {
	text, err := m.gateway.ExplainCommand(ctx, m.settings(), partial)
	if err != nil {
		m.fail(ctx, err)
		return
	}
	m.show(m.printer.Notice("Info: " + partial))
	m.show(m.printer.Explanation(text))
}

func (m *Machine) synthesize(ctx context.Context, instruction string) {
	if instruction == "" {
		m.show(m.printer.Notice("Usage: !<instruction>, for example: !list files by size"))
		return
	}

	m.show(m.printer.Notice("Thinking..."))
	result, err := m.gateway.SynthesizeCommand(ctx, m.settings(), instruction)
	if err != nil {
		m.fail(ctx, err)
		return
	}

	m.show(m.printer.Command(result.Command, result.ElapsedSeconds))
	m.show(m.printer.Prompt("Execute? (Y/N): "))
	m.state.Mode = AwaitingConfirmationMode(result.Command)
}

func (m *Machine) confirm(answer, cmd string) (bool, error) {
	m.state.Mode = NormalMode()
	if strings.EqualFold(answer, "y") {
		m.logger.Info("executing synthesized command", "session", m.state.ID)
		return true, m.forward(cmd)
	}
	m.show(m.printer.Notice("Cancelled."))
	return false, nil
}

func (m *Machine) chat(ctx context.Context, line string) {
	if strings.EqualFold(line, CmdExitChat) {
		m.state.Mode = NormalMode()
		m.show(m.printer.Notice("Chat ended."))
		return
	}
	if line == "" {
		return
	}

	reply, err := m.gateway.Chat(ctx, m.settings(), m.state.History, line)
	if err != nil {
		m.fail(ctx, err)
		return
	}
	m.show(m.printer.Assistant(reply))
}

func (m *Machine) selectLanguage(answer string) {
	m.state.Mode = NormalMode()

	lang, err := schema.ParseLanguage(answer)
	if err != nil {
		m.show(m.printer.Error(err))
		return
	}
	m.state.Language = lang
	m.show(m.printer.Success("Language switched to: " + lang.Code))
	m.persist(func(p *repository.Preferences) { p.Language = lang.Code })
}

func (m *Machine) selectModel(answer string) {
	m.state.Mode = NormalMode()

	model, err := m.catalog.Select(answer)
	if err != nil {
		m.show(m.printer.Error(err))
		return
	}
	m.state.Model = model
	m.show(m.printer.Success("Model switched to: " + model.Name))
	m.persist(func(p *repository.Preferences) { p.Model = model.Name })
}

func (m *Machine) removeAutostart() {
	if m.autostart == nil {
		m.show(m.printer.Notice("Autostart was not found."))
		return
	}
	removed, err := m.autostart.Remove()
	switch {
	case err != nil:
		m.show(m.printer.Error(fmt.Errorf("failed to remove autostart: %w", err)))
	case removed:
		m.show(m.printer.Success("Autostart removed."))
	default:
		m.show(m.printer.Notice("Autostart was not found."))
	}
}

func (m *Machine) forward(line string) error {
	if err := m.shell.WriteLine(line); err != nil {
		return &SessionError{Operation: "forward", Message: "shell is not accepting input", Err: err}
	}
	return nil
}

// settings snapshots the values the next AI call uses.
func (m *Machine) settings() llm.Settings {
	return llm.Settings{Language: m.state.Language, Model: m.state.Model}
}

func (m *Machine) persist(fn func(*repository.Preferences)) {
	if m.prefs == nil {
		return
	}
	if err := m.prefs.Update(fn); err != nil {
		m.logger.Warn("failed to save preferences", "error", err)
	}
}

// fail renders a recoverable AI error. Nothing is rendered once the session
// is shutting down.
func (m *Machine) fail(ctx context.Context, err error) {
	if ctx.Err() != nil {
		return
	}
	var gwErr *llm.GatewayError
	if errors.As(err, &gwErr) {
		m.logger.Warn("AI request failed", "op", gwErr.Op, "type", gwErr.Type, "error", gwErr.Err)
	} else {
		m.logger.Warn("AI request failed", "error", err)
	}
	m.show(m.printer.Error(err))
}

func (m *Machine) show(err error) {
	if err != nil {
		m.logger.Debug("render failed", "error", err)
	}
}
