package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genshell/internal/llm"
	"genshell/internal/shell"
	"genshell/pkg/schema"
)

func dispatchAll(t *testing.T, h *harness, lines ...string) {
	t.Helper()
	for _, line := range lines {
		require.NoError(t, h.machine.Dispatch(context.Background(), line))
	}
}

func TestMachine_ForwardsPlainLines(t *testing.T) {
	h := newHarness(t, nil)

	dispatchAll(t, h, "ls -la", "", "echo 'hi there'")

	assert.Equal(t, []string{"ls -la", "", "echo 'hi there'"}, h.shell.Lines())
	assert.Empty(t, h.gateway.Calls())
	assert.Equal(t, ModeNormal, h.state.Mode.Kind)
}

func TestMachine_LanguageSelection(t *testing.T) {
	tests := []struct {
		answer string
		want   string
		valid  bool
	}{
		{"ru", "RU", true},
		{"RU", "RU", true},
		{" ja ", "JA", true},
		{"xx", "EN", false},
		{"", "EN", false},
		{"english", "EN", false},
	}

	for _, tt := range tests {
		t.Run(tt.answer, func(t *testing.T) {
			prefs := &fakePrefs{}
			h := newHarness(t, nil, WithPreferences(prefs))

			dispatchAll(t, h, "lang?")
			assert.Equal(t, ModeAwaitingLanguage, h.state.Mode.Kind)
			assert.Contains(t, h.out.String(), "RU, EN, DE, FR, ES, UA, ZH, JA")
			assert.Contains(t, h.out.String(), "Select a language: ")
			assert.Empty(t, h.shell.Lines(), "nothing forwarded while awaiting")

			dispatchAll(t, h, tt.answer)
			assert.Equal(t, ModeNormal, h.state.Mode.Kind)
			assert.Equal(t, tt.want, h.state.Language.Code)
			assert.Equal(t, []string{""}, h.shell.Lines(), "shell prompt redrawn")

			if tt.valid {
				assert.Contains(t, h.out.String(), "Language switched to: "+tt.want)
				assert.Equal(t, tt.want, prefs.prefs.Language)
			} else {
				assert.Contains(t, h.out.String(), "Error: language")
				assert.Empty(t, prefs.prefs.Language)
			}
		})
	}
}

func TestMachine_LanguageOutsideAllowListNeverApplies(t *testing.T) {
	allowed := map[string]bool{}
	for _, code := range schema.LanguageCodes() {
		allowed[code] = true
	}

	for a := 'A'; a <= 'Z'; a++ {
		for b := 'A'; b <= 'Z'; b++ {
			code := string([]rune{a, b})
			if allowed[code] {
				continue
			}
			h := newHarness(t, nil)
			dispatchAll(t, h, "lang?", code)
			require.Equal(t, "EN", h.state.Language.Code, "code %s", code)
			require.Equal(t, ModeNormal, h.state.Mode.Kind)
		}
	}
}

func TestMachine_ModelSelection(t *testing.T) {
	prefs := &fakePrefs{}
	h := newHarness(t, nil, WithPreferences(prefs))

	dispatchAll(t, h, "model?")
	assert.Equal(t, ModeAwaitingModel, h.state.Mode.Kind)
	assert.Contains(t, h.out.String(), "[1] googleai/gemini-2.5-flash")
	assert.Contains(t, h.out.String(), "[3] googleai/gemini-2.0-flash")
	assert.Contains(t, h.out.String(), "Select model [1-3]: ")

	dispatchAll(t, h, "2")
	assert.Equal(t, ModeNormal, h.state.Mode.Kind)
	assert.Equal(t, "googleai/gemini-2.5-pro", h.state.Model.Name)
	assert.Equal(t, "googleai/gemini-2.5-pro", prefs.prefs.Model)

	for _, bad := range []string{"0", "4", "two", ""} {
		h.out.Reset()
		dispatchAll(t, h, "model?", bad)
		assert.Equal(t, ModeNormal, h.state.Mode.Kind)
		assert.Equal(t, "googleai/gemini-2.5-pro", h.state.Model.Name, "answer %q", bad)
		assert.Contains(t, h.out.String(), "Error: model")
	}
}

func TestMachine_SelectionPersistFailureIsNotFatal(t *testing.T) {
	h := newHarness(t, nil, WithPreferences(&fakePrefs{err: errors.New("read-only")}))

	dispatchAll(t, h, "lang?", "de")
	assert.Equal(t, "DE", h.state.Language.Code)
}

func TestMachine_Chat(t *testing.T) {
	gw := &llm.MockGateway{Reply: "Hello!"}
	h := newHarness(t, gw)

	dispatchAll(t, h, "?")
	assert.Equal(t, ModeChat, h.state.Mode.Kind)
	assert.Contains(t, h.out.String(), `type "exit" to exit`)

	dispatchAll(t, h, "hi", "", "how are you?")
	assert.Equal(t, ModeChat, h.state.Mode.Kind)
	assert.Contains(t, h.out.String(), "AI: Hello!")

	calls := gw.Calls()
	require.Len(t, calls, 2, "empty chat line makes no call")
	assert.Equal(t, llm.MockCall{Op: llm.OpChat, Input: "hi", Settings: llm.Settings{Language: h.state.Language, Model: h.state.Model}}, calls[0])
	assert.Equal(t, "how are you?", calls[1].Input, "suffix ? is chat text in chat mode")

	want := []schema.ChatTurn{
		{Speaker: schema.SpeakerUser, Text: "hi"},
		{Speaker: schema.SpeakerAssistant, Text: "Hello!"},
		{Speaker: schema.SpeakerUser, Text: "how are you?"},
		{Speaker: schema.SpeakerAssistant, Text: "Hello!"},
	}
	if diff := cmp.Diff(want, h.state.History.Turns()); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, h.shell.Lines(), "chat never reaches the shell")
}

func TestMachine_ChatExit(t *testing.T) {
	for _, exit := range []string{"exit", "EXIT", "Exit"} {
		t.Run(exit, func(t *testing.T) {
			gw := &llm.MockGateway{Reply: "ok"}
			h := newHarness(t, gw)

			dispatchAll(t, h, "?", exit)
			assert.Equal(t, ModeNormal, h.state.Mode.Kind)
			assert.Empty(t, gw.Calls())
			assert.Contains(t, h.out.String(), "Chat ended.")
			assert.Equal(t, []string{""}, h.shell.Lines())
		})
	}
}

func TestMachine_ChatHistoryIsBounded(t *testing.T) {
	gw := &llm.MockGateway{Reply: "a"}
	h := newHarness(t, gw)

	dispatchAll(t, h, "?")
	for i := 0; i < 25; i++ {
		dispatchAll(t, h, fmt.Sprintf("q%d", i))
	}

	turns := h.state.History.Turns()
	require.Len(t, turns, 20)
	assert.Equal(t, "q15", turns[0].Text)
	assert.Equal(t, "q24", turns[18].Text)
}

func TestMachine_ChatFailureKeepsModeAndHistory(t *testing.T) {
	gw := &llm.MockGateway{Reply: "first"}
	h := newHarness(t, gw)
	dispatchAll(t, h, "?", "hello")
	require.Equal(t, 2, h.state.History.Len())

	gw.Error = errors.New("connection reset")
	dispatchAll(t, h, "again")

	assert.Equal(t, ModeChat, h.state.Mode.Kind)
	assert.Equal(t, 2, h.state.History.Len())
	assert.Contains(t, h.out.String(), "connection reset")
}

func TestMachine_SynthesizeAndExecute(t *testing.T) {
	gw := &llm.MockGateway{Command: "ls -la", Elapsed: 0.42}
	h := newHarness(t, gw)

	dispatchAll(t, h, "!list files")

	calls := gw.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, llm.OpSynthesize, calls[0].Op)
	assert.Equal(t, "list files", calls[0].Input)

	assert.Equal(t, AwaitingConfirmationMode("ls -la"), h.state.Mode)
	assert.Contains(t, h.out.String(), "ls -la")
	assert.Contains(t, h.out.String(), "0.42 sec")
	assert.Contains(t, h.out.String(), "Execute? (Y/N): ")
	assert.Empty(t, h.shell.Lines(), "nothing forwarded before confirmation")

	dispatchAll(t, h, "y")
	assert.Equal(t, NormalMode(), h.state.Mode)
	assert.Equal(t, []string{"ls -la"}, h.shell.Lines())
}

func TestMachine_ConfirmationAnswers(t *testing.T) {
	tests := []struct {
		answer  string
		execute bool
	}{
		{"y", true},
		{"Y", true},
		{" y ", true},
		{"n", false},
		{"N", false},
		{"yes", false},
		{"", false},
		{"ls", false},
	}

	for _, tt := range tests {
		t.Run(tt.answer, func(t *testing.T) {
			h := newHarness(t, &llm.MockGateway{Command: "rm -rf build"})
			dispatchAll(t, h, "!clean build", tt.answer)

			assert.Equal(t, NormalMode(), h.state.Mode)
			if tt.execute {
				assert.Equal(t, []string{"rm -rf build"}, h.shell.Commands())
			} else {
				assert.Empty(t, h.shell.Commands())
				assert.Contains(t, h.out.String(), "Cancelled.")
			}
		})
	}
}

func TestMachine_SynthesisFailureStaysNormal(t *testing.T) {
	gw := &llm.MockGateway{Error: errors.New("API key not valid")}
	h := newHarness(t, gw)

	dispatchAll(t, h, "!list files")

	assert.Equal(t, NormalMode(), h.state.Mode)
	assert.Contains(t, h.out.String(), "API key not valid")
	assert.Empty(t, h.shell.Commands())
}

func TestMachine_EmptyInstruction(t *testing.T) {
	gw := &llm.MockGateway{Command: "ls"}
	h := newHarness(t, gw)

	dispatchAll(t, h, "!", "!   ")

	assert.Empty(t, gw.Calls())
	assert.Equal(t, ModeNormal, h.state.Mode.Kind)
	assert.Contains(t, h.out.String(), "Usage: !<instruction>")
}

func TestMachine_Explain(t *testing.T) {
	gw := &llm.MockGateway{Explanation: "Lists directory contents."}
	h := newHarness(t, gw)

	dispatchAll(t, h, "ls -la?")

	calls := gw.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, llm.OpExplain, calls[0].Op)
	assert.Equal(t, "ls -la", calls[0].Input)
	assert.Contains(t, h.out.String(), "Info: ls -la")
	assert.Contains(t, h.out.String(), "Lists directory contents.")
	assert.Empty(t, h.shell.Commands(), "explained line never forwarded")
	assert.Equal(t, ModeNormal, h.state.Mode.Kind)
}

func TestMachine_ExplainFailure(t *testing.T) {
	gw := &llm.MockGateway{Error: errors.New("RESOURCE_EXHAUSTED")}
	h := newHarness(t, gw)

	dispatchAll(t, h, "tar?")

	assert.Equal(t, ModeNormal, h.state.Mode.Kind)
	assert.Contains(t, h.out.String(), "RESOURCE_EXHAUSTED")
	assert.Empty(t, h.shell.Commands())
}

func TestMachine_Precedence(t *testing.T) {
	tests := []struct {
		line string
		op   string
		mode ModeKind
	}{
		{"lang?", "", ModeAwaitingLanguage},
		{"model?", "", ModeAwaitingModel},
		{"?", "", ModeChat},
		{"!what?", llm.OpExplain, ModeNormal},
		{"git status?", llm.OpExplain, ModeNormal},
		{"!find big files", llm.OpSynthesize, ModeAwaitingConfirmation},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			gw := &llm.MockGateway{Command: "cmd", Explanation: "text"}
			h := newHarness(t, gw)
			dispatchAll(t, h, tt.line)

			assert.Equal(t, tt.mode, h.state.Mode.Kind)
			calls := gw.Calls()
			if tt.op == "" {
				assert.Empty(t, calls)
			} else {
				require.Len(t, calls, 1)
				assert.Equal(t, tt.op, calls[0].Op)
			}
		})
	}
}

func TestMachine_AutostartRemove(t *testing.T) {
	t.Run("installed", func(t *testing.T) {
		a := &fakeAutostart{installed: true}
		h := newHarness(t, nil, WithAutostart(a))
		dispatchAll(t, h, "autostart-remove")

		assert.False(t, a.installed)
		assert.Contains(t, h.out.String(), "Autostart removed.")
		assert.Equal(t, ModeNormal, h.state.Mode.Kind)
		assert.Empty(t, h.shell.Commands())
	})

	t.Run("not installed", func(t *testing.T) {
		h := newHarness(t, nil, WithAutostart(&fakeAutostart{}))
		dispatchAll(t, h, "autostart-remove")
		assert.Contains(t, h.out.String(), "Autostart was not found.")
	})

	t.Run("not configured", func(t *testing.T) {
		h := newHarness(t, nil)
		dispatchAll(t, h, "autostart-remove")
		assert.Contains(t, h.out.String(), "Autostart was not found.")
	})

	t.Run("failure", func(t *testing.T) {
		h := newHarness(t, nil, WithAutostart(&fakeAutostart{err: errors.New("permission denied")}))
		dispatchAll(t, h, "autostart-remove")
		assert.Contains(t, h.out.String(), "permission denied")
	})
}

func TestMachine_SettingsSnapshot(t *testing.T) {
	gw := &llm.MockGateway{Explanation: "x"}
	h := newHarness(t, gw)

	dispatchAll(t, h, "lang?", "fr", "model?", "3", "ls?")

	calls := gw.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "FR", calls[0].Settings.Language.Code)
	assert.Equal(t, "googleai/gemini-2.0-flash", calls[0].Settings.Model.Name)
}

func TestMachine_ShellClosedIsFatal(t *testing.T) {
	h := newHarness(t, &llm.MockGateway{Command: "ls"})
	h.shell.Exit()

	err := h.machine.Dispatch(context.Background(), "ls")
	require.Error(t, err)
	assert.ErrorIs(t, err, shell.ErrProcessClosed)

	var sessErr *SessionError
	assert.ErrorAs(t, err, &sessErr)
}

func TestMachine_CanceledCallRendersNothing(t *testing.T) {
	gw := &llm.MockGateway{Release: make(chan struct{})}
	h := newHarness(t, gw)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, h.machine.Dispatch(ctx, "!list files"))
	assert.NotContains(t, h.out.String(), "Error")
	assert.Equal(t, ModeNormal, h.state.Mode.Kind)
	assert.Empty(t, h.shell.Lines())
}
