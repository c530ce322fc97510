package core

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"genshell/internal/llm"
	"genshell/internal/repository"
	"genshell/internal/shell"
	"genshell/internal/terminal"
	"genshell/pkg/schema"
)

// syncBuffer is the terminal stand-in; the controller and dispatch
// goroutines write to it concurrently with test assertions.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

// fakeShell records forwarded lines.
type fakeShell struct {
	mu     sync.Mutex
	lines  []string
	closed bool
	done   chan struct{}
}

func newFakeShell() *fakeShell {
	return &fakeShell{done: make(chan struct{})}
}

func (f *fakeShell) WriteLine(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return shell.ErrProcessClosed
	}
	f.lines = append(f.lines, text)
	return nil
}

func (f *fakeShell) Lines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lines...)
}

// Commands returns forwarded lines other than prompt redraws.
func (f *fakeShell) Commands() []string {
	var out []string
	for _, l := range f.Lines() {
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}

func (f *fakeShell) Exit() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.done)
	}
}

// BreakPipe makes writes fail while the process still looks alive.
func (f *fakeShell) BreakPipe() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeShell) Done() <-chan struct{} {
	return f.done
}

type fakeAutostart struct {
	installed bool
	err       error
}

func (a *fakeAutostart) Remove() (bool, error) {
	if a.err != nil {
		return false, a.err
	}
	was := a.installed
	a.installed = false
	return was, nil
}

type fakePrefs struct {
	mu    sync.Mutex
	prefs repository.Preferences
	err   error
}

func (p *fakePrefs) Update(fn func(*repository.Preferences)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	fn(&p.prefs)
	return nil
}

type harness struct {
	state   *SessionState
	machine *Machine
	gateway *llm.MockGateway
	shell   *fakeShell
	out     *syncBuffer
	console *terminal.Console
}

func newHarness(t *testing.T, gw *llm.MockGateway, opts ...MachineOption) *harness {
	t.Helper()
	if gw == nil {
		gw = &llm.MockGateway{}
	}
	out := &syncBuffer{}
	console := terminal.NewConsole(out)
	printer, err := terminal.NewPrinter(console, out)
	require.NoError(t, err)

	catalog := schema.NewModelCatalog(llm.DefaultModels()...)
	state := NewSessionState(schema.DefaultLanguage(), catalog[0], schema.DefaultHistoryLimit)
	sh := newFakeShell()

	return &harness{
		state:   state,
		machine: NewMachine(state, gw, sh, printer, catalog, opts...),
		gateway: gw,
		shell:   sh,
		out:     out,
		console: console,
	}
}
