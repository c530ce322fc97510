package core

// ModeKind identifies which handler receives the next submitted line.
type ModeKind int

const (
	ModeNormal ModeKind = iota
	ModeChat
	ModeAwaitingLanguage
	ModeAwaitingModel
	ModeAwaitingConfirmation
)

func (k ModeKind) String() string {
	switch k {
	case ModeNormal:
		return "normal"
	case ModeChat:
		return "chat"
	case ModeAwaitingLanguage:
		return "awaiting-language"
	case ModeAwaitingModel:
		return "awaiting-model"
	case ModeAwaitingConfirmation:
		return "awaiting-confirmation"
	default:
		return "unknown"
	}
}

// Mode is the active session mode. PendingCommand is set only while
// awaiting confirmation of a synthesized command.
type Mode struct {
	Kind           ModeKind
	PendingCommand string
}

func NormalMode() Mode { return Mode{Kind: ModeNormal} }

func ChatMode() Mode { return Mode{Kind: ModeChat} }

func AwaitingLanguageMode() Mode { return Mode{Kind: ModeAwaitingLanguage} }

func AwaitingModelMode() Mode { return Mode{Kind: ModeAwaitingModel} }

// AwaitingConfirmationMode holds cmd until the user answers.
func AwaitingConfirmationMode(cmd string) Mode {
	return Mode{Kind: ModeAwaitingConfirmation, PendingCommand: cmd}
}

func (m Mode) String() string {
	return m.Kind.String()
}

// Awaiting reports whether the next line answers a sub-prompt.
func (m Mode) Awaiting() bool {
	switch m.Kind {
	case ModeAwaitingLanguage, ModeAwaitingModel, ModeAwaitingConfirmation:
		return true
	}
	return false
}
