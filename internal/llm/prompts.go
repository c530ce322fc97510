package llm

import (
	"fmt"
	"strings"

	"genshell/pkg/schema"
)

// BuildCommandPrompt creates the prompt turning an instruction into one shell command.
func BuildCommandPrompt(lang schema.Language, instruction string) string {
	return fmt.Sprintf("%sConvert a user instruction into a CLI command. No explanations.\nInstruction: \"%s\"",
		lang.Directive, instruction)
}

// BuildExplainPrompt creates the prompt asking what a command does.
func BuildExplainPrompt(lang schema.Language, command string) string {
	return fmt.Sprintf("%sExplain briefly what the command \"%s\" does, then suggest 3 typical ways to use it.",
		lang.Directive, command)
}

// BuildChatPrompt renders the bounded conversation plus the new user line as
// a single transcript ending with the assistant label.
func BuildChatPrompt(lang schema.Language, history []schema.ChatTurn, input string) string {
	var sb strings.Builder

	sb.WriteString(lang.Directive)
	for _, turn := range history {
		sb.WriteString(transcriptLine(lang, turn))
		sb.WriteString("\n")
	}
	sb.WriteString(transcriptLine(lang, schema.ChatTurn{Speaker: schema.SpeakerUser, Text: input}))
	sb.WriteString("\n")
	sb.WriteString(lang.AssistantLabel)
	sb.WriteString(":")

	return sb.String()
}

func transcriptLine(lang schema.Language, turn schema.ChatTurn) string {
	label := lang.UserLabel
	if turn.Speaker == schema.SpeakerAssistant {
		label = lang.AssistantLabel
	}
	return label + ": " + turn.Text
}

// cleanCommand removes markdown code fences some models wrap commands in,
// e.g. ```bash\nls -la\n```.
func cleanCommand(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		// Drop the info string (bash, sh, shell, ...) on the opening fence line
		if i := strings.IndexByte(content, '\n'); i >= 0 {
			if info := strings.TrimSpace(content[:i]); !strings.ContainsAny(info, " \t") {
				content = content[i+1:]
			}
		}
		content = strings.TrimSpace(content)
	}

	if strings.HasSuffix(content, "```") {
		content = strings.TrimSuffix(content, "```")
		content = strings.TrimSpace(content)
	}

	if strings.HasPrefix(content, "`") && strings.HasSuffix(content, "`") && len(content) > 1 {
		content = strings.Trim(content, "`")
	}

	return strings.TrimSpace(content)
}
