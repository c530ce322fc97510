package llm

import (
	"context"
	"regexp"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// OfflineModelName answers locally without any network access.
const OfflineModelName = "offline/echo"

var instructionPattern = regexp.MustCompile(`Instruction: "(.*)"\s*$`)

// OfflineModels returns the catalog used by the offline provider.
func OfflineModels() []string {
	return []string{OfflineModelName}
}

// RegisterOfflineModels registers models that reply deterministically from
// the prompt text. Command prompts get an echo of the instruction so the
// confirmation flow can be exercised without an API key.
func RegisterOfflineModels(g *genkit.Genkit) {
	genkit.DefineModel(
		g,
		OfflineModelName,
		&ai.ModelOptions{
			Label: "Offline echo (no network)",
			Supports: &ai.ModelSupports{
				Multiturn:  true,
				SystemRole: true,
			},
		},
		func(ctx context.Context, req *ai.ModelRequest, cb ai.ModelStreamCallback) (*ai.ModelResponse, error) {
			return &ai.ModelResponse{
				Request: req,
				Message: ai.NewModelTextMessage(offlineReply(lastUserText(req))),
			}, nil
		},
	)
}

func offlineReply(prompt string) string {
	if m := instructionPattern.FindStringSubmatch(prompt); m != nil {
		return "echo '" + strings.ReplaceAll(m[1], "'", `'\''`) + "'"
	}

	lines := strings.Split(strings.TrimSpace(prompt), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		// Chat transcripts end with a bare assistant label
		if line == "" || strings.HasSuffix(line, ":") {
			continue
		}
		// Drop the directive and speaker label in front of the last chat line
		if i := strings.LastIndex(line, ": "); i >= 0 {
			line = line[i+2:]
		}
		return "(offline) " + line
	}
	return "(offline)"
}

// lastUserText returns the text of the most recent user message.
func lastUserText(req *ai.ModelRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if msg := req.Messages[i]; msg != nil && msg.Role == ai.RoleUser {
			return msg.Text()
		}
	}
	return ""
}
