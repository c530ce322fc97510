package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"

	"genshell/pkg/schema"
)

// Settings is the per-call snapshot of session configuration. Changing the
// session's language or model never affects a call already running.
type Settings struct {
	Language schema.Language
	Model    schema.Model
}

// generateRequest is the input of every gateway flow.
type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// Gateway runs the three AI operations as Genkit flows.
type Gateway struct {
	g *genkit.Genkit

	commandFlow    func(context.Context, generateRequest) (schema.CommandSynthesisResult, error)
	suggestionFlow func(context.Context, generateRequest) (string, error)
	chatFlow       func(context.Context, generateRequest) (string, error)
}

// NewGateway initializes Genkit for the configured provider and defines the flows.
func NewGateway(ctx context.Context, config *Config) (*Gateway, error) {
	config.SetDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var g *genkit.Genkit
	switch config.Provider {
	case ProviderGoogleAI:
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{APIKey: config.APIKey}))
	case ProviderOffline:
		g = genkit.Init(ctx)
		RegisterOfflineModels(g)
	}

	return NewGatewayWithGenkit(g), nil
}

// NewGatewayWithGenkit defines the gateway flows on an existing Genkit instance.
// Models referenced by Settings must already be registered on g.
func NewGatewayWithGenkit(g *genkit.Genkit) *Gateway {
	gw := &Gateway{g: g}

	gw.commandFlow = genkit.DefineFlow(g, "commandFlow",
		func(ctx context.Context, req generateRequest) (schema.CommandSynthesisResult, error) {
			start := time.Now()
			text, err := gw.generate(ctx, OpSynthesize, req)
			elapsed := time.Since(start)
			if err != nil {
				return schema.CommandSynthesisResult{}, err
			}

			command := cleanCommand(text)
			if command == "" {
				return schema.CommandSynthesisResult{}, NewEmptyResponseError(OpSynthesize)
			}

			return schema.CommandSynthesisResult{
				Command:        command,
				ElapsedSeconds: schema.RoundSeconds(elapsed.Seconds()),
			}, nil
		}).Run

	gw.suggestionFlow = genkit.DefineFlow(g, "suggestionFlow",
		func(ctx context.Context, req generateRequest) (string, error) {
			return gw.generate(ctx, OpExplain, req)
		}).Run

	gw.chatFlow = genkit.DefineFlow(g, "chatFlow",
		func(ctx context.Context, req generateRequest) (string, error) {
			return gw.generate(ctx, OpChat, req)
		}).Run

	return gw
}

// SynthesizeCommand asks the model for a single shell command implementing instruction.
func (gw *Gateway) SynthesizeCommand(ctx context.Context, s Settings, instruction string) (*schema.CommandSynthesisResult, error) {
	result, err := gw.commandFlow(ctx, generateRequest{
		Model:  s.Model.Name,
		Prompt: BuildCommandPrompt(s.Language, instruction),
	})
	if err != nil {
		return nil, asGatewayError(OpSynthesize, err)
	}
	return &result, nil
}

// ExplainCommand asks the model what a command does.
func (gw *Gateway) ExplainCommand(ctx context.Context, s Settings, partial string) (string, error) {
	text, err := gw.suggestionFlow(ctx, generateRequest{
		Model:  s.Model.Name,
		Prompt: BuildExplainPrompt(s.Language, partial),
	})
	if err != nil {
		return "", asGatewayError(OpExplain, err)
	}
	return text, nil
}

// Chat sends input with the bounded conversation and records the exchange in
// history. History is only modified when the call succeeds.
func (gw *Gateway) Chat(ctx context.Context, s Settings, history *schema.ChatHistory, input string) (string, error) {
	reply, err := gw.chatFlow(ctx, generateRequest{
		Model:  s.Model.Name,
		Prompt: BuildChatPrompt(s.Language, history.Turns(), input),
	})
	if err != nil {
		return "", asGatewayError(OpChat, err)
	}

	history.Append(
		schema.ChatTurn{Speaker: schema.SpeakerUser, Text: input},
		schema.ChatTurn{Speaker: schema.SpeakerAssistant, Text: reply},
	)
	return reply, nil
}

// generate makes a single model call and returns the trimmed reply text.
func (gw *Gateway) generate(ctx context.Context, op string, req generateRequest) (string, error) {
	slog.Info("AI request",
		"op", op,
		"model", req.Model,
		"prompt_length", len(req.Prompt),
	)

	start := time.Now()
	resp, err := genkit.Generate(ctx, gw.g,
		ai.WithModelName(req.Model),
		ai.WithMessages(ai.NewUserTextMessage(req.Prompt)),
	)
	duration := time.Since(start)

	if err != nil {
		slog.Error("AI request failed",
			"op", op,
			"model", req.Model,
			"error", err.Error(),
			"duration", duration,
		)
		return "", asGatewayError(op, err)
	}

	text := strings.TrimSpace(resp.Text())
	slog.Info("AI request completed",
		"op", op,
		"model", req.Model,
		"response_length", len(text),
		"duration", duration,
	)

	if text == "" {
		return "", NewEmptyResponseError(op)
	}
	return text, nil
}
