package core

import (
	"fmt"
	"strconv"
	"strings"

	"genshell/pkg/schema"
)

// SessionState is the mutable state of one interactive session.
//
// Ownership is split by field: Input belongs to the Controller, which
// fills it from keystrokes; everything else belongs to the Machine, which
// only runs one dispatch at a time. Shell output never touches this type.
type SessionState struct {
	ID       string
	Mode     Mode
	Input    *InputBuffer
	History  *schema.ChatHistory
	Language schema.Language
	Model    schema.Model
}

// NewSessionState creates a session in Normal mode with empty history.
func NewSessionState(lang schema.Language, model schema.Model, historyLimit int) *SessionState {
	return &SessionState{
		ID:       schema.NewSessionID(),
		Mode:     NormalMode(),
		Input:    &InputBuffer{},
		History:  schema.NewChatHistory(historyLimit),
		Language: lang,
		Model:    model,
	}
}

// ResolveModel finds value in catalog, either as a full model name or as
// a 1-based index. An empty value selects the first entry.
func ResolveModel(catalog schema.ModelCatalog, value string) (schema.Model, error) {
	value = strings.TrimSpace(value)
	if len(catalog) == 0 {
		return schema.Model{}, fmt.Errorf("model catalog is empty")
	}
	if value == "" {
		return catalog[0], nil
	}
	if i := catalog.IndexOf(value); i > 0 {
		return catalog[i-1], nil
	}
	if _, err := strconv.Atoi(value); err == nil {
		return catalog.Select(value)
	}
	return schema.Model{}, &schema.InvalidSelectionError{
		Field:   "model",
		Value:   value,
		Message: "not in the configured model list",
	}
}
