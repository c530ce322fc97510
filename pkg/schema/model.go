package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// Model identifies the generative model behind subsequent gateway calls.
type Model struct {
	// Name is the fully qualified Genkit model name, e.g. googleai/gemini-2.5-flash
	Name string `json:"name" yaml:"name"`

	// Label is the short name shown in the selection menu
	Label string `json:"label" yaml:"label"`
}

// NewModel builds a Model from a Genkit model name, using the part after the
// provider prefix as the label.
func NewModel(name string) Model {
	label := name
	if i := strings.Index(name, "/"); i >= 0 {
		label = name[i+1:]
	}
	return Model{Name: name, Label: label}
}

// ModelCatalog is the numbered list of models offered by the model? prompt.
type ModelCatalog []Model

// NewModelCatalog builds a catalog from Genkit model names.
func NewModelCatalog(names ...string) ModelCatalog {
	catalog := make(ModelCatalog, 0, len(names))
	for _, name := range names {
		catalog = append(catalog, NewModel(name))
	}
	return catalog
}

// At returns the model for a 1-based index.
func (c ModelCatalog) At(index int) (Model, bool) {
	if index < 1 || index > len(c) {
		return Model{}, false
	}
	return c[index-1], true
}

// IndexOf returns the 1-based index of the named model, or 0.
func (c ModelCatalog) IndexOf(name string) int {
	for i, m := range c {
		if m.Name == name {
			return i + 1
		}
	}
	return 0
}

// Select parses a menu answer and returns the chosen model.
func (c ModelCatalog) Select(answer string) (Model, error) {
	trimmed := strings.TrimSpace(answer)
	index, err := strconv.Atoi(trimmed)
	if err != nil {
		return Model{}, &InvalidSelectionError{
			Field:   "model",
			Value:   answer,
			Message: fmt.Sprintf("expected a number between 1 and %d", len(c)),
			Err:     err,
		}
	}
	model, ok := c.At(index)
	if !ok {
		return Model{}, &InvalidSelectionError{
			Field:   "model",
			Value:   answer,
			Message: fmt.Sprintf("expected a number between 1 and %d", len(c)),
		}
	}
	return model, nil
}
