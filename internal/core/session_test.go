package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genshell/pkg/schema"
)

func TestNewSessionState(t *testing.T) {
	model := schema.NewModel("googleai/gemini-2.5-flash")
	state := NewSessionState(schema.DefaultLanguage(), model, 0)

	assert.True(t, strings.HasPrefix(state.ID, "SES-"))
	assert.Equal(t, ModeNormal, state.Mode.Kind)
	assert.Equal(t, 0, state.Input.Len())
	assert.Equal(t, 0, state.History.Len())
	assert.Equal(t, schema.DefaultHistoryLimit, state.History.Limit())
	assert.Equal(t, "EN", state.Language.Code)
	assert.Equal(t, model, state.Model)

	other := NewSessionState(schema.DefaultLanguage(), model, 5)
	assert.NotEqual(t, state.ID, other.ID)
	assert.Equal(t, 5, other.History.Limit())
}

func TestResolveModel(t *testing.T) {
	catalog := schema.NewModelCatalog("googleai/a", "googleai/b")

	tests := []struct {
		value   string
		want    string
		wantErr bool
	}{
		{"", "googleai/a", false},
		{"googleai/b", "googleai/b", false},
		{"2", "googleai/b", false},
		{" 1 ", "googleai/a", false},
		{"3", "", true},
		{"0", "", true},
		{"googleai/c", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			model, err := ResolveModel(catalog, tt.value)
			if tt.wantErr {
				var selErr *schema.InvalidSelectionError
				assert.ErrorAs(t, err, &selErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, model.Name)
		})
	}

	_, err := ResolveModel(nil, "")
	assert.Error(t, err)
}
