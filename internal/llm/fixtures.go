package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// Fixture is a recorded model reply, replayed for prompts containing Match.
type Fixture struct {
	Name      string    `json:"name"`
	Match     string    `json:"match"`
	Response  string    `json:"response"`
	Error     string    `json:"error,omitempty"`
	Model     string    `json:"model"`
	Timestamp time.Time `json:"timestamp"`
}

// LoadFixture loads a single fixture from dir/name.json.
func LoadFixture(dir, name string) (*Fixture, error) {
	fixturePath := filepath.Join(dir, name+".json")

	data, err := os.ReadFile(fixturePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("fixture not found: %s", fixturePath)
		}
		return nil, fmt.Errorf("read fixture %s: %w", name, err)
	}

	var fixture Fixture
	if err := json.Unmarshal(data, &fixture); err != nil {
		return nil, fmt.Errorf("parse fixture %s (invalid JSON): %w", name, err)
	}

	// Validate fixture has required fields
	if fixture.Name == "" {
		return nil, fmt.Errorf("fixture %s: missing 'name' field", name)
	}
	if fixture.Model == "" {
		return nil, fmt.Errorf("fixture %s: missing 'model' field", name)
	}
	if fixture.Match == "" {
		return nil, fmt.Errorf("fixture %s: missing 'match' field", name)
	}
	if fixture.Response == "" && fixture.Error == "" {
		return nil, fmt.Errorf("fixture %s: one of 'response' or 'error' is required", name)
	}

	return &fixture, nil
}

// LoadFixtures loads every *.json fixture in dir, sorted by file name.
func LoadFixtures(dir string) ([]*Fixture, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("list fixtures: %w", err)
	}
	sort.Strings(paths)

	fixtures := make([]*Fixture, 0, len(paths))
	for _, path := range paths {
		fixture, err := LoadFixture(dir, strings.TrimSuffix(filepath.Base(path), ".json"))
		if err != nil {
			return nil, err
		}
		fixtures = append(fixtures, fixture)
	}
	return fixtures, nil
}

// DefineFixtureModel registers a model named name that answers from fixtures
// recorded for that model. The first fixture whose Match occurs in the prompt wins.
func DefineFixtureModel(g *genkit.Genkit, name string, fixtures []*Fixture) {
	genkit.DefineModel(
		g,
		name,
		&ai.ModelOptions{
			Label: "Fixture replay",
			Supports: &ai.ModelSupports{
				Multiturn:  true,
				SystemRole: true,
			},
		},
		func(ctx context.Context, req *ai.ModelRequest, cb ai.ModelStreamCallback) (*ai.ModelResponse, error) {
			prompt := lastUserText(req)
			for _, f := range fixtures {
				if f.Model != name || !strings.Contains(prompt, f.Match) {
					continue
				}
				if f.Error != "" {
					return nil, fmt.Errorf("%s", f.Error)
				}
				return &ai.ModelResponse{
					Request: req,
					Message: ai.NewModelTextMessage(f.Response),
				}, nil
			}
			return nil, fmt.Errorf("no fixture matches prompt for model %s", name)
		},
	)
}
