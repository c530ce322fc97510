package llm

import (
	"errors"
	"fmt"
	"os"

	gokeyring "github.com/zalando/go-keyring"
)

const (
	keyringService = "genshell"
	keyringUser    = "google-api-key"
)

// apiKeyEnvVars are checked in order before falling back to the OS keyring.
var apiKeyEnvVars = []string{"GOOGLE_API_KEY", "GEMINI_API_KEY"}

// LookupAPIKey returns the Google AI key from the environment or the OS keyring.
// A missing key is not an error; an empty string is returned.
func LookupAPIKey() (string, error) {
	for _, name := range apiKeyEnvVars {
		if key := os.Getenv(name); key != "" {
			return key, nil
		}
	}

	key, err := gokeyring.Get(keyringService, keyringUser)
	if err != nil {
		if errors.Is(err, gokeyring.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("read API key from keyring: %w", err)
	}
	return key, nil
}

// SaveAPIKey stores the Google AI key in the OS keyring.
func SaveAPIKey(key string) error {
	if key == "" {
		return fmt.Errorf("API key is empty")
	}
	if err := gokeyring.Set(keyringService, keyringUser, key); err != nil {
		return fmt.Errorf("store API key in keyring: %w", err)
	}
	return nil
}

// DeleteAPIKey removes the stored key. Deleting a missing key is not an error.
func DeleteAPIKey() error {
	if err := gokeyring.Delete(keyringService, keyringUser); err != nil && !errors.Is(err, gokeyring.ErrNotFound) {
		return fmt.Errorf("delete API key from keyring: %w", err)
	}
	return nil
}
