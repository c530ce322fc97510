package schema

import "math"

// CommandSynthesisResult is a candidate shell command produced from a
// natural-language instruction.
type CommandSynthesisResult struct {
	Command        string  `json:"command"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
}

// RoundSeconds rounds a duration in seconds to two decimal places.
func RoundSeconds(seconds float64) float64 {
	return math.Round(seconds*100) / 100
}
