// Package utils holds small parsing helpers shared by the agent layers:
// lenient JSON extraction for model output and markdown cleanup for reports.
package utils

import (
	"encoding/json"
	"fmt"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

// RepairJSON fixes the common defects in model-emitted JSON: unquoted or
// single-quoted keys, trailing commas, unclosed brackets, embedded comments
// and surrounding markdown code fences.
func RepairJSON(malformed string) (string, error) {
	repaired, err := jsonrepair.RepairJSON(malformed)
	if err != nil {
		return "", fmt.Errorf("json repair failed: %w", err)
	}
	return repaired, nil
}

// ParseHJSON parses Hjson (comments, unquoted keys, optional commas) and
// re-emits standard JSON.
func ParseHJSON(input string) (string, error) {
	var result interface{}
	if err := hjson.Unmarshal([]byte(input), &result); err != nil {
		return "", fmt.Errorf("hjson parse failed: %w", err)
	}
	out, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("hjson re-marshal failed: %w", err)
	}
	return string(out), nil
}

// SmartParse unmarshals model output into schema, escalating through
// progressively more lenient strategies: strict JSON, then repair, then
// Hjson. Returns the normalized JSON string that finally parsed.
func SmartParse(input string, schema interface{}) (string, error) {
	if err := json.Unmarshal([]byte(input), schema); err == nil {
		return input, nil
	}

	if repaired, err := RepairJSON(input); err == nil {
		if err := json.Unmarshal([]byte(repaired), schema); err == nil {
			return repaired, nil
		}
	}

	if relaxed, err := ParseHJSON(input); err == nil {
		if err := json.Unmarshal([]byte(relaxed), schema); err == nil {
			return relaxed, nil
		}
	}

	return "", fmt.Errorf("smart parse failed: no strategy produced valid JSON")
}
