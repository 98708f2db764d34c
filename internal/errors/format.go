package errors

import (
	"encoding/json"
	"fmt"
)

// FormatForCLI formats an error for CLI output: a concise message plus any
// attached details, suitable for terminal display.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	e, ok := err.(*Error)
	if !ok {
		return fmt.Sprintf("Error: %s\n", err.Error())
	}

	msg := fmt.Sprintf("Error: %s\n  Kind: %s\n", e.Message, e.Kind)
	for k, v := range e.Details {
		msg += fmt.Sprintf("  %s: %s\n", k, v)
	}
	return msg
}

// jsonError is the JSON representation of an error.
type jsonError struct {
	Kind    string            `json:"kind"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
	Cause   string            `json:"cause,omitempty"`
}

// FormatJSON returns a JSON representation of the error, for machine
// consumption (CLI --format json, MCP tool error payloads).
func FormatJSON(err error) ([]byte, error) {
	if err == nil {
		return json.Marshal(nil)
	}

	e, ok := err.(*Error)
	if !ok {
		return json.Marshal(jsonError{Message: err.Error()})
	}

	je := jsonError{Kind: string(e.Kind), Message: e.Message, Details: e.Details}
	if e.Cause != nil {
		je.Cause = e.Cause.Error()
	}
	return json.Marshal(je)
}

// FormatForLog returns key-value pairs suitable for slog attributes.
func FormatForLog(err error) map[string]any {
	if err == nil {
		return nil
	}

	e, ok := err.(*Error)
	if !ok {
		return map[string]any{"error": err.Error()}
	}

	result := map[string]any{
		"error_kind": string(e.Kind),
		"message":    e.Message,
	}
	if e.Cause != nil {
		result["cause"] = e.Cause.Error()
	}
	for k, v := range e.Details {
		result["detail_"+k] = v
	}
	return result
}
