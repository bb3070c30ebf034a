package ragerr

import (
	"encoding/json"
	"fmt"
	"strings"
)

// jsonResolution mirrors Resolution for JSON output.
type jsonResolution struct {
	Action      string `json:"action,omitempty"`
	Command     string `json:"command,omitempty"`
	Explanation string `json:"explanation,omitempty"`
}

// Response is the wire shape of the engine's structured error contract:
// {error, message, details, resolution}.
type Response struct {
	Error      string            `json:"error"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	Resolution *jsonResolution   `json:"resolution,omitempty"`
}

// ToResponse converts err into the wire-level structured error response.
// Non-RagError values are wrapped under an internal kind.
func ToResponse(err error) Response {
	ae, ok := err.(*RagError)
	if !ok {
		return Response{Error: string(KindTimeout), Message: err.Error()}
	}
	resp := Response{
		Error:   string(ae.Kind),
		Message: ae.Message,
		Details: ae.Details,
	}
	if ae.Resolution != nil {
		resp.Resolution = &jsonResolution{
			Action:      ae.Resolution.Action,
			Command:     ae.Resolution.Command,
			Explanation: ae.Resolution.Explanation,
		}
	}
	return resp
}

// FormatJSON renders err using the engine's structured error response shape.
func FormatJSON(err error) ([]byte, error) {
	if err == nil {
		return json.Marshal(nil)
	}
	return json.Marshal(ToResponse(err))
}

// FormatForCLI renders a concise, human-readable rendering for terminal output.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}
	ae, ok := err.(*RagError)
	if !ok {
		return fmt.Sprintf("Error: %s\n", err.Error())
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Error: %s\n", ae.Message)
	if ae.Resolution != nil {
		fmt.Fprintf(&sb, "  Hint: %s\n", ae.Resolution.Explanation)
		if ae.Resolution.Command != "" {
			fmt.Fprintf(&sb, "  Try:  %s\n", ae.Resolution.Command)
		}
	}
	fmt.Fprintf(&sb, "  Kind: %s\n", ae.Kind)
	return sb.String()
}

// FormatForLog returns key/value pairs suitable for slog attributes.
func FormatForLog(err error) map[string]any {
	if err == nil {
		return nil
	}
	ae, ok := err.(*RagError)
	if !ok {
		return map[string]any{"error": err.Error()}
	}
	out := map[string]any{
		"kind":      string(ae.Kind),
		"message":   ae.Message,
		"category":  string(ae.Category),
		"severity":  string(ae.Severity),
		"retryable": ae.Retryable,
	}
	if ae.Cause != nil {
		out["cause"] = ae.Cause.Error()
	}
	for k, v := range ae.Details {
		out["detail_"+k] = v
	}
	return out
}
