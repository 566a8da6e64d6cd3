package mcpproto

import (
	"encoding/json"
	"errors"
)

// ToolsCallResult is the payload of a tools/call response before envelope
// unwrapping, grounded on the MCP content-block shape (a list of typed
// content items plus an isError flag).
type ToolsCallResult struct {
	Content           []ContentItem   `json:"content"`
	IsError           bool            `json:"isError"`
	StructuredContent json.RawMessage `json:"structuredContent,omitempty"`
}

// ContentItem is one block of a tool result's content array.
type ContentItem struct {
	Type     string  `json:"type"`
	Text     *string `json:"text"`
	MimeType *string `json:"mimeType"`
}

func (c ContentItem) text() string {
	if c.Text == nil {
		return ""
	}
	return *c.Text
}

// NormalizedResult is the flattened shape Scenario assertions evaluate
// against: a JSON payload (parsed when the content was itself JSON text),
// whether the server flagged the call as an error, and the original
// structured content block when the server provided one directly.
type NormalizedResult struct {
	Payload    json.RawMessage
	Structured json.RawMessage
	IsError    bool
}

// NormalizeToolResult unwraps the MCP content envelope into a flat payload:
// JSON text becomes parsed JSON, plain text becomes a JSON string, and a
// server-supplied structuredContent block is preferred when present.
// Generalized from the teacher's normalizeToolResult (which assumed
// Content[0] alone) to only require the envelope be non-empty or
// structuredContent be present.
func NormalizeToolResult(result ToolsCallResult) (NormalizedResult, error) {
	if result.StructuredContent != nil {
		return NormalizedResult{Payload: result.StructuredContent, Structured: result.StructuredContent, IsError: result.IsError}, nil
	}
	if len(result.Content) == 0 {
		return NormalizedResult{}, errors.New("mcp tool result has no content")
	}
	item := result.Content[0]
	var payload json.RawMessage
	if item.Text != nil {
		textBytes := []byte(*item.Text)
		if json.Valid(textBytes) {
			payload = append(json.RawMessage(nil), textBytes...)
		} else {
			marshaled, err := json.Marshal(*item.Text)
			if err != nil {
				return NormalizedResult{}, err
			}
			payload = marshaled
		}
	}
	if len(payload) == 0 {
		text := item.text()
		if text == "" {
			return NormalizedResult{}, errors.New("mcp tool result content has no text")
		}
		marshaled, err := json.Marshal(text)
		if err != nil {
			return NormalizedResult{}, err
		}
		payload = marshaled
	}
	var structured json.RawMessage
	if item.MimeType != nil && *item.MimeType == "application/json" && json.Valid(payload) {
		structured = append(json.RawMessage(nil), payload...)
	}
	return NormalizedResult{Payload: payload, Structured: structured, IsError: result.IsError}, nil
}
