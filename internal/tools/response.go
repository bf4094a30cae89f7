package tools

import (
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Status tags the outcome carried by a Response.
type Status string

const (
	StatusOK        Status = "ok"
	StatusError     Status = "error"
	StatusNoChanges Status = "no changes"
)

// Response is the envelope returned by the mutating tools and by every tool
// on failure. Exactly one shape is populated per status.
type Response struct {
	Status       Status `json:"status"`
	ID           *int64 `json:"id,omitempty"`
	RowsAffected *int64 `json:"rows_affected,omitempty"`
	Message      string `json:"message,omitempty"`
}

// Created reports a successful insert.
func Created(id int64) Response {
	return Response{Status: StatusOK, ID: &id, Message: "Expense added successfully"}
}

// Affected reports a successful edit or delete.
func Affected(rows int64) Response {
	return Response{Status: StatusOK, RowsAffected: &rows}
}

// NoChanges reports an edit that had nothing to write.
func NoChanges() Response {
	return Response{Status: StatusNoChanges}
}

// Failure reports an error with a human-readable message.
func Failure(format string, args ...any) Response {
	return Response{Status: StatusError, Message: fmt.Sprintf(format, args...)}
}

// textResult renders v as the JSON text content of a tool result. Failures
// are reported in the payload's status, never through IsError.
func textResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal tool result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}
