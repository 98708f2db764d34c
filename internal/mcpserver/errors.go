// Package mcpserver exposes a minisearch.Index as an MCP tool server,
// fronting search/add/stats operations for AI-client callers (Claude Code,
// Cursor, or any other MCP-speaking agent).
package mcpserver

import (
	stderrors "errors"
	"fmt"

	minierrors "github.com/Aman-CERP/minisearch/internal/errors"
)

// JSON-RPC and minisearch-specific MCP error codes.
const (
	ErrCodeNotFound      = -32001
	ErrCodeQueryParse    = -32002
	ErrCodeInvalidParams = -32602
	ErrCodeInternalError = -32603
)

// MCPError is an MCP protocol error with a numeric code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("mcp error %d: %s", e.Code, e.Message)
}

// MapError converts an engine error into an MCPError, picking the code from
// its Kind when it is (or wraps) a minisearch *errors.Error.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var me *minierrors.Error
	if stderrors.As(err, &me) {
		switch me.Kind {
		case minierrors.KindNotFound:
			return &MCPError{Code: ErrCodeNotFound, Message: me.Error()}
		case minierrors.KindQueryParse, minierrors.KindDocIDParse:
			return &MCPError{Code: ErrCodeQueryParse, Message: me.Error()}
		default:
			return &MCPError{Code: ErrCodeInternalError, Message: me.Error()}
		}
	}

	return &MCPError{Code: ErrCodeInternalError, Message: err.Error()}
}

// NewInvalidParamsError builds an invalid-parameters MCPError.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}
