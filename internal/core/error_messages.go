package core

// # Error Codes Reference
//
// User-facing messages with codes for support reference. Codes are grouped
// by category:
//
// # Grid Configuration Errors (GRID001-GRID099)
//
//	GRID001 - No edit in progress: There is no cell being edited
//	          Patterns: "no cell is being edited"
//
//	GRID002 - Pin limit: Too many rows are pinned
//	          Patterns: "pinned row limit reached"
//
//	GRID003 - Unknown column: The column does not exist
//	          Patterns: "unknown column"
//
//	GRID004 - Invalid change: The requested change is not valid
//	          Patterns: "invalid transition"
//
//	GRID005 - Session not found: The grid session does not exist or expired
//	          Patterns: "grid session not found"
//
//	GRID006 - Unknown row: The row does not exist
//	          Patterns: "unknown row"
//
//	GRID007 - Duplicate row: A row with this id already exists
//	          Patterns: "duplicate row id"
//
//	GRID008 - Session limit: Too many grid sessions are open
//	          Patterns: "too many open grid sessions"
//
// # Tree Errors (TREE001-TREE099)
//
//	TREE001 - Cycle: A row is its own ancestor
//	          Patterns: "tree cycle detected"
//
//	TREE002 - Duplicate node: Two rows share a node id
//	          Patterns: "duplicate tree node id"
//
//	TREE003 - Load discarded: The node was collapsed before its children arrived
//	          Patterns: "lazy load result discarded"
//
//	TREE004 - Not loadable: The node has no lazily loaded children
//	          Patterns: "not lazily loadable"
//
//	TREE005 - Unknown node: The node does not exist
//	          Patterns: "unknown tree node"
//
// # Preset Errors (PRE001-PRE099)
//
//	PRE001 - Preset not found
//	         Patterns: "preset not found"
//
//	PRE002 - Preset storage busy
//	         Patterns: "database is locked", "preset file locked"
//
//	PRE003 - Invalid preset
//	         Patterns: "invalid preset"
//
//	PRE004 - Presets unavailable
//	         Patterns: "no preset store configured"
//
// # Remote Source Errors (SRC001-SRC099)
//
//	SRC001 - No data source
//	         Patterns: "no remote data source"
//
//	SRC002 - Source busy
//	         Patterns: "too many concurrent fetches"
//
//	SRC003 - Stale data
//	         Patterns: "stale remote block"
//
//	SRC004 - Source unreachable
//	         Patterns: "connection refused", "connection reset"
//
// # Request Errors (REQ001-REQ099, RATE001)
//
//	REQ001 - Request cancelled
//	         Patterns: "context canceled"
//
//	REQ002 - Request timed out
//	         Patterns: "context deadline exceeded", "timeout"
//
//	REQ003 - Malformed request
//	         Patterns: "invalid request body"
//
//	RATE001 - Rate limited
//	          Patterns: "rate limit"
//
// # Default Error (ERR000)
//
// Fallback when no pattern matches. Support staff should check application
// logs for the original technical error.
//
// Patterns are matched case-insensitively with strings.Contains and the first
// match wins, so specific patterns come before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened (user-friendly)
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user
// messages. Order matters: the first match wins.
var errorPatterns = []errorPattern{
	// =========================================================================
	// Grid configuration (GRID001-GRID008)
	// =========================================================================
	{
		pattern: "no cell is being edited",
		msg: UserMessage{
			Message: "There is no cell being edited",
			Action:  "Start editing a cell first",
			Code:    "GRID001",
		},
	},
	{
		pattern: "pinned row limit reached",
		msg: UserMessage{
			Message: "Too many rows are pinned",
			Action:  "Unpin a row before pinning another",
			Code:    "GRID002",
		},
	},
	{
		pattern: "unknown column",
		msg: UserMessage{
			Message: "The column does not exist",
			Action:  "Check the column field name",
			Code:    "GRID003",
		},
	},
	{
		pattern: "invalid transition",
		msg: UserMessage{
			Message: "The requested change is not valid",
			Action:  "Check the request parameters",
			Code:    "GRID004",
		},
	},
	{
		pattern: "grid session not found",
		msg: UserMessage{
			Message: "Grid session not found",
			Action:  "The session may have expired. Please create a new one",
			Code:    "GRID005",
		},
	},
	{
		pattern: "unknown row",
		msg: UserMessage{
			Message: "The row does not exist",
			Action:  "Refresh the data and try again",
			Code:    "GRID006",
		},
	},
	{
		pattern: "duplicate row id",
		msg: UserMessage{
			Message: "A row with this id already exists",
			Action:  "Use a unique id for each row",
			Code:    "GRID007",
		},
	},
	{
		pattern: "too many open grid sessions",
		msg: UserMessage{
			Message: "Too many grids are open",
			Action:  "Close an unused grid or try again later",
			Code:    "GRID008",
		},
	},

	// =========================================================================
	// Tree data (TREE001-TREE005)
	// =========================================================================
	{
		pattern: "tree cycle detected",
		msg: UserMessage{
			Message: "A row is its own ancestor",
			Action:  "Fix the parent references in your data",
			Code:    "TREE001",
		},
	},
	{
		pattern: "duplicate tree node id",
		msg: UserMessage{
			Message: "Two rows share the same node id",
			Action:  "Make node ids unique",
			Code:    "TREE002",
		},
	},
	{
		pattern: "lazy load result discarded",
		msg: UserMessage{
			Message: "The node was collapsed before its children arrived",
			Action:  "Expand the node again to reload",
			Code:    "TREE003",
		},
	},
	{
		pattern: "not lazily loadable",
		msg: UserMessage{
			Message: "This node has no children to load",
			Action:  "Expand a node that declares lazy children",
			Code:    "TREE004",
		},
	},
	{
		pattern: "unknown tree node",
		msg: UserMessage{
			Message: "The tree node does not exist",
			Action:  "Refresh the grid and try again",
			Code:    "TREE005",
		},
	},

	// =========================================================================
	// Presets (PRE001-PRE004)
	// =========================================================================
	{
		pattern: "preset not found",
		msg: UserMessage{
			Message: "Preset not found",
			Action:  "Choose an existing preset",
			Code:    "PRE001",
		},
	},
	{
		pattern: "database is locked",
		msg: UserMessage{
			Message: "Preset storage is busy",
			Action:  "Please try again",
			Code:    "PRE002",
		},
	},
	{
		pattern: "preset file locked",
		msg: UserMessage{
			Message: "Preset storage is busy",
			Action:  "Please try again",
			Code:    "PRE002",
		},
	},
	{
		pattern: "invalid preset",
		msg: UserMessage{
			Message: "The preset could not be read",
			Action:  "Save the preset again",
			Code:    "PRE003",
		},
	},
	{
		pattern: "no preset store configured",
		msg: UserMessage{
			Message: "Saved layouts are not available",
			Action:  "Configure a preset storage backend",
			Code:    "PRE004",
		},
	},

	// =========================================================================
	// Remote data source (SRC001-SRC004)
	// =========================================================================
	{
		pattern: "no remote data source",
		msg: UserMessage{
			Message: "No remote data source is configured",
			Action:  "Configure a remote source for this grid",
			Code:    "SRC001",
		},
	},
	{
		pattern: "too many concurrent fetches",
		msg: UserMessage{
			Message: "The data source is busy",
			Action:  "Please wait a moment and try again",
			Code:    "SRC002",
		},
	},
	{
		pattern: "stale remote block",
		msg: UserMessage{
			Message: "Data changed while loading",
			Action:  "Scroll again to load current rows",
			Code:    "SRC003",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to reach the data source",
			Action:  "Please try again in a few moments",
			Code:    "SRC004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Connection to the data source was interrupted",
			Action:  "Please try again",
			Code:    "SRC004",
		},
	},

	// =========================================================================
	// Requests (REQ001-REQ003, RATE001)
	// =========================================================================
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "REQ001",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Please try again",
			Code:    "REQ002",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Please try again later",
			Code:    "REQ002",
		},
	},
	{
		pattern: "invalid request body",
		msg: UserMessage{
			Message: "The request could not be read",
			Action:  "Check the request body and try again",
			Code:    "REQ003",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message. If no
// pattern matches, the ERR000 fallback is returned.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError formats err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error
	User      UserMessage
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
