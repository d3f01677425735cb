// Package core provides the business logic for dynamic schema management.
//
// # Error Codes Reference
//
// User-facing errors carry a code that can be quoted to whoever runs the
// service. Codes are grouped by category:
//
// # Schema Errors (SCH001-SCH099)
//
//	SCH001 - Invalid document: The schema file could not be read
//	         Action: Check the YAML/JSON syntax and that the top level maps table ids to tables
//	         Patterns: "invalid schema document"
//
// # Table Errors (TBL001-TBL099)
//
//	TBL001 - Table not found: No registered table uses this name
//	         Action: Upload a schema that defines the table first
//	         Patterns: "table not found"
//
//	TBL002 - No table: No table name was given
//	         Action: Pass the table_name query parameter
//	         Patterns: "no table name"
//
//	TBL003 - Row not found: The record does not exist
//	         Action: Reload the list; the record may have been deleted
//	         Patterns: "row not found"
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate object: A table or column with this name already exists
//	        Action: Retry the upload; concurrent uploads may have raced
//	        Patterns: "already exists"
//
//	DB002 - Value too long: A text value exceeds the column limit
//	        Action: Shorten the value to 255 characters
//	        Patterns: "value too long"
//
//	DB004 - Connection refused: Unable to connect to database
//	        Patterns: "connection refused"
//
//	DB005 - Connection reset: Database connection was interrupted
//	        Patterns: "connection reset"
//
//	DB006 - Timeout: Operation timed out
//	        Patterns: "timeout", "context deadline exceeded"
//
//	DB007 - Deadlock: Database was busy with conflicting operations
//	        Patterns: "deadlock"
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: Schema file exceeds the size limit
//	          Patterns: "file too large", "request body too large"
//
//	FILE004 - No file: No schema file was selected
//	          Patterns: "no file provided"
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Rate limited: Too many requests
//	          Patterns: "rate limit"
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: An unexpected error occurred
//
// Patterns are matched case-insensitively with strings.Contains; the first
// match wins, so specific patterns come before general ones.
package core

import (
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Schema
	{
		pattern: "invalid schema document",
		msg: UserMessage{
			Message: "The schema file could not be read",
			Action:  "Check the YAML/JSON syntax and that the top level maps table ids to tables",
			Code:    "SCH001",
		},
	},

	// Tables
	{
		pattern: "table not found",
		msg: UserMessage{
			Message: "No registered table uses this name",
			Action:  "Upload a schema that defines the table first",
			Code:    "TBL001",
		},
	},
	{
		pattern: "no table name",
		msg: UserMessage{
			Message: "No table name was given",
			Action:  "Pass the table_name query parameter",
			Code:    "TBL002",
		},
	},
	{
		pattern: "row not found",
		msg: UserMessage{
			Message: "The record does not exist",
			Action:  "Reload the list; the record may have been deleted",
			Code:    "TBL003",
		},
	},

	// Database
	{
		pattern: "already exists",
		msg: UserMessage{
			Message: "A table or column with this name already exists",
			Action:  "Retry the upload; concurrent uploads may have raced",
			Code:    "DB001",
		},
	},
	{
		pattern: "value too long",
		msg: UserMessage{
			Message: "A text value exceeds the column limit",
			Action:  "Shorten the value to 255 characters",
			Code:    "DB002",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},

	// Files
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "Schema file exceeds the size limit",
			Action:  "Split the schema into several uploads",
			Code:    "FILE001",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "Schema file exceeds the size limit",
			Action:  "Split the schema into several uploads",
			Code:    "FILE001",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No schema file was selected",
			Action:  "Choose a YAML or JSON file to upload",
			Code:    "FILE004",
		},
	},

	// Rate limiting
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
	Action:  "Please try again or check the server logs",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Returns an empty UserMessage for a nil error.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	lower := strings.ToLower(err.Error())
	for _, p := range errorPatterns {
		if strings.Contains(lower, p.pattern) {
			return p.msg
		}
	}
	return defaultMessage
}
