package web

// messages.go maps errors to user-facing messages with support codes.
//
// Codes by category:
//
//	REC001  record not found
//	VAL001  invalid date          VAL002  invalid number
//	VAL003  required field empty  VAL004  dose not positive
//	VAL005  column not found      VAL006  malformed request body
//	EXP001  nothing to export
//	DB004   connection refused    DB005   connection reset
//	DB006   timeout               DB007   deadlock
//	DB008   database locked
//	REQ001  request cancelled     REQ002  request timed out
//	REQ003  request too large
//	RATE001 rate limited
//	ERR000  anything else; check the server log for the request id
//
// Patterns are matched case-insensitively with strings.Contains and the first
// match wins, so specific patterns come before general ones.

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
	{
		pattern: "record not found",
		msg: UserMessage{
			Message: "Record niet gevonden",
			Action:  "Reload the list; the record may already be deleted",
			Code:    "REC001",
		},
	},

	// Validation
	{
		pattern: "invalid date",
		msg: UserMessage{
			Message: "Invalid date",
			Action:  "Use the YYYY-MM-DD format",
			Code:    "VAL001",
		},
	},
	{
		pattern: "invalid number",
		msg: UserMessage{
			Message: "Invalid dose",
			Action:  "Enter the dose in litres per hectare, for example 2.5",
			Code:    "VAL002",
		},
	},
	{
		pattern: "required field",
		msg: UserMessage{
			Message: "Required field is empty",
			Action:  "Fill in the date, field, product and dose",
			Code:    "VAL003",
		},
	},
	{
		pattern: "must be positive",
		msg: UserMessage{
			Message: "Dose must be greater than zero",
			Action:  "Enter a positive dose",
			Code:    "VAL004",
		},
	},
	{
		pattern: "column not found",
		msg: UserMessage{
			Message: "Expected column not found in CSV",
			Action:  "Use a file produced by the export",
			Code:    "VAL005",
		},
	},
	{
		pattern: "invalid request body",
		msg: UserMessage{
			Message: "The request body is not a valid record",
			Action:  "Send a JSON object with date, field, product, dose and notes",
			Code:    "VAL006",
		},
	},

	{
		pattern: "no data to export",
		msg: UserMessage{
			Message: "Geen gegevens om te exporteren",
			Action:  "Add a record before exporting",
			Code:    "EXP001",
		},
	},

	// Request lifecycle. Checked before the generic "timeout" pattern.
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
		pattern: "request body too large",
		msg: UserMessage{
			Message: "Request body is too large",
			Action:  "Shorten the notes and try again",
			Code:    "REQ003",
		},
	},

	// Database
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
			Action:  "Please try again later",
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
	{
		pattern: "database is locked",
		msg: UserMessage{
			Message: "Database is busy",
			Action:  "Please try again",
			Code:    "DB008",
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

// MapError converts a technical error to a user-friendly message.
// Returns an empty UserMessage for a nil error.
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
