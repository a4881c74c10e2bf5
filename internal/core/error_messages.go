package core

// error_messages.go maps technical errors to user-friendly messages with
// codes for support reference. Users quote the code; support looks it up
// here.
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: File exceeds maximum size limit
//	          Patterns: "file too large", "request body too large"
//	FILE002 - Invalid CSV: Rows do not match the header or quoting is broken
//	          Patterns: "invalid csv"
//	FILE004 - No file: No file was selected
//	          Patterns: "no file uploaded"
//	FILE005 - Empty file: The uploaded file is empty
//	          Patterns: "file is empty"
//	FILE006 - Delimiter: The requested delimiter is not supported
//	          Patterns: "delimiter"
//
// # Column Errors (COL001-COL099)
//
//	COL001 - Column not found: The requested text column is not in the file
//	         Patterns: "not found in csv"
//	COL002 - No text column: No column qualifies as free text
//	         Patterns: "no text column found"
//	COL003 - Missing column: A required column is absent
//	         Patterns: "missing required column"
//
// # Classification Errors (SENT001-SENT099)
//
//	SENT001 - Classification failed: The scorer rejected a row
//	          Patterns: "classification failed"
//
// # Upload Errors (UPL001-UPL099)
//
//	UPL002 - System busy: Too many analyses in progress
//	         Patterns: "too many concurrent analyses"
//	UPL004 - Request cancelled
//	         Patterns: "context canceled"
//	UPL005 - Request timeout
//	         Patterns: "context deadline exceeded"
//
// # Rate Limiting (RATE001-RATE099)
//
//	RATE001 - Rate limited: Too many requests
//	          Patterns: "rate limit"
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: check application logs for the original error.
//
// Patterns are matched case-insensitively with strings.Contains and the first
// match wins, so specific patterns come before general ones.

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/feedback-sentiment/internal/sentiment"
	"github.com/JonMunkholm/feedback-sentiment/internal/tabular"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// Patterns are matched using strings.Contains, so partial matches work.
// The first matching pattern wins, so order matters:
//   - More specific patterns should come before general ones
//   - Multiple patterns can map to the same error code
//
// To add a new error pattern:
//  1. Choose the appropriate category and code range
//  2. Add the pattern in the correct position (specific before general)
//  3. Update the package documentation at the top of this file
var errorPatterns = []errorPattern{
	// =========================================================================
	// File Errors (FILE001-FILE006)
	// Size limits and parse failures of the uploaded file.
	// =========================================================================
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "no file uploaded",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "file is empty",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Please upload a CSV file with a header row",
			Code:    "FILE005",
		},
	},
	{
		pattern: "delimiter",
		msg: UserMessage{
			Message: "Unsupported delimiter",
			Action:  "Use comma, semicolon, tab or pipe, or leave the delimiter blank to detect it",
			Code:    "FILE006",
		},
	},

	// =========================================================================
	// Column Errors (COL001-COL003)
	// Checked before the generic "invalid csv" pattern because a missing
	// required column is reported as a format error.
	// =========================================================================
	{
		pattern: "not found in csv",
		msg: UserMessage{
			Message: "The requested column is not in the file",
			Action:  "Check the column name against the file header",
			Code:    "COL001",
		},
	},
	{
		pattern: "no text column found",
		msg: UserMessage{
			Message: "No text column found in CSV",
			Action:  "Add a 'comments' column or choose the column to analyse",
			Code:    "COL002",
		},
	},
	{
		pattern: "missing required column",
		msg: UserMessage{
			Message: "Required column is missing from CSV",
			Action:  "Check that all required columns are present in your file",
			Code:    "COL003",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Ensure every row has the same columns as the header",
			Code:    "FILE002",
		},
	},

	// =========================================================================
	// Classification Errors (SENT001)
	// =========================================================================
	{
		pattern: "classification failed",
		msg: UserMessage{
			Message: "Sentiment could not be computed for a row",
			Action:  "Check the text column for unusual content and try again",
			Code:    "SENT001",
		},
	},

	// =========================================================================
	// Capacity and Request Errors (UPL002-UPL005)
	// =========================================================================
	{
		pattern: "too many concurrent analyses",
		msg: UserMessage{
			Message: "System busy: too many analyses in progress",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try uploading a smaller file or check your connection",
			Code:    "UPL005",
		},
	},

	// =========================================================================
	// Rate Limiting (RATE001)
	// =========================================================================
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
// This is the fallback for unexpected errors. Support staff should check
// application logs for the original technical error when users report ERR000.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It searches through known error patterns (case-insensitive) and returns
// the first match. If no pattern matches, a generic fallback message with
// code ERR000 is returned.
//
// Example:
//
//	msg := MapError(&NoTextColumnError{})
//	// msg.Code == "COL002"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := typedPattern(err)
	if errStr == "" {
		errStr = strings.ToLower(err.Error())
	}

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// typedPattern resolves known error types to their pattern so that text
// embedded in an error (a CSV cell, a column name) cannot select the wrong
// message.
func typedPattern(err error) string {
	var (
		missing *MissingFileError
		noText  *NoTextColumnError
		classif *sentiment.ClassificationError
	)
	switch {
	case errors.As(err, &missing):
		return "no file uploaded"
	case errors.As(err, &noText):
		if noText.Column != "" {
			return "not found in csv"
		}
		return "no text column found"
	case errors.As(err, &classif):
		return "classification failed"
	case errors.Is(err, tabular.ErrFileTooLarge):
		return "file too large"
	case errors.Is(err, ErrTooManyAnalyses):
		return "too many concurrent analyses"
	}
	return ""
}

// FormatUserError renders err as "Message (Code: XXX). Action" for the
// command line. It returns "" for nil.
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the generic fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	msg := MapError(err)
	return msg.Code != defaultMessage.Code
}
