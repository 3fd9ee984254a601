package store

import (
	"encoding/json"
	"strings"
)

// placeholderList returns "?,?,?" for n placeholders.
func placeholderList(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}

// stringsToArgs converts []string to []any for use with database/sql.
func stringsToArgs(ss []string) []any {
	args := make([]any, len(ss))
	for i, s := range ss {
		args[i] = s
	}
	return args
}

// marshalNotes converts []string to JSON text for storage.
func marshalNotes(notes []string) string {
	if len(notes) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(notes)
	return string(b)
}

// unmarshalNotes converts JSON text back to []string.
func unmarshalNotes(s string) []string {
	if s == "" || s == "null" {
		return nil
	}
	var notes []string
	_ = json.Unmarshal([]byte(s), &notes)
	return notes
}

type scanner interface{ Scan(...any) error }
