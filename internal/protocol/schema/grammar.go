package schema

import (
	"strconv"
	"strings"
)

// ParseType splits a type string into its base name and array suffix.
//
//	Name     scalar
//	Name[]   dynamic array, count prefixed on the wire
//	Name[N]  fixed array of N elements, no prefix
//
// Length 0 means dynamic. "Name[0]" is dynamic too. A bracket body that is
// not a non-negative integer leaves the field scalar. A string without a
// closing bracket is returned whole so that it fails name resolution.
func ParseType(raw string) (name string, length int, isArray bool) {
	raw = strings.TrimSpace(raw)
	open := strings.IndexByte(raw, '[')
	if open < 0 || !strings.HasSuffix(raw, "]") {
		return raw, 0, false
	}
	name = strings.TrimSpace(raw[:open])
	body := strings.TrimSpace(raw[open+1 : len(raw)-1])
	if body == "" {
		return name, 0, true
	}
	n, err := strconv.Atoi(body)
	if err != nil || n < 0 {
		return name, 0, false
	}
	return name, n, true
}

// FormatType is the inverse of ParseType for well-formed inputs.
func FormatType(name string, length int, isArray bool) string {
	switch {
	case !isArray:
		return name
	case length == 0:
		return name + "[]"
	default:
		return name + "[" + strconv.Itoa(length) + "]"
	}
}
