package util

import "strings"

func StringPtr(v string) *string { return &v }

func FloatPtr(v float64) *float64 { return &v }

func IntPtr(v int) *int { return &v }

// TrimPtr returns a pointer to the trimmed value, or nil when it trims to
// empty.
func TrimPtr(v string) *string {
	s := strings.TrimSpace(v)
	if s == "" {
		return nil
	}
	return &s
}
