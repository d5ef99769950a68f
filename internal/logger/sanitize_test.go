package logger

import (
	"errors"
	"strings"
	"testing"
)

func TestSanitizeString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     string
		maxLength int
		want      string
	}{
		{name: "empty", input: "", maxLength: 10, want: ""},
		{name: "plain", input: "buy milk", maxLength: 10, want: "buy milk"},
		{name: "control characters removed", input: "a\x00b\x1bc", maxLength: 10, want: "abc"},
		{name: "newlines kept", input: "a\nb", maxLength: 10, want: "a\nb"},
		{name: "invalid utf8 dropped", input: "ok\xff", maxLength: 10, want: "ok"},
		{name: "truncated", input: "abcdefghij", maxLength: 4, want: "abcd..."},
		{name: "truncated on rune boundary", input: "cafés", maxLength: 4, want: "caf..."},
		{name: "default max length", input: "abc", maxLength: 0, want: "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := SanitizeString(tt.input, tt.maxLength); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestSanitizeHelpers(t *testing.T) {
	t.Parallel()

	if got := SanitizeError(nil); got != "" {
		t.Errorf("Expected empty string for nil error, got %q", got)
	}
	if got := SanitizeError(errors.New("bad\x07 thing")); got != "bad thing" {
		t.Errorf("Expected control character removed, got %q", got)
	}
	long := strings.Repeat("x", MaxTitleLength+10)
	if got := SanitizeTitle(long); len(got) != MaxTitleLength+3 {
		t.Errorf("Expected title truncated to %d chars plus ellipsis, got %d", MaxTitleLength, len(got))
	}
	if got := SanitizePath("/api/v1/tasks\r\x01"); got != "/api/v1/tasks\r" {
		t.Errorf("Expected path sanitized, got %q", got)
	}
}
