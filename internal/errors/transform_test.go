package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompileError_EscapesMessage(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
	}{
		{"quotes", `expected "fn"`, `expected \"fn\"`},
		{"backslash", `a\b`, `a\\b`},
		{"newline", "a\nb", `a\nb`},
		{"carriage return", "r#\"a\r\nb\"#", `r#\"a\r\nb\"#`},
		{"tab", "a\tb", `a\tb`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := CompileError(New(SyntaxErrorCode, tt.message))
			assert.Contains(t, out, tt.want)
			assert.NotContains(t, out, "\r")
			assert.NotContains(t, out, "\n")
		})
	}
}
