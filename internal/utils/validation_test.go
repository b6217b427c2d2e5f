package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError(t *testing.T) {
	assert.Equal(t, "invalid value for 'jobs': too many",
		ValidationError{Field: "jobs", Message: "too many"}.Error())
	assert.Equal(t, "invalid value: bad", ValidationError{Message: "bad"}.Error())
}

func TestNotEmpty(t *testing.T) {
	v := NotEmpty("name")
	assert.NoError(t, v("x"))
	assert.NoError(t, v("   "))
	assert.Error(t, v(""))
}

func TestHasSuffix(t *testing.T) {
	v := HasSuffix("output_suffix", ".rs")
	assert.NoError(t, v(".expanded.rs"))

	err := v(".txt")
	require.Error(t, err)
	var verr ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "output_suffix", verr.Field)
	assert.Equal(t, ".txt", verr.Value)
}

func TestMatchesRegex(t *testing.T) {
	v := MatchesRegex("arg_prefix", `^[A-Za-z_][A-Za-z0-9_]*$`, "must be an identifier")
	tests := []struct {
		value   string
		wantErr bool
	}{
		{"arg_", false},
		{"_", false},
		{"p1", false},
		{"1p", true},
		{"a-b", true},
		{"", true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			err := v(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestInRange(t *testing.T) {
	v := InRange("jobs", 0, 8)
	assert.NoError(t, v(0))
	assert.NoError(t, v(8))
	assert.Error(t, v(-1))
	assert.Error(t, v(9))
}

func TestValidatorChain(t *testing.T) {
	var calls []string
	record := func(name string, fail bool) Validator[string] {
		return func(string) error {
			calls = append(calls, name)
			if fail {
				return ValidationError{Message: name}
			}
			return nil
		}
	}

	chain := NewValidatorChain(record("a", false)).Add(record("b", true)).Add(record("c", false))
	err := chain.Validate("x")
	require.Error(t, err)
	assert.Equal(t, "invalid value: b", err.Error())
	assert.Equal(t, []string{"a", "b"}, calls)
}
