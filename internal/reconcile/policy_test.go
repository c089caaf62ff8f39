package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUnknownTypePolicy(t *testing.T) {
	tests := []struct {
		input   string
		want    UnknownTypePolicy
		wantErr bool
	}{
		{"", UnknownTypesIgnore, false},
		{"ignore", UnknownTypesIgnore, false},
		{" REJECT ", UnknownTypesReject, false},
		{"warn", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseUnknownTypePolicy(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTolerance(t *testing.T) {
	d, err := ParseTolerance("0.05")
	require.NoError(t, err)
	assert.Equal(t, "0.05", d.String())

	_, err = ParseTolerance("0")
	assert.Error(t, err)

	_, err = ParseTolerance("-1")
	assert.Error(t, err)

	_, err = ParseTolerance("abc")
	assert.Error(t, err)
}

func TestPolicyWithDefaults(t *testing.T) {
	p := Policy{}.withDefaults()
	assert.Equal(t, "0.01", p.Tolerance.String())
	assert.Equal(t, DefaultCurrency, p.DefaultCurrency)
	assert.Equal(t, UnknownTypesIgnore, p.UnknownTypes)
}
