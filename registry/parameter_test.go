package registry

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(f float64) *float64 { return &f }

func TestParameterSpecCoerce(t *testing.T) {
	float := ParameterSpec{Name: "temperature", Type: ParamFloat, Min: ptr(0), Max: ptr(2)}
	integer := ParameterSpec{Name: "max_tokens", Type: ParamInteger, Min: ptr(1), Max: ptr(4096)}
	choice := ParameterSpec{Name: "effort", Type: ParamChoice, Choices: []string{"low", "high"}}

	tests := []struct {
		name    string
		spec    ParameterSpec
		in      any
		want    any
		wantErr string
	}{
		{"float from float64", float, 0.9, 0.9, ""},
		{"float from int", float, 1, 1.0, ""},
		{"float from json number", float, json.Number("1.5"), 1.5, ""},
		{"float above max", float, 2.5, nil, "must be <= 2"},
		{"float below min", float, -0.1, nil, "must be >= 0"},
		{"float from string", float, "0.9", nil, "expects a number"},
		{"integer from float64", integer, 512.0, 512, ""},
		{"integer from int64", integer, int64(64), 64, ""},
		{"integer not integral", integer, 1.5, nil, "expects an integer"},
		{"integer below min", integer, 0, nil, "must be >= 1"},
		{"choice member", choice, "high", "high", ""},
		{"choice non member", choice, "max", nil, "expects one of"},
		{"choice non string", choice, 1, nil, "expects one of"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.spec.Coerce(tt.in)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParameterSpecExclusiveWith(t *testing.T) {
	spec := ParameterSpec{Name: "temperature", MutuallyExclusiveWith: []string{"top_p"}}
	assert.True(t, spec.ExclusiveWith("top_p"))
	assert.False(t, spec.ExclusiveWith("top_k"))
}
