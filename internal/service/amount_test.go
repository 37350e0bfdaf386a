package service

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/quocan1101-cloud/acp-hackathon/internal/errors"
)

func TestToBaseUnits(t *testing.T) {
	tests := []struct {
		amount   float64
		decimals int
		want     string
	}{
		{amount: 0, decimals: 6, want: "0"},
		{amount: 1, decimals: 6, want: "1000000"},
		{amount: 0.3, decimals: 6, want: "300000"},
		{amount: 10.5, decimals: 6, want: "10500000"},
		{amount: 0.0000019, decimals: 6, want: "1"},
		{amount: 123.456789, decimals: 2, want: "12345"},
		{amount: 5, decimals: 0, want: "5"},
		{amount: 1e-7, decimals: 6, want: "0"},
	}
	for _, tt := range tests {
		got, err := ToBaseUnits(tt.amount, tt.decimals)
		require.NoError(t, err, "amount %v", tt.amount)
		assert.Equal(t, tt.want, got.String(), "amount %v", tt.amount)
	}
}

func TestToBaseUnits_Invalid(t *testing.T) {
	for _, v := range []float64{-1, math.NaN(), math.Inf(1)} {
		_, err := ToBaseUnits(v, 6)
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
	}
	_, err := ParseBaseUnits("1,5", 6)
	assert.Error(t, err)
	_, err = ParseBaseUnits("", 6)
	assert.Error(t, err)
	_, err = ParseBaseUnits("1", -1)
	assert.Error(t, err)
}

func TestParseBaseUnits_LargeValues(t *testing.T) {
	got, err := ParseBaseUnits("123456789012345678.999999999", 6)
	require.NoError(t, err)
	assert.Equal(t, "123456789012345678999999", got.String())
}

func TestFormatBaseUnits(t *testing.T) {
	assert.Equal(t, "10.5", FormatBaseUnits(big.NewInt(10500000), 6))
	assert.Equal(t, "1", FormatBaseUnits(big.NewInt(1000000), 6))
	assert.Equal(t, "0.000001", FormatBaseUnits(big.NewInt(1), 6))
	assert.Equal(t, "0", FormatBaseUnits(nil, 6))
	assert.Equal(t, "42", FormatBaseUnits(big.NewInt(42), 0))
}
