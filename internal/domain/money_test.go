package domain

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRound2(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"105", "105"},
		{"10.005", "10.01"},
		{"10.004", "10"},
		{"-1.005", "-1.01"},
		{"99.995", "100"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got := Round2(decimal.RequireFromString(tc.in))
			assert.True(t, got.Equal(decimal.RequireFromString(tc.want)), "got %s", got)
		})
	}
}

func TestHasAtMostTwoDecimals(t *testing.T) {
	assert.True(t, HasAtMostTwoDecimals(decimal.RequireFromString("12.50")))
	assert.True(t, HasAtMostTwoDecimals(decimal.NewFromInt(7)))
	assert.False(t, HasAtMostTwoDecimals(decimal.RequireFromString("0.001")))
}

func TestPercentOfKeepsFullPrecision(t *testing.T) {
	got := PercentOf(decimal.RequireFromString("33.33"), decimal.NewFromInt(5))
	assert.Equal(t, "1.6665", got.String())
}

func TestMoneyMarshalsAsJSONNumber(t *testing.T) {
	payload, err := json.Marshal(PaymentSummary{Count: 1, Total: decimal.RequireFromString("98.50")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"count":1,"total":98.5}`, string(payload))
}
