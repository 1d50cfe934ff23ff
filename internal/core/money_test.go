package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{".5", 50, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
		{"10000000000", MaxCents, true},
		{"10000000000.01", 0, false},
		{"90000000000000000", 0, false},
		{"99999999999999999999", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestParseDecimalToCentsAllowZero(t *testing.T) {
	got, err := ParseDecimalToCentsAllowZero("0")
	require.NoError(t, err)
	assert.Equal(t, int64(0), got)

	_, err = ParseDecimalToCentsAllowZero("-0.01")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestFitsTimes(t *testing.T) {
	assert.True(t, Money{Cents: MaxCents}.FitsTimes(1))
	assert.False(t, Money{Cents: MaxCents}.FitsTimes(2))
	assert.True(t, Money{Cents: 500}.FitsTimes(0))
	assert.False(t, Money{Cents: 9_000_000_000_000_000}.FitsTimes(2))
}

func TestMoneyJSON(t *testing.T) {
	var v struct {
		Precio Money `json:"precio"`
		Costo  Money `json:"costo"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"precio": 12.5, "costo": "3,75"}`), &v))
	assert.Equal(t, int64(1250), v.Precio.Cents)
	assert.Equal(t, int64(375), v.Costo.Cents)

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"precio": 12.50, "costo": 3.75}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"precio": -1}`), &v))
}

func TestMoneyDecimalNegative(t *testing.T) {
	assert.Equal(t, "-0.05", Money{Cents: -5}.Decimal())
	assert.Equal(t, "12.00", Money{Cents: 1200}.Decimal())
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "$1,234.56", FormatUSD(123456))
	assert.Equal(t, "$0.07", FormatUSD(7))
	assert.Equal(t, "-$10.00", FormatUSD(-1000))
	assert.Equal(t, "Bs 1.234.567,89", FormatBs(123456789))
	assert.Equal(t, "Bs 999,00", FormatBs(99900))
}
