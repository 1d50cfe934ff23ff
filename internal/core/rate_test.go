package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRate(t *testing.T) {
	r, err := ParseRate("36,5")
	require.NoError(t, err)
	assert.Equal(t, "36.5000", r.String())

	r, err = ParseRate("36.123456")
	require.NoError(t, err)
	assert.Equal(t, "36.1235", r.String())
	assert.True(t, r.Equal(r.Round(RatePlaces)))

	for _, bad := range []string{"", "abc", "0", "-1.2", "0.00001"} {
		_, err := ParseRate(bad)
		assert.ErrorIs(t, err, ErrInvalidRate, bad)
	}
}

func TestConvert(t *testing.T) {
	r, err := ParseRate("36.55")
	require.NoError(t, err)

	// 10.00 USD * 36.55 = 365.50 Bs
	assert.Equal(t, int64(36550), ConvertToBs(Money{Cents: 1000}, r).Cents)
	// 0.33 USD * 36.55 = 12.0615 -> 12.06
	assert.Equal(t, int64(1206), ConvertToBs(Money{Cents: 33}, r).Cents)
	// 365.50 Bs / 36.55 = 10.00 USD
	assert.Equal(t, int64(1000), ConvertToUSD(Money{Cents: 36550}, r).Cents)
	assert.Equal(t, int64(0), ConvertToUSD(Money{Cents: 100}, Rate{}).Cents)
}

func TestRateJSON(t *testing.T) {
	r, err := ParseRate("40.1234")
	require.NoError(t, err)
	out, err := json.Marshal(struct {
		Tasa Rate `json:"tasa"`
	}{r})
	require.NoError(t, err)
	assert.JSONEq(t, `{"tasa":"40.1234"}`, string(out))
}
