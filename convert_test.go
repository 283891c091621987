package walletd

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestLocalToCryptoZeroGuards(t *testing.T) {
	rates := MarketRates{"USD": d("300")}

	require.True(t, LocalToCrypto(decimal.Zero, rates, "USD").IsZero())
	require.True(t, LocalToCrypto(d("150"), MarketRates{"USD": decimal.Zero}, "USD").IsZero())
	require.True(t, LocalToCrypto(d("150"), rates, "SEK").IsZero())
	require.True(t, LocalToCrypto(d("150"), MarketRates{}, "USD").IsZero())
}

func TestLocalToCryptoConcrete(t *testing.T) {
	rates := MarketRates{"USD": d("300.00")}

	got := LocalToCrypto(d("150"), rates, "USD")
	require.True(t, got.Equal(d("0.5")), "got %s", got)
	require.Equal(t, "0.50000000", got.StringFixed(8))
}

func TestLocalToCryptoRoundsHalfDown(t *testing.T) {
	rates := MarketRates{"USD": d("2")}

	// 0.00000003 / 2 = 0.000000015: the exact half rounds toward zero
	require.Equal(t, "0.00000001", LocalToCrypto(d("0.00000003"), rates, "USD").StringFixed(8))
	require.Equal(t, "0.00000002", LocalToCrypto(d("0.00000005"), rates, "USD").StringFixed(8))

	third := MarketRates{"USD": d("3")}
	require.Equal(t, "0.33333333", LocalToCrypto(d("1"), third, "USD").StringFixed(8))
	require.Equal(t, "0.66666667", LocalToCrypto(d("2"), third, "USD").StringFixed(8))
}

func TestConversionRoundTrip(t *testing.T) {
	rates := MarketRates{"EUR": d("4200.123")}
	tolerance := d("0.00000001")

	for _, amount := range []string{"0.00000001", "0.1", "1", "2.5", "123.45678901", "100000"} {
		a := d(amount)

		local := CryptoToLocal(a, rates, "EUR")
		back := LocalToCrypto(local, rates, "EUR")

		diff := back.Sub(a).Abs()
		require.True(t, diff.LessThanOrEqual(tolerance),
			"amount %s: got back %s (diff %s)", amount, back, diff)
	}
}

func TestCryptoToLocalExactProduct(t *testing.T) {
	rates := MarketRates{"USD": d("300.00")}

	got := CryptoToLocal(d("2"), rates, "USD")
	require.True(t, got.Equal(d("600")), "got %s", got)
}

func TestCryptoToLocalStringConcrete(t *testing.T) {
	rates := MarketRates{"USD": d("300.00")}

	got, err := CryptoToLocalString(d("2"), rates, "USD")
	require.NoError(t, err)
	require.Equal(t, "$600.00 USD", got)
}

func TestCryptoToLocalStringGroupsAndPads(t *testing.T) {
	rates := MarketRates{"EUR": d("1234567.891")}

	got, err := CryptoToLocalString(d("1"), rates, "EUR")
	require.NoError(t, err)
	require.Equal(t, "€1,234,567.89 EUR", got)

	for _, amount := range []string{"0.001", "1", "3.14159", "999999"} {
		got, err := CryptoToLocalString(d(amount), rates, "EUR")
		require.NoError(t, err)

		body := strings.TrimSuffix(strings.TrimPrefix(got, "€"), " EUR")
		_, frac, ok := strings.Cut(body, ".")
		require.True(t, ok, "no fraction in %q", got)
		require.Len(t, frac, 2, "wrong fraction width in %q", got)
	}
}

func TestCryptoToLocalStringUnknownCurrency(t *testing.T) {
	_, err := CryptoToLocalString(d("1"), MarketRates{"XXX": d("2")}, "XXX")
	require.ErrorIs(t, err, ErrInvalidCurrency)
}

func TestCurrencySymbol(t *testing.T) {
	symbol, err := CurrencySymbol("GBP")
	require.NoError(t, err)
	require.Equal(t, "£", symbol)

	_, err = CurrencySymbol("DOGE")
	require.ErrorIs(t, err, ErrInvalidCurrency)

	require.True(t, IsKnownCurrency("USD"))
	require.False(t, IsKnownCurrency("DOGE"))
}

func TestGroupDigits(t *testing.T) {
	cases := map[string]string{
		"0.00":        "0.00",
		"600.00":      "600.00",
		"1234.50":     "1,234.50",
		"1234567.89":  "1,234,567.89",
		"-1234567.89": "-1,234,567.89",
		"1000000":     "1,000,000",
	}

	for in, want := range cases {
		require.Equal(t, want, groupDigits(in), "input %q", in)
	}
}
