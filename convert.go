package walletd

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/zyedidia/generic/mapset"
)

// cryptoScale is the fraction-digit precision of local-to-crypto results.
const cryptoScale = 8

var ErrInvalidCurrency = errors.New("unknown currency code")

var currencySymbols = map[string]string{
	"AUD": "$",
	"BRL": "R$",
	"CAD": "$",
	"CHF": "Fr",
	"CNY": "¥",
	"EUR": "€",
	"GBP": "£",
	"HKD": "$",
	"INR": "₹",
	"JPY": "¥",
	"KRW": "₩",
	"NZD": "$",
	"RUB": "₽",
	"SEK": "kr",
	"SGD": "$",
	"USD": "$",
}

var knownCurrencies = func() mapset.Set[string] {
	set := mapset.New[string]()
	for code := range currencySymbols {
		set.Put(code)
	}

	return set
}()

func IsKnownCurrency(code string) bool {
	return knownCurrencies.Has(code)
}

// CurrencySymbol returns the display symbol for a currency code, or
// ErrInvalidCurrency when no mapping exists.
func CurrencySymbol(code string) (string, error) {
	symbol, ok := currencySymbols[code]
	if !ok {
		return "", ErrInvalidCurrency
	}

	return symbol, nil
}

// CryptoToLocal converts a crypto amount to the local currency at the
// snapshot rate. The product is exact; no rounding happens here.
func CryptoToLocal(amount decimal.Decimal, rates MarketRates, code string) decimal.Decimal {
	return rates.Rate(code).Mul(amount)
}

// LocalToCrypto converts a local-currency amount back to crypto, rounded
// half-down to 8 fraction digits. A zero amount or a missing/zero rate
// yields zero; it never divides by zero.
func LocalToCrypto(amount decimal.Decimal, rates MarketRates, code string) decimal.Decimal {
	if amount.IsZero() {
		return decimal.Zero
	}

	rate := rates.Rate(code)
	if rate.IsZero() {
		return decimal.Zero
	}

	return divRoundHalfDown(amount, rate, cryptoScale)
}

// CryptoToLocalString renders a crypto amount as a local-currency display
// string: grouped digits, exactly two fraction digits, laid out as
// "{symbol}{amount} {code}".
func CryptoToLocalString(amount decimal.Decimal, rates MarketRates, code string) (string, error) {
	symbol, err := CurrencySymbol(code)
	if err != nil {
		return "", err
	}

	local := CryptoToLocal(amount, rates, code)
	return symbol + groupDigits(local.StringFixed(2)) + " " + code, nil
}

// divRoundHalfDown divides a by b and rounds the quotient to the given
// number of fraction digits, with exact halves rounded toward zero.
func divRoundHalfDown(a, b decimal.Decimal, places int32) decimal.Decimal {
	q, r := a.Shift(places).QuoRem(b, 0)

	if r.Abs().Add(r.Abs()).GreaterThan(b.Abs()) {
		step := decimal.New(1, 0)
		if q.Sign() < 0 || (q.Sign() == 0 && a.Sign() != b.Sign()) {
			step = step.Neg()
		}

		q = q.Add(step)
	}

	return q.Shift(-places)
}

// groupDigits inserts thousands separators into the integer part of a
// plain decimal string.
func groupDigits(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}

	intPart, fracPart, hasFrac := strings.Cut(s, ".")

	var b strings.Builder
	for i, d := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}

	if hasFrac {
		return sign + b.String() + "." + fracPart
	}

	return sign + b.String()
}
