package output

import (
	"strings"

	"github.com/shopspring/decimal"

	linkerr "github.com/mrz1836/btclink/pkg/errors"
)

// SatsPerBTC is the number of satoshis in one bitcoin.
const SatsPerBTC = 100_000_000

// btcDecimals is the precision of a BTC amount.
const btcDecimals = 8

// FormatBTC renders sats as a BTC amount with eight decimals.
func FormatBTC(sats int64) string {
	return decimal.New(sats, -btcDecimals).StringFixed(btcDecimals)
}

// ParseBTC parses a BTC amount such as "0.0001" into satoshis. Amounts finer
// than one satoshi or not positive are rejected.
func ParseBTC(s string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, linkerr.WithDetails(linkerr.ErrInvalidAmount, map[string]string{"amount": s})
	}

	sats := d.Shift(btcDecimals)
	if !sats.IsInteger() {
		return 0, linkerr.WithDetails(linkerr.ErrInvalidAmount, map[string]string{
			"amount": s,
			"reason": "more than 8 decimal places",
		})
	}
	if !sats.IsPositive() || sats.GreaterThan(decimal.NewFromInt(21_000_000*SatsPerBTC)) {
		return 0, linkerr.WithDetails(linkerr.ErrInvalidAmount, map[string]string{
			"amount": s,
			"reason": "must be between 0.00000001 and 21000000",
		})
	}
	return sats.IntPart(), nil
}
