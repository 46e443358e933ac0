package fleet

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

const amountDecimals = 4

// NormalizeAddress validates a hex account address and returns its checksum form.
func NormalizeAddress(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if !common.IsHexAddress(addr) {
		return "", ErrInvalidAddress
	}
	return common.HexToAddress(addr).Hex(), nil
}

// SameAddress reports whether two addresses are equal ignoring case.
func SameAddress(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// ShortAddress renders 0x1234...abcd. Strings too short to shorten are returned as is.
func ShortAddress(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}

// FormatTokenAmount renders a raw token amount with at most four decimals,
// truncating rather than rounding. nil formats as zero.
func FormatTokenAmount(amount *big.Int, decimals int32) string {
	if amount == nil {
		amount = new(big.Int)
	}
	if decimals < 0 {
		decimals = 0
	}
	places := min(decimals, amountDecimals)
	return decimal.NewFromBigInt(amount, -decimals).Truncate(places).StringFixed(places)
}
