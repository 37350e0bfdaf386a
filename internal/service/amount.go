package service

import (
	"math"
	"math/big"
	"strconv"
	"strings"

	apperrors "github.com/quocan1101-cloud/acp-hackathon/internal/errors"
)

// DefaultTokenDecimals matches the USDC payment token on both Base networks.
const DefaultTokenDecimals = 6

// ToBaseUnits converts a decimal token amount into payment-token base units,
// truncating toward zero. The float is first rendered in its shortest decimal
// form so that 0.3 becomes 300000 and not 299999.
func ToBaseUnits(amount float64, decimals int) (*big.Int, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return nil, apperrors.ValidationField("amount", "amount must be a finite number")
	}
	return ParseBaseUnits(strconv.FormatFloat(amount, 'f', -1, 64), decimals)
}

// ParseBaseUnits converts a decimal string such as "12.5" into base units.
func ParseBaseUnits(amount string, decimals int) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, apperrors.ValidationField("amount", "amount is required")
	}
	if decimals < 0 {
		return nil, apperrors.ValidationField("decimals", "decimals must be >= 0")
	}
	r, ok := new(big.Rat).SetString(amount)
	if !ok {
		return nil, apperrors.ValidationField("amount", "invalid decimal amount "+strconv.Quote(amount))
	}
	if r.Sign() < 0 {
		return nil, apperrors.ValidationField("amount", "amount must not be negative")
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	r.Mul(r, new(big.Rat).SetInt(scale))
	// Quo on non-negative operands truncates toward zero.
	return new(big.Int).Quo(r.Num(), r.Denom()), nil
}

// FormatBaseUnits renders base units back as a decimal string without
// trailing zeros.
func FormatBaseUnits(units *big.Int, decimals int) string {
	if units == nil {
		return "0"
	}
	if decimals <= 0 {
		return units.String()
	}
	r := new(big.Rat).SetFrac(units, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	s := r.FloatString(decimals)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	}
	return s
}
