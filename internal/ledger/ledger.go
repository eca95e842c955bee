// =============================
// File: internal/ledger/ledger.go
// =============================
package ledger

import (
	"fmt"
	"math/big"
)

// BpsDenominator is the fixed-point denominator for basis-point arithmetic.
// 10_000 bps == 100.00%.
const BpsDenominator = 10_000

// LamportsPerSol is the number of minimal native units per whole SOL.
const LamportsPerSol = 1_000_000_000

// MulDiv computes a*b/c with a 128-bit intermediate, rounding toward zero.
// Returns an error on division by zero or if the result overflows uint64.
func MulDiv(a, b, c uint64) (uint64, error) {
	if c == 0 {
		return 0, fmt.Errorf("muldiv: division by zero")
	}
	res := new(big.Int).Mul(new(big.Int).SetUint64(a), new(big.Int).SetUint64(b))
	res.Quo(res, new(big.Int).SetUint64(c))
	if !res.IsUint64() {
		return 0, fmt.Errorf("muldiv: result overflows uint64")
	}
	return res.Uint64(), nil
}

// MulDivCeil is MulDiv rounding away from zero.
func MulDivCeil(a, b, c uint64) (uint64, error) {
	if c == 0 {
		return 0, fmt.Errorf("muldiv: division by zero")
	}
	num := new(big.Int).Mul(new(big.Int).SetUint64(a), new(big.Int).SetUint64(b))
	den := new(big.Int).SetUint64(c)
	quo, rem := new(big.Int).QuoRem(num, den, new(big.Int))
	if rem.Sign() != 0 {
		quo.Add(quo, big.NewInt(1))
	}
	if !quo.IsUint64() {
		return 0, fmt.Errorf("muldiv: result overflows uint64")
	}
	return quo.Uint64(), nil
}

// ShareFloor returns the bps fraction of amount rounded down.
// Used for amounts paid out, so the payer can never be short.
func ShareFloor(amount, bps uint64) uint64 {
	v, err := MulDiv(amount, bps, BpsDenominator)
	if err != nil {
		// amount*bps/10000 <= amount for bps <= 10000; overflow means bps > 10000.
		panic(err)
	}
	return v
}

// ShareCeil returns the bps fraction of amount rounded up.
// Used for amounts owed, so the creditor can never be short.
func ShareCeil(amount, bps uint64) uint64 {
	v, err := MulDivCeil(amount, bps, BpsDenominator)
	if err != nil {
		panic(err)
	}
	return v
}

// ProgressBps reports current/target as basis points, capped at 100%.
func ProgressBps(current, target uint64) uint64 {
	if target == 0 {
		return BpsDenominator
	}
	if current >= target {
		return BpsDenominator
	}
	v, _ := MulDiv(current, BpsDenominator, target)
	return v
}

// WithinToleranceBps reports whether a and b differ by at most tolBps of the
// larger value. Both zero is considered in tolerance.
func WithinToleranceBps(a, b, tolBps uint64) bool {
	hi, lo := a, b
	if lo > hi {
		hi, lo = lo, hi
	}
	if hi == 0 {
		return true
	}
	diff := hi - lo
	limit, err := MulDiv(hi, tolBps, BpsDenominator)
	if err != nil {
		return false
	}
	return diff <= limit
}

// SolString formats lamports as a decimal SOL amount for logs.
func SolString(lamports uint64) string {
	return fmt.Sprintf("%d.%09d", lamports/LamportsPerSol, lamports%LamportsPerSol)
}
