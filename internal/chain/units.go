package chain

import (
	"math/big"
	"strings"
)

var eth1 = new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))

// WeiToETH converts a wei amount to an 18-decimal ETH string.
func WeiToETH(wei *big.Int) string {
	if wei == nil {
		wei = new(big.Int)
	}
	return FormatUnits(wei, 18)
}

// FormatEther renders wei as ETH with trailing zeros trimmed, keeping one
// decimal place: "1.0", "0.25".
func FormatEther(wei *big.Int) string {
	s := TrimZeros(WeiToETH(wei))
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// FormatUnits renders raw as a fixed-point decimal with the given number of
// decimals. The conversion is exact (integer arithmetic only).
func FormatUnits(raw *big.Int, decimals int) string {
	if raw == nil {
		raw = new(big.Int)
	}
	if decimals <= 0 {
		return raw.String()
	}
	neg := raw.Sign() < 0
	abs := new(big.Int).Abs(raw)
	div := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole, frac := new(big.Int).QuoRem(abs, div, new(big.Int))

	fs := frac.String()
	if len(fs) < decimals {
		fs = strings.Repeat("0", decimals-len(fs)) + fs
	}
	s := whole.String() + "." + fs
	if neg {
		s = "-" + s
	}
	return s
}

// TrimZeros strips trailing fractional zeros ("1.500" -> "1.5", "2.000" -> "2").
func TrimZeros(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// WeiToGwei converts a Wei value to Gwei as float64.
func WeiToGwei(wei *big.Int) float64 {
	if wei == nil {
		return 0
	}
	f, _ := new(big.Float).Quo(
		new(big.Float).SetInt(wei),
		new(big.Float).SetFloat64(1e9),
	).Float64()
	return f
}

// WeiToFloat converts a wei amount to whole units as float64, for display
// and USD maths only.
func WeiToFloat(wei *big.Int) float64 {
	if wei == nil {
		return 0
	}
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), eth1).Float64()
	return f
}

// ScalePercent returns v * pct / 100 using integer arithmetic.
func ScalePercent(v *big.Int, pct int64) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	out := new(big.Int).Mul(v, big.NewInt(pct))
	return out.Quo(out, big.NewInt(100))
}
