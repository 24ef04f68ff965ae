package purchase

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// minorUnitDecimals converts whole coins to minor units (nanotons).
const minorUnitDecimals = 9

// NormalizeBuyAmount converts the marketplace's required payment amount into
// minor units. The marketplace is inconsistent: sometimes it sends a
// fractional whole-unit value ("0.4418"), sometimes the minor-unit integer
// ("441800000"). Both forms of the same price normalize identically.
func NormalizeBuyAmount(raw string) (uint64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidBuyAmount, raw)
	}

	if d.Sign() <= 0 {
		return 0, fmt.Errorf("%w: non-positive amount %q", ErrInvalidBuyAmount, raw)
	}

	if !d.IsInteger() {
		d = d.Shift(minorUnitDecimals)
		if !d.IsInteger() {
			return 0, fmt.Errorf("%w: %q has sub-minor-unit precision", ErrInvalidBuyAmount, raw)
		}
	}

	v := d.BigInt()
	if !v.IsUint64() {
		return 0, fmt.Errorf("%w: %q does not fit in minor units", ErrInvalidBuyAmount, raw)
	}

	return v.Uint64(), nil
}
