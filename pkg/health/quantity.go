package health

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Unit is a memory quantity suffix.
type Unit string

const (
	UnitBytes Unit = ""
	UnitKi    Unit = "Ki"
	UnitMi    Unit = "Mi"
	UnitGi    Unit = "Gi"
)

// ErrInvalidQuantity is returned for quantities with an unknown suffix or a non-integer value.
var ErrInvalidQuantity = errors.New("invalid memory quantity")

const kiPerGi = 1024 * 1024

// Quantity is a memory amount with its unit suffix.
type Quantity struct {
	Value int64 `json:"value"`
	Unit  Unit  `json:"unit"`
}

// ParseQuantity parses strings such as "16Gi", "2048Ki" or "1073741824".
// Only Ki, Mi, Gi and bare bytes are accepted.
func ParseQuantity(s string) (Quantity, error) {
	s = strings.TrimSpace(s)
	unit := UnitBytes
	for _, u := range []Unit{UnitKi, UnitMi, UnitGi} {
		if strings.HasSuffix(s, string(u)) {
			unit = u
			s = strings.TrimSuffix(s, string(u))
			break
		}
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v < 0 {
		return Quantity{}, fmt.Errorf("%w: %q", ErrInvalidQuantity, s+string(unit))
	}
	if v > math.MaxInt64/kibibytesPer(unit) {
		return Quantity{}, fmt.Errorf("%w: %q overflows when normalized", ErrInvalidQuantity, s+string(unit))
	}
	return Quantity{Value: v, Unit: unit}, nil
}

// kibibytesPer is the KiB multiplier of a suffixed unit. Bare bytes divide and never overflow.
func kibibytesPer(u Unit) int64 {
	switch u {
	case UnitMi:
		return 1024
	case UnitGi:
		return kiPerGi
	default:
		return 1
	}
}

// Kibibytes normalizes the quantity to KiB. Bare byte values are divided by 1024.
func (q Quantity) Kibibytes() float64 {
	switch q.Unit {
	case UnitKi:
		return float64(q.Value)
	case UnitMi, UnitGi:
		return float64(q.Value * kibibytesPer(q.Unit))
	default:
		return float64(q.Value) / 1024
	}
}

func (q Quantity) String() string {
	return strconv.FormatInt(q.Value, 10) + string(q.Unit)
}
