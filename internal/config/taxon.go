package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Taxon is the resolved target taxon. Numeric taxa are compared as integers so
// that "4932" and " 4932" in a table both match tax_id = 4932.
type Taxon struct {
	Value   string
	Numeric bool
	ID      int64
}

// String returns the canonical textual form of the taxon.
func (t Taxon) String() string {
	return t.Value
}

// IsZero reports whether no taxon was configured.
func (t Taxon) IsZero() bool {
	return t.Value == ""
}

// ParseTaxon resolves a decoded tax_id value (integer, float, or string).
func ParseTaxon(raw any) (Taxon, error) {
	switch v := raw.(type) {
	case nil:
		return Taxon{}, nil
	case int:
		return numericTaxon(int64(v)), nil
	case int64:
		return numericTaxon(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return Taxon{}, fmt.Errorf("tax_id %d out of range", v)
		}
		return numericTaxon(int64(v)), nil
	case float64:
		if v != math.Trunc(v) || v > math.MaxInt64 || v < math.MinInt64 {
			return Taxon{}, fmt.Errorf("tax_id %v is not an integer", v)
		}
		return numericTaxon(int64(v)), nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return Taxon{}, nil
		}
		if id, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return numericTaxon(id), nil
		}
		return Taxon{Value: trimmed}, nil
	default:
		return Taxon{}, fmt.Errorf("tax_id has unsupported type %T", raw)
	}
}

func numericTaxon(id int64) Taxon {
	return Taxon{Value: strconv.FormatInt(id, 10), Numeric: true, ID: id}
}
