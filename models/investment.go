package models

import (
	"strconv"
	"strings"
	"time"
)

// InvestmentRecord is one row of the dataset snapshot: a flat mapping
// of named fields to strings, numbers or nulls. Immutable within a run.
type InvestmentRecord map[string]any

// Field returns the record value as a trimmed string. Nil values and
// missing fields become "".
func (r InvestmentRecord) Field(name string) string {
	return Stringify(r[name])
}

// Stringify converts a raw record value to its trimmed string form.
// Whole numbers are formatted without a fractional part so a JSON 60
// round-trips as "60", not "60.000000".
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// DatasetSnapshot is the wholesale-loaded investment dataset.
type DatasetSnapshot struct {
	Rows       []InvestmentRecord `json:"rows"`
	RawColumns []string           `json:"raw_columns"`
	ParsedAt   time.Time          `json:"parsed_at"`
}
