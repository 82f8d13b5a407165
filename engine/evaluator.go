package engine

import (
	"strconv"
	"strings"
	"time"

	"github.com/dlabonte15/investment-emailer/models"
)

// EvaluateCondition applies one operator to a record field value. The
// function is total: every operator/value combination returns a bool,
// unknown operators and unparsable operands evaluate to false.
func EvaluateCondition(rowValue any, op models.ConditionOperator, operand any, now time.Time) bool {
	value := models.Stringify(rowValue)

	switch op {
	case models.OpEquals:
		return strings.EqualFold(value, models.Stringify(operand))
	case models.OpNotEquals:
		return !strings.EqualFold(value, models.Stringify(operand))
	case models.OpIn:
		return containsFold(operandList(operand), value)
	case models.OpNotIn:
		return !containsFold(operandList(operand), value)
	case models.OpContains:
		return strings.Contains(strings.ToLower(value), strings.ToLower(models.Stringify(operand)))
	case models.OpNotContains:
		return !strings.Contains(strings.ToLower(value), strings.ToLower(models.Stringify(operand)))
	case models.OpIsEmpty:
		return value == ""
	case models.OpIsNotEmpty:
		return value != ""
	case models.OpGreaterThan:
		left, lok := parseLenientFloat(value)
		right, rok := parseLenientFloat(models.Stringify(operand))
		return lok && rok && left > right
	case models.OpLessThan:
		left, lok := parseLenientFloat(value)
		right, rok := parseLenientFloat(models.Stringify(operand))
		return lok && rok && left < right
	case models.OpOlderThanDays:
		date, ok := parseDate(value)
		if !ok {
			return false
		}
		days, ok := parseLenientFloat(models.Stringify(operand))
		return ok && now.Sub(date).Hours()/24 > days
	case models.OpNewerThanDays:
		date, ok := parseDate(value)
		if !ok {
			return false
		}
		days, ok := parseLenientFloat(models.Stringify(operand))
		return ok && now.Sub(date).Hours()/24 < days
	default:
		return false
	}
}

// operandList coerces an operand into a membership list: a JSON array,
// a []string, or a comma-separated string.
func operandList(operand any) []string {
	switch v := operand.(type) {
	case []string:
		return trimAll(v)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, models.Stringify(item))
		}
		return out
	default:
		return trimAll(strings.Split(models.Stringify(operand), ","))
	}
}

func trimAll(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		out = append(out, strings.TrimSpace(s))
	}
	return out
}

func containsFold(list []string, value string) bool {
	for _, item := range list {
		if strings.EqualFold(item, value) {
			return true
		}
	}
	return false
}

// parseLenientFloat parses the longest numeric prefix of s, so "60 days"
// parses as 60. A value with no numeric prefix reports false, which
// makes both greater_than and less_than comparisons fail.
func parseLenientFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	end := 0
	for i := 1; i <= len(s); i++ {
		if _, err := strconv.ParseFloat(s[:i], 64); err == nil {
			end = i
		}
	}
	if end == 0 {
		return 0, false
	}
	f, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"Jan 2, 2006",
	"2 Jan 2006",
	"January 2, 2006",
}

// parseDate tries the date layouts seen in uploaded spreadsheets.
// Unparsable or missing dates report false and the condition does not
// match; date conditions never error.
func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
