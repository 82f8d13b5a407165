package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dlabonte15/investment-emailer/models"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func TestEvaluateCondition_Equality(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		op       models.ConditionOperator
		operand  any
		expected bool
	}{
		{"equals exact", "Active", models.OpEquals, "Active", true},
		{"equals case insensitive", "ACTIVE", models.OpEquals, "active", true},
		{"equals mismatch", "Active", models.OpEquals, "Closed", false},
		{"equals number vs string", 42.0, models.OpEquals, "42", true},
		{"not_equals", "Active", models.OpNotEquals, "Closed", true},
		{"not_equals case insensitive", "Active", models.OpNotEquals, "ACTIVE", false},
		{"equals nil value", nil, models.OpEquals, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, EvaluateCondition(tt.value, tt.op, tt.operand, testNow))
		})
	}
}

func TestEvaluateCondition_Membership(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		op       models.ConditionOperator
		operand  any
		expected bool
	}{
		{"in array", "Pending", models.OpIn, []any{"Pending", "Review"}, true},
		{"in array case insensitive", "pending", models.OpIn, []any{"Pending"}, true},
		{"in comma string", "Review", models.OpIn, "Pending, Review, Done", true},
		{"not in array", "Closed", models.OpIn, []any{"Pending", "Review"}, false},
		{"not_in hit", "Closed", models.OpNotIn, []any{"Pending"}, true},
		{"not_in miss", "Pending", models.OpNotIn, []any{"Pending"}, false},
		{"contains", "Deep Value Fund III", models.OpContains, "value", true},
		{"contains miss", "Growth Fund", models.OpContains, "value", false},
		{"not_contains", "Growth Fund", models.OpNotContains, "value", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, EvaluateCondition(tt.value, tt.op, tt.operand, testNow))
		})
	}
}

func TestEvaluateCondition_Emptiness(t *testing.T) {
	assert.True(t, EvaluateCondition(nil, models.OpIsEmpty, nil, testNow))
	assert.True(t, EvaluateCondition("", models.OpIsEmpty, nil, testNow))
	assert.True(t, EvaluateCondition("   ", models.OpIsEmpty, nil, testNow))
	assert.False(t, EvaluateCondition("x", models.OpIsEmpty, nil, testNow))
	assert.True(t, EvaluateCondition("x", models.OpIsNotEmpty, nil, testNow))
	assert.False(t, EvaluateCondition(nil, models.OpIsNotEmpty, nil, testNow))
}

func TestEvaluateCondition_Numeric(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		op       models.ConditionOperator
		operand  any
		expected bool
	}{
		{"greater_than", 100.0, models.OpGreaterThan, 50, true},
		{"greater_than equal is false", 50.0, models.OpGreaterThan, 50, false},
		{"less_than", 10.0, models.OpLessThan, 50, true},
		{"numeric prefix parses", "60 days", models.OpGreaterThan, "30", true},
		{"currency-ish prefix", "1200.50 USD", models.OpGreaterThan, 1000, true},
		{"non-numeric value never matches", "n/a", models.OpGreaterThan, 0, false},
		{"non-numeric value never matches less", "n/a", models.OpLessThan, 1000000, false},
		{"non-numeric operand never matches", 10.0, models.OpGreaterThan, "lots", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, EvaluateCondition(tt.value, tt.op, tt.operand, testNow))
		})
	}
}

func TestEvaluateCondition_Dates(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		op       models.ConditionOperator
		operand  any
		expected bool
	}{
		{"older_than_days hit", "2025-01-01", models.OpOlderThanDays, 30, true},
		{"older_than_days miss", "2025-06-10", models.OpOlderThanDays, 30, false},
		{"newer_than_days hit", "2025-06-10", models.OpNewerThanDays, 30, true},
		{"newer_than_days miss", "2025-01-01", models.OpNewerThanDays, 30, false},
		{"us layout", "01/01/2025", models.OpOlderThanDays, 30, true},
		{"rfc3339", "2025-06-14T08:00:00Z", models.OpNewerThanDays, 7, true},
		{"unparsable date never matches", "yesterday", models.OpOlderThanDays, 0, false},
		{"empty date never matches", "", models.OpNewerThanDays, 10000, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, EvaluateCondition(tt.value, tt.op, tt.operand, testNow))
		})
	}
}

func TestEvaluateCondition_UnknownOperator(t *testing.T) {
	assert.False(t, EvaluateCondition("x", "regex_match", "x", testNow))
}

func TestParseLenientFloat(t *testing.T) {
	f, ok := parseLenientFloat("60 days")
	assert.True(t, ok)
	assert.Equal(t, 60.0, f)

	f, ok = parseLenientFloat("  -3.5x")
	assert.True(t, ok)
	assert.Equal(t, -3.5, f)

	_, ok = parseLenientFloat("none")
	assert.False(t, ok)

	_, ok = parseLenientFloat("")
	assert.False(t, ok)
}

func TestMatchesTrigger(t *testing.T) {
	record := models.InvestmentRecord{
		"investment_status": "Pending",
		"days_open":         45.0,
	}

	t.Run("zero conditions match all", func(t *testing.T) {
		assert.True(t, MatchesTrigger(record, models.TriggerLogic{Logic: "AND"}, testNow))
	})

	t.Run("AND requires every condition", func(t *testing.T) {
		trigger := models.TriggerLogic{
			Logic: "AND",
			Conditions: []models.TriggerCondition{
				{Field: "investment_status", Operator: models.OpEquals, Value: "Pending"},
				{Field: "days_open", Operator: models.OpGreaterThan, Value: 30},
			},
		}
		assert.True(t, MatchesTrigger(record, trigger, testNow))

		trigger.Conditions[1].Value = 60
		assert.False(t, MatchesTrigger(record, trigger, testNow))
	})

	t.Run("OR requires any condition", func(t *testing.T) {
		trigger := models.TriggerLogic{
			Logic: "OR",
			Conditions: []models.TriggerCondition{
				{Field: "investment_status", Operator: models.OpEquals, Value: "Closed"},
				{Field: "days_open", Operator: models.OpGreaterThan, Value: 30},
			},
		}
		assert.True(t, MatchesTrigger(record, trigger, testNow))

		trigger.Conditions[1].Value = 60
		assert.False(t, MatchesTrigger(record, trigger, testNow))
	})

	t.Run("missing field evaluates against empty", func(t *testing.T) {
		trigger := models.TriggerLogic{
			Logic: "AND",
			Conditions: []models.TriggerCondition{
				{Field: "no_such_column", Operator: models.OpIsEmpty},
			},
		}
		assert.True(t, MatchesTrigger(record, trigger, testNow))
	})
}
