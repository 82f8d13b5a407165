package engine

import (
	"time"

	"github.com/dlabonte15/investment-emailer/models"
)

// MatchesTrigger decides whether a record matches a workstream's
// trigger logic. Zero conditions match everything, which is how a
// workstream selects all records.
func MatchesTrigger(record models.InvestmentRecord, trigger models.TriggerLogic, now time.Time) bool {
	if len(trigger.Conditions) == 0 {
		return true
	}

	for _, cond := range trigger.Conditions {
		matched := EvaluateCondition(record[cond.Field], cond.Operator, cond.Value, now)
		if trigger.Logic == "OR" {
			if matched {
				return true
			}
		} else if !matched {
			// AND (the default combinator)
			return false
		}
	}
	return trigger.Logic != "OR"
}
