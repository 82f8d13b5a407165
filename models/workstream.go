package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ConditionOperator is the closed set of operators the trigger engine
// understands. Unknown operators evaluate to false, never error.
type ConditionOperator string

const (
	OpEquals        ConditionOperator = "equals"
	OpNotEquals     ConditionOperator = "not_equals"
	OpIn            ConditionOperator = "in"
	OpNotIn         ConditionOperator = "not_in"
	OpContains      ConditionOperator = "contains"
	OpNotContains   ConditionOperator = "not_contains"
	OpIsEmpty       ConditionOperator = "is_empty"
	OpIsNotEmpty    ConditionOperator = "is_not_empty"
	OpGreaterThan   ConditionOperator = "greater_than"
	OpLessThan      ConditionOperator = "less_than"
	OpOlderThanDays ConditionOperator = "older_than_days"
	OpNewerThanDays ConditionOperator = "newer_than_days"
)

// Known reports whether the operator is part of the supported set.
func (op ConditionOperator) Known() bool {
	switch op {
	case OpEquals, OpNotEquals, OpIn, OpNotIn, OpContains, OpNotContains,
		OpIsEmpty, OpIsNotEmpty, OpGreaterThan, OpLessThan,
		OpOlderThanDays, OpNewerThanDays:
		return true
	}
	return false
}

// TriggerCondition is one rule evaluated against a single record field.
// Value round-trips as raw JSON (string, number or list of strings).
type TriggerCondition struct {
	Field    string            `json:"field"`
	Operator ConditionOperator `json:"operator"`
	Value    any               `json:"value"`
}

// TriggerLogic combines an ordered list of conditions with AND/OR.
type TriggerLogic struct {
	Conditions []TriggerCondition `json:"conditions"`
	Logic      string             `json:"logic"` // AND or OR
}

// RecipientSource identifies where a recipient rule pulls its address from.
type RecipientSource string

const (
	SourceExcelColumn    RecipientSource = "excel_column"
	SourceContactMapping RecipientSource = "contact_mapping"
	SourceCustom         RecipientSource = "custom"
)

func (s RecipientSource) Known() bool {
	switch s {
	case SourceExcelColumn, SourceContactMapping, SourceCustom:
		return true
	}
	return false
}

// RecipientRule resolves one address. Field is a record column for
// excel_column, a contact sub-field (sel_email, ops_manager_email,
// concierge_email) for contact_mapping, or a literal address for custom.
type RecipientRule struct {
	Source RecipientSource `json:"source"`
	Field  string          `json:"field"`
}

// UnmarshalJSON normalizes legacy rule shapes at the load boundary:
// "type" instead of "source", and "excel_field" instead of "excel_column".
func (r *RecipientRule) UnmarshalJSON(data []byte) error {
	var raw struct {
		Source string `json:"source"`
		Type   string `json:"type"`
		Field  string `json:"field"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	src := raw.Source
	if src == "" {
		src = raw.Type
	}
	if src == "" || src == "excel_field" {
		src = string(SourceExcelColumn)
	}
	r.Source = RecipientSource(src)
	r.Field = raw.Field
	return nil
}

// RecipientRuleList accepts either a JSON array of rules or a single
// rule object (legacy configs stored a bare object).
type RecipientRuleList []RecipientRule

func (l *RecipientRuleList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*l = nil
		return nil
	}
	if trimmed[0] == '{' {
		var one RecipientRule
		if err := json.Unmarshal(trimmed, &one); err != nil {
			return err
		}
		*l = RecipientRuleList{one}
		return nil
	}
	var rules []RecipientRule
	if err := json.Unmarshal(trimmed, &rules); err != nil {
		return err
	}
	*l = RecipientRuleList(rules)
	return nil
}

// RecipientConfig holds the ordered To and CC resolution rules.
type RecipientConfig struct {
	To RecipientRuleList `json:"to"`
	Cc RecipientRuleList `json:"cc"`
}

// SubTemplateRule swaps the workstream's default template when the
// record field matches the expected value. First match wins.
type SubTemplateRule struct {
	Field      string `json:"field"`
	Value      string `json:"value"`
	TemplateID uint   `json:"template_id"`
}

// Workstream is a named automation rule set producing one batch per trigger.
type Workstream struct {
	gorm.Model
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	Enabled     bool   `gorm:"default:true" json:"enabled"`

	// Scheduling
	Cadence        string `gorm:"default:'manual'" json:"cadence"` // manual, daily, weekly, custom
	CronExpression string `json:"cron_expression"`

	// Rule configuration (stored as JSON, normalized on load)
	TriggerLogic     TriggerLogic      `gorm:"type:jsonb;serializer:json" json:"trigger_logic"`
	RecipientConfig  RecipientConfig   `gorm:"type:jsonb;serializer:json" json:"recipient_config"`
	SubTemplateRules []SubTemplateRule `gorm:"type:jsonb;serializer:json" json:"sub_template_rules"`

	TemplateID uint `gorm:"not null;index" json:"template_id"`

	// Dedupe and escalation policy
	DedupeWindowDays    int  `gorm:"default:7" json:"dedupe_window_days"`
	EscalationThreshold int  `gorm:"default:3" json:"escalation_threshold"`
	AutoApprove         bool `gorm:"default:false" json:"auto_approve"`

	LastRunAt *time.Time `json:"last_run_at"`
	NextRunAt *time.Time `json:"next_run_at"`

	// Relations
	Template    EmailTemplate `json:"template,omitempty"`
	Batches     []SendBatch   `gorm:"foreignKey:WorkstreamID" json:"batches,omitempty"`
	DedupeLogs  []DedupeLog   `gorm:"foreignKey:WorkstreamID" json:"-"`
	Escalations []Escalation  `gorm:"foreignKey:WorkstreamID" json:"-"`
}

// ValidateConfig checks the workstream invariants before it is persisted
// or run: a default template, a sane dedupe window and escalation
// threshold, known operators, sources and combinator.
func (w *Workstream) ValidateConfig() error {
	if w.TemplateID == 0 {
		return fmt.Errorf("workstream requires a default template")
	}
	if w.DedupeWindowDays < 0 {
		return fmt.Errorf("dedupe window must be >= 0 days")
	}
	if w.EscalationThreshold < 1 {
		return fmt.Errorf("escalation threshold must be >= 1")
	}
	if w.TriggerLogic.Logic != "AND" && w.TriggerLogic.Logic != "OR" {
		return fmt.Errorf("trigger logic must be AND or OR, got %q", w.TriggerLogic.Logic)
	}
	for i, c := range w.TriggerLogic.Conditions {
		if c.Field == "" {
			return fmt.Errorf("condition %d has no field", i+1)
		}
		if !c.Operator.Known() {
			return fmt.Errorf("condition %d has unknown operator %q", i+1, c.Operator)
		}
	}
	for _, rule := range append(append(RecipientRuleList{}, w.RecipientConfig.To...), w.RecipientConfig.Cc...) {
		if !rule.Source.Known() {
			return fmt.Errorf("unknown recipient source %q", rule.Source)
		}
		if rule.Field == "" {
			return fmt.Errorf("recipient rule (%s) has no field", rule.Source)
		}
	}
	return nil
}
