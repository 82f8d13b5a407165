package engine

import (
	"fmt"
	"strings"

	"github.com/dlabonte15/investment-emailer/models"
)

// Recipient is one resolved address.
type Recipient struct {
	Email string
	Name  string
}

// ResolveRecipient applies a single recipient rule to a record. A nil
// return means the rule produced no address.
func ResolveRecipient(rule models.RecipientRule, record models.InvestmentRecord, contact *models.IndustryContact) *Recipient {
	switch rule.Source {
	case models.SourceExcelColumn:
		email := record.Field(rule.Field)
		if email == "" || !strings.Contains(email, "@") {
			return nil
		}
		// A companion name field is derived by stripping the _email
		// suffix; its absence is not an error.
		name := ""
		if nameField := strings.TrimSuffix(rule.Field, "_email"); nameField != rule.Field {
			name = record.Field(nameField)
		}
		return &Recipient{Email: email, Name: name}

	case models.SourceContactMapping:
		if contact == nil {
			return nil
		}
		var r Recipient
		switch rule.Field {
		case "sel_email":
			r = Recipient{Email: contact.SelEmail, Name: contact.SelName}
		case "ops_manager_email":
			r = Recipient{Email: contact.OpsManagerEmail, Name: contact.OpsManagerName}
		case "concierge_email":
			r = Recipient{Email: contact.ConciergeEmail, Name: contact.ConciergeName}
		default:
			return nil
		}
		if r.Email == "" {
			return nil
		}
		return &r

	case models.SourceCustom:
		if rule.Field == "" {
			return nil
		}
		return &Recipient{Email: rule.Field}

	default:
		return nil
	}
}

// ResolveRecipients resolves the full To and CC lists for one record.
// To failures degrade to warnings; CC failures are dropped silently.
// Global CC addresses are appended unconditionally.
func ResolveRecipients(cfg models.RecipientConfig, record models.InvestmentRecord, contact *models.IndustryContact, globalCc string) (to, cc []Recipient, warnings []string) {
	for _, rule := range cfg.To {
		if resolved := ResolveRecipient(rule, record, contact); resolved != nil {
			to = append(to, *resolved)
		} else {
			warnings = append(warnings, fmt.Sprintf("Missing To recipient: %s/%s", rule.Source, rule.Field))
		}
	}

	for _, rule := range cfg.Cc {
		if resolved := ResolveRecipient(rule, record, contact); resolved != nil {
			cc = append(cc, *resolved)
		}
	}

	for _, email := range splitEmails(globalCc) {
		cc = append(cc, Recipient{Email: email})
	}

	if len(to) == 0 {
		warnings = append(warnings, "No To recipient resolved")
	}
	return to, cc, warnings
}

// splitEmails splits a comma-separated address list, dropping blanks.
func splitEmails(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
