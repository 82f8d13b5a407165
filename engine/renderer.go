package engine

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dlabonte15/investment-emailer/models"
)

var placeholderRe = regexp.MustCompile(`\{\{(\w+)\}\}`)

// RenderTemplate replaces every {{field}} token with the matching value
// from the data map. Tokens with no value (missing, nil or empty) are
// left intact so broken templates stay visible for review instead of
// silently blanking.
func RenderTemplate(text string, data map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(text, func(match string) string {
		key := match[2 : len(match)-2]
		if value, ok := data[key]; ok && value != "" {
			return value
		}
		return match
	})
}

// ResidualPlaceholders returns the distinct {{...}} tokens left in a
// rendered string, in order of first appearance.
func ResidualPlaceholders(text string) []string {
	var out []string
	seen := map[string]bool{}
	for _, match := range placeholderRe.FindAllString(text, -1) {
		if !seen[match] {
			seen[match] = true
			out = append(out, match)
		}
	}
	return out
}

// BuildTemplateData merges record fields, resolved contact fields and
// the sender name into one flat map for rendering.
func BuildTemplateData(record models.InvestmentRecord, contact *models.IndustryContact, senderName string) map[string]string {
	data := make(map[string]string, len(record)+7)
	for key, value := range record {
		data[key] = models.Stringify(value)
	}
	if contact != nil {
		data["sel_name"] = contact.SelName
		data["sel_email"] = contact.SelEmail
		data["ops_manager_name"] = contact.OpsManagerName
		data["ops_manager_email"] = contact.OpsManagerEmail
		data["concierge_name"] = contact.ConciergeName
		data["concierge_email"] = contact.ConciergeEmail
	}
	if senderName != "" {
		data["sender_name"] = senderName
	}
	return data
}

// BuildTableBlock expands a template's table columns into the [TABLE]
// text markup that the delivery HTML wrapper turns into a styled table.
// The cell placeholders are filled by the normal rendering pass.
func BuildTableBlock(columns []models.TableColumn) string {
	if len(columns) == 0 {
		return ""
	}
	headers := make([]string, len(columns))
	cells := make([]string, len(columns))
	for i, col := range columns {
		headers[i] = col.Header
		cells[i] = fmt.Sprintf("{{%s}}", col.Placeholder)
	}
	return fmt.Sprintf("[TABLE]\n|%s|\n|%s|\n[/TABLE]", strings.Join(headers, "|"), strings.Join(cells, "|"))
}

// SelectTemplate picks the template for one record: the first
// sub-template rule whose field matches its expected value (case and
// whitespace insensitive) wins, otherwise the workstream default.
func SelectTemplate(defaultTpl models.EmailTemplate, rules []models.SubTemplateRule, byID map[uint]models.EmailTemplate, record models.InvestmentRecord) models.EmailTemplate {
	for _, rule := range rules {
		fieldValue := strings.ToLower(record.Field(rule.Field))
		expected := strings.ToLower(strings.TrimSpace(rule.Value))
		if fieldValue == expected {
			if alt, ok := byID[rule.TemplateID]; ok {
				return alt
			}
			break
		}
	}
	return defaultTpl
}

// RenderEmail renders a full message for one record: subject, then body
// with the optional {{table}} expansion and signature appended.
// Residual placeholder warnings cover both subject and body.
func RenderEmail(tpl models.EmailTemplate, data map[string]string) (subject, body string, warnings []string) {
	rawBody := tpl.Body
	if len(tpl.TableColumns) > 0 && strings.Contains(rawBody, "{{table}}") {
		rawBody = strings.ReplaceAll(rawBody, "{{table}}", BuildTableBlock(tpl.TableColumns))
	}

	subject = RenderTemplate(tpl.Subject, data)
	body = RenderTemplate(rawBody, data)
	if tpl.Signature != "" {
		body += "\n\n" + RenderTemplate(tpl.Signature, data)
	}

	if residual := ResidualPlaceholders(subject); len(residual) > 0 {
		warnings = append(warnings, "Unresolved in subject: "+strings.Join(residual, ", "))
	}
	if residual := ResidualPlaceholders(body); len(residual) > 0 {
		warnings = append(warnings, "Unresolved in body: "+strings.Join(residual, ", "))
	}
	return subject, body, warnings
}
