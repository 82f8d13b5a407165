package models

import (
	"strings"

	"gorm.io/gorm"
)

// IndustryContact maps one industry to its SEL, Ops Manager and
// Concierge name/email pairs. Lookups normalize the industry string
// (lower-cased, trimmed); at most one row exists per industry.
type IndustryContact struct {
	gorm.Model
	PrimaryIndustry string `gorm:"not null;uniqueIndex" json:"primary_industry"`

	SelName  string `json:"sel_name"`
	SelEmail string `json:"sel_email"`

	OpsManagerName  string `json:"ops_manager_name"`
	OpsManagerEmail string `json:"ops_manager_email"`

	ConciergeName  string `json:"concierge_name"`
	ConciergeEmail string `json:"concierge_email"`
}

// NormalizeIndustry produces the canonical lookup key for an industry name.
func NormalizeIndustry(industry string) string {
	return strings.ToLower(strings.TrimSpace(industry))
}
