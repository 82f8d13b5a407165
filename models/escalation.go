package models

import (
	"time"

	"gorm.io/gorm"
)

// Escalation tracks an investment that keeps getting emailed without
// its status changing. One unresolved row per (workstream, investment);
// resolution closes the cycle for good, a later send opens a fresh one.
type Escalation struct {
	gorm.Model
	WorkstreamID uint   `gorm:"not null;index" json:"workstream_id"`
	InvestmentID string `gorm:"not null;index" json:"investment_id"`

	AccountName    string `json:"account_name"`
	InvestmentName string `json:"investment_name"`
	CurrentStatus  string `json:"current_status"`

	SendCount      int        `gorm:"default:0" json:"send_count"`
	FirstEmailedAt *time.Time `json:"first_emailed_at"`
	LastEmailedAt  *time.Time `json:"last_emailed_at"`

	Resolved   bool       `gorm:"default:false;index" json:"resolved"`
	ResolvedAt *time.Time `json:"resolved_at"`
	ResolvedBy string     `json:"resolved_by"`
	Notes      string     `json:"notes"`

	Workstream Workstream `json:"-"`
}
