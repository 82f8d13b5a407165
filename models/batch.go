package models

import (
	"time"

	"gorm.io/gorm"
)

// Batch lifecycle statuses.
const (
	BatchPendingApproval = "pending_approval"
	BatchApproved        = "approved"
	BatchSending         = "sending"
	BatchCompleted       = "completed"
)

// Trigger types recorded on a batch.
const (
	TriggerManual    = "manual"
	TriggerScheduled = "scheduled"
	TriggerTest      = "test"
)

// Per-message result statuses.
const (
	ResultPending       = "pending"
	ResultSent          = "sent"
	ResultFailed        = "failed"
	ResultSkipped       = "skipped"
	ResultSkippedDedupe = "skipped_dedupe"
)

// SendBatch is one execution of a workstream: the generated messages
// plus their lifecycle status and denormalized counters.
type SendBatch struct {
	gorm.Model
	Reference    string `gorm:"uniqueIndex" json:"reference"`
	WorkstreamID uint   `gorm:"not null;index" json:"workstream_id"`
	TriggeredBy  string `gorm:"not null" json:"triggered_by"`
	TriggerType  string `gorm:"default:'manual'" json:"trigger_type"`

	Status string `gorm:"default:'pending_approval'" json:"status"`

	TotalCount   int `gorm:"default:0" json:"total_count"`
	SentCount    int `gorm:"default:0" json:"sent_count"`
	FailedCount  int `gorm:"default:0" json:"failed_count"`
	SkippedCount int `gorm:"default:0" json:"skipped_count"`

	CompletedAt *time.Time `json:"completed_at"`

	// Relations
	Workstream Workstream  `json:"-"`
	Emails     []SendEmail `gorm:"foreignKey:BatchID;constraint:OnDelete:CASCADE" json:"emails,omitempty"`
}

// SendEmail is one generated message tied to a batch. Immutable after
// generation except for the result fields and open-tracking counters.
type SendEmail struct {
	gorm.Model
	BatchID uint `gorm:"not null;index" json:"batch_id"`

	InvestmentID     string `gorm:"not null;index" json:"investment_id"`
	AccountName      string `json:"account_name"`
	InvestmentName   string `json:"investment_name"`
	InvestmentStatus string `json:"investment_status"`

	ToEmail  string `json:"to_email"`
	ToName   string `json:"to_name"`
	CcEmails string `json:"cc_emails"` // comma-separated

	Subject string `gorm:"type:text" json:"subject"`
	Body    string `gorm:"type:text" json:"body"`

	Result       string     `gorm:"default:'pending';index" json:"result"`
	ErrorMessage string     `json:"error_message"`
	IsTest       bool       `gorm:"default:false" json:"is_test"`
	SentAt       *time.Time `json:"sent_at"`

	// Open tracking
	OpenedAt  *time.Time `json:"opened_at"`
	OpenCount int        `gorm:"default:0" json:"open_count"`

	Warnings []string `gorm:"type:jsonb;serializer:json" json:"warnings"`

	Batch SendBatch `json:"-"`
}
