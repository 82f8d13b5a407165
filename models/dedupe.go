package models

import (
	"time"

	"gorm.io/gorm"
)

// DedupeLog records the last successful send per (workstream,
// investment, recipient). Upserted only on successful non-test
// delivery; entries older than a workstream's dedupe window are
// ignored, not deleted.
type DedupeLog struct {
	gorm.Model
	WorkstreamID   uint      `gorm:"not null;uniqueIndex:idx_dedupe_key" json:"workstream_id"`
	InvestmentID   string    `gorm:"not null;uniqueIndex:idx_dedupe_key" json:"investment_id"`
	RecipientEmail string    `gorm:"not null;uniqueIndex:idx_dedupe_key" json:"recipient_email"`
	SentAt         time.Time `gorm:"not null;index" json:"sent_at"`
}
