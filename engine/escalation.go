package engine

import (
	"time"

	"gorm.io/gorm"

	"github.com/dlabonte15/investment-emailer/models"
)

// recordEscalation bumps the open escalation cycle for an investment on
// every successful non-test send. When the status-changed policy
// reports a change, the open cycle is system-resolved instead of
// incremented; the next qualifying send starts a fresh cycle.
func (d *Deliverer) recordEscalation(tx *gorm.DB, workstreamID uint, email *models.SendEmail, now time.Time) error {
	changed := d.StatusChanged
	if changed == nil {
		changed = func(previous, current string) bool { return previous != current }
	}

	var open models.Escalation
	err := tx.Where("workstream_id = ? AND investment_id = ? AND resolved = ?",
		workstreamID, email.InvestmentID, false).First(&open).Error

	switch {
	case err == gorm.ErrRecordNotFound:
		return tx.Create(&models.Escalation{
			WorkstreamID:   workstreamID,
			InvestmentID:   email.InvestmentID,
			AccountName:    email.AccountName,
			InvestmentName: email.InvestmentName,
			CurrentStatus:  email.InvestmentStatus,
			SendCount:      1,
			FirstEmailedAt: &now,
			LastEmailedAt:  &now,
		}).Error

	case err != nil:
		return err

	case changed(open.CurrentStatus, email.InvestmentStatus):
		// The investment moved; close this complaint cycle.
		return tx.Model(&open).Updates(map[string]any{
			"resolved":    true,
			"resolved_at": now,
			"resolved_by": "system",
			"notes":       "status changed to " + email.InvestmentStatus,
		}).Error

	default:
		return tx.Model(&open).Updates(map[string]any{
			"send_count":      gorm.Expr("send_count + ?", 1),
			"last_emailed_at": now,
			"current_status":  email.InvestmentStatus,
		}).Error
	}
}
