package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/dlabonte15/investment-emailer/models"
)

// Workflow gates human review between batch generation and delivery.
// Approve, Cancel and TestSend each verify the batch is still
// pending_approval inside the transaction and reject otherwise.
type Workflow struct {
	DB        *gorm.DB
	Deliverer *Deliverer
	Logger    *log.Logger
}

func NewWorkflow(db *gorm.DB, deliverer *Deliverer, logger *log.Logger) *Workflow {
	return &Workflow{DB: db, Deliverer: deliverer, Logger: logger}
}

// Approve finalizes review and hands the batch to delivery. Excluded
// message ids go pending -> skipped; re-included ids go skipped_dedupe
// -> pending, an explicit human override of the dedupe suppression.
func (w *Workflow) Approve(ctx context.Context, batchID uint, excludedIDs, reIncludedIDs []uint, approvedBy string) (*DeliveryStats, error) {
	err := w.DB.Transaction(func(tx *gorm.DB) error {
		batch, err := w.requirePendingApproval(tx, batchID)
		if err != nil {
			return err
		}

		if len(reIncludedIDs) > 0 {
			if err := tx.Model(&models.SendEmail{}).
				Where("batch_id = ? AND id IN ? AND result = ?", batchID, reIncludedIDs, models.ResultSkippedDedupe).
				Update("result", models.ResultPending).Error; err != nil {
				return err
			}
		}

		if len(excludedIDs) > 0 {
			if err := tx.Model(&models.SendEmail{}).
				Where("batch_id = ? AND id IN ? AND result = ?", batchID, excludedIDs, models.ResultPending).
				Update("result", models.ResultSkipped).Error; err != nil {
				return err
			}
		}

		var skipped, pending int64
		if err := tx.Model(&models.SendEmail{}).
			Where("batch_id = ? AND result IN ?", batchID, []string{models.ResultSkipped, models.ResultSkippedDedupe}).
			Count(&skipped).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.SendEmail{}).
			Where("batch_id = ? AND result = ?", batchID, models.ResultPending).
			Count(&pending).Error; err != nil {
			return err
		}

		return tx.Model(batch).Updates(map[string]any{
			"status":        models.BatchApproved,
			"total_count":   pending,
			"skipped_count": skipped,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	if w.Logger != nil {
		w.Logger.Printf("batch %d approved by %s (%d excluded, %d re-included)",
			batchID, approvedBy, len(excludedIDs), len(reIncludedIDs))
	}
	return w.Deliverer.DeliverBatch(ctx, batchID, DeliveryOptions{})
}

// Cancel abandons a pending batch: every pending message is skipped and
// the batch completes without any delivery.
func (w *Workflow) Cancel(batchID uint, cancelledBy string) error {
	err := w.DB.Transaction(func(tx *gorm.DB) error {
		batch, err := w.requirePendingApproval(tx, batchID)
		if err != nil {
			return err
		}

		if err := tx.Model(&models.SendEmail{}).
			Where("batch_id = ? AND result = ?", batchID, models.ResultPending).
			Update("result", models.ResultSkipped).Error; err != nil {
			return err
		}

		var skipped int64
		if err := tx.Model(&models.SendEmail{}).
			Where("batch_id = ? AND result IN ?", batchID, []string{models.ResultSkipped, models.ResultSkippedDedupe}).
			Count(&skipped).Error; err != nil {
			return err
		}

		return tx.Model(batch).Updates(map[string]any{
			"status":        models.BatchCompleted,
			"completed_at":  time.Now(),
			"skipped_count": skipped,
		}).Error
	})
	if err != nil {
		return err
	}

	if w.Logger != nil {
		w.Logger.Printf("batch %d cancelled by %s", batchID, cancelledBy)
	}
	return nil
}

// TestSend delivers every pending message to the operator's own address
// instead of the real recipients. Test sends never touch the dedupe
// ledger or escalations.
func (w *Workflow) TestSend(ctx context.Context, batchID uint, testEmail string) (*DeliveryStats, error) {
	if testEmail == "" {
		return nil, &ValidationError{Message: "test send requires an operator email address"}
	}

	err := w.DB.Transaction(func(tx *gorm.DB) error {
		batch, err := w.requirePendingApproval(tx, batchID)
		if err != nil {
			return err
		}
		return tx.Model(batch).Updates(map[string]any{
			"status":       models.BatchApproved,
			"trigger_type": models.TriggerTest,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	return w.Deliverer.DeliverBatch(ctx, batchID, DeliveryOptions{TestMode: true, TestEmail: testEmail})
}

func (w *Workflow) requirePendingApproval(tx *gorm.DB, batchID uint) (*models.SendBatch, error) {
	var batch models.SendBatch
	if err := tx.First(&batch, batchID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &NotFoundError{Entity: "batch", ID: batchID}
		}
		return nil, err
	}
	if batch.Status != models.BatchPendingApproval {
		return nil, &InvalidStateError{Message: fmt.Sprintf("batch is already %s", batch.Status)}
	}
	return &batch, nil
}
