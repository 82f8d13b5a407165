package engine

import (
	"context"
	"log"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dlabonte15/investment-emailer/models"
)

// Mailer is the external mail-delivery collaborator. A send either
// succeeds or returns a structured failure reason; delivery is not
// guaranteed at-least-once (a crash between API accept and the local
// success write can leave a sent message marked pending).
type Mailer interface {
	Send(ctx context.Context, msg OutboundMessage) error
}

// OutboundMessage is what the mail API accepts.
type OutboundMessage struct {
	Subject  string
	HTMLBody string
	To       []Recipient
	Cc       []Recipient
}

// StatusChangedPolicy decides whether an investment's status counts as
// changed between escalation bumps. Business policy, not core logic.
type StatusChangedPolicy func(previous, current string) bool

// DeliveryStats aggregates one delivery pass.
type DeliveryStats struct {
	SentCount   int `json:"sent_count"`
	FailedCount int `json:"failed_count"`
}

// DeliveryOptions control test mode.
type DeliveryOptions struct {
	TestMode  bool
	TestEmail string
}

// Deliverer sends a batch's pending messages sequentially through the
// mail API, persisting per-message results and batch counters as it
// goes so a crash mid-batch leaves accurate partial counts.
type Deliverer struct {
	DB     *gorm.DB
	Mailer Mailer
	Logger *log.Logger

	// SendDelay spaces consecutive sends for the mail API's rate limits.
	SendDelay time.Duration
	// SendTimeout bounds each individual mail API call.
	SendTimeout time.Duration
	// TrackingURL builds the open-tracking pixel URL for a message.
	// Nil disables pixel injection regardless of settings.
	TrackingURL func(emailID uint) string
	// StatusChanged gates escalation cycles; nil means strict inequality.
	StatusChanged StatusChangedPolicy
}

func NewDeliverer(db *gorm.DB, mailer Mailer, logger *log.Logger) *Deliverer {
	return &Deliverer{
		DB:          db,
		Mailer:      mailer,
		Logger:      logger,
		SendDelay:   200 * time.Millisecond,
		SendTimeout: 30 * time.Second,
	}
}

// DeliverBatch processes every pending message of an approved batch in
// stable id order. One message's failure never blocks its siblings.
func (d *Deliverer) DeliverBatch(ctx context.Context, batchID uint, opts DeliveryOptions) (*DeliveryStats, error) {
	var batch models.SendBatch
	if err := d.DB.First(&batch, batchID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &NotFoundError{Entity: "batch", ID: batchID}
		}
		return nil, err
	}

	var workstream models.Workstream
	if err := d.DB.First(&workstream, batch.WorkstreamID).Error; err != nil {
		return nil, err
	}

	var pending []models.SendEmail
	if err := d.DB.Where("batch_id = ? AND result = ?", batchID, models.ResultPending).
		Order("id asc").Find(&pending).Error; err != nil {
		return nil, err
	}

	settings, err := models.LoadSettings(d.DB)
	if err != nil {
		return nil, err
	}

	if len(pending) == 0 {
		if err := d.completeBatch(&batch); err != nil {
			return nil, err
		}
		return &DeliveryStats{SentCount: batch.SentCount, FailedCount: batch.FailedCount}, nil
	}

	if err := d.DB.Model(&batch).Update("status", models.BatchSending).Error; err != nil {
		return nil, err
	}

	sentCount := batch.SentCount
	failedCount := batch.FailedCount

	for i := range pending {
		email := &pending[i]
		msg := d.buildMessage(email, settings, opts)

		sendCtx, cancel := context.WithTimeout(ctx, d.SendTimeout)
		sendErr := d.Mailer.Send(sendCtx, msg)
		cancel()

		if sendErr == nil {
			sentCount++
			if err := d.markSent(email, &batch, opts); err != nil {
				return nil, err
			}
		} else {
			failedCount++
			if err := d.markFailed(email, sendErr, opts); err != nil {
				return nil, err
			}
			logrus.WithFields(logrus.Fields{
				"batch_id": batch.ID,
				"email_id": email.ID,
				"to":       email.ToEmail,
			}).Warnf("send failed: %v", sendErr)
		}

		// Running counters are persisted after every message so a crash
		// mid-batch never leaves stale counts behind.
		if err := d.DB.Model(&batch).Updates(map[string]any{
			"sent_count":   sentCount,
			"failed_count": failedCount,
		}).Error; err != nil {
			return nil, err
		}

		if i < len(pending)-1 && d.SendDelay > 0 {
			time.Sleep(d.SendDelay)
		}
	}

	batch.SentCount = sentCount
	batch.FailedCount = failedCount
	if err := d.completeBatch(&batch); err != nil {
		return nil, err
	}

	if d.Logger != nil {
		d.Logger.Printf("batch %d completed: %d sent, %d failed", batch.ID, sentCount, failedCount)
	}
	return &DeliveryStats{SentCount: sentCount, FailedCount: failedCount}, nil
}

// Retry resets a batch's failed messages to pending and re-runs
// delivery over them; it is not a separate send path.
func (d *Deliverer) Retry(ctx context.Context, batchID uint) (*DeliveryStats, error) {
	var batch models.SendBatch
	if err := d.DB.First(&batch, batchID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &NotFoundError{Entity: "batch", ID: batchID}
		}
		return nil, err
	}
	if batch.FailedCount == 0 {
		return nil, &InvalidStateError{Message: "no failed emails to retry"}
	}

	err := d.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.SendEmail{}).
			Where("batch_id = ? AND result = ?", batchID, models.ResultFailed).
			Updates(map[string]any{"result": models.ResultPending, "error_message": ""}).Error; err != nil {
			return err
		}
		return tx.Model(&batch).Updates(map[string]any{
			"status":       models.BatchApproved,
			"failed_count": 0,
			"completed_at": nil,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	return d.DeliverBatch(ctx, batchID, DeliveryOptions{})
}

func (d *Deliverer) buildMessage(email *models.SendEmail, settings *models.GlobalSettings, opts DeliveryOptions) OutboundMessage {
	htmlBody := WrapBodyHTML(email.Body)
	subject := email.Subject

	var to, cc []Recipient
	if opts.TestMode && opts.TestEmail != "" {
		subject = "[TEST] " + subject
		htmlBody = AddTestBanner(htmlBody, email.ToEmail, email.CcEmails)
		to = []Recipient{{Email: opts.TestEmail}}
	} else {
		to = []Recipient{{Email: email.ToEmail, Name: email.ToName}}
		for _, addr := range splitEmails(email.CcEmails) {
			cc = append(cc, Recipient{Email: addr})
		}
	}

	if settings.EnableOpenTracking && !opts.TestMode && d.TrackingURL != nil {
		htmlBody = AddTrackingPixel(htmlBody, d.TrackingURL(email.ID))
	}

	return OutboundMessage{Subject: subject, HTMLBody: htmlBody, To: to, Cc: cc}
}

// markSent records a successful delivery: message result, the dedupe
// ledger upsert and the escalation bump. Test sends touch neither the
// ledger nor escalations.
func (d *Deliverer) markSent(email *models.SendEmail, batch *models.SendBatch, opts DeliveryOptions) error {
	now := time.Now()
	return d.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(email).Updates(map[string]any{
			"result":  models.ResultSent,
			"is_test": opts.TestMode,
			"sent_at": now,
		}).Error; err != nil {
			return err
		}
		if opts.TestMode {
			return nil
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "workstream_id"}, {Name: "investment_id"}, {Name: "recipient_email"}},
			DoUpdates: clause.Assignments(map[string]any{"sent_at": now}),
		}).Create(&models.DedupeLog{
			WorkstreamID:   batch.WorkstreamID,
			InvestmentID:   email.InvestmentID,
			RecipientEmail: email.ToEmail,
			SentAt:         now,
		}).Error; err != nil {
			return err
		}
		return d.recordEscalation(tx, batch.WorkstreamID, email, now)
	})
}

func (d *Deliverer) markFailed(email *models.SendEmail, sendErr error, opts DeliveryOptions) error {
	reason := (&DeliveryError{Reason: sendErr.Error()}).Error()
	return d.DB.Model(email).Updates(map[string]any{
		"result":        models.ResultFailed,
		"error_message": reason,
		"is_test":       opts.TestMode,
	}).Error
}

func (d *Deliverer) completeBatch(batch *models.SendBatch) error {
	return d.DB.Model(batch).Updates(map[string]any{
		"status":       models.BatchCompleted,
		"completed_at": time.Now(),
		"sent_count":   batch.SentCount,
		"failed_count": batch.FailedCount,
	}).Error
}
