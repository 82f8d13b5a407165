package engine

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dlabonte15/investment-emailer/models"
)

// DatasetProvider supplies the current investment snapshot. A nil
// snapshot means no data has been loaded yet.
type DatasetProvider interface {
	Snapshot() (*models.DatasetSnapshot, error)
}

// GeneratedEmail is one draft produced by a run, before persistence.
type GeneratedEmail struct {
	InvestmentID     string   `json:"investment_id"`
	AccountName      string   `json:"account_name"`
	InvestmentName   string   `json:"investment_name"`
	InvestmentStatus string   `json:"investment_status"`
	ToEmail          string   `json:"to_email"`
	ToName           string   `json:"to_name"`
	CcEmails         string   `json:"cc_emails"`
	Subject          string   `json:"subject"`
	Body             string   `json:"body"`
	Warnings         []string `json:"warnings"`
	IsDuplicate      bool     `json:"is_duplicate"`
}

// TriggerResult summarizes one workstream run.
type TriggerResult struct {
	BatchID        uint             `json:"batch_id"`
	WorkstreamID   uint             `json:"workstream_id"`
	WorkstreamName string           `json:"workstream_name"`
	Emails         []GeneratedEmail `json:"emails"`
	TotalMatched   int              `json:"total_matched"`
	TotalEmails    int              `json:"total_emails"`
	SkippedDedupe  int              `json:"skipped_dedupe"`
	Warnings       []string         `json:"warnings"`
}

// Engine generates batches for workstreams. Generation performs no
// network I/O: it reads the dataset, rules and the dedupe ledger, and
// writes the batch with its messages in one transaction.
type Engine struct {
	DB     *gorm.DB
	Data   DatasetProvider
	Logger *log.Logger

	locks sync.Map // workstream ID -> *sync.Mutex
}

func NewEngine(db *gorm.DB, data DatasetProvider, logger *log.Logger) *Engine {
	return &Engine{DB: db, Data: data, Logger: logger}
}

// lockWorkstream serializes concurrent runs of the same workstream so
// two triggers cannot double-count the same dedupe window. Independent
// workstreams generate concurrently.
func (e *Engine) lockWorkstream(id uint) func() {
	mu, _ := e.locks.LoadOrStore(id, &sync.Mutex{})
	mutex := mu.(*sync.Mutex)
	mutex.Lock()
	return mutex.Unlock
}

// Run evaluates one workstream against the current dataset and persists
// a pending_approval batch. Re-running with the same inputs before any
// delivery yields the same ready/deduped split.
func (e *Engine) Run(workstreamID uint, triggeredBy, triggerType string) (*TriggerResult, error) {
	unlock := e.lockWorkstream(workstreamID)
	defer unlock()

	var workstream models.Workstream
	if err := e.DB.Preload("Template").First(&workstream, workstreamID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &NotFoundError{Entity: "workstream", ID: workstreamID}
		}
		return nil, err
	}
	if !workstream.Enabled {
		return nil, &ValidationError{Message: "workstream is disabled"}
	}
	if err := workstream.ValidateConfig(); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	snapshot, err := e.Data.Snapshot()
	if err != nil {
		return nil, err
	}
	if snapshot == nil || len(snapshot.Rows) == 0 {
		return nil, &NoDataError{}
	}

	contactMap, err := e.loadContacts()
	if err != nil {
		return nil, err
	}

	settings, err := models.LoadSettings(e.DB)
	if err != nil {
		return nil, err
	}

	subTemplates, err := e.loadSubTemplates(workstream.SubTemplateRules)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	dedupeSet, err := e.loadDedupeSet(&workstream, now)
	if err != nil {
		return nil, err
	}

	var matched []models.InvestmentRecord
	for _, row := range snapshot.Rows {
		if MatchesTrigger(row, workstream.TriggerLogic, now) {
			matched = append(matched, row)
		}
	}

	emails := make([]GeneratedEmail, 0, len(matched))
	skippedDedupe := 0
	for _, row := range matched {
		email := e.generateEmail(&workstream, row, contactMap, subTemplates, settings, dedupeSet)
		if email.IsDuplicate {
			skippedDedupe++
		}
		emails = append(emails, email)
	}

	pendingCount := len(emails) - skippedDedupe

	batch := models.SendBatch{
		Reference:    uuid.New().String(),
		WorkstreamID: workstream.ID,
		TriggeredBy:  triggeredBy,
		TriggerType:  triggerType,
		Status:       models.BatchPendingApproval,
		TotalCount:   pendingCount,
		SkippedCount: skippedDedupe,
	}

	// Batch, messages and the last-run stamp commit atomically; a
	// half-built batch must never be observable.
	err = e.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&batch).Error; err != nil {
			return err
		}
		for i := range emails {
			record := models.SendEmail{
				BatchID:          batch.ID,
				InvestmentID:     emails[i].InvestmentID,
				AccountName:      emails[i].AccountName,
				InvestmentName:   emails[i].InvestmentName,
				InvestmentStatus: emails[i].InvestmentStatus,
				ToEmail:          emails[i].ToEmail,
				ToName:           emails[i].ToName,
				CcEmails:         emails[i].CcEmails,
				Subject:          emails[i].Subject,
				Body:             emails[i].Body,
				Result:           models.ResultPending,
				Warnings:         emails[i].Warnings,
			}
			if emails[i].IsDuplicate {
				record.Result = models.ResultSkippedDedupe
			}
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
		}
		return tx.Model(&models.Workstream{}).
			Where("id = ?", workstream.ID).
			Update("last_run_at", now).Error
	})
	if err != nil {
		return nil, err
	}

	result := &TriggerResult{
		BatchID:        batch.ID,
		WorkstreamID:   workstream.ID,
		WorkstreamName: workstream.Name,
		Emails:         emails,
		TotalMatched:   len(matched),
		TotalEmails:    len(emails),
		SkippedDedupe:  skippedDedupe,
	}
	if len(matched) == 0 {
		result.Warnings = append(result.Warnings, "No investments matched the trigger conditions")
	}
	if skippedDedupe > 0 {
		result.Warnings = append(result.Warnings, fmt.Sprintf("%d email(s) skipped due to deduplication", skippedDedupe))
	}

	if e.Logger != nil {
		e.Logger.Printf("workstream %d (%s): %d matched, %d pending, %d deduped",
			workstream.ID, workstream.Name, len(matched), pendingCount, skippedDedupe)
	}
	return result, nil
}

func (e *Engine) generateEmail(
	workstream *models.Workstream,
	row models.InvestmentRecord,
	contactMap map[string]*models.IndustryContact,
	subTemplates map[uint]models.EmailTemplate,
	settings *models.GlobalSettings,
	dedupeSet map[string]bool,
) GeneratedEmail {
	investmentID := row.Field("investment_id")
	if investmentID == "" {
		investmentID = "UNKNOWN"
	}
	industry := row.Field("primary_industry")

	var contact *models.IndustryContact
	if industry != "" {
		contact = contactMap[models.NormalizeIndustry(industry)]
	}

	to, cc, warnings := ResolveRecipients(workstream.RecipientConfig, row, contact, settings.GlobalCcEmails)
	if industry != "" && contact == nil {
		warnings = append(warnings, "Unmapped industry: "+industry)
	}

	data := BuildTemplateData(row, contact, settings.DefaultSenderName)
	tpl := SelectTemplate(workstream.Template, workstream.SubTemplateRules, subTemplates, row)
	subject, body, renderWarnings := RenderEmail(tpl, data)
	warnings = append(warnings, renderWarnings...)

	// Only the first resolved To address is delivered to and keyed for
	// dedupe; additional To rules still resolve so their warnings fire.
	var primary Recipient
	if len(to) > 0 {
		primary = to[0]
	}

	isDuplicate := dedupeSet[dedupeKey(investmentID, primary.Email)]
	if isDuplicate {
		warnings = append(warnings, "Duplicate: this recipient was already emailed about this investment within the dedupe window")
	}

	ccEmails := make([]string, len(cc))
	for i, r := range cc {
		ccEmails[i] = r.Email
	}

	return GeneratedEmail{
		InvestmentID:     investmentID,
		AccountName:      row.Field("account_name"),
		InvestmentName:   row.Field("investment_name"),
		InvestmentStatus: row.Field("investment_status"),
		ToEmail:          primary.Email,
		ToName:           primary.Name,
		CcEmails:         strings.Join(ccEmails, ", "),
		Subject:          subject,
		Body:             body,
		Warnings:         warnings,
		IsDuplicate:      isDuplicate,
	}
}

func (e *Engine) loadContacts() (map[string]*models.IndustryContact, error) {
	var contacts []models.IndustryContact
	if err := e.DB.Find(&contacts).Error; err != nil {
		return nil, err
	}
	byIndustry := make(map[string]*models.IndustryContact, len(contacts))
	for i := range contacts {
		byIndustry[models.NormalizeIndustry(contacts[i].PrimaryIndustry)] = &contacts[i]
	}
	return byIndustry, nil
}

func (e *Engine) loadSubTemplates(rules []models.SubTemplateRule) (map[uint]models.EmailTemplate, error) {
	if len(rules) == 0 {
		return nil, nil
	}
	ids := make([]uint, 0, len(rules))
	for _, rule := range rules {
		ids = append(ids, rule.TemplateID)
	}
	var templates []models.EmailTemplate
	if err := e.DB.Where("id IN ?", ids).Find(&templates).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]models.EmailTemplate, len(templates))
	for _, tpl := range templates {
		byID[tpl.ID] = tpl
	}
	return byID, nil
}

// loadDedupeSet reads ledger entries strictly newer than the window
// cutoff; an entry exactly at now-window does not suppress.
func (e *Engine) loadDedupeSet(workstream *models.Workstream, now time.Time) (map[string]bool, error) {
	cutoff := now.Add(-time.Duration(workstream.DedupeWindowDays) * 24 * time.Hour)
	var logs []models.DedupeLog
	if err := e.DB.Where("workstream_id = ? AND sent_at > ?", workstream.ID, cutoff).Find(&logs).Error; err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(logs))
	for _, entry := range logs {
		set[dedupeKey(entry.InvestmentID, entry.RecipientEmail)] = true
	}
	return set, nil
}

func dedupeKey(investmentID, recipientEmail string) string {
	return investmentID + "::" + recipientEmail
}

