package engine

import (
	"log"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/dlabonte15/investment-emailer/models"
)

func setupEngineDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Workstream{},
		&models.EmailTemplate{},
		&models.IndustryContact{},
		&models.SendBatch{},
		&models.SendEmail{},
		&models.DedupeLog{},
		&models.Escalation{},
		&models.GlobalSettings{},
	))
	return db
}

type fakeDataset struct {
	rows []models.InvestmentRecord
	err  error
}

func (f *fakeDataset) Snapshot() (*models.DatasetSnapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.rows == nil {
		return nil, nil
	}
	return &models.DatasetSnapshot{Rows: f.rows, ParsedAt: time.Now()}, nil
}

func testLogger() *log.Logger {
	return log.New(os.Stdout, "TEST: ", log.LstdFlags)
}

func seedTemplate(t *testing.T, db *gorm.DB) models.EmailTemplate {
	t.Helper()
	tpl := models.EmailTemplate{
		Name:      "status update",
		Subject:   "Update on {{investment_name}}",
		Body:      "Hello {{advisor}},\n\nStatus is {{investment_status}}.",
		Signature: "Regards,\nOperations",
	}
	require.NoError(t, db.Create(&tpl).Error)
	return tpl
}

func seedWorkstream(t *testing.T, db *gorm.DB, templateID uint) models.Workstream {
	t.Helper()
	ws := models.Workstream{
		Name:       "pending follow-up",
		Enabled:    true,
		TemplateID: templateID,
		TriggerLogic: models.TriggerLogic{
			Logic: "AND",
			Conditions: []models.TriggerCondition{
				{Field: "investment_status", Operator: models.OpEquals, Value: "Pending"},
			},
		},
		RecipientConfig: models.RecipientConfig{
			To: models.RecipientRuleList{{Source: models.SourceExcelColumn, Field: "advisor_email"}},
		},
		DedupeWindowDays:    7,
		EscalationThreshold: 3,
	}
	require.NoError(t, db.Create(&ws).Error)
	return ws
}

func sampleRows() []models.InvestmentRecord {
	return []models.InvestmentRecord{
		{
			"investment_id":     "INV-001",
			"account_name":      "Acme Capital",
			"investment_name":   "Fund III",
			"investment_status": "Pending",
			"advisor":           "Sam Rivera",
			"advisor_email":     "sam@example.com",
		},
		{
			"investment_id":     "INV-002",
			"account_name":      "Borealis LP",
			"investment_name":   "Fund IV",
			"investment_status": "Pending",
			"advisor":           "Alex Kim",
			"advisor_email":     "alex@example.com",
		},
		{
			"investment_id":     "INV-003",
			"account_name":      "Cobalt Trust",
			"investment_name":   "Fund V",
			"investment_status": "Closed",
			"advisor_email":     "casey@example.com",
		},
	}
}

func TestEngineRun_GeneratesBatch(t *testing.T) {
	db := setupEngineDB(t)
	tpl := seedTemplate(t, db)
	ws := seedWorkstream(t, db, tpl.ID)

	eng := NewEngine(db, &fakeDataset{rows: sampleRows()}, testLogger())
	result, err := eng.Run(ws.ID, "tester", models.TriggerManual)
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalMatched)
	assert.Equal(t, 2, result.TotalEmails)
	assert.Equal(t, 0, result.SkippedDedupe)

	var batch models.SendBatch
	require.NoError(t, db.Preload("Emails").First(&batch, result.BatchID).Error)
	assert.Equal(t, models.BatchPendingApproval, batch.Status)
	assert.Equal(t, models.TriggerManual, batch.TriggerType)
	assert.Equal(t, "tester", batch.TriggeredBy)
	assert.Equal(t, 2, batch.TotalCount)
	assert.NotEmpty(t, batch.Reference)
	require.Len(t, batch.Emails, 2)

	first := batch.Emails[0]
	assert.Equal(t, "INV-001", first.InvestmentID)
	assert.Equal(t, "sam@example.com", first.ToEmail)
	assert.Equal(t, "Sam Rivera", first.ToName)
	assert.Equal(t, "Update on Fund III", first.Subject)
	assert.Contains(t, first.Body, "Hello Sam Rivera,")
	assert.Contains(t, first.Body, "Status is Pending.")
	assert.Contains(t, first.Body, "Regards,\nOperations")
	assert.Equal(t, models.ResultPending, first.Result)

	var updated models.Workstream
	require.NoError(t, db.First(&updated, ws.ID).Error)
	assert.NotNil(t, updated.LastRunAt)
}

func TestEngineRun_NoData(t *testing.T) {
	db := setupEngineDB(t)
	tpl := seedTemplate(t, db)
	ws := seedWorkstream(t, db, tpl.ID)

	eng := NewEngine(db, &fakeDataset{}, testLogger())
	_, err := eng.Run(ws.ID, "tester", models.TriggerManual)
	var noData *NoDataError
	require.ErrorAs(t, err, &noData)
}

func TestEngineRun_DisabledWorkstream(t *testing.T) {
	db := setupEngineDB(t)
	tpl := seedTemplate(t, db)
	ws := seedWorkstream(t, db, tpl.ID)
	require.NoError(t, db.Model(&ws).Update("enabled", false).Error)

	eng := NewEngine(db, &fakeDataset{rows: sampleRows()}, testLogger())
	_, err := eng.Run(ws.ID, "tester", models.TriggerManual)
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestEngineRun_UnknownWorkstream(t *testing.T) {
	db := setupEngineDB(t)
	eng := NewEngine(db, &fakeDataset{rows: sampleRows()}, testLogger())
	_, err := eng.Run(9999, "tester", models.TriggerManual)
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestEngineRun_InvalidConfig(t *testing.T) {
	db := setupEngineDB(t)
	tpl := seedTemplate(t, db)
	ws := seedWorkstream(t, db, tpl.ID)
	// Struct-style Updates so gorm applies the JSON serializer; map-style
	// Update bypasses serializers and fails at the driver.
	require.NoError(t, db.Model(&ws).Updates(models.Workstream{TriggerLogic: models.TriggerLogic{Logic: "XOR"}}).Error)

	eng := NewEngine(db, &fakeDataset{rows: sampleRows()}, testLogger())
	_, err := eng.Run(ws.ID, "tester", models.TriggerManual)
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestEngineRun_NoMatchesWarns(t *testing.T) {
	db := setupEngineDB(t)
	tpl := seedTemplate(t, db)
	ws := seedWorkstream(t, db, tpl.ID)

	rows := []models.InvestmentRecord{{"investment_id": "INV-009", "investment_status": "Closed"}}
	eng := NewEngine(db, &fakeDataset{rows: rows}, testLogger())
	result, err := eng.Run(ws.ID, "tester", models.TriggerManual)
	require.NoError(t, err)

	assert.Equal(t, 0, result.TotalMatched)
	assert.Contains(t, result.Warnings, "No investments matched the trigger conditions")
}

func TestEngineRun_Dedupe(t *testing.T) {
	db := setupEngineDB(t)
	tpl := seedTemplate(t, db)
	ws := seedWorkstream(t, db, tpl.ID)
	eng := NewEngine(db, &fakeDataset{rows: sampleRows()}, testLogger())

	// INV-001 was emailed to sam@ recently, INV-002 outside the window.
	require.NoError(t, db.Create(&models.DedupeLog{
		WorkstreamID:   ws.ID,
		InvestmentID:   "INV-001",
		RecipientEmail: "sam@example.com",
		SentAt:         time.Now().Add(-2 * 24 * time.Hour),
	}).Error)
	require.NoError(t, db.Create(&models.DedupeLog{
		WorkstreamID:   ws.ID,
		InvestmentID:   "INV-002",
		RecipientEmail: "alex@example.com",
		SentAt:         time.Now().Add(-8 * 24 * time.Hour),
	}).Error)

	result, err := eng.Run(ws.ID, "tester", models.TriggerManual)
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalEmails)
	assert.Equal(t, 1, result.SkippedDedupe)
	assert.Contains(t, result.Warnings, "1 email(s) skipped due to deduplication")

	var emails []models.SendEmail
	require.NoError(t, db.Where("batch_id = ?", result.BatchID).Order("id asc").Find(&emails).Error)
	require.Len(t, emails, 2)
	assert.Equal(t, models.ResultSkippedDedupe, emails[0].Result)
	assert.Equal(t, models.ResultPending, emails[1].Result)

	var batch models.SendBatch
	require.NoError(t, db.First(&batch, result.BatchID).Error)
	assert.Equal(t, 1, batch.TotalCount)
	assert.Equal(t, 1, batch.SkippedCount)
}

// A ledger entry exactly at now minus the window does not suppress;
// only entries strictly newer than the cutoff do.
func TestLoadDedupeSet_WindowBoundary(t *testing.T) {
	db := setupEngineDB(t)
	tpl := seedTemplate(t, db)
	ws := seedWorkstream(t, db, tpl.ID)
	eng := NewEngine(db, &fakeDataset{rows: sampleRows()}, testLogger())

	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	cutoff := now.Add(-time.Duration(ws.DedupeWindowDays) * 24 * time.Hour)

	require.NoError(t, db.Create(&models.DedupeLog{
		WorkstreamID:   ws.ID,
		InvestmentID:   "INV-001",
		RecipientEmail: "sam@example.com",
		SentAt:         cutoff,
	}).Error)
	require.NoError(t, db.Create(&models.DedupeLog{
		WorkstreamID:   ws.ID,
		InvestmentID:   "INV-002",
		RecipientEmail: "alex@example.com",
		SentAt:         cutoff.Add(time.Second),
	}).Error)

	set, err := eng.loadDedupeSet(&ws, now)
	require.NoError(t, err)

	assert.False(t, set[dedupeKey("INV-001", "sam@example.com")])
	assert.True(t, set[dedupeKey("INV-002", "alex@example.com")])
}

// Generation is read-only against the ledger, so re-running before any
// delivery yields the same split.
func TestEngineRun_RepeatableBeforeDelivery(t *testing.T) {
	db := setupEngineDB(t)
	tpl := seedTemplate(t, db)
	ws := seedWorkstream(t, db, tpl.ID)
	eng := NewEngine(db, &fakeDataset{rows: sampleRows()}, testLogger())

	first, err := eng.Run(ws.ID, "tester", models.TriggerManual)
	require.NoError(t, err)
	second, err := eng.Run(ws.ID, "tester", models.TriggerManual)
	require.NoError(t, err)

	assert.Equal(t, first.TotalEmails, second.TotalEmails)
	assert.Equal(t, first.SkippedDedupe, second.SkippedDedupe)
	assert.NotEqual(t, first.BatchID, second.BatchID)
}

func TestEngineRun_SubTemplateAndContact(t *testing.T) {
	db := setupEngineDB(t)
	tpl := seedTemplate(t, db)

	altTpl := models.EmailTemplate{Name: "escalated", Subject: "URGENT: {{investment_name}}", Body: "Escalated."}
	require.NoError(t, db.Create(&altTpl).Error)

	require.NoError(t, db.Create(&models.IndustryContact{
		PrimaryIndustry: "healthcare",
		SelName:         "Jordan Lee",
		SelEmail:        "jordan@example.com",
	}).Error)

	ws := models.Workstream{
		Name:       "escalation notices",
		Enabled:    true,
		TemplateID: tpl.ID,
		TriggerLogic: models.TriggerLogic{
			Logic: "AND",
		},
		RecipientConfig: models.RecipientConfig{
			To: models.RecipientRuleList{{Source: models.SourceContactMapping, Field: "sel_email"}},
		},
		SubTemplateRules: []models.SubTemplateRule{
			{Field: "investment_status", Value: "Escalated", TemplateID: altTpl.ID},
		},
		DedupeWindowDays:    7,
		EscalationThreshold: 3,
	}
	require.NoError(t, db.Create(&ws).Error)

	rows := []models.InvestmentRecord{
		{
			"investment_id":     "INV-010",
			"investment_name":   "Fund X",
			"investment_status": "Escalated",
			"primary_industry":  "Healthcare",
		},
		{
			"investment_id":     "INV-011",
			"investment_name":   "Fund Y",
			"investment_status": "Open",
			"primary_industry":  "Retail",
		},
	}

	eng := NewEngine(db, &fakeDataset{rows: rows}, testLogger())
	result, err := eng.Run(ws.ID, "tester", models.TriggerManual)
	require.NoError(t, err)
	require.Len(t, result.Emails, 2)

	// Sub-template swap plus contact-mapped recipient.
	assert.Equal(t, "URGENT: Fund X", result.Emails[0].Subject)
	assert.Equal(t, "jordan@example.com", result.Emails[0].ToEmail)
	assert.Equal(t, "Jordan Lee", result.Emails[0].ToName)

	// Unmapped industry falls back to the default template and warns.
	assert.Equal(t, "Update on Fund Y", result.Emails[1].Subject)
	assert.Empty(t, result.Emails[1].ToEmail)
	assert.Contains(t, result.Emails[1].Warnings, "Unmapped industry: Retail")
}
