package models

import "gorm.io/gorm"

// GlobalSettings is a singleton row (ID=1) of operator-editable defaults.
type GlobalSettings struct {
	gorm.Model
	DefaultSenderName  string `json:"default_sender_name"`
	DefaultSenderEmail string `json:"default_sender_email"`
	GlobalCcEmails     string `json:"global_cc_emails"` // comma-separated
	Timezone           string `gorm:"default:'America/New_York'" json:"timezone"`

	EnableOpenTracking       bool `gorm:"default:false" json:"enable_open_tracking"`
	DefaultDedupeWindowDays  int  `gorm:"default:7" json:"default_dedupe_window_days"`
	DefaultEscalationThresh  int  `gorm:"default:3" json:"default_escalation_threshold"`
	DataFreshnessWarningDays int  `gorm:"default:7" json:"data_freshness_warning_days"`
}

// LoadSettings fetches the singleton settings row, creating it with
// defaults on first use.
func LoadSettings(db *gorm.DB) (*GlobalSettings, error) {
	var settings GlobalSettings
	settings.ID = 1
	if err := db.Where("id = ?", 1).FirstOrCreate(&settings).Error; err != nil {
		return nil, err
	}
	return &settings, nil
}
