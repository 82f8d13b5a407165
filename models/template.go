package models

import "gorm.io/gorm"

// TableColumn is one column of a template's tabular block: a header
// label and the placeholder that fills its cell.
type TableColumn struct {
	Header      string `json:"header"`
	Placeholder string `json:"placeholder"`
}

// EmailTemplate holds the subject/body/signature text with {{field}}
// placeholders. Bodies may contain a {{table}} token that expands the
// TableColumns definition into a tabular block.
type EmailTemplate struct {
	gorm.Model
	Name      string `gorm:"not null" json:"name"`
	Subject   string `gorm:"not null" json:"subject"`
	Body      string `gorm:"type:text" json:"body"`
	Signature string `gorm:"type:text" json:"signature"`

	TableColumns []TableColumn `gorm:"type:jsonb;serializer:json" json:"table_columns"`
}
