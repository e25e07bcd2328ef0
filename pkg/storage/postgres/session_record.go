package postgres

import "time"

// SessionRecord is the archived summary of one finished ledger session.
// Prices themselves are never stored.
type SessionRecord struct {
	ID uint `gorm:"primaryKey"`

	SessionID string `gorm:"type:varchar(36);not null;uniqueIndex:idx_ledger_session_session_id"`
	Transport string `gorm:"type:varchar(8);not null"`
	Remote    string `gorm:"type:text;not null"`
	Reason    string `gorm:"type:varchar(16);not null;index:idx_ledger_session_reason"`

	StartedAt time.Time `gorm:"not null;index:idx_ledger_session_started_at"`
	EndedAt   time.Time `gorm:"not null"`

	Inserts int64 `gorm:"not null"`
	Queries int64 `gorm:"not null"`
	Entries int64 `gorm:"not null"`

	RecordedAt time.Time `gorm:"autoCreateTime"`
}

// TableName overrides the default table name for GORM.
func (SessionRecord) TableName() string {
	return "ledger_session"
}
