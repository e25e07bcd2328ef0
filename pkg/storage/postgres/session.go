package postgres

import (
	"context"
	"fmt"
	"time"

	"priceledger/internal/server"

	"gorm.io/gorm/clause"
)

// RecordSession archives a finished session. It satisfies server.Recorder.
func (p *PostgresClient) RecordSession(ctx context.Context, s server.Summary) error {
	return p.InsertSession(ctx, ToSessionRecord(s))
}

func (p *PostgresClient) InsertSession(ctx context.Context, record *SessionRecord) error {
	tx := p.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoNothing: true,
	}).Create(record)

	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return fmt.Errorf("duplicate session skipped: session_id=%s", record.SessionID)
	}

	return nil
}

func (p *PostgresClient) GetSession(ctx context.Context, sessionID string) (*SessionRecord, error) {
	var record SessionRecord
	err := p.DB.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&record).Error

	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ListSessions returns sessions started at or after since, oldest first.
func (p *PostgresClient) ListSessions(ctx context.Context, since time.Time) ([]SessionRecord, error) {
	var records []SessionRecord
	err := p.DB.WithContext(ctx).
		Where("started_at >= ?", since).
		Order("started_at ASC").
		Find(&records).Error

	if err != nil {
		return nil, err
	}
	return records, nil
}

// DeleteOldSessions removes sessions that ended before the cutoff and reports how many.
func (p *PostgresClient) DeleteOldSessions(ctx context.Context, before time.Time) (int64, error) {
	tx := p.DB.WithContext(ctx).
		Where("ended_at < ?", before).
		Delete(&SessionRecord{})

	return tx.RowsAffected, tx.Error
}

// ToSessionRecord converts a session summary into a SessionRecord for DB insertion.
func ToSessionRecord(s server.Summary) *SessionRecord {
	return &SessionRecord{
		SessionID: s.ID,
		Transport: s.Transport,
		Remote:    s.Remote,
		Reason:    s.Reason,
		StartedAt: s.StartedAt,
		EndedAt:   s.EndedAt,
		Inserts:   int64(s.Inserts),
		Queries:   int64(s.Queries),
		Entries:   int64(s.Entries),
	}
}
