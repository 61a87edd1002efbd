package infrastructure

import (
	"errors"
	"fmt"
	"time"

	"github.com/yourusername/suno-sync-go/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SQLiteAttemptRepository implements domain.AttemptRepository using SQLite.
// It holds the download ledger: history rows plus per-clip failure counts.
// The ledger only gates per-cycle eligibility and feeds reporting; the
// missing/extra computation never reads it.
type SQLiteAttemptRepository struct {
	db *gorm.DB
}

// NewSQLiteAttemptRepository opens (and migrates) the ledger database.
func NewSQLiteAttemptRepository(dbPath string) (*SQLiteAttemptRepository, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&domain.DownloadRecord{}, &domain.ClipFailure{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteAttemptRepository{db: db}, nil
}

// FailureCount returns the consecutive failure count for a clip, zero when
// the clip has no failure row.
func (r *SQLiteAttemptRepository) FailureCount(clipID string) (int, error) {
	var failure domain.ClipFailure
	err := r.db.First(&failure, "clip_id = ?", clipID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return failure.Count, nil
}

// RecordFailure increments a clip's failure count.
func (r *SQLiteAttemptRepository) RecordFailure(clipID, reason string) error {
	var failure domain.ClipFailure
	err := r.db.First(&failure, "clip_id = ?", clipID).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		failure = domain.ClipFailure{ClipID: clipID}
	}

	failure.Count++
	failure.LastError = reason
	failure.UpdatedAt = time.Now()
	return r.db.Save(&failure).Error
}

// ClearFailures removes a clip's failure row after a successful download.
func (r *SQLiteAttemptRepository) ClearFailures(clipID string) error {
	return r.db.Delete(&domain.ClipFailure{}, "clip_id = ?", clipID).Error
}

// RecordDownload appends one history row.
func (r *SQLiteAttemptRepository) RecordDownload(rec *domain.DownloadRecord) error {
	return r.db.Create(rec).Error
}

// History returns the most recent download records, newest first.
func (r *SQLiteAttemptRepository) History(limit int) ([]*domain.DownloadRecord, error) {
	var records []*domain.DownloadRecord
	query := r.db.Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&records).Error
	return records, err
}

// Stats summarizes the ledger.
func (r *SQLiteAttemptRepository) Stats() (*domain.AttemptStats, error) {
	stats := &domain.AttemptStats{}

	if err := r.db.Model(&domain.DownloadRecord{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := r.db.Model(&domain.DownloadRecord{}).
		Where("outcome = ?", domain.OutcomeCompleted).
		Count(&stats.Completed).Error; err != nil {
		return nil, err
	}
	if err := r.db.Model(&domain.DownloadRecord{}).
		Where("outcome = ?", domain.OutcomeFailed).
		Count(&stats.Failed).Error; err != nil {
		return nil, err
	}
	if err := r.db.Model(&domain.ClipFailure{}).Count(&stats.Failing).Error; err != nil {
		return nil, err
	}

	return stats, nil
}

// Close closes the database connection.
func (r *SQLiteAttemptRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
