package usage

import (
	"context"
	"fmt"
	"time"

	"artgen-app/internal/domain/billing"
	"artgen-app/internal/domain/generations"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Recorder is the append-only accounting log: one row per delivered
// generation, one row per payment event. Rows are never updated or deleted.
type Recorder struct {
	db  *gorm.DB
	log *logrus.Logger
}

func NewRecorder(db *gorm.DB, log *logrus.Logger) *Recorder {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Recorder{db: db, log: log}
}

// RecordGeneration inserts one generation record. The caller already holds
// the generated media, so a storage failure here must not take the result
// away from the user; it is returned for the caller to surface to operators.
func (r *Recorder) RecordGeneration(ctx context.Context, rec *generations.Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Kind == "" {
		rec.Kind = generations.KindImage
	}
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("record generation for user %d: %w", rec.UserID, err)
	}
	return nil
}

// RecordPayment inserts one payment row for a subscription or credit event.
func (r *Recorder) RecordPayment(ctx context.Context, userID uint, amountUSD float64, kind, status string, stripeSessionID *string) error {
	payment := billing.Payment{
		UserID:          userID,
		AmountUSD:       amountUSD,
		Kind:            kind,
		Status:          status,
		StripeSessionID: stripeSessionID,
	}
	if err := r.db.WithContext(ctx).Create(&payment).Error; err != nil {
		return fmt.Errorf("record %s payment for user %d: %w", kind, userID, err)
	}
	return nil
}

type DailyCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// DailyCounts groups a user's generations by calendar date, ascending.
func (r *Recorder) DailyCounts(ctx context.Context, userID uint, since time.Time) ([]DailyCount, error) {
	var counts []DailyCount
	err := r.db.WithContext(ctx).Model(&generations.Record{}).
		Select("date(created_at) AS date, COUNT(*) AS count").
		Where("user_id = ? AND created_at >= ?", userID, since).
		Group("date(created_at)").
		Order("date ASC").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("daily counts for user %d: %w", userID, err)
	}
	return counts, nil
}

type keyCount struct {
	Key   string
	Count int64
}

// StyleDistribution counts the user's generations per style tag.
func (r *Recorder) StyleDistribution(ctx context.Context, userID uint) (map[string]int64, error) {
	var rows []keyCount
	err := r.db.WithContext(ctx).Model(&generations.Record{}).
		Select("style AS key, COUNT(*) AS count").
		Where("user_id = ?", userID).
		Group("style").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("style distribution for user %d: %w", userID, err)
	}
	return toMap(rows), nil
}

// ResolutionDistribution counts generations per "WxH" resolution.
func (r *Recorder) ResolutionDistribution(ctx context.Context, userID uint) (map[string]int64, error) {
	var rows []keyCount
	err := r.db.WithContext(ctx).Model(&generations.Record{}).
		Select("width || 'x' || height AS key, COUNT(*) AS count").
		Where("user_id = ?", userID).
		Group("width, height").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("resolution distribution for user %d: %w", userID, err)
	}
	return toMap(rows), nil
}

func toMap(rows []keyCount) map[string]int64 {
	m := make(map[string]int64, len(rows))
	for _, row := range rows {
		m[row.Key] = row.Count
	}
	return m
}

type UserStats struct {
	TotalGenerations int64   `json:"total_generations"`
	TotalSpentUSD    float64 `json:"total_spent_usd"`
}

// Stats aggregates a user's lifetime usage: generation count and completed
// spend. Pending and failed payments do not count toward the total.
func (r *Recorder) Stats(ctx context.Context, userID uint) (*UserStats, error) {
	var stats UserStats
	if err := r.db.WithContext(ctx).Model(&generations.Record{}).
		Where("user_id = ?", userID).
		Count(&stats.TotalGenerations).Error; err != nil {
		return nil, fmt.Errorf("count generations for user %d: %w", userID, err)
	}

	var total *float64
	if err := r.db.WithContext(ctx).Model(&billing.Payment{}).
		Select("SUM(amount_usd)").
		Where("user_id = ? AND status = ?", userID, billing.StatusCompleted).
		Scan(&total).Error; err != nil {
		return nil, fmt.Errorf("sum payments for user %d: %w", userID, err)
	}
	if total != nil {
		stats.TotalSpentUSD = *total
	}
	return &stats, nil
}

// History returns the user's generation records, newest first.
func (r *Recorder) History(ctx context.Context, userID uint, limit int) ([]generations.Record, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var records []generations.Record
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("load history for user %d: %w", userID, err)
	}
	return records, nil
}
