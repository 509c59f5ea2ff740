package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ordersync/internal/synclog/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, log *domain.SyncLog) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO sync_logs (
			id, tenant_id, sync_type, aggregator_type, status,
			items_processed, items_success, items_failed, details, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		log.ID,
		log.TenantID,
		log.SyncType,
		log.AggregatorType,
		log.Status,
		log.ItemsProcessed,
		log.ItemsSuccess,
		log.ItemsFailed,
		log.Details,
		log.CreatedAt,
	).Error
}

func (r *repo) Latest(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (*domain.SyncLog, error) {
	var log domain.SyncLog
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, sync_type, aggregator_type, status,
			items_processed, items_success, items_failed, details, created_at
		 FROM sync_logs
		 WHERE tenant_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`,
		tenantID,
	).Scan(&log).Error
	if err != nil {
		return nil, err
	}
	if log.ID == 0 {
		return nil, nil
	}
	return &log, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, filter domain.ListFilter, limit int) ([]*domain.SyncLog, error) {
	var logs []*domain.SyncLog
	stmt := db.WithContext(ctx).
		Model(&domain.SyncLog{}).
		Where("tenant_id = ?", tenantID)
	if filter.AggregatorType != "" {
		stmt = stmt.Where("aggregator_type = ?", filter.AggregatorType)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.Cursor != nil {
		createdAt, err := time.Parse(time.RFC3339Nano, filter.Cursor.CreatedAt)
		if err != nil {
			return nil, err
		}
		id, err := snowflake.ParseString(filter.Cursor.ID)
		if err != nil {
			return nil, err
		}
		stmt = stmt.Where("(created_at < ? OR (created_at = ? AND id < ?))", createdAt, createdAt, id)
	}
	err := stmt.
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}
