package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ordersync/internal/order/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertIfAbsent(ctx context.Context, db *gorm.DB, order *domain.Order) (bool, error) {
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "aggregator_type"}, {Name: "aggregator_order_id"}},
			DoNothing: true,
		}).
		Create(order)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) Exists(ctx context.Context, db *gorm.DB, aggregatorType, aggregatorOrderID string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM orders
		 WHERE aggregator_type = ? AND aggregator_order_id = ?`,
		aggregatorType,
		aggregatorOrderID,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*domain.Order, error) {
	var order domain.Order
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, aggregator_type, aggregator_order_id, status, order_data,
			loyverse_receipt_id, sync_attempts, last_sync_attempt, error_message,
			claim_token, claimed_at, created_at, updated_at
		 FROM orders
		 WHERE tenant_id = ? AND id = ?`,
		tenantID,
		id,
	).Scan(&order).Error
	if err != nil {
		return nil, err
	}
	if order.ID == 0 {
		return nil, nil
	}
	return &order, nil
}

func (r *repo) ListPending(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, staleBefore time.Time, limit int) ([]*domain.Order, error) {
	var orders []*domain.Order
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, aggregator_type, aggregator_order_id, status, order_data,
			loyverse_receipt_id, sync_attempts, last_sync_attempt, error_message,
			claim_token, claimed_at, created_at, updated_at
		 FROM orders
		 WHERE tenant_id = ? AND status = ?
		   AND (claimed_at IS NULL OR claimed_at < ?)
		 ORDER BY created_at ASC, id ASC
		 LIMIT ?`,
		tenantID,
		domain.StatusPending,
		staleBefore,
		limit,
	).Scan(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repo) Claim(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID, token string, now, staleBefore time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE orders
		 SET claim_token = ?, claimed_at = ?, updated_at = ?
		 WHERE tenant_id = ? AND id = ? AND status = ?
		   AND (claimed_at IS NULL OR claimed_at < ?)`,
		token,
		now,
		now,
		tenantID,
		id,
		domain.StatusPending,
		staleBefore,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) MarkSynced(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID, token, receiptID string, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE orders
		 SET status = ?, loyverse_receipt_id = ?, last_sync_attempt = ?, error_message = '',
			claim_token = NULL, claimed_at = NULL, updated_at = ?
		 WHERE tenant_id = ? AND id = ? AND status = ? AND claim_token = ?`,
		domain.StatusSynced,
		receiptID,
		at,
		at,
		tenantID,
		id,
		domain.StatusPending,
		token,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) MarkError(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID, token, message string, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE orders
		 SET status = ?, sync_attempts = sync_attempts + 1, last_sync_attempt = ?, error_message = ?,
			claim_token = NULL, claimed_at = NULL, updated_at = ?
		 WHERE tenant_id = ? AND id = ? AND status = ? AND claim_token = ?`,
		domain.StatusError,
		at,
		message,
		at,
		tenantID,
		id,
		domain.StatusPending,
		token,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) ResetToPending(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE orders
		 SET status = ?, error_message = '', claim_token = NULL, claimed_at = NULL, updated_at = ?
		 WHERE tenant_id = ? AND id = ? AND status = ?`,
		domain.StatusPending,
		at,
		tenantID,
		id,
		domain.StatusError,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) CountByStatus(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (domain.StatusCounts, error) {
	var rows []struct {
		Status domain.Status
		Count  int64
	}
	err := db.WithContext(ctx).Raw(
		`SELECT status, COUNT(1) AS count
		 FROM orders
		 WHERE tenant_id = ?
		 GROUP BY status`,
		tenantID,
	).Scan(&rows).Error
	if err != nil {
		return domain.StatusCounts{}, err
	}

	var counts domain.StatusCounts
	for _, row := range rows {
		switch row.Status {
		case domain.StatusPending:
			counts.Pending = row.Count
		case domain.StatusSynced:
			counts.Synced = row.Count
		case domain.StatusError:
			counts.Error = row.Count
		}
		counts.Total += row.Count
	}
	return counts, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, filter domain.ListOrderFilter, limit int) ([]*domain.Order, error) {
	var orders []*domain.Order
	stmt := db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("tenant_id = ?", tenantID)
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.AggregatorType != "" {
		stmt = stmt.Where("aggregator_type = ?", filter.AggregatorType)
	}
	if filter.Cursor != nil {
		createdAt, err := time.Parse(time.RFC3339Nano, filter.Cursor.CreatedAt)
		if err != nil {
			return nil, domain.ErrInvalidID
		}
		id, err := snowflake.ParseString(filter.Cursor.ID)
		if err != nil {
			return nil, domain.ErrInvalidID
		}
		stmt = stmt.Where("(created_at < ? OR (created_at = ? AND id < ?))", createdAt, createdAt, id)
	}
	err := stmt.
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}
