package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ordersync/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListOrderFilter struct {
	Status         Status
	AggregatorType string
	Cursor         *pagination.Cursor
}

type Repository interface {
	InsertIfAbsent(ctx context.Context, db *gorm.DB, order *Order) (bool, error)
	Exists(ctx context.Context, db *gorm.DB, aggregatorType, aggregatorOrderID string) (bool, error)
	FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*Order, error)
	ListPending(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, staleBefore time.Time, limit int) ([]*Order, error)
	Claim(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID, token string, now, staleBefore time.Time) (bool, error)
	MarkSynced(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID, token, receiptID string, at time.Time) (bool, error)
	MarkError(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID, token, message string, at time.Time) (bool, error)
	ResetToPending(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID, at time.Time) (bool, error)
	CountByStatus(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (StatusCounts, error)
	List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, filter ListOrderFilter, limit int) ([]*Order, error)
}
