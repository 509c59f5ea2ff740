package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ordersync/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	AggregatorType string
	Status         Status
	Cursor         *pagination.Cursor
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, log *SyncLog) error
	Latest(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (*SyncLog, error)
	List(ctx context.Context, db *gorm.DB, tenantID snowflake.ID, filter ListFilter, limit int) ([]*SyncLog, error)
}
